package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-teaching-platform/internal/logger"
	"ai-teaching-platform/models"
)

// MultilingualService answers questions asked in any supported language by
// detecting the language, searching the English knowledge base, and
// answering in the caller's language.
type MultilingualService struct {
	language  *LanguageService
	retrieval *RetrievalService
	generator Generator
}

func NewMultilingualService(language *LanguageService, retrieval *RetrievalService, generator Generator) *MultilingualService {
	return &MultilingualService{language: language, retrieval: retrieval, generator: generator}
}

func (ms *MultilingualService) Ask(ctx context.Context, req models.MultilingualQuestionRequest) models.MultilingualResponse {
	questionLanguage := req.Language
	if questionLanguage == "" && req.AutoDetectLanguage {
		detection := ms.language.Detect(ctx, req.Question)
		questionLanguage = detection.DetectedLanguage
	}
	if questionLanguage == "" {
		questionLanguage = "en"
	}

	englishQuestion := req.Question
	if questionLanguage != "en" {
		englishQuestion = ms.language.Translate(ctx, req.Question, questionLanguage, "en")
	}

	retrieval := ms.retrieval.Retrieve(ctx, englishQuestion, "")

	systemPrompt := ms.systemPrompt(retrieval.Context, questionLanguage)
	answer, err := ms.generator.Complete(ctx, systemPrompt, req.Question)
	if err != nil || strings.TrimSpace(answer) == "" {
		logger.Error("multilingual answer generation failed", "language", questionLanguage, "error", err)
		answer = AnswerFallback
	}

	finalAnswer := answer
	if req.TranslateResponse && questionLanguage != "en" && LooksEnglish(answer) {
		finalAnswer = ms.language.Translate(ctx, answer, "en", questionLanguage)
	}

	resp := models.MultilingualResponse{
		Question:         req.Question,
		QuestionLanguage: questionLanguage,
		Answer:           finalAnswer,
		AnswerLanguage:   questionLanguage,
		ContextSources:   retrieval.Sources,
		UsedFallback:     retrieval.UsedFallback(),
		ProcessedAt:      time.Now().UTC(),
	}
	if englishQuestion != req.Question {
		resp.EnglishTranslation = englishQuestion
	}
	if req.TranslateResponse && finalAnswer != answer {
		resp.TranslatedAnswer = &finalAnswer
	}
	return resp
}

func (ms *MultilingualService) systemPrompt(contextText, languageCode string) string {
	if languageCode == "en" {
		return "You are an expert educational tutor. Answer questions clearly and educationally using the provided context.\n\nContext: " + contextText
	}
	languageName := ms.language.Name(languageCode)
	return fmt.Sprintf("You are an expert educational tutor. Answer the question in %s.\nProvide clear, educational responses using the context provided.\nKeep your response in %s throughout.\n\nContext: %s",
		languageName, languageName, contextText)
}
