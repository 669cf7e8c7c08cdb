package services

import (
	"context"
	"strings"

	"ai-teaching-platform/internal/logger"
)

// AnswerFallback is the fixed reply used when the generative provider fails
// or returns nothing usable.
const AnswerFallback = "I'm here to help with your educational questions!"

// AnswerService turns a question plus retrieved context into a tutor-style
// answer. When retrieval produced no usable context it switches to a
// subject persona picked from keywords in the question.
type AnswerService struct {
	generator Generator
}

func NewAnswerService(generator Generator) *AnswerService {
	return &AnswerService{generator: generator}
}

// Answer never fails: provider errors degrade to the fixed fallback reply.
func (as *AnswerService) Answer(ctx context.Context, question, contextText string) string {
	systemPrompt := as.SystemPrompt(question, contextText)

	reply, err := as.generator.Complete(ctx, systemPrompt, question)
	if err != nil || strings.TrimSpace(reply) == "" {
		logger.Error("answer generation failed", "error", err)
		return AnswerFallback
	}
	return reply
}

// SystemPrompt picks the grounded prompt when context exists, otherwise a
// keyword-matched subject persona.
func (as *AnswerService) SystemPrompt(question, contextText string) string {
	if strings.Contains(contextText, "No highly relevant context") {
		return fallbackPersona(question)
	}
	return "You are an expert educational tutor. Use this context to provide accurate, detailed educational answers. Explain concepts clearly and provide examples when helpful.\n\nContext: " + contextText
}

func fallbackPersona(question string) string {
	q := strings.ToLower(question)

	switch {
	case containsAny(q, "photosynthesis", "plant", "biology"):
		return "You are an expert biology tutor. The student is asking about biological concepts. Provide a comprehensive, educational answer with clear explanations and examples."
	case containsAny(q, "chemistry", "chemical", "molecule"):
		return "You are an expert chemistry tutor. The student is asking about chemical concepts. Provide a detailed, educational explanation with examples and applications."
	case containsAny(q, "physics", "force", "energy"):
		return "You are an expert physics tutor. The student is asking about physics concepts. Provide clear explanations with examples and real-world applications."
	case containsAny(q, "math", "calculus", "algebra"):
		return "You are an expert mathematics tutor. The student is asking about mathematical concepts. Provide step-by-step explanations with examples."
	case containsAny(q, "history", "war", "historical"):
		return "You are an expert history tutor. The student is asking about historical events or concepts. Provide comprehensive context and analysis."
	}

	return "You are a knowledgeable educational tutor. The student is asking about a topic not in your specialized knowledge base. Provide the best educational answer you can with clear explanations and encourage further learning."
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
