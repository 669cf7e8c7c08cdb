package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"ai-teaching-platform/internal/logger"
	"ai-teaching-platform/models"
)

// LanguageService handles language detection and translation. Both degrade
// gracefully: detection falls back to rules, translation falls back to the
// original text.
type LanguageService struct {
	generator Generator
	languages map[string]models.SupportedLanguage
}

func NewLanguageService(generator Generator) *LanguageService {
	return &LanguageService{
		generator: generator,
		languages: map[string]models.SupportedLanguage{
			"en": {Code: "en", Name: "English", NativeName: "English"},
			"es": {Code: "es", Name: "Spanish", NativeName: "Español"},
			"fr": {Code: "fr", Name: "French", NativeName: "Français"},
			"hi": {Code: "hi", Name: "Hindi", NativeName: "हिन्दी"},
			"de": {Code: "de", Name: "German", NativeName: "Deutsch"},
			"pt": {Code: "pt", Name: "Portuguese", NativeName: "Português"},
			"it": {Code: "it", Name: "Italian", NativeName: "Italiano"},
			"zh": {Code: "zh", Name: "Chinese", NativeName: "中文"},
			"ja": {Code: "ja", Name: "Japanese", NativeName: "日本語"},
			"ko": {Code: "ko", Name: "Korean", NativeName: "한국어"},
		},
	}
}

// Detect asks the provider for an ISO 639-1 code first, then falls back to
// rule-based detection when the provider fails or returns an unknown code.
func (ls *LanguageService) Detect(ctx context.Context, text string) models.LanguageDetection {
	prompt := fmt.Sprintf("Detect the language of this text and respond with just the ISO 639-1 language code (e.g., 'en', 'es', 'fr', 'hi', 'de'): %q", text)

	reply, err := ls.generator.CompleteOpts(ctx, "", prompt, 0.1, 10)
	if err == nil {
		code := strings.ToLower(strings.TrimSpace(reply))
		if lang, ok := ls.languages[code]; ok {
			return models.LanguageDetection{
				DetectedLanguage: code,
				LanguageName:     lang.Name,
				Confidence:       0.95,
			}
		}
	} else {
		logger.Debug("provider language detection failed", "error", err)
	}

	return ls.detectRuleBased(text)
}

// Translate returns the translated text, or the original unchanged on any
// provider failure.
func (ls *LanguageService) Translate(ctx context.Context, text, fromLang, toLang string) string {
	prompt := fmt.Sprintf("Translate this text from %s to %s. Provide only the translation without any additional text:\n\n%s",
		ls.Name(fromLang), ls.Name(toLang), text)

	reply, err := ls.generator.CompleteOpts(ctx, "", prompt, 0.3, 1000)
	if err != nil || strings.TrimSpace(reply) == "" {
		logger.Warn("translation failed, keeping original text", "from", fromLang, "to", toLang, "error", err)
		return text
	}
	return strings.TrimSpace(reply)
}

func (ls *LanguageService) Supported() []models.SupportedLanguage {
	out := make([]models.SupportedLanguage, 0, len(ls.languages))
	for _, lang := range ls.languages {
		out = append(out, lang)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (ls *LanguageService) IsSupported(code string) bool {
	_, ok := ls.languages[strings.ToLower(code)]
	return ok
}

// Name returns the English name for a language code, "Unknown" otherwise.
func (ls *LanguageService) Name(code string) string {
	if lang, ok := ls.languages[strings.ToLower(code)]; ok {
		return lang.Name
	}
	return "Unknown"
}

func (ls *LanguageService) detectRuleBased(text string) models.LanguageDetection {
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, "qué", "cómo", "cuál", "dónde", "cuándo", "por qué", "¿", "ñ"):
		return models.LanguageDetection{DetectedLanguage: "es", LanguageName: "Spanish", Confidence: 0.8}
	case containsAny(lower, "qu'est-ce", "comment", "où", "pourquoi", "c'est", "ç", "è", "é"):
		return models.LanguageDetection{DetectedLanguage: "fr", LanguageName: "French", Confidence: 0.8}
	case containsDevanagari(text):
		return models.LanguageDetection{DetectedLanguage: "hi", LanguageName: "Hindi", Confidence: 0.9}
	case containsAny(lower, "was", "wie", "wann", "warum", "das ", "der ", "ein ", "ä", "ö", "ü", "ß"):
		return models.LanguageDetection{DetectedLanguage: "de", LanguageName: "German", Confidence: 0.8}
	}

	return models.LanguageDetection{DetectedLanguage: "en", LanguageName: "English", Confidence: 0.7}
}

func containsDevanagari(text string) bool {
	for _, r := range text {
		if r >= 0x0900 && r <= 0x097F {
			return true
		}
	}
	return false
}

// LooksEnglish is a stop-word heuristic used to decide whether an answer
// still needs translating back to the requested language.
func LooksEnglish(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range []string{"the", "and", "is", "are", "this", "that", "with", "for", "can", "will"} {
		if strings.Contains(lower, " "+word+" ") {
			return true
		}
	}
	return false
}
