package models

import "time"

// SearchMetadata rides along with every RAG-backed answer so clients can see
// how the answer was grounded.
type SearchMetadata struct {
	EmbeddingDimensions int       `json:"embedding_dimensions"`
	SearchResultsFound  int       `json:"search_results_found"`
	ContextType         string    `json:"context_type"` // "Specific Context" or "General Knowledge"
	SearchTimestamp     time.Time `json:"search_timestamp"`
	SavedToDatabase     bool      `json:"saved_to_database"`
}

type AskResponse struct {
	Question       string         `json:"question"`
	Answer         string         `json:"answer"`
	ContextUsed    string         `json:"context_used"`
	SessionID      string         `json:"session_id"`
	SearchMetadata SearchMetadata `json:"search_metadata"`
}

type SearchResult struct {
	ID         uint64  `json:"id"`
	Score      float64 `json:"score"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Subject    string  `json:"subject"`
	Difficulty string  `json:"difficulty"`
	Source     string  `json:"source"`
	Relevance  string  `json:"relevance"` // Very High / High / Medium / Low
}

type SearchResponse struct {
	Query      string         `json:"query"`
	Results    []SearchResult `json:"results"`
	TotalFound int            `json:"total_found"`
}

type MultilingualResponse struct {
	Question           string    `json:"question"`
	QuestionLanguage   string    `json:"question_language"`
	EnglishTranslation string    `json:"english_translation,omitempty"`
	Answer             string    `json:"answer"`
	AnswerLanguage     string    `json:"answer_language"`
	TranslatedAnswer   *string   `json:"translated_answer,omitempty"`
	ContextSources     []string  `json:"context_sources"`
	UsedFallback       bool      `json:"used_fallback"`
	ProcessedAt        time.Time `json:"processed_at"`
}

type LanguageDetection struct {
	DetectedLanguage string  `json:"detected_language"`
	LanguageName     string  `json:"language_name"`
	Confidence       float64 `json:"confidence"`
}

type SupportedLanguage struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	NativeName string `json:"native_name"`
}

// DocumentAnswer is the result of asking a question scoped to one document.
type DocumentAnswer struct {
	Answer        string   `json:"answer"`
	ContextUsed   []string `json:"context_used"`
	Confidence    float64  `json:"confidence"`
	ChunksFound   int      `json:"chunks_found"`
	DocumentTitle string   `json:"document_title,omitempty"`
}

type DatasetLoadResult struct {
	Source      string   `json:"source"`
	TotalPoints int      `json:"total_points"`
	Subjects    []string `json:"subjects"`
}
