package models

// QuestionRequest is the body of a plain RAG-backed question.
type QuestionRequest struct {
	Question string `json:"question" binding:"required"`
}

type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit"`
}

// ContentRequest adds one manually authored item to the knowledge base.
type ContentRequest struct {
	Title      string `json:"title" binding:"required"`
	Content    string `json:"content" binding:"required"`
	Subject    string `json:"subject" binding:"required"`
	Difficulty string `json:"difficulty" binding:"required"`
}

type DatasetLoadRequest struct {
	Source   string `json:"source" binding:"required"`
	FilePath string `json:"file_path"`
}

type MultilingualQuestionRequest struct {
	Question           string `json:"question" binding:"required"`
	Language           string `json:"language"`
	AutoDetectLanguage bool   `json:"auto_detect_language"`
	TranslateResponse  bool   `json:"translate_response"`
}

type LanguageDetectionRequest struct {
	Text string `json:"text" binding:"required"`
}

type DocumentQuestionRequest struct {
	Question string `json:"question" binding:"required"`
}
