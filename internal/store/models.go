package store

import "time"

type Document struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	FileName         string     `json:"file_name"`
	ContentType      string     `json:"content_type"`
	FileSize         int64      `json:"file_size"`
	Subject          string     `json:"subject"`
	UploadedBy       string     `json:"uploaded_by"`
	ProcessingStatus string     `json:"processing_status"` // pending, completed, failed
	ProcessingError  *string    `json:"processing_error,omitempty"`
	TotalChunks      int        `json:"total_chunks"`
	UploadedAt       time.Time  `json:"uploaded_at"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
}

type DocumentChunk struct {
	ID            string    `json:"id"`
	DocumentID    string    `json:"document_id"`
	ChunkIndex    int       `json:"chunk_index"`
	Content       string    `json:"content"`
	StartOffset   int       `json:"start_offset"`
	EndOffset     int       `json:"end_offset"`
	VectorPointID uint64    `json:"vector_point_id"`
	CreatedAt     time.Time `json:"created_at"`
}

type ChatSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ChatMessage struct {
	ID               string    `json:"id"`
	SessionID        string    `json:"session_id"`
	Question         string    `json:"question"`
	Answer           string    `json:"answer"`
	QuestionLanguage string    `json:"question_language"`
	AnswerLanguage   string    `json:"answer_language"`
	UsedRAG          bool      `json:"used_rag"`
	SearchScore      *float64  `json:"search_score,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
