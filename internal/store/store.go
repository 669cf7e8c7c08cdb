package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Store is the relational ledger next to the vector index: documents and
// their chunks, chat sessions and messages. There is no transactional
// guarantee between this store and the vector index.
type Store struct {
	db *sql.DB
}

func New(dataSourceName string) (*Store, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS documents (
        id TEXT PRIMARY KEY, -- UUID
        title TEXT NOT NULL,
        file_name TEXT NOT NULL,
        content_type TEXT NOT NULL,
        file_size INTEGER NOT NULL,
        subject TEXT NOT NULL DEFAULT 'General',
        uploaded_by TEXT NOT NULL,
        processing_status TEXT NOT NULL DEFAULT 'pending'
            CHECK (processing_status IN ('pending', 'completed', 'failed')),
        processing_error TEXT,
        total_chunks INTEGER NOT NULL DEFAULT 0,
        uploaded_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        processed_at DATETIME
    );

    CREATE TABLE IF NOT EXISTS document_chunks (
        id TEXT PRIMARY KEY, -- UUID
        document_id TEXT NOT NULL,
        chunk_index INTEGER NOT NULL,
        content TEXT NOT NULL,
        start_offset INTEGER NOT NULL,
        end_offset INTEGER NOT NULL,
        vector_point_id INTEGER NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (document_id) REFERENCES documents (id)
    );

    CREATE TABLE IF NOT EXISTS chat_sessions (
        id TEXT PRIMARY KEY, -- UUID
        user_id TEXT NOT NULL,
        title TEXT NOT NULL,
        is_active BOOLEAN NOT NULL DEFAULT TRUE,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS chat_messages (
        id TEXT PRIMARY KEY, -- UUID
        session_id TEXT NOT NULL,
        question TEXT NOT NULL,
        answer TEXT NOT NULL,
        question_language TEXT NOT NULL DEFAULT 'en',
        answer_language TEXT NOT NULL DEFAULT 'en',
        used_rag BOOLEAN NOT NULL DEFAULT FALSE,
        search_score REAL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (session_id) REFERENCES chat_sessions (id)
    );

    CREATE INDEX IF NOT EXISTS idx_chunks_document ON document_chunks (document_id);
    CREATE INDEX IF NOT EXISTS idx_sessions_user ON chat_sessions (user_id, updated_at);
    CREATE INDEX IF NOT EXISTS idx_messages_session ON chat_messages (session_id, created_at);
    `
	_, err := s.db.Exec(schema)
	return err
}

// Document methods

func (s *Store) CreateDocument(doc *Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.ProcessingStatus == "" {
		doc.ProcessingStatus = StatusPending
	}
	doc.UploadedAt = time.Now()

	_, err := s.db.Exec(
		`INSERT INTO documents (id, title, file_name, content_type, file_size, subject, uploaded_by, processing_status, uploaded_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.FileName, doc.ContentType, doc.FileSize, doc.Subject, doc.UploadedBy, doc.ProcessingStatus, doc.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

func (s *Store) GetDocumentByID(id string) (*Document, error) {
	var doc Document
	var procErr sql.NullString
	var procAt sql.NullTime
	err := s.db.QueryRow(
		`SELECT id, title, file_name, content_type, file_size, subject, uploaded_by, processing_status, processing_error, total_chunks, uploaded_at, processed_at
         FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Title, &doc.FileName, &doc.ContentType, &doc.FileSize, &doc.Subject, &doc.UploadedBy,
		&doc.ProcessingStatus, &procErr, &doc.TotalChunks, &doc.UploadedAt, &procAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	if procErr.Valid {
		doc.ProcessingError = &procErr.String
	}
	if procAt.Valid {
		doc.ProcessedAt = &procAt.Time
	}
	return &doc, nil
}

func (s *Store) ListDocumentsByOwner(userID string) ([]Document, error) {
	rows, err := s.db.Query(
		`SELECT id, title, file_name, content_type, file_size, subject, uploaded_by, processing_status, processing_error, total_chunks, uploaded_at, processed_at
         FROM documents WHERE uploaded_by = ? ORDER BY uploaded_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var procErr sql.NullString
		var procAt sql.NullTime
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.FileName, &doc.ContentType, &doc.FileSize, &doc.Subject, &doc.UploadedBy,
			&doc.ProcessingStatus, &procErr, &doc.TotalChunks, &doc.UploadedAt, &procAt); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		if procErr.Valid {
			doc.ProcessingError = &procErr.String
		}
		if procAt.Valid {
			doc.ProcessedAt = &procAt.Time
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// MarkDocumentCompleted records a successful processing run.
func (s *Store) MarkDocumentCompleted(id string, totalChunks int) error {
	_, err := s.db.Exec(
		`UPDATE documents SET processing_status = ?, processing_error = NULL, total_chunks = ?, processed_at = ? WHERE id = ?`,
		StatusCompleted, totalChunks, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark document completed: %w", err)
	}
	return nil
}

// MarkDocumentFailed records a failed processing run with its error message.
func (s *Store) MarkDocumentFailed(id string, procErr string) error {
	_, err := s.db.Exec(
		`UPDATE documents SET processing_status = ?, processing_error = ?, processed_at = ? WHERE id = ?`,
		StatusFailed, procErr, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark document failed: %w", err)
	}
	return nil
}

func (s *Store) DeleteDocument(id string) error {
	if _, err := s.db.Exec(`DELETE FROM document_chunks WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete document chunks: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// Chunk methods

func (s *Store) AddChunk(chunk *DocumentChunk) error {
	if chunk.ID == "" {
		chunk.ID = uuid.NewString()
	}
	chunk.CreatedAt = time.Now()

	_, err := s.db.Exec(
		`INSERT INTO document_chunks (id, document_id, chunk_index, content, start_offset, end_offset, vector_point_id, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		chunk.ID, chunk.DocumentID, chunk.ChunkIndex, chunk.Content, chunk.StartOffset, chunk.EndOffset, chunk.VectorPointID, chunk.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	return nil
}

func (s *Store) GetChunksByDocument(documentID string) ([]DocumentChunk, error) {
	rows, err := s.db.Query(
		`SELECT id, document_id, chunk_index, content, start_offset, end_offset, vector_point_id, created_at
         FROM document_chunks WHERE document_id = ? ORDER BY chunk_index ASC`, documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []DocumentChunk
	for rows.Next() {
		var c DocumentChunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.StartOffset, &c.EndOffset, &c.VectorPointID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Session methods

// LatestActiveSession returns the most recently updated active session for
// the user, or nil when none exists.
func (s *Store) LatestActiveSession(userID string) (*ChatSession, error) {
	var sess ChatSession
	err := s.db.QueryRow(
		`SELECT id, user_id, title, is_active, created_at, updated_at
         FROM chat_sessions WHERE user_id = ? AND is_active = TRUE
         ORDER BY updated_at DESC LIMIT 1`, userID,
	).Scan(&sess.ID, &sess.UserID, &sess.Title, &sess.IsActive, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return &sess, nil
}

func (s *Store) CreateSession(userID, title string) (*ChatSession, error) {
	now := time.Now()
	sess := &ChatSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.Exec(
		`INSERT INTO chat_sessions (id, user_id, title, is_active, created_at, updated_at) VALUES (?, ?, ?, TRUE, ?, ?)`,
		sess.ID, sess.UserID, sess.Title, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}
	return sess, nil
}

func (s *Store) GetSessionByID(id string) (*ChatSession, error) {
	var sess ChatSession
	err := s.db.QueryRow(
		`SELECT id, user_id, title, is_active, created_at, updated_at FROM chat_sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.UserID, &sess.Title, &sess.IsActive, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return &sess, nil
}

func (s *Store) ListSessionsByUser(userID string) ([]ChatSession, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, title, is_active, created_at, updated_at
         FROM chat_sessions WHERE user_id = ? ORDER BY updated_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []ChatSession
	for rows.Next() {
		var sess ChatSession
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Title, &sess.IsActive, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// UpdateSessionOnMessage bumps updated_at and optionally replaces the title
// in the same statement.
func (s *Store) UpdateSessionOnMessage(sessionID string, newTitle string) error {
	var err error
	if newTitle != "" {
		_, err = s.db.Exec(`UPDATE chat_sessions SET title = ?, updated_at = ? WHERE id = ?`, newTitle, time.Now(), sessionID)
	} else {
		_, err = s.db.Exec(`UPDATE chat_sessions SET updated_at = ? WHERE id = ?`, time.Now(), sessionID)
	}
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// Message methods

func (s *Store) InsertMessage(msg *ChatMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.CreatedAt = time.Now()

	_, err := s.db.Exec(
		`INSERT INTO chat_messages (id, session_id, question, answer, question_language, answer_language, used_rag, search_score, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, msg.Question, msg.Answer, msg.QuestionLanguage, msg.AnswerLanguage, msg.UsedRAG, msg.SearchScore, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *Store) ListMessagesBySession(sessionID string) ([]ChatMessage, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, question, answer, question_language, answer_language, used_rag, search_score, created_at
         FROM chat_messages WHERE session_id = ? ORDER BY created_at ASC`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []ChatMessage
	for rows.Next() {
		var m ChatMessage
		var score sql.NullFloat64
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Question, &m.Answer, &m.QuestionLanguage, &m.AnswerLanguage, &m.UsedRAG, &score, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		if score.Valid {
			m.SearchScore = &score.Float64
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
