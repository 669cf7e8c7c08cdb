package services

import (
	"fmt"
	"strings"

	"ai-teaching-platform/internal/store"
	"ai-teaching-platform/utils"
)

const defaultSessionTitle = "New Chat"

// ChatService manages conversation sessions and their message history.
type ChatService struct {
	store *store.Store
}

func NewChatService(st *store.Store) *ChatService {
	return &ChatService{store: st}
}

// GetOrCreateSession returns the user's most recently updated active session,
// creating one when none exists. Concurrent calls for the same user can race
// and each create a session; the read path tolerates the duplicates.
func (cs *ChatService) GetOrCreateSession(userID string) (*store.ChatSession, error) {
	sess, err := cs.store.LatestActiveSession(userID)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		return sess, nil
	}
	return cs.store.CreateSession(userID, defaultSessionTitle)
}

// SaveMessage appends a question/answer pair to the session and bumps its
// UpdatedAt. While the session still carries a placeholder title, the first
// question becomes the title, truncated to 50 characters.
func (cs *ChatService) SaveMessage(msg *store.ChatMessage) error {
	sess, err := cs.store.GetSessionByID(msg.SessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("session %s: %w", msg.SessionID, utils.ErrNotFound)
	}

	if err := cs.store.InsertMessage(msg); err != nil {
		return err
	}

	newTitle := ""
	if sess.Title == defaultSessionTitle || strings.HasPrefix(sess.Title, "Chat ") {
		newTitle = sessionTitleFromQuestion(msg.Question)
	}
	return cs.store.UpdateSessionOnMessage(msg.SessionID, newTitle)
}

// ListSessions returns the user's sessions, most recently updated first.
func (cs *ChatService) ListSessions(userID string) ([]store.ChatSession, error) {
	return cs.store.ListSessionsByUser(userID)
}

// ListMessages returns a session's messages oldest-first, enforcing that the
// session exists and belongs to the caller.
func (cs *ChatService) ListMessages(userID, sessionID string) ([]store.ChatMessage, error) {
	sess, err := cs.store.GetSessionByID(sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, utils.ErrNotFound)
	}
	if sess.UserID != userID {
		return nil, fmt.Errorf("session %s: %w", sessionID, utils.ErrForbidden)
	}
	return cs.store.ListMessagesBySession(sessionID)
}

func sessionTitleFromQuestion(question string) string {
	if len(question) > 50 {
		return question[:50] + "..."
	}
	return question
}
