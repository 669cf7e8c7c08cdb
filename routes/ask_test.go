package routes

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"ai-teaching-platform/internal/config"
	"ai-teaching-platform/internal/store"
	"ai-teaching-platform/internal/vectorstore"
	"ai-teaching-platform/middleware"
	"ai-teaching-platform/models"
	"ai-teaching-platform/services"
	"ai-teaching-platform/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) []float32 {
	vec := make([]float32, 8)
	for i := range vec {
		vec[i] = 0.25
	}
	return vec
}

type stubIndex struct {
	hits []vectorstore.Hit
}

func (s *stubIndex) EnsureCollection(ctx context.Context) error { return nil }
func (s *stubIndex) Upsert(ctx context.Context, points []vectorstore.Point) error {
	return nil
}
func (s *stubIndex) Search(ctx context.Context, vector []float32, limit int, filter *vectorstore.Filter, threshold float64) ([]vectorstore.Hit, error) {
	return s.hits, nil
}
func (s *stubIndex) DeleteByFilter(ctx context.Context, key, value string) error { return nil }
func (s *stubIndex) ScrollPayloads(ctx context.Context, limit int, filter *vectorstore.Filter) ([]vectorstore.Payload, error) {
	return nil, nil
}

type stubGenerator struct{ reply string }

func (g stubGenerator) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	return g.reply, nil
}
func (g stubGenerator) CompleteOpts(ctx context.Context, systemPrompt, userMessage string, temperature float32, maxTokens int32) (string, error) {
	return g.reply, nil
}

func newAskTestRouter(t *testing.T, st *store.Store, hits []vectorstore.Hit) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		JWTSecret:        "test-secret",
		VectorDimensions: 8,
		ScoreThreshold:   0.2,
		ChatSearchLimit:  5,
	}

	index := &stubIndex{hits: hits}
	gen := stubGenerator{reply: "Plants convert light into chemical energy."}

	retrieval := services.NewRetrievalService(stubEmbedder{}, index, cfg.ScoreThreshold, cfg.ChatSearchLimit)
	answers := services.NewAnswerService(gen)
	language := services.NewLanguageService(gen)
	multilingual := services.NewMultilingualService(language, retrieval, gen)
	chat := services.NewChatService(st)
	content := services.NewContentService(stubEmbedder{}, index, cfg.ChatSearchLimit)

	router := gin.New()
	SetupAskRoutes(router, AskDeps{
		Config:       cfg,
		Retrieval:    retrieval,
		Answers:      answers,
		Content:      content,
		Multilingual: multilingual,
		Language:     language,
		Chat:         chat,
	}, middleware.NewAuthMiddleware(cfg), middleware.NewRoleMiddleware(), nil)
	return router
}

func askTestToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := utils.GenerateJWT(userID, "student", "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	return token
}

func postAsk(t *testing.T, router *gin.Engine, token, question string) (*httptest.ResponseRecorder, models.AskResponse) {
	t.Helper()
	body, _ := json.Marshal(models.QuestionRequest{Question: question})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ask", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	var resp models.AskResponse
	if w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return w, resp
}

func TestAskReportsGroundedAnswerMetadata(t *testing.T) {
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	hits := []vectorstore.Hit{{
		ID:    1,
		Score: 0.9,
		Payload: vectorstore.Payload{
			Title: "Photosynthesis", Content: "Plants convert light.",
			Subject: "Biology", Difficulty: "Beginner", Source: "Manual",
		},
	}}
	router := newAskTestRouter(t, st, hits)
	token := askTestToken(t, "user-1")

	w, resp := postAsk(t, router, token, "What is photosynthesis?")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	meta := resp.SearchMetadata
	if !meta.SavedToDatabase {
		t.Error("message was persisted but saved_to_database is false")
	}
	if meta.SearchTimestamp.IsZero() {
		t.Error("search_timestamp not set")
	}
	if meta.ContextType != "Specific Context" {
		t.Errorf("context_type = %q, want %q", meta.ContextType, "Specific Context")
	}
	if meta.SearchResultsFound != 1 {
		t.Errorf("search_results_found = %d, want 1", meta.SearchResultsFound)
	}

	messages, err := services.NewChatService(st).ListMessages("user-1", resp.SessionID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 persisted message, got %d", len(messages))
	}
}

func TestAskReportsPersistenceFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "platform.db")
	st, err := store.New(path)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	router := newAskTestRouter(t, st, nil)
	token := askTestToken(t, "user-2")

	// Break message persistence while leaving session lookup intact.
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open second handle: %v", err)
	}
	if _, err := db.Exec("DROP TABLE chat_messages"); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	db.Close()

	w, resp := postAsk(t, router, token, "What is photosynthesis?")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 despite save failure, got %d: %s", w.Code, w.Body.String())
	}

	meta := resp.SearchMetadata
	if meta.SavedToDatabase {
		t.Error("persistence failed but saved_to_database is true")
	}
	if meta.ContextType != "General Knowledge" {
		t.Errorf("context_type = %q, want %q", meta.ContextType, "General Knowledge")
	}
	if resp.Answer == "" {
		t.Error("answer missing from degraded response")
	}
}
