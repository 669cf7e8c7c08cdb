package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"hash/fnv"
	"math/rand"
	"time"
	"unicode/utf8"

	"ai-teaching-platform/internal/logger"

	"github.com/google/generative-ai-go/genai"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"
)

var errNoEmbedding = errors.New("no embedding returned")

// EmbeddingService produces embedding vectors via Google Generative AI
// (text-embedding-004 by default). It never fails: when the API key is
// missing or the provider errors, it substitutes a deterministic fallback
// vector so indexing and search keep working in degraded form.
type EmbeddingService struct {
	apiKey   string
	model    string
	dim      int
	maxChars int
	cache    *redis.Client
	cacheTTL time.Duration
}

func NewEmbeddingService(apiKey, model string, dim, maxChars int, cache *redis.Client, cacheTTL time.Duration) *EmbeddingService {
	return &EmbeddingService{
		apiKey:   apiKey,
		model:    model,
		dim:      dim,
		maxChars: maxChars,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// Embed returns a vector of fixed dimension for the given text. Input longer
// than the provider limit is truncated before submission. Any provider
// failure is logged and replaced with a fallback vector.
func (s *EmbeddingService) Embed(ctx context.Context, text string) []float32 {
	text = s.truncate(text)

	if cached, ok := s.cacheGet(ctx, text); ok {
		return cached
	}

	if s.apiKey == "" {
		logger.Warn("embedding API key not configured, using fallback vector")
		return s.fallbackVector(text)
	}

	vec, err := s.embedRemote(ctx, text)
	if err != nil {
		logger.Error("embedding request failed, using fallback vector", "error", err)
		return s.fallbackVector(text)
	}
	if len(vec) != s.dim {
		logger.Error("embedding dimension mismatch, using fallback vector",
			"got", len(vec), "want", s.dim, "model", s.model)
		return s.fallbackVector(text)
	}

	s.cacheSet(ctx, text, vec)
	return vec
}

// truncate cuts text to the provider limit without splitting a multibyte
// rune at the boundary.
func (s *EmbeddingService) truncate(text string) string {
	if len(text) <= s.maxChars {
		return text
	}
	cut := s.maxChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func (s *EmbeddingService) embedRemote(ctx context.Context, text string) ([]float32, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(s.apiKey))
	if err != nil {
		return nil, err
	}
	defer client.Close()

	model := client.EmbeddingModel(s.model)
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, errNoEmbedding
	}
	return resp.Embedding.Values, nil
}

// fallbackVector is seeded from the input text so the same text always maps
// to the same degraded vector.
func (s *EmbeddingService) fallbackVector(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float32, s.dim)
	for i := range vec {
		vec[i] = rng.Float32()*2 - 1
	}
	return vec
}

func (s *EmbeddingService) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(s.model + "\x00" + text))
	return "emb:" + hex.EncodeToString(sum[:])
}

func (s *EmbeddingService) cacheGet(ctx context.Context, text string) ([]float32, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, s.cacheKey(text)).Bytes()
	if err != nil {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil || len(vec) != s.dim {
		return nil, false
	}
	return vec, true
}

func (s *EmbeddingService) cacheSet(ctx context.Context, text string, vec []float32) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(text), raw, s.cacheTTL).Err(); err != nil {
		logger.Debug("embedding cache write failed", "error", err)
	}
}
