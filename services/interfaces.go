package services

import (
	"context"

	"ai-teaching-platform/internal/vectorstore"
)

// Embedder turns text into a fixed-dimension vector. Implementations never
// fail; degraded providers substitute fallback vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

// Generator produces text from a system+user prompt pair.
type Generator interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
	CompleteOpts(ctx context.Context, systemPrompt, userMessage string, temperature float32, maxTokens int32) (string, error)
}

// VectorIndex is the slice of the vector store the services need.
type VectorIndex interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, points []vectorstore.Point) error
	Search(ctx context.Context, vector []float32, limit int, filter *vectorstore.Filter, threshold float64) ([]vectorstore.Hit, error)
	DeleteByFilter(ctx context.Context, key, value string) error
	ScrollPayloads(ctx context.Context, limit int, filter *vectorstore.Filter) ([]vectorstore.Payload, error)
}
