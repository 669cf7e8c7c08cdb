package services

import (
	"context"
	"fmt"
	"strings"

	"ai-teaching-platform/internal/logger"
	"ai-teaching-platform/internal/vectorstore"
)

// NoContextSentinel is returned as the rendered context when no stored
// content clears the relevance threshold. Downstream prompt selection keys
// on it.
const NoContextSentinel = "No highly relevant context found. The AI will provide general educational knowledge."

// RetrievalResult is the outcome of one retrieval pass.
type RetrievalResult struct {
	Context   string
	BestScore float64
	HitCount  int
	Sources   []string
}

// UsedFallback reports whether retrieval found nothing relevant and the
// answer will come from general knowledge.
func (r RetrievalResult) UsedFallback() bool {
	return r.Context == NoContextSentinel
}

// RetrievalService embeds a question and pulls the most relevant stored
// content from the vector index.
type RetrievalService struct {
	embedder  Embedder
	index     VectorIndex
	threshold float64
	limit     int
}

func NewRetrievalService(embedder Embedder, index VectorIndex, threshold float64, limit int) *RetrievalService {
	if limit <= 0 {
		limit = 5
	}
	return &RetrievalService{embedder: embedder, index: index, threshold: threshold, limit: limit}
}

// Retrieve runs a similarity search for the question, optionally scoped to a
// single document. Hits at or below the threshold are skipped. When nothing
// survives, Context carries the sentinel text and HitCount is zero.
func (rs *RetrievalService) Retrieve(ctx context.Context, question, documentID string) RetrievalResult {
	vector := rs.embedder.Embed(ctx, question)

	var filter *vectorstore.Filter
	if documentID != "" {
		filter = &vectorstore.Filter{Key: "document_id", Match: documentID}
	}

	hits, err := rs.index.Search(ctx, vector, rs.limit, filter, rs.threshold)
	if err != nil {
		logger.Error("vector search failed", "error", err)
		return RetrievalResult{Context: NoContextSentinel}
	}

	return rs.render(hits)
}

func (rs *RetrievalService) render(hits []vectorstore.Hit) RetrievalResult {
	var parts []string
	var sources []string
	var bestScore float64

	if len(hits) > 0 {
		bestScore = hits[0].Score
	}

	for _, hit := range hits {
		if hit.Payload.Content == "" || hit.Score <= rs.threshold {
			continue
		}
		parts = append(parts, fmt.Sprintf("[%s - %s] %s: %s (Source: %s, Relevance: %.2f)",
			hit.Payload.Subject, hit.Payload.Difficulty, hit.Payload.Title,
			hit.Payload.Content, hit.Payload.Source, hit.Score))
		if hit.Payload.Title != "" {
			sources = append(sources, fmt.Sprintf("%s: %s", hit.Payload.Subject, hit.Payload.Title))
		}
	}

	if len(parts) == 0 {
		return RetrievalResult{Context: NoContextSentinel, BestScore: bestScore, Sources: sources}
	}

	return RetrievalResult{
		Context:   strings.Join(parts, "\n\n"),
		BestScore: bestScore,
		HitCount:  len(parts),
		Sources:   sources,
	}
}
