package services

import (
	"context"
	"errors"

	"ai-teaching-platform/internal/vectorstore"
)

type fakeEmbedder struct {
	dim   int
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) []float32 {
	f.calls++
	dim := f.dim
	if dim == 0 {
		dim = 8
	}
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = 0.5
	}
	return vec
}

type fakeIndex struct {
	hits       []vectorstore.Hit
	searchErr  error
	upserts    [][]vectorstore.Point
	payloads   []vectorstore.Payload
	deleted    []string
	lastFilter *vectorstore.Filter
	lastLimit  int
}

func (f *fakeIndex) EnsureCollection(ctx context.Context) error { return nil }

func (f *fakeIndex) Upsert(ctx context.Context, points []vectorstore.Point) error {
	f.upserts = append(f.upserts, points)
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, vector []float32, limit int, filter *vectorstore.Filter, threshold float64) ([]vectorstore.Hit, error) {
	f.lastFilter = filter
	f.lastLimit = limit
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.hits, nil
}

func (f *fakeIndex) DeleteByFilter(ctx context.Context, key, value string) error {
	f.deleted = append(f.deleted, key+"="+value)
	return nil
}

func (f *fakeIndex) ScrollPayloads(ctx context.Context, limit int, filter *vectorstore.Filter) ([]vectorstore.Payload, error) {
	return f.payloads, nil
}

// fakeGenerator replies with a fixed string, or per-prompt via fn.
type fakeGenerator struct {
	reply   string
	err     error
	fn      func(systemPrompt, userMessage string) (string, error)
	systems []string
	users   []string
}

func (f *fakeGenerator) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	return f.CompleteOpts(ctx, systemPrompt, userMessage, 0.7, 2048)
}

func (f *fakeGenerator) CompleteOpts(ctx context.Context, systemPrompt, userMessage string, temperature float32, maxTokens int32) (string, error) {
	f.systems = append(f.systems, systemPrompt)
	f.users = append(f.users, userMessage)
	if f.fn != nil {
		return f.fn(systemPrompt, userMessage)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

var errProviderDown = errors.New("provider down")
