package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ai-teaching-platform/internal/vectorstore"
	"ai-teaching-platform/models"
)

const payloadTimeLayout = "2006-01-02 15:04:05"

// ContentService manages manually authored knowledge-base entries and
// similarity search over the whole collection.
type ContentService struct {
	embedder    Embedder
	index       VectorIndex
	searchLimit int
}

func NewContentService(embedder Embedder, index VectorIndex, searchLimit int) *ContentService {
	if searchLimit <= 0 {
		searchLimit = 10
	}
	return &ContentService{embedder: embedder, index: index, searchLimit: searchLimit}
}

// IndexContent embeds "{title} {content}" and upserts a single point keyed
// by the current unix-milli timestamp.
func (cs *ContentService) IndexContent(ctx context.Context, req models.ContentRequest) (uint64, error) {
	vector := cs.embedder.Embed(ctx, fmt.Sprintf("%s %s", req.Title, req.Content))
	pointID := uint64(time.Now().UnixMilli())

	point := vectorstore.Point{
		ID:     pointID,
		Vector: vector,
		Payload: vectorstore.Payload{
			Title:      req.Title,
			Content:    req.Content,
			Subject:    req.Subject,
			Difficulty: req.Difficulty,
			Source:     "Manual",
			CreatedAt:  time.Now().UTC().Format(payloadTimeLayout),
		},
	}

	if err := cs.index.Upsert(ctx, []vectorstore.Point{point}); err != nil {
		return 0, err
	}
	return pointID, nil
}

// BulkIndex upserts many authored entries in one call. IDs are the current
// unix-milli timestamp plus the item's position in the batch.
func (cs *ContentService) BulkIndex(ctx context.Context, items []models.ContentRequest) (int, []string, error) {
	base := uint64(time.Now().UnixMilli())
	points := make([]vectorstore.Point, 0, len(items))
	subjectSet := map[string]struct{}{}

	for i, item := range items {
		vector := cs.embedder.Embed(ctx, fmt.Sprintf("%s %s", item.Title, item.Content))
		points = append(points, vectorstore.Point{
			ID:     base + uint64(i),
			Vector: vector,
			Payload: vectorstore.Payload{
				Title:      item.Title,
				Content:    item.Content,
				Subject:    item.Subject,
				Difficulty: item.Difficulty,
				Source:     "Bulk Upload",
				CreatedAt:  time.Now().UTC().Format(payloadTimeLayout),
			},
		})
		subjectSet[item.Subject] = struct{}{}
	}

	if err := cs.index.Upsert(ctx, points); err != nil {
		return 0, nil, err
	}
	return len(points), sortedKeys(subjectSet), nil
}

// Search runs an unfiltered, unthresholded similarity search and labels each
// hit with a coarse relevance bucket.
func (cs *ContentService) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		limit = cs.searchLimit
	}
	vector := cs.embedder.Embed(ctx, query)

	hits, err := cs.index.Search(ctx, vector, limit, nil, 0)
	if err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, models.SearchResult{
			ID:         hit.ID,
			Score:      hit.Score,
			Title:      hit.Payload.Title,
			Content:    hit.Payload.Content,
			Subject:    hit.Payload.Subject,
			Difficulty: hit.Payload.Difficulty,
			Source:     hit.Payload.Source,
			Relevance:  relevanceBucket(hit.Score),
		})
	}
	return results, nil
}

// Subjects scrolls stored payloads and counts entries per subject.
func (cs *ContentService) Subjects(ctx context.Context) (map[string]int, error) {
	payloads, err := cs.index.ScrollPayloads(ctx, 1000, nil)
	if err != nil {
		return nil, err
	}

	subjects := map[string]int{}
	for _, p := range payloads {
		name := p.Subject
		if name == "" {
			name = "Unknown"
		}
		subjects[name]++
	}
	return subjects, nil
}

// SetupCollection creates the collection and seeds it with a small built-in
// sample so a fresh deployment can answer something immediately.
func (cs *ContentService) SetupCollection(ctx context.Context) (int, error) {
	if err := cs.index.EnsureCollection(ctx); err != nil {
		return 0, err
	}

	samples := []struct {
		title, content, subject, difficulty string
	}{
		{"Machine Learning", "Machine learning is a subset of artificial intelligence that focuses on algorithms learning from data.", "Computer Science", "Intermediate"},
		{"Photosynthesis", "Photosynthesis is the process by which plants convert light energy into chemical energy using carbon dioxide and water.", "Biology", "Beginner"},
		{"Chemical Bonds", "Chemical bonds form when atoms share or transfer electrons to achieve stable electron configurations.", "Chemistry", "Intermediate"},
		{"Newton's Laws", "Newton's three laws of motion describe the relationship between forces acting on objects and their motion.", "Physics", "Intermediate"},
	}

	points := make([]vectorstore.Point, 0, len(samples))
	for i, sample := range samples {
		vector := cs.embedder.Embed(ctx, fmt.Sprintf("%s %s", sample.title, sample.content))
		points = append(points, vectorstore.Point{
			ID:     uint64(i + 1),
			Vector: vector,
			Payload: vectorstore.Payload{
				Title:      sample.title,
				Content:    sample.content,
				Subject:    sample.subject,
				Difficulty: sample.difficulty,
				Source:     "Basic Sample",
				CreatedAt:  time.Now().UTC().Format(payloadTimeLayout),
			},
		})
	}

	if err := cs.index.Upsert(ctx, points); err != nil {
		return 0, err
	}
	return len(points), nil
}

func relevanceBucket(score float64) string {
	switch {
	case score > 0.8:
		return "Very High"
	case score > 0.6:
		return "High"
	case score > 0.4:
		return "Medium"
	default:
		return "Low"
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
