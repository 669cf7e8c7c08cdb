package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Payload is the document attached to every indexed point.
type Payload struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	Subject    string `json:"subject"`
	Difficulty string `json:"difficulty"`
	Source     string `json:"source"`
	DocumentID string `json:"document_id,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	ChunkIndex int    `json:"chunk_index,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type Point struct {
	ID      uint64
	Vector  []float32
	Payload Payload
}

type Hit struct {
	ID      uint64
	Score   float64
	Payload Payload
}

// Filter is an equality filter on a single payload key.
type Filter struct {
	Key   string
	Match string
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
	BatchSize  int
	BatchDelay time.Duration
	Timeout    time.Duration
}

// Client is a minimal REST client to Qdrant. It assumes cosine distance and
// creates the collection if missing.
type Client struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	batchSize  int
	batchDelay time.Duration
	client     *http.Client
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Client{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		batchSize:  batchSize,
		batchDelay: cfg.BatchDelay,
		client:     &http.Client{Timeout: timeout},
	}
}

// EnsureCollection creates the collection if it does not exist. Qdrant
// returns 200 for an existing collection with the same schema.
func (c *Client) EnsureCollection(ctx context.Context) error {
	if c.dimension <= 0 {
		return errors.New("invalid dimension")
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     c.dimension,
			"distance": "Cosine",
		},
	}
	return c.putJSON(ctx, fmt.Sprintf("%s/collections/%s", c.url, c.collection), body)
}

// Upsert writes points in batches with a fixed pause between batches so bulk
// ingestion does not hammer the index. A batch failure aborts the remainder.
func (c *Client) Upsert(ctx context.Context, points []Point) error {
	for start := 0; start < len(points); start += c.batchSize {
		end := start + c.batchSize
		if end > len(points) {
			end = len(points)
		}

		batch := make([]map[string]any, 0, end-start)
		for _, p := range points[start:end] {
			batch = append(batch, map[string]any{
				"id":      p.ID,
				"vector":  p.Vector,
				"payload": p.Payload,
			})
		}

		body := map[string]any{"points": batch}
		url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.url, c.collection)
		if err := c.putJSON(ctx, url, body); err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", start, end, err)
		}

		if end < len(points) && c.batchDelay > 0 {
			select {
			case <-time.After(c.batchDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

// Search returns up to limit hits with score above threshold, sorted by
// score descending. A nil filter searches the whole collection.
func (c *Client) Search(ctx context.Context, vector []float32, limit int, filter *Filter, threshold float64) ([]Hit, error) {
	if limit <= 0 {
		limit = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if threshold > 0 {
		req["score_threshold"] = threshold
	}
	if filter != nil {
		req["filter"] = filterBody(filter)
	}

	var resp struct {
		Result []struct {
			ID      uint64  `json:"id"`
			Score   float64 `json:"score"`
			Payload Payload `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", c.url, c.collection)
	if err := c.postJSON(ctx, url, req, &resp); err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, Hit{ID: r.ID, Score: r.Score, Payload: r.Payload})
	}
	return hits, nil
}

// DeleteByFilter removes all points whose payload key equals value.
func (c *Client) DeleteByFilter(ctx context.Context, key, value string) error {
	body := map[string]any{
		"filter": filterBody(&Filter{Key: key, Match: value}),
	}
	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", c.url, c.collection)
	return c.postJSON(ctx, url, body, nil)
}

// ScrollPayloads pages through stored payloads without vectors, used for
// catalog views (subjects, per-document chunk listings).
func (c *Client) ScrollPayloads(ctx context.Context, limit int, filter *Filter) ([]Payload, error) {
	if limit <= 0 {
		limit = 100
	}
	req := map[string]any{
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if filter != nil {
		req["filter"] = filterBody(filter)
	}

	var resp struct {
		Result struct {
			Points []struct {
				Payload Payload `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/scroll", c.url, c.collection)
	if err := c.postJSON(ctx, url, req, &resp); err != nil {
		return nil, err
	}

	payloads := make([]Payload, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		payloads = append(payloads, p.Payload)
	}
	return payloads, nil
}

func filterBody(f *Filter) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{
				"key":   f.Key,
				"match": map[string]any{"value": f.Match},
			},
		},
	}
}

func (c *Client) putJSON(ctx context.Context, url string, body any) error {
	data, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant PUT %s failed: %s", url, resp.Status)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, url string, body any, out any) error {
	data, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
