package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		URL:        srv.URL,
		APIKey:     "secret",
		Collection: "learning_content",
		Dimension:  8,
		BatchSize:  50,
	})
}

func makePoints(n int) []Point {
	points := make([]Point, n)
	for i := range points {
		points[i] = Point{ID: uint64(i), Vector: []float32{1, 0}, Payload: Payload{Title: "t"}}
	}
	return points
}

func TestUpsertBatches(t *testing.T) {
	var calls int
	var batchSizes []int

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Query().Get("wait") != "true" {
			t.Error("missing wait=true")
		}
		if r.Header.Get("api-key") != "secret" {
			t.Error("missing api-key header")
		}

		var body struct {
			Points []json.RawMessage `json:"points"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		calls++
		batchSizes = append(batchSizes, len(body.Points))
		w.Write([]byte(`{"status":"ok"}`))
	})

	if err := client.Upsert(context.Background(), makePoints(120)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if batchSizes[0] != 50 || batchSizes[1] != 50 || batchSizes[2] != 20 {
		t.Errorf("batch sizes = %v", batchSizes)
	}
}

func TestUpsertAbortsOnFailure(t *testing.T) {
	var calls int
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	})

	err := client.Upsert(context.Background(), makePoints(120))
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Errorf("calls = %d, batch failure should abort the remainder", calls)
	}
}

func TestSearchRequestShape(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/learning_content/points/search" {
			t.Errorf("path = %s", r.URL.Path)
		}

		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["limit"].(float64) != 5 {
			t.Errorf("limit = %v", body["limit"])
		}
		if body["score_threshold"].(float64) != 0.2 {
			t.Errorf("score_threshold = %v", body["score_threshold"])
		}
		if body["with_payload"] != true {
			t.Error("with_payload missing")
		}
		filter, ok := body["filter"].(map[string]any)
		if !ok {
			t.Fatal("filter missing")
		}
		must := filter["must"].([]any)[0].(map[string]any)
		if must["key"] != "document_id" {
			t.Errorf("filter key = %v", must["key"])
		}

		w.Write([]byte(`{"result":[
			{"id":7,"score":0.91,"payload":{"title":"Photosynthesis","subject":"Biology"}},
			{"id":8,"score":0.42,"payload":{"title":"Cells","subject":"Biology"}}
		]}`))
	})

	hits, err := client.Search(context.Background(), []float32{1, 0}, 5,
		&Filter{Key: "document_id", Match: "doc-1"}, 0.2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 || hits[0].ID != 7 || hits[0].Score != 0.91 {
		t.Errorf("hits = %+v", hits)
	}
	if hits[0].Payload.Title != "Photosynthesis" {
		t.Errorf("payload = %+v", hits[0].Payload)
	}
}

func TestSearchOmitsZeroThreshold(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["score_threshold"]; ok {
			t.Error("zero threshold should be omitted")
		}
		if _, ok := body["filter"]; ok {
			t.Error("nil filter should be omitted")
		}
		w.Write([]byte(`{"result":[]}`))
	})

	if _, err := client.Search(context.Background(), []float32{1}, 3, nil, 0); err != nil {
		t.Fatalf("search: %v", err)
	}
}

func TestDeleteByFilter(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/learning_content/points/delete" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		must := body["filter"].(map[string]any)["must"].([]any)[0].(map[string]any)
		if must["match"].(map[string]any)["value"] != "doc-9" {
			t.Errorf("match = %v", must["match"])
		}
		w.Write([]byte(`{"status":"ok"}`))
	})

	if err := client.DeleteByFilter(context.Background(), "document_id", "doc-9"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestScrollPayloads(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["with_vector"] != false {
			t.Error("with_vector should be false")
		}
		w.Write([]byte(`{"result":{"points":[
			{"payload":{"subject":"Biology"}},
			{"payload":{"subject":"Physics"}}
		]}}`))
	})

	payloads, err := client.ScrollPayloads(context.Background(), 1000, nil)
	if err != nil {
		t.Fatalf("scroll: %v", err)
	}
	if len(payloads) != 2 || payloads[1].Subject != "Physics" {
		t.Errorf("payloads = %+v", payloads)
	}
}

func TestEnsureCollectionRejectsBadDimension(t *testing.T) {
	client := New(Config{URL: "http://localhost:1", Collection: "c"})
	if err := client.EnsureCollection(context.Background()); err == nil {
		t.Fatal("expected dimension error")
	}
}
