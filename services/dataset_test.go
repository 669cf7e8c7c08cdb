package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadUnknownSource(t *testing.T) {
	svc := NewDatasetService(&fakeEmbedder{}, &fakeIndex{}, &fakeGenerator{}, 0, 0)

	if _, err := svc.Load(context.Background(), "bogus", ""); err == nil {
		t.Fatal("expected error for unknown source")
	}
}

func TestLoadJSONDataset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dataset.json")
	payload := `{"subjects":[{"name":"Biology","topics":[
		{"title":"Photosynthesis","content":"Plants convert light.","difficulty":"Beginner","keywords":["plants"]},
		{"title":"Mitosis","content":"Cell division.","difficulty":"Intermediate","keywords":["cells"]}
	]},{"name":"Physics","topics":[
		{"title":"Gravity","content":"Masses attract.","difficulty":"Beginner","keywords":["force"]}
	]}]}`
	if err := os.WriteFile(path, []byte(payload), 0600); err != nil {
		t.Fatal(err)
	}

	index := &fakeIndex{}
	svc := NewDatasetService(&fakeEmbedder{}, index, &fakeGenerator{}, 0, 0)

	result, err := svc.Load(context.Background(), "structured-file", path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if result.TotalPoints != 3 {
		t.Errorf("TotalPoints = %d, want 3", result.TotalPoints)
	}
	if len(result.Subjects) != 2 {
		t.Errorf("Subjects = %v", result.Subjects)
	}

	points := index.upserts[0]
	if points[0].ID != fileIDOffset {
		t.Errorf("first id = %d, want %d", points[0].ID, fileIDOffset)
	}
	if points[0].Payload.Source != "JSON Dataset" {
		t.Errorf("source = %q", points[0].Payload.Source)
	}
}

func TestLoadStructuredFileRejectsUnknownExtension(t *testing.T) {
	svc := NewDatasetService(&fakeEmbedder{}, &fakeIndex{}, &fakeGenerator{}, 0, 0)

	if _, err := svc.Load(context.Background(), "structured-file", "dataset.csv"); err == nil {
		t.Fatal("expected error for unsupported file type")
	}
}

func TestLoadGeneratedContent(t *testing.T) {
	failEvery := 0
	gen := &fakeGenerator{fn: func(system, user string) (string, error) {
		failEvery++
		if failEvery%2 == 0 {
			return "", errProviderDown
		}
		return "Generated educational content.", nil
	}}

	index := &fakeIndex{}
	svc := NewDatasetService(&fakeEmbedder{}, index, gen, 0, 0)

	result, err := svc.Load(context.Background(), "model-generated", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	total := 0
	for _, group := range generatedCurriculum() {
		total += len(group.topics)
	}
	want := (total + 1) / 2
	if result.TotalPoints != want {
		t.Errorf("TotalPoints = %d, want %d (failures skipped)", result.TotalPoints, want)
	}

	for _, p := range index.upserts[0] {
		if p.Payload.Source != "AI Generated" {
			t.Errorf("source = %q", p.Payload.Source)
		}
		if p.ID < generatedIDOffset {
			t.Errorf("id %d below offset", p.ID)
		}
	}
}

func TestGeneratedDifficulty(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"Photosynthesis", "Beginner"},
		{"Quantum Physics", "Advanced"},
		{"Machine Learning", "Advanced"},
		{"Medieval Period", "Intermediate"},
	}
	for _, tt := range tests {
		if got := generatedDifficulty(tt.topic); got != tt.want {
			t.Errorf("generatedDifficulty(%q) = %q, want %q", tt.topic, got, tt.want)
		}
	}
}

func TestLoadEncyclopedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"extract":"A summary of the requested topic.\nWith a newline."}`))
	}))
	defer srv.Close()

	index := &fakeIndex{}
	svc := NewDatasetService(&fakeEmbedder{}, index, &fakeGenerator{}, 0, 0)
	svc.SetEncyclopediaURL(srv.URL)

	result, err := svc.Load(context.Background(), "encyclopedia", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if result.TotalPoints != len(encyclopediaTopics()) {
		t.Errorf("TotalPoints = %d, want %d", result.TotalPoints, len(encyclopediaTopics()))
	}

	first := index.upserts[0][0]
	if first.ID != encyclopediaIDOffset {
		t.Errorf("first id = %d", first.ID)
	}
	if first.Payload.Source != "Wikipedia" {
		t.Errorf("source = %q", first.Payload.Source)
	}
	if first.Payload.Content != "A summary of the requested topic. With a newline." {
		t.Errorf("content = %q (newlines should become spaces)", first.Payload.Content)
	}
}

func TestLoadComprehensiveToleratesEncyclopediaFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	index := &fakeIndex{}
	svc := NewDatasetService(&fakeEmbedder{}, index, &fakeGenerator{}, 0, 0)
	svc.SetEncyclopediaURL(srv.URL)

	result, err := svc.Load(context.Background(), "comprehensive", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// Every encyclopedia fetch fails, leaving only the built-in corpus.
	if result.TotalPoints == 0 {
		t.Fatal("built-in corpus missing")
	}
	for _, p := range index.upserts[0] {
		if p.Payload.Source != "Comprehensive Built-in" {
			t.Errorf("unexpected source %q", p.Payload.Source)
		}
	}
}
