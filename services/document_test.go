package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ai-teaching-platform/internal/store"
	"ai-teaching-platform/internal/vectorstore"
	"ai-teaching-platform/utils"
)

func newDocumentFixture(t *testing.T, index *fakeIndex, gen *fakeGenerator) (*DocumentService, *store.Store) {
	t.Helper()
	st := newTestStore(t)
	chunker := NewChunkingService(100)
	svc := NewDocumentService(chunker, &fakeEmbedder{}, index, st, gen, 5, 3)
	return svc, st
}

func createDocument(t *testing.T, st *store.Store, owner, name string) *store.Document {
	t.Helper()
	doc := &store.Document{
		Title:       strings.TrimSuffix(name, ".txt"),
		FileName:    name,
		ContentType: "text/plain",
		FileSize:    128,
		Subject:     "Biology",
		UploadedBy:  owner,
	}
	if err := st.CreateDocument(doc); err != nil {
		t.Fatalf("create document: %v", err)
	}
	return doc
}

func TestProcessDualWrites(t *testing.T) {
	index := &fakeIndex{}
	svc, st := newDocumentFixture(t, index, &fakeGenerator{})
	doc := createDocument(t, st, "user-1", "notes.txt")

	text := "Photosynthesis converts light into energy. Cells are the basic units of life. Evolution explains species change."
	chunks, err := svc.Process(context.Background(), doc, []byte(text))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if chunks == 0 {
		t.Fatal("no chunks processed")
	}

	if len(index.upserts) != 1 || len(index.upserts[0]) != chunks {
		t.Errorf("indexed %d points, stored %d chunks", len(index.upserts[0]), chunks)
	}
	for i, p := range index.upserts[0] {
		if p.Payload.DocumentID != doc.ID || p.Payload.ChunkIndex != i {
			t.Errorf("point %d payload = %+v", i, p.Payload)
		}
	}

	stored, err := st.GetChunksByDocument(doc.ID)
	if err != nil {
		t.Fatalf("get chunks: %v", err)
	}
	if len(stored) != chunks {
		t.Errorf("ledger has %d chunks, want %d", len(stored), chunks)
	}

	updated, _ := st.GetDocumentByID(doc.ID)
	if updated.ProcessingStatus != store.StatusCompleted {
		t.Errorf("status = %q", updated.ProcessingStatus)
	}
	if updated.TotalChunks != chunks {
		t.Errorf("total_chunks = %d, want %d", updated.TotalChunks, chunks)
	}
}

func TestProcessUnsupportedTypeFailsDocument(t *testing.T) {
	svc, st := newDocumentFixture(t, &fakeIndex{}, &fakeGenerator{})
	doc := createDocument(t, st, "user-1", "notes.docx")

	if _, err := svc.Process(context.Background(), doc, []byte("x")); err == nil {
		t.Fatal("expected extraction error")
	}

	updated, _ := st.GetDocumentByID(doc.ID)
	if updated.ProcessingStatus != store.StatusFailed {
		t.Errorf("status = %q, want failed", updated.ProcessingStatus)
	}
	if updated.ProcessingError == nil {
		t.Error("processing_error not recorded")
	}
}

func TestAskEnforcesOwnership(t *testing.T) {
	svc, st := newDocumentFixture(t, &fakeIndex{}, &fakeGenerator{})
	doc := createDocument(t, st, "owner", "notes.txt")

	if _, err := svc.Ask(context.Background(), "intruder", doc.ID, "q"); !errors.Is(err, utils.ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
	if _, err := svc.Ask(context.Background(), "owner", "missing-doc", "q"); !errors.Is(err, utils.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAskNoHits(t *testing.T) {
	svc, st := newDocumentFixture(t, &fakeIndex{}, &fakeGenerator{})
	doc := createDocument(t, st, "owner", "notes.txt")

	answer, err := svc.Ask(context.Background(), "owner", doc.ID, "unrelated question")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if answer.ChunksFound != 0 || answer.Confidence != 0.0 {
		t.Errorf("answer = %+v", answer)
	}
	if !strings.Contains(answer.Answer, "couldn't find relevant information") {
		t.Errorf("answer text = %q", answer.Answer)
	}
}

func TestAskAveragesConfidence(t *testing.T) {
	index := &fakeIndex{hits: []vectorstore.Hit{
		{ID: 1, Score: 0.9, Payload: vectorstore.Payload{Content: strings.Repeat("a", 250)}},
		{ID: 2, Score: 0.7, Payload: vectorstore.Payload{Content: "short chunk"}},
		{ID: 3, Score: 0.5, Payload: vectorstore.Payload{Content: "another chunk"}},
		{ID: 4, Score: 0.3, Payload: vectorstore.Payload{Content: "fourth chunk"}},
	}}
	gen := &fakeGenerator{reply: "Based on the document, the answer is X."}
	svc, st := newDocumentFixture(t, index, gen)
	doc := createDocument(t, st, "owner", "notes.txt")

	answer, err := svc.Ask(context.Background(), "owner", doc.ID, "what is X")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if answer.ChunksFound != 4 {
		t.Errorf("ChunksFound = %d", answer.ChunksFound)
	}
	if want := (0.9 + 0.7 + 0.5 + 0.3) / 4; answer.Confidence != want {
		t.Errorf("Confidence = %v, want %v", answer.Confidence, want)
	}
	if len(answer.ContextUsed) != 3 {
		t.Errorf("ContextUsed has %d entries, want 3", len(answer.ContextUsed))
	}
	if !strings.HasSuffix(answer.ContextUsed[0], "...") || len(answer.ContextUsed[0]) != 203 {
		t.Errorf("long context not truncated: %d chars", len(answer.ContextUsed[0]))
	}
}

func TestAskGeneratorErrorDegrades(t *testing.T) {
	index := &fakeIndex{hits: []vectorstore.Hit{
		{ID: 1, Score: 0.9, Payload: vectorstore.Payload{Content: "chunk"}},
	}}
	svc, st := newDocumentFixture(t, index, &fakeGenerator{err: errProviderDown})
	doc := createDocument(t, st, "owner", "notes.txt")

	answer, err := svc.Ask(context.Background(), "owner", doc.ID, "q")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !strings.Contains(answer.Answer, "error generating the answer") {
		t.Errorf("answer = %q", answer.Answer)
	}
}

func TestDeleteRemovesBothStores(t *testing.T) {
	index := &fakeIndex{}
	svc, st := newDocumentFixture(t, index, &fakeGenerator{})
	doc := createDocument(t, st, "owner", "notes.txt")

	if err := svc.Delete(context.Background(), "owner", doc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(index.deleted) != 1 || index.deleted[0] != "document_id="+doc.ID {
		t.Errorf("vector deletes = %v", index.deleted)
	}
	if got, _ := st.GetDocumentByID(doc.ID); got != nil {
		t.Error("document still in ledger")
	}
}

func TestDocumentPointIDStable(t *testing.T) {
	a := documentPointID("doc-1", 0)
	b := documentPointID("doc-1", 0)
	c := documentPointID("doc-1", 1)
	if a != b {
		t.Error("point id not deterministic")
	}
	if c != a+1 {
		t.Errorf("chunk 1 id = %d, want %d", c, a+1)
	}
}
