package services

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"path/filepath"
	"strings"
	"time"

	"ai-teaching-platform/internal/logger"
	"ai-teaching-platform/internal/store"
	"ai-teaching-platform/internal/vectorstore"
	"ai-teaching-platform/models"
	"ai-teaching-platform/utils"

	"github.com/ledongthuc/pdf"
)

// DocumentService handles user-uploaded documents: text extraction,
// chunking, dual-write indexing (vector index + relational ledger), scoped
// question answering, and deletion.
type DocumentService struct {
	chunker      *ChunkingService
	embedder     Embedder
	index        VectorIndex
	store        *store.Store
	generator    Generator
	searchLimit  int
	contextTaken int
}

func NewDocumentService(chunker *ChunkingService, embedder Embedder, index VectorIndex, st *store.Store, generator Generator, searchLimit, contextTaken int) *DocumentService {
	if searchLimit <= 0 {
		searchLimit = 5
	}
	if contextTaken <= 0 {
		contextTaken = 3
	}
	return &DocumentService{
		chunker:      chunker,
		embedder:     embedder,
		index:        index,
		store:        st,
		generator:    generator,
		searchLimit:  searchLimit,
		contextTaken: contextTaken,
	}
}

// ExtractText pulls plain text out of an uploaded file by extension.
func (ds *DocumentService) ExtractText(fileName string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".txt":
		return string(data), nil
	case ".pdf":
		return extractPDFText(data)
	default:
		return "", fmt.Errorf("unsupported file type: %s", filepath.Ext(fileName))
	}
}

// Process extracts, chunks, embeds, and indexes a document, writing each
// chunk to both the vector index and the relational ledger. A failing chunk
// is logged and skipped; the document fails only when extraction or the
// final upsert fails. The processing status is recorded either way.
func (ds *DocumentService) Process(ctx context.Context, doc *store.Document, data []byte) (int, error) {
	content, err := ds.ExtractText(doc.FileName, data)
	if err != nil {
		_ = ds.store.MarkDocumentFailed(doc.ID, err.Error())
		return 0, err
	}

	chunks := ds.chunker.Split(content)
	logger.Info("processing document", "document_id", doc.ID, "chunks", len(chunks))

	points := make([]vectorstore.Point, 0, len(chunks))
	successful := 0

	for i, chunk := range chunks {
		vector := ds.embedder.Embed(ctx, chunk)
		pointID := documentPointID(doc.ID, i)

		points = append(points, vectorstore.Point{
			ID:     pointID,
			Vector: vector,
			Payload: vectorstore.Payload{
				Title:      doc.FileName,
				Content:    chunk,
				Subject:    doc.Subject,
				Difficulty: "Intermediate",
				Source:     "User Upload",
				DocumentID: doc.ID,
				UserID:     doc.UploadedBy,
				ChunkIndex: i,
				CreatedAt:  time.Now().UTC().Format(payloadTimeLayout),
			},
		})

		// Offsets are approximate: chunking realigns sentence boundaries.
		dbChunk := &store.DocumentChunk{
			DocumentID:    doc.ID,
			ChunkIndex:    i,
			Content:       chunk,
			StartOffset:   i * ds.chunker.maxChunkSize,
			EndOffset:     i*ds.chunker.maxChunkSize + len(chunk),
			VectorPointID: pointID,
		}
		if err := ds.store.AddChunk(dbChunk); err != nil {
			logger.Error("failed to save chunk, skipping", "document_id", doc.ID, "chunk", i, "error", err)
			continue
		}
		successful++
	}

	if err := ds.index.Upsert(ctx, points); err != nil {
		_ = ds.store.MarkDocumentFailed(doc.ID, err.Error())
		return successful, err
	}

	if err := ds.store.MarkDocumentCompleted(doc.ID, successful); err != nil {
		return successful, err
	}
	return successful, nil
}

// ProcessByID loads the document record and runs Process. Used by the
// background worker, which only carries the document ID.
func (ds *DocumentService) ProcessByID(ctx context.Context, documentID string, data []byte) (int, error) {
	doc, err := ds.store.GetDocumentByID(documentID)
	if err != nil {
		return 0, err
	}
	if doc == nil {
		return 0, fmt.Errorf("document %s: %w", documentID, utils.ErrNotFound)
	}
	return ds.Process(ctx, doc, data)
}

// Ask answers a question using only the given document's chunks. The caller
// must own the document.
func (ds *DocumentService) Ask(ctx context.Context, userID, documentID, question string) (models.DocumentAnswer, error) {
	doc, err := ds.authorizedDocument(userID, documentID)
	if err != nil {
		return models.DocumentAnswer{}, err
	}

	vector := ds.embedder.Embed(ctx, question)
	filter := &vectorstore.Filter{Key: "document_id", Match: documentID}
	hits, err := ds.index.Search(ctx, vector, ds.searchLimit, filter, 0)
	if err != nil {
		return models.DocumentAnswer{}, err
	}

	if len(hits) == 0 {
		return models.DocumentAnswer{
			Answer:        "I couldn't find relevant information in this document to answer your question. Try rephrasing your question or ask something else about the document.",
			ContextUsed:   []string{},
			Confidence:    0.0,
			ChunksFound:   0,
			DocumentTitle: doc.Title,
		}, nil
	}

	var contexts []string
	var scoreSum float64
	for _, hit := range hits {
		if len(contexts) < ds.contextTaken {
			contexts = append(contexts, hit.Payload.Content)
		}
		scoreSum += hit.Score
	}
	avgConfidence := scoreSum / float64(len(hits))

	systemPrompt := fmt.Sprintf("You are an expert tutor helping students understand the document '%s'.\nUse the following context from the document to answer the question accurately and clearly.\n\nContext from document:\n%s\n\nAnswer the question based on this context. If the context doesn't contain enough information, say so.",
		doc.Title, strings.Join(contexts, "\n\n"))

	answer, err := ds.generator.Complete(ctx, systemPrompt, question)
	if err != nil || strings.TrimSpace(answer) == "" {
		logger.Error("document answer generation failed", "document_id", documentID, "error", err)
		answer = "Sorry, I encountered an error generating the answer."
	}

	previews := make([]string, len(contexts))
	for i, c := range contexts {
		if len(c) > 200 {
			c = c[:200] + "..."
		}
		previews[i] = c
	}

	return models.DocumentAnswer{
		Answer:        answer,
		ContextUsed:   previews,
		Confidence:    avgConfidence,
		ChunksFound:   len(hits),
		DocumentTitle: doc.Title,
	}, nil
}

// Delete removes the document's chunks from both stores. Vector deletion is
// filter-based on document_id.
func (ds *DocumentService) Delete(ctx context.Context, userID, documentID string) error {
	if _, err := ds.authorizedDocument(userID, documentID); err != nil {
		return err
	}

	if err := ds.index.DeleteByFilter(ctx, "document_id", documentID); err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}
	return ds.store.DeleteDocument(documentID)
}

// List returns the caller's documents, newest first.
func (ds *DocumentService) List(userID string) ([]store.Document, error) {
	return ds.store.ListDocumentsByOwner(userID)
}

// Get returns a single document after an ownership check.
func (ds *DocumentService) Get(userID, documentID string) (*store.Document, error) {
	return ds.authorizedDocument(userID, documentID)
}

func (ds *DocumentService) authorizedDocument(userID, documentID string) (*store.Document, error) {
	doc, err := ds.store.GetDocumentByID(documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document %s: %w", documentID, utils.ErrNotFound)
	}
	if doc.UploadedBy != userID {
		return nil, fmt.Errorf("document %s: %w", documentID, utils.ErrForbidden)
	}
	return doc, nil
}

// documentPointID derives a stable vector point id from the document id and
// chunk index.
func documentPointID(documentID string, chunkIndex int) uint64 {
	h := fnv.New32a()
	h.Write([]byte(documentID))
	return uint64(h.Sum32()) + uint64(chunkIndex)
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var textBuilder strings.Builder
	pages := reader.NumPage()

	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("failed to extract text from page", "page", i, "error", err)
			continue
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}

	extracted := strings.TrimSpace(textBuilder.String())
	if extracted == "" {
		return "", fmt.Errorf("no text extracted from PDF")
	}
	return extracted, nil
}
