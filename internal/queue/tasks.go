package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"ai-teaching-platform/internal/logger"
	"ai-teaching-platform/services"
)

const (
	TaskProcessDocument = "document:process"
	TaskLoadDataset     = "dataset:load"
)

type DocumentProcessPayload struct {
	DocumentID string `json:"document_id"`
	FilePath   string `json:"file_path"`
}

type DatasetLoadPayload struct {
	Source   string `json:"source"`
	FilePath string `json:"file_path,omitempty"`
}

// Task creators
func NewDocumentProcessTask(documentID, filePath string) (*asynq.Task, error) {
	payload, err := json.Marshal(DocumentProcessPayload{
		DocumentID: documentID,
		FilePath:   filePath,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskProcessDocument,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("critical"),
	), nil
}

func NewDatasetLoadTask(source, filePath string) (*asynq.Task, error) {
	payload, err := json.Marshal(DatasetLoadPayload{
		Source:   source,
		FilePath: filePath,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskLoadDataset,
		payload,
		asynq.MaxRetry(2),
		asynq.Timeout(30*time.Minute),
		asynq.Queue("low"),
	), nil
}

// Task handlers
type TaskProcessor struct {
	documents *services.DocumentService
	datasets  *services.DatasetService
}

func NewTaskProcessor(documents *services.DocumentService, datasets *services.DatasetService) *TaskProcessor {
	return &TaskProcessor{
		documents: documents,
		datasets:  datasets,
	}
}

func (p *TaskProcessor) ProcessDocument(ctx context.Context, t *asynq.Task) error {
	var payload DocumentProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("processing document", "document_id", payload.DocumentID, "file_path", payload.FilePath)

	data, err := os.ReadFile(payload.FilePath)
	if err != nil {
		return fmt.Errorf("read uploaded file: %w", err)
	}

	if _, err := p.documents.ProcessByID(ctx, payload.DocumentID, data); err != nil {
		return err
	}

	// The file is only needed for processing; failures here are harmless.
	if err := os.Remove(payload.FilePath); err != nil {
		logger.Warn("failed to remove processed file", "file_path", payload.FilePath, "error", err)
	}

	logger.Info("document processed", "document_id", payload.DocumentID)
	return nil
}

func (p *TaskProcessor) LoadDataset(ctx context.Context, t *asynq.Task) error {
	var payload DatasetLoadPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("loading dataset", "source", payload.Source)

	result, err := p.datasets.Load(ctx, payload.Source, payload.FilePath)
	if err != nil {
		return err
	}

	logger.Info("dataset loaded", "source", result.Source, "total_points", result.TotalPoints, "subjects", len(result.Subjects))
	return nil
}
