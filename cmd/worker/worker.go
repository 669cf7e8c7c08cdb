package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"ai-teaching-platform/internal/ai"
	"ai-teaching-platform/internal/config"
	"ai-teaching-platform/internal/logger"
	"ai-teaching-platform/internal/queue"
	"ai-teaching-platform/internal/store"
	"ai-teaching-platform/internal/vectorstore"
	"ai-teaching-platform/services"

	"github.com/hibiken/asynq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal("Failed to create data directory:", err)
		}
	}
	db, err := store.New(cfg.SQLitePath)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer db.Close()

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("redis unavailable, embedding cache disabled", "error", err)
		rdb = nil
	}

	index := vectorstore.New(vectorstore.Config{
		URL:        cfg.QdrantURL,
		APIKey:     cfg.QdrantAPIKey,
		Collection: cfg.QdrantCollection,
		Dimension:  cfg.VectorDimensions,
		BatchSize:  cfg.UpsertBatchSize,
		BatchDelay: cfg.UpsertBatchDelay,
	})

	generator, err := ai.NewGenerativeClient(cfg.GeminiAPIKey, cfg.GenerativeModel)
	if err != nil {
		log.Fatal("Failed to initialize generative client:", err)
	}
	defer generator.Close()

	embedder := ai.NewEmbeddingService(cfg.GeminiAPIKey, cfg.EmbeddingModel,
		cfg.VectorDimensions, cfg.EmbeddingMaxChars, rdb, cfg.EmbeddingCacheTTL)

	chunker := services.NewChunkingService(cfg.MaxChunkSize)
	documents := services.NewDocumentService(chunker, embedder, index, db, generator, cfg.ChatSearchLimit, cfg.DocSearchLimit)
	datasets := services.NewDatasetService(embedder, index, generator, cfg.EncyclopediaDelay, cfg.GeneratedDelay)

	server := asynq.NewServer(
		config.AsynqRedisOpt(cfg),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(documents, datasets)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskProcessDocument, processor.ProcessDocument)
	mux.HandleFunc(queue.TaskLoadDataset, processor.LoadDataset)

	logger.Info("starting worker", "queues", "critical(6), default(3), low(1)")

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
