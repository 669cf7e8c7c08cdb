package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ai-teaching-platform/internal/ai"
	"ai-teaching-platform/internal/config"
	"ai-teaching-platform/internal/logger"
	"ai-teaching-platform/internal/store"
	"ai-teaching-platform/internal/telemetry"
	"ai-teaching-platform/internal/vectorstore"
	"ai-teaching-platform/middleware"
	"ai-teaching-platform/routes"
	"ai-teaching-platform/services"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	if shutdown, err := telemetry.InitTracer("ai-teaching-platform"); err != nil {
		logger.Warn("tracing disabled", "error", err)
	} else {
		defer shutdown()
	}

	// SQLite ledger for documents, chunks, and chat history
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

	// Redis is optional: without it, rate limiting and the embedding cache
	// are skipped and dataset/document jobs can only run inline.
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("redis unavailable, continuing without cache and rate limiting", "error", err)
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
	{
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := index.EnsureCollection(ctx); err != nil {
			logger.Warn("could not ensure vector collection, continuing", "error", err)
		}
		cancel()
	}

	generator, err := ai.NewGenerativeClient(cfg.GeminiAPIKey, cfg.GenerativeModel)
	if err != nil {
		log.Fatal("Failed to initialize generative client:", err)
	}
	defer generator.Close()

	embedder := ai.NewEmbeddingService(cfg.GeminiAPIKey, cfg.EmbeddingModel,
		cfg.VectorDimensions, cfg.EmbeddingMaxChars, rdb, cfg.EmbeddingCacheTTL)

	// Services
	chunker := services.NewChunkingService(cfg.MaxChunkSize)
	retrieval := services.NewRetrievalService(embedder, index, cfg.ScoreThreshold, cfg.ChatSearchLimit)
	answers := services.NewAnswerService(generator)
	language := services.NewLanguageService(generator)
	multilingual := services.NewMultilingualService(language, retrieval, generator)
	chat := services.NewChatService(db)
	content := services.NewContentService(embedder, index, cfg.ChatSearchLimit)
	documents := services.NewDocumentService(chunker, embedder, index, db, generator, cfg.ChatSearchLimit, cfg.DocSearchLimit)

	queueClient := asynq.NewClient(config.AsynqRedisOpt(cfg))
	defer queueClient.Close()

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	authMiddleware := middleware.NewAuthMiddleware(cfg)
	roleMiddleware := middleware.NewRoleMiddleware()

	routes.SetupAskRoutes(router, routes.AskDeps{
		Config:       cfg,
		Retrieval:    retrieval,
		Answers:      answers,
		Content:      content,
		Multilingual: multilingual,
		Language:     language,
		Chat:         chat,
		Queue:        queueClient,
	}, authMiddleware, roleMiddleware, rdb)

	routes.SetupDocumentRoutes(router, routes.DocumentDeps{
		Config:    cfg,
		Documents: documents,
		Store:     db,
		Queue:     queueClient,
	}, authMiddleware, rdb)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("server exited")
}
