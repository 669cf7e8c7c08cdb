package routes

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"ai-teaching-platform/internal/config"
	"ai-teaching-platform/internal/logger"
	"ai-teaching-platform/internal/queue"
	"ai-teaching-platform/internal/store"
	"ai-teaching-platform/middleware"
	"ai-teaching-platform/models"
	"ai-teaching-platform/services"
	"ai-teaching-platform/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type DocumentDeps struct {
	Config    *config.Config
	Documents *services.DocumentService
	Store     *store.Store
	Queue     *asynq.Client
}

func SetupDocumentRoutes(router *gin.Engine, deps DocumentDeps, authMiddleware *middleware.AuthMiddleware, rdb *redis.Client) {
	docs := router.Group("/api/documents")
	docs.Use(middleware.RateLimitMiddleware(rdb, deps.Config))
	docs.Use(authMiddleware.RequireAuth())

	docs.POST("/upload", middleware.RequestSizeLimit(deps.Config.MaxFileSize), func(c *gin.Context) {
		userID := middleware.GetUserID(c)

		if err := c.Request.ParseMultipartForm(deps.Config.MaxFileSize); err != nil {
			utils.RespondWithBadRequest(c, "File size exceeds maximum limit", nil)
			return
		}

		file, header, err := c.Request.FormFile("file")
		if err != nil {
			utils.RespondWithBadRequest(c, "No file provided", nil)
			return
		}
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !extensionAllowed(ext, deps.Config.AllowedExtensions) {
			utils.RespondWithError(c, http.StatusBadRequest, "invalid_file_type",
				"Only PDF and TXT files are supported", gin.H{
					"extension": ext,
					"allowed":   deps.Config.AllowedExtensions,
				})
			return
		}

		if header.Size > deps.Config.MaxFileSize {
			utils.RespondWithBadRequest(c, "File size exceeds maximum limit", gin.H{
				"max_size": deps.Config.MaxFileSize,
				"received": header.Size,
			})
			return
		}

		subject := c.PostForm("subject")
		if subject == "" {
			subject = "General"
		}
		title := c.PostForm("title")
		if title == "" {
			title = strings.TrimSuffix(header.Filename, ext)
		}

		doc := &store.Document{
			Title:       title,
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			FileSize:    header.Size,
			Subject:     subject,
			UploadedBy:  userID,
		}
		if err := deps.Store.CreateDocument(doc); err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to read uploaded file", nil)
			return
		}

		// Small files are processed inline; big ones go through the worker.
		if header.Size <= deps.Config.SyncProcessingLimit {
			chunks, err := deps.Documents.Process(c.Request.Context(), doc, data)
			if err != nil {
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"error_code":  "processing_failed",
					"message":     "Document processing failed",
					"document_id": doc.ID,
					"details":     gin.H{"error": err.Error()},
				})
				return
			}

			c.JSON(http.StatusOK, gin.H{
				"message":           "Document uploaded and processed",
				"document_id":       doc.ID,
				"filename":          doc.FileName,
				"processing_status": store.StatusCompleted,
				"chunk_count":       chunks,
			})
			return
		}

		filePath, err := saveUpload(deps.Config.FileStorageDir, userID, doc.ID, ext, data)
		if err != nil {
			logger.Error("failed to save upload", "document_id", doc.ID, "error", err)
			utils.RespondWithInternalError(c, "Failed to store uploaded file", nil)
			return
		}

		task, err := queue.NewDocumentProcessTask(doc.ID, filePath)
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}
		info, err := deps.Queue.Enqueue(task)
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"message":           "Document uploaded, processing in background",
			"document_id":       doc.ID,
			"filename":          doc.FileName,
			"processing_status": store.StatusPending,
			"task_id":           info.ID,
		})
	})

	docs.GET("/list", func(c *gin.Context) {
		documents, err := deps.Documents.List(middleware.GetUserID(c))
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		var totalSize int64
		for _, d := range documents {
			totalSize += d.FileSize
		}

		c.JSON(http.StatusOK, gin.H{
			"documents":   documents,
			"total_count": len(documents),
			"total_size":  totalSize,
		})
	})

	docs.GET("/:documentId", func(c *gin.Context) {
		doc, err := deps.Documents.Get(middleware.GetUserID(c), c.Param("documentId"))
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, doc)
	})

	docs.POST("/ask/:documentId", func(c *gin.Context) {
		var req models.DocumentQuestionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		answer, err := deps.Documents.Ask(c.Request.Context(), middleware.GetUserID(c), c.Param("documentId"), req.Question)
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, answer)
	})

	docs.DELETE("/:documentId", func(c *gin.Context) {
		documentID := c.Param("documentId")
		if err := deps.Documents.Delete(c.Request.Context(), middleware.GetUserID(c), documentID); err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":     "Document deleted",
			"document_id": documentID,
		})
	})
}

func extensionAllowed(ext string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(a), ext) {
			return true
		}
	}
	return false
}

func saveUpload(baseDir, userID, docID, ext string, data []byte) (string, error) {
	dir := filepath.Join(baseDir, "documents", userID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s%s", docID, ext))
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}
