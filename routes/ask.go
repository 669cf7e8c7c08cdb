package routes

import (
	"net/http"
	"time"

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

type AskDeps struct {
	Config       *config.Config
	Retrieval    *services.RetrievalService
	Answers      *services.AnswerService
	Content      *services.ContentService
	Multilingual *services.MultilingualService
	Language     *services.LanguageService
	Chat         *services.ChatService
	Queue        *asynq.Client
}

func SetupAskRoutes(router *gin.Engine, deps AskDeps, authMiddleware *middleware.AuthMiddleware, roleMiddleware *middleware.RoleMiddleware, rdb *redis.Client) {
	ask := router.Group("/api/ask")
	ask.Use(middleware.RateLimitMiddleware(rdb, deps.Config))
	ask.Use(authMiddleware.RequireAuth())

	// Main question endpoint: retrieve context, generate an answer, and
	// record the exchange in the caller's active session.
	ask.POST("", func(c *gin.Context) {
		var req models.QuestionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		userID := middleware.GetUserID(c)
		session, err := deps.Chat.GetOrCreateSession(userID)
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		result := deps.Retrieval.Retrieve(c.Request.Context(), req.Question, "")
		answer := deps.Answers.Answer(c.Request.Context(), req.Question, result.Context)

		score := result.BestScore
		msg := &store.ChatMessage{
			SessionID:        session.ID,
			Question:         req.Question,
			Answer:           answer,
			QuestionLanguage: "en",
			AnswerLanguage:   "en",
			UsedRAG:          !result.UsedFallback(),
			SearchScore:      &score,
		}
		saveErr := deps.Chat.SaveMessage(msg)
		if saveErr != nil {
			logger.Error("failed to save chat message", "session_id", session.ID, "error", saveErr)
		}

		c.JSON(http.StatusOK, models.AskResponse{
			Question:    req.Question,
			Answer:      answer,
			ContextUsed: result.Context,
			SessionID:   session.ID,
			SearchMetadata: models.SearchMetadata{
				EmbeddingDimensions: deps.Config.VectorDimensions,
				SearchResultsFound:  result.HitCount,
				ContextType:         contextType(result),
				SearchTimestamp:     time.Now().UTC(),
				SavedToDatabase:     saveErr == nil,
			},
		})
	})

	// Raw semantic search over the indexed corpus.
	ask.POST("/search", func(c *gin.Context) {
		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		results, err := deps.Content.Search(c.Request.Context(), req.Query, req.Limit)
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SearchResponse{
			Query:      req.Query,
			Results:    results,
			TotalFound: len(results),
		})
	})

	ask.POST("/content", func(c *gin.Context) {
		var req models.ContentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		id, err := deps.Content.IndexContent(c.Request.Context(), req)
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Content indexed successfully",
			"id":      id,
			"title":   req.Title,
		})
	})

	ask.POST("/bulk-upload", roleMiddleware.AdminGuard(), func(c *gin.Context) {
		var items []models.ContentRequest
		if err := c.ShouldBindJSON(&items); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		if len(items) == 0 {
			utils.RespondWithBadRequest(c, "No content items provided", nil)
			return
		}

		count, subjects, err := deps.Content.BulkIndex(c.Request.Context(), items)
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":        "Bulk upload completed",
			"indexed_count":  count,
			"subjects_found": subjects,
		})
	})

	ask.POST("/setup-collection", roleMiddleware.AdminGuard(), func(c *gin.Context) {
		count, err := deps.Content.SetupCollection(c.Request.Context())
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":       "Collection created with sample content",
			"sample_points": count,
		})
	})

	// Dataset loads can take many minutes; enqueue and return 202.
	ask.POST("/load-dataset", roleMiddleware.AdminGuard(), func(c *gin.Context) {
		var req models.DatasetLoadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		task, err := queue.NewDatasetLoadTask(req.Source, req.FilePath)
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
			"message": "Dataset load queued",
			"source":  req.Source,
			"task_id": info.ID,
		})
	})

	ask.GET("/subjects", func(c *gin.Context) {
		subjects, err := deps.Content.Subjects(c.Request.Context())
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"subjects": subjects,
			"total":    len(subjects),
		})
	})

	ask.POST("/multilingual", func(c *gin.Context) {
		var req models.MultilingualQuestionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		resp := deps.Multilingual.Ask(c.Request.Context(), req)
		c.JSON(http.StatusOK, resp)
	})

	ask.GET("/languages", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"supported_languages": deps.Language.Supported(),
		})
	})

	ask.POST("/detect-language", func(c *gin.Context) {
		var req models.LanguageDetectionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		detection := deps.Language.Detect(c.Request.Context(), req.Text)
		c.JSON(http.StatusOK, detection)
	})

	ask.GET("/sessions", func(c *gin.Context) {
		sessions, err := deps.Chat.ListSessions(middleware.GetUserID(c))
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"sessions": sessions,
			"total":    len(sessions),
		})
	})

	ask.GET("/sessions/:id/messages", func(c *gin.Context) {
		messages, err := deps.Chat.ListMessages(middleware.GetUserID(c), c.Param("id"))
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"messages": messages,
			"total":    len(messages),
		})
	})
}

func contextType(result services.RetrievalResult) string {
	if result.UsedFallback() {
		return "General Knowledge"
	}
	return "Specific Context"
}
