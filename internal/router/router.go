// Package router assembles the HTTP API.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"finsight/internal/config"
	_ "finsight/internal/docs" // swagger docs
	"finsight/internal/handlers"
	"finsight/internal/llm"
	"finsight/internal/middleware"
	"finsight/internal/services"
	"finsight/internal/task"
)

// Deps are the long-lived components the API is built from. Completer is nil
// when no completion API key is configured; insights and chat then answer
// offline. InsightCache may be nil.
type Deps struct {
	Config       *config.Config
	DB           *gorm.DB
	Completer    llm.Completer
	Pool         *task.Pool
	InsightCache *services.InsightCache
	Sessions     services.ChatSessionStorer
}

// New builds the gin engine with every route mounted under /api/v1.
func New(deps Deps) *gin.Engine {
	cfg := deps.Config
	sessions := deps.Sessions
	if sessions == nil {
		sessions = services.NewChatSessionStore(cfg.ChatSessionTTL)
	}

	// Services
	userService := services.NewUserService(deps.DB)
	transactionService := services.NewTransactionService(deps.DB)
	auditService := services.NewAuditService(deps.DB)
	insightService := services.NewInsightService(deps.Completer, deps.Pool, deps.InsightCache)
	chatService := services.NewChatService(deps.Completer, deps.Pool)

	// Handlers
	tokens := middleware.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpirationDur)
	authHandler := handlers.NewAuthHandler(userService, tokens)
	transactionHandler := handlers.NewTransactionHandler(transactionService, auditService)
	analyticsHandler := handlers.NewAnalyticsHandler(transactionService)
	insightHandler := handlers.NewInsightHandler(transactionService, insightService, auditService)
	chatHandler := handlers.NewChatHandler(chatService, sessions, transactionService, auditService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ai_configured": deps.Completer != nil})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(tokens))

	protected.GET("/profile", authHandler.GetProfile)
	protected.GET("/reference", transactionHandler.GetReference)

	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.ListTransactions)
	transactions.POST("/import", transactionHandler.ImportTransactions)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	analytics := protected.Group("/analytics")
	analytics.GET("/summary", analyticsHandler.GetSummary)
	analytics.GET("/trend", analyticsHandler.GetTrend)

	// Endpoints that may reach the completion API share one per-user budget.
	limited := middleware.RateLimit(middleware.NewUserRateLimiter(cfg.AIRateLimit, cfg.AIRateBurst))

	protected.POST("/insights", limited, insightHandler.GenerateInsight)

	chat := protected.Group("/chat/sessions")
	chat.POST("", chatHandler.CreateSession)
	chat.GET("/:id", chatHandler.GetSession)
	chat.DELETE("/:id", chatHandler.DeleteSession)
	chat.POST("/:id/messages", limited, chatHandler.SendMessage)
	chat.DELETE("/:id/messages", chatHandler.ClearMessages)
	chat.POST("/:id/cancel", chatHandler.CancelRequest)
	chat.GET("/:id/ws", limited, chatHandler.Stream)

	return router
}
