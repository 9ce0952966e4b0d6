package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/techpathlabs/milestonedesk/config"
	"github.com/techpathlabs/milestonedesk/middleware"
	"github.com/techpathlabs/milestonedesk/service"
)

// NewRouter wires the middleware chain and every API route.
func NewRouter(cfg *config.Config, store *service.SessionStore) *gin.Engine {
	authHandler := NewAuthHandler(cfg, store)
	dashboardHandler := NewDashboardHandler(store)
	chatHandler := NewChatHandler(store)
	exportHandler := NewExportHandler(store)

	router := gin.New()
	router.MaxMultipartMemory = MaxUploadBytes

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS())
	router.Use(middleware.NoCache())
	if rpm := cfg.RateLimit.RequestsPerMinute; rpm > 0 {
		router.Use(middleware.RateLimit(rpm, time.Minute))
	}

	router.GET("/health", func(c *gin.Context) {
		resp := gin.H{
			"status":    "ok",
			"sessions":  store.Count(),
			"mode":      cfg.Sync.Mode,
			"timestamp": time.Now().Format(time.RFC3339),
		}
		if n, ok := store.ArtifactCount(); ok {
			resp["artifacts"] = n
		}
		c.JSON(http.StatusOK, resp)
	})

	api := router.Group("/api")
	{
		api.POST("/auth/pin", authHandler.PinLogin)
	}

	protected := api.Group("/")
	protected.Use(middleware.SessionAuth(&cfg.Auth))
	{
		protected.GET("/session", authHandler.Session)
		protected.GET("/dashboard", dashboardHandler.Dashboard)
		protected.GET("/milestones", dashboardHandler.ListMilestones)
		protected.POST("/milestones/refresh", dashboardHandler.Refresh)
		protected.GET("/milestones/:id", dashboardHandler.GetMilestone)
		protected.DELETE("/milestones/:id", dashboardHandler.DeleteMilestone)
		protected.GET("/operations/:id", dashboardHandler.Operation)
		protected.GET("/executions", dashboardHandler.Executions)
		protected.GET("/triggers", dashboardHandler.Triggers)
		protected.GET("/messages", chatHandler.Messages)
		protected.POST("/messages", chatHandler.SendMessage)
		protected.POST("/uploads", chatHandler.Upload)
		protected.GET("/exports", exportHandler.List)
		protected.POST("/exports", exportHandler.Create)
		protected.GET("/exports/:id/download", exportHandler.Download)
	}

	return router
}
