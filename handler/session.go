package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/techpathlabs/milestonedesk/engine"
	"github.com/techpathlabs/milestonedesk/middleware"
	"github.com/techpathlabs/milestonedesk/pkg/logger"
	"github.com/techpathlabs/milestonedesk/service"
)

// sessionEngine resolves the engine of the authenticated session. A
// session evicted while its token is still valid is started again empty.
// On failure the response is already written.
func sessionEngine(c *gin.Context, store *service.SessionStore) (*engine.Engine, bool) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session required"})
		return nil, false
	}

	if eng, ok := store.Get(sessionID); ok {
		return eng, true
	}

	eng, _, err := store.GetOrCreate(sessionID)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to restore session", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Session unavailable"})
		return nil, false
	}
	logger.Info(c.Request.Context(), "session restored")
	return eng, true
}

// opContext is the request context without its cancellation. Engine
// operations outlive a dropped client connection.
func opContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}
