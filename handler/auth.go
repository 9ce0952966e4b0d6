package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/techpathlabs/milestonedesk/config"
	"github.com/techpathlabs/milestonedesk/middleware"
	"github.com/techpathlabs/milestonedesk/pkg/logger"
	"github.com/techpathlabs/milestonedesk/service"
)

type AuthHandler struct {
	config *config.Config
	store  *service.SessionStore
}

func NewAuthHandler(cfg *config.Config, store *service.SessionStore) *AuthHandler {
	return &AuthHandler{config: cfg, store: store}
}

type PinRequest struct {
	PIN       string `json:"pin" binding:"required"`
	SessionID string `json:"session_id"`
}

type PinResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	SessionID string `json:"session_id"`
	Mode      string `json:"mode"`
	Created   bool   `json:"created"`
}

// PinLogin unlocks the dashboard and binds the caller to a session,
// resuming the given one or starting a new one.
func (h *AuthHandler) PinLogin(c *gin.Context) {
	// Bind request
	var req PinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	// Check PIN
	if subtle.ConstantTimeCompare([]byte(req.PIN), []byte(h.config.Auth.PIN)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid PIN"})
		return
	}

	// Session ids name storage paths, so only UUIDs are accepted
	if req.SessionID != "" {
		if _, err := uuid.Parse(req.SessionID); err != nil {
			logger.Warn(c.Request.Context(), "rejected session id", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session id"})
			return
		}
	}

	// Resume or start the session
	eng, created, err := h.store.GetOrCreate(req.SessionID)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to open session", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Session unavailable"})
		return
	}

	// Issue token
	token, expiresAt, err := middleware.GenerateToken(eng.SessionID(), &h.config.Auth)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	logger.Info(logger.WithSession(c.Request.Context(), eng.SessionID()), "dashboard unlocked", "created", created)
	c.JSON(http.StatusOK, PinResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format("2006-01-02T15:04:05Z07:00"),
		SessionID: eng.SessionID(),
		Mode:      eng.Mode(),
		Created:   created,
	})
}

// Session returns the caller's session and its activity flags
func (h *AuthHandler) Session(c *gin.Context) {
	eng, ok := sessionEngine(c, h.store)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": eng.SessionID(),
		"mode":       eng.Mode(),
		"flags":      eng.Flags(),
		"executions": eng.ExecutionCount(),
	})
}
