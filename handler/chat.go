package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/techpathlabs/milestonedesk/engine"
	"github.com/techpathlabs/milestonedesk/service"
)

// MaxUploadBytes bounds a single uploaded file
const MaxUploadBytes = 32 << 20

type ChatHandler struct {
	store *service.SessionStore
}

func NewChatHandler(store *service.SessionStore) *ChatHandler {
	return &ChatHandler{store: store}
}

type MessageRequest struct {
	Message string `json:"message"`
}

// Messages returns the chat transcript, oldest first
func (h *ChatHandler) Messages(c *gin.Context) {
	eng, ok := sessionEngine(c, h.store)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages": eng.Messages(),
		"flags":    eng.Flags(),
	})
}

// SendMessage forwards a prompt to the assistant and returns its reply.
// Gateway failures come back as an assistant message with status 200.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	eng, ok := sessionEngine(c, h.store)
	if !ok {
		return
	}

	// Bind request
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	// Forward to the assistant
	reply, err := eng.SendMessage(opContext(c), req.Message)
	if errors.Is(err, engine.ErrEmptyMessage) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is empty"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reply":    reply,
		"messages": eng.Messages(),
	})
}

// Upload submits a multipart "file" for ingestion
func (h *ChatHandler) Upload(c *gin.Context) {
	eng, ok := sessionEngine(c, h.store)
	if !ok {
		return
	}

	// Get file from form
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	// Validate size before reading
	if header.Size > MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return
	}
	content, err := io.ReadAll(io.LimitReader(file, MaxUploadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	// Submit for ingestion
	outcome, err := eng.UploadFile(opContext(c), header.Filename, content)
	if errors.Is(err, engine.ErrEmptyFile) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File name is empty"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"filename": header.Filename,
		"outcome":  outcome,
		"messages": eng.Messages(),
	})
}
