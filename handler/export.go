package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/techpathlabs/milestonedesk/engine"
	"github.com/techpathlabs/milestonedesk/export"
	"github.com/techpathlabs/milestonedesk/pkg/logger"
	"github.com/techpathlabs/milestonedesk/service"
)

type ExportHandler struct {
	store *service.SessionStore
}

func NewExportHandler(store *service.SessionStore) *ExportHandler {
	return &ExportHandler{store: store}
}

// List returns the session's exports, newest first
func (h *ExportHandler) List(c *gin.Context) {
	eng, ok := sessionEngine(c, h.store)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"exports": eng.Exports()})
}

// Create snapshots the current milestones into a CSV export
func (h *ExportHandler) Create(c *gin.Context) {
	eng, ok := sessionEngine(c, h.store)
	if !ok {
		return
	}

	file, err := eng.CreateExport(opContext(c))
	if err != nil {
		logger.Error(c.Request.Context(), "export failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create export"})
		return
	}

	c.JSON(http.StatusCreated, file)
}

// Download redirects to a link signed for this request when the artifact
// store serves direct links and streams the CSV otherwise.
func (h *ExportHandler) Download(c *gin.Context) {
	eng, ok := sessionEngine(c, h.store)
	if !ok {
		return
	}
	id := c.Param("id")

	// Sign a fresh link on every download
	url, err := eng.ExportURL(c.Request.Context(), id)
	if errors.Is(err, engine.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Export not found"})
		return
	}
	if err != nil {
		logger.Warn(c.Request.Context(), "failed to link export, streaming instead", "export_id", id, "error", err)
	}
	if url != "" {
		c.Redirect(http.StatusFound, url)
		return
	}

	// Fall back to streaming the stored content
	file, content, err := eng.ExportContent(c.Request.Context(), id)
	if errors.Is(err, engine.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Export not found"})
		return
	}
	if err != nil {
		logger.Error(c.Request.Context(), "failed to load export", "export_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load export"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, export.ContentType+"; charset=utf-8", content)
}
