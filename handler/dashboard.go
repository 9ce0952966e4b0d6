package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/techpathlabs/milestonedesk/engine"
	"github.com/techpathlabs/milestonedesk/model"
	"github.com/techpathlabs/milestonedesk/service"
)

type DashboardHandler struct {
	store *service.SessionStore
	now   func() time.Time
}

func NewDashboardHandler(store *service.SessionStore) *DashboardHandler {
	return &DashboardHandler{store: store, now: time.Now}
}

// Dashboard returns the full session snapshot
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	eng, ok := sessionEngine(c, h.store)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, eng.Snapshot())
}

// ListMilestones returns one page of the filtered table, newest upload
// first.
func (h *DashboardHandler) ListMilestones(c *gin.Context) {
	eng, ok := sessionEngine(c, h.store)
	if !ok {
		return
	}

	// Parse page, defaulting to the first
	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page"})
			return
		}
		page = n
	}

	// Filter, sort and slice
	items := model.Filter(eng.Milestones(), c.Query("q"))
	model.SortByUploadDesc(items)
	result := model.Paginate(items, page, model.RecordsPerPage)

	c.JSON(http.StatusOK, gin.H{
		"milestones":  result.Items,
		"page":        result.Page,
		"total_pages": result.TotalPages,
		"total":       result.Total,
		"query":       c.Query("q"),
		"flags":       eng.Flags(),
		"fetch_error": eng.FetchError(),
	})
}

// GetMilestone returns a milestone with its risk assessment
func (h *DashboardHandler) GetMilestone(c *gin.Context) {
	eng, ok := sessionEngine(c, h.store)
	if !ok {
		return
	}

	m, found := eng.Milestone(c.Param("id"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Milestone not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"milestone": m,
		"risk":      model.Assess(m, h.now()),
	})
}

// DeleteMilestone removes a milestone. A failed server-side delete is
// reported in the body and the execution log, not as an HTTP error.
func (h *DashboardHandler) DeleteMilestone(c *gin.Context) {
	eng, ok := sessionEngine(c, h.store)
	if !ok {
		return
	}

	deleted, err := eng.Delete(opContext(c), c.Param("id"))
	if errors.Is(err, engine.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Milestone not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete milestone"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// Refresh runs a reconciliation and returns the resulting snapshot
func (h *DashboardHandler) Refresh(c *gin.Context) {
	eng, ok := sessionEngine(c, h.store)
	if !ok {
		return
	}

	eng.Refresh(opContext(c))
	c.JSON(http.StatusOK, eng.Snapshot())
}

// Executions returns the execution log, newest first
func (h *DashboardHandler) Executions(c *gin.Context) {
	eng, ok := sessionEngine(c, h.store)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"executions": eng.Executions()})
}

// Triggers returns the last fetched workflow triggers
func (h *DashboardHandler) Triggers(c *gin.Context) {
	eng, ok := sessionEngine(c, h.store)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"triggers": eng.Triggers()})
}

// Operation returns the state of a single engine operation
func (h *DashboardHandler) Operation(c *gin.Context) {
	eng, ok := sessionEngine(c, h.store)
	if !ok {
		return
	}

	op, found := eng.Operation(c.Param("id"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Operation not found"})
		return
	}
	c.JSON(http.StatusOK, op)
}
