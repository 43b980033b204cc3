package stats

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler handles stats HTTP requests.
type Handler struct {
	tracker *Tracker
}

// NewHandler creates a new stats handler.
func NewHandler(tracker *Tracker) *Handler {
	return &Handler{tracker: tracker}
}

// RegisterRoutes registers stats routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/stats", h.Get)
	r.POST("/stats/reset", h.Reset)
}

// Get handles GET /stats.
func (h *Handler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Snapshot())
}

// Reset handles POST /stats/reset.
func (h *Handler) Reset(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Reset(c.Request.Context()))
}
