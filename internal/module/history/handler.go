package history

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/thumbfast/server/internal/shared/errors"
	"github.com/thumbfast/server/internal/shared/logger"
	"github.com/thumbfast/server/internal/shared/response"
	"go.uber.org/zap"
)

// Handler handles history HTTP requests.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new history handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers history routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/history")
	{
		group.GET("", h.List)
		group.DELETE("", h.Clear)
		group.GET("/:id", h.Get)
		group.DELETE("/:id", h.Remove)
	}
}

// List handles GET /history.
func (h *Handler) List(c *gin.Context) {
	entries := h.service.GetAll(c.Request.Context())

	out := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		out[i] = ToResponse(e)
	}
	c.JSON(http.StatusOK, ListResponse{Entries: out, MaxEntries: h.service.MaxEntries()})
}

// Get handles GET /history/:id.
func (h *Handler) Get(c *gin.Context) {
	entry, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, ToResponse(entry))
}

// Remove handles DELETE /history/:id.
func (h *Handler) Remove(c *gin.Context) {
	if err := h.service.Remove(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Clear handles DELETE /history.
func (h *Handler) Clear(c *gin.Context) {
	if err := h.service.Clear(c.Request.Context()); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	log := logger.Ctx(c.Request.Context(), h.logger)
	switch {
	case errors.Is(err, ErrNotFound):
		response.AppError(c, apperrors.NotFound("history entry"))
	case errors.Is(err, ErrStoreUnavailable):
		log.Warn("history store unavailable", zap.Error(err))
		response.AppError(c, apperrors.Unavailable("history store unavailable", err))
	default:
		log.Error("history request failed", zap.Error(err))
		response.AppError(c, err)
	}
}
