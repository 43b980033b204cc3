package generation

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thumbfast/server/internal/module/catalog"
	apperrors "github.com/thumbfast/server/internal/shared/errors"
	"github.com/thumbfast/server/internal/shared/logger"
	"github.com/thumbfast/server/internal/shared/response"
	"go.uber.org/zap"
)

// maxBodyBytes bounds a request carrying base64 reference images.
const maxBodyBytes = 50 << 20

// Recorder receives every batch that produced at least one image. It must
// not fail the request; errors are its own to log.
type Recorder interface {
	Record(ctx context.Context, req *Request, result *Result)
}

// Handler handles generation HTTP requests.
type Handler struct {
	service  *Service
	recorder Recorder
	logger   *zap.Logger
}

// NewHandler creates a new generation handler. recorder may be nil.
func NewHandler(service *Service, recorder Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, recorder: recorder, logger: logger}
}

// RegisterRoutes registers generation routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/generate", h.Generate)
	r.GET("/options", h.Options)
}

var generateErrors = []response.Translation{
	{Err: ErrPromptRequired, Kind: apperrors.KindValidation, Message: "Prompt is required"},
	{Err: ErrModesRequired, Kind: apperrors.KindValidation, Message: "Select at least one mode"},
	{Err: ErrUnknownMode, Kind: apperrors.KindValidation},
	{Err: ErrInvalidLayout, Kind: apperrors.KindValidation},
}

// Generate handles POST /generate.
func (h *Handler) Generate(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var body GenerateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.AppError(c, apperrors.ValidationError("invalid request body", err))
		return
	}

	req := body.ToRequest()
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		if appErr, ok := response.Translate(err, generateErrors); ok {
			response.AppError(c, appErr)
			return
		}
		logger.Ctx(c.Request.Context(), h.logger).Error("generation failed", zap.Error(err))
		response.AppError(c, apperrors.Internal(err.Error(), err))
		return
	}

	if !result.Empty() && h.recorder != nil {
		h.recorder.Record(c.Request.Context(), req, result)
	}

	c.JSON(http.StatusOK, NewGenerateResponse(result))
}

// Options handles GET /options.
func (h *Handler) Options(c *gin.Context) {
	c.JSON(http.StatusOK, OptionsResponse{
		Modes:        catalog.ModeOptions(),
		Grids:        catalog.LayoutOptions(),
		Models:       catalog.Models(),
		DefaultModel: catalog.DefaultModel,
		MaxCount:     h.service.maxVariants,
	})
}
