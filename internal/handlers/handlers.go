package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/Brownie44l1/crop-api/internal/pipeline"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	predictor      Predictor
	logger         *zap.Logger
	maxUploadBytes int64
}

func NewHandler(predictor Predictor, logger *zap.Logger, maxUploadBytes int64) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		predictor:      predictor,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "serving",
		Labels: len(h.predictor.Labels()),
	})
}

// Analyze reads the multipart field "image" and runs it through the
// pipeline.
func (h *Handler) Analyze(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "Image is too large"})
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No image file provided"})
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("failed to read upload", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to read image"})
		return
	}

	h.logger.Debug("received file",
		zap.String("filename", header.Filename),
		zap.Int("size", len(raw)),
		zap.String("request_id", c.GetString(RequestIDKey)))

	h.render(c, h.predictor.Predict(raw))
}

func (h *Handler) render(c *gin.Context, out pipeline.Outcome) {
	c.JSON(Response(out))
}

// Response maps an outcome to its HTTP status and JSON body. Failed
// outcomes never expose the underlying error.
func Response(out pipeline.Outcome) (int, any) {
	switch o := out.(type) {
	case pipeline.Diagnosed:
		return http.StatusOK, DiagnosisResponse{
			Label:         o.Label,
			Disease:       o.Record.Disease,
			Severity:      o.Record.Severity,
			Confidence:    o.ConfidencePercent,
			Treatment:     o.Record.Treatment,
			AffectedCrops: o.Record.AffectedCrops,
			Prevention:    o.Record.Prevention,
			NextSteps:     o.Record.NextSteps,
		}
	case pipeline.NoCropDetected:
		return http.StatusOK, NoCropResponse{NoCropDetected: true, Message: o.Message}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: pipeline.FailedMessage}
	}
}
