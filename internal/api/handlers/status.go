package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kepler-counter-go/internal/models"
)

// StatusSource reports pipeline progress.
type StatusSource interface {
	Snapshot() models.PipelineStatus
}

type StatusHandler struct {
	source StatusSource
}

func NewStatusHandler(source StatusSource) *StatusHandler {
	return &StatusHandler{source: source}
}

type ErrorResponse struct {
	Error string `json:"error" example:"pipeline not started"`
}

// @Summary Pipeline status
// @Description Get a snapshot of the running pipeline: state, frame index, active tracks and count
// @Tags status
// @Produce json
// @Success 200 {object} models.PipelineStatus
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/status [get]
func (h *StatusHandler) Status(c *gin.Context) {
	if h.source == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "pipeline not started"})
		return
	}
	c.JSON(http.StatusOK, h.source.Snapshot())
}
