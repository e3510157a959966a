package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	RunID   string
	Version string
}

func NewHealthHandler(runID, version string) *HealthHandler {
	return &HealthHandler{RunID: runID, Version: version}
}

type HealthResponse struct {
	Status string `json:"status" example:"healthy"`
	RunID  string `json:"run_id" example:"3f1c2a9e-5b7d-4e0a-9c61-0d2f8b4a7e15"`
}

type InfoResponse struct {
	RunID        string   `json:"run_id" example:"3f1c2a9e-5b7d-4e0a-9c61-0d2f8b4a7e15"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Check if the counter is healthy and responsive
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "healthy",
		RunID:  h.RunID,
	})
}

// @Summary Counter information
// @Description Get run id, version and capabilities
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} InfoResponse
// @Router / [get]
func (h *HealthHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, InfoResponse{
		RunID:   h.RunID,
		Status:  "running",
		Version: h.Version,
		Capabilities: []string{
			"object_detection",
			"multi_object_tracking",
			"line_crossing_count",
		},
	})
}
