package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary Prometheus metrics
// @Description Frame, detection, track and crossing collectors in the Prometheus text format
// @Tags metrics
// @Produce plain
// @Success 200 {string} string "Prometheus exposition"
// @Router /metrics [get]
func Metrics(h http.Handler) gin.HandlerFunc {
	return gin.WrapH(h)
}
