package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "kepler-counter-go/internal/api/docs"
)

// @title Kepler Counter API
// @version 1.0.0
// @description Status, health and metrics of a running line-crossing counter
// @BasePath /
func (s *Server) setupSwagger() {
	s.router.GET("/api/info", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"title":      "Kepler Counter API",
			"version":    s.config.Version,
			"swagger_ui": "/docs/index.html",
			"endpoints": gin.H{
				"health":  "/health",
				"info":    "/",
				"status":  "/api/v1/status",
				"metrics": "/metrics",
			},
			"port": s.config.Port,
		})
	})

	s.router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	s.router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
	})
}
