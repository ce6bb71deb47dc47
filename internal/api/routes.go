package api

import "github.com/gin-gonic/gin"

// SetupRoutes registers every endpoint.
func SetupRoutes(r *gin.Engine, h *Handlers) {
	api := r.Group("/api")

	api.GET("/health", h.Health)

	api.POST("/sessions", h.CreateSession)
	api.GET("/sessions/:id", h.GetSession)
	api.DELETE("/sessions/:id", h.DeleteSession)
	api.POST("/sessions/:id/begin", h.Begin)
	api.POST("/sessions/:id/upload", h.Upload)
	api.POST("/sessions/:id/messages", h.SendMessage)
	api.POST("/sessions/:id/conclude", h.Conclude)
	api.GET("/sessions/:id/record", h.DownloadRecord)
}
