package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the API, the websocket endpoint and the health check.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ws", h.RequireAuth(), h.ServeWebSocket)

	api := r.Group("/api", h.RequireAuth())
	api.GET("/conversations", h.ListConversations)
	api.POST("/conversations", h.StartConversation)
	api.DELETE("/conversations/:id", h.DeleteConversation)
	api.GET("/conversations/:id/messages", h.ListMessages)
	api.POST("/conversations/:id/read", h.MarkAsRead)
	api.POST("/messages", h.SendMessage)
	api.GET("/unread-count", h.UnreadCount)
}
