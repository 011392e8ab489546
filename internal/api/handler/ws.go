package handler

import (
	"net/http"

	"farmhub/backend/internal/livebridge"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Origins are checked by the CORS middleware in front of this handler.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades an authenticated request to a live connection.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	userID := currentUser(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error.
		log.Debug().Err(err).Str("user_id", userID).Msg("websocket upgrade failed")
		return
	}

	client := livebridge.NewWebSocketClient(conn, h.Hub, h.Messaging, userID, h.PollInterval)
	if !h.Hub.Register(client) {
		client.Close()
		conn.Close()
		return
	}
	client.Run()
}
