package livebridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"farmhub/backend/internal/apperrors"
	"farmhub/backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

const (
	commandSubscribe   = "subscribe"
	commandUnsubscribe = "unsubscribe"
)

// WebSocketClient implements Client over a gorilla websocket connection.
// Each frame is written as one JSON text message.
type WebSocketClient struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	Hub    *Hub
	Send   chan models.LiveFrame
	Subs   *Subscriptions

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

func NewWebSocketClient(conn *websocket.Conn, hub *Hub, f Fetcher, userID string, pollInterval time.Duration) *WebSocketClient {
	ctx, cancel := context.WithCancel(context.Background())
	c := &WebSocketClient{
		ID:     uuid.New().String(),
		UserID: userID,
		Conn:   conn,
		Hub:    hub,
		Send:   make(chan models.LiveFrame, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
	c.Subs = NewSubscriptions(f, userID, c.deliver, pollInterval)
	return c
}

func (c *WebSocketClient) GetID() string     { return c.ID }
func (c *WebSocketClient) GetUserID() string { return c.UserID }

func (c *WebSocketClient) Notify(ev models.ChangeEvent) {
	c.Subs.Invalidate(ev)
}

func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close stops the live queries, then closes Send, which makes writePump
// close the connection.
func (c *WebSocketClient) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.Subs.Close()

	c.mu.Lock()
	close(c.Send)
	c.mu.Unlock()
}

// deliver queues frame without blocking.
func (c *WebSocketClient) deliver(frame models.LiveFrame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- frame:
		return true
	default:
		return false
	}
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("client_id", c.ID).Msg("websocket read failed")
			}
			return
		}

		var cmd models.ClientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			log.Debug().Err(err).Str("client_id", c.ID).Msg("malformed client command")
			c.replyError("", apperrors.InvalidArg("malformed command"))
			continue
		}
		c.handleCommand(cmd)
	}
}

func (c *WebSocketClient) handleCommand(cmd models.ClientCommand) {
	switch cmd.Type {
	case commandSubscribe:
		q, err := c.Subs.Watch(c.ctx, cmd.View, cmd.ConversationID)
		if err != nil {
			c.replyError("", err)
			return
		}
		c.deliver(models.LiveFrame{
			Type:           models.FrameSubscribed,
			SubscriptionID: q.ID,
			ConversationID: q.ConversationID,
		})

	case commandUnsubscribe:
		if !c.Subs.Unwatch(cmd.SubscriptionID) {
			c.replyError(cmd.SubscriptionID, apperrors.NotFound("subscription not found"))
			return
		}
		c.deliver(models.LiveFrame{Type: models.FrameUnsubscribed, SubscriptionID: cmd.SubscriptionID})

	default:
		c.replyError("", apperrors.InvalidArg("unknown command: "+cmd.Type))
	}
}

func (c *WebSocketClient) replyError(subscriptionID string, err error) {
	c.deliver(models.LiveFrame{
		Type:           models.FrameError,
		SubscriptionID: subscriptionID,
		Error:          apperrors.PublicMessage(err),
	})
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(frame); err != nil {
				log.Debug().Err(err).Str("client_id", c.ID).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
