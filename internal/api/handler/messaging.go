package handler

import (
	"net/http"
	"strings"

	"farmhub/backend/internal/apperrors"
	"farmhub/backend/internal/messaging"

	"github.com/gin-gonic/gin"
)

type startConversationRequest struct {
	RecipientID    string `json:"recipient_id"`
	RecipientName  string `json:"recipient_name"`
	InitialMessage string `json:"initial_message"`
}

type sendMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	RecipientID    string `json:"recipient_id"`
	Content        string `json:"content"`
}

var errBadBody = apperrors.InvalidArg("invalid request body")

// ListConversations handles GET /api/conversations.
func (h *Handler) ListConversations(c *gin.Context) {
	convs, err := h.Messaging.Directory(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

// StartConversation handles POST /api/conversations.
func (h *Handler) StartConversation(c *gin.Context) {
	var req startConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errBadBody)
		return
	}
	res, err := h.Messaging.StartConversation(c.Request.Context(), messaging.StartRequest{
		SenderID:       currentUser(c),
		RecipientID:    req.RecipientID,
		RecipientName:  req.RecipientName,
		InitialMessage: req.InitialMessage,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteConversation handles DELETE /api/conversations/:id.
func (h *Handler) DeleteConversation(c *gin.Context) {
	if err := h.Messaging.DeleteConversation(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListMessages handles GET /api/conversations/:id/messages.
func (h *Handler) ListMessages(c *gin.Context) {
	msgs, err := h.Messaging.Messages(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// MarkAsRead handles POST /api/conversations/:id/read.
func (h *Handler) MarkAsRead(c *gin.Context) {
	n, err := h.Messaging.MarkAsRead(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": n})
}

// SendMessage handles POST /api/messages. Blank content is rejected here;
// the service stores whatever it is given.
func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errBadBody)
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		respondError(c, apperrors.ErrEmptyContent)
		return
	}

	res, err := h.Messaging.Send(c.Request.Context(), messaging.SendRequest{
		SenderID:       currentUser(c),
		ConversationID: req.ConversationID,
		RecipientID:    req.RecipientID,
		Content:        content,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// UnreadCount handles GET /api/unread-count.
func (h *Handler) UnreadCount(c *gin.Context) {
	n, err := h.Messaging.UnreadCount(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": n})
}
