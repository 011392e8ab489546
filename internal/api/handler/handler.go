// Package handler exposes the messaging service over HTTP and websockets.
package handler

import (
	"context"
	"time"

	"farmhub/backend/internal/livebridge"
	"farmhub/backend/internal/messaging"
)

// MessagingService is what the handlers call. messaging.Service satisfies it.
type MessagingService interface {
	livebridge.Fetcher
	Send(ctx context.Context, req messaging.SendRequest) (*messaging.SendResult, error)
	StartConversation(ctx context.Context, req messaging.StartRequest) (*messaging.StartResult, error)
	DeleteConversation(ctx context.Context, userID, conversationID string) error
}

type Handler struct {
	Messaging    MessagingService
	Hub          *livebridge.Hub
	JWTSecret    []byte
	PollInterval time.Duration
}

func NewHandler(svc MessagingService, hub *livebridge.Hub, jwtSecret string, pollInterval time.Duration) *Handler {
	return &Handler{
		Messaging:    svc,
		Hub:          hub,
		JWTSecret:    []byte(jwtSecret),
		PollInterval: pollInterval,
	}
}
