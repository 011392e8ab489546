// Package livebridge keeps websocket clients' views of the directory and of
// open conversations current, by polling and by reacting to change events.
package livebridge

import (
	"context"

	"farmhub/backend/internal/models"
)

// Client is one live connection registered with the Hub.
type Client interface {
	// GetID identifies the connection. A user may hold several.
	GetID() string
	GetUserID() string

	// Notify hands the client a change event that may concern it. It must not
	// block.
	Notify(ev models.ChangeEvent)

	// Run starts the client's pumps.
	Run()
	// Close stops the client's queries and shuts the connection down. It may
	// be called more than once.
	Close()
}

// Fetcher is the read side a live view needs. messaging.Service satisfies it.
type Fetcher interface {
	Directory(ctx context.Context, userID string) ([]models.Conversation, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	Messages(ctx context.Context, userID, conversationID string) ([]models.Message, error)
	MarkAsRead(ctx context.Context, userID, conversationID string) (int64, error)
}
