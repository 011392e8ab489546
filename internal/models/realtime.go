package models

import "slices"

// Relations reported by the change feed.
const (
	TableMessages      = "messages"
	TableConversations = "conversations"
)

// Change types. ChangeResync is emitted when the feed may have missed events.
const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
	ChangeResync = "RESYNC"
)

// ChangeEvent is a row change notification on messages or conversations.
type ChangeEvent struct {
	Table          string   `json:"table"`
	Type           string   `json:"type"`
	ConversationID string   `json:"conversation_id,omitempty"`
	ParticipantIDs []string `json:"participant_ids,omitempty"`
}

// Concerns reports whether the event may affect data visible to userID.
// Events without participants are treated as relevant to everyone.
func (e ChangeEvent) Concerns(userID string) bool {
	if len(e.ParticipantIDs) == 0 {
		return true
	}
	return slices.Contains(e.ParticipantIDs, userID)
}

// Views a websocket client can subscribe to.
const (
	ViewDirectory    = "directory"
	ViewConversation = "conversation"
)

// ClientCommand is a command sent by a websocket client.
type ClientCommand struct {
	Type           string `json:"type"` // "subscribe", "unsubscribe"
	View           string `json:"view,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	SubscriptionID string `json:"subscription_id,omitempty"`
}

// Frame types sent to websocket clients.
const (
	FrameSubscribed   = "subscribed"
	FrameUnsubscribed = "unsubscribed"
	FrameDirectory    = "directory"
	FrameMessages     = "messages"
	FrameError        = "error"
)

// LiveFrame is a server push to a websocket client.
type LiveFrame struct {
	Type           string         `json:"type"`
	SubscriptionID string         `json:"subscription_id,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Conversations  []Conversation `json:"conversations,omitempty"`
	Messages       []Message      `json:"messages,omitempty"`
	UnreadCount    *int64         `json:"unread_count,omitempty"`
	Error          string         `json:"error,omitempty"`
}
