package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Conversation is a two-party channel between farmers.
// ParticipantIDs keeps the order in which the conversation was started and
// ParticipantNames is parallel to it.
type Conversation struct {
	ID               string         `gorm:"type:uuid;primaryKey" json:"id"`
	ParticipantIDs   pq.StringArray `gorm:"type:text[];not null" json:"participant_ids"`
	ParticipantNames pq.StringArray `gorm:"type:text[];not null" json:"participant_names"`
	LastMessage      string         `gorm:"type:text" json:"last_message"`
	LastMessageAt    *time.Time     `gorm:"index" json:"last_message_at"`
	CreatedAt        time.Time      `json:"created_at"`

	// UnreadCount is derived for the viewer and never stored.
	UnreadCount int64 `gorm:"-" json:"unread_count"`
}

// BeforeCreate generates a UUID for the conversation if none is set.
func (c *Conversation) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// HasParticipant reports whether userID takes part in the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the identifier of the counterpart of userID and its
// index in ParticipantIDs. It returns ("", -1) when there is no counterpart.
func (c *Conversation) OtherParticipant(userID string) (string, int) {
	for i, id := range c.ParticipantIDs {
		if id != userID {
			return id, i
		}
	}
	return "", -1
}

// NameAt returns the cached participant name at index i, or "" when the
// names array is shorter than the identifiers array.
func (c *Conversation) NameAt(i int) string {
	if i < 0 || i >= len(c.ParticipantNames) {
		return ""
	}
	return c.ParticipantNames[i]
}
