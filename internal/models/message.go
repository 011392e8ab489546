package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is one entry of a conversation transcript.
// Only Read ever changes after creation, and only from false to true.
type Message struct {
	ID             string `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID string `gorm:"type:uuid;not null;index:idx_conversation_created" json:"conversation_id"`
	SenderID       string `gorm:"type:text;not null;index" json:"sender_id"`
	// SenderName is the sender's display name as it was at send time.
	SenderName string    `gorm:"type:text" json:"sender_name"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Read       bool      `gorm:"not null;default:false;index" json:"read"`
	CreatedAt  time.Time `gorm:"index:idx_conversation_created" json:"created_at"`
}

// BeforeCreate generates a UUID for the message if none is set.
func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}

// SenderName is a (sender_id, sender_name) projection of a message row.
type SenderName struct {
	SenderID   string
	SenderName string
}
