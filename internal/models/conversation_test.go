package models_test

import (
	"farmhub/backend/internal/models"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

// TestConversationBeforeCreate_GeneratesUUID verifies that the BeforeCreate hook generates a valid UUID.
func TestConversationBeforeCreate_GeneratesUUID(t *testing.T) {
	conv := &models.Conversation{
		ParticipantIDs:   pq.StringArray{"u1", "u2"},
		ParticipantNames: pq.StringArray{"Ann", "Bob"},
	}
	assert.Empty(t, conv.ID)

	err := conv.BeforeCreate(nil)

	assert.NoError(t, err)
	parsed, parseErr := uuid.Parse(conv.ID)
	assert.NoError(t, parseErr, "Conversation ID must be a valid UUID string")
	assert.NotEqual(t, uuid.Nil, parsed)
}

// TestMessageBeforeCreate_PreservesExistingID verifies that the hook doesn't overwrite an existing ID.
func TestMessageBeforeCreate_PreservesExistingID(t *testing.T) {
	existingID := uuid.New().String()
	msg := &models.Message{ID: existingID, ConversationID: uuid.New().String(), SenderID: "u1", Content: "Hello"}

	err := msg.BeforeCreate(nil)

	assert.NoError(t, err)
	assert.Equal(t, existingID, msg.ID)
}

func TestConversation_OtherParticipant(t *testing.T) {
	conv := models.Conversation{ParticipantIDs: pq.StringArray{"u1", "u2"}}

	id, idx := conv.OtherParticipant("u1")
	assert.Equal(t, "u2", id)
	assert.Equal(t, 1, idx)

	id, idx = conv.OtherParticipant("u2")
	assert.Equal(t, "u1", id)
	assert.Equal(t, 0, idx)

	assert.True(t, conv.HasParticipant("u1"))
	assert.False(t, conv.HasParticipant("u3"))
}

func TestConversation_OtherParticipant_Degenerate(t *testing.T) {
	conv := models.Conversation{ParticipantIDs: pq.StringArray{"u1", "u1"}}

	id, idx := conv.OtherParticipant("u1")
	assert.Empty(t, id)
	assert.Equal(t, -1, idx)
}

func TestConversation_NameAt(t *testing.T) {
	conv := models.Conversation{
		ParticipantIDs:   pq.StringArray{"u1", "u2"},
		ParticipantNames: pq.StringArray{"Ann"},
	}
	assert.Equal(t, "Ann", conv.NameAt(0))
	assert.Empty(t, conv.NameAt(1), "missing names must not panic")
	assert.Empty(t, conv.NameAt(-1))
}

func TestChangeEvent_Concerns(t *testing.T) {
	tests := []struct {
		name   string
		event  models.ChangeEvent
		userID string
		want   bool
	}{
		{"participant", models.ChangeEvent{ParticipantIDs: []string{"u1", "u2"}}, "u2", true},
		{"outsider", models.ChangeEvent{ParticipantIDs: []string{"u1", "u2"}}, "u3", false},
		{"resync without participants", models.ChangeEvent{Type: models.ChangeResync}, "u3", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.Concerns(tt.userID))
		})
	}
}

// TestConversationStructTags catches accidental removal of the array column types.
func TestConversationStructTags(t *testing.T) {
	convType := reflect.TypeOf(models.Conversation{})

	idsField, found := convType.FieldByName("ParticipantIDs")
	assert.True(t, found)
	assert.Contains(t, idsField.Tag.Get("gorm"), "type:text[]")
	assert.Equal(t, "participant_ids", idsField.Tag.Get("json"))

	namesField, found := convType.FieldByName("ParticipantNames")
	assert.True(t, found)
	assert.Contains(t, namesField.Tag.Get("gorm"), "type:text[]")

	unreadField, found := convType.FieldByName("UnreadCount")
	assert.True(t, found)
	assert.Equal(t, "-", unreadField.Tag.Get("gorm"), "unread count is derived, not stored")
}
