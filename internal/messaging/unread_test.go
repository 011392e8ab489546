package messaging_test

import (
	"context"
	"testing"

	"farmhub/backend/internal/apperrors"
	"farmhub/backend/internal/messaging"
	"farmhub/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkAsRead(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newTestService()

	res, err := svc.Send(ctx, messaging.SendRequest{SenderID: "u1", RecipientID: "u2", Content: "Hello"})
	require.NoError(t, err)
	_, err = svc.Send(ctx, messaging.SendRequest{SenderID: "u1", ConversationID: res.ConversationID, Content: "Anyone?"})
	require.NoError(t, err)

	// The sender reading their own messages changes nothing.
	changed, err := svc.MarkAsRead(ctx, "u1", res.ConversationID)
	require.NoError(t, err)
	assert.Zero(t, changed)

	before := len(pub.Events())
	changed, err = svc.MarkAsRead(ctx, "u2", res.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	events := pub.Events()
	require.Len(t, events, before+1)
	assert.Equal(t, models.TableMessages, events[before].Table)
	assert.Equal(t, models.ChangeUpdate, events[before].Type)

	unread, err := svc.UnreadCount(ctx, "u2")
	require.NoError(t, err)
	assert.Zero(t, unread)

	msgs, err := svc.Messages(ctx, "u2", res.ConversationID)
	require.NoError(t, err)
	for _, m := range msgs {
		assert.True(t, m.Read)
	}

	changed, err = svc.MarkAsRead(ctx, "u2", res.ConversationID)
	require.NoError(t, err)
	assert.Zero(t, changed)
	assert.Len(t, pub.Events(), before+1, "a no-op mark must not publish")
}

func TestMarkAsRead_OnlyOthersMessages(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	res, err := svc.Send(ctx, messaging.SendRequest{SenderID: "u1", RecipientID: "u2", Content: "Hello"})
	require.NoError(t, err)
	_, err = svc.Send(ctx, messaging.SendRequest{SenderID: "u2", ConversationID: res.ConversationID, Content: "Hi"})
	require.NoError(t, err)

	_, err = svc.MarkAsRead(ctx, "u2", res.ConversationID)
	require.NoError(t, err)

	unread, err := svc.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	msgs, err := svc.Messages(ctx, "u1", res.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].Read)
	assert.False(t, msgs[1].Read)
}

func TestMarkAsRead_Errors(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	res, err := svc.Send(ctx, messaging.SendRequest{SenderID: "u1", RecipientID: "u2", Content: "Hello"})
	require.NoError(t, err)

	_, err = svc.MarkAsRead(ctx, "", res.ConversationID)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	_, err = svc.MarkAsRead(ctx, "u3", res.ConversationID)
	assert.ErrorIs(t, err, apperrors.ErrNotParticipant)

	_, err = svc.MarkAsRead(ctx, "u2", "missing")
	assert.ErrorIs(t, err, apperrors.ErrConversationNotFound)

	_, err = svc.UnreadCount(ctx, "")
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}
