package livebridge

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"farmhub/backend/internal/apperrors"
	"farmhub/backend/internal/config"
	"farmhub/backend/internal/models"

	"github.com/rs/zerolog/log"
)

// Deliver hands a frame to the client and reports whether it was accepted.
type Deliver func(models.LiveFrame) bool

// LiveQuery is the cached result of one mounted view. Polling and change
// events both go through Refresh, which pushes a frame only when the result
// differs from what the client last accepted.
type LiveQuery struct {
	ID             string
	UserID         string
	View           string
	ConversationID string

	fetcher    Fetcher
	deliver    Deliver
	interval   time.Duration
	invalidate chan struct{}

	mu   sync.Mutex
	last []byte
}

func NewLiveQuery(id string, f Fetcher, userID, view, conversationID string, deliver Deliver, interval time.Duration) *LiveQuery {
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}
	return &LiveQuery{
		ID:             id,
		UserID:         userID,
		View:           view,
		ConversationID: conversationID,
		fetcher:        f,
		deliver:        deliver,
		interval:       interval,
		invalidate:     make(chan struct{}, 1),
	}
}

// viewKey names a view within one connection.
func viewKey(view, conversationID string) string {
	if view == models.ViewConversation {
		return view + ":" + conversationID
	}
	return view
}

func (q *LiveQuery) Key() string {
	return viewKey(q.View, q.ConversationID)
}

// Matches reports whether ev may change this view's result.
func (q *LiveQuery) Matches(ev models.ChangeEvent) bool {
	if ev.Type == models.ChangeResync {
		return true
	}
	switch q.View {
	case models.ViewDirectory:
		return ev.Concerns(q.UserID)
	case models.ViewConversation:
		return ev.ConversationID == q.ConversationID
	}
	return false
}

// Invalidate schedules a refresh. Pending invalidations coalesce.
func (q *LiveQuery) Invalidate() {
	select {
	case q.invalidate <- struct{}{}:
	default:
	}
}

// Refresh fetches the view and delivers it if it changed.
func (q *LiveQuery) Refresh(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()

	frame, err := q.fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Str("subscription_id", q.ID).Str("view", q.View).Msg("live query refresh failed")
		frame = models.LiveFrame{
			Type:           models.FrameError,
			SubscriptionID: q.ID,
			ConversationID: q.ConversationID,
			Error:          apperrors.PublicMessage(err),
		}
	}

	data, err := json.Marshal(frame)
	if err != nil {
		log.Error().Err(err).Str("subscription_id", q.ID).Msg("failed to encode live frame")
		return
	}
	if bytes.Equal(data, q.last) {
		return
	}
	if !q.deliver(frame) {
		log.Debug().Str("subscription_id", q.ID).Msg("client busy, frame will be retried")
		return
	}
	q.last = data
}

func (q *LiveQuery) fetch(ctx context.Context) (models.LiveFrame, error) {
	switch q.View {
	case models.ViewDirectory:
		return q.fetchDirectory(ctx)
	case models.ViewConversation:
		return q.fetchMessages(ctx)
	}
	return models.LiveFrame{}, apperrors.InvalidArg("unknown view " + q.View)
}

func (q *LiveQuery) fetchDirectory(ctx context.Context) (models.LiveFrame, error) {
	convs, err := q.fetcher.Directory(ctx, q.UserID)
	if err != nil {
		return models.LiveFrame{}, err
	}
	unread, err := q.fetcher.UnreadCount(ctx, q.UserID)
	if err != nil {
		return models.LiveFrame{}, err
	}
	return models.LiveFrame{
		Type:           models.FrameDirectory,
		SubscriptionID: q.ID,
		Conversations:  convs,
		UnreadCount:    &unread,
	}, nil
}

// fetchMessages loads the conversation and marks what the other side sent as
// read, since the user is looking at it.
func (q *LiveQuery) fetchMessages(ctx context.Context) (models.LiveFrame, error) {
	msgs, err := q.fetcher.Messages(ctx, q.UserID, q.ConversationID)
	if err != nil {
		return models.LiveFrame{}, err
	}

	hasUnread := false
	for _, m := range msgs {
		if !m.Read && m.SenderID != q.UserID {
			hasUnread = true
			break
		}
	}
	if hasUnread {
		if _, err := q.fetcher.MarkAsRead(ctx, q.UserID, q.ConversationID); err != nil {
			return models.LiveFrame{}, err
		}
		for i := range msgs {
			if msgs[i].SenderID != q.UserID {
				msgs[i].Read = true
			}
		}
	}

	return models.LiveFrame{
		Type:           models.FrameMessages,
		SubscriptionID: q.ID,
		ConversationID: q.ConversationID,
		Messages:       msgs,
	}, nil
}

// run refreshes once, then on every tick and invalidation until ctx ends.
func (q *LiveQuery) run(ctx context.Context) {
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	q.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.Refresh(ctx)
		case <-q.invalidate:
			q.Refresh(ctx)
		}
	}
}
