package livebridge

import (
	"context"
	"sync"
	"time"

	"farmhub/backend/internal/apperrors"
	"farmhub/backend/internal/models"

	"github.com/google/uuid"
)

type watch struct {
	query  *LiveQuery
	cancel context.CancelFunc
	done   chan struct{}
}

// Subscriptions holds the live queries of one connection, at most one per
// view.
type Subscriptions struct {
	fetcher  Fetcher
	userID   string
	deliver  Deliver
	interval time.Duration

	mu     sync.Mutex
	byKey  map[string]*watch
	byID   map[string]*watch
	closed bool
}

func NewSubscriptions(f Fetcher, userID string, deliver Deliver, interval time.Duration) *Subscriptions {
	return &Subscriptions{
		fetcher:  f,
		userID:   userID,
		deliver:  deliver,
		interval: interval,
		byKey:    make(map[string]*watch),
		byID:     make(map[string]*watch),
	}
}

func (s *Subscriptions) WatchDirectory(ctx context.Context) (*LiveQuery, error) {
	return s.Watch(ctx, models.ViewDirectory, "")
}

func (s *Subscriptions) WatchConversation(ctx context.Context, conversationID string) (*LiveQuery, error) {
	return s.Watch(ctx, models.ViewConversation, conversationID)
}

// Watch starts a live query for the view, or returns the running one.
func (s *Subscriptions) Watch(ctx context.Context, view, conversationID string) (*LiveQuery, error) {
	switch view {
	case models.ViewDirectory:
		conversationID = ""
	case models.ViewConversation:
		if conversationID == "" {
			return nil, apperrors.InvalidArg("conversation_id is required")
		}
	default:
		return nil, apperrors.InvalidArg("unknown view: " + view)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, apperrors.Internal("connection is closing")
	}

	key := viewKey(view, conversationID)
	if w, ok := s.byKey[key]; ok {
		return w.query, nil
	}

	q := NewLiveQuery(uuid.New().String(), s.fetcher, s.userID, view, conversationID, s.deliver, s.interval)
	qctx, cancel := context.WithCancel(ctx)
	w := &watch{query: q, cancel: cancel, done: make(chan struct{})}
	s.byKey[key] = w
	s.byID[q.ID] = w

	go func() {
		defer close(w.done)
		q.run(qctx)
	}()
	return q, nil
}

// Unwatch stops the query with the given subscription id. It reports whether
// one was running.
func (s *Subscriptions) Unwatch(subscriptionID string) bool {
	s.mu.Lock()
	w, ok := s.byID[subscriptionID]
	if ok {
		delete(s.byID, subscriptionID)
		delete(s.byKey, w.query.Key())
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	w.cancel()
	<-w.done
	return true
}

// Invalidate schedules a refresh of every query ev may affect.
func (s *Subscriptions) Invalidate(ev models.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.byKey {
		if w.query.Matches(ev) {
			w.query.Invalidate()
		}
	}
}

// Close stops every query and waits for them to finish.
func (s *Subscriptions) Close() {
	s.mu.Lock()
	s.closed = true
	watches := make([]*watch, 0, len(s.byKey))
	for _, w := range s.byKey {
		watches = append(watches, w)
	}
	s.byKey = make(map[string]*watch)
	s.byID = make(map[string]*watch)
	s.mu.Unlock()

	for _, w := range watches {
		w.cancel()
	}
	for _, w := range watches {
		<-w.done
	}
}

func (s *Subscriptions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byKey)
}
