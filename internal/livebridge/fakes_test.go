package livebridge_test

import (
	"context"
	"errors"
	"slices"
	"sync"

	"farmhub/backend/internal/apperrors"
	"farmhub/backend/internal/models"
)

// fakeFetcher serves a single user's directory and one message list per
// conversation.
type fakeFetcher struct {
	mu            sync.Mutex
	conversations []models.Conversation
	messages      map[string][]models.Message
	unread        int64
	markCalls     int
	err           error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{messages: make(map[string][]models.Message)}
}

func (f *fakeFetcher) Directory(_ context.Context, _ string) ([]models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return slices.Clone(f.conversations), nil
}

func (f *fakeFetcher) UnreadCount(_ context.Context, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unread, nil
}

func (f *fakeFetcher) Messages(_ context.Context, userID, conversationID string) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if userID == "intruder" {
		return nil, apperrors.ErrNotParticipant
	}
	return slices.Clone(f.messages[conversationID]), nil
}

func (f *fakeFetcher) MarkAsRead(_ context.Context, userID, conversationID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markCalls++
	var n int64
	msgs := f.messages[conversationID]
	for i := range msgs {
		if msgs[i].SenderID != userID && !msgs[i].Read {
			msgs[i].Read = true
			n++
		}
	}
	return n, nil
}

func (f *fakeFetcher) setConversations(convs ...models.Conversation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conversations = convs
}

func (f *fakeFetcher) addMessage(msg models.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[msg.ConversationID] = append(f.messages[msg.ConversationID], msg)
}

func (f *fakeFetcher) marks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.markCalls
}

// frameSink records delivered frames and can pretend to be full.
type frameSink struct {
	mu     sync.Mutex
	frames []models.LiveFrame
	full   bool
}

func (s *frameSink) deliver(frame models.LiveFrame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.frames = append(s.frames, frame)
	return true
}

func (s *frameSink) setFull(full bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.full = full
}

func (s *frameSink) Frames() []models.LiveFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.frames)
}

// MockClient records what the hub hands it.
type MockClient struct {
	id     string
	userID string

	mu     sync.Mutex
	events []models.ChangeEvent
	closed int
}

func newMockClient(id, userID string) *MockClient {
	return &MockClient{id: id, userID: userID}
}

func (c *MockClient) GetID() string     { return c.id }
func (c *MockClient) GetUserID() string { return c.userID }
func (c *MockClient) Run()              {}

func (c *MockClient) Notify(ev models.ChangeEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *MockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
}

func (c *MockClient) Events() []models.ChangeEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.events)
}

func (c *MockClient) Closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// chanSource is a changefeed.Source backed by a channel the test writes to.
type chanSource struct {
	ch chan models.ChangeEvent
}

func newChanSource() *chanSource {
	return &chanSource{ch: make(chan models.ChangeEvent)}
}

func (s *chanSource) Subscribe(context.Context) (<-chan models.ChangeEvent, error) {
	return s.ch, nil
}

// failingSource refuses every subscription.
type failingSource struct{}

func (failingSource) Subscribe(context.Context) (<-chan models.ChangeEvent, error) {
	return nil, errors.New("redis: connection refused")
}
