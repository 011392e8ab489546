package messaging_test

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"farmhub/backend/internal/apperrors"
	"farmhub/backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// memStorage is an in-memory storage.Storage with the same ordering and
// filtering rules as the postgres implementation.
type memStorage struct {
	mu            sync.Mutex
	clock         time.Time
	conversations map[string]*models.Conversation
	messages      []*models.Message
	profiles      map[string]models.Profile
	authEmails    map[string]string

	emailsErr   error
	profilesErr error
	appendErr   error
}

func newMemStorage() *memStorage {
	return &memStorage{
		clock:         time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		conversations: make(map[string]*models.Conversation),
		profiles:      make(map[string]models.Profile),
		authEmails:    make(map[string]string),
	}
}

func (m *memStorage) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func copyConversation(c *models.Conversation) models.Conversation {
	out := *c
	out.ParticipantIDs = slices.Clone(c.ParticipantIDs)
	out.ParticipantNames = slices.Clone(c.ParticipantNames)
	return out
}

func (m *memStorage) ListConversations(_ context.Context, userID string) ([]models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Conversation
	for _, c := range m.conversations {
		if c.HasParticipant(userID) {
			out = append(out, copyConversation(c))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].LastMessageAt, out[j].LastMessageAt
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memStorage) GetConversation(_ context.Context, id string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return nil, apperrors.ErrConversationNotFound
	}
	out := copyConversation(c)
	return &out, nil
}

func (m *memStorage) FindConversationBetween(_ context.Context, a, b string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *models.Conversation
	for _, c := range m.conversations {
		if len(c.ParticipantIDs) == 2 && c.HasParticipant(a) && c.HasParticipant(b) {
			if found == nil || c.CreatedAt.Before(found.CreatedAt) {
				found = c
			}
		}
	}
	if found == nil {
		return nil, nil
	}
	out := copyConversation(found)
	return &out, nil
}

func (m *memStorage) CreateConversation(_ context.Context, conv *models.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	conv.CreatedAt = m.tick()
	stored := copyConversation(conv)
	m.conversations[conv.ID] = &stored
	return nil
}

func (m *memStorage) UpdateParticipantNames(_ context.Context, id string, names []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.conversations[id]; ok {
		c.ParticipantNames = slices.Clone(names)
	}
	return nil
}

func (m *memStorage) DeleteConversation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[id]; !ok {
		return apperrors.ErrConversationNotFound
	}
	delete(m.conversations, id)
	m.messages = slices.DeleteFunc(m.messages, func(msg *models.Message) bool {
		return msg.ConversationID == id
	})
	return nil
}

func (m *memStorage) ListMessages(_ context.Context, id string) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Message
	for _, msg := range m.messages {
		if msg.ConversationID == id {
			out = append(out, *msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStorage) AppendMessage(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	c, ok := m.conversations[msg.ConversationID]
	if !ok {
		return apperrors.ErrConversationNotFound
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = m.tick()
	}
	stored := *msg
	m.messages = append(m.messages, &stored)
	at := msg.CreatedAt
	c.LastMessage = msg.Content
	c.LastMessageAt = &at
	return nil
}

func (m *memStorage) RecentSenderNames(_ context.Context, ids []string) ([]models.SenderName, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var msgs []*models.Message
	for _, msg := range m.messages {
		if slices.Contains(ids, msg.ConversationID) && msg.SenderName != "" {
			msgs = append(msgs, msg)
		}
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.After(msgs[j].CreatedAt) })
	out := make([]models.SenderName, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, models.SenderName{SenderID: msg.SenderID, SenderName: msg.SenderName})
	}
	return out, nil
}

func (m *memStorage) ProfilesByIDs(_ context.Context, ids []string) ([]models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profilesErr != nil {
		return nil, m.profilesErr
	}
	var out []models.Profile
	for _, id := range ids {
		if p, ok := m.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStorage) EmailsByIDs(_ context.Context, ids []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emailsErr != nil {
		return nil, m.emailsErr
	}
	out := make(map[string]string)
	for _, id := range ids {
		if e, ok := m.authEmails[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func (m *memStorage) unreadFor(userID string) map[string]int64 {
	counts := make(map[string]int64)
	for _, msg := range m.messages {
		c, ok := m.conversations[msg.ConversationID]
		if !ok || !c.HasParticipant(userID) {
			continue
		}
		if !msg.Read && msg.SenderID != userID {
			counts[msg.ConversationID]++
		}
	}
	return counts
}

func (m *memStorage) CountUnread(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, c := range m.unreadFor(userID) {
		n += c
	}
	return n, nil
}

func (m *memStorage) UnreadByConversation(_ context.Context, userID string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unreadFor(userID), nil
}

func (m *memStorage) MarkAsRead(_ context.Context, convID, readerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, msg := range m.messages {
		if msg.ConversationID == convID && msg.SenderID != readerID && !msg.Read {
			msg.Read = true
			n++
		}
	}
	return n, nil
}

func (m *memStorage) conversationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conversations)
}

// recordingPublisher keeps every published change event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []models.ChangeEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev models.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Events() []models.ChangeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.events)
}

// MockNotifier is a testify mock of messaging.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (n *MockNotifier) NotifyNewMessage(ctx context.Context, recipientID string, msg models.Message) error {
	args := n.Called(recipientID, msg.Content)
	return args.Error(0)
}
