package handler_test

import (
	"context"

	"farmhub/backend/internal/messaging"
	"farmhub/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockMessaging struct {
	mock.Mock
}

func (m *MockMessaging) Directory(ctx context.Context, userID string) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Conversation), args.Error(1)
}

func (m *MockMessaging) UnreadCount(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessaging) Messages(ctx context.Context, userID, conversationID string) ([]models.Message, error) {
	args := m.Called(ctx, userID, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockMessaging) MarkAsRead(ctx context.Context, userID, conversationID string) (int64, error) {
	args := m.Called(ctx, userID, conversationID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessaging) Send(ctx context.Context, req messaging.SendRequest) (*messaging.SendResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.SendResult), args.Error(1)
}

func (m *MockMessaging) StartConversation(ctx context.Context, req messaging.StartRequest) (*messaging.StartResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.StartResult), args.Error(1)
}

func (m *MockMessaging) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	args := m.Called(ctx, userID, conversationID)
	return args.Error(0)
}
