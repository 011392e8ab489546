// Package messaging implements the conversation directory, the message store
// accessor and the unread tracker on top of storage.Storage.
//
// Every operation takes the acting user's identifier explicitly; there is no
// ambient session.
package messaging

import (
	"context"

	"farmhub/backend/internal/apperrors"
	"farmhub/backend/internal/changefeed"
	"farmhub/backend/internal/models"
	"farmhub/backend/internal/storage"

	"github.com/rs/zerolog/log"
)

// Notifier is told about every new message, e.g. to reach a recipient who is
// not looking at the app.
type Notifier interface {
	NotifyNewMessage(ctx context.Context, recipientID string, msg models.Message) error
}

type Service struct {
	Storage   storage.Storage
	Publisher changefeed.Publisher
	Notifier  Notifier
}

func NewService(s storage.Storage, p changefeed.Publisher) *Service {
	if p == nil {
		p = changefeed.Nop{}
	}
	return &Service{Storage: s, Publisher: p}
}

// SetNotifier installs an optional new-message notifier.
func (s *Service) SetNotifier(n Notifier) {
	s.Notifier = n
}

func (s *Service) publish(ctx context.Context, ev models.ChangeEvent) {
	if err := s.Publisher.Publish(ctx, ev); err != nil {
		// Views still catch up through polling.
		log.Warn().Err(err).Str("table", ev.Table).Str("conversation_id", ev.ConversationID).
			Msg("failed to publish change event")
	}
}

// participantConversation loads a conversation and checks that userID takes
// part in it.
func (s *Service) participantConversation(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	conv, err := s.Storage.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, apperrors.ErrNotParticipant
	}
	return conv, nil
}
