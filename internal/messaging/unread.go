package messaging

import (
	"context"

	"farmhub/backend/internal/apperrors"
	"farmhub/backend/internal/models"
)

// UnreadCount counts unread messages sent to userID across all of their
// conversations.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, apperrors.ErrUnauthenticated
	}
	return s.Storage.CountUnread(ctx, userID)
}

// MarkAsRead marks every message in the conversation that userID did not
// send as read. Calling it again changes nothing.
func (s *Service) MarkAsRead(ctx context.Context, userID, conversationID string) (int64, error) {
	if userID == "" {
		return 0, apperrors.ErrUnauthenticated
	}
	conv, err := s.participantConversation(ctx, userID, conversationID)
	if err != nil {
		return 0, err
	}

	changed, err := s.Storage.MarkAsRead(ctx, conv.ID, userID)
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		s.publish(ctx, models.ChangeEvent{
			Table:          models.TableMessages,
			Type:           models.ChangeUpdate,
			ConversationID: conv.ID,
			ParticipantIDs: conv.ParticipantIDs,
		})
	}
	return changed, nil
}
