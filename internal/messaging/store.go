package messaging

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"farmhub/backend/internal/apperrors"
	"farmhub/backend/internal/config"
	"farmhub/backend/internal/models"
	"farmhub/backend/internal/names"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const notifyTimeout = 10 * time.Second

// SendRequest sends Content either into ConversationID or, when that is
// empty, into the conversation between SenderID and RecipientID, creating it
// if needed.
type SendRequest struct {
	SenderID       string
	ConversationID string
	RecipientID    string
	Content        string
}

type SendResult struct {
	Message        models.Message `json:"message"`
	ConversationID string         `json:"conversation_id"`
}

// StartRequest opens (or reopens) the conversation with RecipientID.
// RecipientName is a name the caller already knows, e.g. from a forum post.
type StartRequest struct {
	SenderID       string
	RecipientID    string
	RecipientName  string
	InitialMessage string
}

type StartResult struct {
	Conversation models.Conversation `json:"conversation"`
	Message      *models.Message     `json:"message,omitempty"`
}

// Messages returns the full history of a conversation, oldest first. A
// conversation that no longer exists has an empty history.
func (s *Service) Messages(ctx context.Context, userID, conversationID string) ([]models.Message, error) {
	if userID == "" {
		return nil, apperrors.ErrUnauthenticated
	}
	if _, err := s.participantConversation(ctx, userID, conversationID); err != nil {
		if errors.Is(err, apperrors.ErrConversationNotFound) {
			return []models.Message{}, nil
		}
		return nil, err
	}

	msgs, err := s.Storage.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

// Send appends a message. Content is stored as given; rejecting blank
// messages is up to the caller.
func (s *Service) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	if req.SenderID == "" {
		return nil, apperrors.ErrUnauthenticated
	}

	var conv *models.Conversation
	var err error
	if req.ConversationID != "" {
		conv, err = s.participantConversation(ctx, req.SenderID, req.ConversationID)
	} else {
		if req.RecipientID == "" {
			return nil, apperrors.ErrMissingRecipient
		}
		conv, err = s.findOrCreate(ctx, req.SenderID, req.RecipientID, "")
	}
	if err != nil {
		return nil, err
	}

	senderName, err := s.resolveName(ctx, req.SenderID)
	if err != nil {
		return nil, err
	}
	if senderName == "" {
		senderName = config.FallbackDisplayName
	}

	msg := models.Message{
		ConversationID: conv.ID,
		SenderID:       req.SenderID,
		SenderName:     senderName,
		Content:        req.Content,
	}
	if err := s.Storage.AppendMessage(ctx, &msg); err != nil {
		return nil, err
	}

	s.publish(ctx, models.ChangeEvent{
		Table:          models.TableMessages,
		Type:           models.ChangeInsert,
		ConversationID: conv.ID,
		ParticipantIDs: conv.ParticipantIDs,
	})

	if recipientID, _ := conv.OtherParticipant(req.SenderID); recipientID != "" && s.Notifier != nil {
		go s.notify(context.WithoutCancel(ctx), recipientID, msg)
	}

	return &SendResult{Message: msg, ConversationID: conv.ID}, nil
}

// notify runs off the request path so a slow notifier never delays Send.
func (s *Service) notify(ctx context.Context, recipientID string, msg models.Message) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := s.Notifier.NotifyNewMessage(ctx, recipientID, msg); err != nil {
		log.Warn().Err(err).Str("recipient_id", recipientID).Msg("new message notification failed")
	}
}

// StartConversation finds or creates the conversation with the recipient and
// optionally sends a first message.
func (s *Service) StartConversation(ctx context.Context, req StartRequest) (*StartResult, error) {
	if req.SenderID == "" {
		return nil, apperrors.ErrUnauthenticated
	}
	if req.RecipientID == "" {
		return nil, apperrors.ErrMissingRecipient
	}

	conv, err := s.findOrCreate(ctx, req.SenderID, req.RecipientID, req.RecipientName)
	if err != nil {
		return nil, err
	}

	result := &StartResult{}
	if text := strings.TrimSpace(req.InitialMessage); text != "" {
		sent, err := s.Send(ctx, SendRequest{SenderID: req.SenderID, ConversationID: conv.ID, Content: text})
		if err != nil {
			return nil, err
		}
		result.Message = &sent.Message
		conv.LastMessage = sent.Message.Content
		at := sent.Message.CreatedAt
		conv.LastMessageAt = &at
	}
	result.Conversation = *conv
	return result, nil
}

// findOrCreate looks the pair up and inserts a conversation when there is
// none. The two steps are not atomic: concurrent first contact between the
// same two users can create two conversations.
func (s *Service) findOrCreate(ctx context.Context, senderID, recipientID, recipientName string) (*models.Conversation, error) {
	if senderID == recipientID {
		return nil, apperrors.ErrSelfConversation
	}

	existing, err := s.Storage.FindConversationBetween(ctx, senderID, recipientID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := s.refreshRecipientName(ctx, existing, recipientID, recipientName); err != nil {
			return nil, err
		}
		return existing, nil
	}

	senderName, err := s.resolveName(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if names.IsPlaceholder(recipientName) {
		if recipientName, err = s.resolveName(ctx, recipientID); err != nil {
			return nil, err
		}
	}

	conv := &models.Conversation{
		ParticipantIDs: pq.StringArray{senderID, recipientID},
		ParticipantNames: pq.StringArray{
			orFallback(senderName),
			orFallback(recipientName),
		},
	}
	if err := s.Storage.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}

	log.Info().Str("conversation_id", conv.ID).Str("sender_id", senderID).Str("recipient_id", recipientID).
		Msg("conversation created")
	s.publish(ctx, models.ChangeEvent{
		Table:          models.TableConversations,
		Type:           models.ChangeInsert,
		ConversationID: conv.ID,
		ParticipantIDs: conv.ParticipantIDs,
	})
	return conv, nil
}

// refreshRecipientName replaces a placeholder cached name with a real name
// the caller supplied.
func (s *Service) refreshRecipientName(ctx context.Context, conv *models.Conversation, recipientID, recipientName string) error {
	if names.IsPlaceholder(recipientName) {
		return nil
	}
	idx := slices.Index(conv.ParticipantIDs, recipientID)
	if idx < 0 || !names.IsPlaceholder(conv.NameAt(idx)) {
		return nil
	}

	updated := make(pq.StringArray, len(conv.ParticipantIDs))
	for i := range updated {
		updated[i] = conv.NameAt(i)
	}
	updated[idx] = strings.TrimSpace(recipientName)
	if err := s.Storage.UpdateParticipantNames(ctx, conv.ID, updated); err != nil {
		return err
	}
	conv.ParticipantNames = updated
	return nil
}

// DeleteConversation removes a conversation and its messages on behalf of
// one of its participants.
func (s *Service) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	if userID == "" {
		return apperrors.ErrUnauthenticated
	}
	conv, err := s.participantConversation(ctx, userID, conversationID)
	if err != nil {
		return err
	}
	if err := s.Storage.DeleteConversation(ctx, conv.ID); err != nil {
		return err
	}

	log.Info().Str("conversation_id", conv.ID).Str("user_id", userID).Msg("conversation deleted")
	s.publish(ctx, models.ChangeEvent{
		Table:          models.TableConversations,
		Type:           models.ChangeDelete,
		ConversationID: conv.ID,
		ParticipantIDs: conv.ParticipantIDs,
	})
	return nil
}

func orFallback(name string) string {
	if names.IsPlaceholder(name) {
		return config.FallbackDisplayName
	}
	return strings.TrimSpace(name)
}
