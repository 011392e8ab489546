package storage

import (
	"context"

	"farmhub/backend/internal/apperrors"
	"farmhub/backend/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Storage is the relational backend of the messaging subsystem.
type Storage interface {
	ListConversations(ctx context.Context, userID string) ([]models.Conversation, error)
	GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error)
	FindConversationBetween(ctx context.Context, userA, userB string) (*models.Conversation, error)
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	UpdateParticipantNames(ctx context.Context, conversationID string, names []string) error
	DeleteConversation(ctx context.Context, conversationID string) error

	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	AppendMessage(ctx context.Context, msg *models.Message) error
	RecentSenderNames(ctx context.Context, conversationIDs []string) ([]models.SenderName, error)

	ProfilesByIDs(ctx context.Context, ids []string) ([]models.Profile, error)
	EmailsByIDs(ctx context.Context, ids []string) (map[string]string, error)

	CountUnread(ctx context.Context, userID string) (int64, error)
	UnreadByConversation(ctx context.Context, userID string) (map[string]int64, error)
	MarkAsRead(ctx context.Context, conversationID, readerID string) (int64, error)
}

type Service struct {
	DB *gorm.DB
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// ListConversations returns the conversations userID takes part in, most
// recently active first. Conversations without messages come last.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := s.DB.WithContext(ctx).
		Where("? = ANY(participant_ids)", userID).
		Order("last_message_at DESC NULLS LAST").
		Order("created_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, errors.Wrap(err, "storage.ListConversations")
	}
	return convs, nil
}

// GetConversation returns apperrors.ErrConversationNotFound for unknown ids,
// including ids that are not UUIDs at all.
func (s *Service) GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	if _, err := uuid.Parse(conversationID); err != nil {
		return nil, apperrors.ErrConversationNotFound
	}
	var conv models.Conversation
	err := s.DB.WithContext(ctx).Where("id = ?", conversationID).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrConversationNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "storage.GetConversation")
	}
	return &conv, nil
}

// FindConversationBetween returns the conversation holding exactly userA and
// userB in either order, or nil when there is none.
func (s *Service) FindConversationBetween(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.DB.WithContext(ctx).
		Where("participant_ids @> ?", pq.StringArray{userA, userB}).
		Where("cardinality(participant_ids) = 2").
		Order("created_at ASC").
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "storage.FindConversationBetween")
	}
	return &conv, nil
}

func (s *Service) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	if err := s.DB.WithContext(ctx).Create(conv).Error; err != nil {
		return errors.Wrap(err, "storage.CreateConversation")
	}
	return nil
}

func (s *Service) UpdateParticipantNames(ctx context.Context, conversationID string, names []string) error {
	err := s.DB.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update("participant_names", pq.StringArray(names)).Error
	if err != nil {
		return errors.Wrap(err, "storage.UpdateParticipantNames")
	}
	return nil
}

// DeleteConversation removes the conversation and all of its messages.
func (s *Service) DeleteConversation(ctx context.Context, conversationID string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", conversationID).Delete(&models.Conversation{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrConversationNotFound
		}
		return nil
	})
	if errors.Is(err, apperrors.ErrConversationNotFound) {
		return err
	}
	if err != nil {
		return errors.Wrap(err, "storage.DeleteConversation")
	}
	return nil
}

// ListMessages returns the full history of a conversation, oldest first.
func (s *Service) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	var msgs []models.Message
	err := s.DB.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, errors.Wrap(err, "storage.ListMessages")
	}
	return msgs, nil
}

// AppendMessage inserts msg and moves the conversation's last-message
// projection to it in one transaction. A missing conversation rolls the
// insert back and yields apperrors.ErrConversationNotFound.
func (s *Service) AppendMessage(ctx context.Context, msg *models.Message) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Updates(map[string]interface{}{
				"last_message":    msg.Content,
				"last_message_at": msg.CreatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrConversationNotFound
		}
		return nil
	})
	if errors.Is(err, apperrors.ErrConversationNotFound) {
		return err
	}
	if err != nil {
		return errors.Wrap(err, "storage.AppendMessage")
	}
	return nil
}

// RecentSenderNames returns each distinct (sender, name) pair used in the
// given conversations once, ordered by its newest use first.
func (s *Service) RecentSenderNames(ctx context.Context, conversationIDs []string) ([]models.SenderName, error) {
	if len(conversationIDs) == 0 {
		return nil, nil
	}
	latest := s.DB.Model(&models.Message{}).
		Select("DISTINCT ON (sender_id, sender_name) sender_id, sender_name, created_at").
		Where("conversation_id IN ?", conversationIDs).
		Where("sender_name IS NOT NULL AND sender_name <> ''").
		Order("sender_id, sender_name, created_at DESC")

	var rows []models.SenderName
	err := s.DB.WithContext(ctx).Table("(?) AS latest", latest).
		Select("sender_id, sender_name").
		Order("created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "storage.RecentSenderNames")
	}
	return rows, nil
}

func (s *Service) ProfilesByIDs(ctx context.Context, ids []string) ([]models.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var profiles []models.Profile
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, errors.Wrap(err, "storage.ProfilesByIDs")
	}
	return profiles, nil
}

// EmailsByIDs resolves identifiers to email addresses through the
// get_user_emails procedure, bypassing the profiles table.
func (s *Service) EmailsByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	var rows []struct {
		ID    string
		Email string
	}
	err := s.DB.WithContext(ctx).
		Raw("SELECT id, email FROM get_user_emails(?)", pq.Array(ids)).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "storage.EmailsByIDs")
	}
	emails := make(map[string]string, len(rows))
	for _, row := range rows {
		emails[row.ID] = row.Email
	}
	return emails, nil
}

func (s *Service) unreadQuery(ctx context.Context, userID string) *gorm.DB {
	return s.DB.WithContext(ctx).Model(&models.Message{}).
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("? = ANY(conversations.participant_ids)", userID).
		Where("messages.read = ?", false).
		Where("messages.sender_id <> ?", userID)
}

// CountUnread counts unread messages sent to userID across all of their
// conversations. The user's own messages never count.
func (s *Service) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int64
	if err := s.unreadQuery(ctx, userID).Count(&n).Error; err != nil {
		return 0, errors.Wrap(err, "storage.CountUnread")
	}
	return n, nil
}

func (s *Service) UnreadByConversation(ctx context.Context, userID string) (map[string]int64, error) {
	var rows []struct {
		ConversationID string
		Unread         int64
	}
	err := s.unreadQuery(ctx, userID).
		Select("messages.conversation_id, count(*) AS unread").
		Group("messages.conversation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "storage.UnreadByConversation")
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.ConversationID] = row.Unread
	}
	return counts, nil
}

// MarkAsRead flags every message in the conversation not sent by readerID as
// read and returns how many rows changed.
func (s *Service) MarkAsRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ?", conversationID).
		Where("sender_id <> ?", readerID).
		Where("read = ?", false).
		Update("read", true)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "storage.MarkAsRead")
	}
	return res.RowsAffected, nil
}
