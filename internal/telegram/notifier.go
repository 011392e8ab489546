// Package telegram forwards new-message notifications to recipients who
// linked a Telegram chat to their profile.
package telegram

import (
	"context"
	"strings"
	"unicode/utf8"

	"farmhub/backend/internal/config"
	"farmhub/backend/internal/localization"
	"farmhub/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Sender is the part of *tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// ProfileLookup finds recipients' Telegram chats and languages.
type ProfileLookup interface {
	ProfilesByIDs(ctx context.Context, ids []string) ([]models.Profile, error)
}

type Notifier struct {
	Bot             Sender
	Profiles        ProfileLookup
	Localizer       *localization.Localizer
	DefaultLanguage string
}

// NewNotifier authorizes the bot and loads the bundled translations.
func NewNotifier(token string, profiles ProfileLookup, defaultLanguage string) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to authorize telegram bot")
	}
	bot.Debug = false
	log.Info().Str("bot", bot.Self.UserName).Msg("telegram bot authorized")

	localizer, err := localization.NewLocalizer()
	if err != nil {
		return nil, err
	}
	return &Notifier{
		Bot:             bot,
		Profiles:        profiles,
		Localizer:       localizer,
		DefaultLanguage: defaultLanguage,
	}, nil
}

// NotifyNewMessage sends msg's preview to recipientID's Telegram chat. Users
// without a linked chat are skipped.
func (n *Notifier) NotifyNewMessage(ctx context.Context, recipientID string, msg models.Message) error {
	profiles, err := n.Profiles.ProfilesByIDs(ctx, []string{recipientID})
	if err != nil {
		return errors.Wrap(err, "failed to look up recipient profile")
	}

	var recipient *models.Profile
	for i := range profiles {
		if profiles[i].ID == recipientID {
			recipient = &profiles[i]
			break
		}
	}
	if recipient == nil || recipient.TelegramChatID == nil {
		return nil
	}

	lang := recipient.Language
	if lang == "" {
		lang = n.DefaultLanguage
	}

	tgMsg := tgbotapi.NewMessage(*recipient.TelegramChatID, n.render(lang, msg))
	if _, err := n.Bot.Send(tgMsg); err != nil {
		return errors.Wrapf(err, "failed to send telegram message to chat %d", *recipient.TelegramChatID)
	}
	log.Debug().Str("recipient_id", recipientID).Str("conversation_id", msg.ConversationID).Msg("telegram notification sent")
	return nil
}

func (n *Notifier) render(lang string, msg models.Message) string {
	sender := msg.SenderName
	if sender == "" {
		sender = config.FallbackDisplayName
	}

	args := map[string]string{"sender": sender}
	key := "new_message_no_preview"
	if p := preview(msg.Content, config.NotificationPreviewRunes); p != "" {
		args["preview"] = p
		key = "new_message"
	}
	return n.Localizer.Format(lang, key, args) + "\n\n" + n.Localizer.GetString(lang, "open_app")
}

// preview shortens text to at most limit runes, marking the cut.
func preview(text string, limit int) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}
