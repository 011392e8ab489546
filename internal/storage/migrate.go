package storage

import (
	"context"

	"farmhub/backend/internal/models"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NotifyChannel is the postgres NOTIFY channel fed by the change triggers.
const NotifyChannel = "messaging_changes"

const getUserEmailsSQL = `
CREATE OR REPLACE FUNCTION get_user_emails(user_ids text[])
RETURNS TABLE (id text, email text)
LANGUAGE sql STABLE AS $$
    SELECT a.id, a.email FROM auth_identities a WHERE a.id = ANY(user_ids)
$$;`

const notifyFunctionsSQL = `
CREATE OR REPLACE FUNCTION notify_message_change() RETURNS trigger
LANGUAGE plpgsql AS $$
DECLARE
    rec record;
    participants text[];
BEGIN
    IF TG_OP = 'DELETE' THEN rec := OLD; ELSE rec := NEW; END IF;
    SELECT c.participant_ids INTO participants FROM conversations c WHERE c.id = rec.conversation_id;
    PERFORM pg_notify('` + NotifyChannel + `', json_build_object(
        'table', TG_TABLE_NAME,
        'type', TG_OP,
        'conversation_id', rec.conversation_id,
        'participant_ids', participants)::text);
    RETURN NULL;
END;
$$;

CREATE OR REPLACE FUNCTION notify_conversation_change() RETURNS trigger
LANGUAGE plpgsql AS $$
DECLARE
    rec record;
BEGIN
    IF TG_OP = 'DELETE' THEN rec := OLD; ELSE rec := NEW; END IF;
    PERFORM pg_notify('` + NotifyChannel + `', json_build_object(
        'table', TG_TABLE_NAME,
        'type', TG_OP,
        'conversation_id', rec.id,
        'participant_ids', rec.participant_ids)::text);
    RETURN NULL;
END;
$$;

DROP TRIGGER IF EXISTS messages_notify ON messages;
CREATE TRIGGER messages_notify AFTER INSERT OR UPDATE OR DELETE ON messages
    FOR EACH ROW EXECUTE FUNCTION notify_message_change();

DROP TRIGGER IF EXISTS conversations_notify ON conversations;
CREATE TRIGGER conversations_notify AFTER INSERT OR UPDATE OR DELETE ON conversations
    FOR EACH ROW EXECUTE FUNCTION notify_conversation_change();`

// Open connects to PostgreSQL. GORM's own logger is kept at warn level.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "storage.Open")
	}
	return db, nil
}

// Migrate creates the tables, the email lookup procedure and, when
// withTriggers is set, the NOTIFY triggers used by the postgres change feed.
func Migrate(ctx context.Context, db *gorm.DB, withTriggers bool) error {
	tx := db.WithContext(ctx)
	err := tx.AutoMigrate(
		&models.Conversation{},
		&models.Message{},
		&models.Profile{},
		&models.AuthIdentity{},
	)
	if err != nil {
		return errors.Wrap(err, "storage.Migrate.AutoMigrate")
	}

	if err := tx.Exec(getUserEmailsSQL).Error; err != nil {
		return errors.Wrap(err, "storage.Migrate.get_user_emails")
	}

	if withTriggers {
		if err := tx.Exec(notifyFunctionsSQL).Error; err != nil {
			return errors.Wrap(err, "storage.Migrate.triggers")
		}
	}

	log.Info().Bool("triggers", withTriggers).Msg("database migrations complete")
	return nil
}
