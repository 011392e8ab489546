package main

import (
	"context"
	"fmt"
	"os"

	"farmhub/backend/internal/api/handler"
	"farmhub/backend/internal/config"
	"farmhub/backend/internal/messaging"
	"farmhub/backend/internal/storage"

	"github.com/rs/zerolog/log"
)

const usage = `Usage: admin <command> [args]

Commands:
  token <user_id>                               issue an API token
  unread <user_id>                              print a user's unread count
  mark-read <conversation_id> <user_id>         mark a conversation read for a user
  delete-conversation <conversation_id> <user_id>
                                                delete a conversation on a participant's behalf
  migrate                                       create or update the schema`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	cfg.SetupLogger()

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	ctx := context.Background()
	command := os.Args[1]

	// token needs no database.
	if command == "token" {
		requireArgs(3, "admin token <user_id>")
		if cfg.JWTSecret == "" {
			log.Fatal().Msg("JWT_SECRET is not set")
		}
		token, err := handler.IssueToken([]byte(cfg.JWTSecret), os.Args[2], cfg.TokenTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("error issuing token")
		}
		fmt.Println(token)
		return
	}

	db, err := storage.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	// No change feed: live views pick admin changes up by polling.
	svc := messaging.NewService(storage.NewStorageService(db), nil)

	switch command {
	case "unread":
		requireArgs(3, "admin unread <user_id>")
		n, err := svc.UnreadCount(ctx, os.Args[2])
		if err != nil {
			log.Fatal().Err(err).Msg("error counting unread messages")
		}
		fmt.Printf("User %s has %d unread messages.\n", os.Args[2], n)
	case "mark-read":
		requireArgs(4, "admin mark-read <conversation_id> <user_id>")
		n, err := svc.MarkAsRead(ctx, os.Args[3], os.Args[2])
		if err != nil {
			log.Fatal().Err(err).Msg("error marking conversation as read")
		}
		fmt.Printf("Marked %d messages in %s as read.\n", n, os.Args[2])
	case "delete-conversation":
		requireArgs(4, "admin delete-conversation <conversation_id> <user_id>")
		if err := svc.DeleteConversation(ctx, os.Args[3], os.Args[2]); err != nil {
			log.Fatal().Err(err).Msg("error deleting conversation")
		}
		fmt.Printf("Conversation %s has been deleted.\n", os.Args[2])
	case "migrate":
		withTriggers := cfg.ChangeFeed == config.ChangeFeedPostgres
		if err := storage.Migrate(ctx, db, withTriggers); err != nil {
			log.Fatal().Err(err).Msg("error running migrations")
		}
		fmt.Println("Schema is up to date.")
	default:
		fmt.Println("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}
}

func requireArgs(n int, form string) {
	if len(os.Args) != n {
		fmt.Println("Usage: " + form)
		os.Exit(1)
	}
}
