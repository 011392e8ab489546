package config

import "time"

const (
	// FallbackDisplayName is shown when no source knows a participant's name.
	FallbackDisplayName = "Farmer"

	// DefaultPollInterval is how often live views re-fetch regardless of the change feed.
	DefaultPollInterval = 5 * time.Second

	// NotificationPreviewRunes caps the message preview sent in notifications.
	NotificationPreviewRunes = 120
)

// PlaceholderNames are values written by older clients when a name was not
// known. They are compared case-insensitively and never trusted as names.
var PlaceholderNames = []string{
	"unknown",
	"anonymous",
	"farmer",
}

// Change feed kinds accepted in CHANGE_FEED.
const (
	ChangeFeedRedis    = "redis"
	ChangeFeedPostgres = "postgres"
	ChangeFeedNone     = "none"
)
