// Package config loads the service configuration from the environment, an
// optional .env file and an optional YAML file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds everything the server and the admin CLI need to start.
type Config struct {
	ServerAddr string

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string
	TokenTTL  time.Duration

	PollInterval time.Duration
	ChangeFeed   string

	TelegramBotToken string
	DefaultLanguage  string

	CORSOrigins []string

	LogLevel  string
	LogPretty bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("database_dsn", "host=localhost user=user password=password dbname=farmhub port=5432 sslmode=disable")
	v.SetDefault("redis_addr", "localhost:6380")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", "72h")
	v.SetDefault("poll_interval", DefaultPollInterval.String())
	v.SetDefault("change_feed", ChangeFeedRedis)
	v.SetDefault("telegram_bot_token", "")
	v.SetDefault("default_language", "en")
	v.SetDefault("cors_origins", "*")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
}

// Load reads the configuration. A missing .env file is not an error; a
// missing file named by CONFIG_FILE is.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file loaded")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	return parse(v)
}

func parse(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ServerAddr:       v.GetString("server_addr"),
		DatabaseDSN:      v.GetString("database_dsn"),
		RedisAddr:        v.GetString("redis_addr"),
		RedisPassword:    v.GetString("redis_password"),
		RedisDB:          v.GetInt("redis_db"),
		JWTSecret:        v.GetString("jwt_secret"),
		TokenTTL:         v.GetDuration("token_ttl"),
		PollInterval:     v.GetDuration("poll_interval"),
		ChangeFeed:       strings.ToLower(strings.TrimSpace(v.GetString("change_feed"))),
		TelegramBotToken: v.GetString("telegram_bot_token"),
		DefaultLanguage:  v.GetString("default_language"),
		LogLevel:         v.GetString("log_level"),
		LogPretty:        v.GetBool("log_pretty"),
	}

	for _, origin := range strings.Split(v.GetString("cors_origins"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	switch cfg.ChangeFeed {
	case ChangeFeedRedis, ChangeFeedPostgres, ChangeFeedNone:
	default:
		return nil, fmt.Errorf("unknown change feed %q", cfg.ChangeFeed)
	}

	return cfg, nil
}
