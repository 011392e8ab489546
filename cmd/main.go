package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"farmhub/backend/internal/api/handler"
	"farmhub/backend/internal/changefeed"
	"farmhub/backend/internal/config"
	"farmhub/backend/internal/livebridge"
	"farmhub/backend/internal/messaging"
	"farmhub/backend/internal/storage"
	"farmhub/backend/internal/telegram"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func setupDependencies(ctx context.Context, cfg *config.Config) (*gorm.DB, changefeed.Feed) {
	db, err := storage.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect PostgreSQL")
	}

	withTriggers := cfg.ChangeFeed == config.ChangeFeedPostgres
	if err := storage.Migrate(ctx, db, withTriggers); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	var feed changefeed.Feed
	switch cfg.ChangeFeed {
	case config.ChangeFeedRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to connect Redis")
		}
		feed = changefeed.NewRedisFeed(rdb)
	case config.ChangeFeedPostgres:
		feed = changefeed.NewPostgresFeed(cfg.DatabaseDSN, storage.NotifyChannel)
	default:
		feed = changefeed.Nop{}
	}

	log.Info().Str("change_feed", cfg.ChangeFeed).Msg("database ready, migrations complete")
	return db, feed
}

func newRouter(cfg *config.Config, h *handler.Handler) *gin.Engine {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	if len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSOrigins
	}
	r.Use(cors.New(corsCfg))

	h.RegisterRoutes(r)
	return r
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	cfg.SetupLogger()
	log.Info().Msg("starting FarmHub messaging backend")

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, feed := setupDependencies(ctx, cfg)
	s := storage.NewStorageService(db)
	svc := messaging.NewService(s, feed)

	if cfg.TelegramBotToken != "" {
		notifier, err := telegram.NewNotifier(cfg.TelegramBotToken, s, cfg.DefaultLanguage)
		if err != nil {
			log.Error().Err(err).Msg("telegram notifications disabled")
		} else {
			svc.SetNotifier(notifier)
		}
	}

	hub := livebridge.NewHub(feed)
	go func() {
		if err := hub.Run(ctx); err != nil {
			log.Error().Err(err).Msg("live hub stopped")
		}
	}()

	h := handler.NewHandler(svc, hub, cfg.JWTSecret, cfg.PollInterval)
	server := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           newRouter(cfg, h),
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.ServerAddr).Msg("listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}
