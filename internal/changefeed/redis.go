package changefeed

import (
	"context"
	"encoding/json"

	"farmhub/backend/internal/models"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisChannel is the pub/sub channel used by RedisFeed.
const RedisChannel = "messaging:changes"

// RedisFeed broadcasts change events between server instances over Redis
// pub/sub. Writers publish explicitly after each change.
type RedisFeed struct {
	Redis   *redis.Client
	Channel string
}

func NewRedisFeed(rdb *redis.Client) *RedisFeed {
	return &RedisFeed{Redis: rdb, Channel: RedisChannel}
}

func (f *RedisFeed) Publish(ctx context.Context, ev models.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := f.Redis.Publish(ctx, f.Channel, payload).Err(); err != nil {
		return errors.Wrap(err, "changefeed.RedisFeed.Publish")
	}
	return nil
}

func (f *RedisFeed) Subscribe(ctx context.Context) (<-chan models.ChangeEvent, error) {
	pubsub := f.Redis.Subscribe(ctx, f.Channel)
	// Wait for the subscription confirmation so errors surface here.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, errors.Wrap(err, "changefeed.RedisFeed.Subscribe")
	}

	out := make(chan models.ChangeEvent)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ev, err := decodeEvent(msg.Payload)
				if err != nil {
					log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed change event")
					continue
				}
				if !forward(ctx, out, ev) {
					return
				}
			}
		}
	}()
	return out, nil
}
