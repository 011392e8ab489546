package changefeed

import (
	"context"
	"time"

	"farmhub/backend/internal/models"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
	listenerPingInterval = 90 * time.Second
)

// PostgresFeed listens to NOTIFY messages emitted by row triggers. The
// database announces every change itself, so Publish does nothing.
type PostgresFeed struct {
	DSN     string
	Channel string
}

func NewPostgresFeed(dsn, channel string) *PostgresFeed {
	return &PostgresFeed{DSN: dsn, Channel: channel}
}

func (f *PostgresFeed) Publish(context.Context, models.ChangeEvent) error { return nil }

func (f *PostgresFeed) Subscribe(ctx context.Context) (<-chan models.ChangeEvent, error) {
	listener := pq.NewListener(f.DSN, minReconnectInterval, maxReconnectInterval,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Warn().Err(err).Int("event", int(ev)).Msg("postgres change listener")
			}
		})
	if err := listener.Listen(f.Channel); err != nil {
		listener.Close()
		return nil, errors.Wrap(err, "changefeed.PostgresFeed.Subscribe")
	}

	out := make(chan models.ChangeEvent)
	go func() {
		defer close(out)
		defer listener.Close()

		ticker := time.NewTicker(listenerPingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case n := <-listener.Notify:
				// A nil notification means the connection was re-established
				// and notifications may have been lost.
				ev := models.ChangeEvent{Type: models.ChangeResync}
				if n != nil {
					var err error
					if ev, err = decodeEvent(n.Extra); err != nil {
						log.Warn().Err(err).Msg("dropping malformed change notification")
						continue
					}
				}
				if !forward(ctx, out, ev) {
					return
				}
			case <-ticker.C:
				if err := listener.Ping(); err != nil {
					log.Warn().Err(err).Msg("postgres change listener ping failed")
				}
			}
		}
	}()
	return out, nil
}
