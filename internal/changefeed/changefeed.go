// Package changefeed delivers row change notifications for the messages and
// conversations relations.
package changefeed

import (
	"context"
	"encoding/json"

	"farmhub/backend/internal/models"
)

// Source delivers change events until ctx is cancelled, then closes the
// channel.
type Source interface {
	Subscribe(ctx context.Context) (<-chan models.ChangeEvent, error)
}

// Publisher announces a change made by this process.
type Publisher interface {
	Publish(ctx context.Context, ev models.ChangeEvent) error
}

// Feed is both ends of a change channel.
type Feed interface {
	Source
	Publisher
}

// Nop is used when no change channel is configured. Views then rely on
// polling alone.
type Nop struct{}

func (Nop) Publish(context.Context, models.ChangeEvent) error { return nil }

func (Nop) Subscribe(ctx context.Context) (<-chan models.ChangeEvent, error) {
	ch := make(chan models.ChangeEvent)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func decodeEvent(payload string) (models.ChangeEvent, error) {
	var ev models.ChangeEvent
	err := json.Unmarshal([]byte(payload), &ev)
	return ev, err
}

// forward sends ev on out unless ctx ends first.
func forward(ctx context.Context, out chan<- models.ChangeEvent, ev models.ChangeEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
