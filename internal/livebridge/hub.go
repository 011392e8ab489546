package livebridge

import (
	"context"
	"sync"

	"farmhub/backend/internal/changefeed"
	"farmhub/backend/internal/models"

	"github.com/rs/zerolog/log"
)

// Hub tracks the connected clients and fans change events out to them.
type Hub struct {
	mu      sync.RWMutex
	Clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client

	Source changefeed.Source

	done chan struct{}
}

func NewHub(source changefeed.Source) *Hub {
	if source == nil {
		source = changefeed.Nop{}
	}
	return &Hub{
		Clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		Source:       source,
		done:         make(chan struct{}),
	}
}

// Run serves registrations and change events until ctx is cancelled, then
// closes every remaining client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	// Without a feed, live views still refresh on their poll interval.
	events, err := h.Source.Subscribe(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("change feed unavailable, falling back to polling")
		events = nil
	}
	log.Info().Msg("live hub started")

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			log.Info().Msg("live hub stopped")
			return nil

		case c := <-h.RegisterCh:
			h.mu.Lock()
			h.Clients[c.GetID()] = c
			h.mu.Unlock()
			log.Debug().Str("client_id", c.GetID()).Str("user_id", c.GetUserID()).Msg("client registered")

		case c := <-h.UnregisterCh:
			h.mu.Lock()
			_, ok := h.Clients[c.GetID()]
			delete(h.Clients, c.GetID())
			h.mu.Unlock()
			if ok {
				c.Close()
				log.Debug().Str("client_id", c.GetID()).Msg("client unregistered")
			}

		case ev, ok := <-events:
			if !ok {
				// Feed ended early; views keep polling.
				log.Warn().Msg("change feed closed, falling back to polling")
				events = nil
				continue
			}
			h.dispatch(ev)
		}
	}
}

func (h *Hub) dispatch(ev models.ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.Clients {
		if ev.Concerns(c.GetUserID()) {
			c.Notify(ev)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := h.Clients
	h.Clients = make(map[string]Client)
	h.mu.Unlock()
	for _, c := range clients {
		c.Close()
	}
}

// Register adds c unless the hub has stopped. It reports whether c was
// handed to the hub.
func (h *Hub) Register(c Client) bool {
	select {
	case h.RegisterCh <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes and closes c. After the hub stopped it only closes c.
func (h *Hub) Unregister(c Client) {
	select {
	case h.UnregisterCh <- c:
	case <-h.done:
		c.Close()
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.Clients)
}

func (h *Hub) HasClient(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.Clients[id]
	return ok
}
