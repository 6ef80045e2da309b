package livefeed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"votebot/internal/bootstrap/logging"
	"votebot/internal/errs"
	"votebot/internal/ports"
)

const (
	broadcastBuffer = 256
	clientBuffer    = 16
)

var ErrBacklogFull = errors.New("live feed backlog is full")

// Hub fans tally snapshots out to the websocket clients watching each contest.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uint64]map[*client]struct{}
	latest     map[uint64][]byte
	register   chan *client
	unregister chan *client
	broadcast  chan ports.TallySnapshot
	done       chan struct{}
}

var _ ports.TallyFeed = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint64]map[*client]struct{}),
		latest:     make(map[uint64][]byte),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan ports.TallySnapshot, broadcastBuffer),
		done:       make(chan struct{}),
	}
}

// Publish queues a snapshot for delivery without blocking the caller.
func (h *Hub) Publish(ctx context.Context, snapshot ports.TallySnapshot) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	select {
	case h.broadcast <- snapshot:
		return nil
	default:
		return ErrBacklogFull
	}
}

func (h *Hub) Subscribers(contestID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[contestID])
}

// Run processes registrations and broadcasts until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	logCtx := logging.WithComponent(ctx, "livefeed.hub")
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.contestID] == nil {
				h.clients[c.contestID] = make(map[*client]struct{})
			}
			h.clients[c.contestID][c] = struct{}{}
			latest := h.latest[c.contestID]
			h.mu.Unlock()
			if latest != nil && !c.primed {
				h.deliver(c, latest)
			}

		case c := <-h.unregister:
			h.remove(c)

		case snapshot := <-h.broadcast:
			payload, err := json.Marshal(snapshot)
			if err != nil {
				logging.Warn(logCtx, "encode tally snapshot failed", slog.Any("err", errs.Loggable(err)))
				continue
			}

			h.mu.Lock()
			h.latest[snapshot.ContestID] = payload
			targets := make([]*client, 0, len(h.clients[snapshot.ContestID]))
			for c := range h.clients[snapshot.ContestID] {
				targets = append(targets, c)
			}
			h.mu.Unlock()

			for _, c := range targets {
				h.deliver(c, payload)
			}
		}
	}
}

// deliver drops a client whose send buffer is full.
func (h *Hub) deliver(c *client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		h.remove(c)
	}
}

func (h *Hub) join(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[c.contestID]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.clients, c.contestID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for contestID, clients := range h.clients {
		for c := range clients {
			close(c.send)
		}
		delete(h.clients, contestID)
	}
}
