package notifications

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Hub tracks connected websocket clients per user and pushes serialized
// notifications to them. A user may hold several connections (tabs,
// devices); all of them receive every push.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}
	logger  *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; ok {
		delete(set, c)
		close(c.send)
	}
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
}

// Push delivers payload to every connection of the user. Slow clients
// are dropped rather than blocking the caller.
func (h *Hub) Push(userID uuid.UUID, payload []byte) {
	h.mu.RLock()
	set := h.clients[userID]
	stale := make([]*Client, 0)
	for c := range set {
		select {
		case c.send <- payload:
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range stale {
		h.logger.Warn("dropping slow websocket client", zap.String("user_id", userID.String()))
		h.remove(c)
		_ = c.conn.Close()
	}
}
