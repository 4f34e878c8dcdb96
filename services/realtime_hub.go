package services

import (
	"log/slog"
	"sync"
)

// ClientConn is the live connection handle stored in the hub. Satisfied by
// *websocket.Conn.
type ClientConn interface {
	WriteJSON(v any) error
	Close() error
}

// Event is the wire shape of every realtime notification.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub maps a user id to at most one live connection. A newer connection for
// the same user replaces the older one (last write wins, no multiplexing).
// Offline recipients are dropped, there is no queuing or replay.
type Hub struct {
	mu     sync.RWMutex
	conns  map[uint]ClientConn
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{conns: make(map[uint]ClientConn), logger: logger}
}

func (h *Hub) Subscribe(userID uint, conn ClientConn) {
	h.mu.Lock()
	old := h.conns[userID]
	h.conns[userID] = conn
	h.mu.Unlock()
	if old != nil && old != conn {
		_ = old.Close()
	}
}

// Unsubscribe removes conn only if it is still the current connection for
// the user, so a stale read loop cannot evict a fresher connection.
func (h *Hub) Unsubscribe(userID uint, conn ClientConn) {
	h.mu.Lock()
	if h.conns[userID] == conn {
		delete(h.conns, userID)
	}
	h.mu.Unlock()
	_ = conn.Close()
}

// Notify pushes an event to the user's connection. Returns false when the
// user is offline or the write fails; a failed connection is evicted.
func (h *Hub) Notify(userID uint, event string, data any) bool {
	h.mu.RLock()
	conn := h.conns[userID]
	h.mu.RUnlock()
	if conn == nil {
		return false
	}
	if err := conn.WriteJSON(Event{Event: event, Data: data}); err != nil {
		if h.logger != nil {
			h.logger.Warn("realtime write failed", slog.Uint64("userId", uint64(userID)), slog.String("error", err.Error()))
		}
		h.Unsubscribe(userID, conn)
		return false
	}
	return true
}
