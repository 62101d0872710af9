package devserver

import (
	"context"
	"sync"
	"time"

	"pkt.systems/parley/internal/protocol"
	"pkt.systems/pslog"
)

const logoutWriteTimeout = 5 * time.Second

// Hub tracks authenticated event sockets by session token.
type Hub struct {
	mu     sync.Mutex
	conns  map[string]map[string]*wsConn
	logger pslog.Logger
}

// NewHub constructs a Hub.
func NewHub(logger pslog.Logger) *Hub {
	if logger == nil {
		logger = pslog.LoggerFromEnv()
	}
	return &Hub{conns: make(map[string]map[string]*wsConn), logger: logger}
}

// Register adds an authenticated socket.
func (h *Hub) Register(conn *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	byID := h.conns[conn.token]
	if byID == nil {
		byID = make(map[string]*wsConn)
		h.conns[conn.token] = byID
	}
	byID[conn.id] = conn
}

// Unregister removes a socket.
func (h *Hub) Unregister(conn *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	byID := h.conns[conn.token]
	if byID == nil {
		return
	}
	delete(byID, conn.id)
	if len(byID) == 0 {
		delete(h.conns, conn.token)
	}
}

// Revoke sends Logout to every socket of a session token and closes them.
// It returns the number of sockets notified.
func (h *Hub) Revoke(ctx context.Context, token string) int {
	h.mu.Lock()
	byID := h.conns[token]
	delete(h.conns, token)
	h.mu.Unlock()

	for _, conn := range byID {
		sendCtx, cancel := context.WithTimeout(ctx, logoutWriteTimeout)
		if err := conn.Send(sendCtx, protocol.Event{Type: protocol.EventLogout}); err != nil {
			h.logger.Debug("logout push failed", "conn", conn.id, "err", err)
		}
		cancel()
		_ = conn.Close("session revoked")
	}
	if len(byID) > 0 {
		h.logger.Info("session revoked", "sockets", len(byID))
	}
	return len(byID)
}

// Online reports whether userID has at least one socket.
func (h *Hub) Online(userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, byID := range h.conns {
		for _, conn := range byID {
			if conn.userID == userID {
				return true
			}
		}
	}
	return false
}

// Count returns the number of sockets for a session token.
func (h *Hub) Count(token string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[token])
}
