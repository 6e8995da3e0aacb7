package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"TuneCrate/core/ingest"
	"TuneCrate/logger"
	"TuneCrate/model"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ProgressHub fans ingestion progress updates out to websocket subscribers,
// one subscriber list per admin user.
type ProgressHub struct {
	mu    sync.Mutex
	conns map[int64][]*websocket.Conn
}

// NewProgressHub creates an empty hub.
func NewProgressHub() *ProgressHub {
	return &ProgressHub{conns: make(map[int64][]*websocket.Conn)}
}

// Subscribe registers a connection for the given user.
func (h *ProgressHub) Subscribe(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[userID] = append(h.conns[userID], conn)
	h.mu.Unlock()
}

// Unsubscribe drops a connection.
func (h *ProgressHub) Unsubscribe(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.conns[userID]
	for i, c := range list {
		if c == conn {
			h.conns[userID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}

// Publish sends an update to every subscriber of the given user. Broken
// connections are dropped.
func (h *ProgressHub) Publish(userID int64, update ingest.ProgressUpdate) {
	h.mu.Lock()
	list := append([]*websocket.Conn(nil), h.conns[userID]...)
	h.mu.Unlock()

	for _, conn := range list {
		if err := conn.WriteJSON(update); err != nil {
			logger.Debug("Dropping progress subscriber", logger.ErrorField(err))
			conn.Close()
			h.Unsubscribe(userID, conn)
		}
	}
}

// ProgressWSHandler upgrades to a websocket carrying per-item progress
// updates for the caller's batch. Browsers cannot set headers on websocket
// requests, so the token travels in the query string.
func (h *APIHandler) ProgressWSHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusUnauthorized, "token query parameter is required")
		return
	}

	claims, err := h.tokens.Parse(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	if claims.Role != model.RoleAdmin {
		writeError(w, http.StatusForbidden, "Admin role required")
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	h.hub.Subscribe(claims.UserID, conn)
	logger.Debug("Progress subscriber connected", logger.Int64("userId", claims.UserID))

	// Reads are discarded; the socket exists to push updates. The read loop
	// detects the client going away.
	go func() {
		defer func() {
			h.hub.Unsubscribe(claims.UserID, conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
