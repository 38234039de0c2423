package streaming

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/bothive/bothive/internal/bot/logs"
	"github.com/bothive/bothive/internal/common/logger"
)

// Hub tracks log-following clients per user and runs one tailer per user
// with at least one follower.
type Hub struct {
	paths  *logs.Paths
	logger *logger.Logger

	mu      sync.Mutex
	byUser  map[string]map[*Client]bool
	tailers map[string]*tailer
	closed  bool
}

// NewHub creates a streaming hub over the per-user log files.
func NewHub(paths *logs.Paths, log *logger.Logger) *Hub {
	return &Hub{
		paths:   paths,
		logger:  log.WithFields(zap.String("component", "log-streaming")),
		byUser:  make(map[string]map[*Client]bool),
		tailers: make(map[string]*tailer),
	}
}

// NewClient registers a WebSocket connection following one user's log and
// returns the client whose pumps the caller must run.
func (h *Hub) NewClient(conn *websocket.Conn, userID string) *Client {
	c := &Client{
		hub:    h,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 64),
		logger: h.logger.WithUserID(userID),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(c.send)
		return c
	}

	if h.byUser[userID] == nil {
		h.byUser[userID] = make(map[*Client]bool)
	}
	h.byUser[userID][c] = true

	if _, ok := h.tailers[userID]; !ok {
		t := newTailer(h, userID, h.paths.LogPath(userID))
		h.tailers[userID] = t
		go t.run()
	}

	return c
}

// Unregister removes a client; the user's tailer stops once no followers
// remain.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.byUser[c.userID]
	if !ok || !clients[c] {
		return
	}
	delete(clients, c)
	close(c.send)

	if len(clients) == 0 {
		delete(h.byUser, c.userID)
		if t, ok := h.tailers[c.userID]; ok {
			t.stop()
			delete(h.tailers, c.userID)
		}
	}
}

// broadcast fans a log chunk out to every follower of the user. Delivery
// happens under the hub lock: Unregister and Close close a client's send
// channel under the same lock, so a send can never race the close. deliver
// never blocks, keeping the critical section short.
func (h *Hub) broadcast(userID string, chunk []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.byUser[userID] {
		if !c.deliver(chunk) {
			h.logger.Debug("dropped log chunk for slow client",
				zap.String("user_id", userID))
		}
	}
}

// Close stops all tailers and disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for userID, t := range h.tailers {
		t.stop()
		delete(h.tailers, userID)
	}
	for userID, clients := range h.byUser {
		for c := range clients {
			close(c.send)
		}
		delete(h.byUser, userID)
	}
}
