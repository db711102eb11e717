package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/storefront-preview/previewkit/internal/logging"
)

// ReloadMessage is the payload pushed to connected browsers when theme
// files change.
type ReloadMessage struct {
	Type      string    `json:"type"`
	Target    string    `json:"target,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const writeTimeout = 5 * time.Second

// Hub tracks live-reload websocket connections and broadcasts reload
// messages to all of them.
type Hub struct {
	logger logging.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewHub creates an empty broadcast hub.
func NewHub(logger logging.Logger) *Hub {
	return &Hub{
		logger: logger.WithComponent("livereload"),
		conns:  make(map[*websocket.Conn]struct{}),
	}
}

// Handle upgrades the request and parks the connection until the client
// disconnects. The preview is same-origin local tooling, so cross-origin
// checks are relaxed.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "websocket accept failed")
		return
	}

	h.add(conn)
	defer h.remove(conn)

	// Reads are drained only to detect the close.
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

// Broadcast sends a reload message to every connection. Dead connections
// are dropped.
func (h *Hub) Broadcast(ctx context.Context, msg ReloadMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}

	for _, conn := range h.snapshot() {
		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := conn.Write(writeCtx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			h.remove(conn)
			_ = conn.Close(websocket.StatusGoingAway, "write failed")
		}
	}
}

// ConnectionCount returns the number of connected clients.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// CloseAll disconnects every client, normally at shutdown.
func (h *Hub) CloseAll() {
	for _, conn := range h.snapshot() {
		h.remove(conn)
		_ = conn.Close(websocket.StatusNormalClosure, "server shutting down")
	}
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

func (h *Hub) snapshot() []*websocket.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		out = append(out, c)
	}
	return out
}
