package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/drape/internal/app"
	"github.com/ayusman/drape/internal/logging"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

const (
	// broadcastInterval is how often the latest snapshot is checked.
	broadcastInterval = 16 * time.Millisecond
	writeTimeout      = time.Second
)

// SnapshotSource provides the most recently published pipeline result.
type SnapshotSource interface {
	Latest() *app.Snapshot
}

// MeshHandler broadcasts each new deformed-mesh snapshot to WebSocket
// clients. Clients that fall behind only ever receive the newest one.
type MeshHandler struct {
	source  SnapshotSource
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex

	done      chan struct{}
	closeOnce sync.Once
}

// NewMeshHandler creates a MeshHandler and starts its broadcast loop.
func NewMeshHandler(source SnapshotSource) *MeshHandler {
	h := &MeshHandler{
		source:  source,
		clients: make(map[*websocket.Conn]bool),
		done:    make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests. The current snapshot is
// sent immediately on connect.
func (h *MeshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.For("server").Warn("websocket upgrade", "err", err)
		return
	}
	defer conn.Close()

	if snap := h.source.Latest(); snap != nil {
		if msg, err := json.Marshal(snap); err == nil {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *MeshHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the broadcast loop. Connected clients are left to the
// HTTP server's shutdown.
func (h *MeshHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// broadcast sends every snapshot with a new sequence number to all clients.
func (h *MeshHandler) broadcast() {
	ticker := time.NewTicker(broadcastInterval)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
		}

		if h.Clients() == 0 {
			continue
		}

		snap := h.source.Latest()
		if snap == nil || snap.Seq == lastSeq {
			continue
		}
		lastSeq = snap.Seq

		msg, err := json.Marshal(snap)
		if err != nil {
			logging.For("server").Error("encode snapshot", "seq", snap.Seq, "err", err)
			continue
		}

		h.mu.RLock()
		for conn := range h.clients {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				// the read loop in ServeHTTP removes the client
				conn.Close()
			}
		}
		h.mu.RUnlock()
	}
}
