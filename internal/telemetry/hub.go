package telemetry

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Path is where the Hub is mounted by the vision server.
const Path = "/telemetry"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // robot and dashboards connect from anywhere on the field network
	},
}

// writeWait bounds a single write to a peer.
const writeWait = 2 * time.Second

// writeValue sends one value to a peer.
var writeValue = func(conn *websocket.Conn, v Value) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

// Hub serves a MemoryTable over websocket. Each connection first receives a
// snapshot of every value, then every change. Values sent by a connection are
// written into the table and relayed to the other connections.
type Hub struct {
	table *MemoryTable

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewHub creates a hub serving table.
func NewHub(table *MemoryTable) *Hub {
	return &Hub{
		table: table,
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Connections returns the number of connected peers.
func (h *Hub) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[telemetry] upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
	log.Printf("[telemetry] peer connected from %s", r.RemoteAddr)

	id, updates := h.table.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for v := range updates {
			if err := writeValue(conn, v); err != nil {
				log.Printf("[telemetry] write to %s failed: %v", r.RemoteAddr, err)
				// unblocks ReadJSON so the peer is dropped now
				conn.Close()
				return
			}
		}
	}()

	// snapshot goes out through the same channel so ordering is preserved
	for _, v := range h.table.Snapshot() {
		select {
		case updates <- v:
		default:
		}
	}

	for {
		var v Value
		if err := conn.ReadJSON(&v); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[telemetry] read from %s: %v", r.RemoteAddr, err)
			}
			break
		}
		if !h.table.Set(v, id) {
			log.Printf("[telemetry] ignoring malformed update from %s", r.RemoteAddr)
		}
	}

	h.table.Unsubscribe(id)
	<-done
	conn.Close()

	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	log.Printf("[telemetry] peer %s disconnected", r.RemoteAddr)
}
