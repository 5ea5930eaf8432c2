// Package ws pushes newly appended pool snapshots to websocket subscribers.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

// client serializes writes; the websocket package forbids concurrent writers
// on one connection.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

// Hub fans snapshot updates out to connected websocket clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends payload as JSON to every connected client.
// Write errors are left to the per-connection read loop to clean up.
func (h *Hub) Broadcast(payload any) {
	h.mu.RLock()
	list := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		list = append(list, c)
	}
	h.mu.RUnlock()

	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, c := range list {
		_ = c.write(websocket.TextMessage, b)
	}
}

// Handler upgrades the request and keeps the connection registered until the
// client goes away. If initial is non-nil its result is sent right after the
// upgrade so subscribers start from the current state.
func (h *Hub) Handler(initial func() (any, bool)) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := &client{conn: conn}

		h.add(c)
		defer func() {
			h.remove(c)
			_ = conn.Close()
		}()

		if initial != nil {
			if payload, ok := initial(); ok {
				if b, err := json.Marshal(payload); err == nil {
					_ = c.write(websocket.TextMessage, b)
				}
			}
		}

		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		done := make(chan struct{})
		defer close(done)
		go func() {
			t := time.NewTicker(pingInterval)
			defer t.Stop()
			for {
				select {
				case <-done:
					return
				case <-t.C:
					_ = c.write(websocket.PingMessage, nil)
				}
			}
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}
