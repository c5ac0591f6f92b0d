package web

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub tracks the browser connections of the local session and fans
// outbound messages to all of them.
type Hub struct {
	mu          sync.RWMutex
	connections map[*Connection]bool
}

func NewHub() *Hub {
	return &Hub{connections: make(map[*Connection]bool)}
}

func (h *Hub) Register(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = true
}

func (h *Hub) Unregister(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connections, c)
}

// Broadcast sends msg to every connected client.
func (h *Hub) Broadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Web] marshal broadcast: %v", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.connections {
		if err := c.send(websocket.TextMessage, data); err != nil {
			log.Printf("[Web] write to client: %v", err)
		}
	}
}
