package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// writeWait bounds a single write to a client.
const writeWait = 2 * time.Second

// Event is a recognition outcome pushed to WebSocket clients.
type Event struct {
	Type          string  `json:"type"`
	Label         string  `json:"label,omitempty"`
	ExampleID     string  `json:"example_id,omitempty"`
	LogLikelihood float64 `json:"log_likelihood"`
	Threshold     float64 `json:"threshold"`
	Symbols       []int   `json:"symbols,omitempty"`
	States        []int   `json:"states,omitempty"`
	Timestamp     int64   `json:"timestamp"`
}

// Event types.
const (
	EventRecognized = "recognized"
	EventRejected   = "rejected"
	EventAction     = "action"
)

// EventHub broadcasts events to every connected WebSocket client.
type EventHub struct {
	clients map[*websocket.Conn]*sync.Mutex
	mu      sync.RWMutex
}

// NewEventHub creates an EventHub with no clients.
func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// ServeHTTP upgrades the request and keeps the client registered until it
// disconnects.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	h.mu.Unlock()

	defer h.remove(conn)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Publish sends ev to all clients. Clients whose write fails are dropped.
func (h *EventHub) Publish(ev Event) {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		log.Printf("Failed to encode event: %v", err)
		return
	}

	h.mu.RLock()
	var failed []*websocket.Conn
	for conn, wmu := range h.clients {
		wmu.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			failed = append(failed, conn)
		}
		wmu.Unlock()
	}
	h.mu.RUnlock()

	for _, conn := range failed {
		h.remove(conn)
		conn.Close()
	}
}

// Clients returns the number of connected clients.
func (h *EventHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *EventHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}
