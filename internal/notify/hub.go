package notify

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Message types pushed to UI clients.
const (
	TypeSessionOpened = "session.opened"
	TypeSessionClosed = "session.closed"
	TypeAnalysis      = "analysis"
	TypeAlert         = "alert"
	TypeTracking      = "tracking"
	TypeHeartbeat     = "heartbeat"
	TypePong          = "pong"
)

// Message is the envelope of every push.
type Message struct {
	Type      string `json:"type"`
	Payload   any    `json:"payload,omitempty"`
	Timestamp int64  `json:"timestamp"` // unix ms
}

// NewMessage stamps a message with the current time.
func NewMessage(msgType string, payload any) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the API only listens on loopback
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans messages out to connected websocket clients.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}

	mu sync.RWMutex
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns when ctx is cancelled, closing
// every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for id, c := range h.clients {
				c.close()
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("[notify] Client %s connected (%d total)", c.id, n)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				c.close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("[notify] Client %s disconnected (%d total)", c.id, n)

		case data := <-h.broadcast:
			h.mu.RLock()
			for _, c := range h.clients {
				c.enqueue(data)
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast queues msg for every client. It never blocks; when the queue
// is full the message is dropped.
func (h *Hub) Broadcast(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[notify] Failed to marshal %s message: %v", msg.Type, err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		log.Printf("[notify] Broadcast queue full, dropping %s", msg.Type)
	}
}

// Publish is Broadcast with a fresh envelope.
func (h *Hub) Publish(msgType string, payload any) {
	h.Broadcast(NewMessage(msgType, payload))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and attaches a client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[notify] Failed to upgrade connection: %v", err)
		return
	}
	c := newClient(h, conn, uuid.NewString())
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}
