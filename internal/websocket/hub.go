package websocket

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/websocket/v2"
)

// Event is a change notification pushed to connected clients so open
// views can refresh their lists.
type Event struct {
	Type       string `json:"type"`
	TaskID     int    `json:"task_id,omitempty"`
	CategoryID int    `json:"category_id,omitempty"`
	UserID     int    `json:"-"`
}

// Conn is the slice of the WebSocket connection the hub writes to.
// *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one WebSocket connection belonging to a user.
type Client struct {
	Conn   Conn
	UserID int
	Mu     sync.Mutex
}

// Hub fans events out to the owning user's connections.
type Hub struct {
	Clients    map[*Client]bool
	Broadcast  chan Event
	Register   chan *Client
	Unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Broadcast:  make(chan Event, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Publish enqueues an event without blocking. Events are dropped when
// the hub is not running or the buffer is full; clients resync on the
// next fetch anyway.
func (h *Hub) Publish(e Event) {
	select {
	case h.Broadcast <- e:
	default:
	}
}

// Run processes register, unregister and broadcast events. Dead
// connections are removed inline; re-queueing them through Unregister
// from this goroutine would deadlock.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.Clients[client] = true
		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				client.Conn.Close()
			}
		case event := <-h.Broadcast:
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			for client := range h.Clients {
				if client.UserID != event.UserID {
					continue
				}
				client.Mu.Lock()
				err := client.Conn.WriteMessage(websocket.TextMessage, payload)
				client.Mu.Unlock()
				if err != nil {
					delete(h.Clients, client)
					client.Conn.Close()
				}
			}
		}
	}
}
