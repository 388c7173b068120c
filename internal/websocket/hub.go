package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

// Event is one entry on the activity feed: a project or task mutation.
type Event struct {
	Type  string    `json:"type"`
	Track string    `json:"track"`
	ID    int       `json:"id"`
	At    time.Time `json:"at"`
}

// Client represents a connected feed subscriber.
type Client struct {
	Conn *websocket.Conn
	Mu   sync.Mutex
}

// Hub manages feed subscribers and fans events out to them.
type Hub struct {
	Clients    map[*Client]bool
	Broadcast  chan []byte
	Register   chan *Client
	Unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Broadcast:  make(chan []byte, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Run drives the hub loop. Meant to run in its own goroutine.
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
		case message := <-h.Broadcast:
			for client := range h.Clients {
				client.Mu.Lock()
				err := client.Conn.WriteMessage(websocket.TextMessage, message)
				client.Mu.Unlock()
				if err != nil {
					delete(h.Clients, client)
					client.Conn.Close()
				}
			}
		}
	}
}

// defaultHub is set once at startup; nil when the feed is not running
// (unit tests, for example), in which case broadcasting is a no-op.
var defaultHub *Hub

// StartHub creates the process-wide hub and starts its loop.
func StartHub() *Hub {
	h := NewHub()
	go h.Run()
	defaultHub = h
	return h
}

// BroadcastEvent publishes a mutation to the activity feed. The send never
// blocks the request path; if the feed is saturated the event is dropped.
func BroadcastEvent(eventType, track string, id int) {
	if defaultHub == nil {
		return
	}
	payload, err := json.Marshal(Event{
		Type:  eventType,
		Track: track,
		ID:    id,
		At:    time.Now().UTC(),
	})
	if err != nil {
		return
	}
	select {
	case defaultHub.Broadcast <- payload:
	default:
	}
}
