package notify

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/playbookpilot/api/internal/model"
)

// Publisher fans out state-change events to channel subscribers.
// Publishing is best-effort and never fails the caller.
type Publisher interface {
	Publish(event model.Event)
}

// Client represents a WebSocket subscriber on one channel
type Client struct {
	Channel string
	Conn    *websocket.Conn
	Send    chan []byte
}

// Hub maintains active WebSocket subscriptions grouped by channel name
// (job:<id>, execution:<id>, playbook:<id>).
type Hub struct {
	// Clients grouped by channel
	clients map[string]map[*Client]bool

	// Register requests
	register chan *Client

	// Unregister requests
	unregister chan *Client

	// Broadcast messages to channel subscribers
	broadcast chan *BroadcastMessage
}

// BroadcastMessage represents a message to broadcast
type BroadcastMessage struct {
	Channel string
	Message []byte
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if h.clients[client.Channel] == nil {
				h.clients[client.Channel] = make(map[*Client]bool)
			}
			h.clients[client.Channel][client] = true
			log.Printf("Subscriber registered on %s", client.Channel)

		case client := <-h.unregister:
			if clients, ok := h.clients[client.Channel]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.clients, client.Channel)
					}
				}
			}
			log.Printf("Subscriber unregistered from %s", client.Channel)

		case msg := <-h.broadcast:
			for client := range h.clients[msg.Channel] {
				select {
				case client.Send <- msg.Message:
				default:
					close(client.Send)
					delete(h.clients[msg.Channel], client)
				}
			}
		}
	}
}

// Register adds a new subscriber
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a subscriber
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Publish broadcasts an event to all subscribers of its channel. It never
// blocks: when the broadcast buffer is full the event is dropped and logged.
// Subscribers that connect later will not see it; the record store stays the
// source of truth.
func (h *Hub) Publish(event model.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal %s event for %s: %v", event.Type, event.Channel, err)
		return
	}

	select {
	case h.broadcast <- &BroadcastMessage{Channel: event.Channel, Message: data}:
	default:
		log.Printf("Notification dropped for %s: broadcast buffer full", event.Channel)
	}
}

// HandleConnection handles one WebSocket subscription until the peer closes
func (h *Hub) HandleConnection(c *websocket.Conn, channel string) {
	client := &Client{
		Channel: channel,
		Conn:    c,
		Send:    make(chan []byte, 256),
	}

	h.Register(client)
	defer h.Unregister(client)

	// Start writer goroutine
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				// Send ping for keep-alive
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error on %s: %v", channel, err)
			}
			break
		}

		// Clients only ever send keep-alive pings
		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == "ping" {
			data, _ := json.Marshal(map[string]string{"type": "pong"})
			client.Send <- data
		}
	}
}
