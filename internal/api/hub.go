// WebSocket hub for the live round feed. The hub keeps a registry of
// connected clients and fans out every broadcast to all of them; the engine
// pushes a message per completed round.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// Message is the JSON envelope for everything sent over the live feed.
type Message struct {
	Type    string `json:"type"` // "round", "event", "status"
	Payload any    `json:"payload"`
}

// Client is one connected observer.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
}

// NewHub creates a hub. Run must be started in a goroutine before use.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run is the hub's event loop. It blocks.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			slog.Info("live feed client connected", "clients", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Full send buffer means a stalled client. Drop it.
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// BroadcastJSON marshals the message and fans it out to every client.
func (h *Hub) BroadcastJSON(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("live feed marshal failed", "error", err)
		return
	}
	h.broadcast <- data
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWs upgrades an HTTP request to a WebSocket connection and attaches it
// to the hub.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256)}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump drains the connection so close frames are processed. Inbound
// messages are ignored; the feed is one-way.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("live feed read error", "error", err)
			}
			break
		}
	}
}

// writePump pumps hub messages to the connection. Exits when send is closed.
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		w, err := c.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)
		if err := w.Close(); err != nil {
			return
		}
	}
}
