package ws

import (
	"net/http"
	"sync"

	"github.com/buckles/server/internal/logger"
	"github.com/gorilla/websocket"
)

// Event is the payload pushed to a connected client.
type Event struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// client is one registered connection. Gorilla connections allow at most
// one concurrent writer, so every write goes through writeMu.
type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub tracks one websocket connection per username and pushes events to
// them. Delivery is best effort: a user without a live connection simply
// misses the push and reads the notification from the list endpoint.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*client
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewHub creates an empty Hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: log,
	}
}

// Subscribe upgrades the request and registers the connection under
// username, replacing any previous connection for that user.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, username string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{conn: conn}

	h.mu.Lock()
	if old, ok := h.clients[username]; ok {
		_ = old.conn.Close()
	}
	h.clients[username] = c
	h.mu.Unlock()

	// drain reads so close frames are processed; drop the registration
	// when the peer goes away
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(username, c)
				return
			}
		}
	}()
	return nil
}

// Push sends an event to username's connection, if any. Concurrent pushes
// to the same user are serialized on the connection's write lock.
func (h *Hub) Push(username string, event Event) {
	h.mu.RLock()
	c, ok := h.clients[username]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if err := c.writeJSON(event); err != nil {
		h.logger.Debug("websocket push failed", "username", username, "error", err.Error())
		h.drop(username, c)
	}
}

func (h *Hub) drop(username string, c *client) {
	h.mu.Lock()
	if current, ok := h.clients[username]; ok && current == c {
		delete(h.clients, username)
	}
	h.mu.Unlock()
	_ = c.conn.Close()
}
