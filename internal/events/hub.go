package events

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// wsFrame is the invalidation message pushed to UI clients.
type wsFrame struct {
	Type   string   `json:"type"`
	Tables []string `json:"tables,omitempty"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes to the connection
}

func (c *client) write(frame wsFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(frame)
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// Hub broadcasts table-change notifications from the Bus to every connected
// WebSocket client so the UI can re-run its live queries.
type Hub struct {
	logger   *log.Logger
	bus      *Bus
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewHub creates a hub bound to the given bus.
func NewHub(bus *Bus, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}

	return &Hub{
		logger: logger,
		bus:    bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Local hub: the UI is served from the same origin or a dev server.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
		stopCh:  make(chan struct{}),
	}
}

// Start begins forwarding bus changes to connected clients.
func (h *Hub) Start() {
	changes, cancel := h.bus.Subscribe()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer cancel()
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()

		for {
			select {
			case change, ok := <-changes:
				if !ok {
					return
				}
				h.broadcast(wsFrame{Type: "tables-changed", Tables: change.Tables})
			case <-ticker.C:
				h.pingAll()
			case <-h.stopCh:
				return
			}
		}
	}()
}

// Stop disconnects all clients and stops the forwarder.
func (h *Hub) Stop() {
	close(h.stopCh)
	h.wg.Wait()

	h.mu.Lock()
	for c := range h.clients {
		c.conn.Close()
		delete(h.clients, c)
	}
	h.mu.Unlock()
}

// ServeWS upgrades the request and registers the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("events: upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.logger.Printf("events: client connected (%d active)", h.clientCount())

	// Reader drains control frames and detects disconnects. Clients never
	// send data frames; anything received is ignored.
	go func() {
		defer h.drop(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) broadcast(frame wsFrame) {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.write(frame); err != nil {
			h.drop(c)
		}
	}
}

func (h *Hub) pingAll() {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.ping(); err != nil {
			h.drop(c)
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	h.mu.Unlock()

	if ok {
		c.conn.Close()
		h.logger.Printf("events: client disconnected (%d active)", h.clientCount())
	}
}

func (h *Hub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
