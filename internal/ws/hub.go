package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16
)

// Event names.
const (
	EventRound  = "round"
	EventStatus = "status"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 8192,
	// CORS is applied by the router; the stream is read-only.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub manages websocket clients. Finished rounds are pushed with Publish;
// a status message is broadcast every interval.
type Hub struct {
	status   func() any
	interval time.Duration

	mu        sync.RWMutex
	clients   map[*client]struct{}
	lastRound []byte
}

// client represents one connected websocket client.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// New creates a Hub that broadcasts status() every interval.
func New(status func() any, interval time.Duration) *Hub {
	return &Hub{
		status:   status,
		interval: interval,
		clients:  make(map[*client]struct{}),
	}
}

// Run starts the status ticker loop. Run blocks until ctx is cancelled,
// then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-t.C:
			if data, err := h.encode(EventStatus, h.status()); err == nil {
				h.broadcast(data)
			}
		}
	}
}

// Publish sends a finished round to every client. The last round is kept
// and sent to clients as they connect.
func (h *Hub) Publish(round any) {
	data, err := h.encode(EventRound, round)
	if err != nil {
		zap.L().Warn("ws: encode round failed", zap.Error(err))
		return
	}
	h.mu.Lock()
	h.lastRound = data
	h.mu.Unlock()
	h.broadcast(data)
}

// ServeHTTP upgrades the connection and serves the client. The last round
// (or the current status when none) is sent immediately on connect. Blocks
// until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	h.register(c)
	defer h.unregister(c)

	h.mu.RLock()
	first := h.lastRound
	h.mu.RUnlock()
	if first == nil {
		first, _ = h.encode(EventStatus, h.status())
	}
	if first != nil {
		select {
		case c.send <- first:
		default:
		}
	}

	go c.writePump()
	c.readPump() // blocks until connection closes
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) broadcast(data []byte) {
	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	// outgoing buffer full
	for _, c := range slow {
		h.unregister(c)
	}
}

func (h *Hub) encode(event string, v any) ([]byte, error) {
	return json.Marshal(Message{Event: event, Data: v})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// writePump drains the client's send channel and forwards messages to the
// connection, sending periodic pings. Runs in its own goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames to process control messages and detect
// disconnects. Blocks until the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
