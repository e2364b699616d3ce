package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sipeed/cinebot/pkg/logger"
)

const (
	statusInterval = 5 * time.Second

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 512
	sendQueue      = 256
)

var allowedOrigins = []string{"http://localhost", "http://127.0.0.1", "https://localhost", "https://127.0.0.1"}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameHostOrigin,
}

// sameHostOrigin accepts clients without an Origin header (CLI tools) and
// browsers on the local host.
func sameHostOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, prefix := range allowedOrigins {
		if strings.HasPrefix(origin, prefix) {
			return true
		}
	}
	logger.WarnCF("ws", "Rejected WebSocket from disallowed origin", map[string]interface{}{"origin": origin})
	return false
}

// WSEvent is one message sent to WebSocket clients.
type WSEvent struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func encodeEvent(eventType string, data interface{}) ([]byte, error) {
	return json.Marshal(WSEvent{
		Type:      eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	})
}

// ---------------------------------------------------------------------------
// Hub
// ---------------------------------------------------------------------------

// WSHub fans domain events and periodic status out to WebSocket clients.
// Clients that cannot keep up are disconnected.
type WSHub struct {
	server    *Server
	broadcast chan []byte

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	stopped bool
}

func NewWSHub(server *Server) *WSHub {
	return &WSHub{
		server:    server,
		broadcast: make(chan []byte, sendQueue),
		clients:   make(map[*wsClient]struct{}),
	}
}

// Run delivers queued broadcasts and the periodic status until ctx is done,
// then disconnects every client.
func (h *WSHub) Run(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.stop()
			return
		case frame := <-h.broadcast:
			h.fanOut(frame)
		case <-ticker.C:
			if h.Clients() > 0 {
				h.Broadcast("status_update", h.server.snapshot(ctx))
			}
		}
	}
}

func (h *WSHub) stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *WSHub) fanOut(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			logger.DebugC("ws", "Dropping slow client")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// add registers c and queues the initial state for it. It reports false
// once the hub has stopped.
func (h *WSHub) add(ctx context.Context, c *wsClient) bool {
	initial, err := encodeEvent("initial_state", h.server.snapshot(ctx))

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return false
	}
	h.clients[c] = struct{}{}
	if err == nil {
		c.send <- initial
	}
	return true
}

func (h *WSHub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Clients returns the number of connected clients.
func (h *WSHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues an event for every client. It never blocks; events are
// dropped when the queue is full.
func (h *WSHub) Broadcast(eventType string, data interface{}) {
	frame, err := encodeEvent(eventType, data)
	if err != nil {
		logger.WarnCF("ws", "Could not encode event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
		return
	}
	select {
	case h.broadcast <- frame:
	default:
	}
}

// HandleWebSocket upgrades the request and starts the client's pumps. The
// request went through authMiddleware already.
func (h *WSHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnCF("ws", "WebSocket upgrade failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, sendQueue)}
	if !h.add(r.Context(), c) {
		conn.Close()
		return
	}
	logger.DebugCF("ws", "Client connected", map[string]interface{}{"remote": r.RemoteAddr})

	go c.writePump()
	go func() {
		c.readPump()
		h.remove(c)
		logger.DebugCF("ws", "Client disconnected", map[string]interface{}{"remote": r.RemoteAddr})
	}()
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// readPump only keeps the read deadline alive; clients never send commands.
func (c *wsClient) readPump() {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump sends queued frames, newline separated when several are
// waiting, and pings on an interval. It exits when send is closed.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) write(first []byte) error {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	w.Write(first)
	for n := len(c.send); n > 0; n-- {
		frame, ok := <-c.send
		if !ok {
			break
		}
		w.Write([]byte{'\n'})
		w.Write(frame)
	}
	return w.Close()
}
