package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Norgate-AV/txmon/internal/dxcall"
	"github.com/Norgate-AV/txmon/internal/logger"
	"github.com/Norgate-AV/txmon/internal/observability"
	"github.com/Norgate-AV/txmon/internal/timeouts"
)

const clientBuffer = 16

// Message is a websocket frame sent to clients
type Message struct {
	Type      string    `json:"type"`
	Call      string    `json:"call"`
	UpdatedAt time.Time `json:"updated_at"`
}

func dxCallMessage(u dxcall.Update) Message {
	return Message{Type: "dxcall", Call: u.Call, UpdatedAt: u.UpdatedAt}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, clientBuffer),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeouts.WebsocketWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Hub fans DX call changes out to websocket clients
type Hub struct {
	log     logger.LoggerInterface
	metrics *observability.Metrics

	mu      sync.RWMutex
	clients map[*client]bool
}

func NewHub(log logger.LoggerInterface, metrics *observability.Metrics) *Hub {
	return &Hub{
		log:     log,
		metrics: metrics,
		clients: make(map[*client]bool),
	}
}

// Add registers conn and queues the current value for it
func (h *Hub) Add(conn *websocket.Conn, current dxcall.Update) *client {
	c := newClient(conn)

	if data, err := json.Marshal(dxCallMessage(current)); err == nil {
		c.send <- data
	}

	h.mu.Lock()
	h.clients[c] = true
	h.metrics.WSClients.Set(float64(len(h.clients)))
	h.mu.Unlock()

	return c
}

func (h *Hub) Remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.metrics.WSClients.Set(float64(len(h.clients)))
	}
}

// Publish sends u to every client. Clients that cannot keep up are dropped.
func (h *Hub) Publish(u dxcall.Update) {
	data, err := json.Marshal(dxCallMessage(u))
	if err != nil {
		h.log.Error("Failed to encode websocket message", slog.Any("error", err))
		return
	}

	var slow []*client

	// Sends happen under the read lock so Remove cannot close a channel mid-send
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("Websocket client too slow, disconnecting")
		h.Remove(c)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.metrics.WSClients.Set(0)
}
