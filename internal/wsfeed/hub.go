// internal/wsfeed/hub.go
package wsfeed

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rovshanmuradov/orderdesk/internal/events"
	"github.com/rovshanmuradov/orderdesk/internal/realtime"
	"go.uber.org/zap"
)

// ErrHubClosed is returned when publishing to a closed hub.
var ErrHubClosed = errors.New("feed hub closed")

// StatusFrameType tags frames that carry a connection status.
const StatusFrameType = "STATUS"

// Config configures a Hub.
type Config struct {
	BufferSize   int           // Frames queued per client before it is dropped
	WriteTimeout time.Duration // Deadline for a single frame write
	PingInterval time.Duration // Keepalive period
}

// DefaultConfig returns the standard feed settings.
func DefaultConfig() Config {
	return Config{
		BufferSize:   64,
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BufferSize <= 0 {
		c.BufferSize = d.BufferSize
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	return c
}

// Frame is the envelope of status frames.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Source is the part of realtime.Manager the hub relays.
type Source interface {
	OnStatusChange(handler func(realtime.Status)) events.Subscription
	OnMessage(handler func(realtime.Event)) events.Subscription
}

// Hub fans connection status and order events out to websocket clients.
type Hub struct {
	cfg      Config
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu        sync.RWMutex
	clients   map[string]*client
	status    realtime.Status
	closed    bool
	onClients func(int)
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// NewHub creates a hub with no clients.
func NewHub(cfg Config, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		cfg:    cfg.withDefaults(),
		logger: logger.Named("wsfeed"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// OnClientsChange registers fn to receive the client count after every
// connect and disconnect.
func (h *Hub) OnClientsChange(fn func(int)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onClients = fn
}

// Attach relays src to every client. The returned func detaches the hub.
func (h *Hub) Attach(src Source) func() {
	statusSub := src.OnStatusChange(func(s realtime.Status) {
		if err := h.PublishStatus(s); err != nil {
			h.logger.Debug("Status not published", zap.Error(err))
		}
	})
	messageSub := src.OnMessage(func(ev realtime.Event) {
		if err := h.PublishEvent(ev); err != nil {
			h.logger.Debug("Event not published", zap.Error(err))
		}
	})

	return func() {
		statusSub.Unsubscribe()
		messageSub.Unsubscribe()
	}
}

// PublishStatus records s as the current status and broadcasts it.
func (h *Hub) PublishStatus(s realtime.Status) error {
	frame, err := statusFrame(s)
	if err != nil {
		return err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	h.status = s
	h.mu.Unlock()

	h.broadcast(frame)
	return nil
}

// PublishEvent broadcasts ev.
func (h *Hub) PublishEvent(ev realtime.Event) error {
	frame, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return ErrHubClosed
	}

	h.broadcast(frame)
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams frames until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, ErrHubClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.cfg.BufferSize),
		done: make(chan struct{}),
	}
	if err := h.register(c); err != nil {
		_ = conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// Close disconnects every client. Later publishes return ErrHubClosed.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	clients := h.clients
	h.clients = make(map[string]*client)
	notify := h.onClients
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	if notify != nil {
		notify(0)
	}

	h.logger.Info("Feed hub closed", zap.Int("clients", len(clients)))
	return nil
}

// register adds c and queues the current status as its first frame.
func (h *Hub) register(c *client) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}

	frame, err := statusFrame(h.status)
	if err != nil {
		h.mu.Unlock()
		return err
	}
	c.send <- frame
	h.clients[c.id] = c
	n, notify := len(h.clients), h.onClients
	h.mu.Unlock()

	if notify != nil {
		notify(n)
	}
	h.logger.Info("Feed client connected", zap.String("client_id", c.id), zap.Int("clients", n))
	return nil
}

func (h *Hub) unregister(c *client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	if ok {
		delete(h.clients, c.id)
	}
	n, notify := len(h.clients), h.onClients
	h.mu.Unlock()

	c.close()
	if !ok {
		return
	}
	if notify != nil {
		notify(n)
	}
	h.logger.Info("Feed client disconnected",
		zap.String("client_id", c.id),
		zap.String("reason", reason),
		zap.Int("clients", n))
}

// broadcast queues frame for every client, dropping clients whose queue is full.
func (h *Hub) broadcast(frame []byte) {
	var slow []*client

	h.mu.RLock()
	for _, c := range h.clients {
		select {
		case c.send <- frame:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.unregister(c, "slow consumer")
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.unregister(c, "write failed")
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(h.cfg.WriteTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				h.unregister(c, "ping failed")
				return
			}
		case <-c.done:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed")
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.cfg.WriteTimeout))
			return
		}
	}
}

// readPump consumes control frames until the connection fails.
func (h *Hub) readPump(c *client) {
	readTimeout := 2 * h.cfg.PingInterval
	_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.unregister(c, "read closed")
			return
		}
	}
}

func statusFrame(s realtime.Status) ([]byte, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode status: %w", err)
	}
	return json.Marshal(Frame{Type: StatusFrameType, Payload: payload})
}
