package realtime

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"Symbiotic/internal/domain/models"
	"Symbiotic/internal/service/metrics"
	"Symbiotic/pkg/logger"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	maxReadBytes = 1024
)

// Message is the frame sent to dashboard clients.
type Message struct {
	Type string                    `json:"type"`
	Data *models.DashboardSnapshot `json:"data"`
}

// Option configures Hub.
type Option func(*Hub)

// WithBufferSize sets how many frames may queue per client before new ones are dropped.
func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.bufSize = n
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.log = l
		}
	}
}

// WithCheckOrigin overrides the upgrader origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Hub) { h.upgrader.CheckOrigin = fn }
}

// AllowOrigins accepts upgrades whose Origin header is in origins (case-insensitive) or absent.
func AllowOrigins(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[strings.ToLower(origin)]
		return ok
	}
}

// Hub tracks websocket subscribers per user id and fans snapshots out to them.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	bufSize  int
	upgrader websocket.Upgrader
	log      *logger.Logger
	closed   bool
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients: make(map[string]map[*client]struct{}),
		bufSize: 4,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		log: logger.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	metrics.Register()
	return h
}

type client struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Serve upgrades the request and blocks until the client goes away.
// first, when non-nil, is delivered before any broadcast.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string, first *models.DashboardSnapshot) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{userID: userID, conn: conn, send: make(chan []byte, h.bufSize)}
	if first != nil {
		if b, err := encode(first); err == nil {
			c.send <- b
		}
	}
	if !h.register(c) {
		_ = conn.Close()
		return nil
	}
	h.log.Debug("ws client connected", logger.String("user_id", userID))

	go h.writePump(c)
	h.readPump(c)
	return nil
}

// Users lists user ids with at least one live connection.
func (h *Hub) Users() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.clients))
	for u := range h.clients {
		out = append(out, u)
	}
	return out
}

// Broadcast queues snap for every connection of userID. Slow clients miss frames rather
// than stall the refresher.
func (h *Hub) Broadcast(userID string, snap *models.DashboardSnapshot) {
	b, err := encode(snap)
	if err != nil {
		h.log.Error("encode snapshot failed", logger.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		select {
		case c.send <- b:
		default:
			h.log.Warn("ws client too slow, frame dropped", logger.String("user_id", userID))
		}
	}
}

// Close disconnects everyone and refuses new clients.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for u, set := range h.clients {
		for c := range set {
			c.close()
		}
		delete(h.clients, u)
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	metrics.WSClients.Inc()
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if set, ok := h.clients[c.userID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			metrics.WSClients.Dec()
		}
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()
	c.close()
}

// readPump only services control frames; clients never send data we act on.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
		h.log.Debug("ws client disconnected", logger.String("user_id", c.userID))
	}()
	c.conn.SetReadLimit(maxReadBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	t := time.NewTicker(pingInterval)
	defer func() {
		t.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case b, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-t.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func encode(snap *models.DashboardSnapshot) ([]byte, error) {
	return json.Marshal(Message{Type: "snapshot", Data: snap})
}
