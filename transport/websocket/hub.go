package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Frames queued per connection before it is considered too slow.
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Action is an inbound client message.
type Action struct {
	Action    string `json:"action"`
	Room      string `json:"room,omitempty"`
	Name      string `json:"name,omitempty"`
	From      *int   `json:"from,omitempty"`
	To        *int   `json:"to,omitempty"`
	Promotion string `json:"promotion,omitempty"`
}

// Handler processes connection lifecycle and client actions.
type Handler interface {
	Connect(ctx context.Context, connID, name string)
	HandleAction(ctx context.Context, connID string, action Action) error
	Disconnect(ctx context.Context, connID string)
}

type errorMessage struct {
	Event string `json:"event"`
	Data  struct {
		Message string `json:"message"`
	} `json:"data"`
}

// Client represents a WebSocket client
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	id      string
	name    string
	dropped atomic.Bool
}

// ID returns the connection ID.
func (c *Client) ID() string {
	return c.id
}

// Hub owns the live connections and delivers frames to them. Sends never
// block: a connection whose queue is full is closed.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	handler Handler
	logger  *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// SetHandler installs the action handler. Call before serving connections.
func (h *Hub) SetHandler(handler Handler) {
	h.handler = handler
}

// ServeWS upgrades the request and starts the connection's pumps
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		id:   uuid.NewString(),
		name: strings.TrimSpace(r.URL.Query().Get("name")),
	}
	h.registerClient(client)

	ctx, cancel := context.WithCancel(context.Background())
	if h.handler != nil {
		h.handler.Connect(ctx, client.id, client.name)
	}

	go client.writePump()
	go client.readPump(ctx, cancel)
}

// Send queues payload for one connection. It reports false when the
// connection is unknown or was dropped for being too slow.
func (h *Hub) Send(connID string, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[connID]
	if !ok {
		return false
	}
	return client.enqueue(payload)
}

// SendAll queues payload for every connection
func (h *Hub) SendAll(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		client.enqueue(payload)
	}
}

// Count returns the number of live connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close sends a close frame to every connection and closes it. The read
// pumps then run the normal disconnect path.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	deadline := time.Now().Add(writeWait)
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, client := range clients {
		if client.conn == nil {
			continue
		}
		client.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		client.conn.Close()
	}
}

// registerClient adds a client
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("client connected", zap.String("conn", client.id), zap.Int("clients", total))
}

// unregisterClient removes a client and closes its queue
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	current, ok := h.clients[client.id]
	if ok && current == client {
		delete(h.clients, client.id)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.logger.Info("client disconnected", zap.String("conn", client.id), zap.Int("clients", total))
	}
}

// enqueue must be called with the hub read lock held.
func (c *Client) enqueue(payload []byte) bool {
	if c.dropped.Load() {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		c.drop()
		return false
	}
}

// drop closes a connection that cannot keep up. Later frames are discarded
// so the client never sees a gap in its stream.
func (c *Client) drop() {
	if !c.dropped.CompareAndSwap(false, true) {
		return
	}
	c.hub.logger.Warn("send queue full, closing connection", zap.String("conn", c.id))
	if c.conn != nil {
		c.conn.Close()
	}
}

func (c *Client) sendError(message string) {
	var m errorMessage
	m.Event = "error"
	m.Data.Message = message
	payload, err := json.Marshal(m)
	if err != nil {
		return
	}
	c.hub.Send(c.id, payload)
}

// readPump decodes client actions and hands them to the handler in order
func (c *Client) readPump(ctx context.Context, cancel context.CancelFunc) {
	defer func() {
		cancel()
		c.hub.unregisterClient(c)
		if c.hub.handler != nil {
			c.hub.handler.Disconnect(context.Background(), c.id)
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read error", zap.String("conn", c.id), zap.Error(err))
			}
			break
		}
		c.handle(ctx, data)
	}
}

// handle processes one frame. A panic is contained to the frame.
func (c *Client) handle(ctx context.Context, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.hub.logger.Error("panic handling message",
				zap.String("conn", c.id),
				zap.Any("panic", r),
				zap.ByteString("message", data),
			)
			c.sendError("internal error")
		}
	}()

	var action Action
	if err := json.Unmarshal(data, &action); err != nil || action.Action == "" {
		c.sendError("malformed message")
		return
	}
	if c.hub.handler == nil {
		return
	}
	if err := c.hub.handler.HandleAction(ctx, c.id, action); err != nil {
		c.sendError(err.Error())
	}
}

// writePump pumps queued frames to the WebSocket connection, one frame per message
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
