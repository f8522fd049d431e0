package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"lrc/internal/control"
	"lrc/internal/protocol"
	"lrc/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Any origin, like the stream: the password is the only gate
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub tracks live control connections and routes their messages to the
// authority (auth) and the dispatcher (everything else).
type Hub struct {
	authority  *session.Authority
	dispatcher *control.Dispatcher
	logger     *zap.Logger

	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
}

// Client is one control connection. It satisfies session.Conn and
// control.Notifier.
type Client struct {
	id   uuid.UUID
	hub  *Hub
	conn *websocket.Conn
	ip   string

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newHub(authority *session.Authority, dispatcher *control.Dispatcher, logger *zap.Logger) *Hub {
	return &Hub{
		authority:  authority,
		dispatcher: dispatcher,
		logger:     logger.With(zap.String("component", "ws")),
		clients:    make(map[uuid.UUID]*Client),
	}
}

// Count returns the number of open control connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade connection", zap.Error(err))
		return
	}

	client := &Client{
		id:   uuid.New(),
		hub:  h,
		conn: conn,
		ip:   c.ClientIP(),
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("Client connected",
		zap.String("connID", client.id.String()),
		zap.String("client_ip", client.ip),
		zap.Int("total", total))

	go client.writePump()
	h.authority.OnConnect(client.id, client)
	go client.readPump()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	total := len(h.clients)
	h.mu.Unlock()

	h.authority.OnDisconnect(c.id)
	if ok {
		h.logger.Info("Client disconnected",
			zap.String("connID", c.id.String()),
			zap.String("client_ip", c.ip),
			zap.Int("total", total))
	}
}

// Send queues msg for the write pump. A full queue drops the message
// rather than stalling the caller.
func (c *Client) Send(msg protocol.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}
	select {
	case <-c.done:
	case c.send <- data:
	default:
		c.hub.logger.Warn("Send queue full, dropping message",
			zap.String("connID", c.id.String()), zap.String("type", string(msg.Type)))
	}
}

// Close asks the write pump to close the connection. Safe to call repeatedly.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump reads messages until the connection fails, then deregisters.
// Messages from one connection are handled in order on this goroutine.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("Read error", zap.String("connID", c.id.String()), zap.Error(err))
			}
			return
		}
		c.handleMessage(message)
	}
}

// writePump writes queued messages and pings. When the client is closed it
// flushes what is queued, sends a close frame and closes the socket, which
// also ends readPump.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			if err := c.write(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			if c.flush() != nil {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes whatever is still queued without waiting for more.
func (c *Client) flush() error {
	for {
		select {
		case message := <-c.send:
			if err := c.write(message); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (c *Client) write(message []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

func (c *Client) handleMessage(data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.hub.logger.Debug("Invalid message format", zap.String("connID", c.id.String()), zap.Error(err))
		return
	}

	switch msg.Type {
	case protocol.TypeAuth:
		// A missing or non-string password is simply wrong
		var password string
		if r := gjson.GetBytes(msg.Payload, "password"); r.Type == gjson.String {
			password = r.Str
		}
		c.hub.authority.OnAuthAttempt(c.id, password)

	default:
		c.hub.dispatcher.Handle(c.id, c, msg.Type, msg.Payload)
	}
}
