package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"lrc/internal/protocol"
)

// ErrAuthFailed is returned by DialController when the password is rejected.
var ErrAuthFailed = errors.New("authentication failed")

const (
	handshakeTimeout = 10 * time.Second
	clientWriteWait  = 10 * time.Second
	clientPongWait   = 60 * time.Second
)

// WSClient is an authenticated controller connection to a server's /ws.
type WSClient struct {
	conn    *websocket.Conn
	logger  *zap.Logger
	notices chan protocol.Message

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// DialController connects to addr (host:port), waits for the server's
// need_auth greeting and authenticates with password. It returns
// ErrAuthFailed when the server answers auth_failed.
func DialController(ctx context.Context, addr, password string, logger *zap.Logger) (*WSClient, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	logger = logger.With(zap.String("component", "ws_client"), zap.String("url", u.String()))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}

	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetReadDeadline(deadline)

	if err := expect(conn, protocol.TypeNeedAuth); err != nil {
		conn.Close()
		return nil, err
	}

	c := &WSClient{
		conn:    conn,
		logger:  logger,
		notices: make(chan protocol.Message, 16),
		done:    make(chan struct{}),
	}
	if err := c.Send(protocol.TypeAuth, protocol.AuthPayload{Password: password}); err != nil {
		conn.Close()
		return nil, err
	}

	reply, err := readMessage(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read auth reply: %w", err)
	}
	switch reply.Type {
	case protocol.TypeAuthOK:
	case protocol.TypeAuthFailed:
		conn.Close()
		return nil, ErrAuthFailed
	default:
		conn.Close()
		return nil, fmt.Errorf("unexpected auth reply %q", reply.Type)
	}

	logger.Info("Connected and authorized")
	go c.readPump()
	return c, nil
}

func expect(conn *websocket.Conn, want protocol.MessageType) error {
	msg, err := readMessage(conn)
	if err != nil {
		return fmt.Errorf("read %s: %w", want, err)
	}
	if msg.Type != want {
		return fmt.Errorf("expected %q, got %q", want, msg.Type)
	}
	return nil
}

func readMessage(conn *websocket.Conn) (protocol.Message, error) {
	var msg protocol.Message
	_, data, err := conn.ReadMessage()
	if err != nil {
		return msg, err
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("invalid message: %w", err)
	}
	return msg, nil
}

// readPump forwards server notices until the connection ends. Reading also
// answers the server's pings.
func (c *WSClient) readPump() {
	defer close(c.notices)
	defer c.Close()

	c.conn.SetReadDeadline(time.Now().Add(clientPongWait))
	c.conn.SetPingHandler(func(data string) error {
		c.conn.SetReadDeadline(time.Now().Add(clientPongWait))
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		return c.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(clientWriteWait))
	})

	for {
		msg, err := readMessage(c.conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("Read error", zap.Error(err))
			}
			return
		}
		select {
		case c.notices <- msg:
		default:
			c.logger.Debug("Dropping notice, nobody is reading", zap.String("type", string(msg.Type)))
		}
	}
}

// Send writes one message. It is safe for concurrent use.
func (c *WSClient) Send(t protocol.MessageType, payload interface{}) error {
	msg, err := protocol.NewMessage(t, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", t, err)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", t, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(clientWriteWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send %s: %w", t, err)
	}
	return nil
}

// Notices returns the messages the server sends after authentication, such
// as "Unauthorized" errors. The channel is closed when the connection ends.
func (c *WSClient) Notices() <-chan protocol.Message {
	return c.notices
}

// Done is closed once the connection has been closed.
func (c *WSClient) Done() <-chan struct{} {
	return c.done
}

// Close sends a close frame and closes the connection. It is idempotent.
func (c *WSClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()

		err = c.conn.Close()
		close(c.done)
	})
	return err
}
