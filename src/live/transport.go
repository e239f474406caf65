package live

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"trade-dashboard/src/helpers"
)

// ErrConnClosed marks an orderly close of the push channel, as opposed to a
// transport failure.
var ErrConnClosed = errors.New("push channel closed")

// Conn is one open push channel.
type Conn interface {
	// ReadMessage blocks until the next message arrives or the channel ends.
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Transport opens push channels.
type Transport interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// -----------------------------------------------------------------------------
// Gorilla websocket transport
// -----------------------------------------------------------------------------

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultReadLimit        = 4 << 20
	writeWait               = 5 * time.Second
)

type WebsocketTransport struct {
	Dialer    *websocket.Dialer
	Header    http.Header
	ReadLimit int64
}

func NewWebsocketTransport() *WebsocketTransport {
	return &WebsocketTransport{
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: defaultHandshakeTimeout,
		},
		ReadLimit: defaultReadLimit,
	}
}

func (t *WebsocketTransport) Dial(ctx context.Context, url string) (Conn, error) {
	ws, resp, err := t.Dialer.DialContext(ctx, url, t.Header)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (handshake status %d)", err, resp.StatusCode)
		}
		return nil, helpers.NewChannelError(url, err)
	}

	if t.ReadLimit > 0 {
		ws.SetReadLimit(t.ReadLimit)
	}
	// Answer server pings; there is no read deadline, so a silent peer is only
	// noticed when the TCP connection itself fails.
	ws.SetPingHandler(func(data string) error {
		err := ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	return &wsConn{ws: ws, url: url}, nil
}

type wsConn struct {
	ws      *websocket.Conn
	url     string
	writeMu sync.Mutex
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return nil, fmt.Errorf("%w: %v", ErrConnClosed, closeErr)
			}
			return nil, helpers.NewChannelError(c.url, err)
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (c *wsConn) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	c.writeMu.Unlock()
	return c.ws.Close()
}
