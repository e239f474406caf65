package testutils

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"trade-dashboard/src/live"
)

// -----------------------------------------------------------------------------
// FakeTransport hands out FakeConns, or fails while DialErr is set.
// -----------------------------------------------------------------------------

type FakeTransport struct {
	mu      sync.Mutex
	dialErr error
	dials   []string
	conns   []*FakeConn
	dialed  chan *FakeConn
}

var _ live.Transport = (*FakeTransport)(nil)

func NewFakeTransport() *FakeTransport {
	return &FakeTransport{dialed: make(chan *FakeConn, 64)}
}

// FailDials makes every following Dial return err. nil restores success.
func (t *FakeTransport) FailDials(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dialErr = err
}

func (t *FakeTransport) Dial(ctx context.Context, url string) (live.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.dials = append(t.dials, url)
	if t.dialErr != nil {
		return nil, t.dialErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn := NewFakeConn()
	t.conns = append(t.conns, conn)
	t.dialed <- conn
	return conn, nil
}

// Dials returns every URL dialed so far.
func (t *FakeTransport) Dials() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.dials...)
}

// Dialed delivers each successfully opened connection.
func (t *FakeTransport) Dialed() <-chan *FakeConn {
	return t.dialed
}

// -----------------------------------------------------------------------------
// FakeConn is the client end of a scripted push channel.
// -----------------------------------------------------------------------------

var ErrFakeDrop = errors.New("connection reset by peer")

type FakeConn struct {
	inbound chan []byte
	done    chan struct{}
	once    sync.Once
	closeMu sync.Mutex
	endErr  error

	mu      sync.Mutex
	written [][]byte
	closed  bool
}

var _ live.Conn = (*FakeConn)(nil)

func NewFakeConn() *FakeConn {
	return &FakeConn{
		inbound: make(chan []byte, 64),
		done:    make(chan struct{}),
	}
}

// Push delivers a message from the server side.
func (c *FakeConn) Push(data []byte) {
	c.inbound <- data
}

// ServerClose ends the channel with an orderly close.
func (c *FakeConn) ServerClose() {
	c.end(fmt.Errorf("%w: 1000", live.ErrConnClosed))
}

// Drop ends the channel with a transport failure.
func (c *FakeConn) Drop() {
	c.end(ErrFakeDrop)
}

func (c *FakeConn) end(err error) {
	c.once.Do(func() {
		c.closeMu.Lock()
		c.endErr = err
		c.closeMu.Unlock()
		close(c.done)
	})
}

func (c *FakeConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case <-c.done:
		c.closeMu.Lock()
		defer c.closeMu.Unlock()
		return nil, c.endErr
	}
}

func (c *FakeConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return live.ErrConnClosed
	}
	c.written = append(c.written, append([]byte(nil), data...))
	return nil
}

func (c *FakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.end(live.ErrConnClosed)
	return nil
}

// Written returns every message the client sent.
func (c *FakeConn) Written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.written...)
}

func (c *FakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
