package live

import (
	"context"
	"errors"

	"trade-dashboard/src/logger"
	"trade-dashboard/src/metrics"
	"trade-dashboard/src/utils"
)

// Listener receives the side effects of state transitions. All callbacks run
// on the goroutine that calls HandleEvent.
type Listener interface {
	// OnLive fires when a connection opens.
	OnLive()
	// OnDown fires when a connection attempt fails or an open channel ends.
	// state is StateClosed or StateError.
	OnDown(state State, err error)
	// OnMessage fires for every successfully decoded inbound message.
	OnMessage(msg Message)
}

// -----------------------------------------------------------------------------

// Manager owns the push channel: one connection attempt at a time, the
// reconnect timer and the backoff schedule. It is not safe for concurrent
// use; blocking work (dial, reads, writes) runs on spawned goroutines and
// reports back through post as typed events, which the owner feeds to
// HandleEvent.
type Manager struct {
	Logger *logger.Logger

	transport Transport
	clock     utils.Clock
	listener  Listener
	metrics   *metrics.Metrics
	post      func(Event)
	spawn     func(func())

	state     State
	url       string
	attempt   uint64
	conn      Conn
	backoff   *Backoff
	reconnect utils.Timer
	cancel    context.CancelFunc
}

func NewManager(
	transport Transport,
	clock utils.Clock,
	listener Listener,
	post func(Event),
	m *metrics.Metrics,
	log *logger.Logger,
) *Manager {
	return &Manager{
		Logger:    log,
		transport: transport,
		clock:     clock,
		listener:  listener,
		metrics:   m,
		post:      post,
		spawn:     func(f func()) { go f() },
		state:     StateDisconnected,
		backoff:   NewBackoff(utils.BackoffFloor, utils.BackoffCeiling),
	}
}

// -----------------------------------------------------------------------------
// Accessors
// -----------------------------------------------------------------------------

func (m *Manager) State() State { return m.state }

func (m *Manager) URL() string { return m.url }

// Delay is the wait before the next reconnect attempt.
func (m *Manager) Delay() int64 { return m.backoff.Current().Milliseconds() }

// -----------------------------------------------------------------------------
// Commands
// -----------------------------------------------------------------------------

// Start begins connecting to url. It does nothing unless the manager is
// DISCONNECTED, so a running manager never switches URLs mid-flight.
func (m *Manager) Start(url string) {
	if m.state != StateDisconnected || url == "" {
		return
	}
	m.url = url
	m.Logger.Info("Push channel enabled: %s", url)
	m.connect()
}

// Stop closes the channel, cancels any pending reconnect and returns to
// DISCONNECTED. Events already in flight are ignored afterwards.
func (m *Manager) Stop() {
	if m.state == StateDisconnected {
		return
	}
	m.cancelReconnect()
	m.abortDial()
	m.closeConn()
	m.attempt++
	m.state = StateDisconnected
	m.url = ""
	m.metrics.RecordLink(false)
	m.Logger.Info("Push channel stopped")
}

// -----------------------------------------------------------------------------
// Events
// -----------------------------------------------------------------------------

// HandleEvent applies one transition event.
func (m *Manager) HandleEvent(ev Event) {
	if ev.attempt() != m.attempt {
		if opened, ok := ev.(ChannelOpened); ok && opened.Conn != nil {
			_ = opened.Conn.Close()
		}
		return
	}

	switch e := ev.(type) {
	case ChannelOpened:
		m.onOpened(e)
	case ChannelClosed:
		m.onClosed(e)
	case ChannelMessage:
		m.onMessage(e)
	case ReconnectDue:
		m.onReconnectDue()
	}
}

func (m *Manager) onOpened(e ChannelOpened) {
	if m.state != StateConnecting {
		_ = e.Conn.Close()
		return
	}

	m.cancel = nil
	m.conn = e.Conn
	m.state = StateConnected
	m.backoff.Reset()
	m.metrics.RecordLink(true)
	m.Logger.Info("Push channel connected: %s", m.url)

	conn, attempt := e.Conn, m.attempt
	hello := helloMessage(m.clock.Now().UnixMilli())
	m.spawn(func() {
		if err := conn.WriteMessage(hello); err != nil {
			m.Logger.Debug("Greeting not sent: %v", err)
		}
	})
	m.spawn(func() { m.readLoop(attempt, conn) })

	m.listener.OnLive()
}

func (m *Manager) onClosed(e ChannelClosed) {
	if m.state != StateConnecting && m.state != StateConnected {
		return
	}

	wasConnected := m.state == StateConnected
	m.cancel = nil
	m.closeConn()

	m.state = StateError
	if errors.Is(e.Err, ErrConnClosed) {
		m.state = StateClosed
	}
	down := m.state

	if wasConnected {
		m.Logger.Warning("Push channel %s: %v", down, e.Err)
	} else {
		m.Logger.Debug("Push channel connect failed: %v", e.Err)
	}
	m.metrics.RecordLink(false)

	m.scheduleReconnect()
	m.listener.OnDown(down, e.Err)
}

func (m *Manager) onMessage(e ChannelMessage) {
	if m.state != StateConnected {
		return
	}
	msg, err := DecodeMessage(e.Data)
	if err != nil {
		m.metrics.RecordPushMessage("malformed")
		m.Logger.Debug("Discarding malformed push message: %v", err)
		return
	}
	m.metrics.RecordPushMessage("applied")
	m.listener.OnMessage(msg)
}

func (m *Manager) onReconnectDue() {
	if m.state != StateBackoff {
		return
	}
	m.reconnect = nil
	m.metrics.RecordReconnect()
	m.connect()
}

// -----------------------------------------------------------------------------
// Internals
// -----------------------------------------------------------------------------

func (m *Manager) connect() {
	m.attempt++
	m.state = StateConnecting

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	url, attempt := m.url, m.attempt
	m.spawn(func() {
		defer cancel()
		conn, err := m.transport.Dial(ctx, url)
		if err != nil {
			m.post(ChannelClosed{Attempt: attempt, Err: err})
			return
		}
		m.post(ChannelOpened{Attempt: attempt, Conn: conn})
	})
}

func (m *Manager) readLoop(attempt uint64, conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			m.post(ChannelClosed{Attempt: attempt, Err: err})
			return
		}
		m.post(ChannelMessage{Attempt: attempt, Data: data})
	}
}

// scheduleReconnect moves to BACKOFF and arms the reconnect timer at the
// current delay. A pending timer is always cancelled first.
func (m *Manager) scheduleReconnect() {
	m.cancelReconnect()
	m.state = StateBackoff

	delay := m.backoff.Next()
	attempt := m.attempt
	m.reconnect = m.clock.AfterFunc(delay, func() {
		m.post(ReconnectDue{Attempt: attempt})
	})
	m.Logger.Info("Reconnecting in %v", delay)
}

func (m *Manager) cancelReconnect() {
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
}

func (m *Manager) abortDial() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *Manager) closeConn() {
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
}
