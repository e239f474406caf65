package live

import (
	"encoding/json"
	"fmt"

	"trade-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// Connection states
// -----------------------------------------------------------------------------

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
	StateError
	StateBackoff
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateClosed:
		return "CLOSED"
	case StateError:
		return "ERROR"
	case StateBackoff:
		return "BACKOFF"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// -----------------------------------------------------------------------------
// Typed transition events. Attempt ties an event to the connection attempt
// that produced it; events from superseded attempts are dropped.
// -----------------------------------------------------------------------------

type Event interface {
	attempt() uint64
}

type ChannelOpened struct {
	Attempt uint64
	Conn    Conn
}

// ChannelClosed covers both a failed dial and a dropped connection. Err is
// ErrConnClosed (possibly wrapped) for an orderly close.
type ChannelClosed struct {
	Attempt uint64
	Err     error
}

type ChannelMessage struct {
	Attempt uint64
	Data    []byte
}

type ReconnectDue struct {
	Attempt uint64
}

func (e ChannelOpened) attempt() uint64  { return e.Attempt }
func (e ChannelClosed) attempt() uint64  { return e.Attempt }
func (e ChannelMessage) attempt() uint64 { return e.Attempt }
func (e ReconnectDue) attempt() uint64   { return e.Attempt }

// -----------------------------------------------------------------------------
// Inbound messages
// -----------------------------------------------------------------------------

// Message is one decoded push message: a partial snapshot per kind present.
type Message map[models.Kind]models.Document

// DecodeMessage parses a push payload. The payload must be a JSON object;
// unknown keys are ignored and a kind whose value is not an object is
// skipped.
func DecodeMessage(data []byte) (Message, error) {
	top, err := models.ParseDocument(data)
	if err != nil {
		return nil, err
	}

	msg := Message{}
	for _, k := range models.AllKinds {
		raw, ok := top[k.String()]
		if !ok {
			continue
		}
		doc, err := models.ParseDocument(raw)
		if err != nil {
			continue
		}
		msg[k] = doc
	}
	return msg, nil
}

type greeting struct {
	Type   string `json:"type"`
	Client string `json:"client"`
	Ts     int64  `json:"ts"`
}

func helloMessage(nowMs int64) []byte {
	data, _ := json.Marshal(greeting{Type: "hello", Client: "dashboard", Ts: nowMs})
	return data
}
