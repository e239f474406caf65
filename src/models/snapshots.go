package models

import (
	"bytes"
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// -----------------------------------------------------------------------------
// Typed views of the four snapshot kinds. Timestamps are left untyped because
// the trading process has emitted them as numbers and as strings over time.
// -----------------------------------------------------------------------------

// Process status values reported in state.json.
const (
	StatusOK      = "OK"
	StatusWarn    = "WARN"
	StatusPanic   = "PANIC"
	StatusSuspend = "SUSPEND"
)

type MStateSnapshot struct {
	Status     string                 `json:"status"`
	Reason     string                 `json:"reason,omitempty"`
	TsMillis   interface{}            `json:"ts_ms,omitempty"`
	TsSeconds  interface{}            `json:"ts_s,omitempty"`
	Ts         interface{}            `json:"ts,omitempty"`
	TsISO      interface{}            `json:"ts_iso,omitempty"`
	Mid        Number                 `json:"mid"`
	VolPct     Number                 `json:"vol_pct"`
	Leverage   Number                 `json:"lev"`
	DivBps     Number                 `json:"div_bps"`
	Grid       []Number               `json:"grid,omitempty"` // [low, high, levels]
	Indicators map[string]interface{} `json:"indicators,omitempty"`
	Timeframe  interface{}            `json:"tf,omitempty"`
	Mode       interface{}            `json:"mode,omitempty"`
	Equity     Number                 `json:"equity"`
	Capital    Number                 `json:"capital"`
	History    []interface{}          `json:"history,omitempty"`
}

type MOrder struct {
	TsISO  string      `json:"ts_iso,omitempty"`
	Ts     interface{} `json:"ts,omitempty"`
	Side   string      `json:"side,omitempty"`
	Qty    Number      `json:"qty"`
	Price  Number      `json:"price"`
	Venue  string      `json:"venue,omitempty"`
	Status interface{} `json:"status,omitempty"`
	PnL    interface{} `json:"pnl,omitempty"`
	ID     interface{} `json:"id,omitempty"`
}

// UnmarshalJSON decodes each field on its own, so one odd field does not
// cost the rest of the order. A non-object entry decodes as an empty order.
func (o *MOrder) UnmarshalJSON(data []byte) error {
	*o = MOrder{}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	decodeFields(fields, o)
	return nil
}

type MOrderStats struct {
	PnLDay    Number `json:"pnl_day"`
	TradesDay Number `json:"trades_day"`
	Win7d     Number `json:"win_7d"`
	Sharpe30d Number `json:"sharpe_30d"`
}

type MOrdersSnapshot struct {
	Open   []MOrder    `json:"open"`
	Closed []MOrder    `json:"closed"`
	Stats  MOrderStats `json:"stats"`
}

type MPIDConfig struct {
	Kp           Number `json:"kp"`
	Ki           Number `json:"ki"`
	Kd           Number `json:"kd"`
	TargetVolPct Number `json:"target_vol_pct"`
}

type MSafeModeConfig struct {
	VolWarnPct  Number `json:"vol_warn_pct"`
	VolPanicPct Number `json:"vol_panic_pct"`
}

type MDaemonConfig struct {
	LoopSeconds            Number `json:"loop_seconds"`
	ExponentialBackoffMaxS Number `json:"exponential_backoff_max_s"`
}

type MConfigSnapshot struct {
	PID      *MPIDConfig      `json:"pid,omitempty"`
	SafeMode *MSafeModeConfig `json:"safe_mode,omitempty"`
	Daemon   *MDaemonConfig   `json:"daemon,omitempty"`
	WsURL    string           `json:"ws_url,omitempty"`
}

type MReportSnapshot struct {
	Series []interface{} `json:"series,omitempty"`
	Points []interface{} `json:"points,omitempty"`
}

// Entries returns the series under its primary name, falling back to the
// older alias.
func (r *MReportSnapshot) Entries() ([]interface{}, bool) {
	if r.Series != nil {
		return r.Series, true
	}
	if r.Points != nil {
		return r.Points, true
	}
	return nil, false
}

// -----------------------------------------------------------------------------
// Lenient decoding. A snapshot is accepted whenever it is a JSON object; the
// typed views read whatever fields decode and leave the others zero.
// -----------------------------------------------------------------------------

// Number is a numeric field that also accepts numeric strings. Anything else,
// including NaN and the infinities, reads as absent.
type Number struct {
	Value float64
	Valid bool
}

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}

	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil
	}

	var text string
	switch t := v.(type) {
	case json.Number:
		text = t.String()
	case string:
		text = strings.TrimSpace(t)
	default:
		return nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n.Value, n.Valid = f, true
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Ptr returns the value, or nil when absent.
func (n Number) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// decodeFields fills the json-tagged fields of the struct v points to from
// fields, one key at a time. A key that does not decode leaves its field zero.
func decodeFields(fields map[string]json.RawMessage, v interface{}) {
	rv := reflect.ValueOf(v).Elem()
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		name, _, _ := strings.Cut(rt.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		raw, ok := fields[name]
		if !ok {
			continue
		}
		field := rv.Field(i)
		if err := json.Unmarshal(raw, field.Addr().Interface()); err != nil {
			field.Set(reflect.Zero(field.Type()))
		}
	}
}
