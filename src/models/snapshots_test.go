package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberAcceptsNumbersAndNumericStrings(t *testing.T) {
	tests := []struct {
		raw   string
		want  float64
		valid bool
	}{
		{`42`, 42, true},
		{`-0.5`, -0.5, true},
		{`"50000.5"`, 50000.5, true},
		{`" 7 "`, 7, true},
		{`"NaN"`, 0, false},
		{`"Inf"`, 0, false},
		{`"abc"`, 0, false},
		{`true`, 0, false},
		{`null`, 0, false},
		{`{"v":1}`, 0, false},
		{`[1]`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var n Number
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &n))
			assert.Equal(t, tt.valid, n.Valid)
			assert.Equal(t, tt.want, n.Value)
		})
	}
}

func TestNumberMarshalsAbsentAsNull(t *testing.T) {
	out, err := json.Marshal([]Number{{Value: 1.5, Valid: true}, {}})
	require.NoError(t, err)
	assert.JSONEq(t, `[1.5,null]`, string(out))

	assert.Nil(t, Number{}.Ptr())
	require.NotNil(t, Number{Value: 2, Valid: true}.Ptr())
}

func TestStateSnapshotSkipsMistypedFields(t *testing.T) {
	doc, err := ParseDocument([]byte(
		`{"status":"WARN","ts_ms":1700000000000,"mid":"101.25","vol_pct":"high","grid":{"low":1,"high":2},"indicators":[1,2],"lev":3}`))
	require.NoError(t, err)

	view := &MMergedView{State: doc}
	snap := view.StateSnapshot()
	require.NotNil(t, snap)

	assert.Equal(t, StatusWarn, snap.Status)
	assert.Equal(t, 1700000000000.0, snap.TsMillis)
	assert.Equal(t, Number{Value: 101.25, Valid: true}, snap.Mid)
	assert.False(t, snap.VolPct.Valid)
	assert.Nil(t, snap.Grid)
	assert.Nil(t, snap.Indicators)
	assert.Equal(t, 3.0, snap.Leverage.Value)
}

func TestOrdersSnapshotKeepsGoodOrders(t *testing.T) {
	doc, err := ParseDocument([]byte(
		`{"open":[{"id":"a","qty":"0.01","side":5},"junk",{"id":"b","price":99}],"closed":"none"}`))
	require.NoError(t, err)

	view := &MMergedView{Orders: doc}
	orders := view.OrdersSnapshot()

	require.Len(t, orders.Open, 3)
	assert.Equal(t, "a", orders.Open[0].ID)
	assert.Equal(t, 0.01, orders.Open[0].Qty.Value)
	assert.Empty(t, orders.Open[0].Side)
	assert.Equal(t, MOrder{}, orders.Open[1])
	assert.Equal(t, 99.0, orders.Open[2].Price.Value)
	assert.Equal(t, []MOrder{}, orders.Closed)
}

func TestConfigSnapshotDropsMisshapenSections(t *testing.T) {
	doc, err := ParseDocument([]byte(
		`{"ws_url":"ws://bot/feed","pid":[1,2],"daemon":{"loop_seconds":"5"}}`))
	require.NoError(t, err)

	view := &MMergedView{Config: doc}
	cfg := view.ConfigSnapshot()
	require.NotNil(t, cfg)

	assert.Equal(t, "ws://bot/feed", cfg.WsURL)
	assert.Nil(t, cfg.PID)
	require.NotNil(t, cfg.Daemon)
	assert.Equal(t, 5.0, cfg.Daemon.LoopSeconds.Value)
}
