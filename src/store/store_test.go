package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-dashboard/src/models"
)

func mustDoc(t *testing.T, s string) models.Document {
	t.Helper()
	doc, err := models.ParseDocument([]byte(s))
	require.NoError(t, err)
	return doc
}

func TestApplyFullReplacesSlot(t *testing.T) {
	s := NewSnapshotStore()

	s.ApplyFull(models.KindState, mustDoc(t, `{"status":"OK","mid":1.5,"lev":2}`))
	view := s.ApplyFull(models.KindState, mustDoc(t, `{"status":"WARN"}`))

	assert.Equal(t, json.RawMessage(`"WARN"`), view.State["status"])
	assert.NotContains(t, view.State, "mid")
	assert.NotContains(t, view.State, "lev")
}

func TestApplyFullNilIsNoop(t *testing.T) {
	s := NewSnapshotStore()
	s.ApplyFull(models.KindOrders, mustDoc(t, `{"open":[{"id":"a"}],"closed":[],"stats":{"pnl_day":1}}`))
	before, err := json.Marshal(s.View())
	require.NoError(t, err)

	s.ApplyFull(models.KindOrders, nil)
	s.ApplyFull(models.KindReport, nil)

	after, err := json.Marshal(s.View())
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
	assert.Nil(t, s.View().Report)
}

func TestApplyDeltaIsOneLevelDeep(t *testing.T) {
	s := NewSnapshotStore()
	s.ApplyFull(models.KindState, mustDoc(t,
		`{"status":"OK","mid":100,"indicators":{"alpha_signal":"long","tf":"5m"},"grid":[1,2,30]}`))
	indicatorsBefore := append(json.RawMessage(nil), s.View().State["indicators"]...)

	view := s.ApplyDelta(models.KindState, mustDoc(t, `{"mid":101,"status":"WARN"}`))

	assert.Equal(t, json.RawMessage(`101`), view.State["mid"])
	assert.Equal(t, json.RawMessage(`"WARN"`), view.State["status"])
	assert.Equal(t, indicatorsBefore, view.State["indicators"], "untouched nested object must stay byte-identical")
	assert.Equal(t, json.RawMessage(`[1,2,30]`), view.State["grid"])
}

func TestApplyDeltaReplacesNestedObjects(t *testing.T) {
	s := NewSnapshotStore()
	s.ApplyFull(models.KindState, mustDoc(t, `{"status":"OK","indicators":{"alpha_signal":"long","tf":"5m"}}`))

	view := s.ApplyDelta(models.KindState, mustDoc(t, `{"indicators":{"tf":"1h"}}`))

	snap := view.StateSnapshot()
	require.NotNil(t, snap)
	assert.Equal(t, map[string]interface{}{"tf": "1h"}, snap.Indicators)
}

func TestApplyDeltaCreatesMissingSlot(t *testing.T) {
	s := NewSnapshotStore()

	view := s.ApplyDelta(models.KindConfig, mustDoc(t, `{"ws_url":"ws://x/feed"}`))

	require.NotNil(t, view.Config)
	cfg := view.ConfigSnapshot()
	require.NotNil(t, cfg)
	assert.Equal(t, "ws://x/feed", cfg.WsURL)
}

func TestMistypedFieldsAreStored(t *testing.T) {
	s := NewSnapshotStore()
	s.ApplyFull(models.KindState, mustDoc(t, `{"status":"OK","ts_ms":1700000000000,"mid":5}`))

	s.ApplyFull(models.KindState, mustDoc(t, `{"status":"OK","ts_ms":1700000060000,"mid":"50000.5","grid":{"low":1}}`))
	view := s.ApplyDelta(models.KindState, mustDoc(t, `{"status":17,"ts_ms":1700000120000}`))

	assert.Equal(t, json.RawMessage(`1700000120000`), view.State["ts_ms"])
	assert.Equal(t, json.RawMessage(`17`), view.State["status"])

	snap := view.StateSnapshot()
	require.NotNil(t, snap)
	assert.Empty(t, snap.Status)
	assert.Equal(t, models.Number{Value: 50000.5, Valid: true}, snap.Mid)
	assert.Nil(t, snap.Grid)
}

func TestOrdersWithStringQuantitiesAreStored(t *testing.T) {
	s := NewSnapshotStore()

	view := s.ApplyFull(models.KindOrders, mustDoc(t,
		`{"open":[{"id":"a","side":"buy","qty":"0.01","price":"150.2"}],"closed":{"oops":true},"stats":{"pnl_day":"n/a"}}`))

	orders := view.OrdersSnapshot()
	require.Len(t, orders.Open, 1)
	assert.Equal(t, "buy", orders.Open[0].Side)
	assert.Equal(t, 0.01, orders.Open[0].Qty.Value)
	assert.Equal(t, 150.2, orders.Open[0].Price.Value)
	assert.Equal(t, []models.MOrder{}, orders.Closed)
	assert.False(t, orders.Stats.PnLDay.Valid)
}

func TestApplyReturnsSameViewAndDoesNotAlias(t *testing.T) {
	s := NewSnapshotStore()
	doc := mustDoc(t, `{"status":"OK"}`)

	view := s.ApplyFull(models.KindState, doc)
	assert.Same(t, s.View(), view)

	doc["status"] = json.RawMessage(`"PANIC"`)
	assert.Equal(t, json.RawMessage(`"OK"`), s.View().State["status"])
}
