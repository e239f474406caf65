package datasource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-dashboard/src/logger"
	"trade-dashboard/src/metrics"
	"trade-dashboard/src/models"
	"trade-dashboard/src/testutils"
)

type pollerHarness struct {
	t      *testing.T
	clock  *testutils.FakeClock
	source *testutils.StaticSource
	events chan Event
	poller *Poller
}

func newPollerHarness(t *testing.T) *pollerHarness {
	h := &pollerHarness{
		t:      t,
		clock:  testutils.NewFakeClock(time.UnixMilli(1700000000000)),
		source: testutils.NewStaticSource(),
		events: make(chan Event, 16),
	}
	h.source.Set(models.KindState, `{"status":"OK"}`)
	h.poller = NewPoller(context.Background(), h.source, 4, h.clock,
		func(ev Event) { h.events <- ev }, metrics.NewMetrics(), logger.NewNop())
	return h
}

func (h *pollerHarness) next() Event {
	h.t.Helper()
	select {
	case ev := <-h.events:
		return ev
	case <-time.After(2 * time.Second):
		h.t.Fatal("no poller event")
		return nil
	}
}

func (h *pollerHarness) quiet() {
	h.t.Helper()
	select {
	case ev := <-h.events:
		h.t.Fatalf("unexpected event %T", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

// -----------------------------------------------------------------------------

func TestPollerRunsImmediatelyAndEveryInterval(t *testing.T) {
	h := newPollerHarness(t)

	h.poller.Start()
	snaps, done := h.poller.HandleEvent(h.next())
	require.True(t, done)
	assert.Contains(t, snaps, models.KindState)
	assert.Equal(t, []time.Duration{5 * time.Second}, h.clock.Pending())

	for cycle := 2; cycle <= 4; cycle++ {
		h.clock.Advance(5 * time.Second)
		_, done = h.poller.HandleEvent(h.next())
		require.False(t, done)
		_, done = h.poller.HandleEvent(h.next())
		require.True(t, done)
		assert.Equal(t, cycle, h.source.Calls(models.KindState))
	}
}

func TestPollerStartAndStopAreIdempotent(t *testing.T) {
	h := newPollerHarness(t)

	h.poller.Start()
	h.poller.Start()
	h.poller.HandleEvent(h.next())
	h.quiet()
	assert.Equal(t, 1, h.source.Calls(models.KindState))
	assert.Len(t, h.clock.Pending(), 1)

	h.poller.Stop()
	h.poller.Stop()
	assert.False(t, h.poller.Active())
	assert.Empty(t, h.clock.Pending())

	h.clock.Advance(time.Minute)
	h.quiet()
}

func TestPollerSkipsTickWhileCycleInFlight(t *testing.T) {
	h := newPollerHarness(t)
	h.source.Block()

	h.poller.Start()
	require.True(t, h.poller.InFlight())

	h.clock.Advance(5 * time.Second)
	_, done := h.poller.HandleEvent(h.next())
	require.False(t, done)

	h.source.Release()
	_, done = h.poller.HandleEvent(h.next())
	require.True(t, done)
	h.quiet()
	assert.Equal(t, 1, h.source.Calls(models.KindState))
}

func TestPollerDeliversResultAfterStop(t *testing.T) {
	h := newPollerHarness(t)
	h.source.Block()

	h.poller.Start()
	h.poller.Stop()
	h.source.Release()

	snaps, done := h.poller.HandleEvent(h.next())
	require.True(t, done)
	assert.Contains(t, snaps, models.KindState)
	assert.False(t, h.poller.InFlight())
}

func TestStaleTickAfterRestartIsIgnored(t *testing.T) {
	h := newPollerHarness(t)
	h.poller.Start()
	h.poller.HandleEvent(h.next())

	h.poller.Stop()
	stale := PollDue{Generation: 1}
	h.poller.Start()
	h.poller.HandleEvent(h.next())

	_, done := h.poller.HandleEvent(stale)
	assert.False(t, done)
	assert.False(t, h.poller.InFlight())
	assert.Equal(t, 2, h.source.Calls(models.KindState))
}
