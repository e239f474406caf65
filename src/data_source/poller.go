package datasource

import (
	"context"
	"time"

	"trade-dashboard/src/helpers"
	"trade-dashboard/src/interfaces"
	"trade-dashboard/src/logger"
	"trade-dashboard/src/metrics"
	"trade-dashboard/src/utils"
)

// -----------------------------------------------------------------------------
// Poller events
// -----------------------------------------------------------------------------

type Event interface {
	pollEvent()
}

// PollDue is posted by the schedule timer. Generation ties it to the
// Start that armed it.
type PollDue struct {
	Generation uint64
}

// PollResult carries a finished pull cycle.
type PollResult struct {
	Snapshots Snapshots
}

func (PollDue) pollEvent()    {}
func (PollResult) pollEvent() {}

// -----------------------------------------------------------------------------

// Poller is the polling fallback: while active it runs a full pull cycle
// every interval. Like the live channel manager it is driven from a single
// goroutine; pulls run elsewhere and report back through post.
type Poller struct {
	Logger *logger.Logger

	ctx      context.Context
	source   interfaces.ISnapshotSource
	clock    utils.Clock
	interval time.Duration
	limit    int
	post     func(Event)
	spawn    func(func())
	metrics  *metrics.Metrics
	errors   *helpers.ErrorHandler

	active     bool
	inFlight   bool
	generation uint64
	timer      utils.Timer
}

func NewPoller(
	ctx context.Context,
	source interfaces.ISnapshotSource,
	limit int,
	clock utils.Clock,
	post func(Event),
	m *metrics.Metrics,
	log *logger.Logger,
) *Poller {
	return &Poller{
		Logger:   log,
		ctx:      ctx,
		source:   source,
		clock:    clock,
		interval: utils.PollInterval,
		limit:    limit,
		post:     post,
		spawn:    func(f func()) { go f() },
		metrics:  m,
		errors:   helpers.NewErrorHandler(log),
	}
}

func (p *Poller) Active() bool { return p.active }

func (p *Poller) InFlight() bool { return p.inFlight }

// -----------------------------------------------------------------------------

// Start activates polling and runs the first cycle immediately. Starting an
// active poller does nothing.
func (p *Poller) Start() {
	if p.active {
		return
	}
	p.active = true
	p.generation++
	p.Logger.Info("Polling fallback started (every %v)", p.interval)

	p.schedule()
	p.Trigger()
}

// Stop cancels the schedule. A cycle already in flight still completes and
// its result is still delivered. Stopping an inactive poller does nothing.
func (p *Poller) Stop() {
	if !p.active {
		return
	}
	p.active = false
	p.generation++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.Logger.Info("Polling fallback stopped")
}

// Trigger runs one pull cycle now unless one is already in flight. It works
// whether or not the poller is active.
func (p *Poller) Trigger() bool {
	if p.inFlight {
		p.Logger.Debug("Pull cycle already in flight, skipping")
		return false
	}
	p.inFlight = true

	p.spawn(func() {
		snaps := FetchAll(p.ctx, p.source, p.limit, p.errors, p.metrics)
		p.post(PollResult{Snapshots: snaps})
	})
	return true
}

// -----------------------------------------------------------------------------

// HandleEvent applies a poller event. It returns the snapshots of a finished
// cycle with true, or nil and false for schedule ticks.
func (p *Poller) HandleEvent(ev Event) (Snapshots, bool) {
	switch e := ev.(type) {
	case PollDue:
		if !p.active || e.Generation != p.generation {
			return nil, false
		}
		p.schedule()
		p.Trigger()
		return nil, false

	case PollResult:
		p.inFlight = false
		p.metrics.RecordPollCycle()
		return e.Snapshots, true
	}
	return nil, false
}

func (p *Poller) schedule() {
	if p.timer != nil {
		p.timer.Stop()
	}
	gen := p.generation
	p.timer = p.clock.AfterFunc(p.interval, func() {
		p.post(PollDue{Generation: gen})
	})
}
