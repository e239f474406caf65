package pipeline

import (
	"context"
	"errors"
	"time"

	"trade-dashboard/src/analysis"
	datasource "trade-dashboard/src/data_source"
	"trade-dashboard/src/interfaces"
	"trade-dashboard/src/live"
	"trade-dashboard/src/logger"
	"trade-dashboard/src/metrics"
	"trade-dashboard/src/models"
	"trade-dashboard/src/store"
	"trade-dashboard/src/utils"
)

const eventBuffer = 256

// ErrNotRunning is returned by Status once the loop has exited.
var ErrNotRunning = errors.New("pipeline is not running")

// Operator commands, posted from other goroutines.
type (
	forcePollingOnly struct{}
	refreshNow       struct{}
	statusQuery      struct{ reply chan models.MPipelineStatus }
)

// staleCheck fires when the last rendered state is due to go stale.
type staleCheck struct{}

// -----------------------------------------------------------------------------

// Pipeline is the synchronization loop. One goroutine (Run) owns the snapshot
// store, the live channel manager and the poller; everything asynchronous
// reports back as an event on a single channel, so merges never interleave.
type Pipeline struct {
	Config *models.MConfig
	Logger *logger.Logger

	clock    utils.Clock
	store    *store.SnapshotStore
	facade   *analysis.AnalysisFacade
	renderer interfaces.IRenderer
	metrics  *metrics.Metrics
	manager  *live.Manager
	poller   *datasource.Poller

	events chan interface{}
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	link         models.LinkStatus
	pushDisabled bool
	pushOverride string

	staleTimer utils.Timer
	lastStale  bool
}

var _ interfaces.IController = (*Pipeline)(nil)

func New(
	cfg *models.MConfig,
	source interfaces.ISnapshotSource,
	transport live.Transport,
	renderer interfaces.IRenderer,
	clock utils.Clock,
	m *metrics.Metrics,
	log *logger.Logger,
) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())

	p := &Pipeline{
		Config:       cfg,
		Logger:       log,
		clock:        clock,
		store:        store.NewSnapshotStore(),
		facade:       analysis.NewAnalysisFacade(cfg, clock, log.Named("analysis")),
		renderer:     renderer,
		metrics:      m,
		events:       make(chan interface{}, eventBuffer),
		done:         make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
		link:         models.LinkPoll,
		pushDisabled: cfg.Live.PollOnly,
		pushOverride: cfg.Live.PushURL,
	}

	p.manager = live.NewManager(transport, clock, listener{p},
		func(ev live.Event) { p.post(ev) }, m, log.Named("live"))
	p.poller = datasource.NewPoller(ctx, source, cfg.Source.ConcurrentRequests, clock,
		func(ev datasource.Event) { p.post(ev) }, m, log.Named("poller"))

	return p
}

// -----------------------------------------------------------------------------
// Loop
// -----------------------------------------------------------------------------

// Run drives the pipeline until ctx is cancelled. It must be called once.
func (p *Pipeline) Run(ctx context.Context) error {
	defer close(p.done)
	defer p.cancel()

	p.Logger.Info("Pipeline started (push %s)", p.pushMode())
	p.renderer.SetLinkStatus(p.link)
	p.metrics.RecordLink(false)
	p.poller.Start()

	for {
		select {
		case <-ctx.Done():
			p.manager.Stop()
			p.poller.Stop()
			p.stopStaleCheck()
			p.Logger.Info("Pipeline stopped")
			return nil
		case ev := <-p.events:
			p.handle(ev)
		}
	}
}

func (p *Pipeline) post(ev interface{}) {
	select {
	case p.events <- ev:
	case <-p.done:
	}
}

func (p *Pipeline) handle(ev interface{}) {
	switch e := ev.(type) {
	case live.Event:
		p.manager.HandleEvent(e)

	case datasource.Event:
		if snaps, done := p.poller.HandleEvent(e); done {
			p.applyPoll(snaps)
		}

	case forcePollingOnly:
		p.disablePush()

	case refreshNow:
		p.poller.Trigger()

	case statusQuery:
		e.reply <- p.status()

	case staleCheck:
		p.staleTimer = nil
		// A render since the timer was armed may already have shown the flip.
		if !p.lastStale && analysis.IsStale(p.store.View().State, p.clock.Now()) {
			p.render(models.OriginRecheck)
		}
	}
}

// -----------------------------------------------------------------------------
// Operator API
// -----------------------------------------------------------------------------

func (p *Pipeline) ForcePollingOnly() { p.post(forcePollingOnly{}) }

func (p *Pipeline) RefreshNow() { p.post(refreshNow{}) }

func (p *Pipeline) Status(ctx context.Context) (models.MPipelineStatus, error) {
	q := statusQuery{reply: make(chan models.MPipelineStatus, 1)}
	select {
	case p.events <- q:
	case <-p.done:
		return models.MPipelineStatus{}, ErrNotRunning
	case <-ctx.Done():
		return models.MPipelineStatus{}, ctx.Err()
	}

	select {
	case st := <-q.reply:
		return st, nil
	case <-p.done:
		return models.MPipelineStatus{}, ErrNotRunning
	case <-ctx.Done():
		return models.MPipelineStatus{}, ctx.Err()
	}
}

func (p *Pipeline) status() models.MPipelineStatus {
	return models.MPipelineStatus{
		Channel:          p.manager.State().String(),
		PushURL:          p.manager.URL(),
		PushDisabled:     p.pushDisabled,
		Link:             p.link,
		Polling:          p.poller.Active(),
		ReconnectDelayMs: p.manager.Delay(),
	}
}

// -----------------------------------------------------------------------------
// Transitions
// -----------------------------------------------------------------------------

func (p *Pipeline) applyPoll(snaps datasource.Snapshots) {
	for _, kind := range models.AllKinds {
		p.store.ApplyFull(kind, snaps[kind])
	}
	p.render(models.OriginPoll)
	p.resolvePush()
}

func (p *Pipeline) applyPush(msg live.Message) {
	for _, kind := range models.AllKinds {
		if partial, ok := msg[kind]; ok {
			p.store.ApplyDelta(kind, partial)
		}
	}
	p.render(models.OriginPush)
	p.resolvePush()
}

// resolvePush starts the channel once a URL is known: the operator override
// first, then the ws_url advertised by config.json.
func (p *Pipeline) resolvePush() {
	if p.pushDisabled || p.manager.State() != live.StateDisconnected {
		return
	}
	url := p.pushOverride
	if url == "" {
		if cfg := p.store.View().ConfigSnapshot(); cfg != nil {
			url = cfg.WsURL
		}
	}
	if url != "" {
		p.manager.Start(url)
	}
}

func (p *Pipeline) disablePush() {
	if p.pushDisabled {
		return
	}
	p.pushDisabled = true
	p.Logger.Warning("Push channel disabled by operator, polling only")
	p.manager.Stop()
	p.setLink(models.LinkPoll)
	p.poller.Start()
}

func (p *Pipeline) setLink(status models.LinkStatus) {
	if p.link == status {
		return
	}
	p.link = status
	p.renderer.SetLinkStatus(status)
}

func (p *Pipeline) render(origin string) {
	frame := p.facade.BuildFrame(p.store.View(), p.link, origin)
	p.metrics.RecordFrame(origin, frame.AgeMillis, frame.Stale)
	p.renderer.Render(frame)
	p.armStaleCheck(frame)
}

// armStaleCheck schedules a re-render for the moment a fresh frame's state
// crosses utils.StaleThreshold. While the push channel is up and the producer
// is silent nothing else would rebuild the frame.
func (p *Pipeline) armStaleCheck(frame *models.MFrame) {
	p.stopStaleCheck()
	p.lastStale = frame.Stale
	if frame.Stale || frame.AgeMillis < 0 {
		return
	}

	wait := utils.StaleThreshold - time.Duration(frame.AgeMillis)*time.Millisecond + time.Millisecond
	p.staleTimer = p.clock.AfterFunc(wait, func() { p.post(staleCheck{}) })
}

func (p *Pipeline) stopStaleCheck() {
	if p.staleTimer != nil {
		p.staleTimer.Stop()
		p.staleTimer = nil
	}
}

func (p *Pipeline) pushMode() string {
	switch {
	case p.pushDisabled:
		return "disabled"
	case p.pushOverride != "":
		return "override " + p.pushOverride
	}
	return "from config.json"
}

// -----------------------------------------------------------------------------

// listener adapts the channel manager callbacks onto the pipeline. They run
// inside handle, on the loop goroutine.
type listener struct{ p *Pipeline }

func (l listener) OnLive() {
	l.p.setLink(models.LinkLive)
	l.p.poller.Stop()
}

func (l listener) OnDown(state live.State, err error) {
	l.p.setLink(models.LinkPoll)
	l.p.poller.Start()
}

func (l listener) OnMessage(msg live.Message) {
	l.p.applyPush(msg)
}
