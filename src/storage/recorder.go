package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trade-dashboard/src/helpers"
	"trade-dashboard/src/interfaces"
	"trade-dashboard/src/logger"
	"trade-dashboard/src/models"
	"trade-dashboard/src/utils"
)

// -----------------------------------------------------------------------------

const (
	recorderQueueSize = 256
	cleanupInterval   = time.Hour
)

// NewDatabase selects the history backend from config. It returns nil when
// recording is disabled.
func NewDatabase(cfg *models.MConfig, log *logger.Logger) (interfaces.IDatabase, error) {
	var (
		db  interfaces.IDatabase
		err error
	)

	switch cfg.Storage.DBType {
	case "", "none":
		return nil, nil
	case "postgres":
		db, err = NewPostgresDB(cfg, log.Named("postgres"))
	case "sqlite":
		db, err = NewAsyncSQLiteDB(cfg, log.Named("sqlite"))
	default:
		return nil, fmt.Errorf("unknown storage db_type %q", cfg.Storage.DBType)
	}
	if err != nil {
		return nil, helpers.NewDatabaseError(cfg.Storage.DBType, err)
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, helpers.NewDatabaseError(cfg.Storage.DBType, err)
	}
	return db, nil
}

// -----------------------------------------------------------------------------
// Recorder persists one state sample per new state timestamp and every
// live/poll transition. Writes happen on the Run goroutine so the render path
// never waits on the database; when the queue is full rows are dropped.
// -----------------------------------------------------------------------------

type Recorder struct {
	DB        interfaces.IDatabase
	Clock     utils.Clock
	Logger    *logger.Logger
	SessionID string

	queue chan interface{}

	mu        sync.Mutex
	lastState int64
	link      models.LinkStatus
	dropped   int
}

var _ interfaces.IRenderer = (*Recorder)(nil)

func NewRecorder(db interfaces.IDatabase, clock utils.Clock, log *logger.Logger) *Recorder {
	return &Recorder{
		DB:        db,
		Clock:     clock,
		Logger:    log,
		SessionID: utils.NewID(),
		queue:     make(chan interface{}, recorderQueueSize),
		link:      models.LinkPoll,
	}
}

// -----------------------------------------------------------------------------

func (r *Recorder) Render(frame *models.MFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if frame.StateTime == 0 || frame.StateTime == r.lastState {
		return
	}
	r.lastState = frame.StateTime

	sample := models.MStateSample{
		SessionID:  r.SessionID,
		StateTime:  frame.StateTime,
		Status:     frame.Status,
		Stale:      frame.Stale,
		Link:       string(frame.Link),
		RecordedAt: r.Clock.Now().UnixMilli(),
	}
	if state := frame.View.StateSnapshot(); state != nil {
		sample.Mid, sample.VolPct = state.Mid.Ptr(), state.VolPct.Ptr()
	}
	r.enqueue(sample)
}

// -----------------------------------------------------------------------------

func (r *Recorder) SetLinkStatus(status models.LinkStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if status == r.link {
		return
	}
	r.link = status

	r.enqueue(models.MLinkEvent{
		ID:         utils.NewID(),
		SessionID:  r.SessionID,
		Link:       string(status),
		RecordedAt: r.Clock.Now().UnixMilli(),
	})
}

// enqueue must be called with mu held.
func (r *Recorder) enqueue(row interface{}) {
	select {
	case r.queue <- row:
	default:
		r.dropped++
		if r.dropped == 1 || r.dropped%100 == 0 {
			r.Logger.Warning("Recorder queue full, %d rows dropped so far", r.dropped)
		}
	}
}

// Dropped reports how many rows were discarded because the queue was full.
func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// -----------------------------------------------------------------------------

// Run writes queued rows until ctx is cancelled, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	if err := r.DB.CleanupOldData(); err != nil {
		r.Logger.Warning("Initial cleanup failed: %v", err)
	}

	for {
		select {
		case row := <-r.queue:
			r.write(row)

		case <-ticker.C:
			if err := r.DB.CleanupOldData(); err != nil {
				r.Logger.Warning("Cleanup failed: %v", err)
			}

		case <-ctx.Done():
			for {
				select {
				case row := <-r.queue:
					r.write(row)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(row interface{}) {
	var err error
	switch v := row.(type) {
	case models.MStateSample:
		err = r.DB.SaveStateSample(v)
	case models.MLinkEvent:
		err = r.DB.SaveLinkEvent(v)
	}
	if err != nil {
		r.Logger.Error("Recorder write failed: %v", err)
	}
}
