package datasource

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"trade-dashboard/src/helpers"
	"trade-dashboard/src/interfaces"
	"trade-dashboard/src/logger"
	"trade-dashboard/src/metrics"
	"trade-dashboard/src/models"
	"trade-dashboard/src/utils"
)

// HTTPSnapshotSource pulls the JSON files the trading process publishes under
// a common base URL.
type HTTPSnapshotSource struct {
	BaseURL string
	Network interfaces.INetworkManager
	Clock   utils.Clock
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewHTTPSnapshotSource(cfg *models.MConfig, netMgr interfaces.INetworkManager, clock utils.Clock, log *logger.Logger) *HTTPSnapshotSource {
	return &HTTPSnapshotSource{
		BaseURL: strings.TrimRight(cfg.Source.BaseURL, "/"),
		Network: netMgr,
		Clock:   clock,
		Logger:  log,
	}
}

func (s *HTTPSnapshotSource) Name() string {
	return s.BaseURL
}

// -----------------------------------------------------------------------------

// Fetch pulls one kind with a cache-busting "t" parameter.
func (s *HTTPSnapshotSource) Fetch(ctx context.Context, kind models.Kind) (models.Document, error) {
	endpoint := s.BaseURL + "/" + kind.Endpoint()
	params := map[string]string{"t": strconv.FormatInt(s.Clock.Now().UnixMilli(), 10)}

	body, err := s.Network.Get(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	doc, err := models.ParseDocument(body)
	if err != nil {
		return nil, helpers.NewParseError(kind.Endpoint(), err)
	}
	return doc, nil
}

// -----------------------------------------------------------------------------
// Fan-out
// -----------------------------------------------------------------------------

// Snapshots holds the kinds a pull cycle obtained. Failed kinds are absent.
type Snapshots map[models.Kind]models.Document

// FetchAll pulls every kind concurrently, at most limit at a time. Each kind
// fails independently; failures are reported to errs and counted, never
// returned.
func FetchAll(ctx context.Context, src interfaces.ISnapshotSource, limit int, errs *helpers.ErrorHandler, m *metrics.Metrics) Snapshots {
	var (
		mu       sync.Mutex
		results  = Snapshots{}
		failures = make(map[models.Kind]error)
	)

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for _, kind := range models.AllKinds {
		g.Go(func() error {
			doc, err := src.Fetch(ctx, kind)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[kind] = err
				return nil
			}
			results[kind] = doc
			return nil
		})
	}
	_ = g.Wait()

	for _, kind := range models.AllKinds {
		err := failures[kind]
		if err != nil {
			m.RecordFetchFailure(kind.String())
		}
		errs.Handle("fetch "+kind.Endpoint(), err)
	}
	return results
}
