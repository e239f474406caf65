package testutils

import (
	"context"
	"fmt"
	"sync"

	"trade-dashboard/src/interfaces"
	"trade-dashboard/src/models"
)

// StaticSource serves canned snapshots. Kinds without a document fail.
type StaticSource struct {
	mu    sync.Mutex
	docs  map[models.Kind]string
	errs  map[models.Kind]error
	calls map[models.Kind]int
	gate  chan struct{}
}

var _ interfaces.ISnapshotSource = (*StaticSource)(nil)

func NewStaticSource() *StaticSource {
	return &StaticSource{
		docs:  make(map[models.Kind]string),
		errs:  make(map[models.Kind]error),
		calls: make(map[models.Kind]int),
	}
}

func (s *StaticSource) Name() string { return "static" }

// Set makes kind return body.
func (s *StaticSource) Set(kind models.Kind, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[kind] = body
	delete(s.errs, kind)
}

// Fail makes kind return err.
func (s *StaticSource) Fail(kind models.Kind, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[kind] = err
}

// Block holds every Fetch until Release.
func (s *StaticSource) Block() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = make(chan struct{})
}

func (s *StaticSource) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gate != nil {
		close(s.gate)
		s.gate = nil
	}
}

func (s *StaticSource) Fetch(ctx context.Context, kind models.Kind) (models.Document, error) {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[kind]++

	if err := s.errs[kind]; err != nil {
		return nil, err
	}
	body, ok := s.docs[kind]
	if !ok {
		return nil, fmt.Errorf("%s: not found", kind.Endpoint())
	}
	return models.ParseDocument([]byte(body))
}

// Calls returns how often kind was fetched.
func (s *StaticSource) Calls(kind models.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[kind]
}
