package testutils

import (
	"sync"

	"trade-dashboard/src/interfaces"
	"trade-dashboard/src/models"
)

// CapturingRenderer records everything the pipeline hands to its sinks.
type CapturingRenderer struct {
	mu     sync.Mutex
	frames []*models.MFrame
	links  []models.LinkStatus
}

var _ interfaces.IRenderer = (*CapturingRenderer)(nil)

func (r *CapturingRenderer) Render(frame *models.MFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
}

func (r *CapturingRenderer) SetLinkStatus(status models.LinkStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links = append(r.links, status)
}

func (r *CapturingRenderer) Frames() []*models.MFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.MFrame(nil), r.frames...)
}

// Last returns the most recent frame, or nil.
func (r *CapturingRenderer) Last() *models.MFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[len(r.frames)-1]
}

func (r *CapturingRenderer) Links() []models.LinkStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.LinkStatus(nil), r.links...)
}

// Link returns the latest link status, or "" before any was set.
func (r *CapturingRenderer) Link() models.LinkStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.links) == 0 {
		return ""
	}
	return r.links[len(r.links)-1]
}
