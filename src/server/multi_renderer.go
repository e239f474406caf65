package server

import (
	"trade-dashboard/src/interfaces"
	"trade-dashboard/src/models"
)

// MultiRenderer fans every frame and link change out to several sinks, in
// order. Sinks must not block.
type MultiRenderer []interfaces.IRenderer

var _ interfaces.IRenderer = MultiRenderer(nil)

func (m MultiRenderer) Render(frame *models.MFrame) {
	for _, r := range m {
		r.Render(frame)
	}
}

func (m MultiRenderer) SetLinkStatus(status models.LinkStatus) {
	for _, r := range m {
		r.SetLinkStatus(status)
	}
}
