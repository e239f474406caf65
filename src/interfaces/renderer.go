package interfaces

import "trade-dashboard/src/models"

// -----------------------------------------------------------------------------
// IRenderer consumes synchronized frames. Implementations must be idempotent
// and must not block the caller: the pipeline loop invokes them inline.
// -----------------------------------------------------------------------------

type IRenderer interface {
	// Render receives a frame built from a cloned view. The view is never nil.
	Render(frame *models.MFrame)

	// -----------------------------------------------------------------------------

	// SetLinkStatus updates the live-status indicator ("live" or "poll").
	SetLinkStatus(status models.LinkStatus)
}
