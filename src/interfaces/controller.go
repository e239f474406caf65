package interfaces

import (
	"context"

	"trade-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// IController is the operator's handle on the running pipeline. Calls are
// safe from any goroutine.
// -----------------------------------------------------------------------------

type IController interface {

	// ForcePollingOnly turns the push channel off for the rest of the session.
	ForcePollingOnly()

	// -----------------------------------------------------------------------------

	// RefreshNow runs a pull cycle immediately.
	RefreshNow()

	// -----------------------------------------------------------------------------

	// Status reports the channel and polling state.
	Status(ctx context.Context) (models.MPipelineStatus, error)
}
