package interfaces

import (
	"context"

	"trade-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// ISnapshotSource pulls full snapshots from the trading process.
// -----------------------------------------------------------------------------

type ISnapshotSource interface {

	// Name returns a human readable identifier (usually the base URL)
	Name() string

	// -----------------------------------------------------------------------------

	// Fetch pulls one snapshot kind. A missing endpoint, a non-success status
	// or a body that is not a JSON object is reported as an error; callers
	// substitute nil for that kind.
	Fetch(ctx context.Context, kind models.Kind) (models.Document, error)
}
