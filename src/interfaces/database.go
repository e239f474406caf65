package interfaces

import "trade-dashboard/src/models"

// -----------------------------------------------------------------------------
// IDatabase defines the contract for the telemetry history recorder.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveStateSample stores one observed state snapshot.
	SaveStateSample(sample models.MStateSample) error

	// -----------------------------------------------------------------------------

	// SaveLinkEvent stores a live/poll transition of the push channel.
	SaveLinkEvent(event models.MLinkEvent) error

	// -----------------------------------------------------------------------------

	// RecentSamples returns up to limit samples, newest first.
	RecentSamples(limit int) ([]models.MStateSample, error)

	// -----------------------------------------------------------------------------

	// CleanupOldData removes data older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
