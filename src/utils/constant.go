package utils

import "time"

// -----------------------------------------------------------------------------

// Timing contracts of the synchronization pipeline. These are fixed design
// constants and deliberately not part of the YAML config.
const (
	// PollInterval is the period of the polling fallback.
	PollInterval = 5000 * time.Millisecond

	// BackoffFloor is the first reconnect delay and the value restored after
	// a successful connect.
	BackoffFloor = 1000 * time.Millisecond

	// BackoffCeiling caps the doubling reconnect delay.
	BackoffCeiling = 15000 * time.Millisecond

	// StaleThreshold is the maximum age of the state snapshot before the
	// dashboard flags it as stale.
	StaleThreshold = 120000 * time.Millisecond
)

// -----------------------------------------------------------------------------

const (
	DefaultChartRange    = 120
	DefaultRetentionDays = 7
)
