package analysis

import (
	"time"

	"trade-dashboard/src/models"
	"trade-dashboard/src/utils"
)

// -----------------------------------------------------------------------------

// IsStale reports whether the state snapshot is too old to trust: absent,
// without a usable timestamp, or older than utils.StaleThreshold. An age of
// exactly the threshold is still fresh.
func IsStale(state models.Document, now time.Time) bool {
	if state == nil {
		return true
	}
	ts := SnapshotMillis(state)
	if ts == 0 {
		return true
	}
	return now.UnixMilli()-ts > utils.StaleThreshold.Milliseconds()
}

// AgeMillis returns how old the state snapshot is, or -1 when its timestamp
// is unknown.
func AgeMillis(state models.Document, now time.Time) int64 {
	ts := SnapshotMillis(state)
	if ts == 0 {
		return -1
	}
	return now.UnixMilli() - ts
}
