package models

// -----------------------------------------------------------------------------
// Frame: everything a render sink needs for one refresh of the dashboard.
// -----------------------------------------------------------------------------

// LinkStatus is the live-status indicator: "live" while the push channel is
// connected, "poll" otherwise.
type LinkStatus string

const (
	LinkLive LinkStatus = "live"
	LinkPoll LinkStatus = "poll"
)

// Frame origins.
const (
	OriginPoll = "poll"
	OriginPush = "push"
	// OriginRecheck marks a frame rebuilt because the held state aged past
	// the staleness threshold with nothing new arriving.
	OriginRecheck = "recheck"
)

type MSeriesPoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

type MSeriesSummary struct {
	Points int     `json:"points"`
	First  float64 `json:"first"`
	Last   float64 `json:"last"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Change float64 `json:"change_pct"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
}

type MFrame struct {
	View        *MMergedView   `json:"view"`
	Range       int            `json:"range"`
	Series      []MSeriesPoint `json:"series"`
	Summary     MSeriesSummary `json:"summary"`
	Stale       bool           `json:"stale"`
	StateTime   int64          `json:"state_ts_ms"`
	AgeMillis   int64          `json:"age_ms"`
	Status      string         `json:"status"`
	StatusLevel string         `json:"status_level"`
	Link        LinkStatus     `json:"link"`
	Origin      string         `json:"origin"`
	RenderedAt  int64          `json:"rendered_at"`
}

// StatusLevel maps a process status onto the badge level shown to the
// operator. Unknown statuses have no level.
func StatusLevel(status string) string {
	switch status {
	case StatusOK:
		return "ok"
	case StatusWarn:
		return "warn"
	case StatusPanic, StatusSuspend:
		return "panic"
	}
	return ""
}

// -----------------------------------------------------------------------------
// Recorder rows
// -----------------------------------------------------------------------------

type MStateSample struct {
	SessionID  string   `json:"session_id"`
	StateTime  int64    `json:"state_ts_ms"`
	Status     string   `json:"status"`
	Mid        *float64 `json:"mid"`
	VolPct     *float64 `json:"vol_pct"`
	Stale      bool     `json:"stale"`
	Link       string   `json:"link"`
	RecordedAt int64    `json:"recorded_at"`
}

type MLinkEvent struct {
	ID         string `json:"id"`
	SessionID  string `json:"session_id"`
	Link       string `json:"link"`
	RecordedAt int64  `json:"recorded_at"`
}

// -----------------------------------------------------------------------------
// Pipeline status, as reported to the operator API.
// -----------------------------------------------------------------------------

type MPipelineStatus struct {
	Channel          string     `json:"channel"`
	PushURL          string     `json:"push_url,omitempty"`
	PushDisabled     bool       `json:"push_disabled"`
	Link             LinkStatus `json:"link"`
	Polling          bool       `json:"polling"`
	ReconnectDelayMs int64      `json:"reconnect_delay_ms"`
}
