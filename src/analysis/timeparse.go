package analysis

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"trade-dashboard/src/models"
)

// Date layouts accepted for string timestamps. Strings without a zone are UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// -----------------------------------------------------------------------------

// EpochMillis normalizes a timestamp value to epoch milliseconds. Numbers and
// numeric strings are taken as milliseconds; other strings are parsed as
// ISO-8601 dates. Absent or unparseable input yields 0, which callers treat as
// unknown (never as "now").
func EpochMillis(v interface{}) int64 {
	switch t := v.(type) {
	case nil:
		return 0
	case int64:
		return positive(t)
	case int:
		return positive(int64(t))
	case float64:
		return floatMillis(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return positive(i)
		}
		if f, err := t.Float64(); err == nil {
			return floatMillis(f)
		}
		return 0
	case time.Time:
		if t.IsZero() {
			return 0
		}
		return positive(t.UnixMilli())
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return floatMillis(f)
		}
		return parseISOMillis(s)
	}
	return 0
}

// secondsToMillis handles the explicit epoch-seconds field, which may carry a
// fractional part.
func secondsToMillis(v interface{}) int64 {
	var f float64
	switch t := v.(type) {
	case int64:
		f = float64(t)
	case int:
		f = float64(t)
	case float64:
		f = t
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = n
	default:
		return 0
	}
	return floatMillis(f * 1000)
}

func parseISOMillis(s string) int64 {
	for _, layout := range isoLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return positive(ts.UnixMilli())
		}
	}
	return 0
}

func floatMillis(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 || f > math.MaxInt64/2 {
		return 0
	}
	return int64(f)
}

func positive(ms int64) int64 {
	if ms <= 0 {
		return 0
	}
	return ms
}

// -----------------------------------------------------------------------------

// SnapshotMillis resolves the timestamp of a snapshot document. The explicit
// millisecond field wins, then seconds, then the generic ts field, then the
// ISO string; the first present and parseable field is used.
func SnapshotMillis(doc models.Document) int64 {
	if doc == nil {
		return 0
	}
	if v, ok := doc.Value("ts_ms"); ok {
		if ms := EpochMillis(v); ms > 0 {
			return ms
		}
	}
	if v, ok := doc.Value("ts_s"); ok {
		if ms := secondsToMillis(v); ms > 0 {
			return ms
		}
	}
	if v, ok := doc.Value("ts"); ok {
		if ms := EpochMillis(v); ms > 0 {
			return ms
		}
	}
	if v, ok := doc.Value("ts_iso"); ok {
		if s, isString := v.(string); isString {
			return parseISOMillis(strings.TrimSpace(s))
		}
	}
	return 0
}
