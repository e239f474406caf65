package analysis

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"trade-dashboard/src/models"
)

// Field aliases accepted on report series entries. The lists reflect schema
// drift in the trading process and are the complete accepted set.
var (
	entryTimeKeys  = []string{"ts_ms", "ts", "t", "time", "ts_iso"}
	entryValueKeys = []string{"value", "v", "mid", "price"}
)

// -----------------------------------------------------------------------------

// ExtractSeries turns the view into at most n chart points, most recent last.
// The report series is preferred; the state's mid-price history is the
// fallback, indexed 0..n-1 since it carries no timestamps. Entries whose value
// is not a finite number are dropped. The result may be empty.
func ExtractSeries(view *models.MMergedView, n int) []models.MSeriesPoint {
	out := []models.MSeriesPoint{}
	if view == nil || n <= 0 {
		return out
	}

	if report := view.ReportSnapshot(); report != nil {
		if entries, ok := report.Entries(); ok {
			return fromReport(tail(entries, n))
		}
	}

	if state := view.StateSnapshot(); state != nil && state.History != nil {
		return fromHistory(tail(state.History, n))
	}

	return out
}

func tail(entries []interface{}, n int) []interface{} {
	if len(entries) > n {
		return entries[len(entries)-n:]
	}
	return entries
}

// -----------------------------------------------------------------------------

func fromReport(entries []interface{}) []models.MSeriesPoint {
	out := make([]models.MSeriesPoint, 0, len(entries))
	for _, entry := range entries {
		var tsRaw, valRaw interface{}

		switch e := entry.(type) {
		case map[string]interface{}:
			tsRaw = firstTime(e)
			valRaw = firstPresent(e, entryValueKeys)
		case []interface{}:
			if len(e) < 2 {
				continue
			}
			tsRaw, valRaw = e[0], e[1]
		default:
			continue
		}

		value, ok := finiteFloat(valRaw)
		if !ok {
			continue
		}
		out = append(out, models.MSeriesPoint{Time: EpochMillis(tsRaw), Value: value})
	}
	return out
}

func fromHistory(entries []interface{}) []models.MSeriesPoint {
	out := make([]models.MSeriesPoint, 0, len(entries))
	for i, entry := range entries {
		value, ok := finiteFloat(entry)
		if !ok {
			continue
		}
		out = append(out, models.MSeriesPoint{Time: int64(i), Value: value})
	}
	return out
}

// -----------------------------------------------------------------------------

// firstTime returns the first alias that normalizes to a usable timestamp,
// already converted to milliseconds.
func firstTime(e map[string]interface{}) interface{} {
	for _, k := range entryTimeKeys {
		v, ok := e[k]
		if !ok {
			continue
		}
		if ms := EpochMillis(v); ms > 0 {
			return ms
		}
	}
	return nil
}

func firstPresent(e map[string]interface{}, keys []string) interface{} {
	for _, k := range keys {
		if v, ok := e[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// finiteFloat coerces numbers and numeric strings. Non-finite results and
// anything else report false.
func finiteFloat(v interface{}) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
