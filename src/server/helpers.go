package server

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"trade-dashboard/src/analysis"
	"trade-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// Outbound websocket messages
// -----------------------------------------------------------------------------

type wsMessage struct {
	Type  string            `json:"type"`
	Frame *models.MFrame    `json:"frame,omitempty"`
	Link  models.LinkStatus `json:"link,omitempty"`
	Range int               `json:"range,omitempty"`
	Error string            `json:"error,omitempty"`
}

func frameMessage(frame *models.MFrame) *wsMessage {
	return &wsMessage{Type: "frame", Frame: frame, Link: frame.Link}
}

func errorMessage(text string) *wsMessage {
	return &wsMessage{Type: "error", Error: text}
}

func linkMessage(status models.LinkStatus) *wsMessage {
	return &wsMessage{Type: "link", Link: status}
}

// -----------------------------------------------------------------------------

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// -----------------------------------------------------------------------------

// seriesFor recomputes the chart series at a different window size.
func seriesFor(frame *models.MFrame, rangeN int) ([]models.MSeriesPoint, models.MSeriesSummary) {
	if rangeN == frame.Range {
		return frame.Series, frame.Summary
	}
	series := analysis.ExtractSeries(frame.View, rangeN)
	return series, analysis.Summarize(series)
}

// frameAtRange returns frame with its chart series recomputed for rangeN. The
// view is shared with the original frame.
func frameAtRange(frame *models.MFrame, rangeN int) *models.MFrame {
	if rangeN <= 0 || rangeN == frame.Range {
		return frame
	}
	out := *frame
	out.Range = rangeN
	out.Series, out.Summary = seriesFor(frame, rangeN)
	return &out
}

// -----------------------------------------------------------------------------

// statusBody is the badge and banner state shown above the dashboard.
func statusBody(frame *models.MFrame, link models.LinkStatus) gin.H {
	if frame == nil {
		return gin.H{
			"link":   link,
			"stale":  true,
			"status": "",
			"level":  "",
			"age_ms": int64(-1),
		}
	}
	return gin.H{
		"link":        link,
		"stale":       frame.Stale,
		"status":      frame.Status,
		"level":       frame.StatusLevel,
		"age_ms":      frame.AgeMillis,
		"state_ts_ms": frame.StateTime,
		"rendered_at": frame.RenderedAt,
	}
}
