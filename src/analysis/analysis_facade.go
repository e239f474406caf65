package analysis

import (
	"trade-dashboard/src/analysis/core"
	"trade-dashboard/src/logger"
	"trade-dashboard/src/models"
	"trade-dashboard/src/utils"
)

// AnalysisFacade runs the staleness monitor and series extractor over a view
// and packages the result as a frame for the render sinks.
type AnalysisFacade struct {
	Range  int
	Clock  utils.Clock
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAnalysisFacade(cfg *models.MConfig, clock utils.Clock, log *logger.Logger) *AnalysisFacade {
	rangeN := cfg.Chart.Range
	if rangeN <= 0 {
		rangeN = utils.DefaultChartRange
	}
	return &AnalysisFacade{
		Range:  rangeN,
		Clock:  clock,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

// BuildFrame computes staleness and the chart series for view. The frame
// carries a clone of view so it can cross goroutines.
func (a *AnalysisFacade) BuildFrame(view *models.MMergedView, link models.LinkStatus, origin string) *models.MFrame {
	now := a.Clock.Now()
	series := ExtractSeries(view, a.Range)

	frame := &models.MFrame{
		View:       view.Clone(),
		Range:      a.Range,
		Series:     series,
		Summary:    Summarize(series),
		Stale:      IsStale(view.State, now),
		StateTime:  SnapshotMillis(view.State),
		AgeMillis:  AgeMillis(view.State, now),
		Link:       link,
		Origin:     origin,
		RenderedAt: now.UnixMilli(),
	}

	if state := view.StateSnapshot(); state != nil {
		frame.Status = state.Status
		frame.StatusLevel = models.StatusLevel(state.Status)
	}

	a.Logger.Debug("Built %s frame: %d points, stale=%v, age=%dms", origin, len(series), frame.Stale, frame.AgeMillis)
	return frame
}

// -----------------------------------------------------------------------------

// Summarize reduces a series to the figures shown above the chart.
func Summarize(series []models.MSeriesPoint) models.MSeriesSummary {
	if len(series) == 0 {
		return models.MSeriesSummary{}
	}

	values := make([]float64, len(series))
	for i, p := range series {
		values[i] = p.Value
	}

	lo, hi := core.CalculateMinMax(values)
	mean, std := core.CalculateMeanStd(values)
	first, last := values[0], values[len(values)-1]

	return models.MSeriesSummary{
		Points: len(values),
		First:  first,
		Last:   last,
		Min:    lo,
		Max:    hi,
		Change: core.CalculatePercentChange(first, last),
		Mean:   mean,
		Std:    std,
	}
}
