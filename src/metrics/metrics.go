package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the dashboard pipeline. Each
// instance owns its registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	LinkLive          prometheus.Gauge
	ReconnectAttempts prometheus.Counter
	PollCycles        prometheus.Counter
	FetchFailures     *prometheus.CounterVec
	PushMessages      *prometheus.CounterVec
	SnapshotAgeMs     prometheus.Gauge
	Stale             prometheus.Gauge
	Renders           *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		LinkLive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_link_live",
			Help: "1 while the push channel is connected, 0 while polling",
		}),

		ReconnectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_reconnect_attempts_total",
			Help: "Push channel reconnect attempts after a close or error",
		}),

		PollCycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_poll_cycles_total",
			Help: "Completed polling fallback cycles",
		}),

		FetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_fetch_failures_total",
			Help: "Snapshot pulls that yielded nothing, by kind",
		}, []string{"kind"}),

		PushMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_push_messages_total",
			Help: "Inbound push messages by result (applied, malformed)",
		}, []string{"result"}),

		SnapshotAgeMs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_state_age_ms",
			Help: "Age of the latest state snapshot in milliseconds, -1 when unknown",
		}),

		Stale: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_state_stale",
			Help: "1 while the state snapshot is stale",
		}),

		Renders: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_renders_total",
			Help: "Frames handed to the render sinks, by origin",
		}, []string{"origin"}),
	}
}

// Handler serves this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// -----------------------------------------------------------------------------

func (m *Metrics) RecordLink(live bool) {
	m.LinkLive.Set(boolFloat(live))
}

func (m *Metrics) RecordReconnect() {
	m.ReconnectAttempts.Inc()
}

func (m *Metrics) RecordPollCycle() {
	m.PollCycles.Inc()
}

func (m *Metrics) RecordFetchFailure(kind string) {
	m.FetchFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordPushMessage(result string) {
	m.PushMessages.WithLabelValues(result).Inc()
}

// RecordFrame updates the freshness gauges and counts the render.
func (m *Metrics) RecordFrame(origin string, ageMs int64, stale bool) {
	m.SnapshotAgeMs.Set(float64(ageMs))
	m.Stale.Set(boolFloat(stale))
	m.Renders.WithLabelValues(origin).Inc()
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
