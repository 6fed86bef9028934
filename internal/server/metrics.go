package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Edit outcomes recorded in tilecanvas_edits_total.
const (
	resultApplied  = "applied"
	resultCooldown = "cooldown"
	resultInvalid  = "invalid"
)

// metrics holds the server's Prometheus collectors. Each Server registers
// into its own registry so several can coexist in one process.
type metrics struct {
	registry *prometheus.Registry

	edits          *prometheus.CounterVec
	updateDuration prometheus.Histogram
	actors         prometheus.Gauge
	subscribers    prometheus.Gauge
	journalErrors  prometheus.Counter
	droppedEvents  prometheus.Counter
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &metrics{
		registry: reg,
		edits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tilecanvas_edits_total",
			Help: "Pixel write requests by outcome.",
		}, []string{"result"}),
		updateDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tilecanvas_update_duration_seconds",
			Help:    "Time to apply one pixel write and re-encode the tile and overview.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		actors: f.NewGauge(prometheus.GaugeOpts{
			Name: "tilecanvas_actors",
			Help: "Distinct actors with at least one admitted edit.",
		}),
		subscribers: f.NewGauge(prometheus.GaugeOpts{
			Name: "tilecanvas_update_subscribers",
			Help: "Open websocket update feeds.",
		}),
		journalErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "tilecanvas_journal_errors_total",
			Help: "Applied writes that could not be journaled.",
		}),
		droppedEvents: f.NewCounter(prometheus.CounterOpts{
			Name: "tilecanvas_update_events_dropped_total",
			Help: "Update events dropped because a subscriber fell behind.",
		}),
	}
}
