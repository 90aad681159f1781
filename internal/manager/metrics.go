package manager

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"groupbuy/detailworker/internal/detail"
)

// Metrics bundles the Prometheus collectors of the detail cache
type Metrics struct {
	Registry           *prometheus.Registry
	LookupsTotal       *prometheus.CounterVec
	LiveExtractions    *prometheus.CounterVec
	GradesTotal        *prometheus.CounterVec
	PersistFailures    *prometheus.CounterVec
	ExtractionDuration prometheus.Histogram
}

// NewMetrics registers all collectors on a dedicated registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	lookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detail_lookups_total",
			Help: "Detail lookups by the tier that answered them.",
		},
		[]string{"source"},
	)
	live := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detail_live_extractions_total",
			Help: "Live page extractions by outcome.",
		},
		[]string{"outcome"},
	)
	grades := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detail_grades_total",
			Help: "Quality grades assigned to freshly extracted details.",
		},
		[]string{"grade"},
	)
	persistFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detail_persist_failures_total",
			Help: "Failed detail writes by attempt.",
		},
		[]string{"attempt"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "detail_extraction_duration_seconds",
			Help:    "Fetch plus extraction latency of live lookups.",
			Buckets: []float64{0.25, 0.5, 1, 2, 3.5, 5, 10, 30, 60},
		},
	)

	registry.MustRegister(lookups, live, grades, persistFailures, duration)

	return &Metrics{
		Registry:           registry,
		LookupsTotal:       lookups,
		LiveExtractions:    live,
		GradesTotal:        grades,
		PersistFailures:    persistFailures,
		ExtractionDuration: duration,
	}
}

func (m *Metrics) incLookup(source Source) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(string(source)).Inc()
}

func (m *Metrics) observeLive(d time.Duration, found bool) {
	if m == nil {
		return
	}
	outcome := "empty"
	if found {
		outcome = "found"
	}
	m.LiveExtractions.WithLabelValues(outcome).Inc()
	m.ExtractionDuration.Observe(d.Seconds())
}

func (m *Metrics) incGrade(g detail.Grade) {
	if m == nil {
		return
	}
	m.GradesTotal.WithLabelValues(string(g)).Inc()
}

func (m *Metrics) incPersistFailure(attempt string) {
	if m == nil {
		return
	}
	m.PersistFailures.WithLabelValues(attempt).Inc()
}
