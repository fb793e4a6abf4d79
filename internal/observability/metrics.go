package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// scoring pipeline.
type Metrics struct {
	PredictRequests prometheus.Counter
	PredictDuration prometheus.Histogram
	CellsScored     prometheus.Counter

	// Upstream adapter metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: source={usgs_nwis,eccc_hydrometric,eccc_climate,gbif}, outcome={success,error}
	UpstreamDuration *prometheus.HistogramVec // labels: source
	OccurrenceCache  *prometheus.CounterVec   // labels: result={hit,miss}

	// Narrative generation metrics.
	NarrativeRequests *prometheus.CounterVec // labels: outcome={success,error,skipped}

	ModelLoaded prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		PredictRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "invasive_risk",
			Name:      "predict_requests_total",
			Help:      "Total scoring batches served.",
		}),
		PredictDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "invasive_risk",
			Name:      "predict_duration_seconds",
			Help:      "End-to-end duration of one scoring batch.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		CellsScored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "invasive_risk",
			Name:      "cells_scored_total",
			Help:      "Total grid cells scored across all batches.",
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "invasive_risk",
			Name:      "upstream_requests_total",
			Help:      "Upstream data-provider requests by source and outcome.",
		}, []string{"source", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "invasive_risk",
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream data-provider request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"source"}),
		OccurrenceCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "invasive_risk",
			Name:      "occurrence_cache_total",
			Help:      "Occurrence-search cache lookups by result.",
		}, []string{"result"}),
		NarrativeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "invasive_risk",
			Name:      "narrative_requests_total",
			Help:      "Narrative generation attempts by outcome.",
		}, []string{"outcome"}),
		ModelLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "invasive_risk",
			Name:      "model_loaded",
			Help:      "1 when the model artifact is serving, 0 in fallback mode.",
		}),
	}

	prometheus.MustRegister(
		m.PredictRequests,
		m.PredictDuration,
		m.CellsScored,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.OccurrenceCache,
		m.NarrativeRequests,
		m.ModelLoaded,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		PredictRequests:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "invasive_risk", Name: "predict_requests_total"}),
		PredictDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "invasive_risk", Name: "predict_duration_seconds"}),
		CellsScored:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "invasive_risk", Name: "cells_scored_total"}),
		UpstreamRequests:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "invasive_risk", Name: "upstream_requests_total"}, []string{"source", "outcome"}),
		UpstreamDuration:  prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "invasive_risk", Name: "upstream_request_duration_seconds"}, []string{"source"}),
		OccurrenceCache:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "invasive_risk", Name: "occurrence_cache_total"}, []string{"result"}),
		NarrativeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "invasive_risk", Name: "narrative_requests_total"}, []string{"outcome"}),
		ModelLoaded:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "invasive_risk", Name: "model_loaded"}),
	}
}
