package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ggf"

// Failure reasons recorded on OrbitsFailed.
const (
	ReasonData            = "data"
	ReasonFileAssociation = "file_association"
	ReasonIO              = "io"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the engine.
type Metrics struct {
	OrbitsProcessed    prometheus.Counter
	OrbitsFailed       *prometheus.CounterVec // labels: reason={data,file_association,io}
	HotspotPixels      prometheus.Counter
	Cells              *prometheus.CounterVec // labels: kind={hotspot,sample}
	BackgroundFailures prometheus.Counter
	Matches            *prometheus.CounterVec // labels: kind={hotspot,sample}
	Collocated         prometheus.Counter
	RecordsPublished   prometheus.Counter
	OrbitDuration      prometheus.Histogram
	BatchRunning       prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		OrbitsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orbits_processed_total",
			Help:      "Orbits processed to completion.",
		}),
		OrbitsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orbits_failed_total",
			Help:      "Orbits skipped by failure reason.",
		}, []string{"reason"}),
		HotspotPixels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hotspot_pixels_total",
			Help:      "Night-time hotspot pixels detected.",
		}),
		Cells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cells_total",
			Help:      "Aggregated grid cells by kind.",
		}, []string{"kind"}),
		BackgroundFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "background_failures_total",
			Help:      "Hotspot clusters with no qualifying background window.",
		}),
		Matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Registry flares matched to orbit cells by kind.",
		}, []string{"kind"}),
		Collocated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collocated_total",
			Help:      "Flares matched by both sensors of an orbit pair.",
		}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Records written to the Kafka sink.",
		}),
		OrbitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "orbit_duration_seconds",
			Help:      "Wall time to read, process and write one orbit.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		BatchRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_running",
			Help:      "1 while a batch is in progress, 0 otherwise.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Reverse geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when site enrichment is enabled, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.OrbitsProcessed,
		m.OrbitsFailed,
		m.HotspotPixels,
		m.Cells,
		m.BackgroundFailures,
		m.Matches,
		m.Collocated,
		m.RecordsPublished,
		m.OrbitDuration,
		m.BatchRunning,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	}
}

// NewMetrics creates and registers all engine metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered with a private registry to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}
