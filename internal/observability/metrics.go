package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// analysis pipeline.
type Metrics struct {
	FeaturesLoaded  *prometheus.CounterVec // label: dataset={fires,states,counties}
	FiresJoined     prometheus.Counter
	FiresDropped    prometheus.Counter
	CountiesTotal   prometheus.Gauge
	PipelineRunning prometheus.Gauge

	StageDuration *prometheus.HistogramVec // label: stage={load,extract,aggregate,render,export}

	// Basemap tile metrics.
	TileFetches *prometheus.CounterVec // label: outcome={success,error}
	TileCache   *prometheus.CounterVec // label: result={hit,miss}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FeaturesLoaded,
		m.FiresJoined,
		m.FiresDropped,
		m.CountiesTotal,
		m.PipelineRunning,
		m.StageDuration,
		m.TileFetches,
		m.TileCache,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FeaturesLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wildfire_gis",
			Name:      "features_loaded_total",
			Help:      "Features read per input dataset.",
		}, []string{"dataset"}),
		FiresJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire_gis",
			Name:      "fires_joined_total",
			Help:      "Fire points matched to a containing county.",
		}),
		FiresDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire_gis",
			Name:      "fires_dropped_total",
			Help:      "Fire points outside every county polygon.",
		}),
		CountiesTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wildfire_gis",
			Name:      "counties_total",
			Help:      "Counties in the aggregated result.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wildfire_gis",
			Name:      "pipeline_running",
			Help:      "1 while the pipeline is active, 0 when finished.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wildfire_gis",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		TileFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wildfire_gis",
			Name:      "tile_fetches_total",
			Help:      "Basemap tile requests by outcome.",
		}, []string{"outcome"}),
		TileCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wildfire_gis",
			Name:      "tile_cache_total",
			Help:      "Basemap tile cache lookups by result.",
		}, []string{"result"}),
	}
}
