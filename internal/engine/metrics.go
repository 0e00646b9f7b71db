package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gemmad",
			Subsystem: "engine",
			Name:      "generations_total",
			Help:      "Total number of generation calls by result",
		},
		[]string{"result"},
	)

	generationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "gemmad",
			Subsystem: "engine",
			Name:      "generation_duration_seconds",
			Help:      "Duration of backend generation calls in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gemmad",
			Subsystem: "engine",
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	modelLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gemmad",
			Subsystem: "engine",
			Name:      "model_loaded",
			Help:      "1 when a model is loaded",
		},
	)

	modelLoadSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gemmad",
			Subsystem: "engine",
			Name:      "model_load_seconds",
			Help:      "Duration of the last successful model load",
		},
	)
)

func init() {
	prometheus.MustRegister(generationsTotal, generationSeconds, cacheLookups, modelLoaded, modelLoadSeconds)
}
