package impact

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sopforge_impact_analyses_total",
		Help: "Impact analyses by resulting risk level",
	}, []string{"risk_level"})

	analysisErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sopforge_impact_analysis_errors_total",
		Help: "Impact analyses that failed before producing a report",
	})

	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sopforge_impact_analysis_duration_seconds",
		Help:    "Impact analysis duration",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})

	impactSetSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sopforge_impact_set_size",
		Help:    "Number of nodes in the impact set per analysis",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
	})
)
