package engine

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// engineMetrics holds Prometheus metrics for the decision engine
type engineMetrics struct {
	decisions    *prometheus.CounterVec
	confidence   *prometheus.GaugeVec
	iterations   prometheus.Histogram
	tickDuration prometheus.Histogram
}

var (
	engineMetricsInstance *engineMetrics
	engineMetricsOnce     sync.Once
)

func getEngineMetrics() *engineMetrics {
	engineMetricsOnce.Do(func() {
		engineMetricsInstance = &engineMetrics{
			decisions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "engine_decisions_total",
					Help: "Decisions produced by symbol and action",
				},
				[]string{"symbol", "action"},
			),
			confidence: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "engine_decision_confidence",
					Help: "Confidence of the latest decision per symbol",
				},
				[]string{"symbol"},
			),
			iterations: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "engine_tick_iterations",
					Help:    "Refinement iterations per decision tick",
					Buckets: []float64{1, 2, 3, 4, 5},
				},
			),
			tickDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "engine_tick_duration_seconds",
					Help:    "Wall time per decision tick",
					Buckets: prometheus.DefBuckets,
				},
			),
		}
	})
	return engineMetricsInstance
}
