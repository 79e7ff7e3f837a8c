package safety

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// safetyMetrics holds Prometheus metrics for the enforcer
type safetyMetrics struct {
	violations *prometheus.CounterVec
	paused     prometheus.Gauge
}

var (
	safetyMetricsInstance *safetyMetrics
	safetyMetricsOnce     sync.Once
)

func getSafetyMetrics() *safetyMetrics {
	safetyMetricsOnce.Do(func() {
		safetyMetricsInstance = &safetyMetrics{
			violations: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "safety_violations_total",
					Help: "Safety rule violations by trigger and severity",
				},
				[]string{"trigger", "severity"},
			),
			paused: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "safety_paused",
					Help: "Whether the system is paused (1) or running (0)",
				},
			),
		}
	})
	return safetyMetricsInstance
}
