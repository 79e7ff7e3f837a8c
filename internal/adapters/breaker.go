package adapters

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

// BreakerSettings holds circuit breaker thresholds for one adapter class
type BreakerSettings struct {
	MinRequests     uint32
	FailureRatio    float64
	OpenTimeout     time.Duration
	HalfOpenMaxReqs uint32
	CountInterval   time.Duration
}

// Default thresholds per adapter class. Market data recovers fast; LLM
// calls get a longer open timeout to let the provider settle.
var (
	DefaultMarketDataBreaker = BreakerSettings{
		MinRequests:     5,
		FailureRatio:    0.6,
		OpenTimeout:     30 * time.Second,
		HalfOpenMaxReqs: 3,
		CountInterval:   10 * time.Second,
	}
	DefaultLLMBreaker = BreakerSettings{
		MinRequests:     3,
		FailureRatio:    0.6,
		OpenTimeout:     60 * time.Second,
		HalfOpenMaxReqs: 2,
		CountInterval:   10 * time.Second,
	}
)

// breakerMetrics holds Prometheus metrics for adapter circuit breakers
type breakerMetrics struct {
	state    *prometheus.GaugeVec
	requests *prometheus.CounterVec
}

var (
	breakerMetricsInstance *breakerMetrics
	breakerMetricsOnce     sync.Once
)

// getBreakerMetrics returns the singleton metrics instance.
// Uses sync.Once to ensure metrics are registered only once globally.
func getBreakerMetrics() *breakerMetrics {
	breakerMetricsOnce.Do(func() {
		breakerMetricsInstance = &breakerMetrics{
			state: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "adapter_circuit_breaker_state",
					Help: "Adapter circuit breaker state (0=closed, 1=open, 2=half_open)",
				},
				[]string{"adapter"},
			),
			requests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "adapter_requests_total",
					Help: "Total adapter requests through the circuit breaker",
				},
				[]string{"adapter", "result"},
			),
		}
	})
	return breakerMetricsInstance
}

func newBreaker(name string, settings BreakerSettings, metrics *breakerMetrics) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.HalfOpenMaxReqs,
		Interval:    settings.CountInterval,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= settings.MinRequests && failureRatio >= settings.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			var stateValue float64
			switch to {
			case gobreaker.StateClosed:
				stateValue = 0
			case gobreaker.StateOpen:
				stateValue = 1
			case gobreaker.StateHalfOpen:
				stateValue = 2
			}
			metrics.state.WithLabelValues(name).Set(stateValue)
		},
	})
}

func observe(metrics *breakerMetrics, name string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.requests.WithLabelValues(name, result).Inc()
}

// BreakeredDataAdapter wraps a DataAdapter with a circuit breaker
type BreakeredDataAdapter struct {
	inner   DataAdapter
	breaker *gobreaker.CircuitBreaker
	metrics *breakerMetrics
}

// NewBreakeredDataAdapter wraps a DataAdapter with the given breaker settings
func NewBreakeredDataAdapter(inner DataAdapter, settings BreakerSettings) *BreakeredDataAdapter {
	metrics := getBreakerMetrics()
	return &BreakeredDataAdapter{
		inner:   inner,
		breaker: newBreaker("market_data", settings, metrics),
		metrics: metrics,
	}
}

// GetMarketData fetches a market snapshot through the circuit breaker
func (a *BreakeredDataAdapter) GetMarketData(ctx context.Context, symbol, timeframe string, limit int) (*MarketData, error) {
	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.inner.GetMarketData(ctx, symbol, timeframe, limit)
	})
	observe(a.metrics, "market_data", err)
	if err != nil {
		return nil, err
	}
	return result.(*MarketData), nil
}

// GetOHLCV fetches candles through the circuit breaker
func (a *BreakeredDataAdapter) GetOHLCV(ctx context.Context, symbol, timeframe string, limit int, asOf time.Time) ([]Candle, error) {
	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.inner.GetOHLCV(ctx, symbol, timeframe, limit, asOf)
	})
	observe(a.metrics, "market_data", err)
	if err != nil {
		return nil, err
	}
	return result.([]Candle), nil
}

// BreakeredLanguageModel wraps a LanguageModel with a circuit breaker
type BreakeredLanguageModel struct {
	inner   LanguageModel
	breaker *gobreaker.CircuitBreaker
	metrics *breakerMetrics
}

// NewBreakeredLanguageModel wraps a LanguageModel with the given breaker settings
func NewBreakeredLanguageModel(inner LanguageModel, settings BreakerSettings) *BreakeredLanguageModel {
	metrics := getBreakerMetrics()
	return &BreakeredLanguageModel{
		inner:   inner,
		breaker: newBreaker("llm", settings, metrics),
		metrics: metrics,
	}
}

// Generate produces text through the circuit breaker
func (a *BreakeredLanguageModel) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.inner.Generate(ctx, systemPrompt, userPrompt)
	})
	observe(a.metrics, "llm", err)
	if err != nil {
		return "", err
	}
	return result.(string), nil
}
