package temporal

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/I-Onlabs/sigmax/internal/adapters"
	"github.com/I-Onlabs/sigmax/internal/config"
)

// cacheFlushJump is the simulation-time jump beyond which cached prices are
// no longer meaningful and the price cache is flushed.
const cacheFlushJump = 60 * time.Second

// Adapters bundles the capability adapters a gateway mediates
type Adapters struct {
	Data         adapters.DataAdapter
	News         adapters.NewsAdapter
	Fundamentals adapters.FundamentalsAdapter
	Sentiment    adapters.SentimentAdapter
}

// Options configures a gateway instance
type Options struct {
	Mode          Mode
	LogAccess     bool
	AuditLogSize  int
	CacheTTL      time.Duration
	Cache         PriceCache // optional; defaults to an in-memory TTL cache
	RatePerSecond float64    // live-mode adapter rate limit; 0 disables
	Now           func() time.Time
}

// gatewayMetrics holds Prometheus metrics for temporal gateways
type gatewayMetrics struct {
	accesses *prometheus.CounterVec
}

var (
	gatewayMetricsInstance *gatewayMetrics
	gatewayMetricsOnce     sync.Once
)

func getGatewayMetrics() *gatewayMetrics {
	gatewayMetricsOnce.Do(func() {
		gatewayMetricsInstance = &gatewayMetrics{
			accesses: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "temporal_gateway_accesses_total",
					Help: "Total data accesses through the temporal gateway",
				},
				[]string{"data_type", "allowed"},
			),
		}
	})
	return gatewayMetricsInstance
}

// Gateway guards adapter reads with a simulation clock and audits every
// access. One gateway serves one decision tick in replay; live mode may share
// a single gateway across symbols.
type Gateway struct {
	mu        sync.RWMutex
	simTime   time.Time
	mode      Mode
	adapters  Adapters
	audit     *auditLog
	cache     PriceCache
	limiter   *rate.Limiter
	logAccess bool
	now       func() time.Time
	log       zerolog.Logger
	metrics   *gatewayMetrics
}

// NewGateway creates a gateway pinned to the given simulation time.
// In live mode the clock tracks the wall clock and simTime is ignored.
func NewGateway(simTime time.Time, adapterSet Adapters, opts Options) *Gateway {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AuditLogSize == 0 {
		opts.AuditLogSize = 10000
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = 10 * time.Second
	}
	cache := opts.Cache
	if cache == nil {
		cache = NewMemoryPriceCache(opts.CacheTTL)
	}

	var limiter *rate.Limiter
	if opts.Mode == ModeLive && opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), int(opts.RatePerSecond)+1)
	}

	return &Gateway{
		simTime:   simTime,
		mode:      opts.Mode,
		adapters:  adapterSet,
		audit:     newAuditLog(opts.AuditLogSize),
		cache:     cache,
		limiter:   limiter,
		logAccess: opts.LogAccess,
		now:       opts.Now,
		log:       config.NewLogger("temporal_gateway"),
		metrics:   getGatewayMetrics(),
	}
}

// Mode returns the gateway mode
func (g *Gateway) Mode() Mode {
	return g.mode
}

// SimulationTime returns the current watermark. In live mode this is the
// wall clock.
func (g *Gateway) SimulationTime() time.Time {
	if g.mode == ModeLive {
		return g.now()
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.simTime
}

// SetSimulationTime moves the watermark. Setting a time past the wall clock
// is rejected in non-live modes. A jump of more than 60 seconds in either
// direction flushes the price cache.
func (g *Gateway) SetSimulationTime(ctx context.Context, t time.Time) error {
	if g.mode != ModeLive && t.After(g.now()) {
		return &InvalidTimeError{Requested: t, WallClock: g.now()}
	}

	g.mu.Lock()
	previous := g.simTime
	g.simTime = t
	g.mu.Unlock()

	jump := t.Sub(previous)
	if jump < 0 {
		jump = -jump
	}
	if jump > cacheFlushJump {
		g.cache.Flush(ctx)
		g.log.Debug().
			Time("from", previous).
			Time("to", t).
			Msg("Simulation time jump, price cache flushed")
	}
	return nil
}

// AdvanceTime moves the watermark forward by delta
func (g *Gateway) AdvanceTime(ctx context.Context, delta time.Duration) error {
	return g.SetSimulationTime(ctx, g.SimulationTime().Add(delta))
}

// record appends an audit entry and updates metrics
func (g *Gateway) record(dataType DataType, symbol string, requested time.Time, allowed bool, reason string) {
	simTime := g.SimulationTime()
	if g.logAccess {
		g.audit.append(AccessRecord{
			Timestamp:      g.now(),
			DataType:       dataType,
			Symbol:         symbol,
			RequestedTime:  requested,
			SimulationTime: simTime,
			Allowed:        allowed,
			Reason:         reason,
		})
	}

	allowedLabel := "true"
	if !allowed {
		allowedLabel = "false"
		g.log.Warn().
			Str("data_type", string(dataType)).
			Str("symbol", symbol).
			Time("requested", requested).
			Time("simulation_time", simTime).
			Str("reason", reason).
			Msg("Temporal boundary violation")
	}
	g.metrics.accesses.WithLabelValues(string(dataType), allowedLabel).Inc()
}

// checkBoundary validates requested against the watermark. On violation the
// access is recorded; strict mode additionally returns TemporalViolationError.
func (g *Gateway) checkBoundary(dataType DataType, symbol string, requested time.Time) error {
	simTime := g.SimulationTime()
	if !requested.After(simTime) {
		return nil
	}

	g.record(dataType, symbol, requested, false, "requested time past simulation boundary")
	if g.mode == ModeStrict {
		return &TemporalViolationError{
			DataType:       dataType,
			Symbol:         symbol,
			RequestedTime:  requested,
			SimulationTime: simTime,
		}
	}
	return nil
}

// wait applies the live-mode adapter rate limit
func (g *Gateway) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	return g.limiter.Wait(ctx)
}

// GetPrice returns the price of symbol as of asOf (zero asOf means the
// current watermark). A denied or failed read returns 0 with a nil error in
// lax mode; strict mode returns TemporalViolationError for boundary breaks.
func (g *Gateway) GetPrice(ctx context.Context, symbol string, asOf time.Time) (float64, error) {
	simTime := g.SimulationTime()
	if asOf.IsZero() {
		asOf = simTime
	}

	if err := g.checkBoundary(DataTypePrice, symbol, asOf); err != nil {
		return 0, err
	}
	if asOf.After(simTime) {
		// Lax-mode denial: boundary already recorded
		return 0, nil
	}

	// Live mode consults the short-TTL cache before the adapter
	if g.mode == ModeLive {
		if price, ok := g.cache.Get(ctx, symbol); ok {
			g.record(DataTypePrice, symbol, asOf, true, "cache")
			return price, nil
		}
	}

	if g.adapters.Data == nil {
		g.record(DataTypePrice, symbol, asOf, true, "no data adapter")
		return 0, nil
	}
	if err := g.wait(ctx); err != nil {
		return 0, err
	}

	candles, err := g.adapters.Data.GetOHLCV(ctx, symbol, "1m", 1, asOf)
	if err != nil {
		g.record(DataTypePrice, symbol, asOf, true, "adapter error: "+err.Error())
		return 0, nil
	}
	if len(candles) == 0 {
		g.record(DataTypePrice, symbol, asOf, true, "no data")
		return 0, nil
	}

	price := candles[len(candles)-1].Close
	g.record(DataTypePrice, symbol, asOf, true, "")

	if g.mode == ModeLive {
		g.cache.Set(ctx, symbol, price)
	}
	return price, nil
}

// GetOHLCV returns candles for symbol up to asOf. Candles whose embedded
// timestamp exceeds the watermark are filtered out even when the adapter
// fails to filter them itself.
func (g *Gateway) GetOHLCV(ctx context.Context, symbol, timeframe string, limit int, asOf time.Time) ([]adapters.Candle, error) {
	simTime := g.SimulationTime()
	if asOf.IsZero() {
		asOf = simTime
	}

	if err := g.checkBoundary(DataTypeOHLCV, symbol, asOf); err != nil {
		return nil, err
	}
	if asOf.After(simTime) {
		return nil, nil
	}
	if g.adapters.Data == nil {
		g.record(DataTypeOHLCV, symbol, asOf, true, "no data adapter")
		return nil, nil
	}
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	candles, err := g.adapters.Data.GetOHLCV(ctx, symbol, timeframe, limit, asOf)
	if err != nil {
		g.record(DataTypeOHLCV, symbol, asOf, true, "adapter error: "+err.Error())
		return nil, nil
	}

	filtered := candles[:0]
	for _, c := range candles {
		if !c.Timestamp.After(simTime) {
			filtered = append(filtered, c)
		}
	}
	g.record(DataTypeOHLCV, symbol, asOf, true, "")
	return filtered, nil
}

// SearchNews returns news published at or before the watermark
func (g *Gateway) SearchNews(ctx context.Context, query string, symbols []string, limit int) ([]adapters.NewsItem, error) {
	simTime := g.SimulationTime()
	symbol := ""
	if len(symbols) > 0 {
		symbol = symbols[0]
	}

	if g.adapters.News == nil {
		g.record(DataTypeNews, symbol, simTime, true, "no news adapter")
		return nil, nil
	}

	items, err := g.adapters.News.SearchNews(ctx, query, symbols, limit, simTime)
	if err != nil {
		g.record(DataTypeNews, symbol, simTime, true, "adapter error: "+err.Error())
		return nil, nil
	}

	filtered := items[:0]
	for _, item := range items {
		if !item.PublishedAt.After(simTime) {
			filtered = append(filtered, item)
		}
	}
	g.record(DataTypeNews, symbol, simTime, true, "")
	return filtered, nil
}

// GetFinancials returns the most recent report released at or before the
// watermark, or nil when the only available report is still unreleased.
func (g *Gateway) GetFinancials(ctx context.Context, symbol, reportType string) (*adapters.FinancialReport, error) {
	simTime := g.SimulationTime()

	if g.adapters.Fundamentals == nil {
		g.record(DataTypeFinancials, symbol, simTime, true, "no fundamentals adapter")
		return nil, nil
	}

	report, err := g.adapters.Fundamentals.GetFinancials(ctx, symbol, reportType, simTime)
	if err != nil {
		g.record(DataTypeFinancials, symbol, simTime, true, "adapter error: "+err.Error())
		return nil, nil
	}
	if report == nil {
		g.record(DataTypeFinancials, symbol, simTime, true, "no data")
		return nil, nil
	}

	if report.ReleasedAt.After(simTime) {
		if err := g.checkBoundary(DataTypeFinancials, symbol, report.ReleasedAt); err != nil {
			return nil, err
		}
		return nil, nil
	}

	g.record(DataTypeFinancials, symbol, report.ReleasedAt, true, "")
	return report, nil
}

// GetSentiment returns the sentiment reading for symbol as of asOf
func (g *Gateway) GetSentiment(ctx context.Context, symbol string, asOf time.Time) (*adapters.SentimentReading, error) {
	simTime := g.SimulationTime()
	if asOf.IsZero() {
		asOf = simTime
	}

	if err := g.checkBoundary(DataTypeSentiment, symbol, asOf); err != nil {
		return nil, err
	}
	if asOf.After(simTime) {
		return nil, nil
	}
	if g.adapters.Sentiment == nil {
		g.record(DataTypeSentiment, symbol, asOf, true, "no sentiment adapter")
		return nil, nil
	}

	reading, err := g.adapters.Sentiment.GetSentiment(ctx, symbol, asOf)
	if err != nil {
		g.record(DataTypeSentiment, symbol, asOf, true, "adapter error: "+err.Error())
		return nil, nil
	}

	g.record(DataTypeSentiment, symbol, asOf, true, "")
	return reading, nil
}

// Records returns the retained audit records oldest-first
func (g *Gateway) Records() []AccessRecord {
	return g.audit.Records()
}

// Stats returns lifetime access statistics
func (g *Gateway) Stats() AccessStats {
	return g.audit.Stats()
}
