package adapters

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// PaperDataAdapter serves candles from an in-memory store. It backs paper
// mode and historical replay: candles are loaded once and every read is
// filtered by asOf.
type PaperDataAdapter struct {
	mu      sync.RWMutex
	candles map[string][]Candle // symbol -> ascending by timestamp
}

// NewPaperDataAdapter creates an empty paper data adapter
func NewPaperDataAdapter() *PaperDataAdapter {
	return &PaperDataAdapter{candles: make(map[string][]Candle)}
}

// LoadCandles replaces the candle series for a symbol, sorted ascending
func (a *PaperDataAdapter) LoadCandles(symbol string, candles []Candle) {
	sorted := make([]Candle, len(candles))
	copy(sorted, candles)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	a.mu.Lock()
	a.candles[symbol] = sorted
	a.mu.Unlock()
}

// GetMarketData returns a snapshot built from the most recent candle
func (a *PaperDataAdapter) GetMarketData(ctx context.Context, symbol, timeframe string, limit int) (*MarketData, error) {
	candles, err := a.GetOHLCV(ctx, symbol, timeframe, limit, time.Time{})
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no market data for %s", symbol)
	}

	last := candles[len(candles)-1]
	spread := last.Close * 0.0005
	return &MarketData{
		Symbol:    symbol,
		Price:     last.Close,
		Volume:    last.Volume,
		Bid:       last.Close - spread,
		Ask:       last.Close + spread,
		OHLCV:     candles,
		Timestamp: last.Timestamp,
	}, nil
}

// GetOHLCV returns up to limit candles at or before asOf. A zero asOf means
// no boundary (the whole series is eligible).
func (a *PaperDataAdapter) GetOHLCV(ctx context.Context, symbol, timeframe string, limit int, asOf time.Time) ([]Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	series, ok := a.candles[symbol]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown symbol %s", symbol)
	}

	eligible := series
	if !asOf.IsZero() {
		// series is sorted ascending; find the first candle past asOf
		idx := sort.Search(len(series), func(i int) bool { return series[i].Timestamp.After(asOf) })
		eligible = series[:idx]
	}

	if limit > 0 && len(eligible) > limit {
		eligible = eligible[len(eligible)-limit:]
	}

	out := make([]Candle, len(eligible))
	copy(out, eligible)
	return out, nil
}

// SyntheticCandles generates a deterministic candle series for paper mode.
// The walk is a damped sine over the base price so indicator math has
// structure to find.
func SyntheticCandles(base float64, n int, start time.Time, step time.Duration) []Candle {
	candles := make([]Candle, n)
	for i := 0; i < n; i++ {
		phase := float64(i) / 8.0
		drift := base * 0.02 * math.Sin(phase)
		open := base + drift
		close := base + base*0.02*math.Sin(phase+0.125)
		high := math.Max(open, close) * 1.004
		low := math.Min(open, close) * 0.996
		candles[i] = Candle{
			Timestamp: start.Add(time.Duration(i) * step),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    1000 + 100*math.Abs(math.Sin(phase*2)),
		}
	}
	return candles
}

// PaperNewsAdapter serves a fixed set of news items filtered by publish time
type PaperNewsAdapter struct {
	mu    sync.RWMutex
	items []NewsItem
}

// NewPaperNewsAdapter creates an empty paper news adapter
func NewPaperNewsAdapter() *PaperNewsAdapter {
	return &PaperNewsAdapter{}
}

// AddItems appends news items to the store
func (a *PaperNewsAdapter) AddItems(items ...NewsItem) {
	a.mu.Lock()
	a.items = append(a.items, items...)
	a.mu.Unlock()
}

// SearchNews returns up to limit items published at or before publishedBefore
func (a *PaperNewsAdapter) SearchNews(ctx context.Context, query string, symbols []string, limit int, publishedBefore time.Time) ([]NewsItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []NewsItem
	for _, item := range a.items {
		if !publishedBefore.IsZero() && item.PublishedAt.After(publishedBefore) {
			continue
		}
		out = append(out, item)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// PaperSocialAdapter returns fixed social stats
type PaperSocialAdapter struct {
	Score    float64
	Mentions int
}

// GetSocialStats returns the configured stats stamped at asOf
func (a *PaperSocialAdapter) GetSocialStats(ctx context.Context, symbol string, asOf time.Time) (*SocialStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &SocialStats{Symbol: symbol, Score: a.Score, Mentions: a.Mentions, Timestamp: asOf}, nil
}

// PaperOnChainAdapter returns fixed on-chain stats
type PaperOnChainAdapter struct {
	WhaleActivity   string
	ExchangeNetflow float64
}

// GetOnChainStats returns the configured stats stamped at asOf
func (a *PaperOnChainAdapter) GetOnChainStats(ctx context.Context, symbol string, asOf time.Time) (*OnChainStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	activity := a.WhaleActivity
	if activity == "" {
		activity = "neutral"
	}
	return &OnChainStats{
		Symbol:          symbol,
		WhaleActivity:   activity,
		ExchangeNetflow: a.ExchangeNetflow,
		ActiveAddresses: 50000,
		Timestamp:       asOf,
	}, nil
}

// PaperMacroAdapter returns fixed macro stats
type PaperMacroAdapter struct {
	FearGreedIndex int
}

// GetMacroStats returns the configured stats stamped at asOf
func (a *PaperMacroAdapter) GetMacroStats(ctx context.Context, asOf time.Time) (*MacroStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &MacroStats{
		FearGreedIndex: a.FearGreedIndex,
		BTCDominance:   52.0,
		TotalMarketCap: 2.4e12,
		Timestamp:      asOf,
	}, nil
}

// PaperSentimentAdapter returns a fixed sentiment score
type PaperSentimentAdapter struct {
	Score    float64
	Mentions int
}

// GetSentiment returns the configured reading stamped at asOf
func (a *PaperSentimentAdapter) GetSentiment(ctx context.Context, symbol string, asOf time.Time) (*SentimentReading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &SentimentReading{Symbol: symbol, Score: a.Score, Mentions: a.Mentions, Timestamp: asOf}, nil
}

// PaperFundamentalsAdapter serves fixed financial reports filtered by
// release time
type PaperFundamentalsAdapter struct {
	mu      sync.RWMutex
	reports []FinancialReport
}

// NewPaperFundamentalsAdapter creates an empty paper fundamentals adapter
func NewPaperFundamentalsAdapter() *PaperFundamentalsAdapter {
	return &PaperFundamentalsAdapter{}
}

// AddReports appends reports to the store
func (a *PaperFundamentalsAdapter) AddReports(reports ...FinancialReport) {
	a.mu.Lock()
	a.reports = append(a.reports, reports...)
	a.mu.Unlock()
}

// GetFinancials returns the most recent matching report released at or
// before releasedBefore, or nil when none qualifies
func (a *PaperFundamentalsAdapter) GetFinancials(ctx context.Context, symbol, reportType string, releasedBefore time.Time) (*FinancialReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	var best *FinancialReport
	for i := range a.reports {
		r := &a.reports[i]
		if r.Symbol != symbol {
			continue
		}
		if reportType != "" && r.ReportType != reportType {
			continue
		}
		if !releasedBefore.IsZero() && r.ReleasedAt.After(releasedBefore) {
			continue
		}
		if best == nil || r.ReleasedAt.After(best.ReleasedAt) {
			best = r
		}
	}
	if best == nil {
		return nil, nil
	}
	report := *best
	return &report, nil
}

// PaperExecutionAdapter tracks a simulated portfolio in memory
type PaperExecutionAdapter struct {
	mu        sync.Mutex
	balance   float64
	positions map[string]Position
	trades    []TradeRequest
}

// NewPaperExecutionAdapter creates a paper execution adapter with the given balance
func NewPaperExecutionAdapter(balance float64) *PaperExecutionAdapter {
	return &PaperExecutionAdapter{
		balance:   balance,
		positions: make(map[string]Position),
	}
}

// GetPortfolio returns a snapshot of the simulated portfolio
func (a *PaperExecutionAdapter) GetPortfolio(ctx context.Context) (*Portfolio, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	positions := make(map[string]Position, len(a.positions))
	for k, v := range a.positions {
		positions[k] = v
	}
	return &Portfolio{Balance: a.balance, Positions: positions}, nil
}

// ExecuteTrade records the trade and adjusts the simulated position
func (a *PaperExecutionAdapter) ExecuteTrade(ctx context.Context, req TradeRequest) error {
	if req.Action != "buy" && req.Action != "sell" {
		return fmt.Errorf("unsupported trade action %q", req.Action)
	}
	if req.Size <= 0 {
		return fmt.Errorf("trade size must be positive, got %f", req.Size)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.trades = append(a.trades, req)
	pos := a.positions[req.Symbol]
	pos.Symbol = req.Symbol
	if req.Action == "buy" {
		pos.Size += req.Size
		pos.EntryPrice = req.Price
	} else {
		pos.Size -= req.Size
	}
	if pos.Size == 0 {
		delete(a.positions, req.Symbol)
	} else {
		a.positions[req.Symbol] = pos
	}
	return nil
}

// CloseAllPositions flattens the simulated portfolio
func (a *PaperExecutionAdapter) CloseAllPositions(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.positions = make(map[string]Position)
	return nil
}

// Trades returns a copy of all executed trades
func (a *PaperExecutionAdapter) Trades() []TradeRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]TradeRequest, len(a.trades))
	copy(out, a.trades)
	return out
}

// PaperComplianceAdapter approves everything except blacklisted symbols
type PaperComplianceAdapter struct {
	Blacklist []string
}

// CheckCompliance rejects blacklisted symbols and approves the rest
func (a *PaperComplianceAdapter) CheckCompliance(ctx context.Context, trade TradeRequest, riskProfile string) (*ComplianceResult, error) {
	for _, blocked := range a.Blacklist {
		if trade.Symbol == blocked {
			return &ComplianceResult{
				Compliant:  false,
				Reason:     fmt.Sprintf("symbol %s is blacklisted", trade.Symbol),
				Violations: []string{"blacklisted_symbol"},
			}, nil
		}
	}
	return &ComplianceResult{Compliant: true}, nil
}
