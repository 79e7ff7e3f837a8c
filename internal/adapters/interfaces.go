package adapters

import (
	"context"
	"time"
)

// DataAdapter provides market data snapshots and historical candles.
// Implementations must honor asOf: no candle later than asOf may be returned.
type DataAdapter interface {
	GetMarketData(ctx context.Context, symbol, timeframe string, limit int) (*MarketData, error)
	GetOHLCV(ctx context.Context, symbol, timeframe string, limit int, asOf time.Time) ([]Candle, error)
}

// NewsAdapter searches news published at or before publishedBefore
type NewsAdapter interface {
	SearchNews(ctx context.Context, query string, symbols []string, limit int, publishedBefore time.Time) ([]NewsItem, error)
}

// SocialAdapter fetches social activity as of a point in time
type SocialAdapter interface {
	GetSocialStats(ctx context.Context, symbol string, asOf time.Time) (*SocialStats, error)
}

// OnChainAdapter fetches on-chain activity as of a point in time
type OnChainAdapter interface {
	GetOnChainStats(ctx context.Context, symbol string, asOf time.Time) (*OnChainStats, error)
}

// MacroAdapter fetches market-wide context as of a point in time
type MacroAdapter interface {
	GetMacroStats(ctx context.Context, asOf time.Time) (*MacroStats, error)
}

// SentimentAdapter fetches aggregate sentiment as of a point in time
type SentimentAdapter interface {
	GetSentiment(ctx context.Context, symbol string, asOf time.Time) (*SentimentReading, error)
}

// FundamentalsAdapter fetches financial reports released at or before releasedBefore
type FundamentalsAdapter interface {
	GetFinancials(ctx context.Context, symbol, reportType string, releasedBefore time.Time) (*FinancialReport, error)
}

// ExecutionAdapter executes trades and reports portfolio state
type ExecutionAdapter interface {
	GetPortfolio(ctx context.Context) (*Portfolio, error)
	ExecuteTrade(ctx context.Context, req TradeRequest) error
	CloseAllPositions(ctx context.Context) error
}

// ComplianceAdapter checks a proposed trade against the configured policy
type ComplianceAdapter interface {
	CheckCompliance(ctx context.Context, trade TradeRequest, riskProfile string) (*ComplianceResult, error)
}

// OptimizerAdapter produces a sizing recommendation from a signal.
// Quantum and classical optimizers both satisfy this; the engine falls back
// to half-Kelly sizing when no optimizer is attached.
type OptimizerAdapter interface {
	OptimizePortfolio(ctx context.Context, symbol string, signal float64, portfolio *Portfolio) (*OptimizationResult, error)
}

// LanguageModel generates text from a system and user prompt. Optional:
// callers must degrade to templated output when it is absent or failing.
type LanguageModel interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
