// Package adapters defines the capability interfaces through which the core
// engine consumes external data and execution services, plus in-memory paper
// implementations used in paper mode and tests.
package adapters

import "time"

// Candle represents one OHLCV bar
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// MarketData is a snapshot of current market state for a symbol
type MarketData struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	OHLCV     []Candle  `json:"ohlcv,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewsItem is a single news article with embedded sentiment
type NewsItem struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	URL         string    `json:"url,omitempty"`
	Sentiment   float64   `json:"sentiment"` // [-1, 1]
	PublishedAt time.Time `json:"published_at"`
}

// FinancialReport is a fundamentals report with a release timestamp
type FinancialReport struct {
	Symbol     string             `json:"symbol"`
	ReportType string             `json:"report_type"`
	Metrics    map[string]float64 `json:"metrics"`
	ReleasedAt time.Time          `json:"released_at"`
}

// SentimentReading is an aggregate sentiment score for a symbol
type SentimentReading struct {
	Symbol    string    `json:"symbol"`
	Score     float64   `json:"score"` // [-1, 1]
	Mentions  int       `json:"mentions"`
	Timestamp time.Time `json:"timestamp"`
}

// SocialStats holds social-media activity for a symbol
type SocialStats struct {
	Symbol       string    `json:"symbol"`
	Score        float64   `json:"score"` // [-1, 1]
	Mentions     int       `json:"mentions"`
	TrendingRank int       `json:"trending_rank"`
	Timestamp    time.Time `json:"timestamp"`
}

// OnChainStats holds on-chain activity for a symbol
type OnChainStats struct {
	Symbol          string    `json:"symbol"`
	WhaleActivity   string    `json:"whale_activity"` // "bullish", "neutral", "bearish"
	ExchangeNetflow float64   `json:"exchange_netflow"`
	ActiveAddresses int       `json:"active_addresses"`
	Timestamp       time.Time `json:"timestamp"`
}

// MacroStats holds market-wide context
type MacroStats struct {
	FearGreedIndex int       `json:"fear_greed_index"` // 0-100
	BTCDominance   float64   `json:"btc_dominance"`
	TotalMarketCap float64   `json:"total_market_cap"`
	Timestamp      time.Time `json:"timestamp"`
}

// Position is an open position in the portfolio
type Position struct {
	Symbol     string  `json:"symbol"`
	Size       float64 `json:"size"`
	EntryPrice float64 `json:"entry_price"`
}

// Portfolio is the current account state
type Portfolio struct {
	Balance   float64             `json:"balance"`
	Positions map[string]Position `json:"positions"`
}

// TradeRequest describes a trade to execute or check
type TradeRequest struct {
	Symbol string  `json:"symbol"`
	Action string  `json:"action"` // "buy" or "sell"
	Size   float64 `json:"size"`
	Price  float64 `json:"price,omitempty"`
}

// ComplianceResult is the verdict of a compliance check
type ComplianceResult struct {
	Compliant  bool     `json:"compliant"`
	Reason     string   `json:"reason,omitempty"`
	Violations []string `json:"violations,omitempty"`
}

// OptimizationResult is a portfolio optimizer recommendation
type OptimizationResult struct {
	Action     string  `json:"action"` // "buy", "sell", "hold"
	Size       float64 `json:"size"`
	Confidence float64 `json:"confidence"`
}
