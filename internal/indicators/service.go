// Package indicators computes the technical snapshot the analyzer node feeds
// into the decision graph: momentum and volatility indicators plus chart
// pattern detection, all derived deterministically from OHLCV.
package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/rs/zerolog"

	"github.com/I-Onlabs/sigmax/internal/adapters"
	"github.com/I-Onlabs/sigmax/internal/config"
)

// minCandles is the shortest series the full snapshot supports (SMA 50 plus
// warmup for the slow EMA).
const minCandles = 60

// BollingerResult holds the Bollinger Band values at the latest candle
type BollingerResult struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// Snapshot is the full technical picture at the latest candle
type Snapshot struct {
	RSI       float64         `json:"rsi"`
	MACD      MACDResult      `json:"macd"`
	Bollinger BollingerResult `json:"bollinger"`
	EMA12     float64         `json:"ema_12"`
	EMA26     float64         `json:"ema_26"`
	SMA20     float64         `json:"sma_20"`
	SMA50     float64         `json:"sma_50"`
	ATR       float64         `json:"atr"`
	Close     float64         `json:"close"`
	Patterns  []Pattern       `json:"patterns"`
}

// Service computes technical snapshots
type Service struct {
	log zerolog.Logger
}

// NewService creates a new indicator service
func NewService() *Service {
	return &Service{log: config.NewLogger("indicators")}
}

// Compute builds the full snapshot from a candle series (oldest first)
func (s *Service) Compute(candles []adapters.Candle) (*Snapshot, error) {
	if len(candles) < minCandles {
		return nil, fmt.Errorf("insufficient data: need at least %d candles, got %d", minCandles, len(candles))
	}

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	rsiValues := collect(momentum.NewRsiWithPeriod[float64](14).Compute(toChan(closes)))
	if len(rsiValues) == 0 {
		return nil, fmt.Errorf("no RSI values calculated")
	}

	lowerChan, middleChan, upperChan := (&volatility.BollingerBands[float64]{Period: 20}).Compute(toChan(closes))
	lower := collect(lowerChan)
	middle := collect(middleChan)
	upper := collect(upperChan)
	if len(middle) == 0 {
		return nil, fmt.Errorf("no Bollinger Band values calculated")
	}

	ema12 := collect(trend.NewEmaWithPeriod[float64](12).Compute(toChan(closes)))
	ema26 := collect(trend.NewEmaWithPeriod[float64](26).Compute(toChan(closes)))
	sma20 := collect(trend.NewSmaWithPeriod[float64](20).Compute(toChan(closes)))
	sma50 := collect(trend.NewSmaWithPeriod[float64](50).Compute(toChan(closes)))
	if len(ema12) == 0 || len(ema26) == 0 || len(sma20) == 0 || len(sma50) == 0 {
		return nil, fmt.Errorf("no moving average values calculated")
	}

	macd := computeMACD(closes)
	atr := computeATR(highs, lows, closes, 14)

	snapshot := &Snapshot{
		RSI:  last(rsiValues),
		MACD: macd,
		Bollinger: BollingerResult{
			Upper:  last(upper),
			Middle: last(middle),
			Lower:  last(lower),
		},
		EMA12:    last(ema12),
		EMA26:    last(ema26),
		SMA20:    last(sma20),
		SMA50:    last(sma50),
		ATR:      atr,
		Close:    last(closes),
		Patterns: DetectPatterns(candles),
	}

	s.log.Debug().
		Float64("rsi", snapshot.RSI).
		Float64("macd", snapshot.MACD.MACD).
		Float64("atr", snapshot.ATR).
		Int("patterns", len(snapshot.Patterns)).
		Msg("Technical snapshot computed")

	return snapshot, nil
}

// SignalScore reduces the snapshot to a sentiment contribution in [-1, 1]
func (s *Snapshot) SignalScore() float64 {
	score := 0.0

	// RSI: oversold is a buy lean, overbought a sell lean
	switch {
	case s.RSI < 30:
		score += 0.3
	case s.RSI > 70:
		score -= 0.3
	}

	// EMA cross
	if s.EMA12 > s.EMA26 {
		score += 0.2
	} else if s.EMA12 < s.EMA26 {
		score -= 0.2
	}

	// Price vs long moving average
	if s.Close > s.SMA50 {
		score += 0.2
	} else {
		score -= 0.2
	}

	// MACD above zero
	if s.MACD.MACD > 0 {
		score += 0.1
	} else if s.MACD.MACD < 0 {
		score -= 0.1
	}

	// Pattern votes
	for _, p := range s.Patterns {
		switch p.Signal {
		case SignalBullish:
			score += 0.1
		case SignalBearish:
			score -= 0.1
		}
	}

	if score > 1 {
		score = 1
	}
	if score < -1 {
		score = -1
	}
	return score
}

// toChan converts a slice to the channel form cinar/indicator consumes
func toChan(values []float64) chan float64 {
	ch := make(chan float64, len(values))
	for _, v := range values {
		ch <- v
	}
	close(ch)
	return ch
}

// collect drains an indicator output channel
func collect(ch <-chan float64) []float64 {
	var out []float64
	for v := range ch {
		out = append(out, v)
	}
	return out
}

func last(values []float64) float64 {
	return values[len(values)-1]
}
