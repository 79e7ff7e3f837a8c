package indicators

import (
	"math"

	"github.com/I-Onlabs/sigmax/internal/adapters"
)

// Pattern signal directions
const (
	SignalBullish = "bullish"
	SignalBearish = "bearish"
	SignalNeutral = "neutral"
)

// Pattern is one detected chart formation
type Pattern struct {
	Name   string `json:"name"`
	Signal string `json:"signal"`
	Detail string `json:"detail,omitempty"`
}

// Tolerances for pattern matching. These are the simplified definitions the
// reference system uses; they favor recall over textbook precision.
const (
	peakMatchTolerance   = 0.02 // peaks within 2% count as equal
	valleyDepthMinimum   = 0.03 // trough must sit 3% below matched peaks
	shoulderTolerance    = 0.03
	consolidationRange   = 0.02
	trendSlopeThreshold  = 0.02
	patternWindow        = 40 // candles examined for formations
	extremaWindow        = 2  // neighbors on each side for local extrema
	breakoutLookback     = 20
)

// DetectPatterns scans the candle series for chart formations. The input is
// oldest-first; only the most recent patternWindow candles are examined.
func DetectPatterns(candles []adapters.Candle) []Pattern {
	if len(candles) < 10 {
		return nil
	}
	window := candles
	if len(window) > patternWindow {
		window = window[len(window)-patternWindow:]
	}

	closes := make([]float64, len(window))
	highs := make([]float64, len(window))
	lows := make([]float64, len(window))
	for i, c := range window {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	peaks, troughs := localExtrema(closes)

	var patterns []Pattern
	if p, ok := detectDoubleTop(closes, peaks, troughs); ok {
		patterns = append(patterns, p)
	}
	if p, ok := detectDoubleBottom(closes, peaks, troughs); ok {
		patterns = append(patterns, p)
	}
	if p, ok := detectHeadAndShoulders(closes, peaks); ok {
		patterns = append(patterns, p)
	}
	if p, ok := detectTriangle(closes, peaks, troughs); ok {
		patterns = append(patterns, p)
	}
	if p, ok := detectBreakout(closes, highs, lows); ok {
		patterns = append(patterns, p)
	}
	if p, ok := detectTrend(closes); ok {
		patterns = append(patterns, p)
	}
	if p, ok := detectConsolidation(closes); ok {
		patterns = append(patterns, p)
	}
	return patterns
}

// localExtrema returns indices of local peaks and troughs, comparing each
// point against extremaWindow neighbors on both sides
func localExtrema(values []float64) (peaks, troughs []int) {
	for i := extremaWindow; i < len(values)-extremaWindow; i++ {
		isPeak, isTrough := true, true
		for j := i - extremaWindow; j <= i+extremaWindow; j++ {
			if j == i {
				continue
			}
			if values[j] >= values[i] {
				isPeak = false
			}
			if values[j] <= values[i] {
				isTrough = false
			}
		}
		if isPeak {
			peaks = append(peaks, i)
		}
		if isTrough {
			troughs = append(troughs, i)
		}
	}
	return peaks, troughs
}

func detectDoubleTop(closes []float64, peaks, troughs []int) (Pattern, bool) {
	if len(peaks) < 2 {
		return Pattern{}, false
	}
	p1, p2 := peaks[len(peaks)-2], peaks[len(peaks)-1]
	v1, v2 := closes[p1], closes[p2]
	if math.Abs(v1-v2)/v1 > peakMatchTolerance {
		return Pattern{}, false
	}

	// A trough between the two peaks must dip far enough below them
	for _, tr := range troughs {
		if tr > p1 && tr < p2 && (v1-closes[tr])/v1 >= valleyDepthMinimum {
			return Pattern{Name: "double_top", Signal: SignalBearish, Detail: "two matched peaks with a deep valley between"}, true
		}
	}
	return Pattern{}, false
}

func detectDoubleBottom(closes []float64, peaks, troughs []int) (Pattern, bool) {
	if len(troughs) < 2 {
		return Pattern{}, false
	}
	t1, t2 := troughs[len(troughs)-2], troughs[len(troughs)-1]
	v1, v2 := closes[t1], closes[t2]
	if math.Abs(v1-v2)/v1 > peakMatchTolerance {
		return Pattern{}, false
	}

	for _, pk := range peaks {
		if pk > t1 && pk < t2 && (closes[pk]-v1)/v1 >= valleyDepthMinimum {
			return Pattern{Name: "double_bottom", Signal: SignalBullish, Detail: "two matched troughs with a peak between"}, true
		}
	}
	return Pattern{}, false
}

func detectHeadAndShoulders(closes []float64, peaks []int) (Pattern, bool) {
	if len(peaks) < 3 {
		return Pattern{}, false
	}
	l, h, r := peaks[len(peaks)-3], peaks[len(peaks)-2], peaks[len(peaks)-1]
	left, head, right := closes[l], closes[h], closes[r]

	if head <= left || head <= right {
		return Pattern{}, false
	}
	if math.Abs(left-right)/left > shoulderTolerance {
		return Pattern{}, false
	}
	return Pattern{Name: "head_and_shoulders", Signal: SignalBearish, Detail: "head above two matched shoulders"}, true
}

func detectTriangle(closes []float64, peaks, troughs []int) (Pattern, bool) {
	if len(peaks) < 2 || len(troughs) < 2 {
		return Pattern{}, false
	}

	peakSlope := normalizedSlope(closes, peaks)
	troughSlope := normalizedSlope(closes, troughs)

	flat := func(s float64) bool { return math.Abs(s) < 0.005 }

	switch {
	case flat(peakSlope) && troughSlope > 0.005:
		return Pattern{Name: "ascending_triangle", Signal: SignalBullish, Detail: "flat resistance, rising support"}, true
	case flat(troughSlope) && peakSlope < -0.005:
		return Pattern{Name: "descending_triangle", Signal: SignalBearish, Detail: "flat support, falling resistance"}, true
	case peakSlope < -0.005 && troughSlope > 0.005:
		return Pattern{Name: "symmetrical_triangle", Signal: SignalNeutral, Detail: "converging highs and lows"}, true
	}
	return Pattern{}, false
}

// normalizedSlope computes the per-candle slope through the extrema points,
// normalized by the mean value so thresholds work across price scales
func normalizedSlope(closes []float64, indices []int) float64 {
	first, lastIdx := indices[0], indices[len(indices)-1]
	if lastIdx == first {
		return 0
	}
	mean := (closes[first] + closes[lastIdx]) / 2
	if mean == 0 {
		return 0
	}
	return (closes[lastIdx] - closes[first]) / float64(lastIdx-first) / mean
}

func detectBreakout(closes, highs, lows []float64) (Pattern, bool) {
	if len(closes) < breakoutLookback+1 {
		return Pattern{}, false
	}

	lastClose := closes[len(closes)-1]
	priorHighs := highs[len(highs)-1-breakoutLookback : len(highs)-1]
	priorLows := lows[len(lows)-1-breakoutLookback : len(lows)-1]

	maxHigh, minLow := priorHighs[0], priorLows[0]
	for i := 1; i < breakoutLookback; i++ {
		if priorHighs[i] > maxHigh {
			maxHigh = priorHighs[i]
		}
		if priorLows[i] < minLow {
			minLow = priorLows[i]
		}
	}

	if lastClose > maxHigh {
		return Pattern{Name: "breakout", Signal: SignalBullish, Detail: "close above prior range high"}, true
	}
	if lastClose < minLow {
		return Pattern{Name: "breakdown", Signal: SignalBearish, Detail: "close below prior range low"}, true
	}
	return Pattern{}, false
}

func detectTrend(closes []float64) (Pattern, bool) {
	third := len(closes) / 3
	if third == 0 {
		return Pattern{}, false
	}

	early := mean(closes[:third])
	late := mean(closes[len(closes)-third:])
	if early == 0 {
		return Pattern{}, false
	}

	change := (late - early) / early
	if change > trendSlopeThreshold {
		return Pattern{Name: "uptrend", Signal: SignalBullish}, true
	}
	if change < -trendSlopeThreshold {
		return Pattern{Name: "downtrend", Signal: SignalBearish}, true
	}
	return Pattern{}, false
}

func detectConsolidation(closes []float64) (Pattern, bool) {
	tail := closes
	if len(tail) > breakoutLookback {
		tail = tail[len(tail)-breakoutLookback:]
	}

	minV, maxV := tail[0], tail[0]
	for _, v := range tail {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	m := mean(tail)
	if m == 0 {
		return Pattern{}, false
	}
	if (maxV-minV)/m < consolidationRange {
		return Pattern{Name: "consolidation", Signal: SignalNeutral, Detail: "tight range"}, true
	}
	return Pattern{}, false
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
