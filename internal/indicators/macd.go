package indicators

// MACDResult holds the MACD values at the latest candle
type MACDResult struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
	Crossover string  `json:"crossover"` // "bullish", "bearish", "none"
}

// computeMACD calculates MACD(12, 26) from closing prices.
//
// Known limitation carried from the reference system: the signal line equals
// the MACD line instead of its 9-period EMA, so the histogram is identically
// zero. Crossover detection therefore keys off the MACD line against zero.
func computeMACD(closes []float64) MACDResult {
	fast := ema(closes, 12)
	slow := ema(closes, 26)

	n := len(fast)
	if len(slow) < n {
		n = len(slow)
	}
	if n == 0 {
		return MACDResult{Crossover: "none"}
	}

	macdLine := make([]float64, n)
	for i := 0; i < n; i++ {
		macdLine[i] = fast[len(fast)-n+i] - slow[len(slow)-n+i]
	}

	current := macdLine[n-1]
	crossover := "none"
	if n >= 2 {
		previous := macdLine[n-2]
		if previous <= 0 && current > 0 {
			crossover = "bullish"
		}
		if previous >= 0 && current < 0 {
			crossover = "bearish"
		}
	}

	return MACDResult{
		MACD:      current,
		Signal:    current,
		Histogram: 0,
		Crossover: crossover,
	}
}

// ema computes an exponential moving average series seeded with the first value
func ema(values []float64, period int) []float64 {
	if len(values) == 0 || period < 1 {
		return nil
	}

	multiplier := 2.0 / (float64(period) + 1.0)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = (values[i]-out[i-1])*multiplier + out[i-1]
	}
	return out
}

// computeATR calculates the Average True Range over the given period.
// Implemented here directly: the pipeline needs the single latest value and
// the smoothed-series plumbing is shorter than adapting the library form.
func computeATR(highs, lows, closes []float64, period int) float64 {
	if len(closes) < 2 || period < 1 {
		return 0
	}

	trueRanges := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		tr := highs[i] - lows[i]
		if hc := abs(highs[i] - closes[i-1]); hc > tr {
			tr = hc
		}
		if lc := abs(lows[i] - closes[i-1]); lc > tr {
			tr = lc
		}
		trueRanges = append(trueRanges, tr)
	}

	if len(trueRanges) < period {
		period = len(trueRanges)
	}

	// Wilder smoothing: simple average of the first window, then blend
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += trueRanges[i]
	}
	atr := sum / float64(period)
	for i := period; i < len(trueRanges); i++ {
		atr = (atr*float64(period-1) + trueRanges[i]) / float64(period)
	}
	return atr
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
