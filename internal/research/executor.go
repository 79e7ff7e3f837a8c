package research

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/I-Onlabs/sigmax/internal/adapters"
	"github.com/I-Onlabs/sigmax/internal/config"
	"github.com/I-Onlabs/sigmax/internal/indicators"
	"github.com/I-Onlabs/sigmax/internal/temporal"
)

// benchmarkSymbol anchors the correlation probe
const benchmarkSymbol = "BTC/USDT"

// Executor runs research plans against the temporal gateway and the
// direct-read adapters
type Executor struct {
	cfg        config.PlannerConfig
	gateway    *temporal.Gateway
	social     adapters.SocialAdapter
	onchain    adapters.OnChainAdapter
	macro      adapters.MacroAdapter
	indicators *indicators.Service
	log        zerolog.Logger
}

// ExecutorDeps bundles the data sources an executor probes
type ExecutorDeps struct {
	Gateway *temporal.Gateway
	Social  adapters.SocialAdapter
	OnChain adapters.OnChainAdapter
	Macro   adapters.MacroAdapter
}

// NewExecutor creates an executor over the given sources
func NewExecutor(cfg config.PlannerConfig, deps ExecutorDeps) *Executor {
	return &Executor{
		cfg:        cfg,
		gateway:    deps.Gateway,
		social:     deps.Social,
		onchain:    deps.OnChain,
		macro:      deps.Macro,
		indicators: indicators.NewService(),
		log:        config.NewLogger("research"),
	}
}

// Execute runs the plan's batches sequentially, tasks within a batch
// concurrently. Task failures do not fail the batch; dependents of a failed
// task are skipped. When the cumulative research budget runs out, tasks still
// outstanding become SKIPPED.
func (e *Executor) Execute(ctx context.Context, plan *Plan) {
	budget := e.cfg.MaxResearchTime
	if budget <= 0 {
		budget = 60 * time.Second
	}
	budgetCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	statuses := make(map[string]string)

	for _, batch := range plan.Batches {
		if budgetCtx.Err() != nil {
			for _, t := range batch {
				t.Status = StatusSkipped
				t.Error = "research time budget exceeded"
				statuses[t.Name] = t.Status
			}
			continue
		}

		var group errgroup.Group
		for _, task := range batch {
			if failedDep := firstUnmetDependency(task, statuses); failedDep != "" {
				task.Status = StatusSkipped
				task.Error = fmt.Sprintf("dependency %s did not complete", failedDep)
				continue
			}

			task := task
			group.Go(func() error {
				e.runTask(budgetCtx, plan, task)
				return nil
			})
		}
		_ = group.Wait()

		for _, t := range batch {
			statuses[t.Name] = t.Status
		}
	}
}

func firstUnmetDependency(task *Task, statuses map[string]string) string {
	for _, dep := range task.Dependencies {
		if statuses[dep] != StatusCompleted {
			return dep
		}
	}
	return ""
}

func (e *Executor) runTask(ctx context.Context, plan *Plan, task *Task) {
	task.Status = StatusInProgress
	task.StartTime = time.Now().UTC()
	defer func() { task.EndTime = time.Now().UTC() }()

	taskCtx := ctx
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}

	result, err := e.probe(taskCtx, plan.Symbol, task.Name)
	if err != nil {
		if ctx.Err() != nil {
			// Budget cancellation, not a task fault
			task.Status = StatusSkipped
			task.Error = "research time budget exceeded"
		} else {
			task.Status = StatusFailed
			task.Error = err.Error()
		}
		e.log.Warn().
			Str("task", task.Name).
			Str("symbol", plan.Symbol).
			Str("status", task.Status).
			Err(err).
			Msg("Research task did not complete")
		return
	}

	task.Result = result
	task.Status = StatusCompleted
}

// probe dispatches a task to its data source
func (e *Executor) probe(ctx context.Context, symbol, name string) (map[string]any, error) {
	switch name {
	case "sentiment":
		return e.probeSentiment(ctx, symbol)
	case "onchain":
		return e.probeOnChain(ctx, symbol)
	case "technical":
		return e.probeTechnical(ctx, symbol)
	case "macro":
		return e.probeMacro(ctx)
	case "liquidity":
		return e.probeLiquidity(ctx, symbol)
	case "correlation":
		return e.probeCorrelation(ctx, symbol)
	case "momentum":
		return e.probeMomentum(ctx, symbol)
	case "patterns":
		return e.probePatterns(ctx, symbol)
	case "keywords":
		return e.probeKeywords(ctx, symbol)
	default:
		return nil, fmt.Errorf("unknown research task: %s", name)
	}
}

func (e *Executor) probeSentiment(ctx context.Context, symbol string) (map[string]any, error) {
	reading, err := e.gateway.GetSentiment(ctx, symbol, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("sentiment lookup: %w", err)
	}

	news, err := e.gateway.SearchNews(ctx, symbol, []string{symbol}, 10)
	if err != nil {
		return nil, fmt.Errorf("news search: %w", err)
	}

	newsScore := 0.0
	if len(news) > 0 {
		for _, item := range news {
			newsScore += item.Sentiment
		}
		newsScore /= float64(len(news))
	}

	result := map[string]any{
		"news":       news,
		"news_score": newsScore,
	}
	if reading != nil {
		result["social_score"] = reading.Score
		result["mentions"] = reading.Mentions
	}
	if e.social != nil {
		if stats, err := e.social.GetSocialStats(ctx, symbol, e.gateway.SimulationTime()); err == nil && stats != nil {
			result["social"] = stats
			result["social_score"] = stats.Score
		}
	}
	return result, nil
}

func (e *Executor) probeOnChain(ctx context.Context, symbol string) (map[string]any, error) {
	if e.onchain == nil {
		return nil, fmt.Errorf("no on-chain adapter configured")
	}
	stats, err := e.onchain.GetOnChainStats(ctx, symbol, e.gateway.SimulationTime())
	if err != nil {
		return nil, fmt.Errorf("onchain lookup: %w", err)
	}
	return map[string]any{
		"onchain":        stats,
		"whale_activity": stats.WhaleActivity,
	}, nil
}

func (e *Executor) probeTechnical(ctx context.Context, symbol string) (map[string]any, error) {
	candles, err := e.gateway.GetOHLCV(ctx, symbol, "1h", 100, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("ohlcv fetch: %w", err)
	}
	snapshot, err := e.indicators.Compute(candles)
	if err != nil {
		return nil, fmt.Errorf("indicator compute: %w", err)
	}
	return map[string]any{
		"snapshot":     snapshot,
		"signal_score": snapshot.SignalScore(),
	}, nil
}

func (e *Executor) probeMacro(ctx context.Context) (map[string]any, error) {
	if e.macro == nil {
		return nil, fmt.Errorf("no macro adapter configured")
	}
	stats, err := e.macro.GetMacroStats(ctx, e.gateway.SimulationTime())
	if err != nil {
		return nil, fmt.Errorf("macro lookup: %w", err)
	}
	return map[string]any{
		"macro":            stats,
		"fear_greed_index": stats.FearGreedIndex,
	}, nil
}

// probeLiquidity estimates tradability from recent volume and candle range
func (e *Executor) probeLiquidity(ctx context.Context, symbol string) (map[string]any, error) {
	candles, err := e.gateway.GetOHLCV(ctx, symbol, "1h", 24, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("ohlcv fetch: %w", err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles for liquidity estimate")
	}

	totalVolume := 0.0
	avgSpread := 0.0
	for _, c := range candles {
		totalVolume += c.Volume
		if c.Close > 0 {
			avgSpread += (c.High - c.Low) / c.Close
		}
	}
	avgSpread /= float64(len(candles))

	return map[string]any{
		"volume_24h":   totalVolume,
		"avg_range":    avgSpread,
		"is_liquid":    totalVolume > 0 && avgSpread < 0.05,
		"candle_count": len(candles),
	}, nil
}

// probeCorrelation computes the return correlation against the benchmark
func (e *Executor) probeCorrelation(ctx context.Context, symbol string) (map[string]any, error) {
	if symbol == benchmarkSymbol {
		return map[string]any{"benchmark": benchmarkSymbol, "correlation": 1.0}, nil
	}

	own, err := e.gateway.GetOHLCV(ctx, symbol, "1h", 48, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("ohlcv fetch: %w", err)
	}
	bench, err := e.gateway.GetOHLCV(ctx, benchmarkSymbol, "1h", 48, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("benchmark ohlcv fetch: %w", err)
	}

	corr := returnCorrelation(closesOf(own), closesOf(bench))
	return map[string]any{
		"benchmark":   benchmarkSymbol,
		"correlation": corr,
	}, nil
}

// probeMomentum measures the rate of change over the recent window
func (e *Executor) probeMomentum(ctx context.Context, symbol string) (map[string]any, error) {
	candles, err := e.gateway.GetOHLCV(ctx, symbol, "1h", 24, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("ohlcv fetch: %w", err)
	}
	if len(candles) < 2 {
		return nil, fmt.Errorf("not enough candles for momentum")
	}

	first := candles[0].Close
	lastClose := candles[len(candles)-1].Close
	roc := 0.0
	if first != 0 {
		roc = (lastClose - first) / first
	}
	return map[string]any{
		"rate_of_change": roc,
		"window_hours":   len(candles),
	}, nil
}

func (e *Executor) probePatterns(ctx context.Context, symbol string) (map[string]any, error) {
	candles, err := e.gateway.GetOHLCV(ctx, symbol, "1h", 100, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("ohlcv fetch: %w", err)
	}
	patterns := indicators.DetectPatterns(candles)
	return map[string]any{
		"patterns": patterns,
		"count":    len(patterns),
	}, nil
}

// probeKeywords counts theme keywords in recent news titles
func (e *Executor) probeKeywords(ctx context.Context, symbol string) (map[string]any, error) {
	news, err := e.gateway.SearchNews(ctx, symbol, []string{symbol}, 20)
	if err != nil {
		return nil, fmt.Errorf("news search: %w", err)
	}

	themes := []string{"etf", "regulation", "hack", "upgrade", "partnership", "adoption", "lawsuit"}
	counts := make(map[string]int)
	for _, item := range news {
		title := strings.ToLower(item.Title)
		for _, theme := range themes {
			if strings.Contains(title, theme) {
				counts[theme]++
			}
		}
	}
	return map[string]any{
		"keyword_counts": counts,
		"articles":       len(news),
	}, nil
}

func closesOf(candles []adapters.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// returnCorrelation is the Pearson correlation of per-candle returns
func returnCorrelation(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 3 {
		return 0
	}

	ra := returns(a[:n])
	rb := returns(b[:n])

	meanA, meanB := seriesMean(ra), seriesMean(rb)
	var cov, varA, varB float64
	for i := range ra {
		da, db := ra[i]-meanA, rb[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

func returns(closes []float64) []float64 {
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (closes[i]-closes[i-1])/closes[i-1])
	}
	return out
}

func seriesMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
