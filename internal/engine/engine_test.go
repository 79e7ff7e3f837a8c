package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/I-Onlabs/sigmax/internal/adapters"
	"github.com/I-Onlabs/sigmax/internal/config"
	"github.com/I-Onlabs/sigmax/internal/privacy"
	"github.com/I-Onlabs/sigmax/internal/research"
	"github.com/I-Onlabs/sigmax/internal/safety"
	"github.com/I-Onlabs/sigmax/internal/temporal"
)

var (
	candleStart = time.Date(2024, 5, 25, 0, 0, 0, 0, time.UTC)
	simTime     = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	wallClock   = time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
)

func risingCandles(n int) []adapters.Candle {
	candles := make([]adapters.Candle, n)
	for i := range candles {
		close := 30000 + float64(i)*25
		candles[i] = adapters.Candle{
			Timestamp: candleStart.Add(time.Duration(i) * time.Hour),
			Open:      close - 10,
			High:      close + 30,
			Low:       close - 30,
			Close:     close,
			Volume:    5000,
		}
	}
	return candles
}

type fixture struct {
	engine  *Engine
	safety  *safety.Enforcer
	gateway *temporal.Gateway
	cfg     *config.Config
}

func newFixture(t *testing.T, mutate func(*config.Config, *Deps)) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Engine.Symbols = []string{"BTC/USDT"}
	cfg.Engine.HistorySize = 10

	data := adapters.NewPaperDataAdapter()
	data.LoadCandles("BTC/USDT", risingCandles(100))
	data.LoadCandles("ETH/USDT", risingCandles(100))

	news := adapters.NewPaperNewsAdapter()
	news.AddItems(
		adapters.NewsItem{Title: "Institutional adoption accelerates", Sentiment: 0.8, PublishedAt: simTime.Add(-time.Hour)},
		adapters.NewsItem{Title: "Network upgrade ships on schedule", Sentiment: 0.8, PublishedAt: simTime.Add(-3 * time.Hour)},
	)

	gateway := temporal.NewGateway(simTime, temporal.Adapters{
		Data:      data,
		News:      news,
		Sentiment: &adapters.PaperSentimentAdapter{Score: 0.8, Mentions: 2000},
	}, temporal.Options{
		Mode:      temporal.ModeStrict,
		LogAccess: true,
		Now:       func() time.Time { return wallClock },
	})

	scanner, err := privacy.NewScanner()
	require.NoError(t, err)
	enforcer := safety.NewEnforcer(cfg.Safety, scanner)

	deps := Deps{
		Gateway:    gateway,
		Safety:     enforcer,
		Scanner:    scanner,
		Compliance: &adapters.PaperComplianceAdapter{},
	}
	executorDeps := research.ExecutorDeps{
		Gateway: gateway,
		Social:  &adapters.PaperSocialAdapter{Score: 0.8, Mentions: 900},
		OnChain: &adapters.PaperOnChainAdapter{WhaleActivity: "bullish"},
		Macro:   &adapters.PaperMacroAdapter{FearGreedIndex: 68},
	}

	if mutate != nil {
		mutate(cfg, &deps)
	}
	if deps.Research == nil {
		if deps.Gateway != gateway {
			executorDeps.Gateway = deps.Gateway
		}
		deps.Research = research.NewService(cfg.Planner, executorDeps, deps.LLM)
	}

	return &fixture{
		engine:  New(cfg, deps),
		safety:  enforcer,
		gateway: gateway,
		cfg:     cfg,
	}
}

func TestAnalyzeSymbolBuysOnStrongSignals(t *testing.T) {
	f := newFixture(t, nil)

	record := f.engine.AnalyzeSymbol(context.Background(), "BTC/USDT")
	require.NotNil(t, record)

	assert.Equal(t, ActionBuy, record.Action)
	assert.Greater(t, record.Confidence, 0.6)
	assert.Greater(t, record.Sentiment, 0.3)
	assert.Greater(t, record.Size, 0.0)
	assert.LessOrEqual(t, record.Size, 0.10)
	assert.GreaterOrEqual(t, record.Iterations, 1)
	assert.LessOrEqual(t, record.Iterations, f.cfg.Engine.MaxIterations)

	require.NotNil(t, record.Debate)
	assert.NotEmpty(t, record.Debate.BullArgument)
	assert.NotEmpty(t, record.Debate.BearArgument)
	assert.NotEmpty(t, record.Debate.TechnicalAnalysis)

	history := f.engine.Decisions("BTC/USDT", 0, time.Time{})
	require.Len(t, history, 1)
	assert.Equal(t, record.Action, history[0].Action)
}

func TestPauseDominance(t *testing.T) {
	f := newFixture(t, nil)

	// Three straight losses trip the enforcer
	for i := 0; i < 3; i++ {
		f.safety.RecordTradeResult(safety.TradeResult{PnL: -5})
	}
	require.True(t, f.safety.Paused())

	record := f.engine.AnalyzeSymbol(context.Background(), "BTC/USDT")
	assert.Equal(t, ActionHold, record.Action)
	assert.Zero(t, record.Confidence)
	assert.Contains(t, record.Reason, "pause")
}

func TestAutoPauseClosesAllPositions(t *testing.T) {
	execution := adapters.NewPaperExecutionAdapter(10000)
	f := newFixture(t, func(cfg *config.Config, deps *Deps) {
		deps.Execution = execution
	})

	ctx := context.Background()
	require.NoError(t, execution.ExecuteTrade(ctx, adapters.TradeRequest{
		Symbol: "BTC/USDT", Action: "buy", Size: 0.5, Price: 30000,
	}))

	for i := 0; i < 3; i++ {
		f.safety.RecordTradeResult(safety.TradeResult{PnL: -2})
	}
	require.True(t, f.safety.Paused())

	portfolio, err := execution.GetPortfolio(ctx)
	require.NoError(t, err)
	assert.Empty(t, portfolio.Positions)
	assert.InDelta(t, 10000.0, portfolio.Balance, 1e-9)
}

func TestRiskDenialForcesHold(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config, deps *Deps) {
		deps.Compliance = &adapters.PaperComplianceAdapter{Blacklist: []string{"BTC/USDT"}}
	})

	record := f.engine.AnalyzeSymbol(context.Background(), "BTC/USDT")
	assert.Equal(t, ActionHold, record.Action)
	assert.Zero(t, record.Confidence)
	assert.Equal(t, "Failed risk or compliance check", record.Reason)
	// Sentiment was strongly positive, the denial still wins
	assert.Greater(t, record.Sentiment, 0.3)
}

func TestDataGapTriggersReResearchWithinBudget(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config, deps *Deps) {
		deps.Research = research.NewService(cfg.Planner, research.ExecutorDeps{
			Gateway: deps.Gateway,
			Social:  &adapters.PaperSocialAdapter{Score: 0.8, Mentions: 900},
			// No on-chain adapter: the onchain probe fails every pass
			Macro: &adapters.PaperMacroAdapter{FearGreedIndex: 68},
		}, nil)
	})

	record := f.engine.AnalyzeSymbol(context.Background(), "BTC/USDT")
	require.NotNil(t, record)

	// The researcher/validator loop burns the iteration budget and then
	// proceeds regardless of passage
	assert.Equal(t, f.cfg.Engine.MaxIterations, record.Iterations)
	assert.Contains(t, []string{ActionBuy, ActionSell, ActionHold}, record.Action)
}

func TestPrivacyBreachForcesHoldAndPause(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config, deps *Deps) {
		deps.LLM = &collusiveLLM{}
	})

	record := f.engine.AnalyzeSymbol(context.Background(), "BTC/USDT")
	assert.Equal(t, ActionHold, record.Action)
	assert.Zero(t, record.Confidence)
	// The enforcer observes the breach mid-tick, so the decide node sees
	// the pause and reports it
	assert.Contains(t, record.Reason, "privacy_breach")
	assert.True(t, f.safety.Paused())
}

// collusiveLLM simulates a model leaking insider language into the debate
type collusiveLLM struct{}

func (c *collusiveLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return "We should coordinate trades before the announcement goes public", nil
}

func TestDecisionHistoryBoundAcrossTicks(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config, deps *Deps) {
		cfg.Engine.HistorySize = 3
	})

	for i := 0; i < 5; i++ {
		f.engine.AnalyzeSymbol(context.Background(), "BTC/USDT")
	}

	history := f.engine.Decisions("BTC/USDT", 0, time.Time{})
	require.Len(t, history, 3)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].Timestamp.Before(history[i-1].Timestamp))
	}
}

func TestStatusReflectsPause(t *testing.T) {
	f := newFixture(t, nil)

	status := f.engine.Status()
	assert.False(t, status.Running)
	assert.False(t, status.Paused)
	assert.Equal(t, "balanced", status.RiskProfile)
	assert.Equal(t, "paper", status.Mode)
	assert.Equal(t, []string{"BTC/USDT"}, status.Symbols)

	f.engine.Pause("maintenance window")
	status = f.engine.Status()
	assert.True(t, status.Paused)
	assert.Equal(t, "maintenance window", status.PauseReason)

	require.NoError(t, f.engine.Resume(true))
	assert.False(t, f.engine.Status().Paused)
}

func TestStatusAgentHealth(t *testing.T) {
	f := newFixture(t, nil)

	assert.Empty(t, f.engine.Status().AgentHealth)

	f.engine.AnalyzeSymbol(context.Background(), "BTC/USDT")

	status := f.engine.Status()
	require.Len(t, status.AgentHealth, 9)
	names := make([]string, 0, len(status.AgentHealth))
	for _, agent := range status.AgentHealth {
		names = append(names, agent.Name)
		assert.Equal(t, HealthHealthy, agent.Status, agent.Name)
		assert.False(t, agent.LastRun.IsZero(), agent.Name)
		assert.Empty(t, agent.LastError, agent.Name)
	}
	assert.Equal(t, []string{
		"analyzer", "bear", "bull", "decide", "optimizer",
		"privacy", "researcher", "risk", "validator",
	}, names)
	assert.Equal(t, f.cfg.Validation, status.Validation)
}

func TestStatusAgentHealthDegradedAfterNodeError(t *testing.T) {
	f := newFixture(t, nil)

	// No candles exist for this symbol, so the analyzer's technical
	// computation fails while the rest of the pipeline completes
	f.engine.AnalyzeSymbol(context.Background(), "DOGE/USDT")

	byName := make(map[string]AgentHealth)
	for _, agent := range f.engine.Status().AgentHealth {
		byName[agent.Name] = agent
	}
	require.Contains(t, byName, "analyzer")
	assert.Equal(t, HealthDegraded, byName["analyzer"].Status)
	assert.Contains(t, byName["analyzer"].LastError, "insufficient data")
	assert.Equal(t, HealthHealthy, byName["researcher"].Status)
	assert.Equal(t, HealthHealthy, byName["decide"].Status)
}

func TestAuditCleanAfterAnalyze(t *testing.T) {
	f := newFixture(t, nil)

	f.engine.AnalyzeSymbol(context.Background(), "BTC/USDT")

	result := f.engine.Audit()
	assert.True(t, result.Passed)
	assert.Empty(t, result.Violations)
	assert.Greater(t, result.TotalChecks, 0)
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config, deps *Deps) {
		cfg.Engine.StepInterval = 10 * time.Millisecond
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := f.engine.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotEmpty(t, f.engine.Decisions("BTC/USDT", 0, time.Time{}))
}
