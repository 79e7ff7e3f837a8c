package engine

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/I-Onlabs/sigmax/internal/adapters"
	"github.com/I-Onlabs/sigmax/internal/boundary"
	"github.com/I-Onlabs/sigmax/internal/config"
	"github.com/I-Onlabs/sigmax/internal/indicators"
	"github.com/I-Onlabs/sigmax/internal/privacy"
	"github.com/I-Onlabs/sigmax/internal/research"
	"github.com/I-Onlabs/sigmax/internal/safety"
	"github.com/I-Onlabs/sigmax/internal/temporal"
)

// Deps bundles the services and adapters an engine runs against. Compliance,
// Optimizer, Execution and LLM are optional.
type Deps struct {
	Research   *research.Service
	Gateway    *temporal.Gateway
	Safety     *safety.Enforcer
	Scanner    *privacy.Scanner
	Compliance adapters.ComplianceAdapter
	Optimizer  adapters.OptimizerAdapter
	Execution  adapters.ExecutionAdapter
	LLM        adapters.LanguageModel
}

// Engine is the decision pipeline facade: one AnalyzeSymbol call runs one
// tick of the agent graph and stores the resulting record
type Engine struct {
	cfg        *config.Config
	research   *research.Service
	gateway    *temporal.Gateway
	safety     *safety.Enforcer
	scanner    *privacy.Scanner
	compliance adapters.ComplianceAdapter
	optimizer  adapters.OptimizerAdapter
	execution  adapters.ExecutionAdapter
	llm        adapters.LanguageModel
	indicators *indicators.Service
	history    *History
	health     *healthTracker
	graph      *graph
	running    atomic.Bool
	log        zerolog.Logger
	metrics    *engineMetrics
}

// New creates an engine
func New(cfg *config.Config, deps Deps) *Engine {
	historySize := cfg.Engine.HistorySize
	if historySize <= 0 {
		historySize = 100
	}

	e := &Engine{
		cfg:        cfg,
		research:   deps.Research,
		gateway:    deps.Gateway,
		safety:     deps.Safety,
		scanner:    deps.Scanner,
		compliance: deps.Compliance,
		optimizer:  deps.Optimizer,
		execution:  deps.Execution,
		llm:        deps.LLM,
		indicators: indicators.NewService(),
		history:    NewHistory(historySize),
		health:     newHealthTracker(),
		log:        config.NewLogger("engine"),
		metrics:    getEngineMetrics(),
	}
	e.graph = newGraph(e)
	if e.execution != nil {
		e.safety.SetOnPause(e.closePositionsOnPause)
	}
	return e
}

// closePositionsOnPause flattens the book when a safety trigger pauses the
// system. Runs off the decision path; a failure is logged and left for the
// operator, the pause itself already blocks new trades.
func (e *Engine) closePositionsOnPause(reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	e.log.Warn().Str("reason", reason).Msg("Auto-pause, closing all positions")
	if err := e.execution.CloseAllPositions(ctx); err != nil {
		e.log.Error().Err(err).Msg("Failed to close positions after auto-pause")
		return
	}
	e.log.Info().Msg("All positions closed")
}

// AnalyzeSymbol runs one decision tick. It always returns a record; failures
// inside the pipeline surface as a conservative hold, never as an error.
func (e *Engine) AnalyzeSymbol(ctx context.Context, symbol string) *DecisionRecord {
	started := time.Now()

	maxIterations := e.cfg.Engine.MaxIterations
	if maxIterations < 1 {
		maxIterations = 3
	}

	state := &DecisionState{
		Symbol:        symbol,
		MaxIterations: maxIterations,
		StartedAt:     started.UTC(),
	}

	if e.safety.Paused() {
		state.apply(StatePatch{
			FinalDecision: &Decision{
				Action:     ActionHold,
				Confidence: 0,
				Reason:     "safety pause active: " + e.safety.PauseReason(),
			},
			Messages: []Message{{Role: "decision", Content: "hold: system paused"}},
		})
	} else {
		e.graph.run(ctx, state)
	}

	if state.FinalDecision == nil {
		// Router guard: a tick must always terminate with a decision
		state.apply(StatePatch{
			FinalDecision: &Decision{Action: ActionHold, Confidence: 0, Reason: "no decision produced"},
			Err:           ptr("tick ended without a decision"),
		})
	}

	record := e.record(state)
	e.history.Add(record)

	e.metrics.decisions.WithLabelValues(symbol, record.Action).Inc()
	e.metrics.confidence.WithLabelValues(symbol).Set(record.Confidence)
	e.metrics.iterations.Observe(float64(state.Iteration))
	e.metrics.tickDuration.Observe(time.Since(started).Seconds())

	e.log.Info().
		Str("symbol", symbol).
		Str("action", record.Action).
		Float64("confidence", record.Confidence).
		Float64("sentiment", record.Sentiment).
		Int("iterations", state.Iteration).
		Msg("Decision recorded")

	return &record
}

func (e *Engine) record(state *DecisionState) DecisionRecord {
	d := state.FinalDecision
	return DecisionRecord{
		Symbol:     state.Symbol,
		Timestamp:  time.Now().UTC(),
		Action:     d.Action,
		Size:       d.Size,
		Confidence: d.Confidence,
		Sentiment:  state.SentimentScore,
		Reason:     d.Reason,
		Iterations: state.Iteration,
		Debate: &AgentDebate{
			BullArgument:      state.BullArgument,
			BearArgument:      state.BearArgument,
			ResearchSummary:   state.ResearchSummary,
			TechnicalAnalysis: state.TechnicalAnalysis,
		},
	}
}

// Run analyzes every configured symbol on the step interval until the
// context is cancelled
func (e *Engine) Run(ctx context.Context) error {
	interval := e.cfg.Engine.StepInterval
	if interval <= 0 {
		interval = time.Minute
	}

	e.running.Store(true)
	defer e.running.Store(false)

	e.log.Info().
		Strs("symbols", e.cfg.Engine.Symbols).
		Dur("interval", interval).
		Str("mode", e.cfg.Engine.Mode).
		Msg("Engine started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		e.step(ctx)
		select {
		case <-ctx.Done():
			e.log.Info().Msg("Engine stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (e *Engine) step(ctx context.Context) {
	for _, symbol := range e.cfg.Engine.Symbols {
		if ctx.Err() != nil {
			return
		}
		e.AnalyzeSymbol(ctx, symbol)
	}
}

// Pause pauses decision output via the safety enforcer
func (e *Engine) Pause(reason string) {
	e.safety.Pause(reason)
}

// Resume clears the safety pause; see safety.Enforcer.Resume for the
// lockout semantics
func (e *Engine) Resume(force bool) error {
	return e.safety.Resume(force)
}

// Decisions returns stored decisions for a symbol, oldest-first
func (e *Engine) Decisions(symbol string, limit int, since time.Time) []DecisionRecord {
	return e.history.Get(symbol, limit, since)
}

// Status summarizes the engine for operators
type Status struct {
	Running      bool                    `json:"running"`
	Paused       bool                    `json:"paused"`
	PauseReason  string                  `json:"pause_reason,omitempty"`
	Mode         string                  `json:"mode"`
	RiskProfile  string                  `json:"risk_profile"`
	Symbols      []string                `json:"symbols"`
	AgentHealth  []AgentHealth           `json:"agent_health"`
	Validation   config.ValidationConfig `json:"validation_config"`
	Safety       safety.State            `json:"safety"`
	GatewayStats temporal.AccessStats    `json:"gateway_stats"`
}

// Status reports the current engine state
func (e *Engine) Status() Status {
	snapshot := e.safety.Snapshot()
	running := e.running.Load()
	return Status{
		Running:      running,
		Paused:       snapshot.Paused,
		PauseReason:  snapshot.PauseReason,
		Mode:         e.cfg.Engine.Mode,
		RiskProfile:  e.cfg.Engine.RiskProfile,
		Symbols:      e.cfg.Engine.Symbols,
		AgentHealth:  e.health.snapshot(running),
		Validation:   e.cfg.Validation,
		Safety:       snapshot,
		GatewayStats: e.gateway.Stats(),
	}
}

// Audit replays the gateway access log through the boundary validator and
// reports any look-ahead reads that slipped past the temporal checks
func (e *Engine) Audit() boundary.Result {
	v := boundary.NewValidator(false)
	v.CheckAccessRecords(e.gateway.Records())
	return v.Result()
}

// FormatExplanation renders a decision record as human-readable text
func FormatExplanation(record *DecisionRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Decision for %s at %s\n", record.Symbol, record.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "  Action:     %s\n", record.Action)
	fmt.Fprintf(&b, "  Size:       %.4f\n", record.Size)
	fmt.Fprintf(&b, "  Confidence: %.2f\n", record.Confidence)
	fmt.Fprintf(&b, "  Sentiment:  %.2f\n", record.Sentiment)
	fmt.Fprintf(&b, "  Iterations: %d\n", record.Iterations)
	fmt.Fprintf(&b, "  Reason:     %s\n", record.Reason)
	if record.Debate != nil {
		if record.Debate.ResearchSummary != "" {
			fmt.Fprintf(&b, "  Research:   %s\n", record.Debate.ResearchSummary)
		}
		if record.Debate.BullArgument != "" {
			fmt.Fprintf(&b, "  Bull case:  %s\n", record.Debate.BullArgument)
		}
		if record.Debate.BearArgument != "" {
			fmt.Fprintf(&b, "  Bear case:  %s\n", record.Debate.BearArgument)
		}
		if record.Debate.TechnicalAnalysis != "" {
			fmt.Fprintf(&b, "  Technical:  %s\n", record.Debate.TechnicalAnalysis)
		}
	}
	return b.String()
}
