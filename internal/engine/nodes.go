package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/I-Onlabs/sigmax/internal/adapters"
	"github.com/I-Onlabs/sigmax/internal/indicators"
	"github.com/I-Onlabs/sigmax/internal/research"
)

// redFlagKeywords disqualify a symbol when they appear in agent output
var redFlagKeywords = []string{
	"scam", "rug pull", "pump and dump", "ponzi", "extreme risk",
	"unverified", "suspicious",
}

// profileLimits are the embedded per-profile position bounds
var profileLimits = map[string]struct {
	maxPositionPct float64
	maxLeverage    float64
}{
	"conservative": {maxPositionPct: 0.05, maxLeverage: 1},
	"balanced":     {maxPositionPct: 0.10, maxLeverage: 2},
	"aggressive":   {maxPositionPct: 0.20, maxLeverage: 3},
}

// maxKellySize caps the classical sizing fallback
const maxKellySize = 0.10

func (e *Engine) runResearcher(ctx context.Context, state *DecisionState) StatePatch {
	artifact, plan := e.research.Research(ctx, state.Symbol, e.cfg.Engine.RiskProfile)

	price, err := e.gateway.GetPrice(ctx, state.Symbol, time.Time{})
	patch := StatePatch{
		ResearchSummary: ptr(artifact.Summary),
		SentimentScore:  ptr(artifact.Sentiment),
		ResearchData:    artifact.Data,
		TaskResults:     artifact.Data,
		PlannedTasks:    plan.Tasks(),
		Messages: []Message{{
			Role:    "researcher",
			Content: artifact.Summary,
		}},
	}
	if err != nil {
		patch.Err = ptr(fmt.Sprintf("price fetch: %v", err))
	} else {
		patch.CurrentPrice = ptr(price)
	}

	var completed []string
	for _, task := range plan.Tasks() {
		if task.Status == research.StatusCompleted {
			completed = append(completed, task.ID)
		}
	}
	patch.CompletedTaskIDs = completed
	return patch
}

// runValidator scores research coverage. It never mutates research
// artifacts; passage requires the score to clear the threshold with no
// missing required sources.
func (e *Engine) runValidator(ctx context.Context, state *DecisionState) StatePatch {
	required := e.cfg.Validation.RequiredDataSources
	if len(required) == 0 {
		required = []string{"sentiment", "onchain", "technical"}
	}

	checks := make(map[string]bool, len(required)+2)
	var gaps []string
	for _, source := range required {
		_, present := state.ResearchData[source]
		checks[source] = present
		if !present {
			gaps = append(gaps, source)
		}
	}
	checks["price"] = state.CurrentPrice > 0
	checks["summary"] = state.ResearchSummary != ""

	passedChecks := 0
	for _, ok := range checks {
		if ok {
			passedChecks++
		}
	}
	score := float64(passedChecks) / float64(len(checks))
	passed := score >= e.cfg.Validation.Threshold && len(gaps) == 0

	return StatePatch{
		ValidationScore:  ptr(score),
		ValidationPassed: ptr(passed),
		DataGaps:         gaps,
		ValidationChecks: checks,
		Messages: []Message{{
			Role:    "validator",
			Content: fmt.Sprintf("validation score %.2f, passed=%t, gaps=%v", score, passed, gaps),
		}},
	}
}

func (e *Engine) runBull(ctx context.Context, state *DecisionState) StatePatch {
	argument := e.generateArgument(ctx, state, "bull", "")
	return StatePatch{
		BullArgument: ptr(argument),
		Messages:     []Message{{Role: "bull", Content: argument}},
	}
}

func (e *Engine) runBear(ctx context.Context, state *DecisionState) StatePatch {
	argument := e.generateArgument(ctx, state, "bear", state.BullArgument)

	// The debate lean nudges the working sentiment
	debate := (extractSignal(state.BullArgument) + extractSignal(argument)) / 2
	blended := clampSignal(0.8*state.SentimentScore + 0.2*debate)

	return StatePatch{
		BearArgument:   ptr(argument),
		SentimentScore: ptr(blended),
		Messages:       []Message{{Role: "bear", Content: argument}},
	}
}

// generateArgument produces one side of the debate via the language model,
// falling back to a deterministic template
func (e *Engine) generateArgument(ctx context.Context, state *DecisionState, side, opposing string) string {
	if e.llm != nil {
		system := fmt.Sprintf("You are the %s-case analyst in a trading debate. Argue in under 100 words.", side)
		user := fmt.Sprintf("Symbol: %s\nPrice: %.2f\nSentiment: %.2f\nResearch: %s",
			state.Symbol, state.CurrentPrice, state.SentimentScore, state.ResearchSummary)
		if opposing != "" {
			user += "\nOpposing argument: " + opposing
		}
		if text, err := e.llm.Generate(ctx, system, user); err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
		e.log.Debug().Str("side", side).Msg("LLM argument unavailable, using template")
	}

	if side == "bull" {
		return fmt.Sprintf(
			"The case for %s: aggregate sentiment at %.2f with research showing %s "+
				"Momentum and accumulation favor upside from %.2f.",
			state.Symbol, state.SentimentScore, shorten(state.ResearchSummary), state.CurrentPrice)
	}
	return fmt.Sprintf(
		"The case against %s: sentiment of %.2f can reverse quickly and the research is not decisive. "+
			"Downside risk and resistance argue for caution at %.2f.",
		state.Symbol, state.SentimentScore, state.CurrentPrice)
}

func (e *Engine) runAnalyzer(ctx context.Context, state *DecisionState) StatePatch {
	snapshot := snapshotFromResearch(state)
	if snapshot == nil {
		candles, err := e.gateway.GetOHLCV(ctx, state.Symbol, "1h", 100, time.Time{})
		if err == nil {
			snapshot, err = e.indicators.Compute(candles)
		}
		if err != nil {
			text := "technical analysis unavailable: " + err.Error()
			return StatePatch{
				TechnicalAnalysis: ptr(text),
				TechnicalSignal:   ptr(0.0),
				Messages:          []Message{{Role: "analyzer", Content: text}},
				Err:               ptr(err.Error()),
			}
		}
	}

	signal := snapshot.SignalScore()
	text := describeSnapshot(snapshot)
	// Technical signal contributes to the working sentiment
	blended := clampSignal(0.7*state.SentimentScore + 0.3*signal)

	return StatePatch{
		TechnicalAnalysis: ptr(text),
		TechnicalSnapshot: snapshot,
		TechnicalSignal:   ptr(signal),
		SentimentScore:    ptr(blended),
		Messages:          []Message{{Role: "analyzer", Content: text}},
	}
}

func snapshotFromResearch(state *DecisionState) *indicators.Snapshot {
	result, ok := state.ResearchData["technical"]
	if !ok {
		return nil
	}
	snapshot, _ := result["snapshot"].(*indicators.Snapshot)
	return snapshot
}

func describeSnapshot(s *indicators.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "RSI %.1f, MACD %.4f (%s crossover), close %.2f vs SMA50 %.2f, ATR %.2f.",
		s.RSI, s.MACD.MACD, s.MACD.Crossover, s.Close, s.SMA50, s.ATR)
	if len(s.Patterns) > 0 {
		names := make([]string, len(s.Patterns))
		for i, p := range s.Patterns {
			names[i] = fmt.Sprintf("%s (%s)", p.Name, p.Signal)
		}
		fmt.Fprintf(&b, " Patterns: %s.", strings.Join(names, ", "))
	}
	return b.String()
}

func (e *Engine) runRisk(ctx context.Context, state *DecisionState) StatePatch {
	assessment := &RiskAssessment{Approved: true, PolicyCheck: "passed"}

	transcript := strings.ToLower(state.BullArgument + " " + state.BearArgument + " " + state.TechnicalAnalysis)
	for _, keyword := range redFlagKeywords {
		if strings.Contains(transcript, keyword) {
			assessment.RedFlags = append(assessment.RedFlags, keyword)
		}
	}
	if len(assessment.RedFlags) > 0 {
		assessment.Approved = false
		assessment.Reason = "red flags in agent output: " + strings.Join(assessment.RedFlags, ", ")
	}

	limits, ok := profileLimits[e.cfg.Engine.RiskProfile]
	if !ok {
		limits = profileLimits["balanced"]
	}
	assessment.MarketRisk = marketRiskLevel(state.TechnicalSnapshot)
	if assessment.MarketRisk == "high" && e.cfg.Engine.RiskProfile == "conservative" {
		assessment.Approved = false
		assessment.Reason = appendReason(assessment.Reason, "market volatility exceeds conservative profile")
	}

	if e.compliance != nil && assessment.Approved {
		proposed := adapters.TradeRequest{
			Symbol: state.Symbol,
			Action: proposedAction(state.SentimentScore),
			Size:   limits.maxPositionPct,
			Price:  state.CurrentPrice,
		}
		result, err := e.compliance.CheckCompliance(ctx, proposed, e.cfg.Engine.RiskProfile)
		if err != nil {
			e.log.Warn().Err(err).Msg("Compliance check unavailable")
			assessment.PolicyCheck = "unavailable"
		} else if !result.Compliant {
			assessment.Approved = false
			assessment.PolicyCheck = "failed"
			assessment.Reason = appendReason(assessment.Reason, result.Reason)
		}
	}

	content := fmt.Sprintf("approved=%t, market_risk=%s", assessment.Approved, assessment.MarketRisk)
	if assessment.Reason != "" {
		content += ", reason: " + assessment.Reason
	}
	return StatePatch{
		RiskAssessment: assessment,
		Messages:       []Message{{Role: "risk", Content: content}},
	}
}

func marketRiskLevel(snapshot *indicators.Snapshot) string {
	if snapshot == nil || snapshot.Close == 0 {
		return "unknown"
	}
	ratio := snapshot.ATR / snapshot.Close
	switch {
	case ratio > 0.05:
		return "high"
	case ratio > 0.02:
		return "medium"
	default:
		return "low"
	}
}

func proposedAction(sentiment float64) string {
	if sentiment < 0 {
		return ActionSell
	}
	return ActionBuy
}

func appendReason(existing, extra string) string {
	if extra == "" {
		return existing
	}
	if existing == "" {
		return extra
	}
	return existing + "; " + extra
}

func (e *Engine) runPrivacy(ctx context.Context, state *DecisionState) StatePatch {
	check := &ComplianceCheck{Approved: true}

	texts := make([]string, 0, len(state.Messages))
	for _, m := range state.Messages {
		texts = append(texts, m.Content)
	}

	if e.scanner != nil {
		for _, finding := range e.scanner.ScanAll(texts) {
			check.Findings = append(check.Findings, finding.Kind+"/"+finding.Pattern)
		}
	}
	if len(check.Findings) > 0 {
		check.Approved = false
		// The enforcer observes the same breach and may auto-pause
		e.safety.CheckPrivacyBreach(texts)
	}

	return StatePatch{
		ComplianceCheck: check,
		Messages: []Message{{
			Role:    "privacy",
			Content: fmt.Sprintf("approved=%t, findings=%d", check.Approved, len(check.Findings)),
		}},
	}
}

func (e *Engine) runOptimizer(ctx context.Context, state *DecisionState) StatePatch {
	signal := state.SentimentScore

	if e.optimizer != nil {
		portfolio := e.portfolio(ctx)
		result, err := e.optimizer.OptimizePortfolio(ctx, state.Symbol, signal, portfolio)
		if err == nil && result != nil {
			return StatePatch{
				Optimization: result,
				Confidence:   ptr(result.Confidence),
				Messages: []Message{{
					Role:    "optimizer",
					Content: fmt.Sprintf("%s size %.4f, confidence %.2f", result.Action, result.Size, result.Confidence),
				}},
			}
		}
		e.log.Warn().Err(err).Msg("Optimizer adapter failed, using half-Kelly fallback")
	}

	result := halfKelly(signal)
	return StatePatch{
		Optimization: result,
		Confidence:   ptr(result.Confidence),
		Messages: []Message{{
			Role:    "optimizer",
			Content: fmt.Sprintf("half-Kelly %s size %.4f, confidence %.2f", result.Action, result.Size, result.Confidence),
		}},
	}
}

// halfKelly sizes a position from the signal with an even-payoff Kelly
// fraction halved, capped at 10% of the portfolio
func halfKelly(signal float64) *adapters.OptimizationResult {
	winRate := 0.5 + 0.2*signal
	if winRate < 0.3 {
		winRate = 0.3
	}
	if winRate > 0.7 {
		winRate = 0.7
	}

	kelly := 2*winRate - 1
	size := kelly / 2
	if size < 0 {
		size = -size
	}
	if size > maxKellySize {
		size = maxKellySize
	}

	action := ActionHold
	switch {
	case signal > 0.3:
		action = ActionBuy
	case signal < -0.3:
		action = ActionSell
	}

	confidence := 0.5 + 0.45*absFloat(signal)
	if confidence > 1 {
		confidence = 1
	}
	return &adapters.OptimizationResult{Action: action, Size: size, Confidence: confidence}
}

func (e *Engine) portfolio(ctx context.Context) *adapters.Portfolio {
	if e.execution == nil {
		return nil
	}
	portfolio, err := e.execution.GetPortfolio(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("Portfolio unavailable")
		return nil
	}
	return portfolio
}

// runDecide synthesizes the tick outcome. It charges one iteration while
// under budget; the final decision is persisted only when routing ends the
// tick, so the write-once invariant holds across refinement loops.
func (e *Engine) runDecide(ctx context.Context, state *DecisionState) StatePatch {
	decision := e.synthesize(state)

	var patch StatePatch
	// The iteration counter never exceeds the budget
	if state.Iteration < state.MaxIterations {
		patch.IterationDelta = 1
	}

	// Evaluate continuation on the prospective state
	prospective := *state
	prospective.Iteration += patch.IterationDelta
	if decision.final || shouldContinue(&prospective) == routeEnd {
		patch.FinalDecision = decision.Decision
	}

	patch.Messages = []Message{{
		Role: "decision",
		Content: fmt.Sprintf("%s (size %.4f, confidence %.2f): %s",
			decision.Action, decision.Size, decision.Confidence, decision.Reason),
	}}
	return patch
}

type synthesizedDecision struct {
	*Decision
	final bool // forces the tick to end regardless of routing
}

func (e *Engine) synthesize(state *DecisionState) synthesizedDecision {
	if e.safety.Paused() {
		return synthesizedDecision{
			Decision: &Decision{
				Action:     ActionHold,
				Confidence: 0,
				Reason:     "safety pause active: " + e.safety.PauseReason(),
			},
			final: true,
		}
	}

	if state.CurrentPrice == 0 {
		return synthesizedDecision{
			Decision: &Decision{Action: ActionHold, Confidence: 0, Reason: "missing market data"},
			final:    true,
		}
	}

	if (state.RiskAssessment != nil && !state.RiskAssessment.Approved) ||
		(state.ComplianceCheck != nil && !state.ComplianceCheck.Approved) {
		return synthesizedDecision{
			Decision: &Decision{Action: ActionHold, Confidence: 0, Reason: "Failed risk or compliance check"},
			final:    true,
		}
	}

	sentiment := state.SentimentScore
	confidence := state.Confidence
	size := 0.0
	if state.Optimization != nil {
		size = state.Optimization.Size
	}

	switch {
	case sentiment > 0.3 && confidence > 0.6:
		return synthesizedDecision{Decision: &Decision{
			Action:     ActionBuy,
			Size:       size,
			Confidence: confidence,
			Reason:     fmt.Sprintf("sentiment %.2f with confidence %.2f supports entry", sentiment, confidence),
		}}
	case sentiment < -0.3 && confidence > 0.6:
		return synthesizedDecision{Decision: &Decision{
			Action:     ActionSell,
			Size:       size,
			Confidence: confidence,
			Reason:     fmt.Sprintf("sentiment %.2f with confidence %.2f supports exit", sentiment, confidence),
		}}
	default:
		return synthesizedDecision{Decision: &Decision{
			Action:     ActionHold,
			Confidence: confidence,
			Reason:     fmt.Sprintf("no conviction: sentiment %.2f, confidence %.2f", sentiment, confidence),
		}}
	}
}

func shorten(s string) string {
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
