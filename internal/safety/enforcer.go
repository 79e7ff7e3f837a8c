// Package safety enforces bounded-loss invariants over the stream of trading
// events. Any critical trigger pauses the system; the decision pipeline reads
// the paused flag and overrides its output to hold. The enforcer never
// rewinds in-flight work.
package safety

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/I-Onlabs/sigmax/internal/config"
	"github.com/I-Onlabs/sigmax/internal/privacy"
)

// Violation severities
const (
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

// Trigger names
const (
	TriggerConsecutiveLosses = "consecutive_losses"
	TriggerAPIErrorBurst     = "api_error_burst"
	TriggerSentimentDrop     = "sentiment_drop"
	TriggerHighSlippage      = "high_slippage"
	TriggerDailyLossLimit    = "daily_loss_limit"
	TriggerPrivacyBreach     = "privacy_breach"
)

// History ring capacities
const (
	tradeHistorySize     = 100
	apiErrorHistorySize  = 100
	violationHistorySize = 200
)

// apiErrorWindow bounds the burst count
const apiErrorWindow = 60 * time.Second

// TradeResult is one completed trade outcome
type TradeResult struct {
	Success   bool      `json:"success"`
	PnL       float64   `json:"pnl"`
	Slippage  float64   `json:"slippage"`
	Timestamp time.Time `json:"timestamp"`
}

// Violation is one tripped safety rule
type Violation struct {
	Trigger   string    `json:"trigger"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
	AutoPause bool      `json:"auto_pause"`
}

type apiError struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// State is a copy-on-read snapshot of the enforcer
type State struct {
	Paused            bool          `json:"paused"`
	PauseReason       string        `json:"pause_reason,omitempty"`
	ConsecutiveLosses int           `json:"consecutive_losses"`
	DailyPnL          float64       `json:"daily_pnl"`
	RecentTrades      []TradeResult `json:"recent_trades"`
	RecentAPIErrors   []apiError    `json:"recent_api_errors"`
	Violations        []Violation   `json:"violations"`
}

// Enforcer accumulates safety events under a single lock. All mutation goes
// through the enforcer; readers take snapshots.
type Enforcer struct {
	mu  sync.Mutex
	cfg config.SafetyConfig

	trades     *ring[TradeResult]
	apiErrors  *ring[apiError]
	violations *ring[Violation]

	consecutiveLosses int
	dailyPnL          float64
	dailyDate         string

	paused        bool
	pauseReason   string
	lastViolation time.Time
	onPause       func(reason string)

	scanner *privacy.Scanner
	now     func() time.Time
	log     zerolog.Logger
	metrics *safetyMetrics
}

// NewEnforcer creates an enforcer. The privacy scanner is optional; without
// it CheckPrivacyBreach is a no-op.
func NewEnforcer(cfg config.SafetyConfig, scanner *privacy.Scanner) *Enforcer {
	return &Enforcer{
		cfg:        cfg,
		trades:     newRing[TradeResult](tradeHistorySize),
		apiErrors:  newRing[apiError](apiErrorHistorySize),
		violations: newRing[Violation](violationHistorySize),
		scanner:    scanner,
		now:        time.Now,
		log:        config.NewLogger("safety"),
		metrics:    getSafetyMetrics(),
	}
}

// SetOnPause registers a hook invoked on each transition into the paused
// state caused by a trigger. The hook runs synchronously under the enforcer
// lock and must not call back into the enforcer. Manual Pause does not fire
// it.
func (e *Enforcer) SetOnPause(fn func(reason string)) {
	e.mu.Lock()
	e.onPause = fn
	e.mu.Unlock()
}

// RecordTradeResult folds one trade outcome into the counters and fires the
// consecutive-loss and daily-loss rules. The consecutive-loss counter resets
// on any trade with pnl >= 0.
func (e *Enforcer) RecordTradeResult(result TradeResult) *Violation {
	e.mu.Lock()
	defer e.mu.Unlock()

	if result.Timestamp.IsZero() {
		result.Timestamp = e.now().UTC()
	}
	e.trades.append(result)
	e.rollDailyWindow(result.Timestamp)
	e.dailyPnL += result.PnL

	if result.PnL < 0 {
		e.consecutiveLosses++
	} else {
		e.consecutiveLosses = 0
	}

	if e.consecutiveLosses >= e.cfg.MaxConsecutiveLosses {
		return e.trip(TriggerConsecutiveLosses, SeverityCritical, true,
			fmt.Sprintf("%d consecutive losing trades (limit %d)", e.consecutiveLosses, e.cfg.MaxConsecutiveLosses))
	}
	if e.dailyPnL < -e.cfg.MaxDailyLoss {
		return e.trip(TriggerDailyLossLimit, SeverityCritical, true,
			fmt.Sprintf("daily pnl %.2f breached limit -%.2f", e.dailyPnL, e.cfg.MaxDailyLoss))
	}
	return nil
}

// RecordAPIError appends an error and fires the burst rule when more than
// the configured count land inside the 60 second window
func (e *Enforcer) RecordAPIError(message string) *Violation {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now().UTC()
	e.apiErrors.append(apiError{Message: message, Timestamp: now})

	cutoff := now.Add(-apiErrorWindow)
	recent := 0
	for _, err := range e.apiErrors.items() {
		if err.Timestamp.After(cutoff) {
			recent++
		}
	}

	if recent > e.cfg.MaxAPIErrorsPerMin {
		return e.trip(TriggerAPIErrorBurst, SeverityCritical, true,
			fmt.Sprintf("%d API errors in the last %s (limit %d)", recent, apiErrorWindow, e.cfg.MaxAPIErrorsPerMin))
	}
	return nil
}

// CheckSentimentDrop fires when sentiment falls below the configured floor
func (e *Enforcer) CheckSentimentDrop(sentiment float64) *Violation {
	e.mu.Lock()
	defer e.mu.Unlock()

	if sentiment < e.cfg.MinSentiment {
		return e.trip(TriggerSentimentDrop, SeverityWarning, true,
			fmt.Sprintf("sentiment %.2f below floor %.2f", sentiment, e.cfg.MinSentiment))
	}
	return nil
}

// CheckMEVAttack fires when realized price deviates from the expected price
// by more than the slippage tolerance
func (e *Enforcer) CheckMEVAttack(expected, actual float64) *Violation {
	e.mu.Lock()
	defer e.mu.Unlock()

	if expected == 0 {
		return nil
	}
	deviation := (actual - expected) / expected
	if deviation < 0 {
		deviation = -deviation
	}
	if deviation > e.cfg.MaxSlippagePct {
		return e.trip(TriggerHighSlippage, SeverityCritical, true,
			fmt.Sprintf("slippage %.4f exceeds tolerance %.4f (expected %.2f, got %.2f)",
				deviation, e.cfg.MaxSlippagePct, expected, actual))
	}
	return nil
}

// CheckDailyLossLimit fires when the supplied cumulative daily pnl breaches
// the configured loss limit
func (e *Enforcer) CheckDailyLossLimit(dailyPnL float64) *Violation {
	e.mu.Lock()
	defer e.mu.Unlock()

	if dailyPnL < -e.cfg.MaxDailyLoss {
		return e.trip(TriggerDailyLossLimit, SeverityCritical, true,
			fmt.Sprintf("daily pnl %.2f breached limit -%.2f", dailyPnL, e.cfg.MaxDailyLoss))
	}
	return nil
}

// CheckPrivacyBreach scans agent messages for PII and collusion language
func (e *Enforcer) CheckPrivacyBreach(messages []string) *Violation {
	if e.scanner == nil {
		return nil
	}
	findings := e.scanner.ScanAll(messages)
	if len(findings) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.trip(TriggerPrivacyBreach, SeverityCritical, true,
		fmt.Sprintf("%d privacy findings, first: %s/%s", len(findings), findings[0].Kind, findings[0].Pattern))
}

// trip records a violation and applies auto-pause. Callers hold the lock.
func (e *Enforcer) trip(trigger, severity string, autoPause bool, message string) *Violation {
	v := Violation{
		Trigger:   trigger,
		Message:   message,
		Severity:  severity,
		Timestamp: e.now().UTC(),
		AutoPause: autoPause,
	}
	e.violations.append(v)
	e.lastViolation = v.Timestamp
	e.metrics.violations.WithLabelValues(trigger, severity).Inc()

	if autoPause && !e.paused {
		e.paused = true
		e.pauseReason = fmt.Sprintf("%s: %s", trigger, message)
		e.metrics.paused.Set(1)
		if e.onPause != nil {
			e.onPause(e.pauseReason)
		}
	}

	e.log.Warn().
		Str("trigger", trigger).
		Str("severity", severity).
		Bool("auto_pause", autoPause).
		Msg(message)

	return &v
}

// Paused reports whether the system is paused
func (e *Enforcer) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// PauseReason returns the reason for the current pause, if any
func (e *Enforcer) PauseReason() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pauseReason
}

// Pause pauses the system manually
func (e *Enforcer) Pause(reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.paused = true
	e.pauseReason = reason
	e.metrics.paused.Set(1)
	e.log.Warn().Str("reason", reason).Msg("System paused")
}

// Resume clears the paused state. Without force it refuses while any
// violation occurred inside the lockout window.
func (e *Enforcer) Resume(force bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.paused {
		return nil
	}

	lockout := e.cfg.ResumeLockout
	if lockout <= 0 {
		lockout = 30 * time.Minute
	}
	if !force && !e.lastViolation.IsZero() {
		since := e.now().UTC().Sub(e.lastViolation)
		if since < lockout {
			return fmt.Errorf("cannot resume: violation %s ago, lockout is %s (use force to override)",
				since.Round(time.Second), lockout)
		}
	}

	e.paused = false
	e.pauseReason = ""
	e.metrics.paused.Set(0)
	e.log.Info().Bool("force", force).Msg("System resumed")
	return nil
}

// Snapshot returns a copy of the enforcer state
func (e *Enforcer) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return State{
		Paused:            e.paused,
		PauseReason:       e.pauseReason,
		ConsecutiveLosses: e.consecutiveLosses,
		DailyPnL:          e.dailyPnL,
		RecentTrades:      e.trades.items(),
		RecentAPIErrors:   e.apiErrors.items(),
		Violations:        e.violations.items(),
	}
}

// rollDailyWindow resets the daily pnl accumulator when the UTC date changes.
// Callers hold the lock.
func (e *Enforcer) rollDailyWindow(t time.Time) {
	day := t.UTC().Format("2006-01-02")
	if day != e.dailyDate {
		e.dailyDate = day
		e.dailyPnL = 0
	}
}
