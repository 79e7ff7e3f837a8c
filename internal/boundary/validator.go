// Package boundary audits backtest data flows for look-ahead bias. It is an
// off-path validator: the temporal gateway blocks future reads at call time,
// this package proves after the fact that nothing slipped through and that
// the input data itself respects the declared run horizon.
package boundary

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/I-Onlabs/sigmax/internal/adapters"
	"github.com/I-Onlabs/sigmax/internal/config"
	"github.com/I-Onlabs/sigmax/internal/temporal"
)

// ViolationType classifies a detected look-ahead problem
type ViolationType string

const (
	ViolationFuturePrice        ViolationType = "FUTURE_PRICE"
	ViolationFutureNews         ViolationType = "FUTURE_NEWS"
	ViolationFutureFinancials   ViolationType = "FUTURE_FINANCIALS"
	ViolationLookaheadIndicator ViolationType = "LOOKAHEAD_INDICATOR"
	ViolationSurvivorshipBias   ViolationType = "SURVIVORSHIP_BIAS"
)

// Severity grades a violation
type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Violation is one detected look-ahead problem
type Violation struct {
	Type           ViolationType `json:"type"`
	Severity       Severity      `json:"severity"`
	Symbol         string        `json:"symbol,omitempty"`
	DataTimestamp  time.Time     `json:"data_timestamp,omitempty"`
	SimulationTime time.Time     `json:"simulation_time,omitempty"`
	Detail         string        `json:"detail"`
}

// Result is the outcome of a validation run
type Result struct {
	Passed          bool        `json:"passed"`
	TotalChecks     int         `json:"total_checks"`
	Violations      []Violation `json:"violations"`
	Warnings        []string    `json:"warnings"`
	Recommendations []string    `json:"recommendations"`
}

// LookAheadBiasError aborts a strict-mode run whose input data already
// contains future candles.
type LookAheadBiasError struct {
	Violations []Violation
}

func (e *LookAheadBiasError) Error() string {
	return fmt.Sprintf("look-ahead bias detected before run start: %d violation(s)", len(e.Violations))
}

// Validator accumulates checks over a backtest run
type Validator struct {
	strict     bool
	delistings map[string]time.Time
	flagged    map[string]bool // one LOOKAHEAD_INDICATOR per (name, lookback)
	violations []Violation
	checks     int
	log        zerolog.Logger
}

// NewValidator creates a boundary validator. In strict mode pre-run data
// violations abort via LookAheadBiasError.
func NewValidator(strict bool) *Validator {
	return &Validator{
		strict:     strict,
		delistings: make(map[string]time.Time),
		flagged:    make(map[string]bool),
		log:        config.NewLogger("boundary_validator"),
	}
}

// RegisterDelisting declares that symbol was delisted at the given date.
// Queries past that date are survivorship bias.
func (v *Validator) RegisterDelisting(symbol string, date time.Time) {
	v.delistings[symbol] = date
}

// CheckAccessRecords audits gateway access records for future reads and
// survivorship bias
func (v *Validator) CheckAccessRecords(records []temporal.AccessRecord) {
	for _, record := range records {
		v.checks++

		if record.RequestedTime.After(record.SimulationTime) {
			v.addViolation(Violation{
				Type:           futureViolationType(record.DataType),
				Severity:       SeverityCritical,
				Symbol:         record.Symbol,
				DataTimestamp:  record.RequestedTime,
				SimulationTime: record.SimulationTime,
				Detail: fmt.Sprintf("%s access at %s past simulation time %s",
					record.DataType,
					record.RequestedTime.Format(time.RFC3339),
					record.SimulationTime.Format(time.RFC3339)),
			})
		}

		if delisted, ok := v.delistings[record.Symbol]; ok && record.SimulationTime.After(delisted) {
			v.addViolation(Violation{
				Type:           ViolationSurvivorshipBias,
				Severity:       SeverityWarning,
				Symbol:         record.Symbol,
				DataTimestamp:  delisted,
				SimulationTime: record.SimulationTime,
				Detail: fmt.Sprintf("%s queried at %s after its delisting on %s",
					record.Symbol,
					record.SimulationTime.Format(time.RFC3339),
					delisted.Format(time.RFC3339)),
			})
		}
	}
}

// futureViolationType maps an access data type to its violation kind
func futureViolationType(dataType temporal.DataType) ViolationType {
	switch dataType {
	case temporal.DataTypeNews, temporal.DataTypeSocial:
		return ViolationFutureNews
	case temporal.DataTypeFinancials:
		return ViolationFutureFinancials
	default:
		return ViolationFuturePrice
	}
}

// CheckIndicatorUsage flags an indicator asked to read past the end of its
// data. Each (name, lookback) pair is flagged once.
func (v *Validator) CheckIndicatorUsage(name string, lookback, currentIndex, dataLength int) {
	v.checks++
	if currentIndex+lookback <= dataLength {
		return
	}

	key := fmt.Sprintf("%s/%d", name, lookback)
	if v.flagged[key] {
		return
	}
	v.flagged[key] = true

	v.addViolation(Violation{
		Type:     ViolationLookaheadIndicator,
		Severity: SeverityWarning,
		Detail: fmt.Sprintf("indicator %s with lookback %d reads past data end (index %d of %d)",
			name, lookback, currentIndex, dataLength),
	})
}

// PreValidateOHLCV checks input candles against the declared run horizon
// before any strategy code executes. In strict mode a future candle aborts
// the run with LookAheadBiasError.
func (v *Validator) PreValidateOHLCV(symbol string, candles []adapters.Candle, horizon time.Time) error {
	v.checks++

	var maxTS time.Time
	for _, c := range candles {
		if c.Timestamp.After(maxTS) {
			maxTS = c.Timestamp
		}
	}
	if !maxTS.After(horizon) {
		return nil
	}

	violation := Violation{
		Type:           ViolationFuturePrice,
		Severity:       SeverityCritical,
		Symbol:         symbol,
		DataTimestamp:  maxTS,
		SimulationTime: horizon,
		Detail: fmt.Sprintf("input candle at %s past run horizon %s",
			maxTS.Format(time.RFC3339), horizon.Format(time.RFC3339)),
	}
	v.addViolation(violation)

	if v.strict {
		return &LookAheadBiasError{Violations: []Violation{violation}}
	}
	return nil
}

func (v *Validator) addViolation(violation Violation) {
	v.violations = append(v.violations, violation)
	v.log.Warn().
		Str("type", string(violation.Type)).
		Str("severity", string(violation.Severity)).
		Str("symbol", violation.Symbol).
		Str("detail", violation.Detail).
		Msg("Boundary violation detected")
}

// Result produces the validation verdict. Passed means no critical
// violations; warnings and recommendations are derived from what was found.
func (v *Validator) Result() Result {
	result := Result{
		Passed:      true,
		TotalChecks: v.checks,
		Violations:  append([]Violation(nil), v.violations...),
	}

	typesPresent := make(map[ViolationType]bool)
	for _, violation := range v.violations {
		typesPresent[violation.Type] = true
		if violation.Severity == SeverityCritical {
			result.Passed = false
		} else {
			result.Warnings = append(result.Warnings, violation.Detail)
		}
	}

	result.Recommendations = recommendations(typesPresent)
	return result
}

// recommendationOrder fixes the output order so reports are deterministic
var recommendationOrder = []ViolationType{
	ViolationFuturePrice,
	ViolationFutureNews,
	ViolationFutureFinancials,
	ViolationLookaheadIndicator,
	ViolationSurvivorshipBias,
}

var recommendationText = map[ViolationType]string{
	ViolationFuturePrice:        "Route all price and OHLCV reads through the temporal gateway with as_of pinned to the simulation clock",
	ViolationFutureNews:         "Filter news and social items by published_at against the simulation clock before use",
	ViolationFutureFinancials:   "Only consume financial reports whose released_at precedes the simulation clock",
	ViolationLookaheadIndicator: "Reduce indicator lookback periods or extend the input series so no window reads past the data end",
	ViolationSurvivorshipBias:   "Exclude delisted symbols from the universe after their delisting date",
}

func recommendations(present map[ViolationType]bool) []string {
	var out []string
	for _, t := range recommendationOrder {
		if present[t] {
			out = append(out, recommendationText[t])
		}
	}
	return out
}

// FormatReport renders a result for humans
func FormatReport(result Result) string {
	var b strings.Builder

	status := "PASSED"
	if !result.Passed {
		status = "FAILED"
	}
	fmt.Fprintf(&b, "Boundary validation %s: %d checks, %d violation(s)\n",
		status, result.TotalChecks, len(result.Violations))

	byType := make(map[ViolationType]int)
	for _, violation := range result.Violations {
		byType[violation.Type]++
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(&b, "  %s: %d\n", t, byType[ViolationType(t)])
	}

	if len(result.Recommendations) > 0 {
		b.WriteString("Recommendations:\n")
		for _, rec := range result.Recommendations {
			fmt.Fprintf(&b, "  - %s\n", rec)
		}
	}
	return b.String()
}
