// Package engine runs the per-tick decision pipeline: a fixed graph of agent
// nodes (research, validation, debate, technical analysis, risk, privacy,
// optimization, synthesis) interpreted by a small runner with conditional
// routing. Each tick owns one DecisionState; nodes communicate through typed
// state patches.
package engine

import (
	"time"

	"github.com/I-Onlabs/sigmax/internal/adapters"
	"github.com/I-Onlabs/sigmax/internal/indicators"
	"github.com/I-Onlabs/sigmax/internal/research"
)

// Decision actions
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
	ActionHold = "hold"
)

// Message is one agent utterance in the tick transcript
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Decision is the synthesized output of a tick
type Decision struct {
	Action     string  `json:"action"`
	Size       float64 `json:"size"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// RiskAssessment is the risk node's verdict
type RiskAssessment struct {
	Approved    bool     `json:"approved"`
	Reason      string   `json:"reason"`
	PolicyCheck string   `json:"policy_check"`
	MarketRisk  string   `json:"market_risk"`
	RedFlags    []string `json:"red_flags,omitempty"`
}

// ComplianceCheck is the privacy node's verdict
type ComplianceCheck struct {
	Approved bool     `json:"approved"`
	Findings []string `json:"findings,omitempty"`
}

// DecisionState is the shared state of one in-flight tick. The runner owns
// it exclusively; nodes read it and return patches.
type DecisionState struct {
	Symbol       string               `json:"symbol"`
	CurrentPrice float64              `json:"current_price"`
	MarketData   *adapters.MarketData `json:"market_data,omitempty"`

	ResearchSummary string                    `json:"research_summary"`
	ResearchData    map[string]map[string]any `json:"research_data,omitempty"`
	SentimentScore  float64                   `json:"sentiment_score"`

	BullArgument      string               `json:"bull_argument"`
	BearArgument      string               `json:"bear_argument"`
	TechnicalAnalysis string               `json:"technical_analysis"`
	TechnicalSnapshot *indicators.Snapshot `json:"technical_snapshot,omitempty"`
	TechnicalSignal   float64              `json:"technical_signal"`

	RiskAssessment  *RiskAssessment  `json:"risk_assessment,omitempty"`
	ComplianceCheck *ComplianceCheck `json:"compliance_check,omitempty"`

	ValidationScore  float64         `json:"validation_score"`
	ValidationPassed bool            `json:"validation_passed"`
	DataGaps         []string        `json:"data_gaps,omitempty"`
	ValidationChecks map[string]bool `json:"validation_checks,omitempty"`

	Confidence    float64                      `json:"confidence"`
	Optimization  *adapters.OptimizationResult `json:"optimization,omitempty"`
	FinalDecision *Decision                    `json:"final_decision,omitempty"`

	Iteration     int `json:"iteration"`
	MaxIterations int `json:"max_iterations"`

	PlannedTasks     []*research.Task          `json:"planned_tasks,omitempty"`
	CompletedTaskIDs []string                  `json:"completed_task_ids,omitempty"`
	TaskResults      map[string]map[string]any `json:"task_results,omitempty"`

	Messages []Message `json:"messages"`

	Err string `json:"error,omitempty"`

	StartedAt time.Time `json:"started_at"`
}

// StatePatch is one node's partial state update. Nil pointer fields leave
// the state untouched; Messages are always appended; maps and slices replace
// the previous value as a whole.
type StatePatch struct {
	CurrentPrice *float64
	MarketData   *adapters.MarketData

	ResearchSummary *string
	ResearchData    map[string]map[string]any
	SentimentScore  *float64

	BullArgument      *string
	BearArgument      *string
	TechnicalAnalysis *string
	TechnicalSnapshot *indicators.Snapshot
	TechnicalSignal   *float64

	RiskAssessment  *RiskAssessment
	ComplianceCheck *ComplianceCheck

	ValidationScore  *float64
	ValidationPassed *bool
	DataGaps         []string
	ValidationChecks map[string]bool

	Confidence    *float64
	Optimization  *adapters.OptimizationResult
	FinalDecision *Decision

	IterationDelta int

	PlannedTasks     []*research.Task
	CompletedTaskIDs []string
	TaskResults      map[string]map[string]any

	Messages []Message

	Err *string
}

// apply merges a patch into the state. The final decision is write-once and
// the iteration counter only moves forward.
func (s *DecisionState) apply(p StatePatch) {
	if p.CurrentPrice != nil {
		s.CurrentPrice = *p.CurrentPrice
	}
	if p.MarketData != nil {
		s.MarketData = p.MarketData
	}
	if p.ResearchSummary != nil {
		s.ResearchSummary = *p.ResearchSummary
	}
	if p.ResearchData != nil {
		s.ResearchData = p.ResearchData
	}
	if p.SentimentScore != nil {
		s.SentimentScore = *p.SentimentScore
	}
	if p.BullArgument != nil {
		s.BullArgument = *p.BullArgument
	}
	if p.BearArgument != nil {
		s.BearArgument = *p.BearArgument
	}
	if p.TechnicalAnalysis != nil {
		s.TechnicalAnalysis = *p.TechnicalAnalysis
	}
	if p.TechnicalSnapshot != nil {
		s.TechnicalSnapshot = p.TechnicalSnapshot
	}
	if p.TechnicalSignal != nil {
		s.TechnicalSignal = *p.TechnicalSignal
	}
	if p.RiskAssessment != nil {
		s.RiskAssessment = p.RiskAssessment
	}
	if p.ComplianceCheck != nil {
		s.ComplianceCheck = p.ComplianceCheck
	}
	if p.ValidationScore != nil {
		s.ValidationScore = *p.ValidationScore
	}
	if p.ValidationPassed != nil {
		s.ValidationPassed = *p.ValidationPassed
	}
	if p.DataGaps != nil {
		s.DataGaps = p.DataGaps
	}
	if p.ValidationChecks != nil {
		s.ValidationChecks = p.ValidationChecks
	}
	if p.Confidence != nil {
		s.Confidence = *p.Confidence
	}
	if p.Optimization != nil {
		s.Optimization = p.Optimization
	}
	if p.FinalDecision != nil && s.FinalDecision == nil {
		s.FinalDecision = p.FinalDecision
	}
	if p.IterationDelta > 0 {
		s.Iteration += p.IterationDelta
	}
	if p.PlannedTasks != nil {
		s.PlannedTasks = p.PlannedTasks
	}
	if p.CompletedTaskIDs != nil {
		s.CompletedTaskIDs = p.CompletedTaskIDs
	}
	if p.TaskResults != nil {
		s.TaskResults = p.TaskResults
	}
	s.Messages = append(s.Messages, p.Messages...)
	if p.Err != nil {
		s.Err = *p.Err
	}
}

func ptr[T any](v T) *T { return &v }
