package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationRouter(t *testing.T) {
	tests := []struct {
		name  string
		state DecisionState
		want  string
	}{
		{
			"passed proceeds",
			DecisionState{ValidationPassed: true, MaxIterations: 3},
			routeProceed,
		},
		{
			"gaps trigger re-research",
			DecisionState{ValidationPassed: false, DataGaps: []string{"news"}, Iteration: 0, MaxIterations: 3},
			routeReResearch,
		},
		{
			"budget exhausted proceeds regardless",
			DecisionState{ValidationPassed: false, DataGaps: []string{"news"}, Iteration: 3, MaxIterations: 3},
			routeProceed,
		},
		{
			"failed without gaps proceeds",
			DecisionState{ValidationPassed: false, MaxIterations: 3},
			routeProceed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validationRouter(&tt.state))
		})
	}
}

func TestShouldContinue(t *testing.T) {
	tests := []struct {
		name  string
		state DecisionState
		want  string
	}{
		{
			"budget exhausted ends",
			DecisionState{Iteration: 3, MaxIterations: 3, Confidence: 0.2},
			routeEnd,
		},
		{
			"high confidence and validation ends",
			DecisionState{Iteration: 1, MaxIterations: 3, Confidence: 0.9, ValidationScore: 0.85},
			routeEnd,
		},
		{
			"low confidence iterates",
			DecisionState{Iteration: 1, MaxIterations: 3, Confidence: 0.4, ValidationScore: 0.9},
			routeIterate,
		},
		{
			"weak validation refines research",
			DecisionState{Iteration: 1, MaxIterations: 3, Confidence: 0.7, ValidationScore: 0.5},
			routeRefineResearch,
		},
		{
			"solid middle ground ends",
			DecisionState{Iteration: 1, MaxIterations: 3, Confidence: 0.7, ValidationScore: 0.7},
			routeEnd,
		},
		{
			"final decision always ends",
			DecisionState{Iteration: 0, MaxIterations: 3, Confidence: 0.1, FinalDecision: &Decision{Action: ActionHold}},
			routeEnd,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldContinue(&tt.state))
		})
	}
}

func TestStatePatchDiscipline(t *testing.T) {
	state := &DecisionState{MaxIterations: 3}

	state.apply(StatePatch{
		Messages:       []Message{{Role: "researcher", Content: "first"}},
		SentimentScore: ptr(0.5),
		IterationDelta: 1,
	})
	state.apply(StatePatch{
		Messages: []Message{{Role: "validator", Content: "second"}},
	})

	// Messages are append-only
	assert.Len(t, state.Messages, 2)
	assert.Equal(t, "first", state.Messages[0].Content)
	assert.Equal(t, 0.5, state.SentimentScore)
	assert.Equal(t, 1, state.Iteration)
}

func TestFinalDecisionWriteOnce(t *testing.T) {
	state := &DecisionState{}

	state.apply(StatePatch{FinalDecision: &Decision{Action: ActionBuy, Confidence: 0.8}})
	state.apply(StatePatch{FinalDecision: &Decision{Action: ActionSell, Confidence: 0.9}})

	assert.Equal(t, ActionBuy, state.FinalDecision.Action)
}

func TestIterationNeverDecreases(t *testing.T) {
	state := &DecisionState{Iteration: 2}
	state.apply(StatePatch{IterationDelta: 0})
	state.apply(StatePatch{IterationDelta: -5})
	assert.Equal(t, 2, state.Iteration)
}
