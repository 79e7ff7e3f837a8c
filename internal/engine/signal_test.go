package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSignalExplicitMarkers(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"score on unit scale", "Overall Score: 0.7 based on momentum", 0.7},
		{"negative score", "Score: -0.4 given the weak volume", -0.4},
		{"score on ten scale", "Score: 8 overall", 0.8},
		{"confidence percent", "Confidence: 75% in this setup", 0.5},
		{"rating out of ten", "Rating: 9", 0.8},
		{"x out of 10", "I give it 7/10 overall", 0.4},
		{"spelled out of ten", "This setup is 3 out of 10", -0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, extractSignal(tt.text), 1e-9)
		})
	}
}

func TestExtractSignalLexicon(t *testing.T) {
	positive := extractSignal("Strong bullish momentum with clear upside")
	assert.Greater(t, positive, 0.0)

	negative := extractSignal("Bearish breakdown with severe downside ahead")
	assert.Less(t, negative, 0.0)

	neutral := extractSignal("The market closed at the same level today")
	assert.Zero(t, neutral)
}

func TestExtractSignalNegation(t *testing.T) {
	plain := extractSignal("This chart is bullish")
	negated := extractSignal("This chart is not bullish")

	assert.Greater(t, plain, 0.0)
	assert.Less(t, negated, 0.0)
}

func TestExtractSignalClamped(t *testing.T) {
	assert.Equal(t, 1.0, extractSignal("Score: 15"))
	assert.Equal(t, -1.0, extractSignal("Score: -12"))
	assert.Zero(t, extractSignal(""))
}
