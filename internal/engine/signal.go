package engine

import (
	"regexp"
	"strconv"
	"strings"
)

// Explicit score markers checked before any lexicon voting
var (
	scorePattern      = regexp.MustCompile(`(?i)\bscore[:\s]+(-?\d+(?:\.\d+)?)`)
	confidencePattern = regexp.MustCompile(`(?i)\bconfidence[:\s]+(\d+(?:\.\d+)?)\s*%`)
	ratingPattern     = regexp.MustCompile(`(?i)\brating[:\s]+(\d+(?:\.\d+)?)`)
	outOfTenPattern   = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:/|out of)\s*10\b`)
)

var positiveWords = map[string]bool{
	"bullish": true, "growth": true, "strong": true, "upside": true,
	"breakout": true, "momentum": true, "accumulation": true, "support": true,
	"positive": true, "opportunity": true, "rally": true, "undervalued": true,
	"adoption": true, "upgrade": true,
}

var negativeWords = map[string]bool{
	"bearish": true, "decline": true, "weak": true, "downside": true,
	"breakdown": true, "resistance": true, "distribution": true, "risk": true,
	"negative": true, "overbought": true, "selloff": true, "overvalued": true,
	"crash": true, "dump": true,
}

// strongWords double a sentence's vote
var strongWords = map[string]bool{
	"very": true, "extremely": true, "significantly": true, "strongly": true,
	"massive": true, "severe": true,
}

var negationWords = map[string]bool{
	"not": true, "no": true, "never": true, "without": true, "lacks": true,
}

// extractSignal derives a sentiment in [-1, 1] from argument text. Explicit
// numeric markers win; otherwise sentences vote by polarity lexicon with
// in-sentence negation flipping the vote.
func extractSignal(text string) float64 {
	if v, ok := explicitScore(text); ok {
		return clampSignal(v)
	}
	return clampSignal(lexiconScore(text))
}

func explicitScore(text string) (float64, bool) {
	if m := scorePattern.FindStringSubmatch(text); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			// Scores given on a 10 scale are normalized down
			if v > 1 || v < -1 {
				v /= 10
			}
			return v, true
		}
	}
	if m := confidencePattern.FindStringSubmatch(text); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			// A percentage is a magnitude; map 0..100 onto -1..1
			return v/50 - 1, true
		}
	}
	if m := outOfTenPattern.FindStringSubmatch(text); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			// 5/10 is neutral
			return (v - 5) / 5, true
		}
	}
	if m := ratingPattern.FindStringSubmatch(text); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return (v - 5) / 5, true
		}
	}
	return 0, false
}

func lexiconScore(text string) float64 {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return 0
	}

	total := 0.0
	for _, sentence := range sentences {
		words := strings.Fields(strings.ToLower(sentence))

		vote := 0.0
		negated := false
		strong := false
		for _, w := range words {
			w = strings.Trim(w, ".,;:!?()\"'")
			switch {
			case negationWords[w]:
				negated = true
			case strongWords[w]:
				strong = true
			case positiveWords[w]:
				vote++
			case negativeWords[w]:
				vote--
			}
		}

		if negated {
			vote = -vote
		}
		if strong {
			vote *= 2
		}
		// Cap each sentence's contribution
		if vote > 1 {
			vote = 1
		}
		if vote < -1 {
			vote = -1
		}
		total += vote
	}
	return total / float64(len(sentences))
}

func splitSentences(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	var out []string
	for _, s := range raw {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func clampSignal(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
