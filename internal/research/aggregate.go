package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/I-Onlabs/sigmax/internal/adapters"
	"github.com/I-Onlabs/sigmax/internal/config"
	"github.com/I-Onlabs/sigmax/internal/indicators"
)

// Source weights for the sentiment reduction. When a source is missing its
// weight is redistributed uniformly across the present sources.
const (
	newsWeight    = 0.4
	socialWeight  = 0.3
	onchainWeight = 0.3
)

// whaleSignal maps on-chain whale activity to a sentiment contribution
var whaleSignal = map[string]float64{
	"bullish": 0.5,
	"neutral": 0,
	"bearish": -0.5,
}

// Aggregator reduces executed plans into artifacts
type Aggregator struct {
	llm adapters.LanguageModel
	log zerolog.Logger
}

// NewAggregator creates an aggregator. The language model is optional; when
// absent or failing the summary falls back to a template.
func NewAggregator(llm adapters.LanguageModel) *Aggregator {
	return &Aggregator{llm: llm, log: config.NewLogger("research")}
}

// Aggregate reduces the plan's partial results into a single artifact
func (a *Aggregator) Aggregate(ctx context.Context, plan *Plan) *Artifact {
	artifact := &Artifact{
		Symbol:    plan.Symbol,
		Timestamp: time.Now().UTC(),
		Data:      make(map[string]map[string]any),
	}

	for _, task := range plan.Tasks() {
		switch task.Status {
		case StatusCompleted:
			artifact.CompletedTasks = append(artifact.CompletedTasks, task.Name)
			if task.Result != nil {
				artifact.Data[task.Name] = task.Result
			}
		case StatusFailed:
			artifact.FailedTasks = append(artifact.FailedTasks, task.Name)
		case StatusSkipped:
			artifact.SkippedTasks = append(artifact.SkippedTasks, task.Name)
		}
	}

	var newsScore, socialScore, onchainScore float64
	var newsPresent, socialPresent, onchainPresent bool

	if result, ok := artifact.Data["sentiment"]; ok {
		if v, ok := result["news_score"].(float64); ok {
			newsScore = v
			newsPresent = true
		}
		if v, ok := result["social_score"].(float64); ok {
			socialScore = v
			socialPresent = true
		}
		if items, ok := result["news"].([]adapters.NewsItem); ok {
			artifact.News = items
		}
		if stats, ok := result["social"].(*adapters.SocialStats); ok {
			artifact.Social = stats
		}
	}

	if result, ok := artifact.Data["onchain"]; ok {
		if stats, ok := result["onchain"].(*adapters.OnChainStats); ok {
			artifact.OnChain = stats
			onchainScore = whaleSignal[stats.WhaleActivity]
			onchainPresent = true
		}
	}

	if result, ok := artifact.Data["macro"]; ok {
		if stats, ok := result["macro"].(*adapters.MacroStats); ok {
			artifact.Macro = stats
		}
	}

	if result, ok := artifact.Data["technical"]; ok {
		if snapshot, ok := result["snapshot"].(*indicators.Snapshot); ok {
			artifact.Technical = snapshot
		}
	}

	artifact.Sentiment = weightedSentiment(
		newsScore, newsPresent,
		socialScore, socialPresent,
		onchainScore, onchainPresent,
	)
	artifact.Summary = a.summarize(ctx, artifact)

	a.log.Debug().
		Str("symbol", plan.Symbol).
		Float64("sentiment", artifact.Sentiment).
		Int("completed", len(artifact.CompletedTasks)).
		Int("failed", len(artifact.FailedTasks)).
		Int("skipped", len(artifact.SkippedTasks)).
		Msg("Research aggregated")

	return artifact
}

// weightedSentiment reduces the source scores, redistributing the weight of
// missing sources uniformly over the present ones, clamped to [-1, 1]
func weightedSentiment(news float64, newsOK bool, social float64, socialOK bool, onchain float64, onchainOK bool) float64 {
	type source struct {
		score  float64
		weight float64
	}
	var present []source
	missing := 0.0

	add := func(score, weight float64, ok bool) {
		if ok {
			present = append(present, source{score, weight})
		} else {
			missing += weight
		}
	}
	add(news, newsWeight, newsOK)
	add(social, socialWeight, socialOK)
	add(onchain, onchainWeight, onchainOK)

	if len(present) == 0 {
		return 0
	}

	extra := missing / float64(len(present))
	total := 0.0
	for _, s := range present {
		total += s.score * (s.weight + extra)
	}

	if total > 1 {
		total = 1
	}
	if total < -1 {
		total = -1
	}
	return total
}

func (a *Aggregator) summarize(ctx context.Context, artifact *Artifact) string {
	fallback := templateSummary(artifact)
	if a.llm == nil {
		return fallback
	}

	prompt := fmt.Sprintf(
		"Summarize this research for %s in two sentences.\nSentiment: %.2f\n%s",
		artifact.Symbol, artifact.Sentiment, fallback,
	)
	text, err := a.llm.Generate(ctx, "You are a concise market research analyst.", prompt)
	if err != nil || strings.TrimSpace(text) == "" {
		a.log.Debug().Err(err).Msg("LLM summary unavailable, using template")
		return fallback
	}
	return strings.TrimSpace(text)
}

func templateSummary(artifact *Artifact) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Research for %s: aggregate sentiment %.2f", artifact.Symbol, artifact.Sentiment))

	if len(artifact.News) > 0 {
		parts = append(parts, fmt.Sprintf("%d news items analyzed", len(artifact.News)))
	}
	if artifact.Social != nil {
		parts = append(parts, fmt.Sprintf("social score %.2f across %d mentions", artifact.Social.Score, artifact.Social.Mentions))
	}
	if artifact.OnChain != nil {
		parts = append(parts, fmt.Sprintf("whale activity %s", artifact.OnChain.WhaleActivity))
	}
	if artifact.Macro != nil {
		parts = append(parts, fmt.Sprintf("fear/greed index %d", artifact.Macro.FearGreedIndex))
	}
	if artifact.Technical != nil {
		parts = append(parts, fmt.Sprintf("technical signal %.2f (RSI %.1f)", artifact.Technical.SignalScore(), artifact.Technical.RSI))
	}
	if len(artifact.FailedTasks) > 0 {
		parts = append(parts, fmt.Sprintf("incomplete sources: %s", strings.Join(artifact.FailedTasks, ", ")))
	}
	return strings.Join(parts, "; ") + "."
}
