// Command sigmax runs the multi-agent trading decision engine: research
// probes through the temporal gateway, debate and technical analysis, risk
// and privacy checks, safety-enforced synthesis, all exposed over a small
// control and metrics HTTP surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/I-Onlabs/sigmax/internal/adapters"
	"github.com/I-Onlabs/sigmax/internal/boundary"
	"github.com/I-Onlabs/sigmax/internal/config"
	"github.com/I-Onlabs/sigmax/internal/engine"
	"github.com/I-Onlabs/sigmax/internal/llm"
	"github.com/I-Onlabs/sigmax/internal/metrics"
	"github.com/I-Onlabs/sigmax/internal/privacy"
	"github.com/I-Onlabs/sigmax/internal/research"
	"github.com/I-Onlabs/sigmax/internal/safety"
	"github.com/I-Onlabs/sigmax/internal/temporal"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (optional)")
	symbol := flag.String("symbol", "", "Analyze one symbol and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	config.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)

	log.Info().
		Str("version", cfg.App.Version).
		Str("mode", cfg.Engine.Mode).
		Str("risk_profile", cfg.Engine.RiskProfile).
		Strs("symbols", cfg.Engine.Symbols).
		Msg("Starting SIGMAX")

	eng, err := buildEngine(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Engine setup failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *symbol != "" {
		record := eng.AnalyzeSymbol(ctx, *symbol)
		fmt.Print(engine.FormatExplanation(record))
		if cfg.Gateway.LogAccess {
			fmt.Print(boundary.FormatReport(eng.Audit()))
		}
		return
	}

	var server *metrics.Server
	if cfg.Monitoring.EnableMetrics {
		server = metrics.NewServer(cfg.Monitoring.PrometheusPort, eng)
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("Metrics server failed to start")
		}
	}

	err = eng.Run(ctx)
	if err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("Engine stopped with error")
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Metrics server shutdown failed")
		}
	}

	log.Info().Msg("SIGMAX stopped")
}

// buildEngine wires adapters, gateway, safety and research into an engine.
// Paper mode seeds synthetic market data; live mode tracks the wall clock
// and caches prices.
func buildEngine(cfg *config.Config) (*engine.Engine, error) {
	now := time.Now().UTC()

	data := adapters.NewPaperDataAdapter()
	news := adapters.NewPaperNewsAdapter()
	fundamentals := adapters.NewPaperFundamentalsAdapter()
	for _, symbol := range cfg.Engine.Symbols {
		data.LoadCandles(symbol, adapters.SyntheticCandles(30000, 200, now.Add(-200*time.Hour), time.Hour))
		fundamentals.AddReports(adapters.FinancialReport{
			Symbol:     symbol,
			ReportType: "quarterly",
			Metrics:    map[string]float64{"protocol_revenue": 1.2e8, "tvl": 2.4e9},
			ReleasedAt: now.AddDate(0, -1, 0),
		})
	}

	breakered := adapters.NewBreakeredDataAdapter(data, breakerSettings(cfg.Breakers.MarketData))

	mode := temporal.ModeLax
	if cfg.Gateway.StrictMode {
		mode = temporal.ModeStrict
	}
	if cfg.Engine.Mode == "live" {
		mode = temporal.ModeLive
	}

	var cache temporal.PriceCache
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache = temporal.NewRedisPriceCache(client, cfg.Gateway.LiveCacheTTL)
	}

	gateway := temporal.NewGateway(now, temporal.Adapters{
		Data:         breakered,
		News:         news,
		Fundamentals: fundamentals,
		Sentiment:    &adapters.PaperSentimentAdapter{Score: 0.1, Mentions: 500},
	}, temporal.Options{
		Mode:          mode,
		LogAccess:     cfg.Gateway.LogAccess,
		AuditLogSize:  cfg.Gateway.AuditLogSize,
		CacheTTL:      cfg.Gateway.LiveCacheTTL,
		Cache:         cache,
		RatePerSecond: cfg.Gateway.RatePerSecond,
	})

	scanner, err := privacy.NewScanner()
	if err != nil {
		return nil, fmt.Errorf("privacy scanner: %w", err)
	}
	enforcer := safety.NewEnforcer(cfg.Safety, scanner)

	var model adapters.LanguageModel
	if cfg.LLM.Enabled {
		model = adapters.NewBreakeredLanguageModel(llm.NewClient(cfg.LLM), breakerSettings(cfg.Breakers.LLM))
	}

	researchService := research.NewService(cfg.Planner, research.ExecutorDeps{
		Gateway: gateway,
		Social:  &adapters.PaperSocialAdapter{Score: 0.1, Mentions: 400},
		OnChain: &adapters.PaperOnChainAdapter{WhaleActivity: "neutral"},
		Macro:   &adapters.PaperMacroAdapter{FearGreedIndex: 50},
	}, model)

	return engine.New(cfg, engine.Deps{
		Research:   researchService,
		Gateway:    gateway,
		Safety:     enforcer,
		Scanner:    scanner,
		Compliance: &adapters.PaperComplianceAdapter{},
		Execution:  adapters.NewPaperExecutionAdapter(10000),
		LLM:        model,
	}), nil
}

func breakerSettings(s config.BreakerSettings) adapters.BreakerSettings {
	return adapters.BreakerSettings{
		MinRequests:     s.MinRequests,
		FailureRatio:    s.FailureRatio,
		OpenTimeout:     s.OpenTimeout,
		HalfOpenMaxReqs: s.HalfOpenMaxReqs,
		CountInterval:   s.CountInterval,
	}
}
