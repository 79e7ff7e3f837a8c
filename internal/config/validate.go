package config

import (
	"fmt"
	"strings"
)

// validationError accumulates configuration problems so a bad config
// reports everything wrong at once instead of one field per run.
type validationError struct {
	problems []string
}

func (e *validationError) add(field, msg string) {
	e.problems = append(e.problems, fmt.Sprintf("%s: %s", field, msg))
}

func (e *validationError) err() error {
	if len(e.problems) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(e.problems, "; "))
}

// RiskProfiles enumerates the supported risk profiles
var RiskProfiles = []string{"conservative", "balanced", "aggressive"}

// Validate checks the configuration for invalid or inconsistent values
func (c *Config) Validate() error {
	v := &validationError{}

	if c.Engine.Mode != "paper" && c.Engine.Mode != "live" {
		v.add("engine.mode", "must be \"paper\" or \"live\"")
	}

	validProfile := false
	for _, p := range RiskProfiles {
		if c.Engine.RiskProfile == p {
			validProfile = true
			break
		}
	}
	if !validProfile {
		v.add("engine.risk_profile", "must be one of: "+strings.Join(RiskProfiles, ", "))
	}

	if len(c.Engine.Symbols) == 0 {
		v.add("engine.symbols", "at least one symbol is required")
	}
	if c.Engine.MaxIterations < 1 {
		v.add("engine.max_iterations", "must be at least 1")
	}
	if c.Engine.HistorySize < 1 {
		v.add("engine.history_size", "must be at least 1")
	}

	if c.Validation.Threshold < 0 || c.Validation.Threshold > 1 {
		v.add("validation.threshold", "must be in [0, 1]")
	}
	if c.Validation.DataFreshnessSeconds <= 0 {
		v.add("validation.data_freshness_seconds", "must be positive")
	}

	if c.Safety.MaxConsecutiveLosses < 1 {
		v.add("safety.max_consecutive_losses", "must be at least 1")
	}
	if c.Safety.MaxAPIErrorsPerMin < 1 {
		v.add("safety.max_api_errors_per_min", "must be at least 1")
	}
	if c.Safety.MinSentiment < -1 || c.Safety.MinSentiment > 1 {
		v.add("safety.min_sentiment", "must be in [-1, 1]")
	}
	if c.Safety.MaxSlippagePct <= 0 {
		v.add("safety.max_slippage_pct", "must be positive")
	}
	if c.Safety.MaxDailyLoss <= 0 {
		v.add("safety.max_daily_loss", "must be positive")
	}

	if c.Planner.MaxParallelTasks < 1 {
		v.add("planner.max_parallel_tasks", "must be at least 1")
	}
	if c.Planner.MaxResearchTime <= 0 {
		v.add("planner.max_research_time", "must be positive")
	}

	if c.LLM.Enabled {
		if c.LLM.Endpoint == "" {
			v.add("llm.endpoint", "required when llm is enabled")
		}
		if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
			v.add("llm.temperature", "must be in [0, 2]")
		}
		if c.LLM.MaxRetries < 0 {
			v.add("llm.max_retries", "must not be negative")
		}
	}

	if c.Gateway.AuditLogSize < 1 {
		v.add("gateway.audit_log_size", "must be at least 1")
	}
	if c.Gateway.LiveCacheTTL <= 0 {
		v.add("gateway.live_cache_ttl", "must be positive")
	}

	if c.Monitoring.EnableMetrics && (c.Monitoring.PrometheusPort < 1 || c.Monitoring.PrometheusPort > 65535) {
		v.add("monitoring.prometheus_port", "must be a valid port")
	}

	return v.err()
}
