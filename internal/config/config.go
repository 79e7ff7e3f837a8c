// Package config loads and validates SIGMAX engine configuration
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all engine configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Validation ValidationConfig `mapstructure:"validation"`
	Safety     SafetyConfig     `mapstructure:"safety"`
	Planner    PlannerConfig    `mapstructure:"planner"`
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Breakers   BreakerConfig    `mapstructure:"breakers"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"` // development, staging, production
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"` // "json" or "console"
}

// EngineConfig contains decision-engine settings
type EngineConfig struct {
	Mode          string        `mapstructure:"mode"`         // "paper" or "live"
	RiskProfile   string        `mapstructure:"risk_profile"` // conservative, balanced, aggressive
	Symbols       []string      `mapstructure:"symbols"`
	MaxIterations int           `mapstructure:"max_iterations"`
	StepInterval  time.Duration `mapstructure:"step_interval"`
	HistorySize   int           `mapstructure:"history_size"` // decision records kept per symbol
}

// ValidationConfig contains research-validation settings. Serialized into
// the status API, hence the json tags.
type ValidationConfig struct {
	Threshold            float64  `mapstructure:"threshold" json:"threshold"` // validation_score pass mark
	DataFreshnessSeconds int      `mapstructure:"data_freshness_seconds" json:"data_freshness_seconds"`
	RequiredDataSources  []string `mapstructure:"required_data_sources" json:"required_data_sources"`
}

// SafetyConfig contains auto-pause trigger thresholds
type SafetyConfig struct {
	MaxConsecutiveLosses int           `mapstructure:"max_consecutive_losses"`
	MaxAPIErrorsPerMin   int           `mapstructure:"max_api_errors_per_min"`
	MinSentiment         float64       `mapstructure:"min_sentiment"`
	MaxSlippagePct       float64       `mapstructure:"max_slippage_pct"`
	MaxDailyLoss         float64       `mapstructure:"max_daily_loss"`
	ResumeLockout        time.Duration `mapstructure:"resume_lockout"`
}

// PlannerConfig contains research-planner settings
type PlannerConfig struct {
	EnableParallelTasks  bool          `mapstructure:"enable_parallel_tasks"`
	MaxParallelTasks     int           `mapstructure:"max_parallel_tasks"`
	IncludeOptionalTasks bool          `mapstructure:"include_optional_tasks"`
	MaxResearchTime      time.Duration `mapstructure:"max_research_time"`
}

// LLMConfig contains settings for the chat-completions gateway used by the
// debate agents. Disabled by default: the engine falls back to templated
// arguments when no model is configured.
type LLMConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Endpoint    string        `mapstructure:"endpoint"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

// GatewayConfig contains temporal-gateway settings
type GatewayConfig struct {
	StrictMode    bool          `mapstructure:"strict_mode"`
	LogAccess     bool          `mapstructure:"log_access"`
	AuditLogSize  int           `mapstructure:"audit_log_size"`
	LiveCacheTTL  time.Duration `mapstructure:"live_cache_ttl"`
	RatePerSecond float64       `mapstructure:"rate_per_second"` // live-mode adapter rate limit
}

// RedisConfig contains Redis settings for the live price cache
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the host:port address for the Redis client
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// BreakerConfig contains circuit breaker settings per adapter class
type BreakerConfig struct {
	MarketData BreakerSettings `mapstructure:"market_data"`
	LLM        BreakerSettings `mapstructure:"llm"`
}

// BreakerSettings holds circuit breaker thresholds for one adapter class
type BreakerSettings struct {
	MinRequests     uint32        `mapstructure:"min_requests"`
	FailureRatio    float64       `mapstructure:"failure_ratio"`
	OpenTimeout     time.Duration `mapstructure:"open_timeout"`
	HalfOpenMaxReqs uint32        `mapstructure:"half_open_max_reqs"`
	CountInterval   time.Duration `mapstructure:"count_interval"`
}

// MonitoringConfig contains metrics server settings
type MonitoringConfig struct {
	PrometheusPort int  `mapstructure:"prometheus_port"`
	EnableMetrics  bool `mapstructure:"enable_metrics"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("SIGMAX")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults and environment variables apply
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a config populated with defaults only (no file, no env)
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Unmarshal from defaults cannot fail: the defaults are typed below
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "SIGMAX")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "console")

	v.SetDefault("engine.mode", "paper")
	v.SetDefault("engine.risk_profile", "balanced")
	v.SetDefault("engine.symbols", []string{"BTC/USDT"})
	v.SetDefault("engine.max_iterations", 3)
	v.SetDefault("engine.step_interval", "30s")
	v.SetDefault("engine.history_size", 100)

	v.SetDefault("validation.threshold", 0.7)
	v.SetDefault("validation.data_freshness_seconds", 300)
	v.SetDefault("validation.required_data_sources", []string{"sentiment", "onchain", "technical"})

	v.SetDefault("safety.max_consecutive_losses", 3)
	v.SetDefault("safety.max_api_errors_per_min", 5)
	v.SetDefault("safety.min_sentiment", -0.3)
	v.SetDefault("safety.max_slippage_pct", 0.01)
	v.SetDefault("safety.max_daily_loss", 10.0)
	v.SetDefault("safety.resume_lockout", "30m")

	v.SetDefault("planner.enable_parallel_tasks", true)
	v.SetDefault("planner.max_parallel_tasks", 3)
	v.SetDefault("planner.include_optional_tasks", false)
	v.SetDefault("planner.max_research_time", "60s")

	v.SetDefault("llm.enabled", false)
	v.SetDefault("llm.endpoint", "http://localhost:8080/v1/chat/completions")
	v.SetDefault("llm.model", "claude-sonnet-4-20250514")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 2000)
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.max_retries", 2)

	v.SetDefault("gateway.strict_mode", false)
	v.SetDefault("gateway.log_access", true)
	v.SetDefault("gateway.audit_log_size", 10000)
	v.SetDefault("gateway.live_cache_ttl", "10s")
	v.SetDefault("gateway.rate_per_second", 10.0)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("breakers.market_data.min_requests", 5)
	v.SetDefault("breakers.market_data.failure_ratio", 0.6)
	v.SetDefault("breakers.market_data.open_timeout", "30s")
	v.SetDefault("breakers.market_data.half_open_max_reqs", 3)
	v.SetDefault("breakers.market_data.count_interval", "10s")

	v.SetDefault("breakers.llm.min_requests", 3)
	v.SetDefault("breakers.llm.failure_ratio", 0.6)
	v.SetDefault("breakers.llm.open_timeout", "60s")
	v.SetDefault("breakers.llm.half_open_max_reqs", 2)
	v.SetDefault("breakers.llm.count_interval", "10s")

	v.SetDefault("monitoring.prometheus_port", 9091)
	v.SetDefault("monitoring.enable_metrics", true)
}
