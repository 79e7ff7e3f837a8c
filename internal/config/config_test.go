package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "paper", cfg.Engine.Mode)
	assert.Equal(t, "balanced", cfg.Engine.RiskProfile)
	assert.Equal(t, 3, cfg.Engine.MaxIterations)
	assert.Equal(t, 0.7, cfg.Validation.Threshold)
	assert.Equal(t, 3, cfg.Safety.MaxConsecutiveLosses)
	assert.Equal(t, 5, cfg.Safety.MaxAPIErrorsPerMin)
	assert.Equal(t, -0.3, cfg.Safety.MinSentiment)
	assert.Equal(t, 0.01, cfg.Safety.MaxSlippagePct)
	assert.Equal(t, 10.0, cfg.Safety.MaxDailyLoss)
	assert.Equal(t, 3, cfg.Planner.MaxParallelTasks)
	assert.True(t, cfg.Planner.EnableParallelTasks)
	assert.Equal(t, 10000, cfg.Gateway.AuditLogSize)
	assert.Equal(t, 10*time.Second, cfg.Gateway.LiveCacheTTL)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := []byte(`
app:
  log_level: debug
engine:
  mode: live
  risk_profile: aggressive
  symbols: ["ETH/USDT", "SOL/USDT"]
  max_iterations: 5
planner:
  include_optional_tasks: true
  max_parallel_tasks: 2
gateway:
  strict_mode: true
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "live", cfg.Engine.Mode)
	assert.Equal(t, "aggressive", cfg.Engine.RiskProfile)
	assert.Equal(t, []string{"ETH/USDT", "SOL/USDT"}, cfg.Engine.Symbols)
	assert.Equal(t, 5, cfg.Engine.MaxIterations)
	assert.True(t, cfg.Planner.IncludeOptionalTasks)
	assert.Equal(t, 2, cfg.Planner.MaxParallelTasks)
	assert.True(t, cfg.Gateway.StrictMode)

	// Defaults still fill unset sections
	assert.Equal(t, 3, cfg.Safety.MaxConsecutiveLosses)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "invalid mode",
			mutate:  func(c *Config) { c.Engine.Mode = "shadow" },
			wantErr: "engine.mode",
		},
		{
			name:    "invalid risk profile",
			mutate:  func(c *Config) { c.Engine.RiskProfile = "yolo" },
			wantErr: "engine.risk_profile",
		},
		{
			name:    "no symbols",
			mutate:  func(c *Config) { c.Engine.Symbols = nil },
			wantErr: "engine.symbols",
		},
		{
			name:    "zero iterations",
			mutate:  func(c *Config) { c.Engine.MaxIterations = 0 },
			wantErr: "engine.max_iterations",
		},
		{
			name:    "threshold out of range",
			mutate:  func(c *Config) { c.Validation.Threshold = 1.5 },
			wantErr: "validation.threshold",
		},
		{
			name:    "sentiment out of range",
			mutate:  func(c *Config) { c.Safety.MinSentiment = -2 },
			wantErr: "safety.min_sentiment",
		},
		{
			name:    "parallel tasks zero",
			mutate:  func(c *Config) { c.Planner.MaxParallelTasks = 0 },
			wantErr: "planner.max_parallel_tasks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Engine.Mode = "bogus"
	cfg.Engine.MaxIterations = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine.mode")
	assert.Contains(t, err.Error(), "engine.max_iterations")
}
