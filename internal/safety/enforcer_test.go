package safety

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/I-Onlabs/sigmax/internal/config"
	"github.com/I-Onlabs/sigmax/internal/privacy"
)

func testConfig() config.SafetyConfig {
	return config.SafetyConfig{
		MaxConsecutiveLosses: 3,
		MaxAPIErrorsPerMin:   5,
		MinSentiment:         -0.3,
		MaxSlippagePct:       0.01,
		MaxDailyLoss:         10.0,
		ResumeLockout:        30 * time.Minute,
	}
}

func newTestEnforcer(t *testing.T) *Enforcer {
	t.Helper()
	scanner, err := privacy.NewScanner()
	require.NoError(t, err)
	return NewEnforcer(testConfig(), scanner)
}

func TestConsecutiveLossesAutoPause(t *testing.T) {
	e := newTestEnforcer(t)

	var v *Violation
	for _, pnl := range []float64{-5, -5, -5} {
		v = e.RecordTradeResult(TradeResult{PnL: pnl})
	}

	require.NotNil(t, v)
	assert.Equal(t, TriggerConsecutiveLosses, v.Trigger)
	assert.Equal(t, SeverityCritical, v.Severity)
	assert.True(t, v.AutoPause)
	assert.True(t, e.Paused())
	assert.Contains(t, e.PauseReason(), TriggerConsecutiveLosses)
}

func TestWinResetsLossCounter(t *testing.T) {
	e := newTestEnforcer(t)

	assert.Nil(t, e.RecordTradeResult(TradeResult{PnL: -5}))
	assert.Nil(t, e.RecordTradeResult(TradeResult{PnL: -5}))
	// Break-even resets the streak
	assert.Nil(t, e.RecordTradeResult(TradeResult{PnL: 0}))
	assert.Nil(t, e.RecordTradeResult(TradeResult{PnL: -5}))
	assert.Nil(t, e.RecordTradeResult(TradeResult{PnL: -5}))
	assert.False(t, e.Paused())
	assert.Equal(t, 2, e.Snapshot().ConsecutiveLosses)
}

func TestAPIErrorBurst(t *testing.T) {
	e := newTestEnforcer(t)

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	e.now = func() time.Time { return clock }

	for i := 0; i < 5; i++ {
		clock = base.Add(time.Duration(i) * time.Second)
		assert.Nil(t, e.RecordAPIError("rate limited"))
	}
	clock = base.Add(6 * time.Second)
	v := e.RecordAPIError("rate limited")
	require.NotNil(t, v)
	assert.Equal(t, TriggerAPIErrorBurst, v.Trigger)
	assert.True(t, e.Paused())
}

func TestAPIErrorsExpireFromWindow(t *testing.T) {
	e := newTestEnforcer(t)

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	e.now = func() time.Time { return clock }

	for i := 0; i < 5; i++ {
		clock = base.Add(time.Duration(i) * time.Second)
		e.RecordAPIError("transient")
	}
	// Outside the 60s window the old errors no longer count
	clock = base.Add(2 * time.Minute)
	assert.Nil(t, e.RecordAPIError("transient"))
	assert.False(t, e.Paused())
	// They remain in the bounded history
	assert.Len(t, e.Snapshot().RecentAPIErrors, 6)
}

func TestSentimentDrop(t *testing.T) {
	e := newTestEnforcer(t)

	assert.Nil(t, e.CheckSentimentDrop(-0.2))
	v := e.CheckSentimentDrop(-0.5)
	require.NotNil(t, v)
	assert.Equal(t, TriggerSentimentDrop, v.Trigger)
	assert.Equal(t, SeverityWarning, v.Severity)
	assert.True(t, e.Paused())
}

func TestMEVSlippage(t *testing.T) {
	e := newTestEnforcer(t)

	assert.Nil(t, e.CheckMEVAttack(30000, 30100)) // 0.33%
	v := e.CheckMEVAttack(30000, 30500)           // 1.67%
	require.NotNil(t, v)
	assert.Equal(t, TriggerHighSlippage, v.Trigger)
	assert.True(t, e.Paused())

	assert.Nil(t, newTestEnforcer(t).CheckMEVAttack(0, 100))
}

func TestDailyLossLimit(t *testing.T) {
	e := newTestEnforcer(t)

	assert.Nil(t, e.RecordTradeResult(TradeResult{PnL: -6, Success: true}))
	v := e.RecordTradeResult(TradeResult{PnL: -6, Success: true})
	require.NotNil(t, v)
	assert.Equal(t, TriggerDailyLossLimit, v.Trigger)
	assert.True(t, e.Paused())
}

func TestDailyWindowResets(t *testing.T) {
	e := newTestEnforcer(t)

	day1 := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 6, 2, 1, 0, 0, 0, time.UTC)

	assert.Nil(t, e.RecordTradeResult(TradeResult{PnL: -8, Timestamp: day1}))
	// A new UTC day starts a fresh accumulator
	assert.Nil(t, e.RecordTradeResult(TradeResult{PnL: 1, Timestamp: day2}))
	assert.InDelta(t, 1.0, e.Snapshot().DailyPnL, 1e-9)
}

func TestCheckDailyLossLimitDirect(t *testing.T) {
	e := newTestEnforcer(t)
	assert.Nil(t, e.CheckDailyLossLimit(-9.9))
	assert.NotNil(t, e.CheckDailyLossLimit(-10.1))
}

func TestPrivacyBreach(t *testing.T) {
	e := newTestEnforcer(t)

	assert.Nil(t, e.CheckPrivacyBreach([]string{"RSI supports a long entry"}))
	v := e.CheckPrivacyBreach([]string{"email me at insider@example.com before the announcement"})
	require.NotNil(t, v)
	assert.Equal(t, TriggerPrivacyBreach, v.Trigger)
	assert.True(t, e.Paused())
}

func TestPrivacyBreachWithoutScanner(t *testing.T) {
	e := NewEnforcer(testConfig(), nil)
	assert.Nil(t, e.CheckPrivacyBreach([]string{"email me at insider@example.com"}))
}

func TestResumeLockout(t *testing.T) {
	e := newTestEnforcer(t)

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	e.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		e.RecordTradeResult(TradeResult{PnL: -5})
	}
	require.True(t, e.Paused())

	// Inside the lockout window only force works
	clock = base.Add(10 * time.Minute)
	assert.Error(t, e.Resume(false))
	assert.True(t, e.Paused())

	require.NoError(t, e.Resume(true))
	assert.False(t, e.Paused())
	assert.Empty(t, e.PauseReason())
}

func TestResumeAfterLockout(t *testing.T) {
	e := newTestEnforcer(t)

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	e.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		e.RecordTradeResult(TradeResult{PnL: -5})
	}
	require.True(t, e.Paused())

	clock = base.Add(31 * time.Minute)
	assert.NoError(t, e.Resume(false))
	assert.False(t, e.Paused())
}

func TestResumeWhenNotPaused(t *testing.T) {
	e := newTestEnforcer(t)
	assert.NoError(t, e.Resume(false))
}

func TestManualPause(t *testing.T) {
	e := newTestEnforcer(t)
	e.Pause("operator requested")
	assert.True(t, e.Paused())
	assert.Equal(t, "operator requested", e.PauseReason())
}

func TestOnPauseHookFiresOncePerTransition(t *testing.T) {
	e := newTestEnforcer(t)

	var reasons []string
	e.SetOnPause(func(reason string) { reasons = append(reasons, reason) })

	for i := 0; i < 3; i++ {
		e.RecordTradeResult(TradeResult{PnL: -5})
	}
	require.True(t, e.Paused())
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], TriggerConsecutiveLosses)

	// Violations while already paused do not re-fire
	e.RecordTradeResult(TradeResult{PnL: -50})
	assert.Len(t, reasons, 1)

	// The next transition into paused fires again
	require.NoError(t, e.Resume(true))
	e.RecordTradeResult(TradeResult{PnL: -5})
	assert.Len(t, reasons, 2)
}

func TestManualPauseDoesNotFireHook(t *testing.T) {
	e := newTestEnforcer(t)

	fired := false
	e.SetOnPause(func(string) { fired = true })

	e.Pause("maintenance window")
	assert.True(t, e.Paused())
	assert.False(t, fired)
}

func TestSnapshotIsACopy(t *testing.T) {
	e := newTestEnforcer(t)
	e.RecordTradeResult(TradeResult{PnL: 2})

	snap := e.Snapshot()
	require.Len(t, snap.RecentTrades, 1)
	snap.RecentTrades[0].PnL = 999

	assert.InDelta(t, 2.0, e.Snapshot().RecentTrades[0].PnL, 1e-9)
}

func TestTradeHistoryRingBound(t *testing.T) {
	e := newTestEnforcer(t)
	for i := 0; i < tradeHistorySize+20; i++ {
		e.RecordTradeResult(TradeResult{PnL: 1})
	}
	assert.Len(t, e.Snapshot().RecentTrades, tradeHistorySize)
}

func TestRingEvictsOldest(t *testing.T) {
	r := newRing[int](3)
	for i := 1; i <= 5; i++ {
		r.append(i)
	}
	assert.Equal(t, []int{3, 4, 5}, r.items())
}
