package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthTrackerStaleness(t *testing.T) {
	tracker := newHealthTracker()
	current := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return current }

	tracker.record("researcher", "")
	tracker.record("validator", "boundary check failed")

	snap := tracker.snapshot(false)
	require.Len(t, snap, 2)
	assert.Equal(t, "researcher", snap[0].Name)
	assert.Equal(t, HealthHealthy, snap[0].Status)
	assert.Equal(t, HealthDegraded, snap[1].Status)
	assert.Equal(t, "boundary check failed", snap[1].LastError)

	current = current.Add(6 * time.Minute)

	// An idle system keeps whatever status the last run produced
	snap = tracker.snapshot(false)
	assert.Equal(t, HealthHealthy, snap[0].Status)

	// A running system going quiet means the loop is wedged
	snap = tracker.snapshot(true)
	assert.Equal(t, HealthUnhealthy, snap[0].Status)
	assert.Equal(t, HealthUnhealthy, snap[1].Status)
}

func TestHealthTrackerRecordOverwrites(t *testing.T) {
	tracker := newHealthTracker()

	tracker.record("analyzer", "insufficient data")
	tracker.record("analyzer", "")

	snap := tracker.snapshot(false)
	require.Len(t, snap, 1)
	assert.Equal(t, HealthHealthy, snap[0].Status)
	assert.Empty(t, snap[0].LastError)
}
