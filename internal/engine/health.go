package engine

import (
	"sort"
	"sync"
	"time"
)

// Agent health statuses, derived at read time from recorded node activity
const (
	HealthHealthy   = "HEALTHY"
	HealthDegraded  = "DEGRADED"
	HealthUnhealthy = "UNHEALTHY"
)

// staleAfter marks a node unhealthy when the run loop is active but the node
// has not executed within this window
const staleAfter = 5 * time.Minute

// AgentHealth is one pipeline node's health snapshot
type AgentHealth struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	LastRun   time.Time `json:"last_run"`
	LastError string    `json:"last_error,omitempty"`
}

type nodeActivity struct {
	lastRun   time.Time
	lastError string
}

// healthTracker accumulates per-node activity. The graph runner writes after
// every node execution; the status endpoint reads concurrently.
type healthTracker struct {
	mu    sync.Mutex
	nodes map[string]nodeActivity
	now   func() time.Time
}

func newHealthTracker() *healthTracker {
	return &healthTracker{nodes: make(map[string]nodeActivity), now: time.Now}
}

func (h *healthTracker) record(name, lastError string) {
	h.mu.Lock()
	h.nodes[name] = nodeActivity{lastRun: h.now().UTC(), lastError: lastError}
	h.mu.Unlock()
}

// snapshot lists node health sorted by name. A node that surfaced an error on
// its last run is DEGRADED; one that has gone stale while the loop is running
// is UNHEALTHY.
func (h *healthTracker) snapshot(running bool) []AgentHealth {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now().UTC()
	out := make([]AgentHealth, 0, len(h.nodes))
	for name, activity := range h.nodes {
		status := HealthHealthy
		if activity.lastError != "" {
			status = HealthDegraded
		}
		if running && now.Sub(activity.lastRun) > staleAfter {
			status = HealthUnhealthy
		}
		out = append(out, AgentHealth{
			Name:      name,
			Status:    status,
			LastRun:   activity.lastRun,
			LastError: activity.lastError,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
