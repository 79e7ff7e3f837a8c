// Package research plans and executes multi-source research probes for a
// symbol and reduces the partial results into one scored artifact. Plans are
// dependency-aware task graphs executed as sequential batches of concurrent
// probes.
package research

import (
	"time"

	"github.com/google/uuid"

	"github.com/I-Onlabs/sigmax/internal/adapters"
	"github.com/I-Onlabs/sigmax/internal/indicators"
)

// Priority orders tasks within a batch. Lower runs first.
type Priority int

const (
	PriorityCritical Priority = 1
	PriorityHigh     Priority = 2
	PriorityMedium   Priority = 3
	PriorityLow      Priority = 4
)

// String returns the priority name
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "CRITICAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityLow:
		return "LOW"
	default:
		return "UNKNOWN"
	}
}

// Task statuses. Lifecycle: PENDING -> IN_PROGRESS -> {COMPLETED|FAILED|SKIPPED},
// no back-transitions.
const (
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
	StatusSkipped    = "SKIPPED"
)

// Task is one research probe in a plan
type Task struct {
	ID            string         `json:"task_id"`
	Name          string         `json:"name"`
	Priority      Priority       `json:"priority"`
	DataSources   []string       `json:"data_sources"`
	Dependencies  []string       `json:"dependencies"` // task names
	EstimatedCost float64        `json:"estimated_cost"`
	Timeout       time.Duration  `json:"timeout"`
	Status        string         `json:"status"`
	Result        map[string]any `json:"result,omitempty"`
	Error         string         `json:"error,omitempty"`
	StartTime     time.Time      `json:"start_time,omitempty"`
	EndTime       time.Time      `json:"end_time,omitempty"`
}

func newTask(name string, priority Priority, sources []string, deps []string, cost float64, timeout time.Duration) *Task {
	return &Task{
		ID:            uuid.New().String(),
		Name:          name,
		Priority:      priority,
		DataSources:   sources,
		Dependencies:  deps,
		EstimatedCost: cost,
		Timeout:       timeout,
		Status:        StatusPending,
	}
}

// Plan is an ordered sequence of execution batches. Every task appears in
// exactly one batch, and a task's batch index is strictly greater than the
// batch index of each of its dependencies.
type Plan struct {
	Symbol      string    `json:"symbol"`
	RiskProfile string    `json:"risk_profile"`
	Batches     [][]*Task `json:"batches"`
	CreatedAt   time.Time `json:"created_at"`
}

// Tasks returns all tasks in batch order
func (p *Plan) Tasks() []*Task {
	var out []*Task
	for _, batch := range p.Batches {
		out = append(out, batch...)
	}
	return out
}

// TaskByName finds a task in the plan
func (p *Plan) TaskByName(name string) *Task {
	for _, batch := range p.Batches {
		for _, t := range batch {
			if t.Name == name {
				return t
			}
		}
	}
	return nil
}

// Artifact is the reduced output of an executed plan
type Artifact struct {
	Symbol    string    `json:"symbol"`
	Summary   string    `json:"summary"`
	Sentiment float64   `json:"sentiment"` // [-1, 1]
	Timestamp time.Time `json:"timestamp"`

	News    []adapters.NewsItem    `json:"news,omitempty"`
	Social  *adapters.SocialStats  `json:"social,omitempty"`
	OnChain *adapters.OnChainStats `json:"onchain,omitempty"`
	Macro   *adapters.MacroStats   `json:"macro,omitempty"`

	Technical *indicators.Snapshot `json:"technical,omitempty"`

	// Per-source partial results keyed by task name
	Data map[string]map[string]any `json:"data,omitempty"`

	CompletedTasks []string `json:"completed_tasks"`
	FailedTasks    []string `json:"failed_tasks,omitempty"`
	SkippedTasks   []string `json:"skipped_tasks,omitempty"`
}
