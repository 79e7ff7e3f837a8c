package research

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/I-Onlabs/sigmax/internal/config"
)

// Planner builds research plans from a risk profile
type Planner struct {
	cfg config.PlannerConfig
	log zerolog.Logger
}

// NewPlanner creates a planner with the given configuration
func NewPlanner(cfg config.PlannerConfig) *Planner {
	return &Planner{cfg: cfg, log: config.NewLogger("research")}
}

// BuildTasks assembles the task set for a risk profile. The base set carries
// the critical probes; profile-specific and optional tasks are appended.
func (p *Planner) BuildTasks(riskProfile string) []*Task {
	tasks := []*Task{
		newTask("sentiment", PriorityCritical, []string{"news", "sentiment"}, nil, 1.0, 15*time.Second),
		newTask("onchain", PriorityCritical, []string{"onchain"}, nil, 1.0, 15*time.Second),
		newTask("technical", PriorityCritical, []string{"ohlcv"}, nil, 1.5, 20*time.Second),
		newTask("macro", PriorityHigh, []string{"macro"}, nil, 0.5, 10*time.Second),
	}

	switch riskProfile {
	case "conservative":
		tasks = append(tasks,
			newTask("liquidity", PriorityHigh, []string{"ohlcv"}, nil, 0.5, 10*time.Second),
			newTask("correlation", PriorityMedium, []string{"ohlcv"}, []string{"technical"}, 1.0, 15*time.Second),
		)
	case "aggressive":
		tasks = append(tasks,
			newTask("momentum", PriorityHigh, []string{"ohlcv"}, []string{"technical"}, 0.5, 10*time.Second),
		)
	}

	if p.cfg.IncludeOptionalTasks {
		tasks = append(tasks,
			newTask("patterns", PriorityMedium, []string{"ohlcv"}, []string{"technical"}, 1.0, 15*time.Second),
			newTask("keywords", PriorityLow, []string{"news"}, []string{"sentiment"}, 0.5, 10*time.Second),
		)
	}
	return tasks
}

// BuildPlan orders tasks into execution batches using topological level sets.
// Each level holds the tasks whose dependencies all sit in earlier levels;
// within a level tasks are sorted by priority and split into batches of at
// most max_parallel_tasks. A dependency cycle yields one final batch with the
// unresolvable remainder.
func (p *Planner) BuildPlan(symbol, riskProfile string, tasks []*Task) *Plan {
	plan := &Plan{
		Symbol:      symbol,
		RiskProfile: riskProfile,
		CreatedAt:   time.Now().UTC(),
	}

	scheduled := make(map[string]bool, len(tasks))
	remaining := make([]*Task, len(tasks))
	copy(remaining, tasks)

	for len(remaining) > 0 {
		var ready, blocked []*Task
		for _, t := range remaining {
			if depsSatisfied(t, scheduled) {
				ready = append(ready, t)
			} else {
				blocked = append(blocked, t)
			}
		}

		if len(ready) == 0 {
			// Cycle: no task can make progress. Emit the remainder as one
			// final batch rather than dropping it.
			p.log.Warn().Int("tasks", len(blocked)).Msg("Dependency cycle detected, emitting remainder as final batch")
			plan.Batches = append(plan.Batches, blocked)
			break
		}

		sort.SliceStable(ready, func(i, j int) bool {
			if ready[i].Priority != ready[j].Priority {
				return ready[i].Priority < ready[j].Priority
			}
			return ready[i].Name < ready[j].Name
		})

		for len(ready) > 0 {
			size := len(ready)
			if p.cfg.EnableParallelTasks {
				if p.cfg.MaxParallelTasks > 0 && size > p.cfg.MaxParallelTasks {
					size = p.cfg.MaxParallelTasks
				}
			} else {
				size = 1
			}
			plan.Batches = append(plan.Batches, ready[:size])
			for _, t := range ready[:size] {
				scheduled[t.Name] = true
			}
			ready = ready[size:]
		}
		remaining = blocked
	}

	p.log.Debug().
		Str("symbol", symbol).
		Str("risk_profile", riskProfile).
		Int("tasks", len(tasks)).
		Int("batches", len(plan.Batches)).
		Msg("Research plan built")

	return plan
}

func depsSatisfied(t *Task, scheduled map[string]bool) bool {
	for _, dep := range t.Dependencies {
		if !scheduled[dep] {
			return false
		}
	}
	return true
}
