package research

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/I-Onlabs/sigmax/internal/config"
)

func plannerConfig(parallel bool, maxParallel int, optional bool) config.PlannerConfig {
	return config.PlannerConfig{
		EnableParallelTasks:  parallel,
		MaxParallelTasks:     maxParallel,
		IncludeOptionalTasks: optional,
		MaxResearchTime:      60 * time.Second,
	}
}

func batchNames(batch []*Task) []string {
	names := make([]string, len(batch))
	for i, t := range batch {
		names[i] = t.Name
	}
	return names
}

func TestBuildTasksByProfile(t *testing.T) {
	planner := NewPlanner(plannerConfig(true, 3, false))

	tests := []struct {
		profile string
		want    []string
	}{
		{"balanced", []string{"sentiment", "onchain", "technical", "macro"}},
		{"conservative", []string{"sentiment", "onchain", "technical", "macro", "liquidity", "correlation"}},
		{"aggressive", []string{"sentiment", "onchain", "technical", "macro", "momentum"}},
	}

	for _, tt := range tests {
		t.Run(tt.profile, func(t *testing.T) {
			tasks := planner.BuildTasks(tt.profile)
			names := make([]string, len(tasks))
			for i, task := range tasks {
				names[i] = task.Name
				assert.Equal(t, StatusPending, task.Status)
				assert.NotEmpty(t, task.ID)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestBuildTasksOptional(t *testing.T) {
	planner := NewPlanner(plannerConfig(true, 3, true))
	tasks := planner.BuildTasks("balanced")

	byName := make(map[string]*Task)
	for _, task := range tasks {
		byName[task.Name] = task
	}
	require.Contains(t, byName, "patterns")
	require.Contains(t, byName, "keywords")
	assert.Equal(t, []string{"technical"}, byName["patterns"].Dependencies)
	assert.Equal(t, []string{"sentiment"}, byName["keywords"].Dependencies)
	assert.Equal(t, PriorityLow, byName["keywords"].Priority)
}

func TestPlanTopology(t *testing.T) {
	// Six tasks, cap 3: the critical trio fills batch 1, macro spills to
	// batch 2, the technical-dependent pair lands in batch 3.
	planner := NewPlanner(plannerConfig(true, 3, false))
	tasks := []*Task{
		newTask("sentiment", PriorityCritical, nil, nil, 1, time.Second),
		newTask("onchain", PriorityCritical, nil, nil, 1, time.Second),
		newTask("technical", PriorityCritical, nil, nil, 1, time.Second),
		newTask("macro", PriorityHigh, nil, nil, 1, time.Second),
		newTask("patterns", PriorityMedium, nil, []string{"technical"}, 1, time.Second),
		newTask("correlation", PriorityMedium, nil, []string{"technical"}, 1, time.Second),
	}

	plan := planner.BuildPlan("BTC/USDT", "balanced", tasks)
	require.Len(t, plan.Batches, 3)
	assert.ElementsMatch(t, []string{"sentiment", "onchain", "technical"}, batchNames(plan.Batches[0]))
	assert.Equal(t, []string{"macro"}, batchNames(plan.Batches[1]))
	assert.ElementsMatch(t, []string{"patterns", "correlation"}, batchNames(plan.Batches[2]))
}

func TestPlanDependencyOrdering(t *testing.T) {
	planner := NewPlanner(plannerConfig(true, 3, true))
	tasks := planner.BuildTasks("conservative")
	plan := planner.BuildPlan("ETH/USDT", "conservative", tasks)

	batchOf := make(map[string]int)
	for i, batch := range plan.Batches {
		for _, task := range batch {
			batchOf[task.Name] = i
		}
	}

	for _, task := range tasks {
		for _, dep := range task.Dependencies {
			assert.Less(t, batchOf[dep], batchOf[task.Name],
				"%s must run after its dependency %s", task.Name, dep)
		}
	}
}

func TestPlanSerialMode(t *testing.T) {
	planner := NewPlanner(plannerConfig(false, 3, false))
	tasks := planner.BuildTasks("balanced")
	plan := planner.BuildPlan("BTC/USDT", "balanced", tasks)

	require.Len(t, plan.Batches, len(tasks))
	for _, batch := range plan.Batches {
		assert.Len(t, batch, 1)
	}
}

func TestPlanCycleEmitsFinalBatch(t *testing.T) {
	planner := NewPlanner(plannerConfig(true, 3, false))
	tasks := []*Task{
		newTask("a", PriorityCritical, nil, []string{"b"}, 1, time.Second),
		newTask("b", PriorityCritical, nil, []string{"a"}, 1, time.Second),
		newTask("c", PriorityCritical, nil, nil, 1, time.Second),
	}

	plan := planner.BuildPlan("BTC/USDT", "balanced", tasks)
	require.Len(t, plan.Batches, 2)
	assert.Equal(t, []string{"c"}, batchNames(plan.Batches[0]))
	assert.ElementsMatch(t, []string{"a", "b"}, batchNames(plan.Batches[1]))
}

func TestPlanTaskLookup(t *testing.T) {
	planner := NewPlanner(plannerConfig(true, 3, false))
	tasks := planner.BuildTasks("balanced")
	plan := planner.BuildPlan("BTC/USDT", "balanced", tasks)

	assert.NotNil(t, plan.TaskByName("macro"))
	assert.Nil(t, plan.TaskByName("missing"))
	assert.Len(t, plan.Tasks(), len(tasks))
}
