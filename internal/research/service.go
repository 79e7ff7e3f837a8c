package research

import (
	"context"

	"github.com/I-Onlabs/sigmax/internal/adapters"
	"github.com/I-Onlabs/sigmax/internal/config"
)

// Service ties planner, executor and aggregator together for callers that
// want one research artifact per symbol
type Service struct {
	planner    *Planner
	executor   *Executor
	aggregator *Aggregator
}

// NewService wires the full research pipeline
func NewService(cfg config.PlannerConfig, deps ExecutorDeps, llm adapters.LanguageModel) *Service {
	return &Service{
		planner:    NewPlanner(cfg),
		executor:   NewExecutor(cfg, deps),
		aggregator: NewAggregator(llm),
	}
}

// Research plans, executes and aggregates in one call. The returned plan
// carries per-task statuses for audit and explanation.
func (s *Service) Research(ctx context.Context, symbol, riskProfile string) (*Artifact, *Plan) {
	tasks := s.planner.BuildTasks(riskProfile)
	plan := s.planner.BuildPlan(symbol, riskProfile, tasks)
	s.executor.Execute(ctx, plan)
	return s.aggregator.Aggregate(ctx, plan), plan
}
