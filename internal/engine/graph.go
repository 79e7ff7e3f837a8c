package engine

import (
	"context"

	"github.com/rs/zerolog"
)

// Node names
const (
	nodeResearcher = "researcher"
	nodeValidator  = "validator"
	nodeBull       = "bull"
	nodeBear       = "bear"
	nodeAnalyzer   = "analyzer"
	nodeRisk       = "risk"
	nodePrivacy    = "privacy"
	nodeOptimizer  = "optimizer"
	nodeDecide     = "decide"
)

// Router labels
const (
	routeProceed        = "proceed"
	routeReResearch     = "re_research"
	routeIterate        = "iterate"
	routeRefineResearch = "refine_research"
	routeEnd            = "end"
)

// terminal marks the end of the graph in routing tables
const terminal = ""

type nodeFunc func(ctx context.Context, state *DecisionState) StatePatch

type routerFunc func(state *DecisionState) string

// nodeDef is one row of the graph table: a node either has a fixed next
// node or a router selecting among labeled targets
type nodeDef struct {
	run     nodeFunc
	next    string
	route   routerFunc
	targets map[string]string
}

// graph is the decision pipeline as data, interpreted by run
type graph struct {
	entry  string
	nodes  map[string]nodeDef
	health *healthTracker
	log    zerolog.Logger
}

// newGraph builds the fixed decision graph over the engine's node methods
func newGraph(e *Engine) *graph {
	return &graph{
		entry:  nodeResearcher,
		health: e.health,
		log:    e.log,
		nodes: map[string]nodeDef{
			nodeResearcher: {run: e.runResearcher, next: nodeValidator},
			nodeValidator: {
				run:   e.runValidator,
				route: validationRouter,
				targets: map[string]string{
					routeReResearch: nodeResearcher,
					routeProceed:    nodeBull,
				},
			},
			nodeBull:      {run: e.runBull, next: nodeBear},
			nodeBear:      {run: e.runBear, next: nodeAnalyzer},
			nodeAnalyzer:  {run: e.runAnalyzer, next: nodeRisk},
			nodeRisk:      {run: e.runRisk, next: nodePrivacy},
			nodePrivacy:   {run: e.runPrivacy, next: nodeOptimizer},
			nodeOptimizer: {run: e.runOptimizer, next: nodeDecide},
			nodeDecide: {
				run:   e.runDecide,
				route: shouldContinue,
				targets: map[string]string{
					routeIterate:        nodeResearcher,
					routeRefineResearch: nodeResearcher,
					routeEnd:            terminal,
				},
			},
		},
	}
}

// validationRouter decides whether validated research can proceed to debate
// or must be redone. Once the iteration budget is spent it always proceeds.
func validationRouter(state *DecisionState) string {
	if state.ValidationPassed || state.Iteration >= state.MaxIterations {
		return routeProceed
	}
	if len(state.DataGaps) > 0 {
		return routeReResearch
	}
	return routeProceed
}

// shouldContinue decides whether a synthesized tick ends or loops back for
// another pass
func shouldContinue(state *DecisionState) string {
	if state.FinalDecision != nil {
		return routeEnd
	}
	if state.Iteration >= state.MaxIterations {
		return routeEnd
	}
	if state.Confidence > 0.85 && state.ValidationScore > 0.8 {
		return routeEnd
	}
	if state.Confidence < 0.5 {
		return routeIterate
	}
	if state.ValidationScore < 0.6 {
		return routeRefineResearch
	}
	return routeEnd
}

// run interprets the graph over the state until a terminal transition. The
// step guard bounds runaway routing; hitting it is an invariant breach that
// ends the tick conservatively.
func (g *graph) run(ctx context.Context, state *DecisionState) {
	maxSteps := (state.MaxIterations + 2) * len(g.nodes) * 2

	current := g.entry
	for steps := 0; current != terminal; steps++ {
		if steps >= maxSteps {
			g.log.Error().
				Str("symbol", state.Symbol).
				Int("steps", steps).
				Msg("Graph step guard hit, forcing hold")
			state.apply(StatePatch{
				FinalDecision: &Decision{Action: ActionHold, Confidence: 0, Reason: "internal routing guard tripped"},
				Err:           ptr("routing guard tripped"),
			})
			return
		}

		def, ok := g.nodes[current]
		if !ok {
			g.log.Error().Str("node", current).Msg("Unknown graph node, forcing hold")
			state.apply(StatePatch{
				FinalDecision: &Decision{Action: ActionHold, Confidence: 0, Reason: "internal graph error"},
			})
			return
		}

		patch := def.run(ctx, state)
		state.apply(patch)

		errMsg := ""
		if patch.Err != nil {
			errMsg = *patch.Err
		}
		g.health.record(current, errMsg)

		if def.route != nil {
			label := def.route(state)
			next, ok := def.targets[label]
			if !ok {
				next = terminal
			}
			if next == nodeResearcher && label == routeReResearch {
				// Re-research consumes iteration budget so the
				// researcher/validator loop terminates
				state.apply(StatePatch{IterationDelta: 1})
			}
			current = next
			continue
		}
		current = def.next
	}
}
