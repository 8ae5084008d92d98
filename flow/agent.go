package flow

import (
	"context"

	"github.com/luoxifan/agentgraph/types"
)

// Agent is the two-phase execution contract shared by leaf agents and flows.
// Plan is a pure transform preparing execution parameters; Run performs the
// actual work and may do external I/O.
//
// Both leaf units (agent.ToolAgent, agent.LLMAgent, ...) and *Flow implement
// this interface, which is what makes a sub-flow usable as a node.
type Agent interface {
	// Name returns the agent's display name.
	Name() string
	// Plan prepares execution parameters from the input.
	Plan(ctx context.Context, input *types.AgentInput) (*types.PlanResult, error)
	// Run executes the plan and returns the output.
	Run(ctx context.Context, plan *types.PlanResult) (*types.AgentOutput, error)
}

// mergeParams overlays parameter bags left to right; later bags win on key
// collision. Returns nil when every bag is empty so inputs stay compact.
func mergeParams(bags ...map[string]any) map[string]any {
	var merged map[string]any
	for _, bag := range bags {
		if len(bag) == 0 {
			continue
		}
		if merged == nil {
			merged = make(map[string]any)
		}
		for k, v := range bag {
			merged[k] = v
		}
	}
	return merged
}
