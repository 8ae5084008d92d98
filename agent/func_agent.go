package agent

import (
	"context"

	"github.com/luoxifan/agentgraph/types"
)

// PlanFunc prepares a plan from an input.
type PlanFunc func(ctx context.Context, input *types.AgentInput) (*types.PlanResult, error)

// RunFunc executes a plan.
type RunFunc func(ctx context.Context, plan *types.PlanResult) (*types.AgentOutput, error)

// FuncAgent adapts plain functions into the agent contract, for inline agents
// that do not warrant a named type.
type FuncAgent struct {
	name string
	plan PlanFunc
	run  RunFunc
}

// NewFuncAgent creates a function-backed agent. A nil plan passes the input
// through as a plan carrying the query and parameters; a nil run echoes the
// plan back as the result.
func NewFuncAgent(name string, plan PlanFunc, run RunFunc) *FuncAgent {
	if name == "" {
		name = "func-agent"
	}
	return &FuncAgent{name: name, plan: plan, run: run}
}

func (a *FuncAgent) Name() string { return a.name }

func (a *FuncAgent) Plan(ctx context.Context, input *types.AgentInput) (*types.PlanResult, error) {
	if a.plan == nil {
		if input == nil {
			input = &types.AgentInput{}
		}
		return &types.PlanResult{Plan: input.Query, Parameters: input.Parameters}, nil
	}
	return a.plan(ctx, input)
}

func (a *FuncAgent) Run(ctx context.Context, plan *types.PlanResult) (*types.AgentOutput, error) {
	if a.run == nil {
		if plan == nil {
			plan = &types.PlanResult{}
		}
		return &types.AgentOutput{Result: plan.Plan, Plan: plan.Plan}, nil
	}
	return a.run(ctx, plan)
}
