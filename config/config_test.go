package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luoxifan/agentgraph/flow"
	"github.com/luoxifan/agentgraph/types"
)

// passAgent emits a fixed result on the default action.
type passAgent struct {
	name   string
	onRun  func(in *types.AgentInput)
	result any
}

func (p *passAgent) Name() string { return p.name }

func (p *passAgent) Plan(ctx context.Context, input *types.AgentInput) (*types.PlanResult, error) {
	if p.onRun != nil {
		p.onRun(input)
	}
	return &types.PlanResult{Plan: p.name}, nil
}

func (p *passAgent) Run(ctx context.Context, plan *types.PlanResult) (*types.AgentOutput, error) {
	return &types.AgentOutput{Result: p.result}, nil
}

func TestFlowConfig_EngineOptionsCarryInputMode(t *testing.T) {
	opts, err := FlowConfig{InputMode: "chained"}.EngineOptions()
	require.NoError(t, err)

	// A flow built with the options must thread the upstream result into
	// the next node's input.
	var second *types.AgentInput
	a := flow.NewNode(&passAgent{name: "a", result: "a-result"})
	b := flow.NewNode(&passAgent{name: "b", onRun: func(in *types.AgentInput) { second = in }})
	a.Then(b)

	f := flow.New("chained", opts...).Start(a)
	_, err = f.Execute(context.Background(), flow.NewContextStore(), &types.AgentInput{Query: "q"})
	require.NoError(t, err)

	require.NotNil(t, second)
	assert.Equal(t, "a-result", second.Context[flow.ContextKeyPreviousResult])
}

func TestFlowConfig_EngineOptionsStepTimeout(t *testing.T) {
	opts, err := FlowConfig{InputMode: "original", StepTimeout: 50 * time.Millisecond}.EngineOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 2)
}

func TestFlowConfig_EngineOptionsRejectUnknownMode(t *testing.T) {
	_, err := FlowConfig{InputMode: "sideways"}.EngineOptions()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sideways")
}
