// Package agent provides the built-in flow.Agent implementations: a
// keyword-driven tool agent, an LLM function-calling agent, and a function
// adapter for inline agents.
package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/luoxifan/agentgraph/flow"
	"github.com/luoxifan/agentgraph/tools"
	"github.com/luoxifan/agentgraph/types"
)

// Parameter keys the agents read from their merged parameter bag.
const (
	// ParamSuccessAction names the action emitted when every planned tool
	// succeeded. Defaults to no action (router falls back to "default").
	ParamSuccessAction = "success_action"
	// ParamFailureAction names the action emitted when any planned tool
	// failed or was missing.
	ParamFailureAction = "failure_action"
)

// maxInferredTools caps keyword-based tool selection.
const maxInferredTools = 3

// ToolAgent selects tools by simple keyword matching against the query and
// executes them through a tools.Executor. It needs no model backend, which
// makes it the cheapest agent for deterministic flows.
type ToolAgent struct {
	name     string
	registry *tools.Registry
	executor *tools.Executor
	logger   *zap.Logger
}

// NewToolAgent creates a tool agent over the given registry. A nil registry
// falls back to the package default registry.
func NewToolAgent(name string, registry *tools.Registry, logger *zap.Logger) *ToolAgent {
	if name == "" {
		name = "tool-agent"
	}
	if registry == nil {
		registry = tools.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ToolAgent{
		name:     name,
		registry: registry,
		executor: tools.NewExecutor(registry, logger),
		logger:   logger.With(zap.String("component", "tool_agent"), zap.String("agent", name)),
	}
}

func (a *ToolAgent) Name() string { return a.name }

// Plan selects tools: explicit input.Tools win, otherwise tools are inferred
// from query keywords.
func (a *ToolAgent) Plan(ctx context.Context, input *types.AgentInput) (*types.PlanResult, error) {
	if input == nil {
		input = &types.AgentInput{}
	}

	toolsToUse := input.Tools
	if len(toolsToUse) == 0 {
		toolsToUse = a.inferTools(input.Query)
	}

	a.logger.Debug("planned tools",
		zap.String("query", input.Query),
		zap.Strings("tools", toolsToUse),
	)

	return &types.PlanResult{
		Plan:       fmt.Sprintf("execute tools %s for query: %s", strings.Join(toolsToUse, ", "), input.Query),
		ToolsToUse: toolsToUse,
		Parameters: input.Parameters,
		Metadata:   map[string]any{"agent_type": "ToolAgent"},
	}, nil
}

// Run executes the planned tools sequentially. Tool failures are captured in
// the result, not returned as errors: the flow keeps running and routing can
// branch on the failure action instead.
func (a *ToolAgent) Run(ctx context.Context, plan *types.PlanResult) (*types.AgentOutput, error) {
	if plan == nil {
		plan = &types.PlanResult{}
	}

	results := make([]map[string]any, 0, len(plan.ToolsToUse))
	toolsUsed := make([]string, 0, len(plan.ToolsToUse))
	allOK := true

	for _, name := range plan.ToolsToUse {
		res := a.executor.Run(ctx, name, toolArgs(plan.Parameters, name))
		if res.Success {
			toolsUsed = append(toolsUsed, name)
			results = append(results, map[string]any{"tool": name, "result": res.Result})
		} else {
			allOK = false
			results = append(results, map[string]any{"tool": name, "error": res.Error})
		}
	}

	metadata := map[string]any{
		"agent_type":       "ToolAgent",
		"total_tools":      len(plan.ToolsToUse),
		"successful_tools": len(toolsUsed),
	}
	if action := outcomeAction(plan.Parameters, allOK); action != "" {
		metadata[flow.MetadataActionKey] = action
	}

	return &types.AgentOutput{
		Result:    results,
		Plan:      plan.Plan,
		ToolsUsed: toolsUsed,
		Metadata:  metadata,
	}, nil
}

// inferTools matches registered tool names and category keywords against the
// query.
func (a *ToolAgent) inferTools(query string) []string {
	queryLower := strings.ToLower(query)
	var selected []string

	fileKeywords := []string{"file", "read", "write", "dir"}
	mathKeywords := []string{"math", "calculate", "compute", "add", "multiply", "divide"}

	for _, name := range a.registry.List() {
		nameLower := strings.ToLower(name)
		switch {
		case strings.Contains(queryLower, nameLower):
			selected = append(selected, name)
		case containsAny(queryLower, fileKeywords) && strings.Contains(nameLower, "file"):
			selected = append(selected, name)
		case containsAny(queryLower, mathKeywords) && hasTag(a.registry, name, "math"):
			selected = append(selected, name)
		}
		if len(selected) == maxInferredTools {
			break
		}
	}
	return selected
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func hasTag(registry *tools.Registry, name, tag string) bool {
	tool, ok := registry.Get(name)
	if !ok {
		return false
	}
	for _, t := range tool.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// toolArgs extracts the per-tool argument map from the plan parameter bag.
func toolArgs(params map[string]any, tool string) map[string]any {
	if params == nil {
		return nil
	}
	if args, ok := params[tool].(map[string]any); ok {
		return args
	}
	return nil
}

// outcomeAction resolves the routing action for a run outcome from the
// parameter bag.
func outcomeAction(params map[string]any, success bool) string {
	key := ParamFailureAction
	if success {
		key = ParamSuccessAction
	}
	if action, ok := params[key].(string); ok {
		return action
	}
	return ""
}
