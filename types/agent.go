package types

// AgentInput carries a query and its surrounding context into an agent's
// plan phase.
type AgentInput struct {
	// Query is the user query or instruction.
	Query string `json:"query"`
	// Context holds additional context information.
	Context map[string]any `json:"context,omitempty"`
	// Tools restricts execution to the named tools, when set.
	Tools []string `json:"tools,omitempty"`
	// Parameters holds tool parameters and engine-merged parameter bags.
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Clone returns a copy of the input with fresh Context and Parameters maps.
// The engine merges parameter bags into a clone so the caller's input is
// never mutated by a run.
func (in *AgentInput) Clone() *AgentInput {
	if in == nil {
		return &AgentInput{}
	}
	out := &AgentInput{Query: in.Query}
	if in.Tools != nil {
		out.Tools = append([]string(nil), in.Tools...)
	}
	if in.Context != nil {
		out.Context = make(map[string]any, len(in.Context))
		for k, v := range in.Context {
			out.Context[k] = v
		}
	}
	if in.Parameters != nil {
		out.Parameters = make(map[string]any, len(in.Parameters))
		for k, v := range in.Parameters {
			out.Parameters[k] = v
		}
	}
	return out
}

// PlanResult is the outcome of an agent's plan phase.
type PlanResult struct {
	// Plan is a human-readable description of the execution plan.
	Plan string `json:"plan"`
	// ToolsToUse lists the tools the run phase should invoke.
	ToolsToUse []string `json:"tools_to_use,omitempty"`
	// Parameters holds per-tool arguments keyed by tool name.
	Parameters map[string]any `json:"parameters,omitempty"`
	// Metadata holds additional planning metadata.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// AgentOutput is the outcome of an agent's run phase.
type AgentOutput struct {
	// Result is the execution result.
	Result any `json:"result"`
	// Plan echoes the plan that produced this output.
	Plan string `json:"plan,omitempty"`
	// ToolsUsed lists the tools that were actually invoked.
	ToolsUsed []string `json:"tools_used,omitempty"`
	// Metadata holds additional output metadata. The flow engine reads the
	// "action" entry to route to the next node.
	Metadata map[string]any `json:"metadata,omitempty"`
}
