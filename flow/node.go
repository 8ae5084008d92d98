package flow

import (
	"context"

	"github.com/luoxifan/agentgraph/types"
)

// ActionDefault is the reserved action label used as fallback routing.
const ActionDefault = "default"

// MetadataActionKey is the output metadata entry the engine reads to derive
// the routing action.
const MetadataActionKey = "action"

// AgentNode wires an Agent into a graph: it carries the node's parameter bag
// and its outgoing successor mapping keyed by action label.
//
// A node may be registered as successor of any number of parents; the graph
// may be a DAG and cycles are representable (and not rejected). Wire the
// graph fully before the first run: nodes are read-only during traversal and
// may then be shared by independent flow invocations.
type AgentNode struct {
	name       string
	agent      Agent
	params     map[string]any
	successors map[string]*AgentNode
}

// NewNode wraps an agent in a graph node named after the agent.
func NewNode(agent Agent) *AgentNode {
	return NewNamedNode(agent.Name(), agent)
}

// NewNamedNode wraps an agent under an explicit node name. Name uniqueness
// is not enforced by the engine.
func NewNamedNode(name string, agent Agent) *AgentNode {
	return &AgentNode{
		name:       name,
		agent:      agent,
		params:     make(map[string]any),
		successors: make(map[string]*AgentNode),
	}
}

// Name returns the node name.
func (n *AgentNode) Name() string { return n.name }

// Agent returns the wrapped agent.
func (n *AgentNode) Agent() Agent { return n.agent }

// SetParams replaces the node's parameter bag.
func (n *AgentNode) SetParams(params map[string]any) *AgentNode {
	n.params = make(map[string]any, len(params))
	for k, v := range params {
		n.params[k] = v
	}
	return n
}

// SetParam sets a single node parameter.
func (n *AgentNode) SetParam(key string, value any) *AgentNode {
	n.params[key] = value
	return n
}

// Params returns a copy of the node's parameter bag.
func (n *AgentNode) Params() map[string]any {
	params := make(map[string]any, len(n.params))
	for k, v := range n.params {
		params[k] = v
	}
	return params
}

// On registers next as the successor for the given action label and returns
// next, so conditional chains compose left to right:
//
//	branch.On("complex", heavy).Then(report)
func (n *AgentNode) On(action string, next *AgentNode) *AgentNode {
	n.successors[action] = next
	return next
}

// Then registers next under the default action label and returns next, so
// a.Then(b).Then(c) builds a three-node linear default path.
func (n *AgentNode) Then(next *AgentNode) *AgentNode {
	return n.On(ActionDefault, next)
}

// NextNode resolves the successor for an action: the exact match when
// registered, else the default successor, else absent. Absence is the normal
// flow-termination outcome, not an error.
func (n *AgentNode) NextNode(action string) (*AgentNode, bool) {
	if next, ok := n.successors[action]; ok {
		return next, true
	}
	if next, ok := n.successors[ActionDefault]; ok {
		return next, true
	}
	return nil, false
}

// Successors returns a copy of the successor mapping.
func (n *AgentNode) Successors() map[string]*AgentNode {
	successors := make(map[string]*AgentNode, len(n.successors))
	for action, next := range n.successors {
		successors[action] = next
	}
	return successors
}

// Execute runs the combined operation for a standalone node: the node's
// parameter bag is merged into the input (input parameters win), then the
// agent plans and runs. Flow traversal performs its own merge including the
// flow-level bags and does not go through this method.
func (n *AgentNode) Execute(ctx context.Context, input *types.AgentInput) (*types.AgentOutput, error) {
	in := input.Clone()
	in.Parameters = mergeParams(n.params, in.Parameters)
	plan, err := n.agent.Plan(ctx, in)
	if err != nil {
		return nil, err
	}
	return n.agent.Run(ctx, plan)
}

// ActionFrom derives the routing action from a node output: the "action"
// metadata entry verbatim when it is a non-empty string, otherwise the
// default label.
func ActionFrom(out *types.AgentOutput) string {
	if out == nil {
		return ActionDefault
	}
	if v, ok := out.Metadata[MetadataActionKey]; ok {
		if action, ok := v.(string); ok && action != "" {
			return action
		}
	}
	return ActionDefault
}
