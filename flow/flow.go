package flow

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/luoxifan/agentgraph/types"
)

// InputMode controls what each node of a run receives as input.
type InputMode int

const (
	// InputOriginal hands every node the flow's original input. Nodes that
	// need upstream results consult the shared ContextStore. This is the
	// default.
	InputOriginal InputMode = iota
	// InputChained places the previous node's result under the
	// ContextKeyPreviousResult context entry of the next node's input.
	InputChained
)

// ContextKeyPreviousResult is the input context entry holding the upstream
// result in InputChained mode.
const ContextKeyPreviousResult = "previous_result"

// ParseInputMode maps a configuration value to an InputMode. The empty string
// means InputOriginal.
func ParseInputMode(s string) (InputMode, error) {
	switch s {
	case "", "original":
		return InputOriginal, nil
	case "chained":
		return InputChained, nil
	default:
		return InputOriginal, fmt.Errorf("unknown input mode %q (want original or chained)", s)
	}
}

// MetricsRecorder abstracts metrics collection for flow runs. The
// internal/metrics collector implements it; the interface lives here so the
// engine does not depend on a concrete metrics backend.
type MetricsRecorder interface {
	// FlowCompleted records one finished run with its terminal status
	// ("completed" or "failed").
	FlowCompleted(flow, status string, duration time.Duration)
	// NodeExecuted records one executed node and the action it emitted.
	NodeExecuted(flow, node, action string, duration time.Duration)
}

// Flow drives execution from a start node to termination, resolving
// successors via the actions emitted by each node's output.
//
// Flow itself satisfies the Agent contract, so a complete flow can be wired
// as a node of another flow. A Flow carries no run-scoped state; all of it
// lives in the ContextStore passed to Execute, and the traversal cursor is a
// local of each run. One Flow value may therefore serve concurrent runs as
// long as each run gets its own store.
type Flow struct {
	name        string
	start       *AgentNode
	params      map[string]any
	inputMode   InputMode
	stepTimeout time.Duration
	logger      *zap.Logger
	tracer      trace.Tracer
	metrics     MetricsRecorder
}

// Option configures a Flow.
type Option func(*Flow)

// WithLogger sets the flow's zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Flow) { f.logger = logger }
}

// WithInputMode selects the input threading policy.
func WithInputMode(mode InputMode) Option {
	return func(f *Flow) { f.inputMode = mode }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(f *Flow) { f.metrics = m }
}

// WithStepTimeout bounds each node execution (plan plus run) with a context
// deadline. Zero disables the bound.
func WithStepTimeout(d time.Duration) Option {
	return func(f *Flow) { f.stepTimeout = d }
}

// New creates a flow with the given name.
func New(name string, opts ...Option) *Flow {
	f := &Flow{
		name:   name,
		params: make(map[string]any),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With(zap.String("component", "flow"), zap.String("flow", name))
	f.tracer = otel.Tracer("agentgraph/flow")
	return f
}

// Start sets the flow's start node.
func (f *Flow) Start(node *AgentNode) *Flow {
	f.start = node
	return f
}

// StartNode returns the current start node, or nil when unset.
func (f *Flow) StartNode() *AgentNode { return f.start }

// SetParams replaces the flow's parameter bag.
func (f *Flow) SetParams(params map[string]any) *Flow {
	f.params = make(map[string]any, len(params))
	for k, v := range params {
		f.params[k] = v
	}
	return f
}

// SetParam sets a single flow parameter.
func (f *Flow) SetParam(key string, value any) *Flow {
	f.params[key] = value
	return f
}

// Params returns a copy of the flow's parameter bag.
func (f *Flow) Params() map[string]any {
	params := make(map[string]any, len(f.params))
	for k, v := range f.params {
		params[k] = v
	}
	return params
}

// AsNode wraps the flow in an AgentNode so it can be wired into a parent
// graph.
func (f *Flow) AsNode() *AgentNode { return NewNode(f) }

// Name returns the flow name.
func (f *Flow) Name() string { return f.name }

// Execute drives the flow from the start node to termination and returns the
// last executed node's output.
//
// Each step executes the current node (plan, then run), derives the routing
// action from the output metadata, appends a FlowRecord to the store, and
// resolves the next node. The run terminates when no successor resolves. A
// node failure aborts the run and propagates to the caller; no FlowRecord is
// written for the failing step, but every record written before it stays
// inspectable through the store.
//
// A nil store is replaced by a fresh one. Passing nil is only sensible when
// the caller does not inspect the history afterwards.
func (f *Flow) Execute(ctx context.Context, store *ContextStore, input *types.AgentInput) (*types.AgentOutput, error) {
	if f.start == nil {
		return nil, types.NewError(types.ErrEmptyFlow, fmt.Sprintf("flow %q has no start node", f.name))
	}
	if store == nil {
		store = NewContextStore()
	}
	if input == nil {
		input = &types.AgentInput{}
	}
	ctx = WithContextStore(ctx, store)

	start := time.Now()
	f.logger.Debug("starting flow run",
		zap.String("run_id", store.RunID()),
		zap.String("start_node", f.start.Name()),
	)

	// The cursor is owned by this run. Nodes are never mutated during
	// traversal, so one graph topology can serve concurrent runs.
	current := f.start
	stepInput := input
	steps := 0
	var out *types.AgentOutput

	for current != nil {
		// Cancellation is honored between steps even when nodes ignore
		// their context; a cyclic graph stops once the caller's context
		// expires.
		if err := ctx.Err(); err != nil {
			f.recordCompletion("failed", time.Since(start))
			f.logger.Error("flow run interrupted",
				zap.String("run_id", store.RunID()),
				zap.String("node", current.Name()),
				zap.Int("steps_completed", steps),
				zap.Error(err),
			)
			return nil, fmt.Errorf("run interrupted before node %s: %w", current.Name(), err)
		}

		var err error
		out, err = f.executeNode(ctx, store, current, stepInput)
		if err != nil {
			f.recordCompletion("failed", time.Since(start))
			f.logger.Error("flow run failed",
				zap.String("run_id", store.RunID()),
				zap.String("node", current.Name()),
				zap.Int("steps_completed", steps),
				zap.Error(err),
			)
			return nil, fmt.Errorf("node %s failed: %w", current.Name(), err)
		}

		action := ActionFrom(out)
		store.RecordFlowStep(current.Name(), action, out.Result, out.Metadata)
		steps++

		next, ok := current.NextNode(action)
		if !ok {
			f.logger.Debug("no successor for action, flow complete",
				zap.String("node", current.Name()),
				zap.String("action", action),
			)
			break
		}

		if f.inputMode == InputChained {
			stepInput = chainInput(input, out)
		}
		current = next
	}

	f.recordCompletion("completed", time.Since(start))
	f.logger.Debug("flow run completed",
		zap.String("run_id", store.RunID()),
		zap.Int("steps", steps),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// executeNode runs one node: merges the parameter bags into the input, plans,
// then runs. Precedence on key collision, most specific wins: input
// parameters over node parameters over flow parameters over the store's
// run-level parameters.
func (f *Flow) executeNode(ctx context.Context, store *ContextStore, node *AgentNode, input *types.AgentInput) (*types.AgentOutput, error) {
	in := input.Clone()
	in.Parameters = mergeParams(store.FlowParams(), f.params, node.Params(), in.Parameters)

	if f.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.stepTimeout)
		defer cancel()
	}

	ctx, span := f.tracer.Start(ctx, "flow.node",
		trace.WithAttributes(
			attribute.String("flow.name", f.name),
			attribute.String("flow.node", node.Name()),
		),
	)
	defer span.End()

	nodeStart := time.Now()

	plan, err := node.agent.Plan(ctx, in)
	if err != nil {
		span.SetStatus(codes.Error, "plan failed")
		span.RecordError(err)
		return nil, fmt.Errorf("plan: %w", err)
	}

	out, err := node.agent.Run(ctx, plan)
	duration := time.Since(nodeStart)
	if err != nil {
		span.SetStatus(codes.Error, "run failed")
		span.RecordError(err)
		return nil, fmt.Errorf("run: %w", err)
	}
	if out == nil {
		out = &types.AgentOutput{}
	}

	action := ActionFrom(out)
	span.SetAttributes(attribute.String("flow.action", action))
	if f.metrics != nil {
		f.metrics.NodeExecuted(f.name, node.Name(), action, duration)
	}
	f.logger.Debug("node executed",
		zap.String("node", node.Name()),
		zap.String("action", action),
		zap.Duration("duration", duration),
	)
	return out, nil
}

func (f *Flow) recordCompletion(status string, duration time.Duration) {
	if f.metrics != nil {
		f.metrics.FlowCompleted(f.name, status, duration)
	}
}

// chainInput builds the next step's input in InputChained mode: a clone of
// the flow's original input with the upstream result under
// ContextKeyPreviousResult.
func chainInput(original *types.AgentInput, out *types.AgentOutput) *types.AgentInput {
	in := original.Clone()
	if in.Context == nil {
		in.Context = make(map[string]any, 1)
	}
	in.Context[ContextKeyPreviousResult] = out.Result
	return in
}

// Plan implements the Agent contract for flow-as-node composition. The plan
// captures the original input so Run can replay it into the sub-flow.
func (f *Flow) Plan(ctx context.Context, input *types.AgentInput) (*types.PlanResult, error) {
	return &types.PlanResult{
		Plan:       fmt.Sprintf("run sub-flow %q", f.name),
		Parameters: input.Parameters,
		Metadata:   map[string]any{metadataFlowInput: input},
	}, nil
}

// Run implements the Agent contract: it executes the whole sub-flow as one
// logical step of the parent. The shared ContextStore travels through the
// context, so the sub-flow's steps interleave into the parent's history in
// true execution order.
func (f *Flow) Run(ctx context.Context, plan *types.PlanResult) (*types.AgentOutput, error) {
	input := &types.AgentInput{Parameters: plan.Parameters}
	if captured, ok := plan.Metadata[metadataFlowInput].(*types.AgentInput); ok {
		input = captured
	}
	store, _ := ContextStoreFrom(ctx)
	return f.Execute(ctx, store, input)
}

// metadataFlowInput carries the captured input between a sub-flow's plan and
// run phases.
const metadataFlowInput = "flow_input"
