package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luoxifan/agentgraph/types"
)

func TestExecute_SingleNodeNoSuccessors(t *testing.T) {
	node := newStubNode("only", "")
	f := New("single").Start(node)
	store := NewContextStore()

	out, err := f.Execute(context.Background(), store, &types.AgentInput{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "only-result", out.Result)

	history := store.History()
	require.Len(t, history, 1)
	assert.Equal(t, "only", history[0].AgentName)
	assert.Equal(t, ActionDefault, history[0].Action)
}

func TestExecute_ThreeNodeDefaultChain(t *testing.T) {
	a := newStubNode("a", "default")
	b := newStubNode("b", "default")
	c := newStubNode("c", "default")
	a.Then(b).Then(c)

	f := New("chain").Start(a)
	store := NewContextStore()

	out, err := f.Execute(context.Background(), store, &types.AgentInput{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "c-result", out.Result)

	history := store.History()
	require.Len(t, history, 3)
	assert.Equal(t, "a", history[0].AgentName)
	assert.Equal(t, "b", history[1].AgentName)
	assert.Equal(t, "c", history[2].AgentName)
	assert.Equal(t, []string{"default", "default", "default"}, store.BranchDecisions())
}

func TestExecute_ConditionalBranchRoutesStrictly(t *testing.T) {
	branch := newStubNode("branch", "complex")
	xVisited, yVisited := false, false
	x := NewNamedNode("x", &stubAgent{name: "x", onRun: func(*types.AgentInput) { xVisited = true }})
	y := NewNamedNode("y", &stubAgent{name: "y", onRun: func(*types.AgentInput) { yVisited = true }})
	branch.On("complex", x)
	branch.On("simple", y)

	f := New("branching").Start(branch)
	store := NewContextStore()

	_, err := f.Execute(context.Background(), store, &types.AgentInput{})
	require.NoError(t, err)

	assert.True(t, xVisited)
	assert.False(t, yVisited)
	assert.Equal(t, []string{"complex", "default"}, store.BranchDecisions())
}

func TestExecute_UnmatchedActionTerminatesFlow(t *testing.T) {
	// The branch node emits an action with no matching successor and no
	// default registered: the flow must stop right after that node's step
	// and return its output.
	branch := newStubNode("branch", "unmapped")
	never := newStubNode("never", "")
	branch.On("known", never)

	f := New("dead-end").Start(branch)
	store := NewContextStore()

	out, err := f.Execute(context.Background(), store, &types.AgentInput{})
	require.NoError(t, err)
	assert.Equal(t, "branch-result", out.Result)
	require.Len(t, store.History(), 1)
	assert.Equal(t, "unmapped", store.History()[0].Action)
}

func TestExecute_EmptyFlowIsError(t *testing.T) {
	f := New("empty")
	_, err := f.Execute(context.Background(), NewContextStore(), &types.AgentInput{})
	require.Error(t, err)
	assert.Equal(t, types.ErrEmptyFlow, types.GetErrorCode(err))
}

func TestExecute_NodeFailurePropagates(t *testing.T) {
	boom := errors.New("boom")
	a := newStubNode("a", "default")
	b := NewNamedNode("b", &stubAgent{name: "b", runErr: boom})
	c := newStubNode("c", "default")
	a.Then(b).Then(c)

	f := New("failing").Start(a)
	store := NewContextStore()

	_, err := f.Execute(context.Background(), store, &types.AgentInput{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))

	// No partial record for the failing step; prior records stay inspectable.
	summary := store.GetFlowSummary()
	assert.Equal(t, 1, summary.TotalSteps)
	assert.Equal(t, "a", summary.CurrentAgent)
}

func TestExecute_PlanFailurePropagates(t *testing.T) {
	boom := errors.New("bad plan")
	a := NewNamedNode("a", &stubAgent{name: "a", planErr: boom})

	f := New("plan-fail").Start(a)
	_, err := f.Execute(context.Background(), NewContextStore(), &types.AgentInput{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

func TestExecute_SubFlowRecordsInterleaveIntoSharedStore(t *testing.T) {
	// Child flow: two default-chained nodes.
	c1 := newStubNode("child-1", "default")
	c2 := newStubNode("child-2", "")
	c1.Then(c2)
	child := New("child").Start(c1)

	// Parent flow: entry -> child flow -> exit.
	entry := newStubNode("entry", "default")
	exit := newStubNode("exit", "")
	entry.Then(child.AsNode()).Then(exit)

	parent := New("parent").Start(entry)
	store := NewContextStore()

	out, err := parent.Execute(context.Background(), store, &types.AgentInput{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "exit-result", out.Result)

	var names []string
	for _, rec := range store.History() {
		names = append(names, rec.AgentName)
	}
	// Child steps appear in true chronological order, interleaved between
	// the parent's own steps. The sub-flow also records as one parent step.
	assert.Equal(t, []string{"entry", "child-1", "child-2", "child", "exit"}, names)
}

func TestExecute_NestedFlowDepthTwo(t *testing.T) {
	leaf := newStubNode("leaf", "")
	inner := New("inner").Start(leaf)
	mid := New("mid").Start(inner.AsNode())
	outer := New("outer").Start(mid.AsNode())

	store := NewContextStore()
	out, err := outer.Execute(context.Background(), store, &types.AgentInput{})
	require.NoError(t, err)
	assert.Equal(t, "leaf-result", out.Result)

	var names []string
	for _, rec := range store.History() {
		names = append(names, rec.AgentName)
	}
	assert.Equal(t, []string{"leaf", "inner", "mid"}, names)
}

func TestExecute_ParamPrecedence(t *testing.T) {
	// Most specific wins: input > node > flow > store run-level.
	var seen map[string]any
	agent := &stubAgent{name: "capture", onRun: func(in *types.AgentInput) { seen = in.Parameters }}
	node := NewNode(agent).SetParams(map[string]any{"b": "node", "c": "node", "d": "node"})

	f := New("params").Start(node)
	f.SetParams(map[string]any{"a": "flow", "b": "flow", "c": "flow", "d": "flow"})

	store := NewContextStore()
	store.SetFlowParams(map[string]any{"a": "store", "b": "store", "c": "store", "d": "store", "e": "store"})

	input := &types.AgentInput{Parameters: map[string]any{"d": "input"}}
	_, err := f.Execute(context.Background(), store, input)
	require.NoError(t, err)

	assert.Equal(t, "flow", seen["a"])
	assert.Equal(t, "node", seen["b"])
	assert.Equal(t, "node", seen["c"])
	assert.Equal(t, "input", seen["d"])
	assert.Equal(t, "store", seen["e"])
}

func TestExecute_InputOriginalIsDefault(t *testing.T) {
	var second *types.AgentInput
	a := newStubNode("a", "default")
	b := NewNamedNode("b", &stubAgent{name: "b", onRun: func(in *types.AgentInput) { second = in }})
	a.Then(b)

	f := New("original-mode").Start(a)
	_, err := f.Execute(context.Background(), NewContextStore(), &types.AgentInput{Query: "q"})
	require.NoError(t, err)

	require.NotNil(t, second)
	assert.Equal(t, "q", second.Query)
	_, hasPrev := second.Context[ContextKeyPreviousResult]
	assert.False(t, hasPrev)
}

func TestExecute_InputChainedThreadsPreviousResult(t *testing.T) {
	var second *types.AgentInput
	a := newStubNode("a", "default")
	b := NewNamedNode("b", &stubAgent{name: "b", onRun: func(in *types.AgentInput) { second = in }})
	a.Then(b)

	f := New("chained-mode", WithInputMode(InputChained)).Start(a)
	_, err := f.Execute(context.Background(), NewContextStore(), &types.AgentInput{Query: "q"})
	require.NoError(t, err)

	require.NotNil(t, second)
	assert.Equal(t, "q", second.Query)
	assert.Equal(t, "a-result", second.Context[ContextKeyPreviousResult])
}

// loopAgent emits "again" until it has run n times, then an unmapped action.
type loopAgent struct {
	name  string
	n     int
	count int
	onRun func(count int)
}

func (l *loopAgent) Name() string { return l.name }

func (l *loopAgent) Plan(ctx context.Context, input *types.AgentInput) (*types.PlanResult, error) {
	return &types.PlanResult{Plan: "loop"}, nil
}

func (l *loopAgent) Run(ctx context.Context, plan *types.PlanResult) (*types.AgentOutput, error) {
	l.count++
	if l.onRun != nil {
		l.onRun(l.count)
	}
	action := "again"
	if l.count >= l.n {
		action = "done"
	}
	return &types.AgentOutput{Result: l.count, Metadata: map[string]any{MetadataActionKey: action}}, nil
}

func TestExecute_CycleRunsUntilRoutingResolvesAbsence(t *testing.T) {
	// Cycles are representable and not rejected; termination is the
	// caller's routing responsibility.
	agent := &loopAgent{name: "looper", n: 4}
	node := NewNode(agent)
	node.On("again", node)

	f := New("cycle").Start(node)
	store := NewContextStore()

	out, err := f.Execute(context.Background(), store, &types.AgentInput{})
	require.NoError(t, err)
	assert.Equal(t, 4, out.Result)
	assert.Len(t, store.History(), 4)
	assert.Equal(t, []string{"again", "again", "again", "done"}, store.BranchDecisions())
}

func TestExecute_CancelledContextStopsCycle(t *testing.T) {
	// The looper would cycle 100 times; cancelling mid-run must stop the
	// traversal even though the agent never looks at its context.
	ctx, cancel := context.WithCancel(context.Background())
	agent := &loopAgent{name: "looper", n: 100, onRun: func(count int) {
		if count == 3 {
			cancel()
		}
	}}
	node := NewNode(agent)
	node.On("again", node)

	f := New("cancelled-cycle").Start(node)
	store := NewContextStore()

	_, err := f.Execute(ctx, store, &types.AgentInput{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, store.History(), 3)
}

func TestExecute_CancelledContextStopsBeforeFirstStep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	node := newStubNode("only", "")
	f := New("pre-cancelled").Start(node)
	store := NewContextStore()

	_, err := f.Execute(ctx, store, &types.AgentInput{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, store.History())
}

func TestExecute_StepTimeoutBoundsNodeExecution(t *testing.T) {
	blocked := NewNamedNode("blocked", &blockingAgent{})

	f := New("bounded", WithStepTimeout(20*time.Millisecond)).Start(blocked)
	_, err := f.Execute(context.Background(), NewContextStore(), &types.AgentInput{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestParseInputMode(t *testing.T) {
	mode, err := ParseInputMode("")
	require.NoError(t, err)
	assert.Equal(t, InputOriginal, mode)

	mode, err = ParseInputMode("original")
	require.NoError(t, err)
	assert.Equal(t, InputOriginal, mode)

	mode, err = ParseInputMode("chained")
	require.NoError(t, err)
	assert.Equal(t, InputChained, mode)

	_, err = ParseInputMode("bogus")
	require.Error(t, err)
}

// blockingAgent waits for its context to expire before returning.
type blockingAgent struct{}

func (b *blockingAgent) Name() string { return "blocked" }

func (b *blockingAgent) Plan(ctx context.Context, input *types.AgentInput) (*types.PlanResult, error) {
	return &types.PlanResult{Plan: "block"}, nil
}

func (b *blockingAgent) Run(ctx context.Context, plan *types.PlanResult) (*types.AgentOutput, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestExecute_NilStoreGetsFreshOne(t *testing.T) {
	node := newStubNode("only", "")
	f := New("nil-store").Start(node)

	out, err := f.Execute(context.Background(), nil, &types.AgentInput{})
	require.NoError(t, err)
	assert.Equal(t, "only-result", out.Result)
}

func TestExecute_SharedGraphConcurrentRuns(t *testing.T) {
	a := newStubNode("a", "default")
	b := newStubNode("b", "")
	a.Then(b)
	f := New("shared").Start(a)

	done := make(chan *ContextStore, 8)
	for i := 0; i < 8; i++ {
		go func() {
			store := NewContextStore()
			_, err := f.Execute(context.Background(), store, &types.AgentInput{})
			assert.NoError(t, err)
			done <- store
		}()
	}
	for i := 0; i < 8; i++ {
		store := <-done
		assert.Len(t, store.History(), 2)
	}
}
