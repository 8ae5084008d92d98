// Package flow implements the graph-based orchestration engine: agent nodes
// wired by action-labeled successor edges, a traversal orchestrator, and the
// shared per-run context store.
//
// A graph is built from AgentNode values around any Agent implementation:
//
//	a := flow.NewNode(fetch)
//	b := flow.NewNode(classify)
//	x := flow.NewNode(complexPath)
//	y := flow.NewNode(simplePath)
//
//	a.Then(b)            // default transition a -> b
//	b.On("complex", x)   // conditional transition on action "complex"
//	b.On("simple", y)
//
//	f := flow.New("triage").Start(a)
//	store := flow.NewContextStore()
//	out, err := f.Execute(ctx, store, &types.AgentInput{Query: "..."})
//
// Routing follows the "action" metadata entry of each node's output, falling
// back to the reserved "default" label. The flow terminates when no successor
// resolves for the emitted action; that is the normal end of a run, not an
// error. Because *Flow itself satisfies the Agent contract, a complete flow
// can be registered as a node of another flow; nested runs record into the
// same shared ContextStore in true execution order.
//
// The engine performs no cycle detection. A cyclic graph whose routing never
// resolves to absence runs until the caller's context is cancelled or its
// deadline fires; cancellation is checked before every step.
package flow
