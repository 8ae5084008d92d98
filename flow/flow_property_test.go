package flow

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"pgregory.net/rapid"
)

// Property: for any acyclic default chain whose nodes emit arbitrary actions,
// the run terminates and records exactly one history entry per node, because
// every action either matches a registered successor or falls back to the
// default edge.
func TestProperty_AcyclicChainTerminatesWithOneEntryPerNode(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("default chain of n nodes yields exactly n history entries", prop.ForAll(
		func(actions []string) bool {
			if len(actions) == 0 {
				return true
			}

			nodes := make([]*AgentNode, len(actions))
			for i, action := range actions {
				nodes[i] = NewNamedNode(
					fmt.Sprintf("node-%d", i),
					&stubAgent{name: fmt.Sprintf("node-%d", i), action: action, result: i},
				)
				if i > 0 {
					nodes[i-1].Then(nodes[i])
				}
			}

			store := NewContextStore()
			f := New("prop-chain").Start(nodes[0])
			out, err := f.Execute(context.Background(), store, nil)
			if err != nil {
				t.Logf("Execute failed: %v", err)
				return false
			}
			if out.Result != len(actions)-1 {
				t.Logf("unexpected terminal result: %v", out.Result)
				return false
			}
			return len(store.History()) == len(actions)
		},
		gen.SliceOf(gen.OneConstOf("default", "retry", "complex", "simple", "")),
	))

	properties.Property("branch decisions mirror the emitted actions", prop.ForAll(
		func(actions []string) bool {
			if len(actions) == 0 {
				return true
			}

			nodes := make([]*AgentNode, len(actions))
			for i, action := range actions {
				nodes[i] = NewNamedNode(
					fmt.Sprintf("node-%d", i),
					&stubAgent{name: fmt.Sprintf("node-%d", i), action: action},
				)
				if i > 0 {
					nodes[i-1].Then(nodes[i])
				}
			}

			store := NewContextStore()
			if _, err := New("prop-actions").Start(nodes[0]).Execute(context.Background(), store, nil); err != nil {
				t.Logf("Execute failed: %v", err)
				return false
			}

			decisions := store.BranchDecisions()
			if len(decisions) != len(actions) {
				return false
			}
			for i, action := range actions {
				want := action
				if want == "" {
					want = ActionDefault
				}
				if decisions[i] != want {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.OneConstOf("default", "retry", "complex", "simple", "")),
	))

	properties.TestingRun(t)
}

// Property: RecordFlowStep is strictly append-only; after n calls the history
// has length n and each entry matches its call's arguments in call order.
func TestProperty_RecordFlowStepAppendOnly(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		store := NewContextStore()

		n := rapid.IntRange(0, 50).Draw(rt, "steps")
		agents := make([]string, n)
		actions := make([]string, n)
		for i := 0; i < n; i++ {
			agents[i] = rapid.StringMatching(`[a-z]{1,8}`).Draw(rt, "agent")
			actions[i] = rapid.SampledFrom([]string{"default", "complex", "simple", "failure"}).Draw(rt, "action")
			store.RecordFlowStep(agents[i], actions[i], i, nil)
		}

		history := store.History()
		if len(history) != n {
			rt.Fatalf("history length %d, want %d", len(history), n)
		}
		for i, rec := range history {
			if rec.AgentName != agents[i] || rec.Action != actions[i] || rec.Result != i {
				rt.Fatalf("entry %d does not match its call: %+v", i, rec)
			}
			if i > 0 && rec.Timestamp.Before(history[i-1].Timestamp) {
				rt.Fatalf("entry %d out of chronological order", i)
			}
		}
		if n > 0 {
			current, ok := store.CurrentAgent()
			if !ok || current != agents[n-1] {
				rt.Fatalf("current agent %q, want %q", current, agents[n-1])
			}
		}
	})
}
