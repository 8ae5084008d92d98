package flow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FlowRecord is one immutable log entry for a single executed node. Records
// are created by the orchestrator after each node execution and never mutated
// afterwards.
type FlowRecord struct {
	AgentName string         `json:"agent_name"`
	Action    string         `json:"action"`
	Result    any            `json:"result"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// FlowSummary is a read-only aggregate view over a ContextStore.
type FlowSummary struct {
	RunID           string         `json:"run_id"`
	TotalSteps      int            `json:"total_steps"`
	CurrentAgent    string         `json:"current_agent,omitempty"`
	BranchDecisions []string       `json:"branch_decisions"`
	DistinctAgents  []string       `json:"distinct_agents"`
	ActionCounts    map[string]int `json:"action_counts"`
}

// Snapshot is a serializable copy of a ContextStore, used by the persistence
// stores. Persisting a store is an external concern; the engine only exposes
// the copy.
type Snapshot struct {
	RunID           string         `json:"run_id"`
	CurrentAgent    string         `json:"current_agent,omitempty"`
	History         []FlowRecord   `json:"history"`
	BranchDecisions []string       `json:"branch_decisions"`
	FlowParams      map[string]any `json:"flow_params,omitempty"`
	TakenAt         time.Time      `json:"taken_at"`
}

// ContextStore is the mutable, shared execution record threaded through one
// flow run. It accumulates the ordered flow history and branch decisions.
//
// A ContextStore is not safe for sharing across two simultaneously executing
// flow invocations; allocate one store per concurrent run. The internal lock
// only protects readers (summaries, snapshots) observing a run in progress.
type ContextStore struct {
	mu              sync.RWMutex
	runID           string
	flowHistory     []FlowRecord
	branchDecisions []string
	currentAgent    string
	flowParams      map[string]any
}

// NewContextStore creates an empty store with a fresh run ID.
func NewContextStore() *ContextStore {
	return &ContextStore{
		runID:      uuid.NewString(),
		flowParams: make(map[string]any),
	}
}

// RestoreContextStore rebuilds a store from a snapshot.
func RestoreContextStore(snap *Snapshot) *ContextStore {
	s := NewContextStore()
	if snap == nil {
		return s
	}
	if snap.RunID != "" {
		s.runID = snap.RunID
	}
	s.currentAgent = snap.CurrentAgent
	s.flowHistory = append(s.flowHistory, snap.History...)
	s.branchDecisions = append(s.branchDecisions, snap.BranchDecisions...)
	for k, v := range snap.FlowParams {
		s.flowParams[k] = v
	}
	return s
}

// RunID returns the store's run identifier.
func (s *ContextStore) RunID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID
}

// RecordFlowStep appends a FlowRecord, updates the current agent, and appends
// the action to the branch decisions. It always succeeds; agent names are not
// validated for uniqueness.
func (s *ContextStore) RecordFlowStep(agentName, action string, result any, metadata map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flowHistory = append(s.flowHistory, FlowRecord{
		AgentName: agentName,
		Action:    action,
		Result:    result,
		Metadata:  metadata,
		Timestamp: time.Now(),
	})
	s.branchDecisions = append(s.branchDecisions, action)
	s.currentAgent = agentName
}

// History returns a copy of the flow history in execution order.
func (s *ContextStore) History() []FlowRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := make([]FlowRecord, len(s.flowHistory))
	copy(history, s.flowHistory)
	return history
}

// BranchDecisions returns a copy of the chosen actions in execution order.
func (s *ContextStore) BranchDecisions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	decisions := make([]string, len(s.branchDecisions))
	copy(decisions, s.branchDecisions)
	return decisions
}

// CurrentAgent returns the name of the most recently executed node. The
// second return is false before any execution and after a reset.
func (s *ContextStore) CurrentAgent() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentAgent, s.currentAgent != ""
}

// GetFlowSummary returns aggregate statistics over the run so far. It never
// mutates state.
func (s *ContextStore) GetFlowSummary() FlowSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	decisions := make([]string, len(s.branchDecisions))
	copy(decisions, s.branchDecisions)

	seen := make(map[string]bool, len(s.flowHistory))
	var distinct []string
	actionCounts := make(map[string]int, len(s.branchDecisions))
	for _, rec := range s.flowHistory {
		if !seen[rec.AgentName] {
			seen[rec.AgentName] = true
			distinct = append(distinct, rec.AgentName)
		}
		actionCounts[rec.Action]++
	}

	return FlowSummary{
		RunID:           s.runID,
		TotalSteps:      len(s.flowHistory),
		CurrentAgent:    s.currentAgent,
		BranchDecisions: decisions,
		DistinctAgents:  distinct,
		ActionCounts:    actionCounts,
	}
}

// ResetFlow clears the flow history, branch decisions, and current agent.
// The flow-level parameter bag survives the reset.
func (s *ContextStore) ResetFlow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flowHistory = nil
	s.branchDecisions = nil
	s.currentAgent = ""
}

// SetFlowParams merges the given bag into the store's flow-level parameters.
func (s *ContextStore) SetFlowParams(params map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range params {
		s.flowParams[k] = v
	}
}

// SetFlowParam sets a single flow-level parameter.
func (s *ContextStore) SetFlowParam(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flowParams[key] = value
}

// FlowParams returns a copy of the flow-level parameter bag.
func (s *ContextStore) FlowParams() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	params := make(map[string]any, len(s.flowParams))
	for k, v := range s.flowParams {
		params[k] = v
	}
	return params
}

// Snapshot returns a serializable copy of the store's current state.
func (s *ContextStore) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := make([]FlowRecord, len(s.flowHistory))
	copy(history, s.flowHistory)
	decisions := make([]string, len(s.branchDecisions))
	copy(decisions, s.branchDecisions)
	params := make(map[string]any, len(s.flowParams))
	for k, v := range s.flowParams {
		params[k] = v
	}

	return &Snapshot{
		RunID:           s.runID,
		CurrentAgent:    s.currentAgent,
		History:         history,
		BranchDecisions: decisions,
		FlowParams:      params,
		TakenAt:         time.Now(),
	}
}

// ctxStoreKey carries the shared ContextStore through nested flow execution.
type ctxStoreKey struct{}

// WithContextStore returns a context carrying the store. The orchestrator
// installs it before each node execution so nested flows record into the
// same shared store.
func WithContextStore(ctx context.Context, store *ContextStore) context.Context {
	return context.WithValue(ctx, ctxStoreKey{}, store)
}

// ContextStoreFrom extracts the shared store from a context.
func ContextStoreFrom(ctx context.Context) (*ContextStore, bool) {
	store, ok := ctx.Value(ctxStoreKey{}).(*ContextStore)
	return store, ok
}
