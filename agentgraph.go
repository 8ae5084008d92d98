// Package agentgraph provides a top-level convenience entry point for the
// flow engine, so simple programs need a single import.
//
// Usage:
//
//	import "github.com/luoxifan/agentgraph"
//
//	searcher := agentgraph.NewNode(mySearchAgent)
//	writer := agentgraph.NewNode(myWriterAgent)
//	searcher.On("found", writer)
//
//	f := agentgraph.NewFlow("research").Start(searcher)
//	store := agentgraph.NewContextStore()
//	out, err := f.Execute(ctx, store, &agentgraph.AgentInput{Query: "go generics"})
//
// This is a thin re-export of the flow and types packages; import those
// directly when you need the full surface.
package agentgraph

import (
	"os"

	"go.uber.org/zap"

	"github.com/luoxifan/agentgraph/agent"
	"github.com/luoxifan/agentgraph/flow"
	"github.com/luoxifan/agentgraph/llm"
	"github.com/luoxifan/agentgraph/providers"
	"github.com/luoxifan/agentgraph/tools"
	"github.com/luoxifan/agentgraph/types"
)

// Core engine types, re-exported for the short import path.
type (
	Agent        = flow.Agent
	AgentNode    = flow.AgentNode
	Flow         = flow.Flow
	ContextStore = flow.ContextStore
	FlowRecord   = flow.FlowRecord
	FlowSummary  = flow.FlowSummary
	Snapshot     = flow.Snapshot

	AgentInput  = types.AgentInput
	PlanResult  = types.PlanResult
	AgentOutput = types.AgentOutput
)

// ActionDefault is the reserved fallback action label.
const ActionDefault = flow.ActionDefault

// NewFlow creates a named flow.
func NewFlow(name string, opts ...flow.Option) *Flow { return flow.New(name, opts...) }

// NewNode wraps an agent in a graph node.
func NewNode(a Agent) *AgentNode { return flow.NewNode(a) }

// NewNamedNode wraps an agent under an explicit node name.
func NewNamedNode(name string, a Agent) *AgentNode { return flow.NewNamedNode(name, a) }

// NewContextStore creates an empty run store.
func NewContextStore() *ContextStore { return flow.NewContextStore() }

// NewToolAgent creates a keyword-driven tool agent over the default registry.
func NewToolAgent(name string) *agent.ToolAgent {
	return agent.NewToolAgent(name, nil, nil)
}

// NewOpenAIAgent creates an LLM agent backed by an OpenAI-compatible
// endpoint. The API key is read from OPENAI_API_KEY.
func NewOpenAIAgent(name, model string, logger *zap.Logger) *agent.LLMAgent {
	provider := providers.NewOpenAIProvider(providers.Config{
		APIKey: os.Getenv("OPENAI_API_KEY"),
		Model:  model,
	}, logger)
	return agent.NewLLMAgent(name, provider, nil, logger)
}

// NewOllamaAgent creates an LLM agent backed by a local Ollama daemon.
func NewOllamaAgent(name, model string, logger *zap.Logger) *agent.LLMAgent {
	provider := providers.NewOllamaProvider(providers.Config{Model: model}, logger)
	return agent.NewLLMAgent(name, provider, nil, logger)
}

// NewLLMAgent creates an LLM agent over a pre-built provider.
func NewLLMAgent(name string, provider llm.Provider, logger *zap.Logger, opts ...agent.LLMAgentOption) *agent.LLMAgent {
	return agent.NewLLMAgent(name, provider, nil, logger, opts...)
}

// RegisterBuiltinTools loads the bundled math, file, and search tools into
// the default registry.
func RegisterBuiltinTools() error {
	if err := tools.RegisterMathTools(tools.Default()); err != nil {
		return err
	}
	if err := tools.RegisterFileTools(tools.Default()); err != nil {
		return err
	}
	return tools.RegisterSearchTools(tools.Default())
}
