package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/luoxifan/agentgraph/flow"
	"github.com/luoxifan/agentgraph/llm"
	"github.com/luoxifan/agentgraph/llm/tokenizer"
	"github.com/luoxifan/agentgraph/tools"
	"github.com/luoxifan/agentgraph/types"
)

// genericToolSchema is used for tools registered without a parameter schema.
var genericToolSchema = json.RawMessage(`{"type":"object","additionalProperties":true}`)

// LLMAgent plans with a function-calling model: the provider decides which
// tools to invoke and with what arguments, then Run executes them. When the
// model decides no tool is needed, its text answer becomes the result.
type LLMAgent struct {
	name     string
	provider llm.Provider
	registry *tools.Registry
	executor *tools.Executor
	logger   *zap.Logger

	model        string
	systemPrompt string
	counter      *tokenizer.Tokenizer
}

// LLMAgentOption configures an LLMAgent.
type LLMAgentOption func(*LLMAgent)

// WithModel overrides the provider's default model.
func WithModel(model string) LLMAgentOption {
	return func(a *LLMAgent) { a.model = model }
}

// WithSystemPrompt replaces the built-in tool-selection system prompt.
func WithSystemPrompt(prompt string) LLMAgentOption {
	return func(a *LLMAgent) { a.systemPrompt = prompt }
}

// NewLLMAgent creates an LLM-planned agent. A nil registry falls back to the
// default registry.
func NewLLMAgent(name string, provider llm.Provider, registry *tools.Registry, logger *zap.Logger, opts ...LLMAgentOption) *LLMAgent {
	if name == "" {
		name = "llm-agent"
	}
	if registry == nil {
		registry = tools.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &LLMAgent{
		name:     name,
		provider: provider,
		registry: registry,
		executor: tools.NewExecutor(registry, logger),
		logger:   logger.With(zap.String("component", "llm_agent"), zap.String("agent", name)),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.counter = tokenizer.New(a.model)
	return a
}

func (a *LLMAgent) Name() string { return a.name }

// Plan asks the model which tools to call. The model's tool calls become
// ToolsToUse plus per-tool argument bags; a plain text answer is kept in the
// plan metadata for Run.
func (a *LLMAgent) Plan(ctx context.Context, input *types.AgentInput) (*types.PlanResult, error) {
	if input == nil {
		input = &types.AgentInput{}
	}
	if a.provider == nil {
		return nil, types.NewError(types.ErrProviderUnavailable, "llm agent has no provider")
	}

	available := a.availableTools(input.Tools)

	req := &llm.ChatRequest{
		Model: a.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: a.buildSystemPrompt(available)},
			{Role: llm.RoleUser, Content: input.Query},
		},
		Tools: toolSchemas(available),
	}

	resp, err := a.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("plan completion: %w", err)
	}

	params := map[string]any{}
	for k, v := range input.Parameters {
		params[k] = v
	}

	var toolsToUse []string
	for _, call := range resp.ToolCalls {
		toolsToUse = append(toolsToUse, call.Name)
		var args map[string]any
		if len(call.Arguments) > 0 {
			if err := json.Unmarshal(call.Arguments, &args); err != nil {
				a.logger.Warn("unparseable tool arguments",
					zap.String("tool", call.Name),
					zap.Error(err),
				)
				continue
			}
		}
		params[call.Name] = args
	}

	a.logger.Debug("model plan",
		zap.Strings("tools", toolsToUse),
		zap.String("finish_reason", resp.FinishReason),
	)

	metadata := map[string]any{
		"agent_type":    "LLMAgent",
		"model":         resp.Model,
		"model_content": resp.Content,
		"total_tokens":  resp.Usage.TotalTokens,
	}
	// Local estimate; the encoding may be unavailable offline.
	if est, err := a.counter.CountTokens(input.Query); err == nil {
		metadata["query_tokens_estimate"] = est
	}

	return &types.PlanResult{
		Plan:       fmt.Sprintf("model selected tools: %s", strings.Join(toolsToUse, ", ")),
		ToolsToUse: toolsToUse,
		Parameters: params,
		Metadata:   metadata,
	}, nil
}

// Run executes the model-selected tools. When the plan selected none, the
// model's direct answer is the result.
func (a *LLMAgent) Run(ctx context.Context, plan *types.PlanResult) (*types.AgentOutput, error) {
	if plan == nil {
		plan = &types.PlanResult{}
	}

	if len(plan.ToolsToUse) == 0 {
		content, _ := plan.Metadata["model_content"].(string)
		out := &types.AgentOutput{
			Result:   content,
			Plan:     plan.Plan,
			Metadata: map[string]any{"agent_type": "LLMAgent", "direct_answer": true},
		}
		if action := outcomeAction(plan.Parameters, true); action != "" {
			out.Metadata[flow.MetadataActionKey] = action
		}
		return out, nil
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
		"agent_type":       "LLMAgent",
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

// availableTools resolves the tool descriptors offered to the model,
// restricted to the given names when set.
func (a *LLMAgent) availableTools(names []string) []tools.Tool {
	described := a.registry.Describe()
	if len(names) == 0 {
		return described
	}
	allowed := make(map[string]struct{}, len(names))
	for _, n := range names {
		allowed[n] = struct{}{}
	}
	var filtered []tools.Tool
	for _, t := range described {
		if _, ok := allowed[t.Name]; ok {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

func (a *LLMAgent) buildSystemPrompt(available []tools.Tool) string {
	if a.systemPrompt != "" {
		return a.systemPrompt
	}
	var b strings.Builder
	b.WriteString("You are a helpful assistant that can use tools.\n\nAvailable tools:\n")
	for _, t := range available {
		b.WriteString("- ")
		b.WriteString(t.Name)
		if t.Description != "" {
			b.WriteString(": ")
			b.WriteString(t.Description)
		}
		if len(t.Tags) > 0 {
			b.WriteString(" (tags: ")
			b.WriteString(strings.Join(t.Tags, ", "))
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	b.WriteString("\nCall the appropriate tools with exact parameter names when the request needs them; answer directly otherwise.")
	return b.String()
}

func toolSchemas(available []tools.Tool) []llm.ToolSchema {
	schemas := make([]llm.ToolSchema, 0, len(available))
	for _, t := range available {
		schemas = append(schemas, llm.ToolSchema{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  genericToolSchema,
		})
	}
	return schemas
}
