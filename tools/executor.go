package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ToolCall names a tool and the arguments to pass it.
type ToolCall struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

// ExecutionResult captures one tool invocation. Failures are encoded in the
// result rather than returned as errors, so a batch keeps going when one
// tool fails; callers check Success.
type ExecutionResult struct {
	Success  bool           `json:"success"`
	Result   any            `json:"result,omitempty"`
	Error    string         `json:"error,omitempty"`
	Duration time.Duration  `json:"duration"`
	ToolName string         `json:"tool_name"`
	Args     map[string]any `json:"args,omitempty"`
}

// ToolUsage aggregates per-tool execution counts.
type ToolUsage struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// Stats aggregates an executor's history.
type Stats struct {
	TotalExecutions      int                  `json:"total_executions"`
	SuccessfulExecutions int                  `json:"successful_executions"`
	FailedExecutions     int                  `json:"failed_executions"`
	SuccessRate          float64              `json:"success_rate"`
	AverageDuration      time.Duration        `json:"average_duration"`
	ToolUsage            map[string]ToolUsage `json:"tool_usage"`
}

// Executor runs registered tools with panic capture and keeps an execution
// history for inspection.
type Executor struct {
	registry *Registry
	logger   *zap.Logger

	mu      sync.Mutex
	history []ExecutionResult
}

// NewExecutor creates an executor over the given registry. A nil registry
// falls back to the default registry.
func NewExecutor(registry *Registry, logger *zap.Logger) *Executor {
	if registry == nil {
		registry = defaultRegistry
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		registry: registry,
		logger:   logger.With(zap.String("component", "tool_executor")),
	}
}

// Run executes one tool. A missing tool or a tool failure yields a failed
// ExecutionResult, never an error return; the result is always appended to
// the history.
func (e *Executor) Run(ctx context.Context, name string, args map[string]any) ExecutionResult {
	start := time.Now()

	tool, ok := e.registry.Get(name)
	if !ok {
		result := ExecutionResult{
			Error:    fmt.Sprintf("tool %q not found", name),
			Duration: time.Since(start),
			ToolName: name,
			Args:     args,
		}
		e.record(result)
		return result
	}

	value, err := e.invoke(ctx, tool, args)
	result := ExecutionResult{
		Success:  err == nil,
		Result:   value,
		Duration: time.Since(start),
		ToolName: name,
		Args:     args,
	}
	if err != nil {
		result.Error = err.Error()
		e.logger.Warn("tool execution failed",
			zap.String("tool", name),
			zap.Error(err),
		)
	} else {
		e.logger.Debug("tool executed",
			zap.String("tool", name),
			zap.Duration("duration", result.Duration),
		)
	}
	e.record(result)
	return result
}

// invoke calls the tool function, converting a panic into an error so one
// misbehaving tool cannot take the whole flow down.
func (e *Executor) invoke(ctx context.Context, tool Tool, args map[string]any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", tool.Name, r)
		}
	}()
	return tool.Func(ctx, args)
}

// RunAll executes the calls sequentially, in order.
func (e *Executor) RunAll(ctx context.Context, calls []ToolCall) []ExecutionResult {
	results := make([]ExecutionResult, 0, len(calls))
	for _, call := range calls {
		results = append(results, e.Run(ctx, call.Tool, call.Args))
	}
	return results
}

// RunConcurrent executes the calls concurrently and returns the results in
// call order. Tool failures are encoded per result; the group only fails on
// context cancellation.
func (e *Executor) RunConcurrent(ctx context.Context, calls []ToolCall) ([]ExecutionResult, error) {
	results := make([]ExecutionResult, len(calls))
	g, ctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = e.Run(ctx, call.Tool, call.Args)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Executor) record(result ExecutionResult) {
	e.mu.Lock()
	e.history = append(e.history, result)
	e.mu.Unlock()
}

// History returns a copy of the execution history in call-completion order.
func (e *Executor) History() []ExecutionResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	history := make([]ExecutionResult, len(e.history))
	copy(history, e.history)
	return history
}

// ClearHistory drops the execution history.
func (e *Executor) ClearHistory() {
	e.mu.Lock()
	e.history = nil
	e.mu.Unlock()
}

// Stats aggregates the execution history.
func (e *Executor) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := Stats{ToolUsage: make(map[string]ToolUsage)}
	if len(e.history) == 0 {
		return stats
	}

	var total time.Duration
	for _, result := range e.history {
		stats.TotalExecutions++
		usage := stats.ToolUsage[result.ToolName]
		usage.Total++
		if result.Success {
			stats.SuccessfulExecutions++
			usage.Successful++
		} else {
			stats.FailedExecutions++
			usage.Failed++
		}
		stats.ToolUsage[result.ToolName] = usage
		total += result.Duration
	}
	stats.SuccessRate = float64(stats.SuccessfulExecutions) / float64(stats.TotalExecutions) * 100
	stats.AverageDuration = total / time.Duration(stats.TotalExecutions)
	return stats
}
