// Package tools provides the tool registry, an executor with execution
// history, and the builtin math and file tools. Agents consume tools through
// the registry; the flow engine never touches this package directly.
package tools

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/luoxifan/agentgraph/types"
)

// Func is the executable body of a tool.
type Func func(ctx context.Context, args map[string]any) (any, error)

// Tool bundles an executable function with its registration metadata.
type Tool struct {
	Name        string
	Description string
	Tags        []string
	Func        Func
}

// Registry manages named tools. Registration typically happens once at
// startup; lookups are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger.With(zap.String("component", "tool_registry")),
	}
}

// Register adds a tool. Registering an existing name replaces the previous
// tool; the replacement is logged so accidental collisions are visible.
func (r *Registry) Register(tool Tool) error {
	if tool.Name == "" {
		return types.NewError(types.ErrToolValidation, "tool name must not be empty")
	}
	if tool.Func == nil {
		return types.NewError(types.ErrToolValidation, "tool function must not be nil")
	}

	r.mu.Lock()
	_, replaced := r.tools[tool.Name]
	r.tools[tool.Name] = tool
	r.mu.Unlock()

	if replaced {
		r.logger.Warn("tool replaced", zap.String("tool", tool.Name))
	}
	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns the registered tool names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns all registered tools sorted by name.
func (r *Registry) Describe() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	described := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		described = append(described, tool)
	}
	sort.Slice(described, func(i, j int) bool { return described[i].Name < described[j].Name })
	return described
}

// SearchByTag returns the names of tools carrying the given tag, sorted.
func (r *Registry) SearchByTag(tag string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for name, tool := range r.tools {
		for _, t := range tool.Tags {
			if t == tag {
				names = append(names, name)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}

// defaultRegistry backs the package-level convenience functions.
var defaultRegistry = NewRegistry(nil)

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }

// Register adds a tool to the default registry.
func Register(tool Tool) error { return defaultRegistry.Register(tool) }

// Get looks up a tool in the default registry.
func Get(name string) (Tool, bool) { return defaultRegistry.Get(name) }

// List returns the default registry's tool names.
func List() []string { return defaultRegistry.List() }
