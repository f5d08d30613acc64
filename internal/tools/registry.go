package tools

import (
	"context"
	"fmt"
	"log/slog"
)

// Registry holds the fixed set of tools offered to the model for one
// deployment. The set is closed at construction: nothing registers or
// unregisters tools afterwards, so lookups are lock-free and the registry is
// safe to share across concurrent queries. It keeps no per-query state;
// citation sources flow back through Execute's return value.
type Registry struct {
	order  []string
	byName map[string]Tool
	logger *slog.Logger
}

// NewRegistry builds a registry from the given tools. Definition order is
// preserved; a duplicate name is a programming error and panics.
func NewRegistry(logger *slog.Logger, toolset ...Tool) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		order:  make([]string, 0, len(toolset)),
		byName: make(map[string]Tool, len(toolset)),
		logger: logger,
	}
	for _, t := range toolset {
		if _, exists := r.byName[t.Name()]; exists {
			panic(fmt.Sprintf("tools: duplicate tool name %q", t.Name()))
		}
		r.order = append(r.order, t.Name())
		r.byName[t.Name()] = t
	}
	return r
}

// Names lists the registered tool names in definition order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Execute dispatches one tool invocation. An unknown name is reported in the
// result text, not as an error, so the model sees what went wrong.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any) (string, []Source) {
	t, ok := r.byName[name]
	if !ok {
		r.logger.Warn("unknown tool requested", "tool", name)
		return fmt.Sprintf("Tool '%s' not found", name), nil
	}

	r.logger.Debug("executing tool", "tool", name)
	text, sources := t.Execute(ctx, params)
	r.logger.Debug("tool completed", "tool", name, "sources", len(sources))
	return text, sources
}
