// Package tool implements the capability subsystem: a single strongly-typed
// Tool interface every capability implements, a name-keyed Registry the
// agent loop dispatches through, and the built-in document/weather
// capabilities.
package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Tool is a named capability the agent can invoke during a turn.
//
// Implementations should provide a clear description (it is shown to the
// model to guide tool selection), handle their own errors gracefully, and
// be safe for concurrent use.
type Tool interface {
	// Name returns the unique identifier for this tool (snake_case).
	Name() string

	// Description returns the natural-language description shown to models.
	Description() string

	// Invoke executes the capability. The returned string becomes an
	// observation in the agent's working context.
	Invoke(ctx context.Context, input string) (string, error)
}

// NotFoundError reports a dispatch against an unregistered tool name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool %q is not registered", e.Name)
}

// Descriptor is the registry's immutable view of a tool.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Registry holds named capabilities and dispatches by name. Names are
// unique; the last registration wins on collision. Dispatch is a pure
// lookup-and-invoke: capability failures are returned to the caller
// unchanged for uniform handling by the agent loop.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry returns an empty registry.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds (or replaces) a tool under its name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Dispatch invokes the named tool, or returns *NotFoundError.
func (r *Registry) Dispatch(ctx context.Context, name, input string) (string, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", &NotFoundError{Name: name}
	}
	return t.Invoke(ctx, input)
}

// Descriptors returns the registered tools sorted by name.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, Descriptor{Name: t.Name(), Description: t.Description()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len reports how many tools are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// FuncTool adapts a plain function into a Tool.
type FuncTool struct {
	name        string
	description string
	fn          func(ctx context.Context, input string) (string, error)
}

// NewFuncTool constructs a FuncTool.
func NewFuncTool(name, description string, fn func(ctx context.Context, input string) (string, error)) *FuncTool {
	return &FuncTool{name: name, description: description, fn: fn}
}

// Name implements Tool.
func (t *FuncTool) Name() string { return t.name }

// Description implements Tool.
func (t *FuncTool) Description() string { return t.description }

// Invoke implements Tool.
func (t *FuncTool) Invoke(ctx context.Context, input string) (string, error) {
	return t.fn(ctx, input)
}
