package tool

import (
	"context"

	"inkwell/pkg/state"
)

// Definition is the wire shape of a tool published to the reasoning
// provider.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Registry maps tool names to descriptors. Registration happens once per
// agent at session start; the registry is read-only during a workflow run.
type Registry struct {
	tools []Tool
	index map[string]int
}

// NewRegistry creates a registry holding the given tools. Later tools with
// the same name overwrite earlier ones (last-registered wins).
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{index: make(map[string]int)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register inserts a tool by name, overwriting any previous registration.
func (r *Registry) Register(t Tool) {
	if i, ok := r.index[t.Name]; ok {
		r.tools[i] = t
		return
	}
	r.index[t.Name] = len(r.tools)
	r.tools = append(r.tools, t)
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, error) {
	i, ok := r.index[name]
	if !ok {
		return Tool{}, &state.NotFoundError{Kind: "tool", Name: name}
	}
	return r.tools[i], nil
}

// Definitions returns all registered tools in provider wire format, in
// registration order.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, len(r.tools))
	for i, t := range r.tools {
		defs[i] = Definition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		}
	}
	return defs
}

// Dispatch invokes the named tool against the workflow state. An unknown
// name returns a NotFoundError; everything else is expressed in the Result.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any, ws *state.WorkflowState) (*Result, error) {
	t, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return t.Handler(ctx, args, ws), nil
}
