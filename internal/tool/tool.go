// Package tool defines the tool contract between the reasoning provider and
// the workflow: immutable named descriptors with a JSON-schema-like parameter
// object, a registry keyed by name, and the dispatcher that invokes handlers
// against the shared workflow state. Handlers are the only code permitted to
// mutate WorkflowState.
package tool

import (
	"context"
	"fmt"

	"inkwell/pkg/state"
)

// Handler executes a tool against the shared workflow state. The handler may
// read and mutate the state; the dispatcher never touches it.
type Handler func(ctx context.Context, args map[string]any, ws *state.WorkflowState) *Result

// Tool is an immutable descriptor for a named action the reasoning provider
// may request. Parameters is a JSON-schema-like object published to the
// provider verbatim.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     Handler
}

// Result is the outcome of one tool invocation. A populated Transition asks
// the engine to change phase; AutoApprove signals that the iteration guard
// forced an approval outcome. NeedsApproval signals that the workflow is
// blocked on an explicit approval and observers should be told.
type Result struct {
	Success       bool              `json:"success"`
	Message       string            `json:"message"`
	Payload       map[string]any    `json:"payload,omitempty"`
	Transition    *state.Transition `json:"transition,omitempty"`
	AutoApprove   bool              `json:"auto_approve,omitempty"`
	NeedsApproval bool              `json:"needs_approval,omitempty"`
}

// Ok builds a successful result.
func Ok(format string, a ...any) *Result {
	return &Result{Success: true, Message: fmt.Sprintf(format, a...)}
}

// Fail builds a failed result. The workflow continues; the agent may retry
// or choose a different tool.
func Fail(format string, a ...any) *Result {
	return &Result{Success: false, Message: fmt.Sprintf(format, a...)}
}

// WithPayload attaches payload fields to the result.
func (r *Result) WithPayload(payload map[string]any) *Result {
	r.Payload = payload
	return r
}

// WithTransition attaches a requested phase change to the result.
func (r *Result) WithTransition(tr *state.Transition) *Result {
	r.Transition = tr
	return r
}

// StringArg extracts a required string argument.
func StringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", state.NewValidationError("missing required argument %q", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", state.NewValidationError("argument %q must be a string", name)
	}
	return s, nil
}

// OptionalStringArg extracts an optional string argument, returning the empty
// string when absent.
func OptionalStringArg(args map[string]any, name string) (string, error) {
	if _, ok := args[name]; !ok {
		return "", nil
	}
	return StringArg(args, name)
}

// IntArg extracts a required integer argument. JSON numbers arrive as
// float64; both forms are accepted.
func IntArg(args map[string]any, name string) (int, error) {
	v, ok := args[name]
	if !ok {
		return 0, state.NewValidationError("missing required argument %q", name)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	default:
		return 0, state.NewValidationError("argument %q must be an integer", name)
	}
}
