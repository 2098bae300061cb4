// Package agent defines the four workflow agents and the tools they expose
// to the reasoning provider. Each agent owns one phase: the planner drafts
// the plan, the plan critic reviews it, the writer produces chapters, and
// the write critic reviews them. Tool handlers are the only code that
// mutates workflow state; phase changes travel back to the engine as
// transitions embedded in tool results.
package agent

import (
	"fmt"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/docs"
	"inkwell/internal/tool"
	"inkwell/pkg/state"
)

// Env carries the shared dependencies handed to every agent's tool handlers.
type Env struct {
	Docs     *docs.Store
	Workflow *config.WorkflowConfig
}

// Agent binds a phase to a system prompt and a tool registry. The engine
// activates the agent whose phase matches the workflow state.
type Agent struct {
	Name         string
	Phase        state.Phase
	SystemPrompt string
	Registry     *tool.Registry

	// InitialPrompt builds the first user message for this agent's session.
	InitialPrompt func(ws *state.WorkflowState) string
}

// Definitions returns the agent's tools in provider wire format.
func (a *Agent) Definitions() []tool.Definition {
	return a.Registry.Definitions()
}

// All returns the four agents keyed by the phase they own.
func All(env *Env) map[state.Phase]*Agent {
	agents := []*Agent{
		NewPlanner(env),
		NewPlanCritic(env),
		NewWriter(env),
		NewWriteCritic(env),
	}
	byPhase := make(map[state.Phase]*Agent, len(agents))
	for _, a := range agents {
		byPhase[a.Phase] = a
	}
	return byPhase
}

// maxPlanIterations returns the plan critique revision budget.
func (e *Env) maxPlanIterations() int {
	if e.Workflow != nil && e.Workflow.MaxPlanCritiqueIterations != nil {
		return *e.Workflow.MaxPlanCritiqueIterations
	}
	return config.DefaultCritiqueIterations
}

// maxWriteIterations returns the per-chapter critique revision budget.
func (e *Env) maxWriteIterations() int {
	if e.Workflow != nil && e.Workflow.MaxWriteCritiqueIterations != nil {
		return *e.Workflow.MaxWriteCritiqueIterations
	}
	return config.DefaultCritiqueIterations
}

// planAutoApprove reports whether an exhausted plan revision budget forces
// approval. When disabled, the critic must approve explicitly.
func (e *Env) planAutoApprove() bool {
	if e.Workflow != nil && e.Workflow.PlanAutoApprove != nil {
		return *e.Workflow.PlanAutoApprove
	}
	return true
}

// loadPlanningFiles reads every document under the project's planning
// directory, keyed by project-relative path.
func (e *Env) loadPlanningFiles(projectID string) (map[string]string, error) {
	files, err := e.Docs.List(projectID)
	if err != nil {
		return nil, err
	}
	loaded := make(map[string]string)
	for _, f := range files {
		if !strings.HasPrefix(f, "planning/") && !strings.HasPrefix(f, "planning\\") {
			continue
		}
		content, err := e.Docs.Read(projectID, f)
		if err != nil {
			return nil, err
		}
		loaded[f] = content
	}
	return loaded, nil
}

// chapterTitle is the heading prefix used in manuscript files.
func chapterTitle(n int) string {
	return fmt.Sprintf("# Chapter %d\n\n", n)
}

// objectSchema builds a JSON-schema parameter object for a tool.
func objectSchema(required []string, props map[string]any) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func intProp(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}
