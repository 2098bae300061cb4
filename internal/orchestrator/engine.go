// Package orchestrator drives a project's workflow: it activates the agent
// that owns the current phase, relays tool calls between the reasoning
// provider and the tool registries, applies the resulting transitions, and
// keeps the durable snapshot and live observers in sync.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"inkwell/internal/agent"
	"inkwell/internal/config"
	"inkwell/internal/hub"
	"inkwell/internal/llm"
	"inkwell/internal/tool"
	"inkwell/pkg/state"
)

// Engine runs workflows. One Engine serves many projects; each Run call
// drives a single project to completion.
type Engine struct {
	store  *state.Store
	client *llm.Client
	hub    *hub.Hub
	agents map[state.Phase]*agent.Agent
	cfg    *config.Config
	logger *slog.Logger
}

// NewEngine wires the engine's collaborators together.
func NewEngine(store *state.Store, client *llm.Client, h *hub.Hub, agents map[state.Phase]*agent.Agent, cfg *config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:  store,
		client: client,
		hub:    h,
		agents: agents,
		cfg:    cfg,
		logger: logger,
	}
}

// CreateProject initializes and persists a fresh workflow state in the
// planning phase. Creating a project that already has state is a conflict.
func (e *Engine) CreateProject(ctx context.Context, projectID string) (*state.WorkflowState, error) {
	if projectID == "" {
		return nil, state.NewValidationError("project id is required")
	}
	exists, err := e.store.StateExists(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, state.NewValidationError("project %q already exists", projectID)
	}

	ws := state.NewWorkflowState(projectID, time.Now().UnixMilli())
	if err := e.store.SaveState(ctx, ws); err != nil {
		return nil, &state.PersistenceError{ProjectID: projectID, Err: err}
	}

	e.logger.Info("project created", "project_id", projectID)
	return ws, nil
}

// Run drives the project's workflow from its persisted snapshot until the
// terminal phase. A fresh run starts in planning; an interrupted run resumes
// from wherever the last snapshot left it.
func (e *Engine) Run(ctx context.Context, projectID string) error {
	ws, err := e.store.LoadState(ctx, projectID)
	if err != nil {
		return err
	}

	e.logger.Info("workflow starting",
		"project_id", projectID,
		"phase", ws.Phase,
		"current_chapter", ws.CurrentChapter)

	turns := 0
	for ws.Phase != state.PhaseComplete {
		if err := ctx.Err(); err != nil {
			return err
		}

		ag, ok := e.agents[ws.Phase]
		if !ok {
			return fmt.Errorf("no agent owns phase %s", ws.Phase)
		}

		if err := e.runSession(ctx, ag, ws, &turns); err != nil {
			e.emit(ctx, projectID, hub.Error(err.Error(), errorType(err)))
			return err
		}
	}

	e.emit(ctx, projectID, hub.Complete(map[string]any{
		"total_chapters":    ws.TotalChapters,
		"chapters_approved": len(ws.ChaptersApproved),
		"turns":             turns,
	}))
	e.logger.Info("workflow complete", "project_id", projectID, "turns", turns)
	return nil
}

// runSession converses with one agent until a tool result transitions the
// workflow out of the agent's phase. Each provider round trip consumes one
// turn from the run's safety ceiling.
func (e *Engine) runSession(ctx context.Context, ag *agent.Agent, ws *state.WorkflowState, turns *int) error {
	messages := []llm.Message{
		{Role: "system", Content: ag.SystemPrompt},
		{Role: "user", Content: ag.InitialPrompt(ws)},
	}

	defs := ag.Definitions()
	tools := make([]llm.ToolDefinition, len(defs))
	for i, d := range defs {
		tools[i] = llm.ToolDefinition{Name: d.Name, Description: d.Description, Parameters: d.Parameters}
	}

	for {
		*turns++
		if *turns > e.cfg.Workflow.MaxTurns {
			return fmt.Errorf("turn limit of %d reached in phase %s", e.cfg.Workflow.MaxTurns, ws.Phase)
		}

		resp, err := e.client.Complete(ctx, llm.Request{
			Messages:   messages,
			Tools:      tools,
			ToolChoice: "auto",
		})
		if err != nil {
			return err
		}

		if resp.ReasoningContent != "" {
			e.emit(ctx, ws.ProjectID, hub.AgentThinking(resp.ReasoningContent))
		}
		if resp.Content != "" {
			e.emit(ctx, ws.ProjectID, hub.StreamChunk(resp.Content, false))
		}
		e.emit(ctx, ws.ProjectID, hub.TokenUpdate(resp.Usage.TotalTokens, e.client.Endpoint().TokenLimit))

		messages = append(messages, llm.Message{
			Role:             "assistant",
			Content:          resp.Content,
			ReasoningContent: resp.ReasoningContent,
			ToolCalls:        resp.ToolCalls,
		})

		if len(resp.ToolCalls) == 0 {
			// The model must act through tools; nudge it back on track.
			messages = append(messages, llm.Message{
				Role:    "user",
				Content: "Continue with your workflow by calling one of your tools.",
			})
			continue
		}

		for _, call := range resp.ToolCalls {
			result, transitioned, err := e.executeToolCall(ctx, ag, ws, call)
			if err != nil {
				return err
			}
			messages = append(messages, toolResultMessage(call, result))
			if transitioned {
				// Remaining calls in the batch are ignored; the phase has
				// moved on and a new agent session owns the workflow.
				return nil
			}
		}
	}
}

// executeToolCall dispatches one tool call against the workflow state,
// persists the outcome, and applies any requested transition. The returned
// result is what the model sees; a non-nil error is fatal for the run.
func (e *Engine) executeToolCall(ctx context.Context, ag *agent.Agent, ws *state.WorkflowState, call llm.ToolCall) (*tool.Result, bool, error) {
	name := call.Function.Name

	var args map[string]any
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			res := tool.Fail("malformed arguments for %s: %v", name, err)
			e.emit(ctx, ws.ProjectID, hub.ToolResult(name, res))
			return res, false, nil
		}
	}
	e.emit(ctx, ws.ProjectID, hub.ToolCall(name, args))

	snapshot := ws.Clone()

	res, err := ag.Registry.Dispatch(ctx, name, args, ws)
	if err != nil {
		// Unknown tool or malformed call: surface to the model, state untouched.
		res = tool.Fail("%v", err)
	}

	transitioned := false
	from := ws.Phase
	if res.Transition != nil {
		if terr := ApplyTransition(ws, res.Transition); terr != nil {
			// Blocked transition leaves the phase unchanged; the handler's
			// mutations are discarded along with it.
			*ws = *snapshot
			e.logger.Warn("transition rejected",
				"project_id", ws.ProjectID, "tool", name, "error", terr)
			res = tool.Fail("%v", terr)
		} else {
			transitioned = true
		}
	}

	if perr := e.persist(ctx, ws, snapshot); perr != nil {
		return nil, false, perr
	}

	if transitioned {
		e.emit(ctx, ws.ProjectID, hub.PhaseChange(string(from), string(ws.Phase)))
		if res.Transition.Trigger == state.TriggerApproveChapter && ws.TotalChapters > 0 {
			approved := len(ws.ChaptersApproved)
			e.emit(ctx, ws.ProjectID, hub.Progress(
				float64(approved)/float64(ws.TotalChapters)*100,
				fmt.Sprintf("%d of %d chapters approved", approved, ws.TotalChapters),
				map[string]any{"phase": ws.Phase},
			))
		}
		if res.AutoApprove {
			e.emit(ctx, ws.ProjectID, hub.ApprovalRequired("auto", map[string]any{
				"trigger": string(res.Transition.Trigger),
				"message": res.Message,
			}))
		}
	}

	if res.NeedsApproval {
		e.emit(ctx, ws.ProjectID, hub.ApprovalRequired("manual", map[string]any{
			"tool":    name,
			"message": res.Message,
		}))
	}

	e.emit(ctx, ws.ProjectID, hub.ToolResult(name, res))
	return res, transitioned, nil
}

// persist writes the snapshot with one retry. On the second failure the
// in-memory state rolls back to the pre-dispatch snapshot and the error is
// fatal for the run.
func (e *Engine) persist(ctx context.Context, ws, snapshot *state.WorkflowState) error {
	err := e.store.SaveState(ctx, ws)
	if err == nil {
		return nil
	}

	e.logger.Warn("state save failed, retrying", "project_id", ws.ProjectID, "error", err)
	if err = e.store.SaveState(ctx, ws); err == nil {
		return nil
	}

	*ws = *snapshot
	return &state.PersistenceError{ProjectID: ws.ProjectID, Err: err}
}

// emit fans an event out to live observers and mirrors it to the project's
// Redis channel. Neither path may fail the workflow.
func (e *Engine) emit(ctx context.Context, projectID string, event hub.Event) {
	e.hub.Broadcast(projectID, event)
	if err := e.store.PublishEvent(ctx, projectID, event); err != nil {
		e.logger.Debug("event publish failed", "project_id", projectID, "error", err)
	}
}

func toolResultMessage(call llm.ToolCall, res *tool.Result) llm.Message {
	content, err := json.Marshal(res)
	if err != nil {
		content = []byte(fmt.Sprintf(`{"success":false,"message":"marshal result: %v"}`, err))
	}
	return llm.Message{
		Role:       "tool",
		Content:    string(content),
		ToolCallID: call.ID,
		Name:       call.Function.Name,
	}
}

// errorType labels an error with its taxonomy name for error events.
func errorType(err error) string {
	var connErr *state.ConnectionError
	switch {
	case state.IsValidation(err):
		return "validation"
	case state.IsNotFound(err):
		return "not_found"
	case state.IsStateConflict(err):
		return "state_conflict"
	case state.IsPersistence(err):
		return "persistence"
	case errors.As(err, &connErr):
		return "connection"
	default:
		return "internal"
	}
}
