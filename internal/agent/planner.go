package agent

import (
	"context"

	"inkwell/internal/docs"
	"inkwell/internal/tool"
	"inkwell/pkg/state"
)

// NewPlanner builds the planning-phase agent. It owns project setup, the
// planning documents, and the finalize_plan transition into plan critique.
func NewPlanner(env *Env) *Agent {
	return &Agent{
		Name:          "planner",
		Phase:         state.PhasePlanning,
		SystemPrompt:  plannerSystemPrompt,
		InitialPrompt: plannerInitialPrompt,
		Registry: tool.NewRegistry(
			createProjectTool(env),
			writeFileTool(env),
			finalizePlanTool(env),
		),
	}
}

func createProjectTool(env *Env) tool.Tool {
	return tool.Tool{
		Name: "create_project",
		Description: "Creates the project directory with planning, manuscript, and critiques subdirectories. " +
			"Call this once before writing any files.",
		Parameters: objectSchema([]string{"project_name"}, map[string]any{
			"project_name": stringProp("Display name for the project (sanitized for the filesystem)"),
		}),
		Handler: func(ctx context.Context, args map[string]any, ws *state.WorkflowState) *tool.Result {
			name, err := tool.StringArg(args, "project_name")
			if err != nil {
				return tool.Fail("%v", err)
			}
			if err := env.Docs.EnsureProject(ws.ProjectID); err != nil {
				return tool.Fail("create project directory: %v", err)
			}
			return tool.Ok("project directory ready at %q", env.Docs.ProjectDir(ws.ProjectID)).
				WithPayload(map[string]any{
					"project_name": docs.SanitizeName(name),
					"project_path": env.Docs.ProjectDir(ws.ProjectID),
				})
		},
	}
}

func writeFileTool(env *Env) tool.Tool {
	return tool.Tool{
		Name: "write_file",
		Description: "Writes a planning document. Modes: 'create' (fails if the file exists), " +
			"'append' (adds to the end), 'overwrite' (replaces the content).",
		Parameters: objectSchema([]string{"filename", "content", "mode"}, map[string]any{
			"filename": stringProp("Project-relative path, e.g. planning/outline.md"),
			"content":  stringProp("The document content"),
			"mode":     map[string]any{"type": "string", "enum": []string{"create", "append", "overwrite"}, "description": "Write mode"},
		}),
		Handler: func(ctx context.Context, args map[string]any, ws *state.WorkflowState) *tool.Result {
			filename, err := tool.StringArg(args, "filename")
			if err != nil {
				return tool.Fail("%v", err)
			}
			content, err := tool.StringArg(args, "content")
			if err != nil {
				return tool.Fail("%v", err)
			}
			modeStr, err := tool.StringArg(args, "mode")
			if err != nil {
				return tool.Fail("%v", err)
			}
			mode, err := docs.ParseMode(modeStr)
			if err != nil {
				return tool.Fail("%v", err)
			}
			if err := env.Docs.Write(ws.ProjectID, filename, content, mode); err != nil {
				return tool.Fail("write %s: %v", filename, err)
			}
			ws.Artifacts[filename] = true
			return tool.Ok("wrote %d characters to %q (%s)", len(content), filename, mode).
				WithPayload(map[string]any{"filename": filename, "operation": string(mode)})
		},
	}
}

func finalizePlanTool(env *Env) tool.Tool {
	return tool.Tool{
		Name: "finalize_plan",
		Description: "Signals that all planning documents are complete and moves the workflow to plan critique. " +
			"Requires the final chapter count.",
		Parameters: objectSchema([]string{"total_chapters"}, map[string]any{
			"total_chapters": intProp("Number of chapters the plot outline defines"),
			"summary":        stringProp("One-paragraph summary of the plan (optional)"),
		}),
		Handler: func(ctx context.Context, args map[string]any, ws *state.WorkflowState) *tool.Result {
			total, err := tool.IntArg(args, "total_chapters")
			if err != nil {
				return tool.Fail("%v", err)
			}
			if total < 1 {
				return tool.Fail("total_chapters must be at least 1, got %d", total)
			}
			planned, err := env.loadPlanningFiles(ws.ProjectID)
			if err != nil {
				return tool.Fail("check planning materials: %v", err)
			}
			if len(planned) == 0 {
				return tool.Fail("no planning documents found: write them with write_file before finalizing")
			}
			summary, _ := tool.OptionalStringArg(args, "summary")

			ws.TotalChapters = total
			return tool.Ok("plan finalized with %d chapters, moving to critique", total).
				WithTransition(&state.Transition{
					ToPhase: state.PhasePlanCritique,
					Trigger: state.TriggerFinalizePlan,
					Data:    map[string]any{"total_chapters": total, "summary": summary},
				})
		},
	}
}
