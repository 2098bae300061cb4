package agent

import (
	"context"
	"fmt"

	"inkwell/internal/docs"
	"inkwell/internal/guard"
	"inkwell/internal/tool"
	"inkwell/pkg/state"
)

// NewPlanCritic builds the plan-critique agent. It reviews the planning
// documents and either sends the workflow back to planning or approves the
// plan into the writing phase. Revisions are bounded by the plan critique
// budget; exhausting it approves the plan automatically.
func NewPlanCritic(env *Env) *Agent {
	return &Agent{
		Name:          "plan_critic",
		Phase:         state.PhasePlanCritique,
		SystemPrompt:  planCriticSystemPrompt,
		InitialPrompt: planCriticInitialPrompt(env.maxPlanIterations()),
		Registry: tool.NewRegistry(
			loadPlanMaterialsTool(env),
			critiquePlanTool(env),
			revisePlanTool(env),
			approvePlanTool(env),
		),
	}
}

func loadPlanMaterialsTool(env *Env) tool.Tool {
	return tool.Tool{
		Name:        "load_plan_materials",
		Description: "Loads every planning document for review.",
		Parameters:  objectSchema(nil, map[string]any{}),
		Handler: func(ctx context.Context, args map[string]any, ws *state.WorkflowState) *tool.Result {
			files, err := env.loadPlanningFiles(ws.ProjectID)
			if err != nil {
				return tool.Fail("load planning materials: %v", err)
			}
			if len(files) == 0 {
				return tool.Fail("no planning documents found for project %q", ws.ProjectID)
			}
			payload := make(map[string]any, len(files))
			for name, content := range files {
				payload[name] = content
			}
			return tool.Ok("loaded %d planning documents", len(files)).
				WithPayload(map[string]any{"files": payload})
		},
	}
}

func critiquePlanTool(env *Env) tool.Tool {
	return tool.Tool{
		Name:        "critique_plan",
		Description: "Records a written critique of the planning materials. Does not change phase.",
		Parameters: objectSchema([]string{"critique"}, map[string]any{
			"critique": stringProp("The full critique text"),
		}),
		Handler: func(ctx context.Context, args map[string]any, ws *state.WorkflowState) *tool.Result {
			critique, err := tool.StringArg(args, "critique")
			if err != nil {
				return tool.Fail("%v", err)
			}
			version := guard.Count(ws, state.UnitPlan) + 1
			filename := fmt.Sprintf("critiques/plan_critique_v%d.md", version)
			if err := env.Docs.Write(ws.ProjectID, filename, critique, docs.ModeOverwrite); err != nil {
				return tool.Fail("save critique: %v", err)
			}
			ws.Artifacts[filename] = true
			return tool.Ok("critique recorded as %q", filename).
				WithPayload(map[string]any{"filename": filename, "version": version})
		},
	}
}

func revisePlanTool(env *Env) tool.Tool {
	maxIterations := env.maxPlanIterations()
	return tool.Tool{
		Name: "revise_plan",
		Description: "Sends the plan back to the Story Architect with revision notes. " +
			"Bounded by the plan revision budget; once exhausted the plan must be approved.",
		Parameters: objectSchema([]string{"revision_notes"}, map[string]any{
			"revision_notes": stringProp("Specific, actionable notes on what must change"),
		}),
		Handler: func(ctx context.Context, args map[string]any, ws *state.WorkflowState) *tool.Result {
			notes, err := tool.StringArg(args, "revision_notes")
			if err != nil {
				return tool.Fail("%v", err)
			}

			count, exceeded := guard.RecordAndCheck(ws, state.UnitPlan, maxIterations)
			if exceeded {
				if !env.planAutoApprove() {
					res := tool.Fail("plan revision budget of %d exhausted: approve the plan explicitly with approve_plan", maxIterations)
					res.NeedsApproval = true
					return res
				}
				res := tool.Ok("plan revision budget of %d exhausted: approving plan automatically", maxIterations).
					WithTransition(approvePlanTransition("auto-approved after revision budget exhausted"))
				res.AutoApprove = true
				return res
			}

			filename := fmt.Sprintf("critiques/plan_revision_request_v%d.md", count)
			if err := env.Docs.Write(ws.ProjectID, filename, notes, docs.ModeOverwrite); err != nil {
				return tool.Fail("save revision request: %v", err)
			}
			ws.Artifacts[filename] = true

			return tool.Ok("revision %d of %d requested, returning to planning", count, maxIterations).
				WithTransition(&state.Transition{
					ToPhase: state.PhasePlanning,
					Trigger: state.TriggerRevisePlan,
					Data:    map[string]any{"revision_notes": notes, "iteration": count},
				})
		},
	}
}

func approvePlanTool(env *Env) tool.Tool {
	return tool.Tool{
		Name:        "approve_plan",
		Description: "Approves the plan and starts the writing phase at chapter 1.",
		Parameters: objectSchema(nil, map[string]any{
			"approval_notes": stringProp("Why the plan is ready (optional)"),
		}),
		Handler: func(ctx context.Context, args map[string]any, ws *state.WorkflowState) *tool.Result {
			notes, _ := tool.OptionalStringArg(args, "approval_notes")
			return tool.Ok("plan approved, writing begins").
				WithTransition(approvePlanTransition(notes))
		},
	}
}

func approvePlanTransition(notes string) *state.Transition {
	return &state.Transition{
		ToPhase: state.PhaseWriting,
		Trigger: state.TriggerApprovePlan,
		Data:    map[string]any{"approval_notes": notes},
	}
}
