package agent

import (
	"context"
	"fmt"

	"inkwell/internal/docs"
	"inkwell/internal/guard"
	"inkwell/internal/tool"
	"inkwell/pkg/state"
)

// NewWriteCritic builds the chapter-review agent. It critiques each
// submitted chapter and either sends it back for revision or approves it.
// Revisions are bounded per chapter; exhausting the budget approves the
// chapter automatically.
func NewWriteCritic(env *Env) *Agent {
	return &Agent{
		Name:          "write_critic",
		Phase:         state.PhaseWriteCritique,
		SystemPrompt:  writeCriticSystemPrompt,
		InitialPrompt: writeCriticInitialPrompt(env.maxWriteIterations()),
		Registry: tool.NewRegistry(
			loadChapterForReviewTool(env),
			loadContextForCritiqueTool(env),
			critiqueChapterTool(env),
			approveChapterTool(env),
			requestRevisionTool(env),
		),
	}
}

func loadChapterForReviewTool(env *Env) tool.Tool {
	return tool.Tool{
		Name:        "load_chapter_for_review",
		Description: "Loads the submitted chapter text for review.",
		Parameters: objectSchema([]string{"chapter_number"}, map[string]any{
			"chapter_number": intProp("The chapter under review"),
		}),
		Handler: func(ctx context.Context, args map[string]any, ws *state.WorkflowState) *tool.Result {
			n, err := tool.IntArg(args, "chapter_number")
			if err != nil {
				return tool.Fail("%v", err)
			}
			content, err := env.Docs.Read(ws.ProjectID, docs.ChapterFile(n))
			if err != nil {
				if state.IsNotFound(err) {
					return tool.Fail("chapter %d has no manuscript file", n)
				}
				return tool.Fail("read chapter %d: %v", n, err)
			}
			return tool.Ok("loaded chapter %d for review", n).
				WithPayload(map[string]any{"chapter_number": n, "content": content})
		},
	}
}

func loadContextForCritiqueTool(env *Env) tool.Tool {
	return tool.Tool{
		Name: "load_context_for_critique",
		Description: "Loads the planning documents and the preceding chapter so the " +
			"review can judge plan fidelity and continuity.",
		Parameters: objectSchema([]string{"chapter_number"}, map[string]any{
			"chapter_number": intProp("The chapter under review"),
		}),
		Handler: func(ctx context.Context, args map[string]any, ws *state.WorkflowState) *tool.Result {
			n, err := tool.IntArg(args, "chapter_number")
			if err != nil {
				return tool.Fail("%v", err)
			}

			plan, err := env.loadPlanningFiles(ws.ProjectID)
			if err != nil {
				return tool.Fail("load plan: %v", err)
			}
			planPayload := make(map[string]any, len(plan))
			for name, content := range plan {
				planPayload[name] = content
			}
			payload := map[string]any{"chapter_number": n, "plan": planPayload}

			if n > 1 {
				prev, err := env.Docs.Read(ws.ProjectID, docs.ChapterFile(n-1))
				if err == nil {
					payload["previous_chapter"] = prev
				} else if !state.IsNotFound(err) {
					return tool.Fail("read previous chapter: %v", err)
				}
			}

			return tool.Ok("context ready for reviewing chapter %d", n).WithPayload(payload)
		},
	}
}

func critiqueChapterTool(env *Env) tool.Tool {
	return tool.Tool{
		Name:        "critique_chapter",
		Description: "Records a written critique of the chapter. Does not change phase.",
		Parameters: objectSchema([]string{"chapter_number", "critique"}, map[string]any{
			"chapter_number": intProp("The chapter under review"),
			"critique":       stringProp("The full critique text"),
		}),
		Handler: func(ctx context.Context, args map[string]any, ws *state.WorkflowState) *tool.Result {
			n, err := tool.IntArg(args, "chapter_number")
			if err != nil {
				return tool.Fail("%v", err)
			}
			critique, err := tool.StringArg(args, "critique")
			if err != nil {
				return tool.Fail("%v", err)
			}

			version := guard.Count(ws, state.ChapterUnit(n)) + 1
			filename := fmt.Sprintf("critiques/chapter_%02d_critique_v%d.md", n, version)
			if err := env.Docs.Write(ws.ProjectID, filename, critique, docs.ModeOverwrite); err != nil {
				return tool.Fail("save critique: %v", err)
			}
			ws.Artifacts[filename] = true

			return tool.Ok("critique recorded as %q", filename).
				WithPayload(map[string]any{"filename": filename, "version": version})
		},
	}
}

func approveChapterTool(env *Env) tool.Tool {
	return tool.Tool{
		Name: "approve_chapter",
		Description: "Approves the chapter. Moves to the next chapter, or completes the " +
			"workflow when every chapter is approved.",
		Parameters: objectSchema([]string{"chapter_number"}, map[string]any{
			"chapter_number": intProp("The chapter being approved"),
			"approval_notes": stringProp("Why the chapter holds up (optional)"),
		}),
		Handler: func(ctx context.Context, args map[string]any, ws *state.WorkflowState) *tool.Result {
			n, err := tool.IntArg(args, "chapter_number")
			if err != nil {
				return tool.Fail("%v", err)
			}
			notes, _ := tool.OptionalStringArg(args, "approval_notes")
			if n != ws.CurrentChapter {
				return tool.Fail("chapter %d is not the current chapter (%d)", n, ws.CurrentChapter)
			}
			if !ws.IsCompleted(n) {
				return tool.Fail("chapter %d has not been submitted for review", n)
			}
			return approveChapter(ws, n, notes, false)
		},
	}
}

func requestRevisionTool(env *Env) tool.Tool {
	maxIterations := env.maxWriteIterations()
	return tool.Tool{
		Name: "request_revision",
		Description: "Sends the chapter back to the writer with revision notes. " +
			"Bounded per chapter; once the budget is exhausted the chapter is approved automatically.",
		Parameters: objectSchema([]string{"chapter_number", "revision_notes"}, map[string]any{
			"chapter_number": intProp("The chapter requiring revision"),
			"revision_notes": stringProp("Specific notes about what must be revised"),
		}),
		Handler: func(ctx context.Context, args map[string]any, ws *state.WorkflowState) *tool.Result {
			n, err := tool.IntArg(args, "chapter_number")
			if err != nil {
				return tool.Fail("%v", err)
			}
			notes, err := tool.StringArg(args, "revision_notes")
			if err != nil {
				return tool.Fail("%v", err)
			}
			if n != ws.CurrentChapter {
				return tool.Fail("chapter %d is not the current chapter (%d)", n, ws.CurrentChapter)
			}
			if !ws.IsCompleted(n) {
				return tool.Fail("chapter %d has not been submitted for review", n)
			}

			count, exceeded := guard.RecordAndCheck(ws, state.ChapterUnit(n), maxIterations)
			if exceeded {
				res := approveChapter(ws, n,
					fmt.Sprintf("auto-approved after %d revision rounds", maxIterations), true)
				res.Message = fmt.Sprintf("revision budget of %d exhausted for chapter %d: approving automatically",
					maxIterations, n)
				return res
			}

			filename := fmt.Sprintf("critiques/chapter_%02d_revision_request_v%d.md", n, count)
			if err := env.Docs.Write(ws.ProjectID, filename, notes, docs.ModeOverwrite); err != nil {
				return tool.Fail("save revision request: %v", err)
			}
			ws.Artifacts[filename] = true

			return tool.Ok("revision %d of %d requested for chapter %d", count, maxIterations, n).
				WithTransition(&state.Transition{
					ToPhase: state.PhaseWriting,
					Trigger: state.TriggerRequestRevision,
					Data:    map[string]any{"chapter_number": n, "revision_notes": notes, "iteration": count},
				})
		},
	}
}

// approveChapter marks the chapter approved and builds the transition: back
// to writing for the next chapter, or to complete when all are approved.
func approveChapter(ws *state.WorkflowState, n int, notes string, auto bool) *tool.Result {
	ws.MarkApproved(n)

	toPhase := state.PhaseWriting
	message := fmt.Sprintf("chapter %d approved, moving to chapter %d", n, n+1)
	if ws.AllChaptersApproved() {
		toPhase = state.PhaseComplete
		message = fmt.Sprintf("chapter %d approved: all %d chapters complete", n, ws.TotalChapters)
	}

	res := tool.Ok("%s", message).WithTransition(&state.Transition{
		ToPhase: toPhase,
		Trigger: state.TriggerApproveChapter,
		Data:    map[string]any{"chapter_number": n, "approval_notes": notes},
	})
	res.AutoApprove = auto
	return res
}
