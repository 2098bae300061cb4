package agent

import (
	"context"
	"fmt"
	"strings"

	"inkwell/internal/docs"
	"inkwell/internal/tool"
	"inkwell/pkg/state"
)

// contextTailChars bounds how much of the preceding chapter is returned as
// continuity context.
const contextTailChars = 4000

// NewWriter builds the writing-phase agent. It drafts manuscript chapters
// from the approved plan and submits each one for critique.
func NewWriter(env *Env) *Agent {
	return &Agent{
		Name:          "writer",
		Phase:         state.PhaseWriting,
		SystemPrompt:  writerSystemPrompt,
		InitialPrompt: writerInitialPrompt,
		Registry: tool.NewRegistry(
			loadApprovedPlanTool(env),
			getChapterContextTool(env),
			writeChapterTool(env),
			reviewPreviousWritingTool(env),
			finalizeChapterTool(env),
		),
	}
}

func loadApprovedPlanTool(env *Env) tool.Tool {
	return tool.Tool{
		Name:        "load_approved_plan",
		Description: "Loads the approved planning documents.",
		Parameters:  objectSchema(nil, map[string]any{}),
		Handler: func(ctx context.Context, args map[string]any, ws *state.WorkflowState) *tool.Result {
			files, err := env.loadPlanningFiles(ws.ProjectID)
			if err != nil {
				return tool.Fail("load plan: %v", err)
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

func getChapterContextTool(env *Env) tool.Tool {
	return tool.Tool{
		Name: "get_chapter_context",
		Description: "Returns continuity context for the chapter about to be written: " +
			"the tail of the preceding chapter and any revision notes.",
		Parameters: objectSchema([]string{"chapter_number"}, map[string]any{
			"chapter_number": intProp("The chapter to gather context for"),
		}),
		Handler: func(ctx context.Context, args map[string]any, ws *state.WorkflowState) *tool.Result {
			n, err := tool.IntArg(args, "chapter_number")
			if err != nil {
				return tool.Fail("%v", err)
			}
			if n < 1 || (ws.TotalChapters > 0 && n > ws.TotalChapters) {
				return tool.Fail("chapter %d is out of range [1,%d]", n, ws.TotalChapters)
			}

			payload := map[string]any{"chapter_number": n}
			if n > 1 {
				prev, err := env.Docs.Read(ws.ProjectID, docs.ChapterFile(n-1))
				if err != nil {
					if !state.IsNotFound(err) {
						return tool.Fail("read previous chapter: %v", err)
					}
				} else {
					if len(prev) > contextTailChars {
						prev = prev[len(prev)-contextTailChars:]
					}
					payload["previous_chapter_tail"] = prev
				}
			}
			if notes := latestRevisionNotes(env, ws, n); notes != "" {
				payload["revision_notes"] = notes
			}

			return tool.Ok("context ready for chapter %d", n).WithPayload(payload)
		},
	}
}

// latestRevisionNotes returns the most recent revision request for the
// chapter, or empty if none was recorded.
func latestRevisionNotes(env *Env, ws *state.WorkflowState, n int) string {
	iterations := ws.CritiqueIterations[state.ChapterUnit(n)]
	for v := iterations; v >= 1; v-- {
		filename := fmt.Sprintf("critiques/chapter_%02d_revision_request_v%d.md", n, v)
		if notes, err := env.Docs.Read(ws.ProjectID, filename); err == nil {
			return notes
		}
	}
	return ""
}

func writeChapterTool(env *Env) tool.Tool {
	return tool.Tool{
		Name: "write_chapter",
		Description: "Writes the full text of a manuscript chapter. " +
			"Rewriting an existing chapter replaces it.",
		Parameters: objectSchema([]string{"chapter_number", "content"}, map[string]any{
			"chapter_number": intProp("The chapter being written"),
			"content":        stringProp("The complete chapter prose, without the chapter heading"),
		}),
		Handler: func(ctx context.Context, args map[string]any, ws *state.WorkflowState) *tool.Result {
			n, err := tool.IntArg(args, "chapter_number")
			if err != nil {
				return tool.Fail("%v", err)
			}
			content, err := tool.StringArg(args, "content")
			if err != nil {
				return tool.Fail("%v", err)
			}
			if n < 1 || (ws.TotalChapters > 0 && n > ws.TotalChapters) {
				return tool.Fail("chapter %d is out of range [1,%d]", n, ws.TotalChapters)
			}

			filename := docs.ChapterFile(n)
			body := chapterTitle(n) + strings.TrimLeft(content, "\n")
			if err := env.Docs.Write(ws.ProjectID, filename, body, docs.ModeOverwrite); err != nil {
				return tool.Fail("write chapter %d: %v", n, err)
			}
			ws.Artifacts[filename] = true

			return tool.Ok("chapter %d written (%d characters)", n, len(content)).
				WithPayload(map[string]any{"filename": filename, "chapter_number": n})
		},
	}
}

func reviewPreviousWritingTool(env *Env) tool.Tool {
	return tool.Tool{
		Name:        "review_previous_writing",
		Description: "Reads an earlier chapter in full for continuity checking.",
		Parameters: objectSchema([]string{"chapter_number"}, map[string]any{
			"chapter_number": intProp("The earlier chapter to read"),
		}),
		Handler: func(ctx context.Context, args map[string]any, ws *state.WorkflowState) *tool.Result {
			n, err := tool.IntArg(args, "chapter_number")
			if err != nil {
				return tool.Fail("%v", err)
			}
			content, err := env.Docs.Read(ws.ProjectID, docs.ChapterFile(n))
			if err != nil {
				if state.IsNotFound(err) {
					return tool.Fail("chapter %d has not been written yet", n)
				}
				return tool.Fail("read chapter %d: %v", n, err)
			}
			return tool.Ok("loaded chapter %d", n).
				WithPayload(map[string]any{"chapter_number": n, "content": content})
		},
	}
}

func finalizeChapterTool(env *Env) tool.Tool {
	return tool.Tool{
		Name:        "finalize_chapter",
		Description: "Submits a written chapter for critique, moving the workflow to the review phase.",
		Parameters: objectSchema([]string{"chapter_number"}, map[string]any{
			"chapter_number": intProp("The chapter being submitted"),
		}),
		Handler: func(ctx context.Context, args map[string]any, ws *state.WorkflowState) *tool.Result {
			n, err := tool.IntArg(args, "chapter_number")
			if err != nil {
				return tool.Fail("%v", err)
			}
			if n != ws.CurrentChapter {
				return tool.Fail("chapter %d is not the current chapter (%d)", n, ws.CurrentChapter)
			}
			if !env.Docs.Exists(ws.ProjectID, docs.ChapterFile(n)) {
				return tool.Fail("chapter %d has no manuscript file: write it with write_chapter first", n)
			}

			ws.MarkCompleted(n)
			return tool.Ok("chapter %d submitted for critique", n).
				WithTransition(&state.Transition{
					ToPhase: state.PhaseWriteCritique,
					Trigger: state.TriggerFinalizeChapter,
					Data:    map[string]any{"chapter_number": n},
				})
		},
	}
}
