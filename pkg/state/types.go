package state

import (
	"fmt"
	"sort"
)

// Phase is one discrete stage of the workflow state machine.
type Phase string

const (
	// PhasePlanning is the initial phase where the planner produces the
	// summary, characters, structure and outline documents.
	PhasePlanning Phase = "PLANNING"

	// PhasePlanCritique is the review phase for planning materials.
	PhasePlanCritique Phase = "PLAN_CRITIQUE"

	// PhaseWriting is the chapter drafting phase.
	PhaseWriting Phase = "WRITING"

	// PhaseWriteCritique is the per-chapter review phase.
	PhaseWriteCritique Phase = "WRITE_CRITIQUE"

	// PhaseComplete is the terminal phase: every chapter has been approved.
	PhaseComplete Phase = "COMPLETE"
)

// Validate checks if the Phase is a valid enum value.
func (p Phase) Validate() error {
	switch p {
	case PhasePlanning, PhasePlanCritique, PhaseWriting, PhaseWriteCritique, PhaseComplete:
		return nil
	default:
		return fmt.Errorf("unknown phase: %q", p)
	}
}

// Trigger identifies the tool-result semantics that request a phase change.
// Together with the current phase it selects an edge in the transition table.
type Trigger string

const (
	TriggerFinalizePlan    Trigger = "finalize_plan"
	TriggerApprovePlan     Trigger = "approve_plan"
	TriggerRevisePlan      Trigger = "revise_plan"
	TriggerFinalizeChapter Trigger = "finalize_chapter"
	TriggerApproveChapter  Trigger = "approve_chapter"
	TriggerRequestRevision Trigger = "request_revision"
)

// Transition is a phase change requested by a tool result, carrying context
// data for the agent that receives control in the target phase.
type Transition struct {
	ToPhase Phase          `json:"to_phase"`
	Trigger Trigger        `json:"trigger"`
	Data    map[string]any `json:"data,omitempty"`
}

// UnitPlan is the sentinel unit-of-work id for the plan-critique loop.
// Chapter loops use ChapterUnit(n).
const UnitPlan = "plan"

// ChapterUnit returns the unit-of-work id for a chapter's critique loop.
func ChapterUnit(chapter int) string {
	return fmt.Sprintf("chapter:%d", chapter)
}

// WorkflowState is the authoritative phase/chapter/iteration record for one
// project. It is mutated exclusively by tool handlers running inside the
// orchestration engine and persisted wholesale after every mutation.
type WorkflowState struct {
	ProjectID string `json:"project_id"`
	Phase     Phase  `json:"phase"`

	// CurrentChapter is 1-indexed and monotonic non-decreasing while the
	// workflow cycles WRITING and WRITE_CRITIQUE. Zero until planning is
	// approved.
	CurrentChapter int `json:"current_chapter"`

	// TotalChapters is fixed once planning finalizes.
	TotalChapters int `json:"total_chapters"`

	// ChaptersCompleted holds chapter numbers with a written draft.
	ChaptersCompleted []int `json:"chapters_completed"`

	// ChaptersApproved holds chapter numbers accepted by critique.
	// Always a subset of ChaptersCompleted.
	ChaptersApproved []int `json:"chapters_approved"`

	// CritiqueIterations maps a unit-of-work id (UnitPlan or ChapterUnit(n))
	// to the number of revision cycles consumed. Never exceeds the configured
	// maximum for the unit; the iteration guard clamps it.
	CritiqueIterations map[string]int `json:"critique_iterations"`

	// Artifacts maps logical document names to an exists flag. Bookkeeping
	// only; document content lives in the project's document store.
	Artifacts map[string]bool `json:"artifacts"`

	CreatedAtMs int64 `json:"created_at_ms"`
	UpdatedAtMs int64 `json:"updated_at_ms"`
}

// NewWorkflowState creates the initial state for a project: PLANNING phase,
// no chapters, empty counters.
func NewWorkflowState(projectID string, nowMs int64) *WorkflowState {
	return &WorkflowState{
		ProjectID:          projectID,
		Phase:              PhasePlanning,
		ChaptersCompleted:  []int{},
		ChaptersApproved:   []int{},
		CritiqueIterations: map[string]int{},
		Artifacts:          map[string]bool{},
		CreatedAtMs:        nowMs,
		UpdatedAtMs:        nowMs,
	}
}

// Validate checks the WorkflowState's structural invariants.
func (s *WorkflowState) Validate() error {
	if s.ProjectID == "" {
		return fmt.Errorf("project id cannot be empty")
	}

	if err := s.Phase.Validate(); err != nil {
		return fmt.Errorf("invalid phase: %w", err)
	}

	if s.CurrentChapter < 0 {
		return fmt.Errorf("current chapter cannot be negative, got %d", s.CurrentChapter)
	}

	if s.TotalChapters < 0 {
		return fmt.Errorf("total chapters cannot be negative, got %d", s.TotalChapters)
	}

	if s.TotalChapters > 0 && s.CurrentChapter > s.TotalChapters {
		return fmt.Errorf("current chapter %d exceeds total chapters %d", s.CurrentChapter, s.TotalChapters)
	}

	completed := make(map[int]bool, len(s.ChaptersCompleted))
	for _, ch := range s.ChaptersCompleted {
		completed[ch] = true
	}
	for _, ch := range s.ChaptersApproved {
		if !completed[ch] {
			return fmt.Errorf("chapter %d approved but not completed", ch)
		}
	}

	for unit, count := range s.CritiqueIterations {
		if count < 0 {
			return fmt.Errorf("negative critique iteration count for unit %q", unit)
		}
	}

	if s.Phase == PhaseComplete && len(s.ChaptersApproved) != s.TotalChapters {
		return fmt.Errorf("phase is COMPLETE but %d of %d chapters approved",
			len(s.ChaptersApproved), s.TotalChapters)
	}

	return nil
}

// Clone returns a deep copy. The engine snapshots state before each tool
// dispatch so a failed persistence write can roll back cleanly.
func (s *WorkflowState) Clone() *WorkflowState {
	c := *s
	c.ChaptersCompleted = append([]int{}, s.ChaptersCompleted...)
	c.ChaptersApproved = append([]int{}, s.ChaptersApproved...)
	c.CritiqueIterations = make(map[string]int, len(s.CritiqueIterations))
	for k, v := range s.CritiqueIterations {
		c.CritiqueIterations[k] = v
	}
	c.Artifacts = make(map[string]bool, len(s.Artifacts))
	for k, v := range s.Artifacts {
		c.Artifacts[k] = v
	}
	return &c
}

// MarkCompleted records a drafted chapter. Idempotent.
func (s *WorkflowState) MarkCompleted(chapter int) {
	s.ChaptersCompleted = addToSet(s.ChaptersCompleted, chapter)
}

// MarkApproved records an approved chapter. Idempotent.
func (s *WorkflowState) MarkApproved(chapter int) {
	s.ChaptersApproved = addToSet(s.ChaptersApproved, chapter)
}

// IsCompleted reports whether the chapter has a written draft.
func (s *WorkflowState) IsCompleted(chapter int) bool {
	return inSet(s.ChaptersCompleted, chapter)
}

// IsApproved reports whether the chapter has been accepted by critique.
func (s *WorkflowState) IsApproved(chapter int) bool {
	return inSet(s.ChaptersApproved, chapter)
}

// AllChaptersApproved reports whether every chapter has been approved.
// Only meaningful once TotalChapters is fixed.
func (s *WorkflowState) AllChaptersApproved() bool {
	return s.TotalChapters > 0 && len(s.ChaptersApproved) >= s.TotalChapters
}

func addToSet(set []int, n int) []int {
	if inSet(set, n) {
		return set
	}
	set = append(set, n)
	sort.Ints(set)
	return set
}

func inSet(set []int, n int) bool {
	for _, v := range set {
		if v == n {
			return true
		}
	}
	return false
}
