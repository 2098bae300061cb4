package orchestrator

import (
	"inkwell/pkg/state"
)

// edge is a (current phase, trigger) pair selecting a transition.
type edge struct {
	from    state.Phase
	trigger state.Trigger
}

// transitionTable is the complete set of legal phase transitions. Anything
// outside this table is a state conflict and leaves the phase unchanged.
// approve_chapter lands on COMPLETE instead of WRITING once every chapter is
// approved.
var transitionTable = map[edge]state.Phase{
	{state.PhasePlanning, state.TriggerFinalizePlan}:         state.PhasePlanCritique,
	{state.PhasePlanCritique, state.TriggerApprovePlan}:      state.PhaseWriting,
	{state.PhasePlanCritique, state.TriggerRevisePlan}:       state.PhasePlanning,
	{state.PhaseWriting, state.TriggerFinalizeChapter}:       state.PhaseWriteCritique,
	{state.PhaseWriteCritique, state.TriggerApproveChapter}:  state.PhaseWriting,
	{state.PhaseWriteCritique, state.TriggerRequestRevision}: state.PhaseWriting,
}

// ApplyTransition validates the requested transition against the edge table
// and the workflow state, then applies it: phase change plus the chapter
// bookkeeping the trigger implies. On a state conflict the state is left
// untouched.
func ApplyTransition(ws *state.WorkflowState, tr *state.Transition) error {
	target, ok := transitionTable[edge{ws.Phase, tr.Trigger}]
	if !ok {
		return &state.StateConflictError{From: ws.Phase, Trigger: tr.Trigger, To: tr.ToPhase}
	}

	// Approving the final chapter completes the workflow.
	if tr.Trigger == state.TriggerApproveChapter && ws.AllChaptersApproved() {
		target = state.PhaseComplete
	}

	if tr.ToPhase != target {
		return &state.StateConflictError{From: ws.Phase, Trigger: tr.Trigger, To: tr.ToPhase}
	}

	switch tr.Trigger {
	case state.TriggerApprovePlan:
		ws.CurrentChapter = 1
	case state.TriggerApproveChapter:
		if target == state.PhaseWriting {
			ws.CurrentChapter++
		}
	}

	ws.Phase = target
	return nil
}
