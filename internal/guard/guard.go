// Package guard bounds repeated revision cycles per unit of work. Every
// revision request passes through RecordAndCheck; once a unit's budget is
// spent the calling tool handler must short-circuit to an approval outcome,
// which guarantees every critique loop terminates.
package guard

import "inkwell/pkg/state"

// RecordAndCheck consumes one revision cycle for the unit and reports whether
// the request exceeds the budget. The stored counter is clamped at
// maxIterations, so the returned count is the would-be new count while the
// persisted value never violates the ceiling. A unit id is state.UnitPlan or
// state.ChapterUnit(n).
func RecordAndCheck(ws *state.WorkflowState, unit string, maxIterations int) (count int, exceeded bool) {
	next := ws.CritiqueIterations[unit] + 1
	if next > maxIterations {
		ws.CritiqueIterations[unit] = maxIterations
		return next, true
	}
	ws.CritiqueIterations[unit] = next
	return next, false
}

// Count returns the revision cycles consumed so far for the unit.
func Count(ws *state.WorkflowState, unit string) int {
	return ws.CritiqueIterations[unit]
}

// Remaining returns how many revision cycles the unit has left.
func Remaining(ws *state.WorkflowState, unit string, maxIterations int) int {
	left := maxIterations - ws.CritiqueIterations[unit]
	if left < 0 {
		return 0
	}
	return left
}
