package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseValidate(t *testing.T) {
	tests := []struct {
		name    string
		phase   Phase
		wantErr bool
	}{
		{"planning", PhasePlanning, false},
		{"plan critique", PhasePlanCritique, false},
		{"writing", PhaseWriting, false},
		{"write critique", PhaseWriteCritique, false},
		{"complete", PhaseComplete, false},
		{"empty", Phase(""), true},
		{"unknown", Phase("DRAFTING"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.phase.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewWorkflowState(t *testing.T) {
	ws := NewWorkflowState("novel-1", 1000)

	assert.Equal(t, "novel-1", ws.ProjectID)
	assert.Equal(t, PhasePlanning, ws.Phase)
	assert.Equal(t, 0, ws.CurrentChapter)
	assert.Empty(t, ws.ChaptersCompleted)
	assert.Empty(t, ws.ChaptersApproved)
	assert.NoError(t, ws.Validate())
}

func TestWorkflowStateValidate(t *testing.T) {
	valid := func() *WorkflowState {
		ws := NewWorkflowState("novel-1", 1000)
		ws.Phase = PhaseWriting
		ws.TotalChapters = 3
		ws.CurrentChapter = 2
		ws.MarkCompleted(1)
		ws.MarkApproved(1)
		return ws
	}

	tests := []struct {
		name    string
		mutate  func(*WorkflowState)
		wantErr string
	}{
		{"valid state", func(ws *WorkflowState) {}, ""},
		{"empty project id", func(ws *WorkflowState) { ws.ProjectID = "" }, "project id"},
		{"invalid phase", func(ws *WorkflowState) { ws.Phase = "BOGUS" }, "invalid phase"},
		{"chapter beyond total", func(ws *WorkflowState) { ws.CurrentChapter = 4 }, "exceeds total"},
		{"approved not completed", func(ws *WorkflowState) {
			ws.ChaptersApproved = append(ws.ChaptersApproved, 2)
		}, "approved but not completed"},
		{"negative iteration count", func(ws *WorkflowState) {
			ws.CritiqueIterations["chapter:1"] = -1
		}, "negative critique iteration"},
		{"complete without all approvals", func(ws *WorkflowState) {
			ws.Phase = PhaseComplete
		}, "COMPLETE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := valid()
			tt.mutate(ws)
			err := ws.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestChapterSets(t *testing.T) {
	ws := NewWorkflowState("novel-1", 0)

	ws.MarkCompleted(3)
	ws.MarkCompleted(1)
	ws.MarkCompleted(3) // idempotent

	assert.Equal(t, []int{1, 3}, ws.ChaptersCompleted)
	assert.True(t, ws.IsCompleted(1))
	assert.False(t, ws.IsCompleted(2))

	ws.MarkApproved(1)
	assert.True(t, ws.IsApproved(1))
	assert.False(t, ws.IsApproved(3))
}

func TestAllChaptersApproved(t *testing.T) {
	ws := NewWorkflowState("novel-1", 0)

	// Not meaningful before total is fixed.
	assert.False(t, ws.AllChaptersApproved())

	ws.TotalChapters = 2
	ws.MarkCompleted(1)
	ws.MarkApproved(1)
	assert.False(t, ws.AllChaptersApproved())

	ws.MarkCompleted(2)
	ws.MarkApproved(2)
	assert.True(t, ws.AllChaptersApproved())
}

func TestClone(t *testing.T) {
	ws := NewWorkflowState("novel-1", 1000)
	ws.TotalChapters = 3
	ws.MarkCompleted(1)
	ws.CritiqueIterations[UnitPlan] = 2
	ws.Artifacts["planning/outline.md"] = true

	clone := ws.Clone()
	require.Equal(t, ws, clone)

	// Mutating the clone must not touch the original.
	clone.MarkCompleted(2)
	clone.CritiqueIterations[ChapterUnit(1)] = 1
	clone.Artifacts["manuscript/chapter_01.md"] = true

	assert.Equal(t, []int{1}, ws.ChaptersCompleted)
	assert.NotContains(t, ws.CritiqueIterations, ChapterUnit(1))
	assert.NotContains(t, ws.Artifacts, "manuscript/chapter_01.md")
}

func TestChapterUnit(t *testing.T) {
	assert.Equal(t, "chapter:7", ChapterUnit(7))
	assert.Equal(t, "plan", UnitPlan)
}
