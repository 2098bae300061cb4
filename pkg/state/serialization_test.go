package state

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRoundTrip(t *testing.T) {
	ws := NewWorkflowState("novel-42", 1700000000000)
	ws.Phase = PhaseWriteCritique
	ws.CurrentChapter = 2
	ws.TotalChapters = 5
	ws.MarkCompleted(1)
	ws.MarkCompleted(2)
	ws.MarkApproved(1)
	ws.CritiqueIterations[UnitPlan] = 1
	ws.CritiqueIterations[ChapterUnit(2)] = 2
	ws.Artifacts["planning/outline.md"] = true
	ws.Artifacts["manuscript/chapter_01.md"] = true

	hash, err := StateToHash(ws)
	require.NoError(t, err)

	// Redis returns string values; simulate the HGetAll result.
	stringHash := make(map[string]string, len(hash))
	for k, v := range hash {
		switch val := v.(type) {
		case string:
			stringHash[k] = val
		case int:
			stringHash[k] = intToString(val)
		case int64:
			stringHash[k] = int64ToString(val)
		}
	}

	got, err := HashToState(stringHash)
	require.NoError(t, err)
	assert.Equal(t, ws, got)
}

func TestHashToStateEmptyCollections(t *testing.T) {
	hash := map[string]string{
		"project_id":      "novel-1",
		"phase":           "PLANNING",
		"current_chapter": "0",
		"total_chapters":  "0",
	}

	ws, err := HashToState(hash)
	require.NoError(t, err)

	// Absent collection fields decode to empty, never nil.
	assert.NotNil(t, ws.ChaptersCompleted)
	assert.NotNil(t, ws.ChaptersApproved)
	assert.NotNil(t, ws.CritiqueIterations)
	assert.NotNil(t, ws.Artifacts)
	assert.Empty(t, ws.ChaptersCompleted)
}

func TestHashToStateInvalidFields(t *testing.T) {
	tests := []struct {
		name string
		hash map[string]string
	}{
		{"bad current_chapter", map[string]string{
			"current_chapter": "two", "total_chapters": "3",
		}},
		{"bad total_chapters", map[string]string{
			"current_chapter": "2", "total_chapters": "",
		}},
		{"bad chapters_completed json", map[string]string{
			"current_chapter": "1", "total_chapters": "3",
			"chapters_completed": "{not json",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := HashToState(tt.hash)
			assert.Error(t, err)
		})
	}
}

func intToString(n int) string     { return strconv.Itoa(n) }
func int64ToString(n int64) string { return strconv.FormatInt(n, 10) }
