package state

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialization helpers for converting between WorkflowState and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). Set and map fields are
// JSON-encoded into single hash fields. Scalar fields stay individually
// queryable so a status command can read the phase without decoding the
// whole snapshot.

// StateToHash converts a WorkflowState to a Redis hash format.
func StateToHash(s *WorkflowState) (map[string]interface{}, error) {
	completedJSON, err := json.Marshal(s.ChaptersCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chapters_completed: %w", err)
	}

	approvedJSON, err := json.Marshal(s.ChaptersApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chapters_approved: %w", err)
	}

	iterationsJSON, err := json.Marshal(s.CritiqueIterations)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal critique_iterations: %w", err)
	}

	artifactsJSON, err := json.Marshal(s.Artifacts)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal artifacts: %w", err)
	}

	hash := map[string]interface{}{
		"project_id":          s.ProjectID,
		"phase":               string(s.Phase),
		"current_chapter":     s.CurrentChapter,
		"total_chapters":      s.TotalChapters,
		"chapters_completed":  string(completedJSON),
		"chapters_approved":   string(approvedJSON),
		"critique_iterations": string(iterationsJSON),
		"artifacts":           string(artifactsJSON),
		"created_at_ms":       s.CreatedAtMs,
		"updated_at_ms":       s.UpdatedAtMs,
	}

	return hash, nil
}

// HashToState converts a Redis hash back to a WorkflowState.
func HashToState(hash map[string]string) (*WorkflowState, error) {
	currentChapter, err := strconv.Atoi(hash["current_chapter"])
	if err != nil {
		return nil, fmt.Errorf("invalid current_chapter field: %w", err)
	}

	totalChapters, err := strconv.Atoi(hash["total_chapters"])
	if err != nil {
		return nil, fmt.Errorf("invalid total_chapters field: %w", err)
	}

	var completed []int
	if raw := hash["chapters_completed"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &completed); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chapters_completed: %w", err)
		}
	}
	if completed == nil {
		completed = []int{}
	}

	var approved []int
	if raw := hash["chapters_approved"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &approved); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chapters_approved: %w", err)
		}
	}
	if approved == nil {
		approved = []int{}
	}

	var iterations map[string]int
	if raw := hash["critique_iterations"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &iterations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal critique_iterations: %w", err)
		}
	}
	if iterations == nil {
		iterations = map[string]int{}
	}

	var artifacts map[string]bool
	if raw := hash["artifacts"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &artifacts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal artifacts: %w", err)
		}
	}
	if artifacts == nil {
		artifacts = map[string]bool{}
	}

	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	updatedAtMs, _ := strconv.ParseInt(hash["updated_at_ms"], 10, 64)

	s := &WorkflowState{
		ProjectID:          hash["project_id"],
		Phase:              Phase(hash["phase"]),
		CurrentChapter:     currentChapter,
		TotalChapters:      totalChapters,
		ChaptersCompleted:  completed,
		ChaptersApproved:   approved,
		CritiqueIterations: iterations,
		Artifacts:          artifacts,
		CreatedAtMs:        createdAtMs,
		UpdatedAtMs:        updatedAtMs,
	}

	return s, nil
}
