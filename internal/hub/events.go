package hub

import "time"

// Event is a workflow event delivered to live observers. Events are flat
// JSON objects tagged with "type" and an ISO-8601 "timestamp"; the hub
// stamps the timestamp at broadcast time if the producer did not.
type Event map[string]any

// Event constructors, one per taxonomy entry.

// Connected is the acknowledgment sent to a subscriber on attach.
func Connected(projectID string) Event {
	return Event{
		"type":       "connected",
		"project_id": projectID,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}
}

// PhaseChange reports a validated phase transition.
func PhaseChange(from, to string) Event {
	return Event{
		"type":       "phase_change",
		"from_phase": from,
		"to_phase":   to,
	}
}

// AgentThinking carries the agent's structured reasoning text.
func AgentThinking(content string) Event {
	return Event{
		"type":    "agent_thinking",
		"content": content,
	}
}

// StreamChunk carries a chunk of streamed provider output.
func StreamChunk(content string, isReasoning bool) Event {
	return Event{
		"type":         "stream_chunk",
		"content":      content,
		"is_reasoning": isReasoning,
	}
}

// ToolCall reports a tool invocation requested by the provider.
func ToolCall(toolName string, arguments map[string]any) Event {
	return Event{
		"type":      "tool_call",
		"tool_name": toolName,
		"arguments": arguments,
	}
}

// ToolResult reports the outcome of a tool invocation.
func ToolResult(toolName string, result any) Event {
	return Event{
		"type":      "tool_result",
		"tool_name": toolName,
		"result":    result,
	}
}

// TokenUpdate reports provider token consumption against the limit.
func TokenUpdate(count, limit int) Event {
	percentage := 0.0
	if limit > 0 {
		percentage = float64(count) / float64(limit) * 100
	}
	return Event{
		"type":        "token_update",
		"token_count": count,
		"token_limit": limit,
		"percentage":  percentage,
	}
}

// ApprovalRequired asks observers for a checkpoint approval.
func ApprovalRequired(approvalType string, data map[string]any) Event {
	if data == nil {
		data = map[string]any{}
	}
	return Event{
		"type":          "approval_required",
		"approval_type": approvalType,
		"data":          data,
	}
}

// Progress reports overall workflow progress.
func Progress(percentage float64, message string, details map[string]any) Event {
	if details == nil {
		details = map[string]any{}
	}
	return Event{
		"type":       "progress",
		"percentage": percentage,
		"message":    message,
		"details":    details,
	}
}

// Error reports a non-fatal workflow error to observers.
func Error(message, errorType string) Event {
	return Event{
		"type":       "error",
		"message":    message,
		"error_type": errorType,
	}
}

// Complete reports workflow completion with run statistics.
func Complete(stats map[string]any) Event {
	if stats == nil {
		stats = map[string]any{}
	}
	return Event{
		"type":  "complete",
		"stats": stats,
	}
}
