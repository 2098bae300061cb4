// Package watch renders a project's live workflow events for the CLI. It
// tails the project's Redis event channel and formats each event for a
// human reader or as line-delimited JSON.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"inkwell/pkg/state"
)

// OutputFormat controls how events are rendered.
type OutputFormat string

const (
	OutputFormatDefault OutputFormat = "default"
	OutputFormatJSON    OutputFormat = "json"
)

// ParseFormat validates a format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatDefault, OutputFormatJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q (valid: default, json)", s)
	}
}

// StreamActivity tails the project's event channel and writes rendered events
// to w until the workflow completes, the subscription drops, or ctx is
// cancelled. A "complete" event ends the stream with a nil error.
func StreamActivity(ctx context.Context, store *state.Store, projectID string, format OutputFormat, w io.Writer) error {
	sub, err := store.SubscribeEvents(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to subscribe to project events: %w", err)
	}
	defer sub.Close()

	fmt.Fprintf(w, "Watching project %s (Ctrl+C to stop)\n", projectID)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err, ok := <-sub.Errors():
			if !ok {
				return nil
			}
			fmt.Fprintf(w, "! event stream error: %v\n", err)

		case event, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := renderEvent(w, event, format); err != nil {
				return err
			}
			if event["type"] == "complete" {
				return nil
			}
		}
	}
}

func renderEvent(w io.Writer, event map[string]any, format OutputFormat) error {
	if format == OutputFormatJSON {
		line, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		fmt.Fprintln(w, string(line))
		return nil
	}

	fmt.Fprintln(w, formatDefault(event))
	return nil
}

// formatDefault renders one event as a single human-readable line.
func formatDefault(event map[string]any) string {
	ts, _ := event["timestamp"].(string)
	prefix := ts
	if prefix != "" {
		prefix += "  "
	}

	switch event["type"] {
	case "connected":
		return fmt.Sprintf("%s🔌 connected to %v", prefix, event["project_id"])
	case "phase_change":
		return fmt.Sprintf("%s🔀 phase %v → %v", prefix, event["from_phase"], event["to_phase"])
	case "agent_thinking":
		return fmt.Sprintf("%s💭 %s", prefix, truncate(stringField(event, "content"), 120))
	case "stream_chunk":
		return fmt.Sprintf("%s📝 %s", prefix, truncate(stringField(event, "content"), 120))
	case "tool_call":
		return fmt.Sprintf("%s🔧 calling %v", prefix, event["tool_name"])
	case "tool_result":
		return fmt.Sprintf("%s🔧 %v returned", prefix, event["tool_name"])
	case "token_update":
		return fmt.Sprintf("%s🪙 tokens %v/%v (%.1f%%)", prefix,
			event["token_count"], event["token_limit"], floatField(event, "percentage"))
	case "approval_required":
		return fmt.Sprintf("%s🔔 approval (%v)", prefix, event["approval_type"])
	case "progress":
		return fmt.Sprintf("%s⏳ %.0f%% %s", prefix, floatField(event, "percentage"), stringField(event, "message"))
	case "error":
		return fmt.Sprintf("%s❌ %v: %v", prefix, event["error_type"], event["message"])
	case "complete":
		return fmt.Sprintf("%s🎉 workflow complete", prefix)
	default:
		return fmt.Sprintf("%s%v", prefix, event["type"])
	}
}

func stringField(event map[string]any, key string) string {
	s, _ := event[key].(string)
	return strings.ReplaceAll(s, "\n", " ")
}

func floatField(event map[string]any, key string) float64 {
	f, _ := event[key].(float64)
	return f
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
