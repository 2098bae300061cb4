package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"inkwell/internal/config"
	"inkwell/internal/printer"
	"inkwell/internal/watch"
)

var (
	watchRedisURL     string
	watchOutputFormat string
)

var watchCmd = &cobra.Command{
	Use:   "watch <project-id>",
	Short: "Monitor real-time workflow activity",
	Long: `Monitor a project's workflow in real time.

Streams phase changes, agent reasoning, tool calls, token usage, and
approvals as they occur. The stream ends when the workflow completes.

Output Formats:
  default - Human-readable output with timestamps and emojis
  json    - Line-delimited JSON for programmatic processing

Examples:
  # Watch a project
  inkwell watch my-novel

  # Export events as JSON
  inkwell watch my-novel --output=json > events.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchRedisURL, "redis", "r", config.DefaultRedisURL, "Redis URL")
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	projectID := args[0]

	format, err := watch.ParseFormat(watchOutputFormat)
	if err != nil {
		return printer.Error(
			"invalid output format",
			err.Error(),
			[]string{"Valid formats: default, json"},
		)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := openStore(ctx, watchRedisURL)
	if err != nil {
		return err
	}
	defer store.Close()

	err = watch.StreamActivity(ctx, store, projectID, format, os.Stdout)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
