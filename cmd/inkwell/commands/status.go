package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"inkwell/internal/config"
	"inkwell/internal/printer"
	"inkwell/pkg/state"
)

var statusRedisURL string

var statusCmd = &cobra.Command{
	Use:   "status [project-id]",
	Short: "Show project workflow status",
	Long: `Show the persisted workflow status of a project, or list all known
projects when no project id is given.

Examples:
  # List all projects
  inkwell status

  # Show one project in detail
  inkwell status my-novel`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusRedisURL, "redis", "r", config.DefaultRedisURL, "Redis URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := openStore(ctx, statusRedisURL)
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 0 {
		return listProjects(ctx, store)
	}
	return showProject(ctx, store, args[0])
}

func listProjects(ctx context.Context, store *state.Store) error {
	projects, err := store.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}
	if len(projects) == 0 {
		printer.Info("No projects found. Start one with:\n  inkwell new <project-id>\n")
		return nil
	}

	for _, projectID := range projects {
		ws, err := store.LoadState(ctx, projectID)
		if err != nil {
			printer.Printf("%-30s (state unavailable: %v)\n", projectID, err)
			continue
		}
		printer.Printf("%-30s %-15s chapter %d/%d\n",
			projectID, ws.Phase, ws.CurrentChapter, ws.TotalChapters)
	}
	return nil
}

func showProject(ctx context.Context, store *state.Store, projectID string) error {
	ws, err := store.LoadState(ctx, projectID)
	if err != nil {
		if state.IsNotFound(err) {
			return printer.Error(
				fmt.Sprintf("project '%s' not found", projectID),
				"No persisted state exists for this project.",
				[]string{"List projects:\n  inkwell status", "Start it:\n  inkwell new " + projectID},
			)
		}
		return err
	}

	printer.Printf("Project:          %s\n", ws.ProjectID)
	printer.Printf("Phase:            %s\n", ws.Phase)
	printer.Printf("Chapters:         %d/%d written, %d approved\n",
		len(ws.ChaptersCompleted), ws.TotalChapters, len(ws.ChaptersApproved))
	if ws.Phase != state.PhaseComplete && ws.CurrentChapter > 0 {
		printer.Printf("Current chapter:  %d\n", ws.CurrentChapter)
	}
	if len(ws.CritiqueIterations) > 0 {
		printer.Printf("Revision rounds:\n")
		for unit, count := range ws.CritiqueIterations {
			printer.Printf("  %-20s %d\n", unit, count)
		}
	}
	printer.Printf("Updated:          %s\n",
		time.UnixMilli(ws.UpdatedAtMs).UTC().Format(time.RFC3339))

	if ws.Phase == state.PhaseComplete {
		printer.Success("Workflow complete\n")
	}
	return nil
}

// openStore connects to Redis and verifies connectivity.
func openStore(ctx context.Context, redisURL string) (*state.Store, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	store := state.NewStore(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		store.Close()
		return nil, printer.Error(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s: %v", redisURL, err),
			[]string{"Check the Redis server, or point at another one:\n  inkwell status --redis redis://host:6379"},
		)
	}
	return store, nil
}
