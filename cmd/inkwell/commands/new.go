package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"inkwell/internal/printer"
)

var (
	newServerURL string
	resumeURL    string
)

var newCmd = &cobra.Command{
	Use:   "new <project-id>",
	Short: "Create a project and start its workflow",
	Long: `Create a writing project and start its workflow in the daemon.

The workflow begins in the planning phase: the planner agent drafts the
story structure, critics review it, and chapters follow. Progress can be
followed live with 'inkwell watch'.

Examples:
  # Start a new project
  inkwell new my-novel

  # Target a daemon on another host
  inkwell new my-novel --server http://writer-box:8000`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

var resumeCmd = &cobra.Command{
	Use:   "resume <project-id>",
	Short: "Resume an interrupted workflow",
	Long: `Resume a project's workflow from its last persisted snapshot.

The daemon reloads the project state and continues from the phase it was
interrupted in. Completed projects cannot be resumed.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	newCmd.Flags().StringVarP(&newServerURL, "server", "s", "http://localhost:8000", "Daemon base URL")
	resumeCmd.Flags().StringVarP(&resumeURL, "server", "s", "http://localhost:8000", "Daemon base URL")
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(resumeCmd)
}

func runNew(cmd *cobra.Command, args []string) error {
	projectID := args[0]

	body, err := json.Marshal(map[string]string{"project_id": projectID})
	if err != nil {
		return err
	}

	resp, err := httpClient().Post(newServerURL+"/api/projects", "application/json", bytes.NewReader(body))
	if err != nil {
		return printer.Error(
			"daemon not reachable",
			fmt.Sprintf("Could not reach the daemon at %s: %v", newServerURL, err),
			[]string{"Start the daemon first:\n  inkwelld"},
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return printer.Error(
			"project creation failed",
			apiErrorMessage(resp),
			nil,
		)
	}

	printer.Success("Project '%s' created, workflow started\n", projectID)
	printer.Info("Follow progress with:\n  inkwell watch %s\n", projectID)
	return nil
}

func runResume(cmd *cobra.Command, args []string) error {
	projectID := args[0]

	resp, err := httpClient().Post(resumeURL+"/api/projects/"+projectID+"/resume", "application/json", nil)
	if err != nil {
		return printer.Error(
			"daemon not reachable",
			fmt.Sprintf("Could not reach the daemon at %s: %v", resumeURL, err),
			[]string{"Start the daemon first:\n  inkwelld"},
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return printer.Error(
			"resume failed",
			apiErrorMessage(resp),
			nil,
		)
	}

	printer.Success("Project '%s' resumed\n", projectID)
	return nil
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// apiErrorMessage extracts the error body of a failed API response.
func apiErrorMessage(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error != "" {
		return fmt.Sprintf("The daemon responded with %s: %s", resp.Status, apiErr.Error)
	}
	return fmt.Sprintf("The daemon responded with %s", resp.Status)
}
