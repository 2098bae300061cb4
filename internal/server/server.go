// Package server exposes the daemon's HTTP surface: project creation, state
// inspection, a health check, and a per-project WebSocket channel carrying
// live workflow events.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"inkwell/internal/hub"
	"inkwell/pkg/state"
)

// Workflow is the slice of the engine the API needs.
type Workflow interface {
	CreateProject(ctx context.Context, projectID string) (*state.WorkflowState, error)
	Run(ctx context.Context, projectID string) error
}

// Server serves the HTTP API and WebSocket channel for one daemon instance.
type Server struct {
	workflow Workflow
	store    *state.Store
	hub      *hub.Hub
	logger   *slog.Logger
	server   *http.Server
}

// New creates a server over the given collaborators.
func New(workflow Workflow, store *state.Store, h *hub.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		workflow: workflow,
		store:    store,
		hub:      h,
		logger:   logger,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/projects", s.handleCreateProject)
	mux.HandleFunc("GET /api/projects/{id}/state", s.handleGetState)
	mux.HandleFunc("POST /api/projects/{id}/resume", s.handleResumeProject)
	mux.HandleFunc("GET /ws/{project}", s.handleWebSocket)
	return mux
}

// Start begins serving on addr in the background.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server failed", "error", err)
		}
	}()

	s.logger.Info("http server listening", "addr", addr)
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// healthResponse is the JSON body for GET /healthz.
type healthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis,omitempty"`
	Error  string `json:"error,omitempty"`
}

// handleHealth reports 200 when Redis is reachable, 503 otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status: "unhealthy",
			Redis:  "disconnected",
			Error:  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Redis: "connected"})
}

type createProjectRequest struct {
	ProjectID string `json:"project_id"`
}

// handleCreateProject creates a workflow state and starts the run in the
// background. The response carries the initial state.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, state.NewValidationError("invalid request body: %v", err))
		return
	}

	ws, err := s.workflow.CreateProject(r.Context(), req.ProjectID)
	if err != nil {
		writeError(w, err)
		return
	}

	// The run outlives the request; it stops on its own when the workflow
	// completes or fails.
	go func() {
		if err := s.workflow.Run(context.Background(), ws.ProjectID); err != nil {
			s.logger.Error("workflow run failed", "project_id", ws.ProjectID, "error", err)
		}
	}()

	writeJSON(w, http.StatusCreated, ws)
}

// handleResumeProject restarts an interrupted workflow from its persisted
// snapshot.
func (s *Server) handleResumeProject(w http.ResponseWriter, r *http.Request) {
	ws, err := s.store.LoadState(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if ws.Phase == state.PhaseComplete {
		writeError(w, &state.StateConflictError{From: ws.Phase, Trigger: "resume", To: ws.Phase})
		return
	}

	go func() {
		if err := s.workflow.Run(context.Background(), ws.ProjectID); err != nil {
			s.logger.Error("workflow resume failed", "project_id", ws.ProjectID, "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, ws)
}

// handleGetState returns the persisted workflow state for a project.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	ws, err := s.store.LoadState(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

// writeError maps the error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	errType := "internal"

	var connErr *state.ConnectionError
	switch {
	case state.IsValidation(err):
		status = http.StatusBadRequest
		errType = "validation"
	case state.IsNotFound(err):
		status = http.StatusNotFound
		errType = "not_found"
	case state.IsStateConflict(err):
		status = http.StatusConflict
		errType = "state_conflict"
	case state.IsPersistence(err):
		errType = "persistence"
	case errors.As(err, &connErr):
		status = http.StatusBadGateway
		errType = "connection"
	}

	writeJSON(w, status, errorResponse{Error: err.Error(), Type: errType})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
