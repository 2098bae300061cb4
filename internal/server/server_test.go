package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/internal/hub"
	"inkwell/pkg/state"
)

// fakeWorkflow records calls and returns scripted results.
type fakeWorkflow struct {
	mu        sync.Mutex
	createErr error
	runs      []string
	runDone   chan struct{}
}

func (f *fakeWorkflow) CreateProject(ctx context.Context, projectID string) (*state.WorkflowState, error) {
	if projectID == "" {
		return nil, state.NewValidationError("project id is required")
	}
	if f.createErr != nil {
		return nil, f.createErr
	}
	return state.NewWorkflowState(projectID, time.Now().UnixMilli()), nil
}

func (f *fakeWorkflow) Run(ctx context.Context, projectID string) error {
	f.mu.Lock()
	f.runs = append(f.runs, projectID)
	f.mu.Unlock()
	if f.runDone != nil {
		close(f.runDone)
	}
	return nil
}

type serverFixture struct {
	server   *Server
	ts       *httptest.Server
	store    *state.Store
	hub      *hub.Hub
	workflow *fakeWorkflow
	mr       *miniredis.Miniredis
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	store := state.NewStore(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { store.Close() })

	h := hub.New(nil)
	workflow := &fakeWorkflow{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := New(workflow, store, h, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &serverFixture{server: srv, ts: ts, store: store, hub: h, workflow: workflow, mr: mr}
}

func TestHealthz(t *testing.T) {
	f := newServerFixture(t)

	resp, err := http.Get(f.ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "connected", body["redis"])
}

func TestHealthzRedisDown(t *testing.T) {
	f := newServerFixture(t)
	f.mr.Close()

	resp, err := http.Get(f.ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "unhealthy", body["status"])
}

func TestCreateProjectStartsRun(t *testing.T) {
	f := newServerFixture(t)
	f.workflow.runDone = make(chan struct{})

	resp, err := http.Post(f.ts.URL+"/api/projects", "application/json",
		strings.NewReader(`{"project_id":"novel-1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var ws state.WorkflowState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ws))
	assert.Equal(t, "novel-1", ws.ProjectID)
	assert.Equal(t, state.PhasePlanning, ws.Phase)

	select {
	case <-f.workflow.runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("run was not started")
	}
	assert.Equal(t, []string{"novel-1"}, f.workflow.runs)
}

func TestCreateProjectValidation(t *testing.T) {
	f := newServerFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing id", `{}`},
		{"invalid json", `{nope`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(f.ts.URL+"/api/projects", "application/json",
				strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, "validation", body["type"])
		})
	}
	assert.Empty(t, f.workflow.runs, "failed creation must not start a run")
}

func TestGetState(t *testing.T) {
	f := newServerFixture(t)
	ctx := context.Background()

	ws := state.NewWorkflowState("novel-1", time.Now().UnixMilli())
	ws.Phase = state.PhaseWriting
	ws.TotalChapters = 3
	ws.CurrentChapter = 2
	ws.MarkCompleted(1)
	ws.MarkApproved(1)
	require.NoError(t, f.store.SaveState(ctx, ws))

	resp, err := http.Get(f.ts.URL + "/api/projects/novel-1/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got state.WorkflowState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, state.PhaseWriting, got.Phase)
	assert.Equal(t, 2, got.CurrentChapter)
	assert.Equal(t, []int{1}, got.ChaptersApproved)
}

func TestResumeProject(t *testing.T) {
	f := newServerFixture(t)
	ctx := context.Background()
	f.workflow.runDone = make(chan struct{})

	ws := state.NewWorkflowState("novel-1", time.Now().UnixMilli())
	ws.Phase = state.PhaseWriting
	ws.TotalChapters = 3
	ws.CurrentChapter = 2
	require.NoError(t, f.store.SaveState(ctx, ws))

	resp, err := http.Post(f.ts.URL+"/api/projects/novel-1/resume", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	select {
	case <-f.workflow.runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("resume did not start a run")
	}
}

func TestResumeCompletedProjectConflicts(t *testing.T) {
	f := newServerFixture(t)
	ctx := context.Background()

	ws := state.NewWorkflowState("novel-1", time.Now().UnixMilli())
	ws.Phase = state.PhaseComplete
	require.NoError(t, f.store.SaveState(ctx, ws))

	resp, err := http.Post(f.ts.URL+"/api/projects/novel-1/resume", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Empty(t, f.workflow.runs)
}

func TestGetStateNotFound(t *testing.T) {
	f := newServerFixture(t)

	resp, err := http.Get(f.ts.URL + "/api/projects/ghost/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "not_found", body["type"])
}

func TestWebSocketReceivesEvents(t *testing.T) {
	f := newServerFixture(t)

	wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws/novel-1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// First frame is the connection acknowledgment.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ack map[string]any
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, "connected", ack["type"])
	assert.Equal(t, "novel-1", ack["project_id"])

	// Events broadcast for the project arrive on the socket.
	require.Eventually(t, func() bool {
		return f.hub.SubscriberCount("novel-1") == 1
	}, 2*time.Second, 10*time.Millisecond)
	f.hub.Broadcast("novel-1", hub.PhaseChange("PLANNING", "PLAN_CRITIQUE"))

	var event map[string]any
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "phase_change", event["type"])
	assert.Equal(t, "PLANNING", event["from_phase"])
	assert.Equal(t, "PLAN_CRITIQUE", event["to_phase"])
	assert.NotEmpty(t, event["timestamp"])
}

func TestWebSocketAnswersPing(t *testing.T) {
	f := newServerFixture(t)

	wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws/novel-1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ack map[string]any
	require.NoError(t, conn.ReadJSON(&ack))
	require.Equal(t, "connected", ack["type"])

	// Application-level liveness: a "ping" text frame gets a pong event.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))

	var pong map[string]any
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, "pong", pong["type"])
}

func TestWebSocketScopedToProject(t *testing.T) {
	f := newServerFixture(t)

	wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws/novel-1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ack map[string]any
	require.NoError(t, conn.ReadJSON(&ack))

	f.hub.Broadcast("other-project", hub.Error("boom", "internal"))

	// Nothing for this project: the read must time out rather than deliver.
	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var event map[string]any
	err = conn.ReadJSON(&event)
	require.Error(t, err)
}

func TestWebSocketDisconnectUnsubscribes(t *testing.T) {
	f := newServerFixture(t)

	wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws/novel-1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return f.hub.SubscriberCount("novel-1") == 1
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return f.hub.SubscriberCount("novel-1") == 0
	}, 2*time.Second, 10*time.Millisecond)
}
