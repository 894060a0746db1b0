package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kritsw/teamgraph/internal/config"
	"github.com/kritsw/teamgraph/internal/db"
	"github.com/kritsw/teamgraph/internal/models"
	"github.com/kritsw/teamgraph/internal/service"
)

type stubResolver struct {
	err error
}

func (s *stubResolver) Ensure(_ context.Context, workspaceID string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "db_" + workspaceID, nil
}

type assignCall struct {
	taskID   int64
	assignee string
}

type stubStore struct {
	tasks       map[string][]models.TaskRecord
	stats       *models.Statistics
	graph       *models.GraphExport
	members     []models.Member
	node        *models.Node
	updated     bool
	nodeDeleted bool
	edgeDeleted bool
	addedTask   *models.Node
	addTaskErr  error
	assignOK    bool
	assigns     []assignCall
}

func (s *stubStore) GetNodeByID(context.Context, string, int64) (*models.Node, error) {
	return s.node, nil
}

func (s *stubStore) UpdateNodeByID(context.Context, string, int64, map[string]any) (bool, error) {
	return s.updated, nil
}

func (s *stubStore) DeleteNodeByID(context.Context, string, int64) (bool, error) {
	return s.nodeDeleted, nil
}

func (s *stubStore) DeleteEdgeByID(context.Context, string, int64) (bool, error) {
	return s.edgeDeleted, nil
}

func (s *stubStore) WorkspaceTasks(context.Context, string, string) (map[string][]models.TaskRecord, error) {
	return s.tasks, nil
}

func (s *stubStore) Statistics(context.Context, string, string) (*models.Statistics, error) {
	if s.stats == nil {
		return &models.Statistics{}, nil
	}
	return s.stats, nil
}

func (s *stubStore) AddTaskToRole(_ context.Context, _, _, _ string, _ map[string]any) (*models.Node, error) {
	if s.addTaskErr != nil {
		return nil, s.addTaskErr
	}
	return s.addedTask, nil
}

func (s *stubStore) AssignTask(_ context.Context, _ string, taskID int64, assignee string) (bool, error) {
	s.assigns = append(s.assigns, assignCall{taskID: taskID, assignee: assignee})
	return s.assignOK, nil
}

func (s *stubStore) FullGraph(context.Context, string) (*models.GraphExport, error) {
	return s.graph, nil
}

func (s *stubStore) Members(context.Context, string) ([]models.Member, error) {
	return s.members, nil
}

type stubAnalyzer struct {
	result       *service.AnalyzeResult
	err          error
	gotWorkspace string
	gotPaths     []string
}

func (a *stubAnalyzer) Analyze(_ context.Context, workspaceID string, _ *models.TeamDetails, paths []string) (*service.AnalyzeResult, error) {
	a.gotWorkspace = workspaceID
	a.gotPaths = paths
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}

type stubPinger struct {
	err error
}

func (p *stubPinger) Ping(context.Context) error { return p.err }

func newTestServer(store *stubStore, resolver *stubResolver, analyzer *stubAnalyzer) *Server {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(config.ServerConfig{Port: "0"}, Options{
		Version:  "test",
		Logger:   log,
		Store:    store,
		Resolver: resolver,
		Analyzer: analyzer,
		Pinger:   &stubPinger{},
	})
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rec.Body.String())
	}
	return resp
}

func TestTasksEndpoint(t *testing.T) {
	store := &stubStore{tasks: map[string][]models.TaskRecord{
		"Alice": {{Task: "Build API", Role: "Engineer", NodeID: 3}},
	}}
	srv := newTestServer(store, &stubResolver{}, nil)

	rec := do(t, srv, http.MethodGet, "/workspace/acme/tasks", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var tasks map[string][]models.TaskRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &tasks); err != nil {
		t.Fatal(err)
	}
	if len(tasks["Alice"]) != 1 || tasks["Alice"][0].Task != "Build API" {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestInvalidWorkspaceIDIsBadRequest(t *testing.T) {
	srv := newTestServer(&stubStore{}, &stubResolver{err: db.ErrInvalidWorkspaceID}, nil)

	rec := do(t, srv, http.MethodGet, "/workspace/bad/tasks", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Status != "error" {
		t.Errorf("response = %+v", resp)
	}
}

func TestAddTask(t *testing.T) {
	store := &stubStore{addedTask: &models.Node{
		ID:    7,
		Label: models.LabelTask,
		Properties: map[string]any{
			"name": "Deploy", "status": "pending", "priority": "high",
		},
	}}
	srv := newTestServer(store, &stubResolver{}, nil)

	rec := do(t, srv, http.MethodPost, "/workspace/acme/task", map[string]any{
		"role_name": "Ops", "task_name": "Deploy", "priority": "high",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	details, _ := resp.Details.(map[string]any)
	if details["task_id"] != float64(7) {
		t.Errorf("details = %+v", details)
	}
}

func TestAddTaskRoleNotFound(t *testing.T) {
	store := &stubStore{addTaskErr: db.ErrRoleNotFound}
	srv := newTestServer(store, &stubResolver{}, nil)

	rec := do(t, srv, http.MethodPost, "/workspace/acme/task", map[string]any{
		"role_name": "Ghost", "task_name": "Deploy",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAddTaskValidation(t *testing.T) {
	srv := newTestServer(&stubStore{}, &stubResolver{}, nil)

	rec := do(t, srv, http.MethodPost, "/workspace/acme/task", map[string]any{"role_name": "Ops"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing task_name: status = %d", rec.Code)
	}

	rec = do(t, srv, http.MethodPost, "/workspace/acme/task", map[string]any{
		"role_name": "Ops", "task_name": "Deploy", "priority": "urgent",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad priority: status = %d", rec.Code)
	}
}

func TestAssignTask(t *testing.T) {
	store := &stubStore{assignOK: true}
	srv := newTestServer(store, &stubResolver{}, nil)

	rec := do(t, srv, http.MethodPost, "/workspace/acme/task/5/assign", map[string]any{"assignee": "Alice"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(store.assigns) != 1 || store.assigns[0] != (assignCall{taskID: 5, assignee: "Alice"}) {
		t.Errorf("assigns = %+v", store.assigns)
	}
}

func TestAssignTaskNotFound(t *testing.T) {
	srv := newTestServer(&stubStore{assignOK: false}, &stubResolver{}, nil)

	rec := do(t, srv, http.MethodPost, "/workspace/acme/task/5/assign", map[string]any{"assignee": "Ghost"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUpdateNodeRewiresTaskAssignment(t *testing.T) {
	store := &stubStore{
		updated:  true,
		assignOK: true,
		node:     &models.Node{ID: 9, Label: models.LabelTask, Properties: map[string]any{"name": "Deploy"}},
	}
	srv := newTestServer(store, &stubResolver{}, nil)

	rec := do(t, srv, http.MethodPut, "/workspace/acme/node/9", map[string]any{
		"status": "in_progress", "assignee": "Alice",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(store.assigns) != 1 || store.assigns[0] != (assignCall{taskID: 9, assignee: "Alice"}) {
		t.Errorf("assigns = %+v", store.assigns)
	}
}

func TestUpdateNonTaskNodeSkipsRewire(t *testing.T) {
	store := &stubStore{
		updated: true,
		node:    &models.Node{ID: 2, Label: models.LabelPerson, Properties: map[string]any{"name": "Alice"}},
	}
	srv := newTestServer(store, &stubResolver{}, nil)

	rec := do(t, srv, http.MethodPut, "/workspace/acme/node/2", map[string]any{"assignee": "Bob"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(store.assigns) != 0 {
		t.Errorf("assigns = %+v, want none for a Person node", store.assigns)
	}
}

func TestUpdateNodeNotFound(t *testing.T) {
	srv := newTestServer(&stubStore{updated: false}, &stubResolver{}, nil)

	rec := do(t, srv, http.MethodPut, "/workspace/acme/node/99", map[string]any{"status": "done"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestDeleteNodeAndEdge(t *testing.T) {
	srv := newTestServer(&stubStore{nodeDeleted: true, edgeDeleted: false}, &stubResolver{}, nil)

	if rec := do(t, srv, http.MethodDelete, "/workspace/acme/node/3", nil); rec.Code != http.StatusOK {
		t.Errorf("delete node status = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodDelete, "/workspace/acme/edge/3", nil); rec.Code != http.StatusNotFound {
		t.Errorf("delete missing edge status = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&stubStore{}, &stubResolver{}, nil)

	rec := do(t, srv, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var health map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health["status"] != "healthy" || health["version"] != "test" {
		t.Errorf("health = %+v", health)
	}

	srv.pinger = &stubPinger{err: errors.New("dial refused")}
	rec = do(t, srv, http.MethodGet, "/health", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health["status"] != "degraded" {
		t.Errorf("health = %+v", health)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(&stubStore{}, &stubResolver{}, nil)

	rec := do(t, srv, http.MethodGet, "/health", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func multipartAnalyzeRequest(t *testing.T, teamDetails string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("workspace_id", "acme"); err != nil {
		t.Fatal(err)
	}
	if err := mw.WriteField("team_details", teamDetails); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

const validTeamJSON = `{"team_members": {"Alice": {"current_role": "Engineer", "skills": ["Go"], "experience": "5 years"}}}`

func TestAnalyzeEndpoint(t *testing.T) {
	analyzer := &stubAnalyzer{result: &service.AnalyzeResult{
		WorkspaceID:          "acme",
		Database:             "db_acme",
		RolesCreated:         1,
		TasksCreated:         2,
		TeamMembersProcessed: 1,
	}}
	store := &stubStore{stats: &models.Statistics{RoleCount: 1, TaskCount: 2, PersonCount: 1}}
	srv := newTestServer(store, &stubResolver{}, analyzer)

	req := multipartAnalyzeRequest(t, validTeamJSON, map[string]string{"spec.txt": "the doc"})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if resp.Status != "success" {
		t.Errorf("response = %+v", resp)
	}
	if analyzer.gotWorkspace != "acme" {
		t.Errorf("workspace = %q", analyzer.gotWorkspace)
	}
	if len(analyzer.gotPaths) != 1 || !strings.HasSuffix(analyzer.gotPaths[0], "spec.txt") {
		t.Errorf("paths = %v", analyzer.gotPaths)
	}
}

func TestAnalyzeRejectsUnsupportedFile(t *testing.T) {
	srv := newTestServer(&stubStore{}, &stubResolver{}, &stubAnalyzer{})

	req := multipartAnalyzeRequest(t, validTeamJSON, map[string]string{"report.docx": "nope"})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestAnalyzeRejectsBadTeamDetails(t *testing.T) {
	srv := newTestServer(&stubStore{}, &stubResolver{}, &stubAnalyzer{})

	req := multipartAnalyzeRequest(t, `{"team_members": {}}`, map[string]string{"spec.txt": "doc"})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}
