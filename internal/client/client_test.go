package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kritsw/teamgraph/internal/client"
	"github.com/kritsw/teamgraph/internal/models"
)

func TestWorkspaceTasks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/workspace/sprint42/tasks", r.URL.Path)
		json.NewEncoder(w).Encode(map[string][]models.TaskRecord{
			"Alice": {{Task: "Build API", Role: "Backend", Status: "pending", NodeID: 3}},
		})
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	tasks, err := c.WorkspaceTasks(context.Background(), "sprint42")
	require.NoError(t, err)
	require.Len(t, tasks["Alice"], 1)
	assert.Equal(t, "Build API", tasks["Alice"][0].Task)
	assert.Equal(t, int64(3), tasks["Alice"][0].NodeID)
}

func TestAddTaskSendsPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/workspace/sprint42/task", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(client.Response{Status: "success", Message: "Task added"})
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	resp, err := c.AddTask(context.Background(), "sprint42", client.AddTaskInput{
		RoleName: "Backend",
		TaskName: "Build API",
		Priority: "high",
	})
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "Backend", got["role_name"])
	assert.Equal(t, "Build API", got["task_name"])
	assert.Equal(t, "high", got["priority"])
	// Zero-valued optional fields stay off the wire
	assert.NotContains(t, got, "estimated_hours")
}

func TestErrorEnvelopeBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(client.Response{Status: "error", Message: "Role not found: Nonexistent"})
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	_, err := c.AddTask(context.Background(), "sprint42", client.AddTaskInput{
		RoleName: "Nonexistent",
		TaskName: "Orphan",
	})
	require.Error(t, err)

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Role not found: Nonexistent", apiErr.Message)
}

func TestNonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	_, err := c.Health(context.Background())
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestAnalyzeUploadsMultipart(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "spec.txt")
	require.NoError(t, os.WriteFile(doc, []byte("The backend role builds the API."), 0o600))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analyze", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "sprint42", r.FormValue("workspace_id"))
		assert.NotEmpty(t, r.FormValue("team_details"))

		files := r.MultipartForm.File["files"]
		require.Len(t, files, 1)
		assert.Equal(t, "spec.txt", files[0].Filename)

		json.NewEncoder(w).Encode(client.Response{
			Status:  "success",
			Message: "Analysis completed successfully",
			Details: map[string]any{"analysis": map[string]any{"roles_created": 1}},
		})
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	resp, err := c.Analyze(context.Background(), "sprint42", `{"team_members":{}}`, []string{doc})
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Status)
}

func TestAnalyzeMissingFile(t *testing.T) {
	c := client.New("http://localhost:1")
	_, err := c.Analyze(context.Background(), "sprint42", "{}", []string{"/no/such/file.txt"})
	require.Error(t, err)
}

func TestDeletePaths(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		paths = append(paths, r.URL.Path)
		json.NewEncoder(w).Encode(client.Response{Status: "success", Message: "deleted"})
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	_, err := c.DeleteNode(context.Background(), "sprint42", 17)
	require.NoError(t, err)
	_, err = c.DeleteEdge(context.Background(), "sprint42", 23)
	require.NoError(t, err)

	assert.Equal(t, []string{"/workspace/sprint42/node/17", "/workspace/sprint42/edge/23"}, paths)
}

func TestMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/metrics", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"uptime_seconds": 12.5,
			"db_query":       map[string]any{"count": 4, "total_time_ms": 40, "avg_time_ms": 10.0},
		})
	}))
	defer srv.Close()

	c := client.New(srv.URL)
	snap, err := c.Metrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12.5, snap.UptimeSeconds)
	require.NotNil(t, snap.DBQuery)
	assert.Equal(t, int64(4), snap.DBQuery.Count)
	assert.Nil(t, snap.LLMExtract)
}
