// Package client provides a REST client for the teamgraph server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kritsw/teamgraph/internal/metrics"
	"github.com/kritsw/teamgraph/internal/models"
)

// Client talks to a teamgraph server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new client.
// If baseURL is empty, uses TEAMGRAPH_SERVER_URL env var or defaults to localhost:8080.
// Timeout can be configured via TEAMGRAPH_CLIENT_TIMEOUT env var (default 10m, analyze calls wait on LLM batches).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("TEAMGRAPH_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	timeout := 10 * time.Minute
	if t := os.Getenv("TEAMGRAPH_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Response mirrors the server's mutation envelope.
type Response struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// do sends a request with an optional JSON body and decodes the response
// into result.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, result)
}

func (c *Client) send(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope Response
		if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Message != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: envelope.Message}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	if result != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// Analyze uploads documents and team details for ingestion into a workspace.
func (c *Client) Analyze(ctx context.Context, workspaceID, teamDetailsJSON string, filePaths []string) (*Response, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("workspace_id", workspaceID); err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if err := mw.WriteField("team_details", teamDetailsJSON); err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for _, path := range filePaths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		part, err := mw.CreateFormFile("files", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("attach %s: %w", path, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp Response
	if err := c.send(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WorkspaceTasks returns the per-person task distribution of a workspace.
func (c *Client) WorkspaceTasks(ctx context.Context, workspaceID string) (map[string][]models.TaskRecord, error) {
	var tasks map[string][]models.TaskRecord
	if err := c.do(ctx, http.MethodGet, "/workspace/"+workspaceID+"/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Statistics returns workspace graph statistics.
func (c *Client) Statistics(ctx context.Context, workspaceID string) (*models.Statistics, error) {
	var stats models.Statistics
	if err := c.do(ctx, http.MethodGet, "/workspace/"+workspaceID+"/statistics", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Graph returns the full workspace graph export.
func (c *Client) Graph(ctx context.Context, workspaceID string) (*models.GraphExport, error) {
	var graph models.GraphExport
	if err := c.do(ctx, http.MethodGet, "/workspace/"+workspaceID+"/graph", nil, &graph); err != nil {
		return nil, err
	}
	return &graph, nil
}

// Members lists the Person nodes of a workspace.
func (c *Client) Members(ctx context.Context, workspaceID string) ([]models.Member, error) {
	var members []models.Member
	if err := c.do(ctx, http.MethodGet, "/workspace/"+workspaceID+"/members", nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// AddTaskInput is the payload for adding a task to a role.
type AddTaskInput struct {
	RoleName       string  `json:"role_name"`
	TaskName       string  `json:"task_name"`
	Description    string  `json:"description,omitempty"`
	Priority       string  `json:"priority,omitempty"`
	EstimatedHours float64 `json:"estimated_hours,omitempty"`
}

// AddTask creates a task under a named role.
func (c *Client) AddTask(ctx context.Context, workspaceID string, input AddTaskInput) (*Response, error) {
	var resp Response
	if err := c.do(ctx, http.MethodPost, "/workspace/"+workspaceID+"/task", input, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AssignTask assigns or reassigns a task to a person.
func (c *Client) AssignTask(ctx context.Context, workspaceID string, taskID int64, assignee string) (*Response, error) {
	var resp Response
	path := fmt.Sprintf("/workspace/%s/task/%d/assign", workspaceID, taskID)
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"assignee": assignee}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateNode merges properties into a node.
func (c *Client) UpdateNode(ctx context.Context, workspaceID string, nodeID int64, properties map[string]any) (*Response, error) {
	var resp Response
	path := fmt.Sprintf("/workspace/%s/node/%d", workspaceID, nodeID)
	if err := c.do(ctx, http.MethodPut, path, properties, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteNode deletes a node and its edges.
func (c *Client) DeleteNode(ctx context.Context, workspaceID string, nodeID int64) (*Response, error) {
	var resp Response
	path := fmt.Sprintf("/workspace/%s/node/%d", workspaceID, nodeID)
	if err := c.do(ctx, http.MethodDelete, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteEdge deletes a single edge.
func (c *Client) DeleteEdge(ctx context.Context, workspaceID string, edgeID int64) (*Response, error) {
	var resp Response
	path := fmt.Sprintf("/workspace/%s/edge/%d", workspaceID, edgeID)
	if err := c.do(ctx, http.MethodDelete, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health reports the server's health payload.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var health map[string]any
	if err := c.do(ctx, http.MethodGet, "/health", nil, &health); err != nil {
		return nil, err
	}
	return health, nil
}

// Metrics returns the server's runtime metrics snapshot.
func (c *Client) Metrics(ctx context.Context) (*metrics.Snapshot, error) {
	var snap metrics.Snapshot
	if err := c.do(ctx, http.MethodGet, "/metrics", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
