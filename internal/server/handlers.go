package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kritsw/teamgraph/internal/db"
	"github.com/kritsw/teamgraph/internal/llm"
	"github.com/kritsw/teamgraph/internal/metrics"
	"github.com/kritsw/teamgraph/internal/models"
	"github.com/kritsw/teamgraph/internal/service"
)

// maxUploadBytes caps the total size of an analyze request.
const maxUploadBytes = 64 << 20

// Response is the envelope every mutation endpoint answers with.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, Response{Status: "error", Message: message})
}

// resolve provisions the workspace database for the request's workspace id.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	workspaceID := r.PathValue("id")
	database, err := s.resolver.Ensure(r.Context(), workspaceID)
	if err != nil {
		if errors.Is(err, db.ErrInvalidWorkspaceID) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid workspace id %q", workspaceID))
		} else {
			s.logger.Error("workspace provisioning failed", "workspace", workspaceID, "error", err)
			writeError(w, http.StatusInternalServerError, "workspace unavailable")
		}
		return "", "", false
	}
	return database, workspaceID, true
}

func pathInt(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

var allowedUploadExts = map[string]bool{".pdf": true, ".txt": true, ".md": true}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	workspaceID := r.FormValue("workspace_id")
	if workspaceID == "" {
		writeError(w, http.StatusBadRequest, "workspace_id is required")
		return
	}

	team, err := service.ParseTeamDetails([]byte(r.FormValue("team_details")))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "at least one document file is required")
		return
	}
	for _, fh := range files {
		if !allowedUploadExts[strings.ToLower(filepath.Ext(fh.Filename))] {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("unsupported file type %q, expected .pdf, .txt or .md", filepath.Base(fh.Filename)))
			return
		}
	}

	paths, cleanup, err := saveUploads(files)
	if err != nil {
		s.logger.Error("saving uploads failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store uploaded files")
		return
	}
	defer cleanup()

	result, err := s.analyzer.Analyze(r.Context(), workspaceID, team, paths)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTeamDetails), errors.Is(err, db.ErrInvalidWorkspaceID):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, llm.ErrFatalAPI):
			s.logger.Error("analysis aborted by LLM provider", "workspace", workspaceID, "error", err)
			writeError(w, http.StatusBadGateway, "language model provider rejected the request")
		default:
			s.logger.Error("analysis failed", "workspace", workspaceID, "error", err)
			writeError(w, http.StatusInternalServerError, "analysis failed")
		}
		return
	}

	details := map[string]any{"analysis": result}
	if stats, err := s.store.Statistics(r.Context(), result.Database, workspaceID); err != nil {
		s.logger.Warn("post-analysis statistics failed", "workspace", workspaceID, "error", err)
	} else {
		details["statistics"] = stats
	}

	writeJSON(w, http.StatusOK, Response{
		Status:  "success",
		Message: "Analysis completed successfully",
		Details: details,
	})
}

// saveUploads writes multipart files into a fresh temp directory. The
// returned cleanup removes the directory and must run on every exit path.
func saveUploads(files []*multipart.FileHeader) ([]string, func(), error) {
	dir := filepath.Join(os.TempDir(), "teamgraph-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	paths := make([]string, 0, len(files))
	for _, fh := range files {
		src, err := fh.Open()
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		dstPath := filepath.Join(dir, filepath.Base(fh.Filename))
		dst, err := os.Create(dstPath)
		if err != nil {
			src.Close()
			cleanup()
			return nil, nil, err
		}
		_, err = io.Copy(dst, src)
		src.Close()
		dst.Close()
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		paths = append(paths, dstPath)
	}
	return paths, cleanup, nil
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	database, workspaceID, ok := s.resolve(w, r)
	if !ok {
		return
	}
	tasks, err := s.store.WorkspaceTasks(r.Context(), database, workspaceID)
	if err != nil {
		s.logger.Error("workspace tasks query failed", "workspace", workspaceID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load tasks")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	database, workspaceID, ok := s.resolve(w, r)
	if !ok {
		return
	}
	stats, err := s.store.Statistics(r.Context(), database, workspaceID)
	if err != nil {
		s.logger.Error("statistics query failed", "workspace", workspaceID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	database, workspaceID, ok := s.resolve(w, r)
	if !ok {
		return
	}
	graph, err := s.store.FullGraph(r.Context(), database)
	if err != nil {
		s.logger.Error("graph export failed", "workspace", workspaceID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export graph")
		return
	}
	writeJSON(w, http.StatusOK, graph)
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	database, workspaceID, ok := s.resolve(w, r)
	if !ok {
		return
	}
	members, err := s.store.Members(r.Context(), database)
	if err != nil {
		s.logger.Error("members query failed", "workspace", workspaceID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load members")
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	database, workspaceID, ok := s.resolve(w, r)
	if !ok {
		return
	}

	var req struct {
		RoleName       string  `json:"role_name"`
		TaskName       string  `json:"task_name"`
		Description    string  `json:"description"`
		Priority       string  `json:"priority"`
		EstimatedHours float64 `json:"estimated_hours"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RoleName == "" || req.TaskName == "" {
		writeError(w, http.StatusBadRequest, "role_name and task_name are required")
		return
	}
	if req.Priority == "" {
		req.Priority = string(models.PriorityMedium)
	}
	if !models.TaskPriority(req.Priority).Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid priority %q", req.Priority))
		return
	}

	task, err := s.store.AddTaskToRole(r.Context(), database, req.RoleName, req.TaskName, map[string]any{
		"description":     req.Description,
		"priority":        req.Priority,
		"estimated_hours": req.EstimatedHours,
	})
	if err != nil {
		if errors.Is(err, db.ErrRoleNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("role %q not found in workspace", req.RoleName))
			return
		}
		s.logger.Error("add task failed", "workspace", workspaceID, "role", req.RoleName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add task")
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Status:  "success",
		Message: "Task added successfully",
		Details: map[string]any{
			"task_id":    task.ID,
			"properties": task.Properties,
			"timestamp":  time.Now().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleAssignTask(w http.ResponseWriter, r *http.Request) {
	database, workspaceID, ok := s.resolve(w, r)
	if !ok {
		return
	}
	taskID, err := pathInt(r, "taskID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "task id must be an integer")
		return
	}

	var req struct {
		Assignee string `json:"assignee"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Assignee == "" {
		writeError(w, http.StatusBadRequest, "assignee is required")
		return
	}

	assigned, err := s.store.AssignTask(r.Context(), database, taskID, req.Assignee)
	if err != nil {
		s.logger.Error("assign task failed", "workspace", workspaceID, "task", taskID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to assign task")
		return
	}
	if !assigned {
		writeError(w, http.StatusNotFound, "task or person not found")
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Status:  "success",
		Message: "Task assigned successfully",
		Details: map[string]any{
			"task_id":   taskID,
			"assignee":  req.Assignee,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	database, workspaceID, ok := s.resolve(w, r)
	if !ok {
		return
	}
	nodeID, err := pathInt(r, "nodeID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "node id must be an integer")
		return
	}

	var props map[string]any
	if err := json.NewDecoder(r.Body).Decode(&props); err != nil || len(props) == 0 {
		writeError(w, http.StatusBadRequest, "a non-empty properties object is required")
		return
	}

	updated, err := s.store.UpdateNodeByID(r.Context(), database, nodeID, props)
	if err != nil {
		s.logger.Error("update node failed", "workspace", workspaceID, "node", nodeID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update node")
		return
	}
	if !updated {
		writeError(w, http.StatusNotFound, fmt.Sprintf("node %d not found", nodeID))
		return
	}

	// Assigning via the generic property endpoint also moves the task's
	// ASSIGNED_TO edge so the graph stays consistent with the property.
	if assignee, _ := props["assignee"].(string); assignee != "" {
		node, err := s.store.GetNodeByID(r.Context(), database, nodeID)
		if err == nil && node != nil && node.Label == models.LabelTask {
			if moved, err := s.store.AssignTask(r.Context(), database, nodeID, assignee); err != nil {
				s.logger.Warn("rewiring assignment failed", "node", nodeID, "assignee", assignee, "error", err)
			} else if !moved {
				s.logger.Warn("assignee not found, edge not rewired", "node", nodeID, "assignee", assignee)
			}
		}
	}

	writeJSON(w, http.StatusOK, Response{
		Status:  "success",
		Message: "Node updated successfully",
		Details: map[string]any{
			"node_id":    nodeID,
			"properties": props,
			"timestamp":  time.Now().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	database, workspaceID, ok := s.resolve(w, r)
	if !ok {
		return
	}
	nodeID, err := pathInt(r, "nodeID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "node id must be an integer")
		return
	}

	deleted, err := s.store.DeleteNodeByID(r.Context(), database, nodeID)
	if err != nil {
		s.logger.Error("delete node failed", "workspace", workspaceID, "node", nodeID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete node")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, fmt.Sprintf("node %d not found", nodeID))
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Status:  "success",
		Message: "Node deleted successfully",
		Details: map[string]any{
			"node_id":   nodeID,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleDeleteEdge(w http.ResponseWriter, r *http.Request) {
	database, workspaceID, ok := s.resolve(w, r)
	if !ok {
		return
	}
	edgeID, err := pathInt(r, "edgeID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "edge id must be an integer")
		return
	}

	deleted, err := s.store.DeleteEdgeByID(r.Context(), database, edgeID)
	if err != nil {
		s.logger.Error("delete edge failed", "workspace", workspaceID, "edge", edgeID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete edge")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, fmt.Sprintf("edge %d not found", edgeID))
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Status:  "success",
		Message: "Edge deleted successfully",
		Details: map[string]any{
			"edge_id":   edgeID,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	database := "connected"
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			status = "degraded"
			database = "unreachable: " + err.Error()
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"version":   s.version,
		"timestamp": time.Now().Format(time.RFC3339),
		"database":  database,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var snap metrics.Snapshot
	if s.collector != nil {
		snap = s.collector.Snapshot()
	}
	writeJSON(w, http.StatusOK, snap)
}
