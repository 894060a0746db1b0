// Package server exposes the workspace graph over a REST API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/kritsw/teamgraph/internal/config"
	"github.com/kritsw/teamgraph/internal/metrics"
	"github.com/kritsw/teamgraph/internal/models"
	"github.com/kritsw/teamgraph/internal/service"
)

// Store is the graph surface the HTTP handlers operate on, implemented by
// db.Graph.
type Store interface {
	GetNodeByID(ctx context.Context, database string, id int64) (*models.Node, error)
	UpdateNodeByID(ctx context.Context, database string, id int64, properties map[string]any) (bool, error)
	DeleteNodeByID(ctx context.Context, database string, id int64) (bool, error)
	DeleteEdgeByID(ctx context.Context, database string, id int64) (bool, error)
	WorkspaceTasks(ctx context.Context, database, workspaceID string) (map[string][]models.TaskRecord, error)
	Statistics(ctx context.Context, database, workspaceID string) (*models.Statistics, error)
	AddTaskToRole(ctx context.Context, database, roleName, taskName string, properties map[string]any) (*models.Node, error)
	AssignTask(ctx context.Context, database string, taskID int64, assignee string) (bool, error)
	FullGraph(ctx context.Context, database string) (*models.GraphExport, error)
	Members(ctx context.Context, database string) ([]models.Member, error)
}

// Resolver maps a workspace id onto a ready database, implemented by
// db.Provisioner.
type Resolver interface {
	Ensure(ctx context.Context, workspaceID string) (string, error)
}

// Analyzer runs the ingestion pipeline, implemented by service.Analyzer.
type Analyzer interface {
	Analyze(ctx context.Context, workspaceID string, team *models.TeamDetails, filePaths []string) (*service.AnalyzeResult, error)
}

// Pinger reports store connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options carries the collaborators a Server needs.
type Options struct {
	Version   string
	Logger    *slog.Logger
	Store     Store
	Resolver  Resolver
	Analyzer  Analyzer
	Pinger    Pinger
	Collector *metrics.Collector
}

// Server serves the workspace graph REST API.
type Server struct {
	addr      string
	version   string
	logger    *slog.Logger
	store     Store
	resolver  Resolver
	analyzer  Analyzer
	pinger    Pinger
	collector *metrics.Collector
	handler   http.Handler
}

// New creates a Server listening on the configured port.
func New(cfg config.ServerConfig, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		addr:      net.JoinHostPort("", cfg.Port),
		version:   opts.Version,
		logger:    log,
		store:     opts.Store,
		resolver:  opts.Resolver,
		analyzer:  opts.Analyzer,
		pinger:    opts.Pinger,
		collector: opts.Collector,
	}
	s.handler = Logging(log)(s.routes())
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("GET /workspace/{id}/tasks", s.handleTasks)
	mux.HandleFunc("GET /workspace/{id}/statistics", s.handleStatistics)
	mux.HandleFunc("GET /workspace/{id}/graph", s.handleGraph)
	mux.HandleFunc("GET /workspace/{id}/members", s.handleMembers)
	mux.HandleFunc("POST /workspace/{id}/task", s.handleAddTask)
	mux.HandleFunc("POST /workspace/{id}/task/{taskID}/assign", s.handleAssignTask)
	mux.HandleFunc("PUT /workspace/{id}/node/{nodeID}", s.handleUpdateNode)
	mux.HandleFunc("DELETE /workspace/{id}/node/{nodeID}", s.handleDeleteNode)
	mux.HandleFunc("DELETE /workspace/{id}/edge/{edgeID}", s.handleDeleteEdge)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	return mux
}

// Handler returns the fully wired handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run starts the HTTP server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.addr, "version", s.version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}
