package db

import (
	"context"
	"crypto/tls"
	"log/slog"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/pkg/logger"
	"github.com/surrealdb/surrealdb.go/surrealcbor"

	"github.com/kritsw/teamgraph/internal/config"
	"github.com/kritsw/teamgraph/internal/metrics"
)

func init() {
	// Force HTTP/1.1 for WSS connections to prevent HTTP/2 ALPN negotiation.
	// WebSocket upgrade requires HTTP/1.1 semantics which fail under HTTP/2.
	gorillaws.DefaultDialer.TLSClientConfig = &tls.Config{
		NextProtos: []string{"http/1.1"},
	}
}

const (
	defaultAttempts   = 3
	defaultRetryDelay = 1 * time.Second
)

// Manager executes queries against workspace databases. Every call opens a
// fresh session scoped to the target database, so concurrent calls against
// different workspaces never share connection state.
type Manager struct {
	cfg       config.SurrealConfig
	logger    *slog.Logger
	sdkLogger logger.Logger
	collector *metrics.Collector

	attempts   int
	retryDelay time.Duration
}

// NewManager creates a Manager. collector may be nil.
func NewManager(cfg config.SurrealConfig, log *slog.Logger, collector *metrics.Collector) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		cfg:        cfg,
		logger:     log,
		sdkLogger:  logger.New(log.Handler()),
		collector:  collector,
		attempts:   defaultAttempts,
		retryDelay: defaultRetryDelay,
	}
}

// Namespace returns the namespace all workspace databases live under.
func (m *Manager) Namespace() string {
	return m.cfg.Namespace
}

// SystemDatabase returns the database used for catalog operations.
func (m *Manager) SystemDatabase() string {
	return m.cfg.SystemDatabase
}

// Ping verifies the store is reachable by opening a session against the
// system database and running a trivial query.
func (m *Manager) Ping(ctx context.Context) error {
	db, cleanup, err := m.session(ctx, m.cfg.SystemDatabase)
	if err != nil {
		return err
	}
	defer cleanup()
	_, err = surrealdb.Query[any](ctx, db, "RETURN 1", nil)
	return err
}

// session dials, authenticates and selects database. The returned cleanup
// closes the connection; callers must always invoke it.
func (m *Manager) session(ctx context.Context, database string) (*surrealdb.DB, func(), error) {
	// Use surrealcbor for CBOR encoding/decoding (handles SurrealDB custom tags)
	codec := surrealcbor.New()

	// gorillaws requires the URL without /rpc suffix (it adds /rpc internally)
	baseURL := strings.TrimSuffix(m.cfg.URL, "/rpc")

	conn := gorillaws.New(&connection.Config{
		BaseURL:     baseURL,
		Marshaler:   codec,
		Unmarshaler: codec,
		Logger:      m.sdkLogger,
	})
	if err := conn.Connect(ctx); err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = conn.Close(context.Background())
	}

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if _, err := db.SignIn(ctx, surrealdb.Auth{
		Username: m.cfg.Username,
		Password: m.cfg.Password,
	}); err != nil {
		cleanup()
		return nil, nil, err
	}
	if err := db.Use(ctx, m.cfg.Namespace, database); err != nil {
		cleanup()
		return nil, nil, err
	}
	return db, cleanup, nil
}

// Execute runs sql with vars against the given workspace database, retrying
// transient failures. Each attempt uses its own session. Semantic errors
// (the database rejected the query) are returned immediately; transport
// faults are retried with a fixed delay until the attempts are spent, then
// wrapped in a QueryFailure.
func Execute[T any](ctx context.Context, m *Manager, database, sql string, vars map[string]any) ([]surrealdb.QueryResult[T], error) {
	start := time.Now()
	defer func() {
		if m.collector != nil {
			m.collector.RecordTiming(metrics.OpDBQuery, time.Since(start))
		}
	}()

	var lastErr error
	for attempt := 1; attempt <= m.attempts; attempt++ {
		results, err := executeOnce[T](ctx, m, database, sql, vars)
		if err == nil {
			return results, nil
		}

		err = wrapQueryError(err)
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err

		m.logger.Warn("query attempt failed",
			"database", database,
			"attempt", attempt,
			"error", err)

		if attempt < m.attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(m.retryDelay):
			}
		}
	}

	return nil, &QueryFailure{
		Query:    sql,
		Params:   paramNames(vars),
		Attempts: m.attempts,
		Err:      lastErr,
	}
}

func executeOnce[T any](ctx context.Context, m *Manager, database, sql string, vars map[string]any) ([]surrealdb.QueryResult[T], error) {
	db, cleanup, err := m.session(ctx, database)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	results, err := surrealdb.Query[T](ctx, db, sql, vars)
	if err != nil {
		return nil, err
	}
	if results == nil {
		return nil, nil
	}
	return *results, nil
}
