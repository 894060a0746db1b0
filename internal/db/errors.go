// Package db provides SurrealDB connectivity, workspace provisioning and
// graph operations for teamgraph.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

// Sentinel errors for database operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotFound indicates the requested node or edge does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRoleNotFound indicates a task was addressed to a role that does
	// not exist in the workspace.
	ErrRoleNotFound = errors.New("role not found")

	// ErrInvalidWorkspaceID indicates a workspace identifier that is empty
	// after sanitization and cannot name a database.
	ErrInvalidWorkspaceID = errors.New("invalid workspace id")

	// ErrInvalidLabel indicates a node label outside the known set.
	ErrInvalidLabel = errors.New("invalid node label")

	// ErrInvalidRelType indicates a relationship type outside the known set.
	ErrInvalidRelType = errors.New("invalid relationship type")

	// ErrDatabaseNotReady indicates a freshly created workspace database
	// did not appear in the catalog within the readiness window.
	ErrDatabaseNotReady = errors.New("database not ready")
)

// QueryFailure wraps the last error after all retry attempts were spent.
// It carries the query text and parameter names for diagnostics.
type QueryFailure struct {
	Query    string
	Params   []string
	Attempts int
	Err      error
}

func (e *QueryFailure) Error() string {
	return fmt.Sprintf("query failed after %d attempts: %v (query: %s, params: %s)",
		e.Attempts, e.Err, strings.TrimSpace(e.Query), strings.Join(e.Params, ","))
}

func (e *QueryFailure) Unwrap() error {
	return e.Err
}

// wrapQueryError inspects a SurrealDB error and wraps it with the appropriate
// sentinel error if it's a known query error type. Returns the original error
// otherwise.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}

	// Extract QueryError if present - this is a database-level error
	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) {
		msg := queryErr.Message
		if strings.Contains(msg, "role not found") {
			return fmt.Errorf("%w: %s", ErrRoleNotFound, msg)
		}
	}

	return err
}

// isRetryable reports whether a failed query attempt is worth repeating.
// Semantic failures (the database evaluated the query and rejected it) and
// context cancellation fail fast; everything else is treated as a transport
// fault and retried.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var queryErr *surrealdb.QueryError
	return !errors.As(err, &queryErr)
}

func paramNames(vars map[string]any) []string {
	if len(vars) == 0 {
		return nil
	}
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	return names
}
