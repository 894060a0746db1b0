package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kritsw/teamgraph/internal/metrics"
)

const (
	readinessAttempts = 5
	readinessDelay    = 2 * time.Second
)

// DatabaseName derives the database name for a workspace identifier.
// Non-alphanumeric characters are stripped; if that changed the identifier,
// a short hash of the original is appended so distinct identifiers that
// sanitize to the same string still get distinct databases. An identifier
// with no alphanumeric characters at all is rejected.
func DatabaseName(workspaceID string) (string, error) {
	var b strings.Builder
	for _, r := range workspaceID {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" {
		return "", fmt.Errorf("%w: %q has no usable characters", ErrInvalidWorkspaceID, workspaceID)
	}
	if name != workspaceID {
		sum := sha256.Sum256([]byte(workspaceID))
		name += "_" + hex.EncodeToString(sum[:])[:8]
	}
	return name, nil
}

// Provisioner creates workspace databases on demand and remembers which ones
// it has already verified, so repeat requests for the same workspace skip
// the catalog round-trip.
type Provisioner struct {
	mgr    *Manager
	logger *slog.Logger

	mu    sync.Mutex
	ready map[string]string // workspace id -> database name
}

// NewProvisioner creates a Provisioner backed by mgr.
func NewProvisioner(mgr *Manager, log *slog.Logger) *Provisioner {
	if log == nil {
		log = slog.Default()
	}
	return &Provisioner{
		mgr:    mgr,
		logger: log,
		ready:  make(map[string]string),
	}
}

// Ensure resolves workspaceID to a database name, creating the database and
// applying the workspace schema if it does not exist yet. It returns once
// the database is visible in the namespace catalog.
func (p *Provisioner) Ensure(ctx context.Context, workspaceID string) (string, error) {
	name, err := DatabaseName(workspaceID)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	if cached, ok := p.ready[workspaceID]; ok {
		p.mu.Unlock()
		return cached, nil
	}
	p.mu.Unlock()

	start := time.Now()
	defer func() {
		if p.mgr.collector != nil {
			p.mgr.collector.RecordTiming(metrics.OpDBProvision, time.Since(start))
		}
	}()

	exists, err := p.databaseExists(ctx, name)
	if err != nil {
		return "", fmt.Errorf("check database %s: %w", name, err)
	}

	if !exists {
		p.logger.Info("creating workspace database", "workspace", workspaceID, "database", name)
		// name is sanitized to [A-Za-z0-9_], safe to interpolate
		stmt := fmt.Sprintf("DEFINE DATABASE IF NOT EXISTS %s", name)
		if _, err := Execute[any](ctx, p.mgr, p.mgr.SystemDatabase(), stmt, nil); err != nil {
			return "", fmt.Errorf("create database %s: %w", name, err)
		}
		if err := p.awaitReady(ctx, name); err != nil {
			return "", err
		}
	} else {
		p.logger.Debug("workspace database already exists", "database", name)
	}

	if _, err := Execute[any](ctx, p.mgr, name, workspaceSchemaSQL, nil); err != nil {
		return "", fmt.Errorf("apply schema to %s: %w", name, err)
	}

	p.mu.Lock()
	p.ready[workspaceID] = name
	p.mu.Unlock()

	return name, nil
}

// databaseExists consults the namespace catalog.
func (p *Provisioner) databaseExists(ctx context.Context, name string) (bool, error) {
	results, err := Execute[map[string]any](ctx, p.mgr, p.mgr.SystemDatabase(), "INFO FOR NS", nil)
	if err != nil {
		return false, err
	}
	if len(results) == 0 {
		return false, nil
	}
	databases, _ := results[0].Result["databases"].(map[string]any)
	_, ok := databases[name]
	return ok, nil
}

// awaitReady polls the catalog until the new database shows up.
func (p *Provisioner) awaitReady(ctx context.Context, name string) error {
	for attempt := 1; attempt <= readinessAttempts; attempt++ {
		exists, err := p.databaseExists(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			p.logger.Info("workspace database ready", "database", name, "attempts", attempt)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readinessDelay):
		}
	}
	return fmt.Errorf("%w: %s not in catalog after %d attempts", ErrDatabaseNotReady, name, readinessAttempts)
}
