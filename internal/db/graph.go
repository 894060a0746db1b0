package db

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/surrealdb/surrealdb.go/pkg/models"

	tgmodels "github.com/kritsw/teamgraph/internal/models"
)

// Graph performs node and edge operations against workspace databases.
// Nodes and edges are addressed by store-assigned integer ids allocated
// from the counter table, so an id alone identifies a record regardless
// of label.
type Graph struct {
	mgr *Manager
}

// NewGraph creates a Graph backed by mgr.
func NewGraph(mgr *Manager) *Graph {
	return &Graph{mgr: mgr}
}

// CreateNode creates a node with the given label and properties and returns
// it with its assigned id. created_at is stamped if the caller did not
// provide one; map and slice property values are stored as JSON strings.
func (g *Graph) CreateNode(ctx context.Context, database string, label tgmodels.Label, properties map[string]any) (*tgmodels.Node, error) {
	if !label.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}

	content := serializeProps(properties)
	if _, ok := content["created_at"]; !ok {
		content["created_at"] = time.Now().Format(time.RFC3339)
	}
	content["label"] = string(label)

	sql := `
		LET $next = (UPSERT ONLY counter:ids SET next += 1 RETURN AFTER).next;
		CREATE ONLY type::record('node', $next) CONTENT $content RETURN AFTER;
	`
	results, err := Execute[map[string]any](ctx, g.mgr, database, sql, map[string]any{
		"content": content,
	})
	if err != nil {
		return nil, fmt.Errorf("create node: %w", err)
	}
	if len(results) < 2 || results[1].Result == nil {
		return nil, fmt.Errorf("create node: no result returned")
	}
	return nodeFromRow(results[1].Result)
}

// CreateRelationship creates a typed edge between two nodes addressed by
// label and name, mirroring how nodes are wired during ingestion. Both
// endpoints must exist.
func (g *Graph) CreateRelationship(
	ctx context.Context,
	database string,
	fromLabel tgmodels.Label, fromName string,
	toLabel tgmodels.Label, toName string,
	relType tgmodels.RelType,
	properties map[string]any,
) (*tgmodels.Edge, error) {
	if !fromLabel.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLabel, fromLabel)
	}
	if !toLabel.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLabel, toLabel)
	}
	if !relType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRelType, relType)
	}

	props := serializeProps(properties)
	if _, ok := props["created_at"]; !ok {
		props["created_at"] = time.Now().Format(time.RFC3339)
	}

	sql := `
		BEGIN TRANSACTION;
		LET $a = (SELECT VALUE id FROM node WHERE label = $from_label AND name = $from_name LIMIT 1)[0];
		LET $b = (SELECT VALUE id FROM node WHERE label = $to_label AND name = $to_name LIMIT 1)[0];
		IF $a = NONE OR $b = NONE {
			THROW "endpoint not found"
		};
		LET $next = (UPSERT ONLY counter:ids SET next += 1 RETURN AFTER).next;
		INSERT RELATION INTO edge { id: $next, in: $a, out: $b, rel_type: $rel_type };
		UPDATE type::record('edge', $next) MERGE $props RETURN AFTER;
		COMMIT TRANSACTION;
	`
	results, err := Execute[[]map[string]any](ctx, g.mgr, database, sql, map[string]any{
		"from_label": string(fromLabel),
		"from_name":  fromName,
		"to_label":   string(toLabel),
		"to_name":    toName,
		"rel_type":   string(relType),
		"props":      props,
	})
	if err != nil {
		return nil, fmt.Errorf("create relationship: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("create relationship: no result returned")
	}
	last := results[len(results)-1].Result
	if len(last) == 0 {
		return nil, fmt.Errorf("create relationship: no result returned")
	}
	return edgeFromRow(last[0])
}

// GetNodeByID retrieves a node by id. Returns nil if not found.
func (g *Graph) GetNodeByID(ctx context.Context, database string, id int64) (*tgmodels.Node, error) {
	results, err := Execute[[]map[string]any](ctx, g.mgr, database, `
		SELECT * FROM type::record('node', $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get node: %w", err)
	}
	if len(results) == 0 || len(results[0].Result) == 0 {
		return nil, nil
	}
	return nodeFromRow(results[0].Result[0])
}

// UpdateNodeByID merges properties into a node. Untouched properties keep
// their values; created_at cannot be rewritten and updated_at is stamped on
// every call. Returns false if the node does not exist.
func (g *Graph) UpdateNodeByID(ctx context.Context, database string, id int64, properties map[string]any) (bool, error) {
	props := serializeProps(properties)
	delete(props, "created_at")
	delete(props, "id")
	delete(props, "label")
	props["updated_at"] = time.Now().Format(time.RFC3339)

	results, err := Execute[[]map[string]any](ctx, g.mgr, database, `
		UPDATE type::record('node', $id) MERGE $props RETURN AFTER
	`, map[string]any{"id": id, "props": props})
	if err != nil {
		return false, fmt.Errorf("update node: %w", err)
	}
	return len(results) > 0 && len(results[0].Result) > 0, nil
}

// DeleteNodeByID deletes a node. The edge table's relation typing cascades
// the deletion to every edge touching the node. Returns false if the node
// did not exist; deleting twice is not an error.
func (g *Graph) DeleteNodeByID(ctx context.Context, database string, id int64) (bool, error) {
	results, err := Execute[[]map[string]any](ctx, g.mgr, database, `
		DELETE type::record('node', $id) RETURN BEFORE
	`, map[string]any{"id": id})
	if err != nil {
		return false, fmt.Errorf("delete node: %w", err)
	}
	return len(results) > 0 && len(results[0].Result) > 0, nil
}

// DeleteEdgeByID deletes a single edge without touching its endpoints.
// Returns false if the edge did not exist.
func (g *Graph) DeleteEdgeByID(ctx context.Context, database string, id int64) (bool, error) {
	results, err := Execute[[]map[string]any](ctx, g.mgr, database, `
		DELETE type::record('edge', $id) RETURN BEFORE
	`, map[string]any{"id": id})
	if err != nil {
		return false, fmt.Errorf("delete edge: %w", err)
	}
	return len(results) > 0 && len(results[0].Result) > 0, nil
}

// serializeProps copies props, JSON-encoding map and slice values so they
// round-trip through the store as strings the way scalar values do.
func serializeProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props)+2)
	for k, v := range props {
		if v == nil {
			out[k] = nil
			continue
		}
		switch reflect.TypeOf(v).Kind() {
		case reflect.Map, reflect.Slice, reflect.Array:
			if b, err := json.Marshal(v); err == nil {
				out[k] = string(b)
				continue
			}
			out[k] = v
		default:
			out[k] = v
		}
	}
	return out
}

// nodeFromRow converts a raw node row into a Node, splitting off the id and
// label fields from the property bag.
func nodeFromRow(row map[string]any) (*tgmodels.Node, error) {
	id, ok := recordIDInt(row["id"])
	if !ok {
		return nil, fmt.Errorf("node row has no integer id: %v", row["id"])
	}
	label, _ := row["label"].(string)

	props := make(map[string]any, len(row))
	for k, v := range row {
		if k == "id" || k == "label" {
			continue
		}
		props[k] = v
	}
	return &tgmodels.Node{ID: id, Label: tgmodels.Label(label), Properties: props}, nil
}

// edgeFromRow converts a raw edge row into an Edge.
func edgeFromRow(row map[string]any) (*tgmodels.Edge, error) {
	id, ok := recordIDInt(row["id"])
	if !ok {
		return nil, fmt.Errorf("edge row has no integer id: %v", row["id"])
	}
	from, _ := recordIDInt(row["in"])
	to, _ := recordIDInt(row["out"])
	relType, _ := row["rel_type"].(string)

	props := make(map[string]any, len(row))
	for k, v := range row {
		switch k {
		case "id", "in", "out", "rel_type":
			continue
		}
		props[k] = v
	}
	return &tgmodels.Edge{
		ID:         id,
		From:       from,
		To:         to,
		RelType:    tgmodels.RelType(relType),
		Properties: props,
	}, nil
}

// recordIDInt extracts the integer part of a record id value, which decodes
// either as a models.RecordID or as a bare number depending on context.
func recordIDInt(v any) (int64, bool) {
	switch id := v.(type) {
	case models.RecordID:
		return intFromAny(id.ID)
	case *models.RecordID:
		if id == nil {
			return 0, false
		}
		return intFromAny(id.ID)
	}
	return intFromAny(v)
}

func intFromAny(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case uint32:
		return int64(n), true
	case float64:
		return int64(n), true
	case float32:
		return int64(n), true
	}
	return 0, false
}

func getString(row map[string]any, key string) string {
	s, _ := row[key].(string)
	return s
}

func getFloat(row map[string]any, key string) float64 {
	switch n := row[key].(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case uint64:
		return float64(n)
	}
	return 0
}
