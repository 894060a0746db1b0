package db

import (
	"context"
	"fmt"
	"sort"
	"time"

	tgmodels "github.com/kritsw/teamgraph/internal/models"
)

// WorkspaceTasks returns the workspace's tasks grouped by the people able to
// perform the owning role. People with no reachable tasks are omitted.
func (g *Graph) WorkspaceTasks(ctx context.Context, database, workspaceID string) (map[string][]tgmodels.TaskRecord, error) {
	sql := `
		LET $ws = (SELECT VALUE id FROM node WHERE label = 'Workspace' AND name = $workspace LIMIT 1)[0];
		LET $roles = IF $ws = NONE { [] } ELSE {
			(SELECT VALUE out FROM edge WHERE rel_type = 'CONTAINS_ROLE' AND in = $ws)
		};
		SELECT in, out FROM edge WHERE rel_type = 'CAN_PERFORM' AND out IN $roles FETCH in, out;
		SELECT in, out FROM edge WHERE rel_type = 'HAS_TASK' AND in IN $roles FETCH in, out;
	`
	results, err := Execute[[]map[string]any](ctx, g.mgr, database, sql, map[string]any{
		"workspace": workspaceID,
	})
	if err != nil {
		return nil, fmt.Errorf("workspace tasks: %w", err)
	}
	if len(results) < 4 {
		return map[string][]tgmodels.TaskRecord{}, nil
	}

	// Tasks per role, keyed by role node id
	tasksByRole := make(map[int64][]tgmodels.TaskRecord)
	roleNames := make(map[int64]string)
	for _, row := range results[3].Result {
		role, _ := row["in"].(map[string]any)
		task, _ := row["out"].(map[string]any)
		roleID, ok := recordIDInt(role["id"])
		if !ok {
			continue
		}
		taskID, ok := recordIDInt(task["id"])
		if !ok {
			continue
		}
		roleNames[roleID] = getString(role, "name")
		tasksByRole[roleID] = append(tasksByRole[roleID], tgmodels.TaskRecord{
			Task:           getString(task, "name"),
			Role:           roleNames[roleID],
			NodeID:         taskID,
			Status:         getString(task, "status"),
			CreatedAt:      getString(task, "created_at"),
			Priority:       getString(task, "priority"),
			EstimatedHours: getFloat(task, "estimated_hours"),
		})
	}

	// Join via CAN_PERFORM: a person sees the tasks of every role they
	// can perform. Only people with at least one task appear.
	tasksByPerson := make(map[string][]tgmodels.TaskRecord)
	for _, row := range results[2].Result {
		person, _ := row["in"].(map[string]any)
		role, _ := row["out"].(map[string]any)
		roleID, ok := recordIDInt(role["id"])
		if !ok {
			continue
		}
		name := getString(person, "name")
		if name == "" {
			continue
		}
		if tasks := tasksByRole[roleID]; len(tasks) > 0 {
			tasksByPerson[name] = append(tasksByPerson[name], tasks...)
		}
	}
	return tasksByPerson, nil
}

// Statistics returns counts and name listings for everything reachable from
// the named Workspace node. If the workspace node is absent the zero value
// is returned with only the identifying fields set.
func (g *Graph) Statistics(ctx context.Context, database, workspaceID string) (*tgmodels.Statistics, error) {
	sql := `
		LET $ws = (SELECT VALUE id FROM node WHERE label = 'Workspace' AND name = $workspace LIMIT 1)[0];
		LET $roles = IF $ws = NONE { [] } ELSE {
			(SELECT VALUE out FROM edge WHERE rel_type = 'CONTAINS_ROLE' AND in = $ws)
		};
		LET $tasks = (SELECT VALUE out FROM edge WHERE rel_type = 'HAS_TASK' AND in IN $roles);
		LET $people = array::distinct((SELECT VALUE in FROM edge WHERE rel_type = 'CAN_PERFORM' AND out IN $roles));
		RETURN {
			found: $ws != NONE,
			role_count: array::len($roles),
			task_count: array::len($tasks),
			person_count: array::len($people),
			roles: (SELECT VALUE name FROM $roles),
			team_members: (SELECT VALUE name FROM $people),
			task_statuses: array::distinct((SELECT VALUE status FROM $tasks WHERE status != NONE))
		};
	`
	type statsRow struct {
		Found        bool     `json:"found"`
		RoleCount    int      `json:"role_count"`
		TaskCount    int      `json:"task_count"`
		PersonCount  int      `json:"person_count"`
		Roles        []string `json:"roles"`
		TeamMembers  []string `json:"team_members"`
		TaskStatuses []string `json:"task_statuses"`
	}

	results, err := Execute[statsRow](ctx, g.mgr, database, sql, map[string]any{
		"workspace": workspaceID,
	})
	if err != nil {
		return nil, fmt.Errorf("statistics: %w", err)
	}
	if len(results) == 0 {
		return &tgmodels.Statistics{}, nil
	}

	row := results[len(results)-1].Result
	stats := &tgmodels.Statistics{
		WorkspaceID: workspaceID,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	if !row.Found {
		return &tgmodels.Statistics{}, nil
	}
	stats.RoleCount = row.RoleCount
	stats.TaskCount = row.TaskCount
	stats.PersonCount = row.PersonCount
	stats.Roles = row.Roles
	stats.TeamMembers = row.TeamMembers
	stats.TaskStatuses = row.TaskStatuses
	return stats, nil
}

// AddTaskToRole creates a pending Task node and links it to an existing role
// in one transaction: either both the node and the HAS_TASK edge exist
// afterwards, or neither does. Returns ErrRoleNotFound if the role is absent.
func (g *Graph) AddTaskToRole(ctx context.Context, database, roleName, taskName string, properties map[string]any) (*tgmodels.Node, error) {
	now := time.Now().Format(time.RFC3339)

	content := map[string]any{
		"name":       taskName,
		"type":       "task",
		"status":     string(tgmodels.StatusPending),
		"created_at": now,
	}
	for k, v := range serializeProps(properties) {
		content[k] = v
	}
	content["label"] = string(tgmodels.LabelTask)

	sql := `
		BEGIN TRANSACTION;
		LET $role = (SELECT VALUE id FROM node WHERE label = 'Role' AND name = $role_name LIMIT 1)[0];
		IF $role = NONE {
			THROW "role not found"
		};
		LET $next = (UPSERT ONLY counter:ids SET next += 1 RETURN AFTER).next;
		LET $task = (CREATE ONLY type::record('node', $next) CONTENT $content RETURN AFTER);
		LET $enext = (UPSERT ONLY counter:ids SET next += 1 RETURN AFTER).next;
		LET $rel = (INSERT RELATION INTO edge { id: $enext, in: $role, out: $task.id, rel_type: 'HAS_TASK', created_at: $timestamp });
		RETURN $task;
		COMMIT TRANSACTION;
	`
	results, err := Execute[map[string]any](ctx, g.mgr, database, sql, map[string]any{
		"role_name": roleName,
		"content":   content,
		"timestamp": now,
	})
	if err != nil {
		return nil, fmt.Errorf("add task: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("add task: no result returned")
	}
	row := results[len(results)-1].Result
	if row == nil {
		return nil, fmt.Errorf("add task: no result returned")
	}
	return nodeFromRow(row)
}

// AssignTask points a task's ASSIGNED_TO edge at the named person, replacing
// any previous assignment in the same transaction. Returns false without
// touching the existing assignment when the task or person does not exist.
func (g *Graph) AssignTask(ctx context.Context, database string, taskID int64, assignee string) (bool, error) {
	sql := `
		BEGIN TRANSACTION;
		LET $person = (SELECT VALUE id FROM node WHERE label = 'Person' AND name = $assignee LIMIT 1)[0];
		LET $task = (SELECT VALUE id FROM type::record('node', $task_id))[0];
		LET $made = IF $person = NONE OR $task = NONE { false } ELSE {
			DELETE edge WHERE rel_type = 'ASSIGNED_TO' AND in = $task;
			LET $next = (UPSERT ONLY counter:ids SET next += 1 RETURN AFTER).next;
			INSERT RELATION INTO edge { id: $next, in: $task, out: $person, rel_type: 'ASSIGNED_TO', created_at: $timestamp };
			true
		};
		RETURN $made;
		COMMIT TRANSACTION;
	`
	results, err := Execute[bool](ctx, g.mgr, database, sql, map[string]any{
		"task_id":   taskID,
		"assignee":  assignee,
		"timestamp": time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return false, fmt.Errorf("assign task: %w", err)
	}
	if len(results) == 0 {
		return false, nil
	}
	return results[len(results)-1].Result, nil
}

// Assignments returns all ASSIGNED_TO edges grouped by person name.
func (g *Graph) Assignments(ctx context.Context, database string) (map[string][]tgmodels.Assignment, error) {
	results, err := Execute[[]map[string]any](ctx, g.mgr, database, `
		SELECT in, out FROM edge WHERE rel_type = 'ASSIGNED_TO' FETCH in, out
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("assignments: %w", err)
	}

	assignments := make(map[string][]tgmodels.Assignment)
	if len(results) == 0 {
		return assignments, nil
	}
	for _, row := range results[0].Result {
		task, _ := row["in"].(map[string]any)
		person, _ := row["out"].(map[string]any)
		name := getString(person, "name")
		taskID, ok := recordIDInt(task["id"])
		if name == "" || !ok {
			continue
		}
		assignments[name] = append(assignments[name], tgmodels.Assignment{
			TaskID:    taskID,
			TaskName:  getString(task, "name"),
			Status:    getString(task, "status"),
			Priority:  getString(task, "priority"),
			CreatedAt: getString(task, "created_at"),
		})
	}
	return assignments, nil
}

// FullGraph exports every node and edge in the workspace database in a shape
// suitable for visualization. Rows without a usable integer id are dropped.
func (g *Graph) FullGraph(ctx context.Context, database string) (*tgmodels.GraphExport, error) {
	results, err := Execute[[]map[string]any](ctx, g.mgr, database, `
		SELECT * FROM node;
		SELECT * FROM edge;
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("full graph: %w", err)
	}

	export := &tgmodels.GraphExport{
		Nodes: []tgmodels.GraphNode{},
		Edges: []tgmodels.GraphEdge{},
	}
	if len(results) < 2 {
		return export, nil
	}

	for _, row := range results[0].Result {
		node, err := nodeFromRow(row)
		if err != nil {
			continue
		}
		export.Nodes = append(export.Nodes, tgmodels.GraphNode{
			ID:         node.ID,
			Label:      node.Name(),
			Type:       getString(node.Properties, "type"),
			Status:     getString(node.Properties, "status"),
			Priority:   getString(node.Properties, "priority"),
			Assignee:   getString(node.Properties, "assignee"),
			CreatedAt:  getString(node.Properties, "created_at"),
			Properties: node.Properties,
		})
	}
	for _, row := range results[1].Result {
		edge, err := edgeFromRow(row)
		if err != nil {
			continue
		}
		export.Edges = append(export.Edges, tgmodels.GraphEdge{
			ID:         edge.ID,
			From:       edge.From,
			To:         edge.To,
			Type:       string(edge.RelType),
			Properties: edge.Properties,
		})
	}

	sort.Slice(export.Nodes, func(i, j int) bool { return export.Nodes[i].ID < export.Nodes[j].ID })
	sort.Slice(export.Edges, func(i, j int) bool { return export.Edges[i].ID < export.Edges[j].ID })
	return export, nil
}

// Members lists every Person node in the workspace.
func (g *Graph) Members(ctx context.Context, database string) ([]tgmodels.Member, error) {
	results, err := Execute[[]tgmodels.Member](ctx, g.mgr, database, `
		SELECT name, type, details FROM node WHERE label = 'Person' ORDER BY name
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("members: %w", err)
	}
	if len(results) == 0 {
		return []tgmodels.Member{}, nil
	}
	return results[0].Result, nil
}
