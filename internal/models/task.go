package models

// TaskStatus is the lifecycle state of a Task node.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// TaskPriority is the priority of a Task node.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Valid reports whether p is a known task priority.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// TaskRecord is one task entry in a per-person task distribution.
// Field names match the wire format of the tasks endpoint.
type TaskRecord struct {
	Task           string  `json:"task"`
	Role           string  `json:"role"`
	NodeID         int64   `json:"node_id"`
	Status         string  `json:"status,omitempty"`
	CreatedAt      string  `json:"created_at,omitempty"`
	Priority       string  `json:"priority,omitempty"`
	EstimatedHours float64 `json:"estimated_hours,omitempty"`
}

// Assignment is one entry in a per-person assignment listing.
type Assignment struct {
	TaskID    int64  `json:"task_id"`
	TaskName  string `json:"task_name"`
	Status    string `json:"status,omitempty"`
	Priority  string `json:"priority,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Statistics summarizes what is reachable from a Workspace node via the
// standard containment edges.
type Statistics struct {
	RoleCount    int      `json:"role_count"`
	TaskCount    int      `json:"task_count"`
	PersonCount  int      `json:"person_count"`
	Roles        []string `json:"roles"`
	TeamMembers  []string `json:"team_members"`
	TaskStatuses []string `json:"task_statuses"`
	WorkspaceID  string   `json:"workspace_id"`
	Timestamp    string   `json:"timestamp"`
}

// GraphNode is a node flattened for visualization export.
type GraphNode struct {
	ID         int64          `json:"id"`
	Label      string         `json:"label"` // display name
	Type       string         `json:"type,omitempty"`
	Status     string         `json:"status,omitempty"`
	Priority   string         `json:"priority,omitempty"`
	Assignee   string         `json:"assignee,omitempty"`
	CreatedAt  string         `json:"created_at,omitempty"`
	Properties map[string]any `json:"properties"`
}

// GraphEdge is a relationship flattened for visualization export.
type GraphEdge struct {
	ID         int64          `json:"id"`
	From       int64          `json:"from"`
	To         int64          `json:"to"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// GraphExport is the full contents of a workspace graph.
type GraphExport struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}
