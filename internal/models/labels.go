// Package models defines data structures for the teamgraph workspace graph.
package models

// Label identifies a node kind in the workspace graph. The graph store is
// schema-less; this closed set is the only schema the application enforces.
type Label string

const (
	LabelWorkspace Label = "Workspace"
	LabelRole      Label = "Role"
	LabelTask      Label = "Task"
	LabelPerson    Label = "Person"
)

// Valid reports whether l is one of the known node labels.
func (l Label) Valid() bool {
	switch l {
	case LabelWorkspace, LabelRole, LabelTask, LabelPerson:
		return true
	}
	return false
}

// RelType identifies a relationship kind between two nodes.
type RelType string

const (
	RelContainsRole RelType = "CONTAINS_ROLE" // Workspace -> Role
	RelHasTask      RelType = "HAS_TASK"      // Role -> Task
	RelHasMember    RelType = "HAS_MEMBER"    // Workspace -> Person
	RelCanPerform   RelType = "CAN_PERFORM"   // Person -> Role
	RelAssignedTo   RelType = "ASSIGNED_TO"   // Task -> Person, out-degree 0 or 1
)

// Valid reports whether r is one of the known relationship types.
func (r RelType) Valid() bool {
	switch r {
	case RelContainsRole, RelHasTask, RelHasMember, RelCanPerform, RelAssignedTo:
		return true
	}
	return false
}
