package models

// Node is a labeled property-bag node in a workspace graph. ID is the
// store-assigned integer identifier, the only stable handle for
// update/delete operations. Properties holds everything except id.
type Node struct {
	ID         int64          `json:"id"`
	Label      Label          `json:"label"`
	Properties map[string]any `json:"properties"`
}

// Name returns the node's name property, or "" if unset.
func (n *Node) Name() string {
	s, _ := n.Properties["name"].(string)
	return s
}

// Edge is a typed, directed relationship between two nodes.
type Edge struct {
	ID         int64          `json:"id"`
	From       int64          `json:"from"`
	To         int64          `json:"to"`
	RelType    RelType        `json:"rel_type"`
	Properties map[string]any `json:"properties,omitempty"`
}
