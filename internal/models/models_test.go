package models

import "testing"

func TestLabelValid(t *testing.T) {
	tests := []struct {
		label Label
		want  bool
	}{
		{LabelWorkspace, true},
		{LabelRole, true},
		{LabelTask, true},
		{LabelPerson, true},
		{Label("Document"), false},
		{Label(""), false},
		{Label("workspace"), false}, // case-sensitive
	}

	for _, tt := range tests {
		if got := tt.label.Valid(); got != tt.want {
			t.Errorf("Label(%q).Valid() = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestRelTypeValid(t *testing.T) {
	tests := []struct {
		rel  RelType
		want bool
	}{
		{RelContainsRole, true},
		{RelHasTask, true},
		{RelHasMember, true},
		{RelCanPerform, true},
		{RelAssignedTo, true},
		{RelType("FRIENDS_WITH"), false},
		{RelType(""), false},
	}

	for _, tt := range tests {
		if got := tt.rel.Valid(); got != tt.want {
			t.Errorf("RelType(%q).Valid() = %v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestTaskEnums(t *testing.T) {
	for _, s := range []TaskStatus{StatusPending, StatusInProgress, StatusCompleted} {
		if !s.Valid() {
			t.Errorf("status %q should be valid", s)
		}
	}
	if TaskStatus("done").Valid() {
		t.Error("status \"done\" should be invalid")
	}

	for _, p := range []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh} {
		if !p.Valid() {
			t.Errorf("priority %q should be valid", p)
		}
	}
	if TaskPriority("urgent").Valid() {
		t.Error("priority \"urgent\" should be invalid")
	}
}

func TestNodeName(t *testing.T) {
	n := &Node{ID: 1, Label: LabelTask, Properties: map[string]any{"name": "Build API"}}
	if n.Name() != "Build API" {
		t.Errorf("Name() = %q, want %q", n.Name(), "Build API")
	}

	empty := &Node{ID: 2, Label: LabelTask, Properties: map[string]any{}}
	if empty.Name() != "" {
		t.Errorf("Name() on unnamed node = %q, want empty", empty.Name())
	}
}
