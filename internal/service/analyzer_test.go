package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kritsw/teamgraph/internal/docs"
	"github.com/kritsw/teamgraph/internal/llm"
	"github.com/kritsw/teamgraph/internal/models"
)

type fakeProvisioner struct {
	calls int
	err   error
}

func (p *fakeProvisioner) Ensure(_ context.Context, workspaceID string) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return "db_" + workspaceID, nil
}

type fakeLoader struct {
	docs []docs.Document
}

func (l *fakeLoader) Load(_ context.Context, _ []string) ([]docs.Document, error) {
	return l.docs, nil
}

type fakeExtractor struct {
	extract func(document string) (map[string][]string, error)
	infer   func(name string) ([]string, error)
}

func (e *fakeExtractor) ExtractRolesAndTasks(_ context.Context, document string, _ []string) (map[string][]string, error) {
	return e.extract(document)
}

func (e *fakeExtractor) InferMemberRoles(_ context.Context, name string, _ models.TeamMember) ([]string, error) {
	return e.infer(name)
}

type storedNode struct {
	label models.Label
	props map[string]any
}

type storedEdge struct {
	from, to string
	relType  models.RelType
}

type fakeStore struct {
	nodes []storedNode
	edges []storedEdge
}

func (s *fakeStore) CreateNode(_ context.Context, _ string, label models.Label, props map[string]any) (*models.Node, error) {
	s.nodes = append(s.nodes, storedNode{label: label, props: props})
	return &models.Node{ID: int64(len(s.nodes)), Label: label, Properties: props}, nil
}

func (s *fakeStore) CreateRelationship(_ context.Context, _ string,
	_ models.Label, fromName string,
	_ models.Label, toName string,
	relType models.RelType, _ map[string]any,
) (*models.Edge, error) {
	s.edges = append(s.edges, storedEdge{from: fromName, to: toName, relType: relType})
	return &models.Edge{ID: int64(len(s.edges)), RelType: relType}, nil
}

func (s *fakeStore) nodeNames(label models.Label) []string {
	var names []string
	for _, n := range s.nodes {
		if n.label == label {
			name, _ := n.props["name"].(string)
			names = append(names, name)
		}
	}
	return names
}

func (s *fakeStore) hasEdge(from, to string, relType models.RelType) bool {
	for _, e := range s.edges {
		if e.from == from && e.to == to && e.relType == relType {
			return true
		}
	}
	return false
}

func validTeam(members ...string) *models.TeamDetails {
	team := &models.TeamDetails{TeamMembers: map[string]models.TeamMember{}}
	for _, name := range members {
		team.TeamMembers[name] = models.TeamMember{
			CurrentRole: "Engineer",
			Skills:      []string{"Go"},
			Experience:  "5 years",
		}
	}
	return team
}

func TestAnalyzeBuildsGraph(t *testing.T) {
	store := &fakeStore{}
	extractor := &fakeExtractor{
		extract: func(string) (map[string][]string, error) {
			return map[string][]string{"Engineer": {"Build API"}}, nil
		},
		infer: func(string) ([]string, error) {
			// Manager never appears in any document, so it must be skipped.
			return []string{"Engineer", "Manager"}, nil
		},
	}
	loader := &fakeLoader{docs: []docs.Document{{Content: "doc", Source: "spec.txt"}}}

	analyzer := NewAnalyzer(&fakeProvisioner{}, store, extractor, loader, nil)
	result, err := analyzer.Analyze(context.Background(), "acme", validTeam("Alice"), []string{"spec.txt"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if result.Database != "db_acme" {
		t.Errorf("database = %q", result.Database)
	}
	if result.RolesCreated != 1 || result.TasksCreated != 1 || result.TeamMembersProcessed != 1 {
		t.Errorf("counts = %d roles, %d tasks, %d members", result.RolesCreated, result.TasksCreated, result.TeamMembersProcessed)
	}
	if result.Summary.SuccessfulDocuments != 1 || result.Summary.FailedDocuments != 0 {
		t.Errorf("summary = %+v", result.Summary)
	}

	if got := store.nodeNames(models.LabelWorkspace); len(got) != 1 || got[0] != "acme" {
		t.Errorf("workspace nodes = %v", got)
	}
	if got := store.nodeNames(models.LabelRole); len(got) != 1 || got[0] != "Engineer" {
		t.Errorf("role nodes = %v", got)
	}
	if got := store.nodeNames(models.LabelTask); len(got) != 1 || got[0] != "Build API" {
		t.Errorf("task nodes = %v", got)
	}
	if got := store.nodeNames(models.LabelPerson); len(got) != 1 || got[0] != "Alice" {
		t.Errorf("person nodes = %v", got)
	}

	if !store.hasEdge("acme", "Engineer", models.RelContainsRole) {
		t.Error("missing CONTAINS_ROLE edge")
	}
	if !store.hasEdge("Engineer", "Build API", models.RelHasTask) {
		t.Error("missing HAS_TASK edge")
	}
	if !store.hasEdge("acme", "Alice", models.RelHasMember) {
		t.Error("missing HAS_MEMBER edge")
	}
	if !store.hasEdge("Alice", "Engineer", models.RelCanPerform) {
		t.Error("missing CAN_PERFORM edge")
	}
	if store.hasEdge("Alice", "Manager", models.RelCanPerform) {
		t.Error("CAN_PERFORM created for role absent from documents")
	}
	if got := store.nodeNames(models.LabelRole); len(got) != 1 {
		t.Errorf("inferred-only role must not create a Role node, got %v", got)
	}
}

func TestAnalyzeRolesBeforePersons(t *testing.T) {
	store := &fakeStore{}
	extractor := &fakeExtractor{
		extract: func(string) (map[string][]string, error) {
			return map[string][]string{"QA": {"Write tests"}}, nil
		},
		infer: func(string) ([]string, error) { return []string{"QA"}, nil },
	}
	loader := &fakeLoader{docs: []docs.Document{{Content: "doc", Source: "a.txt"}}}

	analyzer := NewAnalyzer(&fakeProvisioner{}, store, extractor, loader, nil)
	if _, err := analyzer.Analyze(context.Background(), "ws", validTeam("Bob"), nil); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	personIdx, roleIdx := -1, -1
	for i, n := range store.nodes {
		switch n.label {
		case models.LabelPerson:
			personIdx = i
		case models.LabelRole:
			roleIdx = i
		}
	}
	if roleIdx < 0 || personIdx < 0 || roleIdx > personIdx {
		t.Errorf("roles must be created before persons, role at %d, person at %d", roleIdx, personIdx)
	}
}

func TestAnalyzeAbsorbsFailedDocuments(t *testing.T) {
	store := &fakeStore{}
	extractor := &fakeExtractor{
		extract: func(document string) (map[string][]string, error) {
			if strings.Contains(document, "bad") {
				return nil, errors.New("unparseable response")
			}
			return map[string][]string{"Engineer": {"Build API"}}, nil
		},
		infer: func(string) ([]string, error) { return []string{"Engineer"}, nil },
	}
	loader := &fakeLoader{docs: []docs.Document{
		{Content: "good doc", Source: "good.txt"},
		{Content: "bad doc", Source: "bad.md", Title: "Q3 Plan"},
	}}

	analyzer := NewAnalyzer(&fakeProvisioner{}, store, extractor, loader, nil)
	result, err := analyzer.Analyze(context.Background(), "ws", validTeam("Alice"), nil)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	// Failed sources carry the document title when the loader found one
	want := ProcessingSummary{
		TotalDocuments:      2,
		SuccessfulDocuments: 1,
		FailedDocuments:     1,
		FailedSources:       []string{"bad.md (Q3 Plan)"},
	}
	if fmt.Sprint(result.Summary) != fmt.Sprint(want) {
		t.Errorf("summary = %+v, want %+v", result.Summary, want)
	}
	if result.RolesCreated != 1 {
		t.Errorf("roles created = %d", result.RolesCreated)
	}
}

func TestAnalyzeAllDocumentsFailed(t *testing.T) {
	store := &fakeStore{}
	extractor := &fakeExtractor{
		extract: func(string) (map[string][]string, error) {
			return nil, errors.New("unparseable response")
		},
		infer: func(string) ([]string, error) { return []string{"Engineer"}, nil },
	}
	loader := &fakeLoader{docs: []docs.Document{{Content: "doc", Source: "a.txt"}}}

	analyzer := NewAnalyzer(&fakeProvisioner{}, store, extractor, loader, nil)
	result, err := analyzer.Analyze(context.Background(), "ws", validTeam("Alice"), nil)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if result.Summary.FailedDocuments != 1 || result.Summary.SuccessfulDocuments != 0 {
		t.Errorf("summary = %+v", result.Summary)
	}
	if result.RolesCreated != 0 {
		t.Errorf("roles created = %d, want 0", result.RolesCreated)
	}
	// Workspace and Person still materialize, just with nothing to perform.
	if got := store.nodeNames(models.LabelPerson); len(got) != 1 {
		t.Errorf("person nodes = %v", got)
	}
	if store.hasEdge("Alice", "Engineer", models.RelCanPerform) {
		t.Error("no CAN_PERFORM edge expected with an empty role map")
	}
}

func TestAnalyzeFatalAPIErrorAborts(t *testing.T) {
	store := &fakeStore{}
	extractor := &fakeExtractor{
		extract: func(string) (map[string][]string, error) {
			return nil, fmt.Errorf("extract: %w", llm.ErrFatalAPI)
		},
	}
	loader := &fakeLoader{docs: []docs.Document{{Content: "doc", Source: "a.txt"}}}

	analyzer := NewAnalyzer(&fakeProvisioner{}, store, extractor, loader, nil)
	_, err := analyzer.Analyze(context.Background(), "ws", validTeam("Alice"), nil)
	if !errors.Is(err, llm.ErrFatalAPI) {
		t.Fatalf("err = %v, want ErrFatalAPI", err)
	}
	if len(store.nodes) != 0 {
		t.Errorf("no nodes should be written after a fatal API error, got %d", len(store.nodes))
	}
}

func TestAnalyzeAbsorbsMemberInferenceFailure(t *testing.T) {
	store := &fakeStore{}
	extractor := &fakeExtractor{
		extract: func(string) (map[string][]string, error) {
			return map[string][]string{"Engineer": {"Build API"}}, nil
		},
		infer: func(name string) ([]string, error) {
			if name == "Bob" {
				return nil, errors.New("unparseable response")
			}
			return []string{"Engineer"}, nil
		},
	}
	loader := &fakeLoader{docs: []docs.Document{{Content: "doc", Source: "a.txt"}}}

	analyzer := NewAnalyzer(&fakeProvisioner{}, store, extractor, loader, nil)
	result, err := analyzer.Analyze(context.Background(), "ws", validTeam("Alice", "Bob"), nil)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if result.TeamMembersProcessed != 1 {
		t.Errorf("members processed = %d, want 1", result.TeamMembersProcessed)
	}
	if len(result.FailedMembers) != 1 || result.FailedMembers[0] != "Bob" {
		t.Errorf("failed members = %v", result.FailedMembers)
	}
	// Bob keeps his seat on the team, just without role links.
	if got := store.nodeNames(models.LabelPerson); len(got) != 2 {
		t.Errorf("person nodes = %v", got)
	}
	if !store.hasEdge("ws", "Bob", models.RelHasMember) {
		t.Error("missing HAS_MEMBER edge for Bob")
	}
	if store.hasEdge("Bob", "Engineer", models.RelCanPerform) {
		t.Error("Bob should have no CAN_PERFORM edges")
	}
}

func TestAnalyzeRejectsInvalidTeamBeforeStore(t *testing.T) {
	prov := &fakeProvisioner{}
	analyzer := NewAnalyzer(prov, &fakeStore{}, &fakeExtractor{}, &fakeLoader{}, nil)

	team := &models.TeamDetails{TeamMembers: map[string]models.TeamMember{
		"Alice": {Skills: []string{"Go"}, Experience: "5 years"},
	}}
	_, err := analyzer.Analyze(context.Background(), "ws", team, nil)
	if !errors.Is(err, ErrInvalidTeamDetails) {
		t.Fatalf("err = %v, want ErrInvalidTeamDetails", err)
	}
	if prov.calls != 0 {
		t.Error("provisioner must not be called for an invalid team")
	}
}
