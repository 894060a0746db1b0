// Package service orchestrates document analysis into workspace graphs.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kritsw/teamgraph/internal/docs"
	"github.com/kritsw/teamgraph/internal/llm"
	"github.com/kritsw/teamgraph/internal/models"
)

// Extractor produces role/task and role-fit inferences from text.
type Extractor interface {
	ExtractRolesAndTasks(ctx context.Context, document string, currentRoles []string) (map[string][]string, error)
	InferMemberRoles(ctx context.Context, memberName string, details models.TeamMember) ([]string, error)
}

// DocumentLoader turns uploaded files into text chunks.
type DocumentLoader interface {
	Load(ctx context.Context, paths []string) ([]docs.Document, error)
}

// Provisioner resolves a workspace id to a ready database.
type Provisioner interface {
	Ensure(ctx context.Context, workspaceID string) (string, error)
}

// GraphStore is the subset of graph operations ingestion needs.
type GraphStore interface {
	CreateNode(ctx context.Context, database string, label models.Label, properties map[string]any) (*models.Node, error)
	CreateRelationship(ctx context.Context, database string,
		fromLabel models.Label, fromName string,
		toLabel models.Label, toName string,
		relType models.RelType, properties map[string]any) (*models.Edge, error)
}

// Analyzer runs the ingestion pipeline: load documents, extract roles and
// tasks, infer member roles, then materialize the workspace graph.
type Analyzer struct {
	provisioner Provisioner
	store       GraphStore
	extractor   Extractor
	loader      DocumentLoader
	logger      *slog.Logger
}

// NewAnalyzer creates an Analyzer. log may be nil.
func NewAnalyzer(prov Provisioner, store GraphStore, extractor Extractor, loader DocumentLoader, log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{
		provisioner: prov,
		store:       store,
		extractor:   extractor,
		loader:      loader,
		logger:      log,
	}
}

// ProcessingSummary reports per-document extraction outcomes.
type ProcessingSummary struct {
	TotalDocuments      int      `json:"total_documents"`
	SuccessfulDocuments int      `json:"successful_documents"`
	FailedDocuments     int      `json:"failed_documents"`
	FailedSources       []string `json:"failed_sources,omitempty"`
}

// AnalyzeResult summarizes a completed ingestion.
type AnalyzeResult struct {
	WorkspaceID          string            `json:"workspace_id"`
	Database             string            `json:"database"`
	RolesCreated         int               `json:"roles_created"`
	TasksCreated         int               `json:"tasks_created"`
	TeamMembersProcessed int               `json:"team_members_processed"`
	FailedMembers        []string          `json:"failed_members,omitempty"`
	Summary              ProcessingSummary `json:"document_analysis_summary"`
}

// roleTaskSet accumulates extraction output across documents, keeping roles
// and tasks in first-seen order so materialization is deterministic.
type roleTaskSet struct {
	order []string
	tasks map[string][]string
	seen  map[string]map[string]struct{}
}

func newRoleTaskSet() *roleTaskSet {
	return &roleTaskSet{
		tasks: make(map[string][]string),
		seen:  make(map[string]map[string]struct{}),
	}
}

func (s *roleTaskSet) add(role string, tasks []string) {
	if _, ok := s.seen[role]; !ok {
		s.order = append(s.order, role)
		s.seen[role] = make(map[string]struct{})
	}
	for _, task := range tasks {
		if _, ok := s.seen[role][task]; ok {
			continue
		}
		s.seen[role][task] = struct{}{}
		s.tasks[role] = append(s.tasks[role], task)
	}
}

func (s *roleTaskSet) has(role string) bool {
	_, ok := s.seen[role]
	return ok
}

// Analyze validates the team payload, provisions the workspace database,
// extracts roles and tasks from the documents, infers roles per member and
// writes the resulting graph. Per-document and per-member failures are
// absorbed into the result; fatal LLM API errors abort the batch.
func (a *Analyzer) Analyze(ctx context.Context, workspaceID string, team *models.TeamDetails, filePaths []string) (*AnalyzeResult, error) {
	if err := ValidateTeamDetails(team); err != nil {
		return nil, err
	}

	database, err := a.provisioner.Ensure(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("provision workspace: %w", err)
	}

	documents, err := a.loader.Load(ctx, filePaths)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	memberNames := make([]string, 0, len(team.TeamMembers))
	for name := range team.TeamMembers {
		memberNames = append(memberNames, name)
	}
	sort.Strings(memberNames)

	currentRoles := make([]string, 0, len(memberNames))
	for _, name := range memberNames {
		currentRoles = append(currentRoles, team.TeamMembers[name].CurrentRole)
	}

	extracted, summary, err := a.extractAll(ctx, documents, currentRoles)
	if err != nil {
		return nil, err
	}

	memberRoles, failedMembers, err := a.inferAll(ctx, memberNames, team)
	if err != nil {
		return nil, err
	}

	result := &AnalyzeResult{
		WorkspaceID:          workspaceID,
		Database:             database,
		TeamMembersProcessed: len(memberNames) - len(failedMembers),
		FailedMembers:        failedMembers,
		Summary:              summary,
	}

	if err := a.materialize(ctx, database, workspaceID, team, extracted, memberNames, memberRoles, result); err != nil {
		return nil, err
	}

	a.logger.Info("analysis complete",
		"workspace", workspaceID,
		"roles", result.RolesCreated,
		"tasks", result.TasksCreated,
		"members", result.TeamMembersProcessed,
		"failed_documents", summary.FailedDocuments)
	return result, nil
}

// extractAll runs role/task extraction over every chunk. A chunk that fails
// is counted and skipped; the rest of the batch proceeds.
func (a *Analyzer) extractAll(ctx context.Context, documents []docs.Document, currentRoles []string) (*roleTaskSet, ProcessingSummary, error) {
	extracted := newRoleTaskSet()
	summary := ProcessingSummary{TotalDocuments: len(documents)}

	for _, doc := range documents {
		roleTasks, err := a.extractor.ExtractRolesAndTasks(ctx, doc.Content, currentRoles)
		if err != nil {
			if errors.Is(err, llm.ErrFatalAPI) {
				return nil, summary, fmt.Errorf("extraction aborted: %w", err)
			}
			summary.FailedDocuments++
			summary.FailedSources = append(summary.FailedSources, doc.Label())
			a.logger.Warn("document extraction failed", "source", doc.Label(), "error", err)
			continue
		}

		summary.SuccessfulDocuments++
		roles := make([]string, 0, len(roleTasks))
		for role := range roleTasks {
			roles = append(roles, role)
		}
		sort.Strings(roles)
		for _, role := range roles {
			extracted.add(role, roleTasks[role])
		}
	}

	return extracted, summary, nil
}

// inferAll asks the extractor which roles each member could perform. A
// member whose inference fails still joins the workspace, with no role links.
func (a *Analyzer) inferAll(ctx context.Context, memberNames []string, team *models.TeamDetails) (map[string][]string, []string, error) {
	memberRoles := make(map[string][]string, len(memberNames))
	var failed []string

	for _, name := range memberNames {
		roles, err := a.extractor.InferMemberRoles(ctx, name, team.TeamMembers[name])
		if err != nil {
			if errors.Is(err, llm.ErrFatalAPI) {
				return nil, nil, fmt.Errorf("role inference aborted: %w", err)
			}
			failed = append(failed, name)
			a.logger.Warn("member role inference failed", "member", name, "error", err)
			continue
		}
		memberRoles[name] = roles
	}

	return memberRoles, failed, nil
}

// materialize writes the graph in dependency order: the Workspace node first,
// then every Role with its Tasks, then every Person. Persons come last
// because CAN_PERFORM links look up roles by name.
func (a *Analyzer) materialize(
	ctx context.Context,
	database, workspaceID string,
	team *models.TeamDetails,
	extracted *roleTaskSet,
	memberNames []string,
	memberRoles map[string][]string,
	result *AnalyzeResult,
) error {
	_, err := a.store.CreateNode(ctx, database, models.LabelWorkspace, map[string]any{
		"name":           workspaceID,
		"type":           "workspace",
		"document_count": result.Summary.TotalDocuments,
		"team_size":      len(team.TeamMembers),
	})
	if err != nil {
		return fmt.Errorf("create workspace node: %w", err)
	}

	for _, role := range extracted.order {
		tasks := extracted.tasks[role]
		if _, err := a.store.CreateNode(ctx, database, models.LabelRole, map[string]any{
			"name":       role,
			"type":       "role",
			"task_count": len(tasks),
		}); err != nil {
			return fmt.Errorf("create role %q: %w", role, err)
		}
		if _, err := a.store.CreateRelationship(ctx, database,
			models.LabelWorkspace, workspaceID,
			models.LabelRole, role,
			models.RelContainsRole, nil); err != nil {
			return fmt.Errorf("link role %q: %w", role, err)
		}
		result.RolesCreated++

		for _, task := range tasks {
			if _, err := a.store.CreateNode(ctx, database, models.LabelTask, map[string]any{
				"name":            task,
				"type":            "task",
				"status":          string(models.StatusPending),
				"priority":        string(models.PriorityMedium),
				"estimated_hours": 0,
			}); err != nil {
				return fmt.Errorf("create task %q: %w", task, err)
			}
			if _, err := a.store.CreateRelationship(ctx, database,
				models.LabelRole, role,
				models.LabelTask, task,
				models.RelHasTask, nil); err != nil {
				return fmt.Errorf("link task %q: %w", task, err)
			}
			result.TasksCreated++
		}
	}

	for _, name := range memberNames {
		member := team.TeamMembers[name]
		roles := memberRoles[name]

		// Only roles the documents actually mention get a CAN_PERFORM link.
		kept := make([]string, 0, len(roles))
		for _, role := range roles {
			if extracted.has(role) {
				kept = append(kept, role)
			}
		}

		if _, err := a.store.CreateNode(ctx, database, models.LabelPerson, map[string]any{
			"name": name,
			"type": "person",
			"details": map[string]any{
				"current_role": member.CurrentRole,
				"skills":       member.Skills,
				"experience":   member.Experience,
			},
			"role_count": len(kept),
		}); err != nil {
			return fmt.Errorf("create person %q: %w", name, err)
		}
		if _, err := a.store.CreateRelationship(ctx, database,
			models.LabelWorkspace, workspaceID,
			models.LabelPerson, name,
			models.RelHasMember, nil); err != nil {
			return fmt.Errorf("link person %q: %w", name, err)
		}

		for _, role := range kept {
			if _, err := a.store.CreateRelationship(ctx, database,
				models.LabelPerson, name,
				models.LabelRole, role,
				models.RelCanPerform, nil); err != nil {
				return fmt.Errorf("link %q to role %q: %w", name, role, err)
			}
		}
	}

	return nil
}
