package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kritsw/teamgraph/internal/metrics"
	"github.com/kritsw/teamgraph/internal/models"
)

const extractSystemPrompt = `You are a helpful assistant specializing in data extraction from documents.`

const extractUserPrompt = `Your task is to extract all roles mentioned in the given document and their associated tasks.
Provide your answer as a JSON string where keys are roles and values are lists of tasks.
Only return the JSON string without any additional explanation or formatting.

Example format:
{"Role1": ["Task1", "Task2", "Task3"], "Role2": ["Task1", "Task2"]}

Ensure your output is a valid JSON string that can be parsed directly.

Role in my team: %s
Extract all roles and their associated tasks from the following document:
%s`

const inferSystemPrompt = `You are an AI assistant specializing in human resource management and team organization.`

const inferUserPrompt = `Based on the provided team member details, identify all possible roles this person could perform effectively.
Consider their current role, skills, project experience, and the description provided.
Your answer should be a list of role names, including but not limited to their current role.

Team Member: %s
Details: %s

Provide your answer as a JSON string containing a list of strings, e.g., ["Role1", "Role2", "Role3"].
Only return the JSON string, without any additional explanation.`

// ExtractRolesAndTasks asks the model for the roles mentioned in a document
// and the tasks belonging to each. currentRoles steers extraction toward the
// team's actual role names. Account-level API failures come back wrapped in
// ErrFatalAPI.
func (m *Model) ExtractRolesAndTasks(ctx context.Context, document string, currentRoles []string) (map[string][]string, error) {
	start := time.Now()
	prompt := fmt.Sprintf(extractUserPrompt, strings.Join(currentRoles, ", "), document)

	resp, err := m.complete(ctx, extractSystemPrompt, prompt)
	m.recordUsage(metrics.OpLLMExtract, start, resp)
	if err != nil {
		return nil, wrapFatalError(err)
	}

	extracted, err := parseRoleTaskMap(resp.content)
	if err != nil {
		slog.Debug("unparseable extraction response", "model", m.modelName, "response_len", len(resp.content))
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}
	return extracted, nil
}

// InferMemberRoles asks the model which roles a team member could perform,
// given their profile.
func (m *Model) InferMemberRoles(ctx context.Context, memberName string, details models.TeamMember) ([]string, error) {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("marshal member details: %w", err)
	}

	start := time.Now()
	prompt := fmt.Sprintf(inferUserPrompt, memberName, detailsJSON)

	resp, err := m.complete(ctx, inferSystemPrompt, prompt)
	m.recordUsage(metrics.OpLLMInfer, start, resp)
	if err != nil {
		return nil, wrapFatalError(err)
	}

	roles, err := parseRoleList(resp.content)
	if err != nil {
		return nil, fmt.Errorf("parse role response for %s: %w", memberName, err)
	}
	return roles, nil
}

// stripCodeFence removes a surrounding markdown code fence, which some models
// add despite being told not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:] // drop language tag line
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseRoleTaskMap decodes a {"role": ["task", ...]} response.
func parseRoleTaskMap(response string) (map[string][]string, error) {
	cleaned := stripCodeFence(response)
	var result map[string][]string
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// parseRoleList decodes a ["role", ...] response.
func parseRoleList(response string) ([]string, error) {
	cleaned := stripCodeFence(response)
	var roles []string
	if err := json.Unmarshal([]byte(cleaned), &roles); err != nil {
		return nil, err
	}
	return roles, nil
}
