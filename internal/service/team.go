package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kritsw/teamgraph/internal/models"
)

// ErrInvalidTeamDetails marks a malformed team payload. Callers translate it
// to a client error instead of a server failure.
var ErrInvalidTeamDetails = errors.New("invalid team details")

// ParseTeamDetails decodes the raw team_details payload of an analyze request
// and validates it. The payload must be either the full envelope
// {"team_members": {...}} or the bare member map.
func ParseTeamDetails(raw []byte) (*models.TeamDetails, error) {
	var details models.TeamDetails
	if err := json.Unmarshal(raw, &details); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTeamDetails, err)
	}
	if details.TeamMembers == nil {
		var members map[string]models.TeamMember
		if err := json.Unmarshal(raw, &members); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTeamDetails, err)
		}
		details.TeamMembers = members
	}
	if err := ValidateTeamDetails(&details); err != nil {
		return nil, err
	}
	return &details, nil
}

// ValidateTeamDetails checks that every member carries the fields the role
// inference step depends on. Runs before any store operation.
func ValidateTeamDetails(details *models.TeamDetails) error {
	if details == nil || len(details.TeamMembers) == 0 {
		return fmt.Errorf("%w: team details cannot be empty", ErrInvalidTeamDetails)
	}
	for name, member := range details.TeamMembers {
		var missing []string
		if member.CurrentRole == "" {
			missing = append(missing, "current_role")
		}
		if member.Skills == nil {
			missing = append(missing, "skills")
		}
		if member.Experience == "" {
			missing = append(missing, "experience")
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: missing required fields for %s: %v", ErrInvalidTeamDetails, name, missing)
		}
	}
	return nil
}
