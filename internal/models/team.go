package models

// TeamMember is one team member's profile as supplied at ingestion time.
type TeamMember struct {
	CurrentRole string   `json:"current_role"`
	Skills      []string `json:"skills"`
	Experience  string   `json:"experience"`
}

// TeamDetails is the full team payload of an analyze request.
type TeamDetails struct {
	TeamMembers map[string]TeamMember `json:"team_members"`
}

// Member is a Person node projected for the members endpoint.
type Member struct {
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Details string `json:"details,omitempty"`
}
