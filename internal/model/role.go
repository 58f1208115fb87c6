package model

import "time"

// Role is a recurring contribution pattern attributed to a user.
type Role string

const (
	RoleIssueReporter   Role = "issue_reporter"
	RoleIssueResponder  Role = "issue_responder"
	RoleCodeContributor Role = "code_contributor"
	RoleDocContributor  Role = "documentation_contributor"
	RoleReviewer        Role = "reviewer"
	RoleMaintainer      Role = "maintainer"

	// RoleConnector marks users who engage newcomers: they comment on
	// subjects opened by users with no other recorded activity.
	RoleConnector Role = "connector"
)

// AllRoles contains all valid roles.
// This is the single source of truth for valid role values.
var AllRoles = []Role{
	RoleIssueReporter,
	RoleIssueResponder,
	RoleCodeContributor,
	RoleDocContributor,
	RoleReviewer,
	RoleMaintainer,
	RoleConnector,
}

// ParseRole validates a user-supplied role name.
func ParseRole(s string) (Role, bool) {
	for _, r := range AllRoles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// Evidence is one event that supports a role attribution.
type Evidence struct {
	Subject   int       `json:"subject"`
	EventID   string    `json:"eventId"`
	Kind      EventKind `json:"kind"`
	Weight    float64   `json:"weight"`
	CreatedAt time.Time `json:"createdAt"`
}

// RoleProfile is the classification result for one user: every piece of
// evidence gathered per role, and the roles whose evidence met the
// configured threshold.
type RoleProfile struct {
	User     string              `json:"user"`
	Roles    []Role              `json:"roles"`
	Evidence map[Role][]Evidence `json:"evidence,omitempty"`

	// FirstSeen is the creation time of the user's earliest event in the
	// repository, whether or not that event yielded evidence.
	FirstSeen time.Time `json:"firstSeen"`
}

// HasRole reports whether the profile attributes the given role.
func (p *RoleProfile) HasRole(r Role) bool {
	for _, have := range p.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// EvidenceCount returns the number of evidence records for a role,
// attributed or not.
func (p *RoleProfile) EvidenceCount(r Role) int {
	return len(p.Evidence[r])
}
