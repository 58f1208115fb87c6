package model

import "time"

// SubjectType represents whether a subject is an issue or pull request
type SubjectType string

const (
	SubjectIssue       SubjectType = "issue"
	SubjectPullRequest SubjectType = "pull_request"
)

// Subject is the issue or pull request a set of events belongs to.
// Identity fields never change once recorded; Merged and ClosedAt may be
// updated by later crawls.
type Subject struct {
	Number    int         `json:"number"`
	Type      SubjectType `json:"type"`
	Author    string      `json:"author"`
	Title     string      `json:"title,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	ClosedAt  *time.Time  `json:"closedAt,omitempty"`

	// PR-specific
	Merged bool `json:"merged,omitempty"`
}

// IsPull reports whether the subject is a pull request.
func (s *Subject) IsPull() bool {
	return s.Type == SubjectPullRequest
}
