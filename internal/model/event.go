// Package model contains domain types for harvested collaboration records.
// These types are independent of any external GitHub library.
package model

import (
	"encoding/json"
	"time"
)

// EventKind identifies what a raw event records.
type EventKind string

const (
	KindIssueOpened     EventKind = "issue_opened"
	KindIssueComment    EventKind = "issue_comment"
	KindPROpened        EventKind = "pr_opened"
	KindPRComment       EventKind = "pr_comment"
	KindPRReview        EventKind = "pr_review"
	KindPRReviewComment EventKind = "pr_review_comment"
	KindCommit          EventKind = "commit"
	KindMerge           EventKind = "merge"
	KindLabelChange     EventKind = "label_change"
	KindAssignment      EventKind = "assignment"
)

// AllEventKinds contains all valid event kinds.
// This is the single source of truth for valid kind values.
var AllEventKinds = []EventKind{
	KindIssueOpened,
	KindIssueComment,
	KindPROpened,
	KindPRComment,
	KindPRReview,
	KindPRReviewComment,
	KindCommit,
	KindMerge,
	KindLabelChange,
	KindAssignment,
}

// GhostUser is the login recorded when the acting account has been deleted.
// GitHub reports such accounts with no user object.
const GhostUser = "ghost"

// RawEvent is one observed collaboration action, exactly as harvested.
// ID is unique within a repository; writing the same ID twice replaces the
// earlier record.
type RawEvent struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	Actor     string    `json:"actor"`
	Subject   int       `json:"subject"`
	CreatedAt time.Time `json:"createdAt"`

	// Kind-specific payload (interface)
	Payload Payload `json:"payload,omitempty"`
}

// Payload carries the fields that only some event kinds have.
type Payload interface {
	isPayload()
}

// OpenedPayload accompanies issue_opened and pr_opened events.
type OpenedPayload struct {
	Title string `json:"title,omitempty"`
	// Merged is set on pr_opened once the pull request has been merged.
	Merged bool `json:"merged,omitempty"`
}

// CommentPayload accompanies issue_comment, pr_comment and
// pr_review_comment events.
type CommentPayload struct {
	Body string `json:"body,omitempty"`
}

// ReviewPayload accompanies pr_review events.
type ReviewPayload struct {
	State string `json:"state,omitempty"` // approved, changes_requested, commented
}

// CommitPayload accompanies commit events.
type CommitPayload struct {
	SHA       string   `json:"sha"`
	Files     []string `json:"files,omitempty"`
	Additions int      `json:"additions,omitempty"`
	Deletions int      `json:"deletions,omitempty"`
}

// MergePayload accompanies merge events. The event actor is the merging
// user; MergedBy repeats it for readability of the stored record.
type MergePayload struct {
	MergedBy string `json:"mergedBy,omitempty"`
}

// LabelPayload accompanies label_change events.
type LabelPayload struct {
	Label string `json:"label"`
	Added bool   `json:"added"`
}

// AssignPayload accompanies assignment events.
type AssignPayload struct {
	Assignee string `json:"assignee"`
}

func (*OpenedPayload) isPayload()  {}
func (*CommentPayload) isPayload() {}
func (*ReviewPayload) isPayload()  {}
func (*CommitPayload) isPayload()  {}
func (*MergePayload) isPayload()   {}
func (*LabelPayload) isPayload()   {}
func (*AssignPayload) isPayload()  {}

// UnmarshalJSON implements custom JSON unmarshaling to handle the
// polymorphic Payload based on the Kind discriminator.
func (e *RawEvent) UnmarshalJSON(data []byte) error {
	type Alias RawEvent
	aux := &struct {
		Payload json.RawMessage `json:"payload,omitempty"`
		*Alias
	}{Alias: (*Alias)(e)}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	if len(aux.Payload) == 0 || string(aux.Payload) == "null" {
		return nil
	}

	switch e.Kind {
	case KindIssueOpened, KindPROpened:
		var p OpenedPayload
		if err := json.Unmarshal(aux.Payload, &p); err != nil {
			return err
		}
		e.Payload = &p
	case KindIssueComment, KindPRComment, KindPRReviewComment:
		var p CommentPayload
		if err := json.Unmarshal(aux.Payload, &p); err != nil {
			return err
		}
		e.Payload = &p
	case KindPRReview:
		var p ReviewPayload
		if err := json.Unmarshal(aux.Payload, &p); err != nil {
			return err
		}
		e.Payload = &p
	case KindCommit:
		var p CommitPayload
		if err := json.Unmarshal(aux.Payload, &p); err != nil {
			return err
		}
		e.Payload = &p
	case KindMerge:
		var p MergePayload
		if err := json.Unmarshal(aux.Payload, &p); err != nil {
			return err
		}
		e.Payload = &p
	case KindLabelChange:
		var p LabelPayload
		if err := json.Unmarshal(aux.Payload, &p); err != nil {
			return err
		}
		e.Payload = &p
	case KindAssignment:
		var p AssignPayload
		if err := json.Unmarshal(aux.Payload, &p); err != nil {
			return err
		}
		e.Payload = &p
	}
	return nil
}

// Comment returns the comment body for comment-kind events, or "" for
// everything else.
func (e *RawEvent) Comment() string {
	if p, ok := e.Payload.(*CommentPayload); ok {
		return p.Body
	}
	return ""
}

// IsComment reports whether the event is a human-written comment
// (issue_comment, pr_comment or pr_review_comment).
func (e *RawEvent) IsComment() bool {
	switch e.Kind {
	case KindIssueComment, KindPRComment, KindPRReviewComment:
		return true
	}
	return false
}
