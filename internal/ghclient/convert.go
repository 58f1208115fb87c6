package ghclient

import (
	"fmt"
	"strings"
	"time"

	gh "github.com/google/go-github/v57/github"

	"github.com/fosspulse/fosspulse/internal/constants"
	"github.com/fosspulse/fosspulse/internal/model"
	"github.com/fosspulse/fosspulse/internal/urlutil"
)

// loginOrGhost returns the user's login, or the ghost placeholder when the
// account has been deleted and GitHub reports no user.
func loginOrGhost(u *gh.User) string {
	if login := u.GetLogin(); login != "" {
		return login
	}
	return model.GhostUser
}

// subjectFromIssue converts a listed issue (which may be a pull request)
// into a Subject. The merged flag for pull requests is filled in later
// from PullDetails.
func subjectFromIssue(issue *gh.Issue) model.Subject {
	subjectType := model.SubjectIssue
	if issue.IsPullRequest() {
		subjectType = model.SubjectPullRequest
	}

	var closedAt *time.Time
	if issue.ClosedAt != nil {
		t := issue.GetClosedAt().Time
		closedAt = &t
	}

	return model.Subject{
		Number:    issue.GetNumber(),
		Type:      subjectType,
		Author:    loginOrGhost(issue.GetUser()),
		Title:     issue.GetTitle(),
		CreatedAt: issue.GetCreatedAt().Time,
		ClosedAt:  closedAt,
	}
}

func pullInfoFromPull(pull *gh.PullRequest) *PullInfo {
	info := &PullInfo{
		Merged:   pull.GetMerged(),
		MergedAt: pull.GetMergedAt().Time,
	}
	if info.Merged {
		info.MergedBy = loginOrGhost(pull.GetMergedBy())
	}
	if pull.ClosedAt != nil {
		t := pull.GetClosedAt().Time
		info.ClosedAt = &t
	}
	return info
}

// eventFromIssueComment converts a conversation comment. The subject
// number comes from the comment's issue URL, which is authoritative no
// matter which endpoint produced the comment.
func eventFromIssueComment(comment *gh.IssueComment) (model.RawEvent, error) {
	number, err := urlutil.ExtractIssueNumber(comment.GetIssueURL())
	if err != nil {
		return model.RawEvent{}, err
	}

	return model.RawEvent{
		ID:        fmt.Sprintf("comment-%d", comment.GetID()),
		Kind:      model.KindIssueComment,
		Actor:     loginOrGhost(comment.GetUser()),
		Subject:   number,
		CreatedAt: comment.GetCreatedAt().Time,
		Payload:   &model.CommentPayload{Body: comment.GetBody()},
	}, nil
}

func eventFromReview(number int, review *gh.PullRequestReview) model.RawEvent {
	return model.RawEvent{
		ID:        fmt.Sprintf("review-%d", review.GetID()),
		Kind:      model.KindPRReview,
		Actor:     loginOrGhost(review.GetUser()),
		Subject:   number,
		CreatedAt: review.GetSubmittedAt().Time,
		Payload:   &model.ReviewPayload{State: normalizeReviewState(review.GetState())},
	}
}

// normalizeReviewState lowercases the APPROVED/CHANGES_REQUESTED/COMMENTED
// values the API reports.
func normalizeReviewState(state string) string {
	switch strings.ToUpper(state) {
	case "APPROVED":
		return constants.ReviewStateApproved
	case "CHANGES_REQUESTED":
		return constants.ReviewStateChangesRequested
	case "COMMENTED":
		return constants.ReviewStateCommented
	default:
		return strings.ToLower(state)
	}
}

func eventFromReviewComment(comment *gh.PullRequestComment) (model.RawEvent, error) {
	number, err := urlutil.ExtractIssueNumber(comment.GetPullRequestURL())
	if err != nil {
		return model.RawEvent{}, err
	}

	return model.RawEvent{
		ID:        fmt.Sprintf("review-comment-%d", comment.GetID()),
		Kind:      model.KindPRReviewComment,
		Actor:     loginOrGhost(comment.GetUser()),
		Subject:   number,
		CreatedAt: comment.GetCreatedAt().Time,
		Payload:   &model.CommentPayload{Body: comment.GetBody()},
	}, nil
}

// eventFromPullCommit converts one commit on a pull request. Commit SHAs
// can reappear on other pull requests after rebases, so the event ID is
// scoped by the pull request number.
func eventFromPullCommit(number int, commit *gh.RepositoryCommit) model.RawEvent {
	return model.RawEvent{
		ID:        fmt.Sprintf("pr-%d-commit-%s", number, commit.GetSHA()),
		Kind:      model.KindCommit,
		Actor:     loginOrGhost(commit.GetAuthor()),
		Subject:   number,
		CreatedAt: commit.GetCommit().GetAuthor().GetDate().Time,
		Payload:   &model.CommitPayload{SHA: commit.GetSHA()},
	}
}

// eventFromIssueEvent converts label and assignment activity. Everything
// else on the issue events feed (closed, referenced, renamed, ...) is
// reported as not convertible.
func eventFromIssueEvent(number int, issueEvent *gh.IssueEvent) (model.RawEvent, bool) {
	switch issueEvent.GetEvent() {
	case "labeled", "unlabeled":
		return model.RawEvent{
			ID:        fmt.Sprintf("label-%d", issueEvent.GetID()),
			Kind:      model.KindLabelChange,
			Actor:     loginOrGhost(issueEvent.GetActor()),
			Subject:   number,
			CreatedAt: issueEvent.GetCreatedAt().Time,
			Payload: &model.LabelPayload{
				Label: issueEvent.GetLabel().GetName(),
				Added: issueEvent.GetEvent() == "labeled",
			},
		}, true
	case "assigned":
		return model.RawEvent{
			ID:        fmt.Sprintf("assign-%d", issueEvent.GetID()),
			Kind:      model.KindAssignment,
			Actor:     loginOrGhost(issueEvent.GetActor()),
			Subject:   number,
			CreatedAt: issueEvent.GetCreatedAt().Time,
			Payload:   &model.AssignPayload{Assignee: loginOrGhost(issueEvent.GetAssignee())},
		}, true
	}
	return model.RawEvent{}, false
}
