package ghclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	gh "github.com/google/go-github/v57/github"

	"github.com/fosspulse/fosspulse/internal/constants"
	"github.com/fosspulse/fosspulse/internal/log"
	"github.com/fosspulse/fosspulse/internal/model"
)

// Fetcher defines the interface for the GitHub operations the crawler
// needs. Each call fetches a single page; a returned page of 0 means the
// listing is exhausted. This interface enables substituting a fake client
// in unit tests.
type Fetcher interface {
	// ListSubjects fetches one page of issues and pull requests, oldest
	// first, optionally restricted to subjects updated since a time.
	ListSubjects(ctx context.Context, owner, repo string, since time.Time, page int) ([]model.Subject, int, error)

	// Per-subject sub-resources
	ListIssueComments(ctx context.Context, owner, repo string, number, page int) ([]model.RawEvent, int, error)
	ListIssueEvents(ctx context.Context, owner, repo string, number, page int) ([]model.RawEvent, int, error)

	// Pull-request sub-resources
	PullDetails(ctx context.Context, owner, repo string, number int) (*PullInfo, error)
	ListReviews(ctx context.Context, owner, repo string, number, page int) ([]model.RawEvent, int, error)
	ListReviewComments(ctx context.Context, owner, repo string, number, page int) ([]model.RawEvent, int, error)
	ListPullCommits(ctx context.Context, owner, repo string, number, page int) ([]model.RawEvent, int, error)
	CommitFiles(ctx context.Context, owner, repo, sha string) ([]string, int, int, error)

	// Quota reports the most recently observed rate limit state.
	Quota() (remaining, limit int, resetAt time.Time)
}

// Ensure Client implements Fetcher interface.
var _ Fetcher = (*Client)(nil)

// PullInfo is the merge state of one pull request.
type PullInfo struct {
	Merged   bool
	MergedBy string
	MergedAt time.Time
	ClosedAt *time.Time
}

// withRetry runs fn with bounded exponential backoff. Authentication and
// not-found failures are never retried. Rate limits are waited out below
// the transport, so ErrRateLimited here means waiting was not possible.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	delay := c.retryBase
	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		err = classifyErr(op, err)
		if errors.Is(err, ErrAuth) || errors.Is(err, ErrNotFound) ||
			errors.Is(err, ErrRateLimited) || ctx.Err() != nil {
			return err
		}
		if attempt >= c.maxRetries {
			break
		}

		log.Debug("transient failure, retrying",
			"op", op, "attempt", attempt, "delay", delay.String(), "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > constants.FetchRetryMaxDelay {
			delay = constants.FetchRetryMaxDelay
		}
	}
	return fmt.Errorf("%s: giving up after %d attempts: %w", op, c.maxRetries, err)
}

// ListSubjects fetches one page of issues and pull requests, oldest first.
func (c *Client) ListSubjects(ctx context.Context, owner, repo string, since time.Time, page int) ([]model.Subject, int, error) {
	opts := &gh.IssueListByRepoOptions{
		State:     "all",
		Sort:      "created",
		Direction: "asc",
		ListOptions: gh.ListOptions{
			Page:    page,
			PerPage: c.perPage,
		},
	}
	if !since.IsZero() {
		opts.Since = since
	}

	var subjects []model.Subject
	var next int
	err := c.withRetry(ctx, "list subjects", func() error {
		issues, resp, err := c.client.Issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			return err
		}
		subjects = subjects[:0]
		for _, issue := range issues {
			subjects = append(subjects, subjectFromIssue(issue))
		}
		next = resp.NextPage
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return subjects, next, nil
}

// ListIssueComments fetches one page of conversation comments on a subject.
// Comments on pull requests arrive through the same endpoint; the caller
// re-kinds them when the subject is a pull request.
func (c *Client) ListIssueComments(ctx context.Context, owner, repo string, number, page int) ([]model.RawEvent, int, error) {
	opts := &gh.IssueListCommentsOptions{
		ListOptions: gh.ListOptions{
			Page:    page,
			PerPage: c.perPage,
		},
	}

	var events []model.RawEvent
	var next int
	err := c.withRetry(ctx, "list issue comments", func() error {
		comments, resp, err := c.client.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return err
		}
		events = events[:0]
		for _, comment := range comments {
			ev, err := eventFromIssueComment(comment)
			if err != nil {
				log.Debug("skipping malformed comment", "comment", comment.GetID(), "error", err)
				continue
			}
			events = append(events, ev)
		}
		next = resp.NextPage
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return events, next, nil
}

// ListIssueEvents fetches one page of label and assignment activity on a
// subject. Other timeline entries are ignored.
func (c *Client) ListIssueEvents(ctx context.Context, owner, repo string, number, page int) ([]model.RawEvent, int, error) {
	opts := &gh.ListOptions{
		Page:    page,
		PerPage: c.perPage,
	}

	var events []model.RawEvent
	var next int
	err := c.withRetry(ctx, "list issue events", func() error {
		issueEvents, resp, err := c.client.Issues.ListIssueEvents(ctx, owner, repo, number, opts)
		if err != nil {
			return err
		}
		events = events[:0]
		for _, issueEvent := range issueEvents {
			if ev, ok := eventFromIssueEvent(number, issueEvent); ok {
				events = append(events, ev)
			}
		}
		next = resp.NextPage
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return events, next, nil
}

// PullDetails fetches merge state for one pull request.
func (c *Client) PullDetails(ctx context.Context, owner, repo string, number int) (*PullInfo, error) {
	var info *PullInfo
	err := c.withRetry(ctx, "get pull request", func() error {
		pull, _, err := c.client.PullRequests.Get(ctx, owner, repo, number)
		if err != nil {
			return err
		}
		info = pullInfoFromPull(pull)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// ListReviews fetches one page of submitted reviews on a pull request.
func (c *Client) ListReviews(ctx context.Context, owner, repo string, number, page int) ([]model.RawEvent, int, error) {
	opts := &gh.ListOptions{
		Page:    page,
		PerPage: c.perPage,
	}

	var events []model.RawEvent
	var next int
	err := c.withRetry(ctx, "list reviews", func() error {
		reviews, resp, err := c.client.PullRequests.ListReviews(ctx, owner, repo, number, opts)
		if err != nil {
			return err
		}
		events = events[:0]
		for _, review := range reviews {
			events = append(events, eventFromReview(number, review))
		}
		next = resp.NextPage
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return events, next, nil
}

// ListReviewComments fetches one page of inline review comments on a pull
// request.
func (c *Client) ListReviewComments(ctx context.Context, owner, repo string, number, page int) ([]model.RawEvent, int, error) {
	opts := &gh.PullRequestListCommentsOptions{
		ListOptions: gh.ListOptions{
			Page:    page,
			PerPage: c.perPage,
		},
	}

	var events []model.RawEvent
	var next int
	err := c.withRetry(ctx, "list review comments", func() error {
		comments, resp, err := c.client.PullRequests.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return err
		}
		events = events[:0]
		for _, comment := range comments {
			ev, err := eventFromReviewComment(comment)
			if err != nil {
				log.Debug("skipping malformed review comment", "comment", comment.GetID(), "error", err)
				continue
			}
			events = append(events, ev)
		}
		next = resp.NextPage
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return events, next, nil
}

// ListPullCommits fetches one page of commits on a pull request. The
// returned commit events carry no file lists; CommitFiles fills those in.
func (c *Client) ListPullCommits(ctx context.Context, owner, repo string, number, page int) ([]model.RawEvent, int, error) {
	opts := &gh.ListOptions{
		Page:    page,
		PerPage: c.perPage,
	}

	var events []model.RawEvent
	var next int
	err := c.withRetry(ctx, "list pull commits", func() error {
		commits, resp, err := c.client.PullRequests.ListCommits(ctx, owner, repo, number, opts)
		if err != nil {
			return err
		}
		events = events[:0]
		for _, commit := range commits {
			events = append(events, eventFromPullCommit(number, commit))
		}
		next = resp.NextPage
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return events, next, nil
}

// CommitFiles fetches the file paths touched by one commit, plus its
// addition and deletion counts.
func (c *Client) CommitFiles(ctx context.Context, owner, repo, sha string) ([]string, int, int, error) {
	var files []string
	var additions, deletions int
	err := c.withRetry(ctx, "get commit", func() error {
		commit, _, err := c.client.Repositories.GetCommit(ctx, owner, repo, sha, nil)
		if err != nil {
			return err
		}
		files = files[:0]
		for _, f := range commit.Files {
			files = append(files, f.GetFilename())
		}
		additions = commit.GetStats().GetAdditions()
		deletions = commit.GetStats().GetDeletions()
		return nil
	})
	if err != nil {
		return nil, 0, 0, err
	}
	return files, additions, deletions, nil
}
