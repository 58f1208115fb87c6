package ghclient

import (
	"testing"
	"time"

	gh "github.com/google/go-github/v57/github"

	"github.com/fosspulse/fosspulse/internal/model"
)

func TestSubjectFromIssue(t *testing.T) {
	created := time.Date(2016, 9, 20, 12, 0, 0, 0, time.UTC)

	t.Run("plain issue", func(t *testing.T) {
		issue := &gh.Issue{
			Number:    gh.Int(7),
			Title:     gh.String("crash on startup"),
			User:      &gh.User{Login: gh.String("alice")},
			CreatedAt: &gh.Timestamp{Time: created},
		}

		subject := subjectFromIssue(issue)
		if subject.Type != model.SubjectIssue {
			t.Errorf("expected issue type, got %q", subject.Type)
		}
		if subject.Number != 7 || subject.Author != "alice" {
			t.Errorf("unexpected subject %+v", subject)
		}
		if subject.ClosedAt != nil {
			t.Error("open issue should have nil ClosedAt")
		}
	})

	t.Run("pull request with close time", func(t *testing.T) {
		closed := created.Add(48 * time.Hour)
		issue := &gh.Issue{
			Number:           gh.Int(9),
			User:             &gh.User{Login: gh.String("alice")},
			CreatedAt:        &gh.Timestamp{Time: created},
			ClosedAt:         &gh.Timestamp{Time: closed},
			PullRequestLinks: &gh.PullRequestLinks{URL: gh.String("https://api.github.com/repos/o/r/pulls/9")},
		}

		subject := subjectFromIssue(issue)
		if subject.Type != model.SubjectPullRequest {
			t.Errorf("expected pull_request type, got %q", subject.Type)
		}
		if subject.ClosedAt == nil || !subject.ClosedAt.Equal(closed) {
			t.Errorf("expected ClosedAt %v, got %v", closed, subject.ClosedAt)
		}
	})

	t.Run("deleted author becomes ghost", func(t *testing.T) {
		issue := &gh.Issue{
			Number:    gh.Int(11),
			CreatedAt: &gh.Timestamp{Time: created},
		}

		subject := subjectFromIssue(issue)
		if subject.Author != model.GhostUser {
			t.Errorf("expected ghost author, got %q", subject.Author)
		}
	})
}

func TestEventFromIssueComment(t *testing.T) {
	created := time.Date(2016, 9, 21, 9, 30, 0, 0, time.UTC)
	comment := &gh.IssueComment{
		ID:        gh.Int64(12345),
		User:      &gh.User{Login: gh.String("bob")},
		Body:      gh.String("works for me"),
		CreatedAt: &gh.Timestamp{Time: created},
		IssueURL:  gh.String("https://api.github.com/repos/octocat/hello/issues/7"),
	}

	ev, err := eventFromIssueComment(comment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.ID != "comment-12345" {
		t.Errorf("expected id comment-12345, got %q", ev.ID)
	}
	if ev.Subject != 7 {
		t.Errorf("expected subject 7 from issue URL, got %d", ev.Subject)
	}
	if ev.Kind != model.KindIssueComment || ev.Actor != "bob" {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.Comment() != "works for me" {
		t.Errorf("expected body to be preserved, got %q", ev.Comment())
	}

	t.Run("bad issue URL", func(t *testing.T) {
		broken := &gh.IssueComment{
			ID:       gh.Int64(1),
			IssueURL: gh.String("https://api.github.com/repos/octocat/hello/issues/abc"),
		}
		if _, err := eventFromIssueComment(broken); err == nil {
			t.Error("expected error for unparseable issue URL")
		}
	})
}

func TestEventFromIssueEvent(t *testing.T) {
	created := time.Date(2016, 9, 22, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		event    *gh.IssueEvent
		wantOK   bool
		wantKind model.EventKind
	}{
		{
			name: "labeled",
			event: &gh.IssueEvent{
				ID:        gh.Int64(55),
				Event:     gh.String("labeled"),
				Actor:     &gh.User{Login: gh.String("dana")},
				Label:     &gh.Label{Name: gh.String("bug")},
				CreatedAt: &gh.Timestamp{Time: created},
			},
			wantOK:   true,
			wantKind: model.KindLabelChange,
		},
		{
			name: "assigned",
			event: &gh.IssueEvent{
				ID:        gh.Int64(56),
				Event:     gh.String("assigned"),
				Actor:     &gh.User{Login: gh.String("dana")},
				Assignee:  &gh.User{Login: gh.String("bob")},
				CreatedAt: &gh.Timestamp{Time: created},
			},
			wantOK:   true,
			wantKind: model.KindAssignment,
		},
		{
			name: "closed is ignored",
			event: &gh.IssueEvent{
				ID:    gh.Int64(57),
				Event: gh.String("closed"),
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := eventFromIssueEvent(7, tt.event)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if !ok {
				return
			}
			if ev.Kind != tt.wantKind {
				t.Errorf("expected kind %q, got %q", tt.wantKind, ev.Kind)
			}
			if ev.Subject != 7 {
				t.Errorf("expected subject 7, got %d", ev.Subject)
			}
		})
	}

	t.Run("label payload carries direction", func(t *testing.T) {
		ev, ok := eventFromIssueEvent(7, &gh.IssueEvent{
			ID:        gh.Int64(58),
			Event:     gh.String("unlabeled"),
			Actor:     &gh.User{Login: gh.String("dana")},
			Label:     &gh.Label{Name: gh.String("bug")},
			CreatedAt: &gh.Timestamp{Time: created},
		})
		if !ok {
			t.Fatal("expected unlabeled to convert")
		}
		payload, ok := ev.Payload.(*model.LabelPayload)
		if !ok {
			t.Fatalf("expected *LabelPayload, got %T", ev.Payload)
		}
		if payload.Added {
			t.Error("unlabeled should have Added=false")
		}
	})
}

func TestNormalizeReviewState(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"APPROVED", "approved"},
		{"CHANGES_REQUESTED", "changes_requested"},
		{"COMMENTED", "commented"},
		{"DISMISSED", "dismissed"},
	}
	for _, tt := range tests {
		if got := normalizeReviewState(tt.in); got != tt.want {
			t.Errorf("normalizeReviewState(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEventFromPullCommit(t *testing.T) {
	created := time.Date(2016, 9, 23, 10, 0, 0, 0, time.UTC)
	commit := &gh.RepositoryCommit{
		SHA:    gh.String("abc123"),
		Author: &gh.User{Login: gh.String("alice")},
		Commit: &gh.Commit{
			Author: &gh.CommitAuthor{Date: &gh.Timestamp{Time: created}},
		},
	}

	ev := eventFromPullCommit(9, commit)
	if ev.ID != "pr-9-commit-abc123" {
		t.Errorf("expected pr-scoped commit id, got %q", ev.ID)
	}
	if ev.Kind != model.KindCommit || ev.Actor != "alice" || ev.Subject != 9 {
		t.Errorf("unexpected event %+v", ev)
	}
	if !ev.CreatedAt.Equal(created) {
		t.Errorf("expected author date, got %v", ev.CreatedAt)
	}
}
