package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fosspulse/fosspulse/internal/model"
)

var reportBase = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func sampleProfiles() []model.RoleProfile {
	return []model.RoleProfile{
		{
			User:  "alice",
			Roles: []model.Role{model.RoleIssueReporter, model.RoleCodeContributor},
			Evidence: map[model.Role][]model.Evidence{
				model.RoleIssueReporter: {
					{Subject: 1, EventID: "issue-1", Kind: model.KindIssueOpened, Weight: 1, CreatedAt: reportBase},
					{Subject: 4, EventID: "issue-4", Kind: model.KindIssueOpened, Weight: 1, CreatedAt: reportBase.Add(48 * time.Hour)},
				},
				model.RoleCodeContributor: {
					{Subject: 3, EventID: "pr-3", Kind: model.KindPROpened, Weight: 2, CreatedAt: reportBase.Add(24 * time.Hour)},
				},
			},
			// Predates her evidence: an unmerged PR opened a day earlier.
			FirstSeen: reportBase.Add(-24 * time.Hour),
		},
		{
			User:  "bob",
			Roles: []model.Role{model.RoleIssueResponder},
			Evidence: map[model.Role][]model.Evidence{
				model.RoleIssueResponder: {
					{Subject: 1, EventID: "comment-10", Kind: model.KindIssueComment, Weight: 1, CreatedAt: reportBase.Add(time.Hour)},
				},
			},
			FirstSeen: reportBase.Add(time.Hour),
		},
	}
}

func TestBuild(t *testing.T) {
	r := Build("octo/widgets", sampleProfiles(), reportBase.Add(72*time.Hour))

	if r.Repo != "octo/widgets" {
		t.Errorf("Repo = %s", r.Repo)
	}
	if len(r.Users) != 2 {
		t.Fatalf("users = %d, want 2", len(r.Users))
	}
	if r.Users[0].User != "alice" || r.Users[1].User != "bob" {
		t.Errorf("user order = %s, %s", r.Users[0].User, r.Users[1].User)
	}

	alice := r.Users[0]
	reporter := alice.Summary[model.RoleIssueReporter]
	if reporter.Count != 2 || reporter.Weight != 2 {
		t.Errorf("reporter summary = %+v", reporter)
	}
	if !reporter.First.Equal(reportBase) || !reporter.Last.Equal(reportBase.Add(48*time.Hour)) {
		t.Errorf("reporter range = %v .. %v", reporter.First, reporter.Last)
	}
	code := alice.Summary[model.RoleCodeContributor]
	if code.Count != 1 || code.Weight != 2 {
		t.Errorf("code summary = %+v", code)
	}
	if !alice.FirstSeen.Equal(reportBase.Add(-24 * time.Hour)) {
		t.Errorf("FirstSeen = %v, want the profile's first event, not the first evidence", alice.FirstSeen)
	}
}

func TestBuildDeterministic(t *testing.T) {
	at := reportBase.Add(72 * time.Hour)

	var first, second bytes.Buffer
	if err := Build("octo/widgets", sampleProfiles(), at).WriteJSON(&first); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if err := Build("octo/widgets", sampleProfiles(), at).WriteJSON(&second); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("identical profiles produced different report bytes")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Build("octo/widgets", sampleProfiles(), reportBase).WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		`"repo": "octo/widgets"`,
		`"user": "alice"`,
		`"issue_reporter"`,
		`"firstSeen"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s", want)
		}
	}
}

func TestFilterRole(t *testing.T) {
	r := Build("octo/widgets", sampleProfiles(), reportBase)

	filtered := r.FilterRole(model.RoleIssueResponder)
	if len(filtered.Users) != 1 || filtered.Users[0].User != "bob" {
		t.Errorf("FilterRole(responder) = %+v", filtered.Users)
	}

	none := r.FilterRole(model.RoleMaintainer)
	if len(none.Users) != 0 {
		t.Errorf("FilterRole(maintainer) = %+v, want empty", none.Users)
	}
}

func TestFilterMinEvidence(t *testing.T) {
	r := Build("octo/widgets", sampleProfiles(), reportBase)

	filtered := r.FilterMinEvidence(2)
	if len(filtered.Users) != 1 || filtered.Users[0].User != "alice" {
		t.Errorf("FilterMinEvidence(2) = %+v", filtered.Users)
	}

	all := r.FilterMinEvidence(1)
	if len(all.Users) != 2 {
		t.Errorf("FilterMinEvidence(1) = %d users, want 2", len(all.Users))
	}
}

func TestUserTotals(t *testing.T) {
	r := Build("octo/widgets", sampleProfiles(), reportBase)
	alice := r.Users[0]

	if got := alice.TotalEvents(); got != 3 {
		t.Errorf("TotalEvents() = %d, want 3", got)
	}
	if got := alice.TotalWeight(); got != 4 {
		t.Errorf("TotalWeight() = %v, want 4", got)
	}
	if got := alice.LastActive(); !got.Equal(reportBase.Add(48 * time.Hour)) {
		t.Errorf("LastActive() = %v", got)
	}
}

func TestSummarize(t *testing.T) {
	r := Build("octo/widgets", sampleProfiles(), reportBase.Add(72*time.Hour))
	s := r.Summarize(NewcomerWindowDays)

	if s.Users != 2 {
		t.Errorf("Users = %d, want 2", s.Users)
	}
	if s.ByRole[model.RoleIssueReporter] != 1 || s.ByRole[model.RoleCodeContributor] != 1 || s.ByRole[model.RoleIssueResponder] != 1 {
		t.Errorf("ByRole = %+v", s.ByRole)
	}
	if s.ByRole[model.RoleMaintainer] != 0 {
		t.Errorf("ByRole[maintainer] = %d, want 0", s.ByRole[model.RoleMaintainer])
	}

	// Both users first appeared within the window.
	if s.Newcomers != 2 {
		t.Errorf("Newcomers = %d, want 2", s.Newcomers)
	}

	// Both first appeared more than a day before the report timestamp.
	if got := r.Summarize(1).Newcomers; got != 0 {
		t.Errorf("Summarize(1).Newcomers = %d, want 0", got)
	}
}
