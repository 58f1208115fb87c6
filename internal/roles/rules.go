package roles

import (
	"strings"

	"github.com/fosspulse/fosspulse/config"
	"github.com/fosspulse/fosspulse/internal/model"
)

// rules implements the per-kind evidence contribution logic.
type rules struct {
	params config.RoleParams
}

// apply adds the evidence one event contributes. Connector evidence is
// handled in a separate pass because it depends on the whole repository's
// evidence, not on a single event.
func (r *rules) apply(acc *accumulator, ev *model.RawEvent, subject model.Subject) {
	switch ev.Kind {
	case model.KindIssueOpened:
		acc.add(ev.Actor, model.RoleIssueReporter, evidence(ev, r.params.IssueReporterWeight))

	case model.KindIssueComment:
		if ev.Actor != subject.Author {
			acc.add(ev.Actor, model.RoleIssueResponder, evidence(ev, r.params.IssueResponderWeight))
		}

	case model.KindPROpened:
		// Opening a pull request only proves authorship; the merge is the
		// contribution signal.
		if opened, ok := ev.Payload.(*model.OpenedPayload); ok && opened.Merged {
			acc.add(ev.Actor, model.RoleCodeContributor, evidence(ev, r.params.CodeContributorWeight))
		}

	case model.KindPRComment:
		// Discussion on someone else's pull request is review activity.
		if ev.Actor != subject.Author {
			acc.add(ev.Actor, model.RoleReviewer, evidence(ev, r.params.ReviewerWeight))
		}

	case model.KindCommit:
		role := model.RoleCodeContributor
		weight := r.params.CodeContributorWeight
		if commit, ok := ev.Payload.(*model.CommitPayload); ok && r.isDocsOnly(commit.Files) {
			role = model.RoleDocContributor
			weight = r.params.DocContributorWeight
		}
		acc.add(ev.Actor, role, evidence(ev, weight))

	case model.KindPRReview, model.KindPRReviewComment:
		if ev.Actor != subject.Author {
			acc.add(ev.Actor, model.RoleReviewer, evidence(ev, r.params.ReviewerWeight))
		}

	case model.KindMerge:
		acc.add(ev.Actor, model.RoleMaintainer, evidence(ev, r.params.MaintainerWeight))

	case model.KindLabelChange, model.KindAssignment:
		// Labeling or assigning someone else's subject signals triage
		// authority; doing it on your own subject does not.
		if ev.Actor != subject.Author {
			acc.add(ev.Actor, model.RoleMaintainer, evidence(ev, r.params.MaintainerWeight))
		}
	}
}

func evidence(ev *model.RawEvent, weight float64) model.Evidence {
	return model.Evidence{
		Subject:   ev.Subject,
		EventID:   ev.ID,
		Kind:      ev.Kind,
		Weight:    weight,
		CreatedAt: ev.CreatedAt,
	}
}

// isBot reports whether a login belongs to an automation account.
func (r *rules) isBot(login string) bool {
	for _, suffix := range r.params.BotSuffixes {
		if strings.HasSuffix(login, suffix) {
			return true
		}
	}
	lower := strings.ToLower(login)
	for _, name := range r.params.BotNames {
		if lower == strings.ToLower(name) {
			return true
		}
	}
	return false
}

// isMergeCommand reports whether a comment body begins with one of the
// configured bot merge commands. Mid-comment mentions do not count.
func (r *rules) isMergeCommand(body string) bool {
	for _, command := range r.params.MergeCommands {
		if strings.HasPrefix(body, command) {
			return true
		}
	}
	return false
}

// isDocsOnly reports whether every touched file is documentation. An
// empty file list is not docs-only: without file data the commit stays a
// code contribution.
func (r *rules) isDocsOnly(files []string) bool {
	if len(files) == 0 {
		return false
	}
	for _, file := range files {
		if !r.isDocFile(file) {
			return false
		}
	}
	return true
}

func (r *rules) isDocFile(path string) bool {
	lower := strings.ToLower(path)
	for _, prefix := range r.params.DocsDirPrefixes {
		if strings.HasPrefix(lower, strings.ToLower(prefix)) {
			return true
		}
	}
	for _, suffix := range r.params.DocsSuffixes {
		if strings.HasSuffix(lower, strings.ToLower(suffix)) {
			return true
		}
	}

	base := lower
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	for _, name := range r.params.DocsBasenames {
		if base == strings.ToLower(name) {
			return true
		}
	}
	return false
}

// minEvidence returns the attribution threshold for a role.
func minEvidence(params *config.RoleParams, role model.Role) int {
	switch role {
	case model.RoleIssueReporter:
		return params.IssueReporterMin
	case model.RoleIssueResponder:
		return params.IssueResponderMin
	case model.RoleCodeContributor:
		return params.CodeContributorMin
	case model.RoleDocContributor:
		return params.DocContributorMin
	case model.RoleReviewer:
		return params.ReviewerMin
	case model.RoleMaintainer:
		return params.MaintainerMin
	case model.RoleConnector:
		return params.ConnectorMin
	default:
		return 1
	}
}
