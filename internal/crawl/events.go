package crawl

import (
	"fmt"

	"github.com/fosspulse/fosspulse/internal/ghclient"
	"github.com/fosspulse/fosspulse/internal/model"
)

// openedEvent synthesizes the opening action of a subject. Listing
// endpoints return subjects, not events, so the opening is derived from
// the subject record itself. The ID is stable across re-crawls, which
// also lets a later run overwrite the merged flag once a pull request
// lands.
func openedEvent(subject model.Subject) model.RawEvent {
	kind := model.KindIssueOpened
	prefix := "issue"
	if subject.IsPull() {
		kind = model.KindPROpened
		prefix = "pr"
	}
	return model.RawEvent{
		ID:        fmt.Sprintf("%s-%d", prefix, subject.Number),
		Kind:      kind,
		Actor:     subject.Author,
		Subject:   subject.Number,
		CreatedAt: subject.CreatedAt,
		Payload: &model.OpenedPayload{
			Title:  subject.Title,
			Merged: subject.Merged,
		},
	}
}

// mergeEvent synthesizes the merge action of a pull request from its
// merge state.
func mergeEvent(subject model.Subject, pull *ghclient.PullInfo) model.RawEvent {
	mergedAt := pull.MergedAt
	if mergedAt.IsZero() {
		// The API reports merged without a timestamp in rare cases; the
		// close time is the best available stand-in.
		if pull.ClosedAt != nil {
			mergedAt = *pull.ClosedAt
		} else {
			mergedAt = subject.CreatedAt
		}
	}
	return model.RawEvent{
		ID:        fmt.Sprintf("merge-%d", subject.Number),
		Kind:      model.KindMerge,
		Actor:     pull.MergedBy,
		Subject:   subject.Number,
		CreatedAt: mergedAt,
		Payload:   &model.MergePayload{MergedBy: pull.MergedBy},
	}
}
