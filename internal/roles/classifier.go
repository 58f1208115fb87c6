// Package roles derives per-user role profiles from a repository's stored
// event history. Classification is a pure function of the store snapshot:
// it has no side effects, and the same snapshot always yields the same
// profiles regardless of how the events were interleaved during capture.
package roles

import (
	"sort"
	"time"

	"github.com/fosspulse/fosspulse/config"
	"github.com/fosspulse/fosspulse/internal/log"
	"github.com/fosspulse/fosspulse/internal/model"
	"github.com/fosspulse/fosspulse/internal/store"
)

// Classifier turns stored events into role profiles.
type Classifier struct {
	rules rules
}

// New creates a Classifier with the given parameters.
func New(params config.RoleParams) *Classifier {
	return &Classifier{rules: rules{params: params}}
}

// Result is the output of one classification run.
type Result struct {
	Profiles []model.RoleProfile

	// Inconsistencies counts events that referenced a subject missing
	// from the store. They are excluded, not fatal.
	Inconsistencies int

	// BotEvents counts events excluded because a bot performed them.
	BotEvents int
}

// Classify derives role profiles from a store snapshot. Profiles are
// sorted by user; evidence within a role is sorted by creation time with
// the event ID as tiebreaker. Each profile records when its user first
// appeared, counting events that yielded no evidence.
func (c *Classifier) Classify(snap *store.Snapshot) *Result {
	result := &Result{}
	acc := newAccumulator()

	for i := range snap.Events {
		ev := &snap.Events[i]
		subject, ok := snap.Subjects[ev.Subject]
		if !ok {
			log.Warn("event references a subject not in the store, excluding",
				"event", ev.ID, "subject", ev.Subject)
			result.Inconsistencies++
			continue
		}
		if c.rules.isBot(ev.Actor) {
			result.BotEvents++
			continue
		}
		acc.seen(ev.Actor, ev.CreatedAt)
		c.rules.apply(acc, ev, subject)
	}

	c.applyMergeCommands(acc, snap)
	c.applyConnector(acc, snap)

	result.Profiles = acc.profiles(&c.rules.params)
	return result
}

// applyMergeCommands credits humans who commanded a merge bot. A merge
// performed by a bot names no accountable maintainer, so every non-bot
// comment on a bot-merged subject that starts with a known bot merge
// command contributes maintainer evidence for its author. The commander
// may be the subject's own author.
func (c *Classifier) applyMergeCommands(acc *accumulator, snap *store.Snapshot) {
	if len(c.rules.params.MergeCommands) == 0 {
		return
	}

	botMerged := make(map[int]bool)
	for i := range snap.Events {
		ev := &snap.Events[i]
		if ev.Kind != model.KindMerge || !c.rules.isBot(ev.Actor) {
			continue
		}
		if _, ok := snap.Subjects[ev.Subject]; !ok {
			continue // already counted as an inconsistency
		}
		botMerged[ev.Subject] = true
	}
	if len(botMerged) == 0 {
		return
	}

	for i := range snap.Events {
		ev := &snap.Events[i]
		if !botMerged[ev.Subject] || !ev.IsComment() {
			continue
		}
		if c.rules.isBot(ev.Actor) || !c.rules.isMergeCommand(ev.Comment()) {
			continue
		}
		acc.add(ev.Actor, model.RoleMaintainer, evidence(ev, c.rules.params.MaintainerWeight))
	}
}

// applyConnector runs the last classification pass: commenting on a
// newcomer's subject is connector evidence. A newcomer is a subject
// author with no evidence anywhere in the repository outside that
// subject. Newcomer status is decided against the evidence of the
// earlier passes, so the outcome does not depend on event order.
func (c *Classifier) applyConnector(acc *accumulator, snap *store.Snapshot) {
	evidenceSubjects := acc.evidenceSubjects()

	newcomer := func(author string, subject int) bool {
		for s := range evidenceSubjects[author] {
			if s != subject {
				return false
			}
		}
		return true
	}

	for i := range snap.Events {
		ev := &snap.Events[i]
		// Only conversation comments count; inline review comments are
		// review activity, not newcomer engagement.
		if ev.Kind != model.KindIssueComment && ev.Kind != model.KindPRComment {
			continue
		}
		subject, ok := snap.Subjects[ev.Subject]
		if !ok {
			continue // already counted as an inconsistency
		}
		if ev.Actor == subject.Author {
			continue
		}
		if c.rules.isBot(ev.Actor) || c.rules.isBot(subject.Author) {
			continue
		}
		if !newcomer(subject.Author, ev.Subject) {
			continue
		}
		acc.add(ev.Actor, model.RoleConnector, evidence(ev, c.rules.params.ConnectorWeight))
	}
}

// accumulator gathers evidence per user and role during classification.
type accumulator struct {
	users     map[string]map[model.Role][]model.Evidence
	firstSeen map[string]time.Time
}

func newAccumulator() *accumulator {
	return &accumulator{
		users:     make(map[string]map[model.Role][]model.Evidence),
		firstSeen: make(map[string]time.Time),
	}
}

func (a *accumulator) add(user string, role model.Role, ev model.Evidence) {
	byRole, ok := a.users[user]
	if !ok {
		byRole = make(map[model.Role][]model.Evidence)
		a.users[user] = byRole
	}
	byRole[role] = append(byRole[role], ev)
}

// seen records an actor's event time for first-interaction tracking. Every
// event counts, including ones that yield no evidence.
func (a *accumulator) seen(actor string, at time.Time) {
	if first, ok := a.firstSeen[actor]; !ok || at.Before(first) {
		a.firstSeen[actor] = at
	}
}

// evidenceSubjects returns, per user, the set of subjects any of their
// evidence came from.
func (a *accumulator) evidenceSubjects() map[string]map[int]bool {
	subjects := make(map[string]map[int]bool, len(a.users))
	for user, byRole := range a.users {
		set := make(map[int]bool)
		for _, evs := range byRole {
			for _, ev := range evs {
				set[ev.Subject] = true
			}
		}
		subjects[user] = set
	}
	return subjects
}

// profiles assembles sorted role profiles and applies the attribution
// thresholds (boundary inclusive).
func (a *accumulator) profiles(params *config.RoleParams) []model.RoleProfile {
	users := make([]string, 0, len(a.users))
	for user := range a.users {
		users = append(users, user)
	}
	sort.Strings(users)

	profiles := make([]model.RoleProfile, 0, len(users))
	for _, user := range users {
		profile := model.RoleProfile{
			User:      user,
			Evidence:  make(map[model.Role][]model.Evidence),
			FirstSeen: a.firstSeen[user],
		}
		for _, role := range model.AllRoles {
			evs := a.users[user][role]
			if len(evs) == 0 {
				continue
			}
			sort.Slice(evs, func(i, j int) bool {
				if !evs[i].CreatedAt.Equal(evs[j].CreatedAt) {
					return evs[i].CreatedAt.Before(evs[j].CreatedAt)
				}
				return evs[i].EventID < evs[j].EventID
			})
			profile.Evidence[role] = evs
			if len(evs) >= minEvidence(params, role) {
				profile.Roles = append(profile.Roles, role)
			}
		}
		profiles = append(profiles, profile)
	}
	return profiles
}
