// Package report turns role profiles into the export format consumed by
// downstream statistics tooling: per user and role, how much evidence was
// gathered and when it started and stopped.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fosspulse/fosspulse/internal/model"
)

// RoleSummary aggregates one user's evidence for one role.
type RoleSummary struct {
	Count  int       `json:"count"`
	Weight float64   `json:"weight"`
	First  time.Time `json:"first"`
	Last   time.Time `json:"last"`
}

// UserReport is the exported view of one user.
type UserReport struct {
	User string `json:"user"`

	// Roles lists the attributed roles; Summary covers every role with
	// any evidence, attributed or not.
	Roles   []model.Role               `json:"roles"`
	Summary map[model.Role]RoleSummary `json:"summary"`

	// FirstSeen is the user's earliest event in the repository, whether
	// or not it yielded evidence. Ramp-up statistics downstream measure
	// from it.
	FirstSeen time.Time `json:"firstSeen"`
}

// Report is the full export for one repository.
type Report struct {
	Repo        string       `json:"repo,omitempty"`
	GeneratedAt time.Time    `json:"generatedAt"`
	Users       []UserReport `json:"users"`
}

// Build assembles a report from classified profiles. Profiles arrive
// sorted by user and evidence sorted chronologically, and Build preserves
// both, so the same profiles always produce the same report.
func Build(repo string, profiles []model.RoleProfile, at time.Time) *Report {
	r := &Report{
		Repo:        repo,
		GeneratedAt: at,
		Users:       make([]UserReport, 0, len(profiles)),
	}

	for i := range profiles {
		profile := &profiles[i]
		user := UserReport{
			User:      profile.User,
			Roles:     profile.Roles,
			Summary:   make(map[model.Role]RoleSummary, len(profile.Evidence)),
			FirstSeen: profile.FirstSeen,
		}

		for role, evs := range profile.Evidence {
			if len(evs) == 0 {
				continue
			}
			summary := RoleSummary{
				Count: len(evs),
				First: evs[0].CreatedAt,
				Last:  evs[len(evs)-1].CreatedAt,
			}
			for _, ev := range evs {
				summary.Weight += ev.Weight
			}
			user.Summary[role] = summary
		}

		r.Users = append(r.Users, user)
	}
	return r
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Export writes the report to a file.
func (r *Report) Export(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := r.WriteJSON(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// FilterRole returns a copy containing only users attributed the given
// role.
func (r *Report) FilterRole(role model.Role) *Report {
	filtered := &Report{Repo: r.Repo, GeneratedAt: r.GeneratedAt}
	for _, user := range r.Users {
		for _, have := range user.Roles {
			if have == role {
				filtered.Users = append(filtered.Users, user)
				break
			}
		}
	}
	return filtered
}

// FilterMinEvidence returns a copy containing only users whose total
// evidence count meets the given minimum.
func (r *Report) FilterMinEvidence(min int) *Report {
	if min <= 1 {
		return r
	}
	filtered := &Report{Repo: r.Repo, GeneratedAt: r.GeneratedAt}
	for _, user := range r.Users {
		total := 0
		for _, summary := range user.Summary {
			total += summary.Count
		}
		if total >= min {
			filtered.Users = append(filtered.Users, user)
		}
	}
	return filtered
}

// TotalEvents returns the user's evidence count summed across attributed
// roles.
func (u *UserReport) TotalEvents() int {
	total := 0
	for _, role := range u.Roles {
		total += u.Summary[role].Count
	}
	return total
}

// TotalWeight returns the user's evidence weight summed across attributed
// roles.
func (u *UserReport) TotalWeight() float64 {
	total := 0.0
	for _, role := range u.Roles {
		total += u.Summary[role].Weight
	}
	return total
}

// LastActive returns the user's most recent evidence across attributed
// roles.
func (u *UserReport) LastActive() time.Time {
	var last time.Time
	for _, role := range u.Roles {
		if s := u.Summary[role]; s.Last.After(last) {
			last = s.Last
		}
	}
	return last
}

// NewcomerWindowDays is the window used to count recent first-time
// contributors in summaries.
const NewcomerWindowDays = 30

// Summary is a repository-level rollup of a report.
type Summary struct {
	Repo        string             `json:"repo,omitempty"`
	GeneratedAt time.Time          `json:"generatedAt"`
	Users       int                `json:"users"`
	ByRole      map[model.Role]int `json:"byRole"`
	Newcomers   int                `json:"newcomers"`
}

// Summarize counts attributed users per role. A user counts as a newcomer
// when their first recorded activity falls within windowDays of the report
// timestamp.
func (r *Report) Summarize(windowDays int) Summary {
	s := Summary{
		Repo:        r.Repo,
		GeneratedAt: r.GeneratedAt,
		Users:       len(r.Users),
		ByRole:      make(map[model.Role]int),
	}
	cutoff := r.GeneratedAt.AddDate(0, 0, -windowDays)
	for _, user := range r.Users {
		for _, role := range user.Roles {
			s.ByRole[role]++
		}
		if !user.FirstSeen.IsZero() && user.FirstSeen.After(cutoff) {
			s.Newcomers++
		}
	}
	return s
}
