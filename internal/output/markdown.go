package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fosspulse/fosspulse/internal/format"
	"github.com/fosspulse/fosspulse/internal/model"
	"github.com/fosspulse/fosspulse/internal/report"
)

// MarkdownFormatter formats a role report as Markdown
type MarkdownFormatter struct{}

// Format outputs user reports as Markdown: one table row per contributor,
// then a section per role listing its members
func (f *MarkdownFormatter) Format(rep *report.Report, w io.Writer) error {
	if len(rep.Users) == 0 {
		fmt.Fprintln(w, "No contributors classified.")
		return nil
	}

	if rep.Repo != "" {
		fmt.Fprintf(w, "# Contributor roles for %s\n", rep.Repo)
	} else {
		fmt.Fprintln(w, "# Contributor roles")
	}
	fmt.Fprintf(w, "\n*Generated: %s*\n\n", rep.GeneratedAt.UTC().Format("2006-01-02 15:04"))

	fmt.Fprintln(w, "| User | Roles | Events | Weight | First seen | Last active |")
	fmt.Fprintln(w, "|------|-------|-------:|-------:|------------|-------------|")
	for i := range rep.Users {
		u := &rep.Users[i]
		fmt.Fprintf(w, "| %s | %s | %d | %.1f | %s | %s |\n",
			u.User,
			joinRoles(u.Roles),
			u.TotalEvents(),
			u.TotalWeight(),
			format.FormatDate(u.FirstSeen),
			format.FormatDate(u.LastActive()),
		)
	}

	// Group users by role
	byRole := make(map[model.Role][]*report.UserReport)
	for i := range rep.Users {
		u := &rep.Users[i]
		for _, role := range u.Roles {
			byRole[role] = append(byRole[role], u)
		}
	}

	for _, role := range model.AllRoles {
		users := byRole[role]
		if len(users) == 0 {
			continue
		}

		fmt.Fprintf(w, "\n## %s (%d)\n\n", role, len(users))
		for _, u := range users {
			s := u.Summary[role]
			fmt.Fprintf(w, "- **%s**: %d events (weight %.1f) since %s\n",
				u.User, s.Count, s.Weight, format.FormatDate(s.First))
		}
	}

	return nil
}

// FormatSummary outputs the per-role rollup as Markdown
func (f *MarkdownFormatter) FormatSummary(summary report.Summary, w io.Writer) error {
	if summary.Repo != "" {
		fmt.Fprintf(w, "# Role summary for %s\n", summary.Repo)
	} else {
		fmt.Fprintln(w, "# Role summary")
	}
	fmt.Fprintf(w, "\n*Contributors: %d*\n\n", summary.Users)

	fmt.Fprintln(w, "| Role | Users |")
	fmt.Fprintln(w, "|------|------:|")
	for _, role := range model.AllRoles {
		if count := summary.ByRole[role]; count > 0 {
			fmt.Fprintf(w, "| %s | %d |\n", role, count)
		}
	}

	if summary.Newcomers > 0 {
		fmt.Fprintf(w, "\nFirst-time contributors in the last %d days: **%d**\n",
			report.NewcomerWindowDays, summary.Newcomers)
	}

	return nil
}

func joinRoles(roles []model.Role) string {
	if len(roles) == 0 {
		return "-"
	}
	parts := make([]string, len(roles))
	for i, role := range roles {
		parts[i] = string(role)
	}
	return strings.Join(parts, ", ")
}
