package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/fosspulse/fosspulse/internal/format"
	"github.com/fosspulse/fosspulse/internal/model"
	"github.com/fosspulse/fosspulse/internal/report"
	"golang.org/x/term"
)

// TableFormatter formats a role report as a terminal table
type TableFormatter struct{}

// hyperlink creates a clickable terminal hyperlink using OSC 8
// Format: \033]8;;URL\033\\TEXT\033]8;;\033\\
func hyperlink(text, url string) string {
	// Only use hyperlinks if stdout is a terminal
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return text
	}
	return fmt.Sprintf("\033]8;;%s\033\\%s\033]8;;\033\\", url, text)
}

// Format outputs user reports as a table, one row per contributor
func (f *TableFormatter) Format(rep *report.Report, w io.Writer) error {
	if len(rep.Users) == 0 {
		fmt.Fprintln(w, "No contributors classified.")
		return nil
	}

	// Column widths
	const (
		colUser   = 18
		colRoles  = 44
		colEvents = 6
		colWeight = 7
		colFirst  = 10
		colLast   = 6
	)

	// Header
	fmt.Fprintf(w, "%-*s  %-*s  %*s  %*s  %-*s  %s\n",
		colUser, "User",
		colRoles, "Roles",
		colEvents, "Events",
		colWeight, "Weight",
		colFirst, "First seen",
		"Last")
	fmt.Fprintln(w, strings.Repeat("-", colUser+colRoles+colEvents+colWeight+colFirst+colLast+10))

	now := time.Now()
	for i := range rep.Users {
		u := &rep.Users[i]

		name := format.TruncateName(u.User, colUser)
		linkedName := hyperlink(name, "https://github.com/"+u.User)
		linkedName = format.PadRight(linkedName, format.DisplayWidth(name), colUser)

		roles := colorRoles(u.Roles)
		rolesWidth := format.DisplayWidth(roles)
		if rolesWidth > colRoles {
			roles, rolesWidth = format.TruncateToWidth(roles, colRoles)
		}
		roles = format.PadRight(roles, rolesWidth, colRoles)

		firstSeen := "-"
		if !u.FirstSeen.IsZero() {
			firstSeen = format.FormatAge(now.Sub(u.FirstSeen)) + " ago"
		}

		lastActive := "-"
		if last := u.LastActive(); !last.IsZero() {
			lastActive = format.FormatAge(now.Sub(last))
		}

		fmt.Fprintf(w, "%s  %s  %*d  %*.1f  %-*s  %s\n",
			linkedName,
			roles,
			colEvents, u.TotalEvents(),
			colWeight, u.TotalWeight(),
			colFirst, firstSeen,
			lastActive,
		)
	}

	printFooter(rep, w)

	return nil
}

// printFooter prints a rollup of the community shape below the table
func printFooter(rep *report.Report, w io.Writer) {
	summary := rep.Summarize(report.NewcomerWindowDays)

	maintainers := summary.ByRole[model.RoleMaintainer]
	reviewers := summary.ByRole[model.RoleReviewer]
	connectors := summary.ByRole[model.RoleConnector]

	if maintainers == 0 && reviewers == 0 && connectors == 0 && summary.Newcomers == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("━", 60))

	if maintainers > 0 {
		fmt.Fprintf(w, "  %s %d maintainers\n", color.RedString("●"), maintainers)
	}
	if reviewers > 0 {
		fmt.Fprintf(w, "  %s %d reviewers\n", color.CyanString("○"), reviewers)
	}
	if connectors > 0 {
		fmt.Fprintf(w, "  %s %d connectors welcoming newcomers\n", color.MagentaString("◆"), connectors)
	}
	if summary.Newcomers > 0 {
		fmt.Fprintf(w, "  %s %d first-time contributors in the last %d days\n",
			color.GreenString("+"), summary.Newcomers, report.NewcomerWindowDays)
	}
}

// FormatSummary outputs the per-role rollup
func (f *TableFormatter) FormatSummary(summary report.Summary, w io.Writer) error {
	if summary.Repo != "" {
		fmt.Fprintf(w, "Repository: %s\n", summary.Repo)
	}
	fmt.Fprintf(w, "Contributors: %d\n\n", summary.Users)

	fmt.Fprintln(w, "By role:")
	for _, role := range model.AllRoles {
		count := summary.ByRole[role]
		if count > 0 {
			fmt.Fprintf(w, "  %s: %d\n", colorRole(role), count)
		}
	}

	if summary.Newcomers > 0 {
		fmt.Fprintf(w, "\nFirst-time contributors in the last %d days: %d\n",
			report.NewcomerWindowDays, summary.Newcomers)
	}

	return nil
}

// colorRoles joins attributed roles into one colored, comma-separated list
func colorRoles(roles []model.Role) string {
	if len(roles) == 0 {
		return "-"
	}
	parts := make([]string, len(roles))
	for i, role := range roles {
		parts[i] = colorRole(role)
	}
	return strings.Join(parts, ", ")
}

func colorRole(role model.Role) string {
	switch role {
	case model.RoleMaintainer:
		return color.RedString(string(role))
	case model.RoleReviewer:
		return color.CyanString(string(role))
	case model.RoleCodeContributor:
		return color.GreenString(string(role))
	case model.RoleDocContributor:
		return color.BlueString(string(role))
	case model.RoleConnector:
		return color.MagentaString(string(role))
	case model.RoleIssueReporter:
		return color.YellowString(string(role))
	default:
		return color.WhiteString(string(role))
	}
}
