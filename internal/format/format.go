// Package format provides shared text formatting utilities for terminal
// and markdown output.
package format

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// ansiRegex matches ANSI escape sequences
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// StripAnsi removes ANSI escape sequences from a string.
func StripAnsi(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// DisplayWidth returns the visible width of a string in terminal columns,
// accounting for wide characters (which take 2 columns) and stripping ANSI
// escape sequences.
func DisplayWidth(s string) int {
	return runewidth.StringWidth(StripAnsi(s))
}

// TruncateToWidth truncates a string to fit within maxWidth display columns.
// ANSI escape sequences are preserved in the output without counting toward
// the width. Returns the truncated string and its visible width. If
// truncation occurs, "..." is appended along with an ANSI reset code so a
// cut inside a colored span cannot bleed into the next column.
func TruncateToWidth(s string, maxWidth int) (string, int) {
	width := DisplayWidth(s)
	if width <= maxWidth {
		return s, width
	}

	targetWidth := maxWidth - 3
	if targetWidth < 0 {
		targetWidth = 0
	}

	matches := ansiRegex.FindAllStringIndex(s, -1)

	var result strings.Builder
	visibleWidth := 0
	pos := 0
	matchIdx := 0

	for pos < len(s) && visibleWidth < targetWidth {
		if matchIdx < len(matches) && pos == matches[matchIdx][0] {
			result.WriteString(s[matches[matchIdx][0]:matches[matchIdx][1]])
			pos = matches[matchIdx][1]
			matchIdx++
			continue
		}

		r, size := utf8.DecodeRuneInString(s[pos:])
		rw := runewidth.RuneWidth(r)
		if visibleWidth+rw > targetWidth {
			break
		}
		result.WriteString(s[pos : pos+size])
		visibleWidth += rw
		pos += size
	}

	result.WriteString("...\033[0m")

	return result.String(), maxWidth
}

// PadRight pads a string with spaces to reach the target visible width.
func PadRight(s string, visibleWidth, targetWidth int) string {
	if visibleWidth >= targetWidth {
		return s
	}
	return s + strings.Repeat(" ", targetWidth-visibleWidth)
}

// TruncateName truncates a login or repo name to fit within maxWidth.
// If truncation is needed, an ellipsis is added.
func TruncateName(name string, maxWidth int) string {
	if len(name) <= maxWidth {
		return name
	}
	if maxWidth <= 1 {
		return name[:maxWidth]
	}
	return name[:maxWidth-1] + "…" // ellipsis character
}

// FormatAge formats a duration as a human-readable age string.
// Uses compact format: "now", "5m", "2h", "3d", "2w", "3mo", "2y".
func FormatAge(d time.Duration) string {
	if d < time.Minute {
		return "now"
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	days := int(d.Hours() / 24)
	if days < 7 {
		return fmt.Sprintf("%dd", days)
	}
	if days < 30 {
		return fmt.Sprintf("%dw", days/7)
	}
	if days < 365 {
		return fmt.Sprintf("%dmo", days/30)
	}
	return fmt.Sprintf("%dy", days/365)
}

// FormatDate formats a timestamp as a date, in UTC. Zero times render as a
// placeholder so table columns stay aligned.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02")
}
