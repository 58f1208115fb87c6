// Package urlutil provides URL and repository reference parsing utilities.
package urlutil

import (
	"fmt"
	"strconv"
	"strings"
)

// ExtractIssueNumber extracts the issue/PR number from the API URL.
func ExtractIssueNumber(apiURL string) (int, error) {
	// URL format: https://api.github.com/repos/owner/repo/issues/123
	// or: https://api.github.com/repos/owner/repo/pulls/123
	parts := strings.Split(apiURL, "/")
	if len(parts) < 2 {
		return 0, fmt.Errorf("invalid API URL format: %s", apiURL)
	}

	numStr := parts[len(parts)-1]
	num, err := strconv.Atoi(numStr)
	if err != nil {
		return 0, fmt.Errorf("failed to parse issue number from URL %s: %w", apiURL, err)
	}

	return num, nil
}

// SplitRepoRef splits an "owner/name" repository reference.
func SplitRepoRef(ref string) (owner, name string, err error) {
	parts := strings.Split(strings.TrimSuffix(ref, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository reference %q, expected owner/name", ref)
	}
	return parts[0], parts[1], nil
}
