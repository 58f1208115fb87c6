// Package constants provides a centralized location for all configuration
// values and magic numbers used throughout the fosspulse application.
package constants

import "time"

// TUI update and display constants
const (
	// TUIUpdateInterval is the minimum time between TUI progress updates
	// to provide smooth progress display without excessive overhead.
	TUIUpdateInterval = 50 * time.Millisecond

	// LogThrottlePercent is the interval (in percent) at which progress
	// logs are emitted when not using the TUI.
	LogThrottlePercent = 5

	// TruncationSuffixWidth is the width of the "..." suffix when truncating strings.
	TruncationSuffixWidth = 3
)

// Rate limiting constants
const (
	// RateLimitLowWatermark is the threshold below which rate limit
	// warnings are logged.
	RateLimitLowWatermark = 100

	// RateLimitWaitPad is added to quota reset waits to absorb clock skew
	// between GitHub and the local host.
	RateLimitWaitPad = 2 * time.Second
)

// Fetch retry constants
const (
	// FetchMaxRetries is the number of attempts made for one logical
	// request before the failure is treated as fatal.
	FetchMaxRetries = 5

	// FetchRetryBase is the backoff delay after the first failed attempt.
	// It doubles per attempt up to FetchRetryMaxDelay.
	FetchRetryBase = time.Second

	// FetchRetryMaxDelay caps the exponential backoff delay.
	FetchRetryMaxDelay = 30 * time.Second
)

// Review state constants
const (
	// ReviewStateApproved indicates a review approved the pull request.
	ReviewStateApproved = "approved"

	// ReviewStateChangesRequested indicates a review requested changes.
	ReviewStateChangesRequested = "changes_requested"

	// ReviewStateCommented indicates a review left comments without a verdict.
	ReviewStateCommented = "commented"
)
