package ghclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fosspulse/fosspulse/internal/constants"
	"github.com/fosspulse/fosspulse/internal/log"
)

// ErrRateLimited is returned when the GitHub API rate limit has been
// exceeded and waiting for the reset was not possible. In normal operation
// the transport waits limits out, so callers only see this on cancellation
// or when a reset did not actually restore quota.
var ErrRateLimited = errors.New("rate limited")

// RateLimitState tracks the shared rate limit state for GitHub API
// requests. Every request path consults one instance, so concurrent
// workers never spend quota the crawl does not have.
type RateLimitState struct {
	mu        sync.RWMutex
	limited   bool
	resetAt   time.Time
	remaining int
	limit     int
}

var globalRateLimitState = &RateLimitState{}

// IsLimited returns true if we are currently rate limited.
func (s *RateLimitState) IsLimited() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.limited {
		return false
	}

	// Check if rate limit has reset
	if time.Now().After(s.resetAt) {
		return false
	}

	return true
}

// SetLimited sets the rate limit state.
func (s *RateLimitState) SetLimited(limited bool, resetAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limited = limited
	s.resetAt = resetAt
}

// Update updates the rate limit state from response headers.
func (s *RateLimitState) Update(remaining, limit int, resetAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remaining = remaining
	s.limit = limit
	s.resetAt = resetAt

	// If remaining is 0, mark as limited
	if remaining == 0 {
		s.limited = true
	}
}

// GetStatus returns the current rate limit status.
func (s *RateLimitState) GetStatus() (remaining, limit int, resetAt time.Time, limited bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remaining, s.limit, s.resetAt, s.limited && time.Now().Before(s.resetAt)
}

// Wait blocks until the quota permits another request. It returns
// immediately when no limit is active. Waiting sleeps until the advertised
// reset time plus a small pad; there is no busy loop.
func (s *RateLimitState) Wait(ctx context.Context) error {
	for {
		s.mu.RLock()
		limited := s.limited
		resetAt := s.resetAt
		s.mu.RUnlock()

		if !limited || !time.Now().Before(resetAt) {
			if limited {
				s.SetLimited(false, time.Time{})
			}
			return nil
		}

		wait := time.Until(resetAt) + constants.RateLimitWaitPad
		log.Info("rate limit exhausted, waiting for reset",
			"resets_at", resetAt.Format(time.RFC3339),
			"wait", wait.Round(time.Second).String())

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
