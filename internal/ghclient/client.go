package ghclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	gh "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/fosspulse/fosspulse/config"
	"github.com/fosspulse/fosspulse/internal/constants"
	"github.com/fosspulse/fosspulse/internal/log"
)

// rateLimitTransport wraps an http.RoundTripper to handle GitHub rate limits
type rateLimitTransport struct {
	base  http.RoundTripper
	state *RateLimitState
}

func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.send(req)
	if err == nil || !errors.Is(err, ErrRateLimited) {
		return resp, err
	}

	// The quota ran out under this request. Wait the reset out and retry
	// the request once; a second limited response surfaces to the caller.
	if waitErr := t.state.Wait(req.Context()); waitErr != nil {
		return nil, waitErr
	}
	return t.send(req)
}

// send performs one attempt, blocking first while the quota is known to be
// exhausted. No request is ever issued with zero remaining quota.
func (t *rateLimitTransport) send(req *http.Request) (*http.Response, error) {
	if err := t.state.Wait(req.Context()); err != nil {
		return nil, err
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	// Parse and update rate limit state from response headers
	remaining, limit, resetAt := parseRateLimitHeaders(resp)
	if remaining >= 0 && limit > 0 {
		t.state.Update(remaining, limit, resetAt)
	}

	// Log warning if rate limit is low
	if remaining <= constants.RateLimitLowWatermark && remaining > 0 {
		log.Debug("rate limit low", "remaining", remaining, "resets_at", resetAt.Format(time.RFC3339))
	}

	// Handle rate limit responses (403 with rate limit exceeded or 429)
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		if resp.Header.Get("X-RateLimit-Remaining") == "0" || resp.StatusCode == http.StatusTooManyRequests {
			if resetAt.IsZero() {
				resetAt = time.Now().Add(retryAfter(resp))
			}
			t.state.SetLimited(true, resetAt)
			_ = resp.Body.Close()
			return nil, ErrRateLimited
		}
	}

	return resp, nil
}

// retryAfter reads the Retry-After header on secondary limit responses,
// defaulting to one minute when absent.
func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Minute
}

// parseRateLimitHeaders extracts rate limit info from response headers.
func parseRateLimitHeaders(resp *http.Response) (remaining, limit int, resetAt time.Time) {
	remaining = -1
	limit = -1

	if remainingStr := resp.Header.Get("X-RateLimit-Remaining"); remainingStr != "" {
		if rem, err := strconv.Atoi(remainingStr); err == nil {
			remaining = rem
		}
	}

	if limitStr := resp.Header.Get("X-RateLimit-Limit"); limitStr != "" {
		if lim, err := strconv.Atoi(limitStr); err == nil {
			limit = lim
		}
	}

	if resetStr := resp.Header.Get("X-RateLimit-Reset"); resetStr != "" {
		if resetTime, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
			resetAt = time.Unix(resetTime, 0)
		}
	}

	return remaining, limit, resetAt
}

// Client wraps the GitHub API client
type Client struct {
	client *gh.Client
	state  *RateLimitState
	// token is intentionally unexported. NEVER add String(), MarshalJSON(),
	// or any method that could expose this value in logs or serialized output.
	token string

	perPage    int
	maxRetries int
	retryBase  time.Duration
}

// NewClient creates a new GitHub client using a personal access token.
func NewClient(ctx context.Context, token string, params config.CrawlParams) (*Client, error) {
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" {
		return nil, fmt.Errorf("GitHub token not provided. Set the GITHUB_TOKEN environment variable")
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	// Wrap transport with rate limit handling
	tc.Transport = &rateLimitTransport{
		base:  tc.Transport,
		state: globalRateLimitState,
	}

	client := gh.NewClient(tc)

	if params.PageSize <= 0 {
		params.PageSize = 100
	}
	if params.MaxRetries <= 0 {
		params.MaxRetries = constants.FetchMaxRetries
	}
	if params.RetryBase <= 0 {
		params.RetryBase = constants.FetchRetryBase
	}

	return &Client{
		client:     client,
		state:      globalRateLimitState,
		token:      token,
		perPage:    params.PageSize,
		maxRetries: params.MaxRetries,
		retryBase:  params.RetryBase,
	}, nil
}

// AuthenticatedUser returns the authenticated user's login
func (c *Client) AuthenticatedUser(ctx context.Context) (string, error) {
	user, _, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("failed to get authenticated user: %w", classifyErr("get authenticated user", err))
	}
	return user.GetLogin(), nil
}

// RateLimits fetches the current GitHub API rate limit status.
func (c *Client) RateLimits(ctx context.Context) (*gh.RateLimits, error) {
	limits, _, err := c.client.RateLimit.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get rate limits: %w", err)
	}
	return limits, nil
}

// Quota returns the most recently observed rate limit state. It reflects
// response headers, not a live API call.
func (c *Client) Quota() (remaining, limit int, resetAt time.Time) {
	remaining, limit, resetAt, _ = c.state.GetStatus()
	return remaining, limit, resetAt
}
