package ghclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v57/github"
)

// ErrAuth is returned when GitHub rejects the credentials. Retrying cannot
// help; callers should abort and leave crawl state intact.
var ErrAuth = errors.New("github rejected the credentials")

// ErrNotFound is returned when a resource disappeared between listing and
// fetching. Callers skip the affected subject and continue.
var ErrNotFound = errors.New("resource not found")

// classifyErr maps a go-github failure onto the package error taxonomy.
// Anything it does not recognize is treated as transient and retried.
func classifyErr(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrRateLimited) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		// The transport waits limits out before go-github can see them;
		// reaching this point means a request slipped through anyway.
		return fmt.Errorf("%s: %w", op, ErrRateLimited)
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w", op, ErrAuth)
		case http.StatusNotFound, http.StatusGone:
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
	}

	return err
}
