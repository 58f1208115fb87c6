package ghclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	gh "github.com/google/go-github/v57/github"

	"github.com/fosspulse/fosspulse/config"
)

// stubResponse describes one canned HTTP response.
type stubResponse struct {
	status  int
	body    string
	headers map[string]string
}

// stubTransport replays canned responses and records request times.
type stubTransport struct {
	responses []stubResponse
	calls     int
	callTimes []time.Time
}

func (s *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.callTimes = append(s.callTimes, time.Now())
	if s.calls >= len(s.responses) {
		return nil, errors.New("stub transport exhausted")
	}
	canned := s.responses[s.calls]
	s.calls++

	header := make(http.Header)
	for k, v := range canned.headers {
		header.Set(k, v)
	}
	body := canned.body
	if body == "" {
		body = "{}"
	}
	return &http.Response{
		StatusCode: canned.status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}, nil
}

func okHeaders(remaining int) map[string]string {
	return map[string]string{
		"X-RateLimit-Remaining": strconv.Itoa(remaining),
		"X-RateLimit-Limit":     "5000",
		"X-RateLimit-Reset":     strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10),
	}
}

func limitedHeaders(resetAt time.Time) map[string]string {
	return map[string]string{
		"X-RateLimit-Remaining": "0",
		"X-RateLimit-Limit":     "5000",
		"X-RateLimit-Reset":     strconv.FormatInt(resetAt.Unix(), 10),
	}
}

// testClient builds a Client whose requests hit the stub instead of GitHub.
func testClient(stub *stubTransport, state *RateLimitState) *Client {
	transport := &rateLimitTransport{base: stub, state: state}
	return &Client{
		client:     gh.NewClient(&http.Client{Transport: transport}),
		state:      state,
		token:      "test-token",
		perPage:    100,
		maxRetries: 3,
		retryBase:  time.Millisecond,
	}
}

func TestTransportUpdatesStateFromHeaders(t *testing.T) {
	state := &RateLimitState{}
	stub := &stubTransport{responses: []stubResponse{
		{status: http.StatusOK, body: `[]`, headers: okHeaders(4999)},
	}}
	client := testClient(stub, state)

	_, _, err := client.ListSubjects(context.Background(), "octocat", "hello", time.Time{}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	remaining, limit, _, _ := state.GetStatus()
	if remaining != 4999 || limit != 5000 {
		t.Errorf("expected state 4999/5000, got %d/%d", remaining, limit)
	}
}

func TestTransportRetriesOnceAfterLimit(t *testing.T) {
	// Reset already in the past so the wait returns immediately.
	state := &RateLimitState{}
	stub := &stubTransport{responses: []stubResponse{
		{status: http.StatusForbidden, headers: limitedHeaders(time.Now().Add(-time.Second))},
		{status: http.StatusOK, body: `[]`, headers: okHeaders(4998)},
	}}
	client := testClient(stub, state)

	_, _, err := client.ListSubjects(context.Background(), "octocat", "hello", time.Time{}, 1)
	if err != nil {
		t.Fatalf("expected the limited request to be retried, got %v", err)
	}
	if stub.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", stub.calls)
	}
}

func TestTransportSurfacesSecondLimit(t *testing.T) {
	state := &RateLimitState{}
	past := time.Now().Add(-time.Second)
	stub := &stubTransport{responses: []stubResponse{
		{status: http.StatusForbidden, headers: limitedHeaders(past)},
		{status: http.StatusForbidden, headers: limitedHeaders(past)},
	}}
	client := testClient(stub, state)

	_, _, err := client.ListSubjects(context.Background(), "octocat", "hello", time.Time{}, 1)
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
	if stub.calls != 2 {
		t.Errorf("expected exactly 2 attempts, got %d", stub.calls)
	}
}

func TestNoRequestWhileQuotaExhausted(t *testing.T) {
	state := &RateLimitState{}
	reset := time.Now().Add(50 * time.Millisecond)
	state.Update(0, 5000, reset)

	stub := &stubTransport{responses: []stubResponse{
		{status: http.StatusOK, body: `[]`, headers: okHeaders(5000)},
	}}
	client := testClient(stub, state)

	_, _, err := client.ListSubjects(context.Background(), "octocat", "hello", time.Time{}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stub.callTimes) != 1 {
		t.Fatalf("expected exactly one request, got %d", len(stub.callTimes))
	}
	if stub.callTimes[0].Before(reset) {
		t.Error("request was issued before the quota reset")
	}
}

func TestWithRetry(t *testing.T) {
	t.Run("retries server errors", func(t *testing.T) {
		state := &RateLimitState{}
		stub := &stubTransport{responses: []stubResponse{
			{status: http.StatusBadGateway},
			{status: http.StatusInternalServerError},
			{status: http.StatusOK, body: `[]`, headers: okHeaders(4997)},
		}}
		client := testClient(stub, state)

		_, _, err := client.ListSubjects(context.Background(), "octocat", "hello", time.Time{}, 1)
		if err != nil {
			t.Fatalf("expected success after retries, got %v", err)
		}
		if stub.calls != 3 {
			t.Errorf("expected 3 attempts, got %d", stub.calls)
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		state := &RateLimitState{}
		stub := &stubTransport{responses: []stubResponse{
			{status: http.StatusBadGateway},
			{status: http.StatusBadGateway},
			{status: http.StatusBadGateway},
			{status: http.StatusBadGateway},
		}}
		client := testClient(stub, state)

		_, _, err := client.ListSubjects(context.Background(), "octocat", "hello", time.Time{}, 1)
		if err == nil {
			t.Fatal("expected error after exhausting retries")
		}
		if stub.calls != client.maxRetries {
			t.Errorf("expected %d attempts, got %d", client.maxRetries, stub.calls)
		}
	})

	t.Run("authentication failures are not retried", func(t *testing.T) {
		state := &RateLimitState{}
		stub := &stubTransport{responses: []stubResponse{
			{status: http.StatusUnauthorized, headers: okHeaders(4999)},
		}}
		client := testClient(stub, state)

		_, _, err := client.ListSubjects(context.Background(), "octocat", "hello", time.Time{}, 1)
		if !errors.Is(err, ErrAuth) {
			t.Errorf("expected ErrAuth, got %v", err)
		}
		if stub.calls != 1 {
			t.Errorf("expected a single attempt, got %d", stub.calls)
		}
	})

	t.Run("not found is not retried", func(t *testing.T) {
		state := &RateLimitState{}
		stub := &stubTransport{responses: []stubResponse{
			{status: http.StatusNotFound, headers: okHeaders(4999)},
		}}
		client := testClient(stub, state)

		_, err := client.PullDetails(context.Background(), "octocat", "hello", 9)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if stub.calls != 1 {
			t.Errorf("expected a single attempt, got %d", stub.calls)
		}
	})
}

func TestNewClientRequiresToken(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	_, err := NewClient(context.Background(), "", config.CrawlParams{})
	if err == nil {
		t.Error("expected error when creating client without token")
	}
}
