// Package crawl drives the harvest of one repository: it pages through
// every issue and pull request, fetches each subject's comments, reviews,
// commits, and label activity, and writes everything through to the store
// as it arrives. Progress is checkpointed after every page so an
// interrupted crawl resumes where it left off.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fosspulse/fosspulse/config"
	"github.com/fosspulse/fosspulse/internal/ghclient"
	"github.com/fosspulse/fosspulse/internal/log"
	"github.com/fosspulse/fosspulse/internal/model"
	"github.com/fosspulse/fosspulse/internal/store"
)

// ProgressFunc is called as subjects finish harvesting. total is the
// number of subjects discovered so far; it grows as listing pages arrive.
type ProgressFunc func(completed, total int)

// Options configures one crawl run.
type Options struct {
	// Since restricts the listing to subjects updated at or after this
	// time. Zero means everything.
	Since time.Time
}

// Result summarizes a finished or aborted crawl run.
type Result struct {
	RunID    string
	Pages    int
	Subjects int // subjects fully harvested this run
	Skipped  int // already captured in earlier runs, or vanished
	Events   int // events written this run

	Resumed         bool
	AlreadyComplete bool

	QuotaRemaining int
	QuotaResetAt   time.Time
}

// Crawler harvests one repository's collaboration history.
type Crawler struct {
	fetcher    ghclient.Fetcher
	store      *store.Store
	owner      string
	name       string
	params     config.CrawlParams
	onProgress ProgressFunc
}

// New creates a Crawler. onProgress may be nil (no-op).
func New(fetcher ghclient.Fetcher, st *store.Store, owner, name string, params config.CrawlParams, onProgress ProgressFunc) *Crawler {
	return &Crawler{
		fetcher:    fetcher,
		store:      st,
		owner:      owner,
		name:       name,
		params:     params,
		onProgress: onProgress,
	}
}

func (c *Crawler) reportProgress(completed, total int) {
	if c.onProgress != nil {
		c.onProgress(completed, total)
	}
}

// Run executes the crawl until the repository is fully captured, the
// context is cancelled, or a fatal error occurs. In every case the cursor
// on disk reflects the last fully written page, so a subsequent Run picks
// up from there.
func (c *Crawler) Run(ctx context.Context, opts Options) (*Result, error) {
	cursor, err := c.store.LoadCursor()
	if err != nil {
		return nil, fmt.Errorf("loading cursor: %w", err)
	}

	repo := c.owner + "/" + c.name
	result := &Result{RunID: uuid.New().String()}

	if cursor != nil && cursor.Completed {
		log.Info("crawl already complete", "repo", repo)
		result.AlreadyComplete = true
		return result, nil
	}

	page := 1
	boundary := 0
	if cursor != nil {
		if cursor.ListPage > 0 {
			page = cursor.ListPage
		}
		if cursor.PageSize != 0 && cursor.PageSize != c.params.PageSize {
			// The saved page number was computed at a different page size.
			// Re-list from the start; the boundary keeps captured subjects
			// from being refetched.
			log.Warn("page size changed since last run, relisting from the start",
				"was", cursor.PageSize, "now", c.params.PageSize)
			page = 1
		}
		boundary = cursor.LastSubject
		result.Resumed = true
		log.Info("resuming crawl", "repo", repo, "page", page, "lastSubject", boundary)
	} else {
		log.Info("starting crawl", "repo", repo)
	}
	log.Debug("crawl run",
		"run", result.RunID, "workers", c.params.Workers, "pageSize", c.params.PageSize)

	state := &runState{result: result}

	for {
		// Cooperative stop between pages. The cursor already reflects the
		// last fully written page, so stopping here stays resumable.
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		subjects, next, err := c.fetcher.ListSubjects(ctx, c.owner, c.name, opts.Since, page)
		if err != nil {
			return result, fmt.Errorf("listing %s page %d: %w", repo, page, err)
		}

		if err := c.harvestPage(ctx, subjects, boundary, state); err != nil {
			return result, err
		}
		result.Pages++

		for _, subject := range subjects {
			if subject.Number > boundary {
				boundary = subject.Number
			}
		}

		completed := next == 0
		if err := c.saveCursor(repo, result, next, boundary, completed); err != nil {
			return result, err
		}
		if completed {
			break
		}
		page = next
	}

	log.Info("crawl complete",
		"repo", repo, "subjects", result.Subjects, "events", result.Events, "pages", result.Pages)
	return result, nil
}

// runState carries the counters shared by page workers.
type runState struct {
	mu     sync.Mutex
	result *Result
	total  int // subjects discovered across all pages so far
}

// harvestPage fetches the sub-resources of every subject on one listing
// page through a bounded worker pool. Subjects below the resume boundary
// are not refetched and keep their stored record; the boundary subject
// itself is re-harvested fully, which idempotent upserts make safe.
func (c *Crawler) harvestPage(ctx context.Context, subjects []model.Subject, boundary int, state *runState) error {
	state.mu.Lock()
	state.total += len(subjects)
	state.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.params.Workers)

	for _, subject := range subjects {
		g.Go(func() error {
			if subject.Number < boundary {
				// The stored record carries pull details the listing lacks
				// (merge state, close time); only fill a genuine gap.
				known, err := c.store.HasSubject(subject.Number)
				if err != nil {
					return err
				}
				if !known {
					if err := c.store.UpsertSubject(subject); err != nil {
						return err
					}
				}
				c.finishSubject(state, &state.result.Skipped)
				return nil
			}

			written, err := c.harvestSubject(gctx, subject)
			state.mu.Lock()
			state.result.Events += written
			state.mu.Unlock()

			if err != nil {
				if errors.Is(err, ghclient.ErrNotFound) {
					log.Warn("subject vanished mid-crawl, skipping",
						"subject", subject.Number)
					c.finishSubject(state, &state.result.Skipped)
					return nil
				}
				return fmt.Errorf("subject #%d: %w", subject.Number, err)
			}
			c.finishSubject(state, &state.result.Subjects)
			return nil
		})
	}
	return g.Wait()
}

func (c *Crawler) finishSubject(state *runState, counter *int) {
	state.mu.Lock()
	*counter++
	completed := state.result.Subjects + state.result.Skipped
	total := state.total
	state.mu.Unlock()
	c.reportProgress(completed, total)
}

// harvestSubject writes one subject and all its events to the store,
// returning how many events were written. Every item is written on
// receipt; a failure partway leaves earlier writes intact.
func (c *Crawler) harvestSubject(ctx context.Context, subject model.Subject) (int, error) {
	written := 0
	upsert := func(ev model.RawEvent) error {
		if subject.IsPull() && ev.Kind == model.KindIssueComment {
			// The conversation endpoint is shared between issues and pull
			// requests; the subject type decides the comment's kind.
			ev.Kind = model.KindPRComment
		}
		if err := c.store.UpsertEvent(ev); err != nil {
			return err
		}
		written++
		return nil
	}

	var pull *ghclient.PullInfo
	if subject.IsPull() {
		info, err := c.fetcher.PullDetails(ctx, c.owner, c.name, subject.Number)
		if err != nil {
			return written, err
		}
		pull = info
		subject.Merged = info.Merged
		if info.ClosedAt != nil {
			subject.ClosedAt = info.ClosedAt
		}
	}

	if err := c.store.UpsertSubject(subject); err != nil {
		return written, err
	}
	if err := upsert(openedEvent(subject)); err != nil {
		return written, err
	}
	if pull != nil && pull.Merged {
		if err := upsert(mergeEvent(subject, pull)); err != nil {
			return written, err
		}
	}

	if err := c.harvestComments(ctx, subject, upsert); err != nil {
		return written, err
	}
	if err := c.harvestIssueEvents(ctx, subject, upsert); err != nil {
		return written, err
	}
	if subject.IsPull() {
		if err := c.harvestReviews(ctx, subject, upsert); err != nil {
			return written, err
		}
		if err := c.harvestReviewComments(ctx, subject, upsert); err != nil {
			return written, err
		}
		if err := c.harvestCommits(ctx, subject, upsert); err != nil {
			return written, err
		}
	}

	log.Trace("subject harvested", "subject", subject.Number, "events", written)
	return written, nil
}

// eachPage drives a paginated fetch until the listing reports no next
// page.
func eachPage(fetch func(page int) (next int, err error)) error {
	page := 1
	for {
		next, err := fetch(page)
		if err != nil {
			return err
		}
		if next == 0 {
			return nil
		}
		page = next
	}
}

func (c *Crawler) harvestComments(ctx context.Context, subject model.Subject, upsert func(model.RawEvent) error) error {
	return eachPage(func(page int) (int, error) {
		events, next, err := c.fetcher.ListIssueComments(ctx, c.owner, c.name, subject.Number, page)
		if err != nil {
			return 0, err
		}
		for _, ev := range events {
			if err := upsert(ev); err != nil {
				return 0, err
			}
		}
		return next, nil
	})
}

func (c *Crawler) harvestIssueEvents(ctx context.Context, subject model.Subject, upsert func(model.RawEvent) error) error {
	return eachPage(func(page int) (int, error) {
		events, next, err := c.fetcher.ListIssueEvents(ctx, c.owner, c.name, subject.Number, page)
		if err != nil {
			return 0, err
		}
		for _, ev := range events {
			if err := upsert(ev); err != nil {
				return 0, err
			}
		}
		return next, nil
	})
}

func (c *Crawler) harvestReviews(ctx context.Context, subject model.Subject, upsert func(model.RawEvent) error) error {
	return eachPage(func(page int) (int, error) {
		events, next, err := c.fetcher.ListReviews(ctx, c.owner, c.name, subject.Number, page)
		if err != nil {
			return 0, err
		}
		for _, ev := range events {
			if err := upsert(ev); err != nil {
				return 0, err
			}
		}
		return next, nil
	})
}

func (c *Crawler) harvestReviewComments(ctx context.Context, subject model.Subject, upsert func(model.RawEvent) error) error {
	return eachPage(func(page int) (int, error) {
		events, next, err := c.fetcher.ListReviewComments(ctx, c.owner, c.name, subject.Number, page)
		if err != nil {
			return 0, err
		}
		for _, ev := range events {
			if err := upsert(ev); err != nil {
				return 0, err
			}
		}
		return next, nil
	})
}

// harvestCommits fetches a pull request's commits and enriches each with
// its touched file list, which documentation classification needs.
func (c *Crawler) harvestCommits(ctx context.Context, subject model.Subject, upsert func(model.RawEvent) error) error {
	return eachPage(func(page int) (int, error) {
		events, next, err := c.fetcher.ListPullCommits(ctx, c.owner, c.name, subject.Number, page)
		if err != nil {
			return 0, err
		}
		for _, ev := range events {
			if commit, ok := ev.Payload.(*model.CommitPayload); ok && commit.SHA != "" {
				files, additions, deletions, err := c.fetcher.CommitFiles(ctx, c.owner, c.name, commit.SHA)
				switch {
				case errors.Is(err, ghclient.ErrNotFound):
					// A commit can vanish after a force push. Keep the
					// event, just without its file list.
					log.Debug("commit not found, storing without files", "sha", commit.SHA)
				case err != nil:
					return 0, err
				default:
					commit.Files = files
					commit.Additions = additions
					commit.Deletions = deletions
				}
			}
			if err := upsert(ev); err != nil {
				return 0, err
			}
		}
		return next, nil
	})
}

func (c *Crawler) saveCursor(repo string, result *Result, nextPage, lastSubject int, completed bool) error {
	remaining, _, resetAt := c.fetcher.Quota()
	result.QuotaRemaining = remaining
	result.QuotaResetAt = resetAt

	return c.store.SaveCursor(&store.Cursor{
		Repo:           repo,
		RunID:          result.RunID,
		ListPage:       nextPage,
		LastSubject:    lastSubject,
		Completed:      completed,
		PageSize:       c.params.PageSize,
		QuotaRemaining: remaining,
		QuotaResetAt:   resetAt,
	})
}
