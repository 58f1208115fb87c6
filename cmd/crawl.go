package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/fosspulse/fosspulse/config"
	"github.com/fosspulse/fosspulse/internal/constants"
	"github.com/fosspulse/fosspulse/internal/crawl"
	"github.com/fosspulse/fosspulse/internal/duration"
	"github.com/fosspulse/fosspulse/internal/ghclient"
	"github.com/fosspulse/fosspulse/internal/log"
	"github.com/fosspulse/fosspulse/internal/store"
	"github.com/fosspulse/fosspulse/internal/tui"
	"github.com/fosspulse/fosspulse/internal/urlutil"
)

// crawlRuntime bundles TUI-related state that's threaded through the crawl command.
type crawlRuntime struct {
	useTUI  bool
	repo    string
	events  chan tui.Event
	tuiDone chan error
}

// startTUI initializes and starts the TUI goroutine if TUI mode is enabled.
func (rt *crawlRuntime) startTUI() {
	if !rt.useTUI {
		return
	}
	rt.events = make(chan tui.Event, 100)
	rt.tuiDone = make(chan error, 1)
	go func() {
		rt.tuiDone <- tui.Run(rt.events, tui.WithRepo(rt.repo))
	}()
}

// close closes the event channel and waits for the TUI to finish.
func (rt *crawlRuntime) close() {
	if rt.events == nil {
		return
	}
	close(rt.events)
	rt.events = nil
	if rt.tuiDone != nil {
		<-rt.tuiDone
	}
}

// sendEvent sends a task event to the TUI channel if it exists.
func (rt *crawlRuntime) sendEvent(task tui.TaskID, status tui.TaskStatus, opts ...tui.TaskEventOption) {
	if rt.events == nil {
		return
	}
	tui.SendTaskEvent(rt.events, task, status, opts...)
}

// NewCmdCrawl creates the crawl command.
func NewCmdCrawl(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <owner>/<repo>",
		Short: "Harvest the collaboration history of a repository",
		Long: `Harvests every issue and pull request of a repository, with its
comments, reviews, commits and maintainer actions, into the local event
store. Interrupted crawls resume from the saved cursor; finished crawls
are recognized and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Since, "since", "s", "", "Only crawl subjects updated since (e.g., 1w, 30d, 6mo)")
	cmd.Flags().StringVar(&opts.DataDir, "data-dir", "", "Root directory for harvested data (default: config data_dir)")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "Concurrent subject workers (default: config crawl.workers)")
	cmd.Flags().BoolVar(&opts.Fresh, "fresh", false, "Discard the saved cursor and crawl from scratch")
	cmd.Flags().CountVarP(&opts.Verbosity, "verbose", "v", "Increase verbosity (-v info, -vv debug, -vvv trace)")
	cmd.Flags().Var(newTUIFlag(opts), "tui", "Enable/disable TUI progress (default: auto-detect)")
	cmd.Flags().StringVar(&opts.CPUProfile, "cpuprofile", "", "Write CPU profile to file")
	cmd.Flags().StringVar(&opts.MemProfile, "memprofile", "", "Write memory profile to file")
	cmd.Flags().StringVar(&opts.Trace, "trace", "", "Write execution trace to file")

	return cmd
}

func runCrawl(cmd *cobra.Command, repoArg string, opts *Options) error {
	ctx := cmd.Context()

	owner, name, err := urlutil.SplitRepoRef(repoArg)
	if err != nil {
		return err
	}

	rt, cleanup, err := setupCrawlRuntime(repoArg, opts)
	if err != nil {
		return err
	}
	defer cleanup()
	rt.startTUI()
	defer rt.close()

	cfg, client, err := loadConfigAndAuth(ctx, rt)
	if err != nil {
		return err
	}

	st, err := openStore(cfg, opts, owner, name)
	if err != nil {
		return err
	}

	if opts.Fresh {
		if err := st.ClearCursor(); err != nil {
			return fmt.Errorf("failed to discard cursor: %w", err)
		}
		log.Info("cursor discarded, crawling from scratch")
	}

	var since time.Time
	if opts.Since != "" {
		since, err = duration.Parse(opts.Since)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
	}

	params := cfg.GetCrawlParams()
	if opts.Workers > 0 {
		params.Workers = opts.Workers
	}

	rt.sendEvent(tui.TaskList, tui.StatusRunning)
	crawler := crawl.New(client, st, owner, name, params, crawlProgress(rt, client))

	result, err := crawler.Run(ctx, crawl.Options{Since: since})
	if err != nil {
		rt.sendEvent(tui.TaskHarvest, tui.StatusError, tui.WithError(err))
		rt.close()
		return err
	}

	rt.sendEvent(tui.TaskList, tui.StatusComplete, tui.WithCount(result.Subjects+result.Skipped))
	rt.sendEvent(tui.TaskHarvest, tui.StatusComplete,
		tui.WithMessage(fmt.Sprintf("%d events from %d subjects", result.Events, result.Subjects)))
	rt.close()

	printCrawlSummary(repoArg, st, result)
	return nil
}

// setupCrawlRuntime starts profiling, configures logging and decides on TUI use.
func setupCrawlRuntime(repo string, opts *Options) (*crawlRuntime, func(), error) {
	profiler := NewProfiler(opts.CPUProfile, opts.MemProfile, opts.Trace)
	if err := profiler.Start(); err != nil {
		return nil, nil, err
	}

	useTUI := shouldUseTUI(opts)

	// Suppress logs during TUI to avoid interleaving with the display
	if useTUI {
		log.Initialize(opts.Verbosity, io.Discard)
	} else {
		log.Initialize(opts.Verbosity, os.Stderr)
	}

	rt := &crawlRuntime{useTUI: useTUI, repo: repo}
	return rt, profiler.Stop, nil
}

// loadConfigAndAuth loads configuration and authenticates with GitHub.
func loadConfigAndAuth(ctx context.Context, rt *crawlRuntime) (*config.Config, *ghclient.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	token := cfg.GetGitHubToken()
	if token == "" {
		return nil, nil, fmt.Errorf("GitHub token not configured. Set the GITHUB_TOKEN environment variable")
	}

	client, err := ghclient.NewClient(ctx, token, cfg.GetCrawlParams())
	if err != nil {
		return nil, nil, err
	}

	rt.sendEvent(tui.TaskAuth, tui.StatusRunning)
	user, err := client.AuthenticatedUser(ctx)
	if err != nil {
		rt.sendEvent(tui.TaskAuth, tui.StatusError, tui.WithError(err))
		return nil, nil, fmt.Errorf("failed to get authenticated user: %w", err)
	}
	rt.sendEvent(tui.TaskAuth, tui.StatusComplete, tui.WithMessage(user))

	return cfg, client, nil
}

// openStore opens the event store for one repository under the data root.
func openStore(cfg *config.Config, opts *Options, owner, name string) (*store.Store, error) {
	root := opts.DataDir
	if root == "" {
		root = cfg.DataDir
	}
	if root == "" {
		root = config.DefaultDataDir()
	}

	st, err := store.Open(root, owner, name)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	log.Info("store opened", "dir", st.Dir())
	return st, nil
}

// crawlProgress builds the progress callback bridging the crawler to the
// TUI (or throttled progress logs when the TUI is off).
func crawlProgress(rt *crawlRuntime, client *ghclient.Client) crawl.ProgressFunc {
	var lastLogPercent int64 = -1
	var lastTUIUpdate int64 // Unix nanoseconds
	tuiUpdateInterval := int64(constants.TUIUpdateInterval)

	return func(completed, total int) {
		if total == 0 {
			return
		}

		if rt.useTUI {
			// Throttle TUI updates for smooth progress without overhead
			now := time.Now().UnixNano()
			lastUpdate := atomic.LoadInt64(&lastTUIUpdate)
			if now-lastUpdate < tuiUpdateInterval && completed != total {
				return
			}
			if !atomic.CompareAndSwapInt64(&lastTUIUpdate, lastUpdate, now) {
				return
			}

			rt.sendEvent(tui.TaskList, tui.StatusComplete, tui.WithCount(total))
			rt.sendEvent(tui.TaskHarvest, tui.StatusRunning,
				tui.WithProgress(float64(completed)/float64(total)),
				tui.WithMessage(fmt.Sprintf("%d/%d", completed, total)))

			remaining, limit, resetAt := client.Quota()
			tui.SendEvent(rt.events, tui.QuotaEvent{Remaining: remaining, Limit: limit, ResetAt: resetAt})
			return
		}

		// Throttle log output to configured percent intervals
		percent := int64(completed*100) / int64(total)
		if percent != atomic.LoadInt64(&lastLogPercent) && percent%int64(constants.LogThrottlePercent) == 0 {
			atomic.StoreInt64(&lastLogPercent, percent)
			log.Progress("Harvesting subjects: %d/%d (%d%%)...", completed, total, percent)
		}
	}
}

// printCrawlSummary prints the crawl outcome after the TUI has shut down.
func printCrawlSummary(repo string, st *store.Store, result *crawl.Result) {
	if result.AlreadyComplete {
		fmt.Printf("%s is already fully harvested. Use --fresh to crawl again.\n", repo)
		return
	}

	log.ProgressDone()

	verb := "Harvested"
	if result.Resumed {
		verb = "Resumed and harvested"
	}
	fmt.Printf("%s %s: %d subjects (%d already captured), %d events across %d pages.\n",
		verb, repo, result.Subjects, result.Skipped, result.Events, result.Pages)
	fmt.Printf("Store: %s\n", st.Dir())
	if result.QuotaRemaining > 0 {
		reset := time.Until(result.QuotaResetAt).Round(time.Second)
		if reset < 0 {
			reset = 0
		}
		fmt.Printf("API quota: %d remaining (resets in %s)\n", result.QuotaRemaining, reset)
	}
}
