package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fosspulse/fosspulse/config"
	"github.com/fosspulse/fosspulse/internal/format"
	"github.com/fosspulse/fosspulse/internal/model"
	"github.com/fosspulse/fosspulse/internal/sentiment"
	"github.com/fosspulse/fosspulse/internal/store"
	"github.com/fosspulse/fosspulse/internal/urlutil"
)

// NewCmdStore creates the store command with subcommands.
func NewCmdStore(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect and maintain the local event store",
	}

	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "Root directory for harvested data (default: config data_dir)")

	cmd.AddCommand(newCmdStoreStats(opts))
	cmd.AddCommand(newCmdStoreCompact(opts))
	cmd.AddCommand(newCmdStoreComments(opts))

	return cmd
}

// newCmdStoreStats creates the store stats subcommand.
func newCmdStoreStats(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <owner>/<repo>",
		Short: "Show event store statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStoreStats(args[0], opts)
		},
	}
}

// newCmdStoreCompact creates the store compact subcommand.
func newCmdStoreCompact(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "compact <owner>/<repo>",
		Short: "Rewrite store files dropping superseded records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStoreCompact(args[0], opts)
		},
	}
}

// newCmdStoreComments creates the store comments subcommand.
func newCmdStoreComments(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "comments <owner>/<repo>",
		Short: "Dump comment bodies as JSONL for external analysis",
		Long: `Writes one JSON object per harvested comment (id, subject, actor,
createdAt, body) to stdout. The stream feeds external tooling such as
sentiment scorers; their annotations come back in via a JSONL file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStoreComments(args[0], opts)
		},
	}
}

// openStoreArg resolves an "owner/repo" argument to its store.
func openStoreArg(repoArg string, opts *Options) (*store.Store, error) {
	owner, name, err := urlutil.SplitRepoRef(repoArg)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return openStore(cfg, opts, owner, name)
}

func runStoreStats(repoArg string, opts *Options) error {
	st, err := openStoreArg(repoArg, opts)
	if err != nil {
		return err
	}

	stats, err := st.Stats()
	if err != nil {
		return fmt.Errorf("failed to read store: %w", err)
	}

	fmt.Printf("Store for %s:\n", repoArg)
	fmt.Printf("  Directory: %s\n", st.Dir())
	fmt.Printf("  Subjects:  %d (%d issues, %d pull requests)\n", stats.Subjects, stats.Issues, stats.Pulls)
	fmt.Printf("  Events:    %d from %d actors\n", stats.Events, stats.Actors)
	if stats.Events > 0 {
		fmt.Printf("  Range:     %s to %s\n", format.FormatDate(stats.Oldest), format.FormatDate(stats.Newest))
	}
	fmt.Printf("  Size:      %s\n", formatBytes(stats.SizeBytes))
	if len(stats.Kinds) > 0 {
		fmt.Printf("  By kind:\n")
		for _, kind := range model.AllEventKinds {
			if n := stats.Kinds[kind]; n > 0 {
				fmt.Printf("    %-19s %d\n", string(kind)+":", n)
			}
		}
	}
	return nil
}

func runStoreCompact(repoArg string, opts *Options) error {
	st, err := openStoreArg(repoArg, opts)
	if err != nil {
		return err
	}

	before, err := st.Stats()
	if err != nil {
		return fmt.Errorf("failed to read store: %w", err)
	}

	if err := st.Compact(); err != nil {
		return fmt.Errorf("failed to compact store: %w", err)
	}

	after, err := st.Stats()
	if err != nil {
		return fmt.Errorf("failed to read store: %w", err)
	}

	fmt.Printf("Compacted %s: %s -> %s\n", repoArg, formatBytes(before.SizeBytes), formatBytes(after.SizeBytes))
	return nil
}

func runStoreComments(repoArg string, opts *Options) error {
	st, err := openStoreArg(repoArg, opts)
	if err != nil {
		return err
	}

	snap, err := st.Snapshot()
	if err != nil {
		return fmt.Errorf("failed to read store: %w", err)
	}

	// Stdout carries the JSONL stream, so the count goes to stderr
	n, err := sentiment.ExportComments(snap, os.Stdout)
	if err != nil {
		return fmt.Errorf("failed to export comments: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Exported %d comments.\n", n)
	return nil
}

// formatBytes formats a byte count into human-readable form.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
