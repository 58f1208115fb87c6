package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fosspulse/fosspulse/config"
	"github.com/fosspulse/fosspulse/internal/log"
	"github.com/fosspulse/fosspulse/internal/model"
	"github.com/fosspulse/fosspulse/internal/output"
	"github.com/fosspulse/fosspulse/internal/report"
	"github.com/fosspulse/fosspulse/internal/roles"
	"github.com/fosspulse/fosspulse/internal/urlutil"
)

// NewCmdRoles creates the roles command.
func NewCmdRoles(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles <owner>/<repo>",
		Short: "Classify contributor roles from the harvested history",
		Long: `Replays the harvested history of a repository through the role
classifier and prints one profile per contributor. Works entirely
offline; run "fosspulse crawl" first to populate the store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoles(args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "output", "o", "", "Output format (table, json, markdown)")
	cmd.Flags().StringVar(&opts.DataDir, "data-dir", "", "Root directory for harvested data (default: config data_dir)")
	cmd.Flags().StringVar(&opts.Role, "role", "", "Only show contributors holding this role")
	cmd.Flags().IntVar(&opts.MinEvents, "min-count", 0, "Only show contributors with at least this many events")
	cmd.Flags().StringVar(&opts.Export, "export", "", "Write the unfiltered JSON report to a file")
	cmd.Flags().BoolVar(&opts.Summary, "summary", false, "Print aggregate counts instead of per-user profiles")
	cmd.Flags().CountVarP(&opts.Verbosity, "verbose", "v", "Increase verbosity (-v info, -vv debug, -vvv trace)")

	return cmd
}

func runRoles(repoArg string, opts *Options) error {
	log.Initialize(opts.Verbosity, os.Stderr)

	owner, name, err := urlutil.SplitRepoRef(repoArg)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	st, err := openStore(cfg, opts, owner, name)
	if err != nil {
		return err
	}

	snap, err := st.Snapshot()
	if err != nil {
		return fmt.Errorf("failed to read store: %w", err)
	}
	if len(snap.Subjects) == 0 {
		return fmt.Errorf("no harvested history for %s. Run: fosspulse crawl %s", repoArg, repoArg)
	}

	result := roles.New(cfg.GetRoleParams()).Classify(snap)
	if result.Inconsistencies > 0 {
		log.Warn("excluded events referencing unknown subjects", "count", result.Inconsistencies)
	}
	log.Debug("classification finished",
		"profiles", len(result.Profiles), "botEvents", result.BotEvents)

	rep := report.Build(repoArg, result.Profiles, time.Now().UTC())

	// Export always carries the unfiltered report
	if opts.Export != "" {
		if err := rep.Export(opts.Export); err != nil {
			return fmt.Errorf("failed to export report: %w", err)
		}
		log.Info("report exported", "path", opts.Export)
	}

	if opts.Role != "" {
		role, ok := model.ParseRole(opts.Role)
		if !ok {
			return fmt.Errorf("unknown role %q (one of: %s)", opts.Role, roleNames())
		}
		rep = rep.FilterRole(role)
	}
	if opts.MinEvents > 0 {
		rep = rep.FilterMinEvidence(opts.MinEvents)
	}

	format := output.Format(opts.Format)
	if format == "" {
		format = output.Format(cfg.DefaultFormat)
	}
	formatter := output.NewFormatter(format)

	if opts.Summary {
		return formatter.FormatSummary(rep.Summarize(report.NewcomerWindowDays), os.Stdout)
	}
	return formatter.Format(rep, os.Stdout)
}

func roleNames() string {
	names := make([]string, len(model.AllRoles))
	for i, r := range model.AllRoles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}
