package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fosspulse/fosspulse/config"
)

// New creates the root command with all subcommands registered.
func New() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fosspulse",
		Short: "GitHub collaboration-history harvester and role classifier",
		Long: `A CLI tool that harvests the collaboration history of a GitHub
repository (issues, pull requests, comments, reviews, commits) into a
local event store and classifies contributors into community roles.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadEnv()
		},
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	// Register subcommands
	rootCmd.AddCommand(NewCmdCrawl(&Options{}))
	rootCmd.AddCommand(NewCmdRoles(&Options{}))
	rootCmd.AddCommand(NewCmdStore(&Options{}))
	rootCmd.AddCommand(NewCmdConfig())
	rootCmd.AddCommand(NewCmdVersion())
	rootCmd.AddCommand(NewCmdRateLimit())

	return rootCmd
}
