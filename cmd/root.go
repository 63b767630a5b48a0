// Package cmd defines the CLI commands for the mimicred executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mimicred",
		Short: "A browser-session crawler for keyword-driven note collection",
		Long: `mimicred drives a single Chrome session through keyword searches,
extracts note records with their comments, scores them for quality, and
persists the keepers. Runs are resumable within a calendar day and pace
themselves to look like a person reading.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")
	cmd.AddCommand(newCrawlCmd())
	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
