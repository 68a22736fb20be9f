// Package main provides the qareport CLI, which builds a QA report straight from the tracker.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"basegraph.app/qareport/cmd/qareport/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "qareport",
		Short: "Build QA test reports from tracker issues",
		Long: `qareport fetches issues from a Jira-compatible tracker, classifies them and
prints fix rates, reopen counts and priority distributions.

Commands:
  report    Build a report for an epic or a list of issue keys
  auth      Check tracker credentials`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewReportCommand())
	rootCmd.AddCommand(commands.NewAuthCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
