package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"basegraph.app/qareport/internal/service/issue_tracker"
)

// NewAuthCommand creates the auth subcommand, which checks credentials against the tracker.
func NewAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Check tracker credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := newViper(cmd)
			if err != nil {
				return err
			}
			opts, err := loadTrackerOptions(v)
			if err != nil {
				return err
			}
			setupLogging(opts.Verbose)

			return runAuth(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	addTrackerFlags(cmd)
	return cmd
}

func runAuth(ctx context.Context, opts trackerOptions, w io.Writer) error {
	tracker, err := issue_tracker.NewJiraService(opts.trackerConfig(), nil)
	if err != nil {
		return err
	}

	user, err := tracker.Myself(ctx, opts.credentials())
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	_, err = fmt.Fprintf(w, "authenticated as %s <%s> (account %s)\n", user.DisplayName, user.EmailAddress, user.AccountID)
	return err
}
