package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"basegraph.app/qareport/internal/fetch"
	"basegraph.app/qareport/internal/render"
	"basegraph.app/qareport/internal/report"
	"basegraph.app/qareport/internal/service/issue_tracker"
)

type reportOptions struct {
	trackerOptions

	EpicKey       string
	IssueKeys     []string
	ChecklistKeys []string
	Format        render.Format
	Out           string
}

// NewReportCommand creates the report subcommand.
func NewReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build a QA report for an epic or a list of issue keys",
		Example: `  qareport report --epic QA-100
  qareport report --issues "QA-1, QA-2" --checklist QA-50 --format html --out report.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := newViper(cmd)
			if err != nil {
				return err
			}
			opts, err := loadReportOptions(v)
			if err != nil {
				return err
			}
			setupLogging(opts.Verbose)

			out, closeOut, err := openOutput(cmd.OutOrStdout(), opts.Out)
			if err != nil {
				return err
			}
			defer closeOut()

			return runReport(cmd.Context(), opts, out)
		},
	}

	addTrackerFlags(cmd)
	flags := cmd.Flags()
	flags.String("epic", "", "epic key whose child issues form the report")
	flags.String("issues", "", "comma separated issue keys")
	flags.String("checklist", "", "comma separated checklist issue keys")
	flags.StringP("format", "f", string(render.FormatTable), "output format: table, json or html")
	flags.StringP("out", "o", "", "output file (default stdout)")

	return cmd
}

func loadReportOptions(v *viper.Viper) (reportOptions, error) {
	tracker, err := loadTrackerOptions(v)
	if err != nil {
		return reportOptions{}, err
	}

	format, err := render.ParseFormat(v.GetString("format"))
	if err != nil {
		return reportOptions{}, err
	}

	opts := reportOptions{
		trackerOptions: tracker,
		EpicKey:        v.GetString("epic"),
		IssueKeys:      report.ParseKeys(v.GetString("issues")),
		ChecklistKeys:  report.ParseKeys(v.GetString("checklist")),
		Format:         format,
		Out:            v.GetString("out"),
	}

	switch {
	case opts.EpicKey == "" && len(opts.IssueKeys) == 0:
		return reportOptions{}, ErrMissingSource
	case opts.EpicKey != "" && len(opts.IssueKeys) > 0:
		return reportOptions{}, ErrConflictingSource
	}
	return opts, nil
}

func runReport(ctx context.Context, opts reportOptions, w io.Writer) error {
	vocab, err := report.LoadVocabulary(opts.Vocabulary)
	if err != nil {
		return err
	}

	tracker, err := issue_tracker.NewJiraService(opts.trackerConfig(), nil)
	if err != nil {
		return err
	}
	coordinator := fetch.NewCoordinator(tracker)

	title := fmt.Sprintf("QA Report: %d issues", len(opts.IssueKeys))
	if opts.EpicKey != "" {
		title = "QA Report: " + opts.EpicKey
	}

	built, warnings, err := fetch.BuildReport(ctx, coordinator, report.NewEngine(vocab), opts.credentials(), fetch.Selection{
		EpicKey:       opts.EpicKey,
		IssueKeys:     opts.IssueKeys,
		ChecklistKeys: opts.ChecklistKeys,
	})
	if err != nil {
		return err
	}

	slog.DebugContext(ctx, "report built",
		"defects", len(built.Buckets().Defects),
		"improvements", len(built.Buckets().Improvements),
		"warnings", len(warnings))

	return render.Write(w, opts.Format, render.Report{
		Title:    title,
		Buckets:  built.Buckets(),
		Stats:    built.Stats(),
		Warnings: warnings,
	})
}

func openOutput(stdout io.Writer, path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
