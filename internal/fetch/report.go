package fetch

import (
	"context"
	"fmt"

	"basegraph.app/qareport/internal/model"
	"basegraph.app/qareport/internal/report"
	"basegraph.app/qareport/internal/service/issue_tracker"
)

// Fetcher is satisfied by Coordinator and by anything that fronts it.
type Fetcher interface {
	FetchByKeys(ctx context.Context, creds issue_tracker.Credentials, keys []string) (*model.SearchResult, error)
	FetchEpic(ctx context.Context, creds issue_tracker.Credentials, epicKey string) (*model.SearchResult, error)
}

// Selection names the issues a report is built from. EpicKey wins over IssueKeys.
type Selection struct {
	EpicKey       string
	IssueKeys     []string
	ChecklistKeys []string
}

// BuildReport fetches the selected issues and checklist issues and builds the report.
// Empty or partial results are not errors; they come back as warnings.
func BuildReport(ctx context.Context, f Fetcher, engine *report.Engine, creds issue_tracker.Credentials, sel Selection) (*report.Report, []string, error) {
	var (
		issues   *model.SearchResult
		err      error
		warnings []string
	)

	if sel.EpicKey != "" {
		issues, err = f.FetchEpic(ctx, creds, sel.EpicKey)
		if err == nil && len(issues.Issues) == 0 {
			warnings = append(warnings, fmt.Sprintf("epic %s has no child issues", sel.EpicKey))
		}
	} else {
		issues, err = f.FetchByKeys(ctx, creds, sel.IssueKeys)
		if err == nil && len(issues.Issues) < len(sel.IssueKeys) {
			warnings = append(warnings, fmt.Sprintf("%d of %d requested issues were not returned",
				len(sel.IssueKeys)-len(issues.Issues), len(sel.IssueKeys)))
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("fetching issues: %w", err)
	}

	var checklist []model.RawIssue
	if len(sel.ChecklistKeys) > 0 {
		res, err := f.FetchByKeys(ctx, creds, sel.ChecklistKeys)
		if err != nil {
			return nil, nil, fmt.Errorf("fetching checklist issues: %w", err)
		}
		checklist = res.Issues
		if len(checklist) == 0 {
			warnings = append(warnings, "checklist keys were supplied but no checklist issues were returned")
		}
	}

	built, err := engine.Build(issues.Issues, checklist)
	if err != nil {
		return nil, nil, fmt.Errorf("building report: %w", err)
	}
	return built, warnings, nil
}
