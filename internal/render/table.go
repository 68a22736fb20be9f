package render

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"basegraph.app/qareport/internal/model"
	"basegraph.app/qareport/internal/report"
)

const maxSummaryWidth = 60

// Text writes the report as a series of plain-text tables.
func Text(w io.Writer, r Report) error {
	var sections []string

	if r.Title != "" {
		sections = append(sections, "=== "+r.Title+" ===")
	}
	if len(r.Stats.Versions) > 0 {
		sections = append(sections, "Versions: "+strings.Join(r.Stats.Versions, ", "))
	}

	sections = append(sections,
		summaryTable(r.Stats),
		priorityTable(r.Stats),
	)
	if len(r.Stats.CauseOfDetect) > 0 {
		sections = append(sections, causeTable(r.Stats))
	}

	sections = append(sections, issueTable("Defects", r.Buckets.Defects))
	if len(r.Buckets.Improvements) > 0 {
		sections = append(sections, issueTable("Improvements", r.Buckets.Improvements))
	}
	if len(r.Buckets.ExcludedDefects) > 0 {
		sections = append(sections, issueTable("Excluded defects", r.Buckets.ExcludedDefects))
	}
	if len(r.Buckets.Checklist) > 0 {
		sections = append(sections, issueTable("Checklist", r.Buckets.Checklist))
	}
	if reopened := slices.Concat(r.Stats.Reopened.QC, r.Stats.Reopened.Checklist); len(reopened) > 0 {
		sections = append(sections, reopenTable(reopened))
	}

	for _, warning := range r.Warnings {
		sections = append(sections, "warning: "+warning)
	}

	_, err := io.WriteString(w, strings.Join(sections, "\n\n")+"\n")
	return err
}

func newTable(title string) table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle(title)
	tbl.Style().Options.SeparateRows = false
	return tbl
}

func summaryTable(s report.Stats) string {
	tbl := newTable("Summary")
	tbl.AppendHeader(table.Row{"Category", "Issues", "Fixed", "Fix rate", "Reopened"})
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})

	tbl.AppendRows([]table.Row{
		rateRow("Defects", s.FixRates.Defects, s.HasReopenIssue.Defects),
		rateRow("Improvements", s.FixRates.Improvements, s.HasReopenIssue.Improvements),
		{"Excluded defects", s.IssueCount.ExcludedDefects, s.FixedIssueCount.ExcludedDefects, "-", "-"},
	})

	if s.HasCheckListIssue {
		tbl.AppendSeparator()
		tbl.AppendRows([]table.Row{
			rateRow("Checklist defects", s.FixRates.ChecklistDefects, s.HasReopenIssue.ChecklistDefects),
			rateRow("Checklist improvements", s.FixRates.ChecklistImprovements, s.HasReopenIssue.ChecklistImprovements),
			rateRow("Checklist tasks", s.FixRates.ChecklistTasks, s.HasReopenIssue.ChecklistTasks),
		})
		if s.FixRates.TotalDefects != nil && s.FixRates.TotalImprovements != nil {
			tbl.AppendSeparator()
			tbl.AppendRows([]table.Row{
				rateRow("Total defects", *s.FixRates.TotalDefects, s.HasReopenIssue.Defects || s.HasReopenIssue.ChecklistDefects),
				rateRow("Total improvements", *s.FixRates.TotalImprovements, s.HasReopenIssue.Improvements || s.HasReopenIssue.ChecklistImprovements),
			})
		}
	}

	tbl.AppendFooter(table.Row{"New issues", s.NewIssueCount, "", "", ""})
	return tbl.Render()
}

func rateRow(label string, rate report.FixRate, reopened bool) table.Row {
	flag := "no"
	if reopened {
		flag = "yes"
	}
	return table.Row{label, rate.Total, rate.Fixed, fmt.Sprintf("%.2f%%", rate.Percent), flag}
}

func priorityTable(s report.Stats) string {
	tbl := newTable("Defects by priority")
	tbl.AppendHeader(table.Row{"Priority", "Defects", "Fix rate"})
	for _, pc := range s.PriorityCount {
		rate := "-"
		for _, g := range s.FixRateByPriority {
			if g.Group == pc.Priority {
				rate = g.Rate.String()
			}
		}
		tbl.AppendRow(table.Row{pc.Priority, pc.Count, rate})
	}
	if s.UnprioritizedDefects > 0 {
		tbl.AppendRow(table.Row{"(none)", s.UnprioritizedDefects, "-"})
	}
	if n := len(s.FixRateByPriority); n > 0 {
		last := s.FixRateByPriority[n-1]
		tbl.AppendFooter(table.Row{last.Group, last.Rate.Total, last.Rate.String()})
	}
	return tbl.Render()
}

func causeTable(s report.Stats) string {
	tbl := newTable("Cause of detection")
	header := table.Row{"Cause", "Defects"}
	for _, pc := range s.PriorityCount {
		header = append(header, pc.Priority)
	}
	tbl.AppendHeader(header)

	for _, cc := range s.CauseOfDetect {
		row := table.Row{cc.Cause, cc.Count}
		for _, pc := range cc.ByPriority {
			row = append(row, pc.Count)
		}
		tbl.AppendRow(row)
	}
	return tbl.Render()
}

func issueTable(title string, issues []model.IssueRecord) string {
	tbl := newTable(title)
	tbl.AppendHeader(table.Row{"Key", "Type", "Priority", "Status", "Summary", "Assignee"})
	for _, issue := range issues {
		priority := issue.DefectPriority
		if priority == "" {
			priority = issue.Priority
		}
		tbl.AppendRow(table.Row{
			issue.Key,
			issue.IssueType,
			priority,
			issue.Status,
			truncate(issue.Summary, maxSummaryWidth),
			issue.Assignee,
		})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d", len(issues))})
	return tbl.Render()
}

func reopenTable(issues []model.IssueRecord) string {
	tbl := newTable("Reopened issues")
	tbl.AppendHeader(table.Row{"Key", "Type", "Status", "Reopened in"})
	for _, issue := range issues {
		tbl.AppendRow(table.Row{
			issue.Key,
			issue.IssueType,
			issue.Status,
			strings.Join(issue.ReopenVersions, ", "),
		})
	}
	return tbl.Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
