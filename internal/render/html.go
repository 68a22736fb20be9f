package render

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"basegraph.app/qareport/internal/report"
)

const (
	chartWidth  = "900px"
	chartHeight = "420px"
	causeStack  = "priority"
	pieRadius   = "60%"
)

// HTML writes a standalone page with the report charts.
func HTML(w io.Writer, r Report) error {
	title := r.Title
	if title == "" {
		title = "QA Report"
	}

	page := components.NewPage()
	page.SetPageTitle(title)
	page.AddCharts(
		priorityBar(r.Stats),
		fixRateBar(r.Stats),
		causeBar(r.Stats),
		causePie(r.Stats),
	)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("rendering chart page: %w", err)
	}
	return nil
}

func initOpts() opts.Initialization {
	return opts.Initialization{Width: chartWidth, Height: chartHeight}
}

func priorityBar(s report.Stats) *charts.Bar {
	labels := make([]string, len(s.PriorityCount))
	data := make([]opts.BarData, len(s.PriorityCount))
	for i, pc := range s.PriorityCount {
		labels[i] = pc.Priority
		data[i] = opts.BarData{Value: pc.Count}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts()),
		charts.WithTitleOpts(opts.Title{
			Title:    "Defects by priority",
			Subtitle: fmt.Sprintf("%d defects", s.IssueCount.Defects),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)
	bar.SetXAxis(labels).
		AddSeries("Defects", data, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))
	return bar
}

func fixRateBar(s report.Stats) *charts.Bar {
	labels := make([]string, len(s.FixRateByPriority))
	total := make([]opts.BarData, len(s.FixRateByPriority))
	fixed := make([]opts.BarData, len(s.FixRateByPriority))
	for i, g := range s.FixRateByPriority {
		labels[i] = g.Group
		total[i] = opts.BarData{Value: g.Rate.Total}
		fixed[i] = opts.BarData{Value: g.Rate.Fixed, Name: fmt.Sprintf("%.2f%%", g.Rate.Percent)}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts()),
		charts.WithTitleOpts(opts.Title{
			Title:    "Fix rate by priority",
			Subtitle: "Defects: " + s.FixRates.Defects.String(),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "8%"}),
	)
	bar.SetXAxis(labels).
		AddSeries("Total", total).
		AddSeries("Fixed", fixed, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top", Formatter: "{b}"}))
	return bar
}

// causeBar stacks the cause-of-detection counts by defect priority.
func causeBar(s report.Stats) *charts.Bar {
	labels := make([]string, len(s.CauseOfDetect))
	for i, cc := range s.CauseOfDetect {
		labels[i] = cc.Cause
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts()),
		charts.WithTitleOpts(opts.Title{Title: "Cause of detection"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "8%"}),
	)
	bar.SetXAxis(labels)

	for i, pc := range s.PriorityCount {
		data := make([]opts.BarData, len(s.CauseOfDetect))
		for j, cc := range s.CauseOfDetect {
			data[j] = opts.BarData{Value: cc.ByPriority[i].Count}
		}
		bar.AddSeries(pc.Priority, data, charts.WithBarChartOpts(opts.BarChart{Stack: causeStack}))
	}
	return bar
}

func causePie(s report.Stats) *charts.Pie {
	data := make([]opts.PieData, len(s.CauseOfDetect))
	for i, cc := range s.CauseOfDetect {
		data[i] = opts.PieData{Name: cc.Cause, Value: cc.Count}
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts()),
		charts.WithTitleOpts(opts.Title{Title: "Cause of detection share"}),
	)
	pie.AddSeries("Cause", data).
		SetSeriesOptions(
			charts.WithPieChartOpts(opts.PieChart{Radius: pieRadius}),
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {c}"}),
		)
	return pie
}
