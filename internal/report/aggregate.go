package report

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"basegraph.app/qareport/internal/model"
)

// FixRate is fixed/total as a percentage rounded to two decimals. An empty bucket has a
// rate of 0.
type FixRate struct {
	Fixed   int     `json:"fixed"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

func NewFixRate(fixed, total int) FixRate {
	r := FixRate{Fixed: fixed, Total: total}
	if total > 0 {
		r.Percent = math.Round(float64(fixed)/float64(total)*100*100) / 100
	}
	return r
}

// Plus combines two rates by summing counts before dividing.
func (r FixRate) Plus(o FixRate) FixRate {
	return NewFixRate(r.Fixed+o.Fixed, r.Total+o.Total)
}

func (r FixRate) String() string {
	return fmt.Sprintf("%d / %d = %.2f%%", r.Fixed, r.Total, r.Percent)
}

type ChecklistCounts struct {
	Defects      int `json:"defects"`
	Improvements int `json:"improvements"`
	Tasks        int `json:"tasks"`
}

type Counts struct {
	Defects         int             `json:"defects"`
	Improvements    int             `json:"improvements"`
	ExcludedDefects int             `json:"excludedDefects"`
	Checklist       ChecklistCounts `json:"checklist"`
}

type FixRates struct {
	Defects               FixRate `json:"defects"`
	Improvements          FixRate `json:"improvements"`
	ChecklistDefects      FixRate `json:"checklistDefects"`
	ChecklistImprovements FixRate `json:"checklistImprovements"`
	ChecklistTasks        FixRate `json:"checklistTasks"`

	// Combined QC + checklist rates; nil unless the checklist has issues.
	TotalDefects      *FixRate `json:"totalDefects,omitempty"`
	TotalImprovements *FixRate `json:"totalImprovements,omitempty"`
}

type ReopenFlags struct {
	Defects               bool `json:"defects"`
	Improvements          bool `json:"improvements"`
	ChecklistDefects      bool `json:"checklistDefects"`
	ChecklistImprovements bool `json:"checklistImprovements"`
	ChecklistTasks        bool `json:"checklistTasks"`
}

func (f ReopenFlags) QC() bool {
	return f.Defects || f.Improvements
}

func (f ReopenFlags) Checklist() bool {
	return f.ChecklistDefects || f.ChecklistImprovements || f.ChecklistTasks
}

type Reopened struct {
	DefectKeys      []string            `json:"defectKeys"`
	ImprovementKeys []string            `json:"improvementKeys"`
	QC              []model.IssueRecord `json:"qc"`
	Checklist       []model.IssueRecord `json:"checklist"`
}

type PriorityCount struct {
	Priority string `json:"priority"`
	Count    int    `json:"count"`
}

// PriorityHistogram lists every enumerated priority in order, including zero counts.
type PriorityHistogram []PriorityCount

func (h PriorityHistogram) Get(priority string) int {
	for _, pc := range h {
		if pc.Priority == priority {
			return pc.Count
		}
	}
	return 0
}

type CauseCount struct {
	Cause      string            `json:"cause"`
	Count      int               `json:"count"`
	ByPriority PriorityHistogram `json:"byPriority"`
}

type GroupFixRate struct {
	Group string  `json:"group"`
	Rate  FixRate `json:"rate"`
}

// Stats are the derived, read-only statistics of a set of buckets. UnprioritizedDefects
// counts the defects left out of PriorityCount and FixRateByPriority because their defect
// priority is empty or not enumerated.
type Stats struct {
	Versions             []string          `json:"versions"`
	IssueCount           Counts            `json:"issueCount"`
	FixedIssueCount      Counts            `json:"fixedIssueCount"`
	NewIssueCount        int               `json:"newIssueCount"`
	FixRates             FixRates          `json:"fixRates"`
	PriorityCount        PriorityHistogram `json:"priorityCount"`
	UnprioritizedDefects int               `json:"unprioritizedDefects"`
	HasReopenIssue       ReopenFlags       `json:"hasReopenIssue"`
	HasCheckListIssue    bool              `json:"hasCheckListIssue"`
	Reopened             Reopened          `json:"reopened"`
	CauseOfDetect        []CauseCount      `json:"causeOfDetect"`
	FixRateByPriority    []GroupFixRate    `json:"fixRateByPriority"`
}

type Aggregator struct {
	vocab Vocabulary
}

func NewAggregator(vocab Vocabulary) *Aggregator {
	return &Aggregator{vocab: vocab}
}

// Aggregate computes every statistic from scratch. It never fails and never divides by
// zero.
func (a *Aggregator) Aggregate(b Buckets) Stats {
	v := a.vocab

	clDefects := filter(b.Checklist, func(r model.IssueRecord) bool { return v.IsDefect(r.IssueType) })
	clImprovements := filter(b.Checklist, func(r model.IssueRecord) bool { return v.IsImprovement(r.IssueType) })
	clTasks := filter(b.Checklist, func(r model.IssueRecord) bool { return v.IsTask(r.IssueType) })

	issueCount := Counts{
		Defects:         len(b.Defects),
		Improvements:    len(b.Improvements),
		ExcludedDefects: len(b.ExcludedDefects),
		Checklist: ChecklistCounts{
			Defects:      len(clDefects),
			Improvements: len(clImprovements),
			Tasks:        len(clTasks),
		},
	}
	fixedCount := Counts{
		Defects:         a.countFixed(b.Defects),
		Improvements:    a.countFixed(b.Improvements),
		ExcludedDefects: a.countFixed(b.ExcludedDefects),
		Checklist: ChecklistCounts{
			Defects:      a.countFixed(clDefects),
			Improvements: a.countFixed(clImprovements),
			Tasks:        a.countFixed(clTasks),
		},
	}

	hasChecklist := len(b.Checklist) > 0
	unprioritized := filter(b.Defects, func(r model.IssueRecord) bool {
		return !slices.Contains(v.Priorities, r.DefectPriority)
	})

	rates := FixRates{
		Defects:               NewFixRate(fixedCount.Defects, issueCount.Defects),
		Improvements:          NewFixRate(fixedCount.Improvements, issueCount.Improvements),
		ChecklistDefects:      NewFixRate(fixedCount.Checklist.Defects, issueCount.Checklist.Defects),
		ChecklistImprovements: NewFixRate(fixedCount.Checklist.Improvements, issueCount.Checklist.Improvements),
		ChecklistTasks:        NewFixRate(fixedCount.Checklist.Tasks, issueCount.Checklist.Tasks),
	}
	if hasChecklist {
		totalDefects := rates.Defects.Plus(rates.ChecklistDefects)
		totalImprovements := rates.Improvements.Plus(rates.ChecklistImprovements)
		rates.TotalDefects = &totalDefects
		rates.TotalImprovements = &totalImprovements
	}

	return Stats{
		Versions:        versions(b.Defects),
		IssueCount:      issueCount,
		FixedIssueCount: fixedCount,
		NewIssueCount:   len(b.Defects) + len(b.Improvements),
		FixRates:        rates,
		PriorityCount:   a.priorityHistogram(b.Defects),
		HasReopenIssue: ReopenFlags{
			Defects:               anyReopened(b.Defects),
			Improvements:          anyReopened(b.Improvements),
			ChecklistDefects:      anyReopened(clDefects),
			ChecklistImprovements: anyReopened(clImprovements),
			ChecklistTasks:        anyReopened(clTasks),
		},
		UnprioritizedDefects: len(unprioritized),
		HasCheckListIssue:    hasChecklist,
		Reopened:             reopened(b),
		CauseOfDetect:        a.causeHistogram(b.Defects),
		FixRateByPriority:    a.fixRateByPriority(b),
	}
}

func (a *Aggregator) countFixed(records []model.IssueRecord) int {
	n := 0
	for _, r := range records {
		if a.vocab.IsFixed(r.Status) {
			n++
		}
	}
	return n
}

func (a *Aggregator) priorityHistogram(defects []model.IssueRecord) PriorityHistogram {
	h := make(PriorityHistogram, len(a.vocab.Priorities))
	for i, p := range a.vocab.Priorities {
		h[i] = PriorityCount{Priority: p}
	}
	for _, d := range defects {
		if i := slices.Index(a.vocab.Priorities, d.DefectPriority); i >= 0 {
			h[i].Count++
		}
	}
	return h
}

// causeHistogram counts defects per cause-of-detect tag in first-seen order, broken down
// by defect priority.
func (a *Aggregator) causeHistogram(defects []model.IssueRecord) []CauseCount {
	var out []CauseCount
	index := make(map[string]int)

	for _, d := range defects {
		for _, cause := range d.CauseOfDetect {
			i, ok := index[cause]
			if !ok {
				i = len(out)
				index[cause] = i
				out = append(out, CauseCount{Cause: cause, ByPriority: a.priorityHistogram(nil)})
			}
			out[i].Count++
			if p := slices.Index(a.vocab.Priorities, d.DefectPriority); p >= 0 {
				out[i].ByPriority[p].Count++
			}
		}
	}

	if out == nil {
		return []CauseCount{}
	}
	return out
}

func (a *Aggregator) fixRateByPriority(b Buckets) []GroupFixRate {
	out := make([]GroupFixRate, 0, len(a.vocab.Priorities)+1)
	for _, p := range a.vocab.Priorities {
		group := filter(b.Defects, func(r model.IssueRecord) bool { return r.DefectPriority == p })
		out = append(out, GroupFixRate{Group: p, Rate: NewFixRate(a.countFixed(group), len(group))})
	}

	label := strings.Join(nonEmpty(a.vocab.IssueTypes.Improvement, a.vocab.IssueTypes.NewFeature), ", ")
	out = append(out, GroupFixRate{
		Group: label,
		Rate:  NewFixRate(a.countFixed(b.Improvements), len(b.Improvements)),
	})
	return out
}

func versions(defects []model.IssueRecord) []string {
	out := []string{}
	for _, d := range defects {
		for _, v := range d.Versions {
			if !slices.Contains(out, v) {
				out = append(out, v)
			}
		}
	}
	return out
}

func anyReopened(records []model.IssueRecord) bool {
	return slices.ContainsFunc(records, model.IssueRecord.IsReopened)
}

func reopened(b Buckets) Reopened {
	r := Reopened{
		DefectKeys:      []string{},
		ImprovementKeys: []string{},
		QC:              []model.IssueRecord{},
		Checklist:       filter(b.Checklist, model.IssueRecord.IsReopened),
	}

	seen := make(map[string]struct{})
	for _, d := range filter(b.Defects, model.IssueRecord.IsReopened) {
		r.DefectKeys = append(r.DefectKeys, d.Key)
		seen[d.ID] = struct{}{}
		r.QC = append(r.QC, d)
	}
	for _, i := range filter(b.Improvements, model.IssueRecord.IsReopened) {
		r.ImprovementKeys = append(r.ImprovementKeys, i.Key)
		if _, dup := seen[i.ID]; dup {
			continue
		}
		r.QC = append(r.QC, i)
	}
	return r
}

func filter(records []model.IssueRecord, keep func(model.IssueRecord) bool) []model.IssueRecord {
	out := []model.IssueRecord{}
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
