package report

import (
	"regexp"
	"slices"

	"basegraph.app/qareport/internal/model"
)

// Buckets is the classified view of one fetch. A new issue lands in at most one of
// Defects, Improvements and ExcludedDefects; Checklist comes from a separate key list.
type Buckets struct {
	Defects         []model.IssueRecord `json:"defects"`
	Improvements    []model.IssueRecord `json:"improvements"`
	ExcludedDefects []model.IssueRecord `json:"excludedDefects"`
	Checklist       []model.IssueRecord `json:"checklist"`
}

// Clone returns a deep enough copy that slice mutations on the result never reach b.
func (b Buckets) Clone() Buckets {
	return Buckets{
		Defects:         slices.Clone(nonNil(b.Defects)),
		Improvements:    slices.Clone(nonNil(b.Improvements)),
		ExcludedDefects: slices.Clone(nonNil(b.ExcludedDefects)),
		Checklist:       slices.Clone(nonNil(b.Checklist)),
	}
}

type Classifier struct {
	vocab    Vocabulary
	excluded map[string]struct{}
}

func NewClassifier(vocab Vocabulary) *Classifier {
	excluded := make(map[string]struct{}, len(vocab.ExcludedCauses))
	for _, tag := range vocab.ExcludedCauses {
		excluded[tag] = struct{}{}
	}
	return &Classifier{vocab: vocab, excluded: excluded}
}

// Classify partitions issues into buckets and orders defects by priority then status.
// checklist records only get their issue type marker stripped.
func (c *Classifier) Classify(issues, checklist []model.IssueRecord) Buckets {
	b := Buckets{
		Defects:         []model.IssueRecord{},
		Improvements:    []model.IssueRecord{},
		ExcludedDefects: []model.IssueRecord{},
		Checklist:       make([]model.IssueRecord, 0, len(checklist)),
	}

	for _, issue := range issues {
		switch {
		case c.vocab.IsImprovement(issue.IssueType):
			b.Improvements = append(b.Improvements, issue)
		case c.vocab.IsDefect(issue.IssueType):
			if c.IsExcluded(issue) {
				b.ExcludedDefects = append(b.ExcludedDefects, issue)
			} else {
				b.Defects = append(b.Defects, issue)
			}
		}
	}

	c.SortDefects(b.Defects)

	for _, issue := range checklist {
		issue.IssueType = StripTypeMarker(issue.IssueType)
		b.Checklist = append(b.Checklist, issue)
	}

	return b
}

// IsExcluded reports whether any cause-of-detect tag is in the exclusion set.
func (c *Classifier) IsExcluded(issue model.IssueRecord) bool {
	for _, tag := range issue.CauseOfDetect {
		if _, ok := c.excluded[tag]; ok {
			return true
		}
	}
	return false
}

// SortDefects orders defects in place: enumerated priority order first, unknown priorities
// last, and within one priority unfixed issues before fixed ones. The sort is stable.
func (c *Classifier) SortDefects(defects []model.IssueRecord) {
	slices.SortStableFunc(defects, func(a, b model.IssueRecord) int {
		if d := c.vocab.priorityRank(effectivePriority(a)) - c.vocab.priorityRank(effectivePriority(b)); d != 0 {
			return d
		}
		return c.statusGroup(a) - c.statusGroup(b)
	})
}

func (c *Classifier) statusGroup(issue model.IssueRecord) int {
	if c.vocab.IsFixed(issue.Status) {
		return 1
	}
	return 0
}

// effectivePriority is the defect-specific priority, or the generic one when the defect
// priority field is empty.
func effectivePriority(issue model.IssueRecord) string {
	if issue.DefectPriority != "" {
		return issue.DefectPriority
	}
	return issue.Priority
}

var typeMarker = regexp.MustCompile(`^\s*\([^)]*\)\s*`)

// StripTypeMarker removes a leading parenthetical marker such as "(subtask) " from an
// issue type name.
func StripTypeMarker(issueType string) string {
	return typeMarker.ReplaceAllString(issueType, "")
}

func nonNil(records []model.IssueRecord) []model.IssueRecord {
	if records == nil {
		return []model.IssueRecord{}
	}
	return records
}
