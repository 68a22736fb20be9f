package report

import (
	"fmt"
	"slices"
	"strings"

	"basegraph.app/qareport/internal/model"
)

// Engine wires the normalizer, classifier and aggregator for one vocabulary.
type Engine struct {
	vocab      Vocabulary
	normalizer *Normalizer
	classifier *Classifier
	aggregator *Aggregator
}

func NewEngine(vocab Vocabulary) *Engine {
	return &Engine{
		vocab:      vocab,
		normalizer: NewNormalizer(vocab),
		classifier: NewClassifier(vocab),
		aggregator: NewAggregator(vocab),
	}
}

func (e *Engine) Vocabulary() Vocabulary {
	return e.vocab
}

func (e *Engine) Normalizer() *Normalizer {
	return e.normalizer
}

// Build normalizes and classifies raw issues and returns a report with computed stats.
func (e *Engine) Build(issues, checklist []model.RawIssue) (*Report, error) {
	records, err := e.normalizer.NormalizeAll(issues)
	if err != nil {
		return nil, fmt.Errorf("normalizing issues: %w", err)
	}

	checklistRecords, err := e.normalizer.NormalizeAll(checklist)
	if err != nil {
		return nil, fmt.Errorf("normalizing checklist issues: %w", err)
	}

	return e.FromRecords(records, checklistRecords), nil
}

func (e *Engine) FromRecords(issues, checklist []model.IssueRecord) *Report {
	return NewReport(e.classifier.Classify(issues, checklist), e.aggregator)
}

// Report holds classified buckets and their statistics. The buckets only change through
// RemoveIssue, which recomputes every statistic, so Stats is always current.
// A Report is not safe for concurrent use.
type Report struct {
	buckets    Buckets
	aggregator *Aggregator
	stats      Stats
}

func NewReport(buckets Buckets, aggregator *Aggregator) *Report {
	r := &Report{buckets: buckets.Clone(), aggregator: aggregator}
	r.recompute()
	return r
}

// Buckets returns a copy of the current buckets.
func (r *Report) Buckets() Buckets {
	return r.buckets.Clone()
}

func (r *Report) Stats() Stats {
	return r.stats
}

// RemoveIssue removes the issue with the given id from Defects or Improvements and
// recomputes every statistic.
func (r *Report) RemoveIssue(id string) (model.IssueRecord, error) {
	byID := func(rec model.IssueRecord) bool { return rec.ID == id }

	if i := slices.IndexFunc(r.buckets.Defects, byID); i >= 0 {
		removed := r.buckets.Defects[i]
		r.buckets.Defects = slices.Delete(slices.Clone(r.buckets.Defects), i, i+1)
		r.recompute()
		return removed, nil
	}

	if i := slices.IndexFunc(r.buckets.Improvements, byID); i >= 0 {
		removed := r.buckets.Improvements[i]
		r.buckets.Improvements = slices.Delete(slices.Clone(r.buckets.Improvements), i, i+1)
		r.recompute()
		return removed, nil
	}

	return model.IssueRecord{}, fmt.Errorf("%w: %s", ErrIssueNotFound, id)
}

func (r *Report) recompute() {
	r.stats = r.aggregator.Aggregate(r.buckets)
}

// ParseKeys splits a comma separated key list, trimming blanks and dropping empty entries.
func ParseKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
