package report

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"basegraph.app/qareport/internal/model"
)

type named struct {
	Name string `json:"name"`
}

type valued struct {
	Value *string `json:"value"`
}

type person struct {
	DisplayName string `json:"displayName"`
}

type rawParent struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
		Status  *named `json:"status"`
	} `json:"fields"`
}

// Normalizer converts raw tracker issues into canonical records.
type Normalizer struct {
	fields CustomFields
}

func NewNormalizer(vocab Vocabulary) *Normalizer {
	return &Normalizer{fields: vocab.Fields}
}

// Normalize resolves a single raw issue. Only id, key, status and issue type are required;
// every other field falls back to an empty value when absent, null or malformed.
func (n *Normalizer) Normalize(raw model.RawIssue) (model.IssueRecord, error) {
	if raw.ID == "" {
		return model.IssueRecord{}, &MissingRequiredFieldError{Field: "id", IssueID: raw.Key}
	}
	if raw.Key == "" {
		return model.IssueRecord{}, &MissingRequiredFieldError{Field: "key", IssueID: raw.ID}
	}

	status, ok := field[named](raw.Fields, "status")
	if !ok || status.Name == "" {
		return model.IssueRecord{}, &MissingRequiredFieldError{Field: "fields.status.name", IssueID: raw.Key}
	}

	issueType, ok := field[named](raw.Fields, "issuetype")
	if !ok || issueType.Name == "" {
		return model.IssueRecord{}, &MissingRequiredFieldError{Field: "fields.issuetype.name", IssueID: raw.Key}
	}

	summary, _ := field[string](raw.Fields, "summary")
	priority, _ := field[named](raw.Fields, "priority")
	resolution, _ := field[named](raw.Fields, "resolution")
	assignee, _ := field[person](raw.Fields, "assignee")
	reporter, _ := field[person](raw.Fields, "reporter")

	var defectPriority string
	if dp, ok := field[valued](raw.Fields, n.fields.DefectPriority); ok && dp.Value != nil {
		defectPriority = strings.TrimSpace(*dp.Value)
	}

	return model.IssueRecord{
		ID:             raw.ID,
		Key:            raw.Key,
		Summary:        summary,
		Parent:         parentOf(raw.Fields),
		Status:         status.Name,
		Priority:       priority.Name,
		DefectPriority: defectPriority,
		IssueType:      issueType.Name,
		Versions:       names(raw.Fields, "versions"),
		FixVersions:    names(raw.Fields, "fixVersions"),
		ReopenVersions: names(raw.Fields, n.fields.ReopenVersions),
		CauseOfDetect:  causes(raw.Fields, n.fields.CauseOfDetect),
		Components:     names(raw.Fields, "components"),
		Assignee:       assignee.DisplayName,
		Reporter:       reporter.DisplayName,
		Resolution:     resolution.Name,
	}, nil
}

// NormalizeAll normalizes issues in order. Issues repeating an id already seen are skipped,
// so the result never holds two records with the same id.
func (n *Normalizer) NormalizeAll(raws []model.RawIssue) ([]model.IssueRecord, error) {
	records := make([]model.IssueRecord, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))

	for i, raw := range raws {
		record, err := n.Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("issue %d of %d: %w", i+1, len(raws), err)
		}
		if _, dup := seen[record.ID]; dup {
			continue
		}
		seen[record.ID] = struct{}{}
		records = append(records, record)
	}

	return records, nil
}

// field decodes fields[name] into T. Missing, null and mistyped values report false.
func field[T any](fields map[string]json.RawMessage, name string) (T, bool) {
	var out T
	if name == "" {
		return out, false
	}
	raw, ok := fields[name]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		var zero T
		return zero, false
	}
	return out, true
}

func parentOf(fields map[string]json.RawMessage) model.Parent {
	p, ok := field[rawParent](fields, "parent")
	if !ok || p.Key == "" {
		return model.NoParent()
	}

	ref := model.ParentRef{Key: p.Key, Summary: p.Fields.Summary}
	if p.Fields.Status != nil {
		ref.Status = p.Fields.Status.Name
	}
	return model.SomeParent(ref)
}

func names(fields map[string]json.RawMessage, name string) []string {
	items, _ := field[[]*named](fields, name)

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil || item.Name == "" {
			continue
		}
		out = append(out, item.Name)
	}
	return out
}

// causes extracts the trimmed cause-of-detect tags, dropping null entries and repeats.
func causes(fields map[string]json.RawMessage, name string) []string {
	items, _ := field[[]*valued](fields, name)

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil || item.Value == nil {
			continue
		}
		v := strings.TrimSpace(*item.Value)
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}
