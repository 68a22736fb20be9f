package report

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Vocabulary names the tracker values the classifier and aggregator key on. Tracker
// instances localise these names, so they are data rather than constants.
type Vocabulary struct {
	IssueTypes     IssueTypeNames `yaml:"issue_types"`
	FixedStatuses  []string       `yaml:"fixed_statuses"`
	Priorities     []string       `yaml:"priorities"`
	ExcludedCauses []string       `yaml:"excluded_causes"`
	Fields         CustomFields   `yaml:"fields"`
}

type IssueTypeNames struct {
	Defect      string `yaml:"defect"`
	Improvement string `yaml:"improvement"`
	NewFeature  string `yaml:"new_feature"`
	Task        string `yaml:"task"`
	Subtask     string `yaml:"subtask"`
}

// CustomFields holds the tracker field ids of the custom fields used for classification.
type CustomFields struct {
	DefectPriority string `yaml:"defect_priority"`
	CauseOfDetect  string `yaml:"cause_of_detect"`
	ReopenVersions string `yaml:"reopen_versions"`
}

func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		IssueTypes: IssueTypeNames{
			Defect:      "defect",
			Improvement: "improvement",
			NewFeature:  "new-feature",
			Task:        "task",
			Subtask:     "subtask",
		},
		FixedStatuses:  []string{"closed", "resolved"},
		Priorities:     []string{"critical", "blocker", "major", "normal", "minor"},
		ExcludedCauses: []string{"not-an-issue", "test-error", "not-reproducible"},
		Fields: CustomFields{
			DefectPriority: "customfield_10044",
			CauseOfDetect:  "customfield_10042",
			ReopenVersions: "customfield_10104",
		},
	}
}

// LoadVocabulary reads a YAML vocabulary file. Keys missing from the file keep their
// default values. An empty path returns the defaults.
func LoadVocabulary(path string) (Vocabulary, error) {
	vocab := DefaultVocabulary()
	if path == "" {
		return vocab, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("reading vocabulary file: %w", err)
	}

	if err := yaml.Unmarshal(data, &vocab); err != nil {
		return Vocabulary{}, fmt.Errorf("parsing vocabulary file %s: %w", path, err)
	}

	if err := vocab.Validate(); err != nil {
		return Vocabulary{}, fmt.Errorf("invalid vocabulary file %s: %w", path, err)
	}

	return vocab, nil
}

func (v Vocabulary) Validate() error {
	if v.IssueTypes.Defect == "" {
		return fmt.Errorf("issue_types.defect is required")
	}
	if len(v.Priorities) == 0 {
		return fmt.Errorf("at least one priority is required")
	}
	if len(v.FixedStatuses) == 0 {
		return fmt.Errorf("at least one fixed status is required")
	}
	for i, p := range v.Priorities {
		if slices.Contains(v.Priorities[:i], p) {
			return fmt.Errorf("duplicate priority %q", p)
		}
	}
	return nil
}

func (v Vocabulary) IsDefect(issueType string) bool {
	return issueType == v.IssueTypes.Defect
}

func (v Vocabulary) IsImprovement(issueType string) bool {
	return issueType == v.IssueTypes.Improvement || issueType == v.IssueTypes.NewFeature
}

func (v Vocabulary) IsTask(issueType string) bool {
	return issueType == v.IssueTypes.Task || issueType == v.IssueTypes.Subtask
}

func (v Vocabulary) IsFixed(status string) bool {
	return slices.Contains(v.FixedStatuses, status)
}

// priorityRank returns the position of p in the priority order; unknown priorities rank
// after every enumerated one.
func (v Vocabulary) priorityRank(p string) int {
	if i := slices.Index(v.Priorities, p); i >= 0 {
		return i
	}
	return len(v.Priorities)
}
