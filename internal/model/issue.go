package model

import "encoding/json"

// RawIssue is an issue as returned by the tracker. Fields stays undecoded so that the
// normalizer can resolve configurable custom field ids and tolerate missing or null values.
type RawIssue struct {
	ID     string                     `json:"id"`
	Key    string                     `json:"key"`
	Self   string                     `json:"self,omitempty"`
	Fields map[string]json.RawMessage `json:"fields"`
}

// SearchPage is one upstream search or epic listing response.
type SearchPage struct {
	Issues     []RawIssue `json:"issues"`
	Total      *int       `json:"total,omitempty"`
	StartAt    int        `json:"startAt"`
	MaxResults int        `json:"maxResults"`
	IsLast     *bool      `json:"isLast,omitempty"`
}

// ReportedTotal is the total the tracker claims for the page, or the number of returned
// issues when the endpoint does not report one (search/jql omits it).
func (p SearchPage) ReportedTotal() int {
	if p.Total != nil {
		return *p.Total
	}
	return len(p.Issues)
}

// SearchResult is the merged result of several pages.
type SearchResult struct {
	Issues []RawIssue `json:"issues"`
	Total  int        `json:"total"`
}

type TrackerUser struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

type ParentRef struct {
	Key     string `json:"key"`
	Summary string `json:"summary"`
	Status  string `json:"status"`
}

// Parent is an optional weak reference to the parent issue.
type Parent struct {
	ref   ParentRef
	valid bool
}

func SomeParent(ref ParentRef) Parent {
	return Parent{ref: ref, valid: true}
}

func NoParent() Parent {
	return Parent{}
}

func (p Parent) Get() (ParentRef, bool) {
	return p.ref, p.valid
}

func (p Parent) IsSome() bool {
	return p.valid
}

func (p Parent) MarshalJSON() ([]byte, error) {
	if !p.valid {
		return []byte("null"), nil
	}
	return json.Marshal(p.ref)
}

func (p *Parent) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = NoParent()
		return nil
	}
	var ref ParentRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return err
	}
	*p = SomeParent(ref)
	return nil
}

// IssueRecord is the canonical, fully resolved issue. Every field holds a concrete value;
// absent upstream data is represented by empty strings and empty (non-nil) slices.
type IssueRecord struct {
	ID             string   `json:"id"`
	Key            string   `json:"key"`
	Summary        string   `json:"summary"`
	Parent         Parent   `json:"parent"`
	Status         string   `json:"status"`
	Priority       string   `json:"priority"`
	DefectPriority string   `json:"defectPriority"`
	IssueType      string   `json:"issueType"`
	Versions       []string `json:"versions"`
	FixVersions    []string `json:"fixVersions"`
	ReopenVersions []string `json:"reopenVersions"`
	CauseOfDetect  []string `json:"causeOfDetect"`
	Components     []string `json:"components"`
	Assignee       string   `json:"assignee"`
	Reporter       string   `json:"reporter"`
	Resolution     string   `json:"resolution"`
}

func (r IssueRecord) IsReopened() bool {
	return len(r.ReopenVersions) > 0
}
