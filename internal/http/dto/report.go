package dto

import (
	"slices"
	"strings"
	"time"

	"basegraph.app/qareport/common/id"
	"basegraph.app/qareport/internal/model"
	"basegraph.app/qareport/internal/report"
	"basegraph.app/qareport/internal/service"
)

// CreateReportRequest accepts keys either as arrays or as comma separated text, or both.
type CreateReportRequest struct {
	Source           string   `json:"source" binding:"required,oneof=epic issues"`
	EpicKey          string   `json:"epicKey,omitempty"`
	IssueKeys        []string `json:"issueKeys,omitempty"`
	IssueKeyList     string   `json:"issueKeyList,omitempty"`
	ChecklistKeys    []string `json:"checklistKeys,omitempty"`
	ChecklistKeyList string   `json:"checklistKeyList,omitempty"`
}

func (r CreateReportRequest) ToServiceRequest() service.ReportRequest {
	return service.ReportRequest{
		Source:        service.ReportSource(r.Source),
		EpicKey:       r.EpicKey,
		IssueKeys:     mergeKeys(r.IssueKeys, r.IssueKeyList),
		ChecklistKeys: mergeKeys(r.ChecklistKeys, r.ChecklistKeyList),
	}
}

func mergeKeys(keys []string, list string) []string {
	var out []string
	for _, k := range slices.Concat(report.ParseKeys(strings.Join(keys, ",")), report.ParseKeys(list)) {
		if !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}

type IssueResponse struct {
	ID             string           `json:"id"`
	Key            string           `json:"key"`
	Summary        string           `json:"summary"`
	Parent         *model.ParentRef `json:"parent"`
	Status         string           `json:"status"`
	Priority       string           `json:"priority"`
	DefectPriority string           `json:"defectPriority"`
	IssueType      string           `json:"issueType"`
	Versions       []string         `json:"versions"`
	FixVersions    []string         `json:"fixVersions"`
	ReopenVersions []string         `json:"reopenVersions"`
	CauseOfDetect  []string         `json:"causeOfDetect"`
	Components     []string         `json:"components"`
	Assignee       string           `json:"assignee"`
	Reporter       string           `json:"reporter"`
	Resolution     string           `json:"resolution"`
}

func ToIssueResponse(rec model.IssueRecord) IssueResponse {
	resp := IssueResponse{
		ID:             rec.ID,
		Key:            rec.Key,
		Summary:        rec.Summary,
		Status:         rec.Status,
		Priority:       rec.Priority,
		DefectPriority: rec.DefectPriority,
		IssueType:      rec.IssueType,
		Versions:       nonNilStrings(rec.Versions),
		FixVersions:    nonNilStrings(rec.FixVersions),
		ReopenVersions: nonNilStrings(rec.ReopenVersions),
		CauseOfDetect:  nonNilStrings(rec.CauseOfDetect),
		Components:     nonNilStrings(rec.Components),
		Assignee:       rec.Assignee,
		Reporter:       rec.Reporter,
		Resolution:     rec.Resolution,
	}
	if ref, ok := rec.Parent.Get(); ok {
		resp.Parent = &ref
	}
	return resp
}

func ToIssueResponses(recs []model.IssueRecord) []IssueResponse {
	out := make([]IssueResponse, len(recs))
	for i, rec := range recs {
		out[i] = ToIssueResponse(rec)
	}
	return out
}

type BucketsResponse struct {
	Defects         []IssueResponse `json:"defects"`
	Improvements    []IssueResponse `json:"improvements"`
	ExcludedDefects []IssueResponse `json:"excludedDefects"`
	Checklist       []IssueResponse `json:"checklist"`
}

type ReopenedResponse struct {
	DefectKeys      []string        `json:"defectKeys"`
	ImprovementKeys []string        `json:"improvementKeys"`
	QC              []IssueResponse `json:"qc"`
	Checklist       []IssueResponse `json:"checklist"`
}

type StatsResponse struct {
	Versions             []string                 `json:"versions"`
	IssueCount           report.Counts            `json:"issueCount"`
	FixedIssueCount      report.Counts            `json:"fixedIssueCount"`
	NewIssueCount        int                      `json:"newIssueCount"`
	FixRates             report.FixRates          `json:"fixRates"`
	PriorityCount        report.PriorityHistogram `json:"priorityCount"`
	UnprioritizedDefects int                      `json:"unprioritizedDefects"`
	HasReopenIssue       report.ReopenFlags       `json:"hasReopenIssue"`
	HasCheckListIssue    bool                     `json:"hasCheckListIssue"`
	Reopened             ReopenedResponse         `json:"reopened"`
	CauseOfDetect        []report.CauseCount      `json:"causeOfDetect"`
	FixRateByPriority    []report.GroupFixRate    `json:"fixRateByPriority"`
}

func ToStatsResponse(s report.Stats) StatsResponse {
	return StatsResponse{
		Versions:             s.Versions,
		IssueCount:           s.IssueCount,
		FixedIssueCount:      s.FixedIssueCount,
		NewIssueCount:        s.NewIssueCount,
		FixRates:             s.FixRates,
		PriorityCount:        s.PriorityCount,
		UnprioritizedDefects: s.UnprioritizedDefects,
		HasReopenIssue:       s.HasReopenIssue,
		HasCheckListIssue:    s.HasCheckListIssue,
		Reopened: ReopenedResponse{
			DefectKeys:      s.Reopened.DefectKeys,
			ImprovementKeys: s.Reopened.ImprovementKeys,
			QC:              ToIssueResponses(s.Reopened.QC),
			Checklist:       ToIssueResponses(s.Reopened.Checklist),
		},
		CauseOfDetect:     s.CauseOfDetect,
		FixRateByPriority: s.FixRateByPriority,
	}
}

type ReportResponse struct {
	ID            string          `json:"id"`
	Source        string          `json:"source"`
	EpicKey       string          `json:"epicKey,omitempty"`
	IssueKeys     []string        `json:"issueKeys"`
	ChecklistKeys []string        `json:"checklistKeys"`
	Generation    uint64          `json:"generation"`
	Warnings      []string        `json:"warnings"`
	Buckets       BucketsResponse `json:"buckets"`
	Stats         StatsResponse   `json:"stats"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func ToReportResponse(snap *service.ReportSnapshot) ReportResponse {
	return ReportResponse{
		ID:            id.String(snap.ID),
		Source:        string(snap.Request.Source),
		EpicKey:       snap.Request.EpicKey,
		IssueKeys:     nonNilStrings(snap.Request.IssueKeys),
		ChecklistKeys: nonNilStrings(snap.Request.ChecklistKeys),
		Generation:    snap.Generation,
		Warnings:      nonNilStrings(snap.Warnings),
		Buckets: BucketsResponse{
			Defects:         ToIssueResponses(snap.Buckets.Defects),
			Improvements:    ToIssueResponses(snap.Buckets.Improvements),
			ExcludedDefects: ToIssueResponses(snap.Buckets.ExcludedDefects),
			Checklist:       ToIssueResponses(snap.Buckets.Checklist),
		},
		Stats:     ToStatsResponse(snap.Stats),
		CreatedAt: snap.CreatedAt,
		UpdatedAt: snap.UpdatedAt,
	}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
