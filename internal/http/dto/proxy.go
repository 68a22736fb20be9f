package dto

import "basegraph.app/qareport/internal/model"

type SearchIssuesRequest struct {
	IssueKeys []string `json:"issueKeys"`
}

// SearchResponse mirrors the tracker's search payload for a merged multi-chunk result.
type SearchResponse struct {
	Issues     []model.RawIssue `json:"issues"`
	Total      int              `json:"total"`
	MaxResults int              `json:"maxResults"`
	StartAt    int              `json:"startAt"`
	IsLast     bool             `json:"isLast"`
}

func ToSearchResponse(result *model.SearchResult) SearchResponse {
	issues := result.Issues
	if issues == nil {
		issues = []model.RawIssue{}
	}
	return SearchResponse{
		Issues:     issues,
		Total:      result.Total,
		MaxResults: len(issues),
		StartAt:    0,
		IsLast:     true,
	}
}

type AuthTestResponse struct {
	Message string            `json:"message"`
	User    model.TrackerUser `json:"user"`
}
