package issue_tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"basegraph.app/qareport/internal/model"
)

var ErrMissingCredentials = errors.New("username and password headers are required")

// Credentials are the caller's tracker credentials, forwarded upstream as basic auth.
// They are passed per call and never stored.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) Valid() bool {
	return c.Username != "" && c.Password != ""
}

// UpstreamRequestError wraps a failed tracker call: a transport failure (StatusCode 0) or a
// non-2xx response.
type UpstreamRequestError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamRequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("tracker request %s %s failed: %v", e.Method, e.URL, e.Err)
	}
	if e.Message == "" {
		return fmt.Sprintf("tracker request %s %s returned status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("tracker request %s %s returned status %d: %s", e.Method, e.URL, e.StatusCode, e.Message)
}

func (e *UpstreamRequestError) Unwrap() error {
	return e.Err
}

type EpicPageParams struct {
	EpicKey    string
	StartAt    int
	MaxResults int
}

type IssueTrackerService interface {
	FetchIssue(ctx context.Context, creds Credentials, key string) (json.RawMessage, error)
	// SearchIssues runs one search for at most SearchPageSize keys.
	SearchIssues(ctx context.Context, creds Credentials, keys []string) (*model.SearchPage, error)
	FetchEpicIssues(ctx context.Context, creds Credentials, params EpicPageParams) (*model.SearchPage, error)
	Myself(ctx context.Context, creds Credentials) (*model.TrackerUser, error)
	SearchPageSize() int
	EpicPageSize() int
}
