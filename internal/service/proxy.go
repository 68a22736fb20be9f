package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"basegraph.app/qareport/common/logger"
	"basegraph.app/qareport/internal/fetch"
	"basegraph.app/qareport/internal/model"
	"basegraph.app/qareport/internal/service/issue_tracker"
)

var ErrNoIssueKeys = errors.New("issueKeys must be a non-empty array")

// IssueFetcher fetches issue sets that span several upstream requests.
type IssueFetcher = fetch.Fetcher

// ProxyService forwards authenticated requests to the tracker.
type ProxyService interface {
	Issue(ctx context.Context, creds issue_tracker.Credentials, key string) (json.RawMessage, error)
	Search(ctx context.Context, creds issue_tracker.Credentials, keys []string) (*model.SearchResult, error)
	EpicIssues(ctx context.Context, creds issue_tracker.Credentials, epicKey string) (*model.SearchResult, error)
	TestAuth(ctx context.Context, creds issue_tracker.Credentials) (*model.TrackerUser, error)
}

type proxyService struct {
	tracker issue_tracker.IssueTrackerService
	fetcher IssueFetcher
}

func NewProxyService(tracker issue_tracker.IssueTrackerService, fetcher IssueFetcher) ProxyService {
	return &proxyService{
		tracker: tracker,
		fetcher: fetcher,
	}
}

func (s *proxyService) Issue(ctx context.Context, creds issue_tracker.Credentials, key string) (json.RawMessage, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{IssueKey: logger.Ptr(key)})

	issue, err := s.tracker.FetchIssue(ctx, creds, key)
	if err != nil {
		return nil, fmt.Errorf("fetching issue %s: %w", key, err)
	}
	return issue, nil
}

func (s *proxyService) Search(ctx context.Context, creds issue_tracker.Credentials, keys []string) (*model.SearchResult, error) {
	if !creds.Valid() {
		return nil, issue_tracker.ErrMissingCredentials
	}
	if len(keys) == 0 {
		return nil, ErrNoIssueKeys
	}

	slog.InfoContext(ctx, "searching issues", "keys", len(keys))

	result, err := s.fetcher.FetchByKeys(ctx, creds, keys)
	if err != nil {
		return nil, fmt.Errorf("searching issues: %w", err)
	}
	return result, nil
}

func (s *proxyService) EpicIssues(ctx context.Context, creds issue_tracker.Credentials, epicKey string) (*model.SearchResult, error) {
	if !creds.Valid() {
		return nil, issue_tracker.ErrMissingCredentials
	}

	result, err := s.fetcher.FetchEpic(ctx, creds, epicKey)
	if err != nil {
		return nil, fmt.Errorf("fetching epic issues: %w", err)
	}
	return result, nil
}

func (s *proxyService) TestAuth(ctx context.Context, creds issue_tracker.Credentials) (*model.TrackerUser, error) {
	user, err := s.tracker.Myself(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("testing credentials: %w", err)
	}

	slog.InfoContext(ctx, "tracker credentials verified", "account_id", user.AccountID)
	return user, nil
}
