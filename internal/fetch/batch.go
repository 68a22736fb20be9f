package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"basegraph.app/qareport/common/logger"
	"basegraph.app/qareport/internal/model"
	"basegraph.app/qareport/internal/service/issue_tracker"
)

// maxEpicPages bounds epic paging if the tracker never reports the end of the listing.
const maxEpicPages = 1000

// Searcher is the subset of the tracker client the coordinator needs.
type Searcher interface {
	SearchIssues(ctx context.Context, creds issue_tracker.Credentials, keys []string) (*model.SearchPage, error)
	FetchEpicIssues(ctx context.Context, creds issue_tracker.Credentials, params issue_tracker.EpicPageParams) (*model.SearchPage, error)
	SearchPageSize() int
	EpicPageSize() int
}

// BatchFetchError reports the chunk that aborted a batch fetch.
type BatchFetchError struct {
	Chunk int
	Keys  []string
	Err   error
}

func (e *BatchFetchError) Error() string {
	return fmt.Sprintf("fetching chunk %d (%s): %v", e.Chunk, strings.Join(e.Keys, ", "), e.Err)
}

func (e *BatchFetchError) Unwrap() error {
	return e.Err
}

// EpicFetchError reports the page that aborted an epic listing.
type EpicFetchError struct {
	EpicKey string
	StartAt int
	Err     error
}

func (e *EpicFetchError) Error() string {
	return fmt.Sprintf("fetching epic %s at offset %d: %v", e.EpicKey, e.StartAt, e.Err)
}

func (e *EpicFetchError) Unwrap() error {
	return e.Err
}

type Coordinator struct {
	searcher Searcher
}

func NewCoordinator(searcher Searcher) *Coordinator {
	return &Coordinator{searcher: searcher}
}

// Chunk splits keys into contiguous slices of at most size keys, preserving order.
func Chunk(keys []string, size int) [][]string {
	if size <= 0 || len(keys) == 0 {
		return nil
	}
	return slices.Collect(slices.Chunk(keys, size))
}

// FetchByKeys queries the tracker one chunk at a time, in order, and concatenates the
// results. The first failing chunk aborts the whole fetch; no partial result is returned.
func (c *Coordinator) FetchByKeys(ctx context.Context, creds issue_tracker.Credentials, keys []string) (*model.SearchResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "qareport.fetch.batch"})

	result := &model.SearchResult{Issues: []model.RawIssue{}}
	chunks := Chunk(keys, c.searcher.SearchPageSize())

	for i, chunk := range chunks {
		page, err := c.fetchChunk(ctx, creds, i, chunk)
		if err != nil {
			return nil, err
		}
		result.Issues = append(result.Issues, page.Issues...)
		result.Total += page.ReportedTotal()
	}

	slog.InfoContext(ctx, "batch fetch completed",
		"keys", len(keys),
		"chunks", len(chunks),
		"issues", len(result.Issues),
		"total", result.Total)

	return result, nil
}

func (c *Coordinator) fetchChunk(ctx context.Context, creds issue_tracker.Credentials, index int, keys []string) (*model.SearchPage, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Chunk: logger.Ptr(index)})

	sc := logger.StartSpan(ctx, "fetch.batch_chunk",
		attribute.Int("chunk", index),
		attribute.Int("keys", len(keys)))
	defer sc.End()
	ctx = sc.Context()

	page, err := c.searcher.SearchIssues(ctx, creds, keys)
	if err != nil {
		sc.RecordError(err)
		slog.ErrorContext(ctx, "batch chunk failed", "keys", len(keys), "error", err)
		return nil, &BatchFetchError{Chunk: index, Keys: slices.Clone(keys), Err: err}
	}

	slog.DebugContext(ctx, "batch chunk fetched", "keys", len(keys), "issues", len(page.Issues))
	return page, nil
}

// FetchEpic pages through the children of an epic until the reported total is reached, the
// tracker marks the last page, or a page comes back short.
func (c *Coordinator) FetchEpic(ctx context.Context, creds issue_tracker.Credentials, epicKey string) (*model.SearchResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "qareport.fetch.epic",
		EpicKey:   logger.Ptr(epicKey),
	})

	sc := logger.StartSpan(ctx, "fetch.epic", attribute.String("epic_key", epicKey))
	defer sc.End()
	ctx = sc.Context()

	pageSize := c.searcher.EpicPageSize()
	result := &model.SearchResult{Issues: []model.RawIssue{}}
	reported := -1

	for pages, startAt := 0, 0; pages < maxEpicPages; pages++ {
		page, err := c.searcher.FetchEpicIssues(ctx, creds, issue_tracker.EpicPageParams{
			EpicKey:    epicKey,
			StartAt:    startAt,
			MaxResults: pageSize,
		})
		if err != nil {
			sc.RecordError(err)
			return nil, &EpicFetchError{EpicKey: epicKey, StartAt: startAt, Err: err}
		}

		result.Issues = append(result.Issues, page.Issues...)
		startAt += len(page.Issues)
		if page.Total != nil {
			reported = *page.Total
		}

		if lastEpicPage(page, startAt, reported, pageSize) {
			break
		}
	}

	result.Total = len(result.Issues)
	if reported > result.Total {
		result.Total = reported
	}

	sc.SetAttributes(attribute.Int("issues", len(result.Issues)))
	slog.InfoContext(ctx, "epic fetch completed", "issues", len(result.Issues), "total", result.Total)
	return result, nil
}

func lastEpicPage(page *model.SearchPage, fetched, reported, pageSize int) bool {
	switch {
	case len(page.Issues) == 0:
		return true
	case page.IsLast != nil && *page.IsLast:
		return true
	case reported >= 0:
		return fetched >= reported
	default:
		return len(page.Issues) < pageSize
	}
}
