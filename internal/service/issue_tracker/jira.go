package issue_tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"basegraph.app/qareport/common/logger"
	"basegraph.app/qareport/core/config"
	"basegraph.app/qareport/internal/model"
)

const (
	instrumentationName = "basegraph.app/qareport/tracker"
	maxErrorBodyBytes   = 4096
)

type jiraSearchRequest struct {
	JQL        string   `json:"jql"`
	Fields     []string `json:"fields"`
	MaxResults int      `json:"maxResults"`
}

type jiraErrorBody struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}

type jiraService struct {
	baseURL        string
	httpClient     *http.Client
	searchPageSize int
	epicPageSize   int

	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

func NewJiraService(cfg config.TrackerConfig, httpClient *http.Client) (IssueTrackerService, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	meter := otel.Meter(instrumentationName)
	requests, err := meter.Int64Counter("tracker.requests",
		metric.WithDescription("Upstream tracker requests by endpoint and status"))
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}
	latency, err := meter.Float64Histogram("tracker.request.duration",
		metric.WithDescription("Upstream tracker request latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("creating latency histogram: %w", err)
	}

	return &jiraService{
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient:     httpClient,
		searchPageSize: cfg.SearchPageSize,
		epicPageSize:   cfg.EpicPageSize,
		requests:       requests,
		latency:        latency,
	}, nil
}

func (s *jiraService) SearchPageSize() int {
	return s.searchPageSize
}

func (s *jiraService) EpicPageSize() int {
	return s.epicPageSize
}

func (s *jiraService) FetchIssue(ctx context.Context, creds Credentials, key string) (json.RawMessage, error) {
	var issue json.RawMessage
	path := "/rest/api/3/issue/" + url.PathEscape(key)
	if err := s.do(ctx, creds, "issue", http.MethodGet, path, nil, nil, &issue); err != nil {
		return nil, err
	}
	return issue, nil
}

func (s *jiraService) SearchIssues(ctx context.Context, creds Credentials, keys []string) (*model.SearchPage, error) {
	if len(keys) == 0 {
		return &model.SearchPage{Issues: []model.RawIssue{}}, nil
	}
	if len(keys) > s.searchPageSize {
		return nil, fmt.Errorf("search accepts at most %d keys, got %d", s.searchPageSize, len(keys))
	}

	body := jiraSearchRequest{
		JQL:        fmt.Sprintf("issueKey IN (%s)", strings.Join(keys, ", ")),
		Fields:     []string{"*all"},
		MaxResults: s.searchPageSize,
	}

	var page model.SearchPage
	if err := s.do(ctx, creds, "search", http.MethodPost, "/rest/api/3/search/jql", nil, body, &page); err != nil {
		return nil, err
	}
	if page.Issues == nil {
		page.Issues = []model.RawIssue{}
	}
	return &page, nil
}

func (s *jiraService) FetchEpicIssues(ctx context.Context, creds Credentials, params EpicPageParams) (*model.SearchPage, error) {
	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = s.epicPageSize
	}

	query := url.Values{}
	query.Set("startAt", strconv.Itoa(params.StartAt))
	query.Set("maxResults", strconv.Itoa(maxResults))

	path := "/rest/agile/1.0/epic/" + url.PathEscape(params.EpicKey) + "/issue"

	var page model.SearchPage
	if err := s.do(ctx, creds, "epic", http.MethodGet, path, query, nil, &page); err != nil {
		return nil, err
	}
	if page.Issues == nil {
		page.Issues = []model.RawIssue{}
	}
	return &page, nil
}

func (s *jiraService) Myself(ctx context.Context, creds Credentials) (*model.TrackerUser, error) {
	var user model.TrackerUser
	if err := s.do(ctx, creds, "myself", http.MethodGet, "/rest/api/3/myself", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *jiraService) do(ctx context.Context, creds Credentials, endpoint, method, path string, query url.Values, body, out any) error {
	if !creds.Valid() {
		return ErrMissingCredentials
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "qareport.tracker"})

	sc := logger.StartSpanWithOptions(ctx, "tracker."+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.request.method", method)))
	defer sc.End()
	ctx = sc.Context()

	target := s.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", endpoint, err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", endpoint, err)
	}
	req.SetBasicAuth(creds.Username, creds.Password)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		s.record(ctx, endpoint, 0, elapsed)
		sc.RecordError(err)
		slog.ErrorContext(ctx, "tracker request failed", "endpoint", endpoint, "method", method, "url", target, "error", err)
		return &UpstreamRequestError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	s.record(ctx, endpoint, resp.StatusCode, elapsed)
	sc.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		upstreamErr := &UpstreamRequestError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
		}
		sc.RecordError(upstreamErr)
		slog.WarnContext(ctx, "tracker returned error status",
			"endpoint", endpoint,
			"status", resp.StatusCode,
			"message", logger.Truncate(upstreamErr.Message, 200))
		return upstreamErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamRequestError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Message:    "decoding response body",
			Err:        err,
		}
	}

	slog.DebugContext(ctx, "tracker request completed", "endpoint", endpoint, "status", resp.StatusCode, "duration_s", elapsed)
	return nil
}

func (s *jiraService) record(ctx context.Context, endpoint string, status int, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.Int("status_code", status),
	)
	s.requests.Add(ctx, 1, attrs)
	s.latency.Record(ctx, seconds, attrs)
}

// errorMessage extracts a readable message from a tracker error body.
func errorMessage(raw []byte) string {
	var body jiraErrorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		parts := append([]string{}, body.ErrorMessages...)
		for _, field := range slices.Sorted(maps.Keys(body.Errors)) {
			parts = append(parts, field+": "+body.Errors[field])
		}
		if len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
	}
	return strings.TrimSpace(string(raw))
}
