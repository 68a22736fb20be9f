package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"basegraph.app/qareport/common/id"
	"basegraph.app/qareport/common/logger"
	"basegraph.app/qareport/core/config"
	"basegraph.app/qareport/internal/fetch"
	"basegraph.app/qareport/internal/report"
	"basegraph.app/qareport/internal/service/issue_tracker"
)

var (
	ErrReportNotFound = errors.New("report not found")
	// ErrStaleRefresh means a newer refresh of the same report started before this one
	// finished; the older result is discarded.
	ErrStaleRefresh = errors.New("report was refreshed again before this refresh completed")
)

type ReportSource string

const (
	ReportSourceEpic   ReportSource = "epic"
	ReportSourceIssues ReportSource = "issues"
)

// InvalidReportRequestError describes a report request that cannot be fetched.
type InvalidReportRequestError struct {
	Reason string
}

func (e *InvalidReportRequestError) Error() string {
	return "invalid report request: " + e.Reason
}

type ReportRequest struct {
	Source        ReportSource
	EpicKey       string
	IssueKeys     []string
	ChecklistKeys []string
}

func (r ReportRequest) Validate() error {
	switch r.Source {
	case ReportSourceEpic:
		if r.EpicKey == "" {
			return &InvalidReportRequestError{Reason: "epicKey is required for source epic"}
		}
	case ReportSourceIssues:
		if len(r.IssueKeys) == 0 {
			return &InvalidReportRequestError{Reason: "issueKeys is required for source issues"}
		}
	default:
		return &InvalidReportRequestError{Reason: fmt.Sprintf("unknown source %q", r.Source)}
	}
	return nil
}

// ReportSnapshot is a consistent, read-only view of a report session.
type ReportSnapshot struct {
	ID         int64
	Request    ReportRequest
	Buckets    report.Buckets
	Stats      report.Stats
	Warnings   []string
	Generation uint64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type ReportService interface {
	Create(ctx context.Context, creds issue_tracker.Credentials, req ReportRequest) (*ReportSnapshot, error)
	Get(ctx context.Context, reportID int64) (*ReportSnapshot, error)
	Refresh(ctx context.Context, creds issue_tracker.Credentials, reportID int64) (*ReportSnapshot, error)
	RemoveIssue(ctx context.Context, reportID int64, issueID string) (*ReportSnapshot, error)
	Delete(ctx context.Context, reportID int64) error
}

type session struct {
	id         int64
	request    ReportRequest
	report     *report.Report
	warnings   []string
	generation uint64
	createdAt  time.Time
	updatedAt  time.Time
}

func (s *session) snapshot() *ReportSnapshot {
	return &ReportSnapshot{
		ID:         s.id,
		Request:    s.request,
		Buckets:    s.report.Buckets(),
		Stats:      s.report.Stats(),
		Warnings:   slices.Clone(s.warnings),
		Generation: s.generation,
		CreatedAt:  s.createdAt,
		UpdatedAt:  s.updatedAt,
	}
}

type ReportServiceOption func(*reportService)

// WithClock overrides the time source used for session expiry.
func WithClock(now func() time.Time) ReportServiceOption {
	return func(s *reportService) {
		s.now = now
	}
}

type reportService struct {
	engine  *report.Engine
	fetcher IssueFetcher
	ttl     time.Duration
	max     int
	now     func() time.Time
	builds  metric.Int64Counter

	mu       sync.Mutex
	sessions map[int64]*session
}

func NewReportService(engine *report.Engine, fetcher IssueFetcher, cfg config.ReportConfig, opts ...ReportServiceOption) ReportService {
	builds, err := otel.Meter("basegraph.app/qareport/report").Int64Counter("report.builds",
		metric.WithDescription("Report builds by source and outcome"))
	if err != nil {
		slog.Warn("report build counter unavailable", "error", err)
		builds = noop.Int64Counter{}
	}

	s := &reportService{
		engine:   engine,
		fetcher:  fetcher,
		ttl:      cfg.SessionTTL,
		max:      cfg.MaxSessions,
		now:      time.Now,
		builds:   builds,
		sessions: make(map[int64]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *reportService) Create(ctx context.Context, creds issue_tracker.Credentials, req ReportRequest) (*ReportSnapshot, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	built, warnings, err := s.build(ctx, creds, req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess := &session{
		id:         id.New(),
		request:    req,
		report:     built,
		warnings:   warnings,
		generation: 1,
		createdAt:  now,
		updatedAt:  now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked(now)
	s.sessions[sess.id] = sess

	ctx = logger.WithLogFields(ctx, logger.LogFields{ReportID: logger.Ptr(sess.id)})
	slog.InfoContext(ctx, "report created", "source", req.Source, "warnings", len(warnings))

	return sess.snapshot(), nil
}

func (s *reportService) Get(ctx context.Context, reportID int64) (*ReportSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookupLocked(reportID)
	if err != nil {
		return nil, err
	}
	return sess.snapshot(), nil
}

// Refresh refetches the report's issues and replaces its contents. Only the most recently
// started refresh of a report is applied; an older one that finishes later returns
// ErrStaleRefresh and leaves the report untouched.
func (s *reportService) Refresh(ctx context.Context, creds issue_tracker.Credentials, reportID int64) (*ReportSnapshot, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{ReportID: logger.Ptr(reportID)})

	s.mu.Lock()
	sess, err := s.lookupLocked(reportID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	sess.generation++
	generation := sess.generation
	req := sess.request
	s.mu.Unlock()

	built, warnings, err := s.build(ctx, creds, req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[reportID]
	if !ok || current != sess {
		return nil, fmt.Errorf("%w: %d", ErrReportNotFound, reportID)
	}
	if current.generation != generation {
		slog.InfoContext(ctx, "discarding stale refresh", "generation", generation, "latest", current.generation)
		return nil, ErrStaleRefresh
	}

	current.report = built
	current.warnings = warnings
	current.updatedAt = s.now()

	slog.InfoContext(ctx, "report refreshed", "generation", generation)
	return current.snapshot(), nil
}

func (s *reportService) RemoveIssue(ctx context.Context, reportID int64, issueID string) (*ReportSnapshot, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{ReportID: logger.Ptr(reportID)})

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookupLocked(reportID)
	if err != nil {
		return nil, err
	}

	removed, err := sess.report.RemoveIssue(issueID)
	if err != nil {
		return nil, err
	}
	sess.updatedAt = s.now()

	slog.InfoContext(ctx, "issue removed from report", "issue_id", issueID, "issue_key", removed.Key)
	return sess.snapshot(), nil
}

func (s *reportService) Delete(ctx context.Context, reportID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookupLocked(reportID); err != nil {
		return err
	}
	delete(s.sessions, reportID)

	slog.InfoContext(ctx, "report deleted", "report_id", reportID)
	return nil
}

func (s *reportService) build(ctx context.Context, creds issue_tracker.Credentials, req ReportRequest) (*report.Report, []string, error) {
	sc := logger.StartSpan(ctx, "report.build", attribute.String("source", string(req.Source)))
	defer sc.End()
	ctx = sc.Context()

	built, warnings, err := s.fetchAndBuild(ctx, creds, req)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		sc.RecordError(err)
	}
	s.builds.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", string(req.Source)),
		attribute.String("outcome", outcome),
	))

	return built, warnings, err
}

func (s *reportService) fetchAndBuild(ctx context.Context, creds issue_tracker.Credentials, req ReportRequest) (*report.Report, []string, error) {
	sel := fetch.Selection{IssueKeys: req.IssueKeys, ChecklistKeys: req.ChecklistKeys}
	if req.Source == ReportSourceEpic {
		sel = fetch.Selection{EpicKey: req.EpicKey, ChecklistKeys: req.ChecklistKeys}
	}
	return fetch.BuildReport(ctx, s.fetcher, s.engine, creds, sel)
}

func (s *reportService) lookupLocked(reportID int64) (*session, error) {
	sess, ok := s.sessions[reportID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrReportNotFound, reportID)
	}
	if s.expired(sess, s.now()) {
		delete(s.sessions, reportID)
		return nil, fmt.Errorf("%w: %d", ErrReportNotFound, reportID)
	}
	return sess, nil
}

func (s *reportService) expired(sess *session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.updatedAt) > s.ttl
}

// evictLocked drops expired sessions, then the least recently updated ones until there is
// room for one more.
func (s *reportService) evictLocked(now time.Time) {
	for key, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, key)
		}
	}
	if s.max <= 0 {
		return
	}
	for len(s.sessions) >= s.max {
		var oldest *session
		for _, sess := range s.sessions {
			if oldest == nil || sess.updatedAt.Before(oldest.updatedAt) {
				oldest = sess
			}
		}
		delete(s.sessions, oldest.id)
	}
}
