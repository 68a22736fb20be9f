package service

import (
	"fmt"
	"net/http"

	"basegraph.app/qareport/core/config"
	"basegraph.app/qareport/internal/fetch"
	"basegraph.app/qareport/internal/report"
	"basegraph.app/qareport/internal/service/issue_tracker"
)

type Services struct {
	tracker issue_tracker.IssueTrackerService
	fetcher *fetch.Coordinator
	engine  *report.Engine
	reports ReportService
}

// NewServices wires the tracker client, batch coordinator and report engine. httpClient may
// be nil, in which case one is built from the tracker timeout.
func NewServices(cfg config.Config, vocab report.Vocabulary, httpClient *http.Client) (*Services, error) {
	tracker, err := issue_tracker.NewJiraService(cfg.Tracker, httpClient)
	if err != nil {
		return nil, fmt.Errorf("creating tracker client: %w", err)
	}

	fetcher := fetch.NewCoordinator(tracker)
	engine := report.NewEngine(vocab)

	return &Services{
		tracker: tracker,
		fetcher: fetcher,
		engine:  engine,
		reports: NewReportService(engine, fetcher, cfg.Report),
	}, nil
}

func (s *Services) Proxy() ProxyService {
	return NewProxyService(s.tracker, s.fetcher)
}

// Reports returns the shared session-holding report service.
func (s *Services) Reports() ReportService {
	return s.reports
}

func (s *Services) Engine() *report.Engine {
	return s.engine
}
