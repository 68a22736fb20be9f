package issue_tracker_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/qareport/core/config"
	"basegraph.app/qareport/internal/service/issue_tracker"
)

var _ = Describe("JiraService", func() {
	var (
		ctx     context.Context
		creds   issue_tracker.Credentials
		server  *httptest.Server
		handler http.HandlerFunc
		tracker issue_tracker.IssueTrackerService
	)

	BeforeEach(func() {
		ctx = context.Background()
		creds = issue_tracker.Credentials{Username: "qa@example.com", Password: "secret"}
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
		DeferCleanup(server.Close)

		var err error
		tracker, err = issue_tracker.NewJiraService(config.TrackerConfig{
			BaseURL:        server.URL + "/",
			Timeout:        5 * time.Second,
			SearchPageSize: 3,
			EpicPageSize:   50,
		}, server.Client())
		Expect(err).NotTo(HaveOccurred())
	})

	expectBasicAuth := func(r *http.Request) {
		user, pass, ok := r.BasicAuth()
		Expect(ok).To(BeTrue())
		Expect(user).To(Equal("qa@example.com"))
		Expect(pass).To(Equal("secret"))
	}

	Describe("FetchIssue", func() {
		It("returns the upstream issue body verbatim", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(r.Method).To(Equal(http.MethodGet))
				Expect(r.URL.Path).To(Equal("/rest/api/3/issue/QA-1"))
				expectBasicAuth(r)
				_, _ = io.WriteString(w, `{"id":"10001","key":"QA-1","fields":{"summary":"crash"}}`)
			}

			issue, err := tracker.FetchIssue(ctx, creds, "QA-1")

			Expect(err).NotTo(HaveOccurred())
			Expect(string(issue)).To(MatchJSON(`{"id":"10001","key":"QA-1","fields":{"summary":"crash"}}`))
		})

		It("refuses to call upstream without credentials", func() {
			called := false
			handler = func(w http.ResponseWriter, r *http.Request) { called = true }

			_, err := tracker.FetchIssue(ctx, issue_tracker.Credentials{Username: "qa@example.com"}, "QA-1")

			Expect(err).To(MatchError(issue_tracker.ErrMissingCredentials))
			Expect(called).To(BeFalse())
		})

		It("surfaces tracker error messages", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `{"errorMessages":["Issue does not exist"],"errors":{"b":"second","a":"first"}}`)
			}

			_, err := tracker.FetchIssue(ctx, creds, "QA-404")

			var upstream *issue_tracker.UpstreamRequestError
			Expect(errors.As(err, &upstream)).To(BeTrue())
			Expect(upstream.StatusCode).To(Equal(http.StatusNotFound))
			Expect(upstream.Message).To(Equal("Issue does not exist; a: first; b: second"))
			Expect(err.Error()).To(ContainSubstring("returned status 404"))
		})

		It("keeps a non-JSON error body as the message", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = io.WriteString(w, "  gateway down \n")
			}

			_, err := tracker.FetchIssue(ctx, creds, "QA-1")

			var upstream *issue_tracker.UpstreamRequestError
			Expect(errors.As(err, &upstream)).To(BeTrue())
			Expect(upstream.Message).To(Equal("gateway down"))
		})
	})

	Describe("SearchIssues", func() {
		It("posts a key query with all fields", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(r.Method).To(Equal(http.MethodPost))
				Expect(r.URL.Path).To(Equal("/rest/api/3/search/jql"))
				expectBasicAuth(r)

				var body map[string]any
				Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
				Expect(body["jql"]).To(Equal("issueKey IN (QA-1, QA-2)"))
				Expect(body["fields"]).To(Equal([]any{"*all"}))
				Expect(body["maxResults"]).To(BeNumerically("==", 3))

				_, _ = io.WriteString(w, `{"issues":[{"id":"1","key":"QA-1","fields":{}},{"id":"2","key":"QA-2","fields":{}}],"total":2,"isLast":true}`)
			}

			page, err := tracker.SearchIssues(ctx, creds, []string{"QA-1", "QA-2"})

			Expect(err).NotTo(HaveOccurred())
			Expect(page.Issues).To(HaveLen(2))
			Expect(page.Issues[1].Key).To(Equal("QA-2"))
			Expect(page.ReportedTotal()).To(Equal(2))
		})

		It("rejects more keys than one search accepts", func() {
			_, err := tracker.SearchIssues(ctx, creds, []string{"QA-1", "QA-2", "QA-3", "QA-4"})

			Expect(err).To(MatchError(ContainSubstring("at most 3 keys")))
		})

		It("returns an empty page for no keys without calling upstream", func() {
			page, err := tracker.SearchIssues(ctx, creds, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(page.Issues).NotTo(BeNil())
			Expect(page.Issues).To(BeEmpty())
		})
	})

	Describe("FetchEpicIssues", func() {
		It("passes paging parameters", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(r.URL.Path).To(Equal("/rest/agile/1.0/epic/QA-EPIC/issue"))
				Expect(r.URL.Query().Get("startAt")).To(Equal("100"))
				Expect(r.URL.Query().Get("maxResults")).To(Equal("50"))
				_, _ = io.WriteString(w, `{"startAt":100,"maxResults":50,"total":101,"issues":[{"id":"101","key":"QA-101","fields":{}}]}`)
			}

			page, err := tracker.FetchEpicIssues(ctx, creds, issue_tracker.EpicPageParams{EpicKey: "QA-EPIC", StartAt: 100})

			Expect(err).NotTo(HaveOccurred())
			Expect(page.StartAt).To(Equal(100))
			Expect(page.Issues).To(HaveLen(1))
			Expect(page.ReportedTotal()).To(Equal(101))
		})
	})

	Describe("Myself", func() {
		It("decodes the authenticated user", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(r.URL.Path).To(Equal("/rest/api/3/myself"))
				_, _ = io.WriteString(w, `{"accountId":"abc","displayName":"QA Bot","emailAddress":"qa@example.com"}`)
			}

			user, err := tracker.Myself(ctx, creds)

			Expect(err).NotTo(HaveOccurred())
			Expect(user.AccountID).To(Equal("abc"))
			Expect(user.DisplayName).To(Equal("QA Bot"))
		})

		It("reports rejected credentials as a 401 upstream error", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			}

			_, err := tracker.Myself(ctx, creds)

			var upstream *issue_tracker.UpstreamRequestError
			Expect(errors.As(err, &upstream)).To(BeTrue())
			Expect(upstream.StatusCode).To(Equal(http.StatusUnauthorized))
		})
	})

	It("reports the configured page sizes", func() {
		Expect(tracker.SearchPageSize()).To(Equal(3))
		Expect(tracker.EpicPageSize()).To(Equal(50))
	})
})
