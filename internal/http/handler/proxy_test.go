package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/qareport/internal/http/handler"
	"basegraph.app/qareport/internal/model"
	"basegraph.app/qareport/internal/service"
	"basegraph.app/qareport/internal/service/issue_tracker"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeEnvelope(w *httptest.ResponseRecorder) envelope {
	var env envelope
	Expect(json.Unmarshal(w.Body.Bytes(), &env)).To(Succeed())
	return env
}

func withCredentials(req *http.Request) *http.Request {
	req.Header.Set("username", "qa@example.com")
	req.Header.Set("password", "token")
	return req
}

var _ = Describe("ProxyHandler", func() {
	var (
		router *gin.Engine
		svc    *mockProxyService
	)

	BeforeEach(func() {
		router = gin.New()
		svc = &mockProxyService{}
		h := handler.NewProxyHandler(svc)
		router.GET("/health", handler.Health)
		router.GET("/api/issue/:key", h.Issue)
		router.POST("/api/issues/search", h.Search)
		router.GET("/api/epic/:key/issues", h.EpicIssues)
		router.POST("/api/auth/test", h.TestAuth)
	})

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("reports health", func() {
		w := serve(httptest.NewRequest(http.MethodGet, "/health", nil))

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["status"]).To(Equal("ok"))
		Expect(resp["timestamp"]).NotTo(BeEmpty())
	})

	DescribeTable("returns 401 without credentials",
		func(method, path string) {
			w := serve(httptest.NewRequest(method, path, bytes.NewBufferString(`{"issueKeys":["QA-1"]}`)))

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			env := decodeEnvelope(w)
			Expect(env.Success).To(BeFalse())
			Expect(env.Error).To(Equal(issue_tracker.ErrMissingCredentials.Error()))
		},
		Entry("issue", http.MethodGet, "/api/issue/QA-1"),
		Entry("search", http.MethodPost, "/api/issues/search"),
		Entry("epic", http.MethodGet, "/api/epic/QA-EPIC/issues"),
		Entry("auth test", http.MethodPost, "/api/auth/test"),
	)

	It("accepts x- prefixed credential headers", func() {
		svc.issueFn = func(_ context.Context, creds issue_tracker.Credentials, _ string) (json.RawMessage, error) {
			Expect(creds).To(Equal(issue_tracker.Credentials{Username: "alt", Password: "alt-token"}))
			return json.RawMessage(`{"key":"QA-1"}`), nil
		}
		req := httptest.NewRequest(http.MethodGet, "/api/issue/QA-1", nil)
		req.Header.Set("x-username", "alt")
		req.Header.Set("x-password", "alt-token")

		w := serve(req)

		Expect(w.Code).To(Equal(http.StatusOK))
	})

	Describe("Issue", func() {
		It("wraps the upstream issue in the success envelope", func() {
			svc.issueFn = func(_ context.Context, _ issue_tracker.Credentials, key string) (json.RawMessage, error) {
				return json.RawMessage(`{"key":"` + key + `"}`), nil
			}

			w := serve(withCredentials(httptest.NewRequest(http.MethodGet, "/api/issue/QA-7", nil)))

			Expect(w.Code).To(Equal(http.StatusOK))
			env := decodeEnvelope(w)
			Expect(env.Success).To(BeTrue())
			Expect(string(env.Data)).To(MatchJSON(`{"key":"QA-7"}`))
		})

		It("returns 400 with the error message on failure", func() {
			svc.issueFn = func(context.Context, issue_tracker.Credentials, string) (json.RawMessage, error) {
				return nil, errors.New("issue does not exist")
			}

			w := serve(withCredentials(httptest.NewRequest(http.MethodGet, "/api/issue/QA-7", nil)))

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeEnvelope(w).Error).To(Equal("issue does not exist"))
		})
	})

	Describe("Search", func() {
		It("returns the merged search result", func() {
			svc.searchFn = func(_ context.Context, _ issue_tracker.Credentials, keys []string) (*model.SearchResult, error) {
				Expect(keys).To(Equal([]string{"QA-1", "QA-2"}))
				return &model.SearchResult{
					Issues: []model.RawIssue{{ID: "1", Key: "QA-1"}, {ID: "2", Key: "QA-2"}},
					Total:  2,
				}, nil
			}
			req := withCredentials(httptest.NewRequest(http.MethodPost, "/api/issues/search",
				bytes.NewBufferString(`{"issueKeys":["QA-1","QA-2"]}`)))
			req.Header.Set("Content-Type", "application/json")

			w := serve(req)

			Expect(w.Code).To(Equal(http.StatusOK))
			var data map[string]any
			Expect(json.Unmarshal(decodeEnvelope(w).Data, &data)).To(Succeed())
			Expect(data["total"]).To(BeNumerically("==", 2))
			Expect(data["issues"]).To(HaveLen(2))
		})

		It("returns 400 for an empty key list", func() {
			svc.searchFn = func(context.Context, issue_tracker.Credentials, []string) (*model.SearchResult, error) {
				return nil, service.ErrNoIssueKeys
			}
			req := withCredentials(httptest.NewRequest(http.MethodPost, "/api/issues/search",
				bytes.NewBufferString(`{"issueKeys":[]}`)))

			w := serve(req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeEnvelope(w).Error).To(Equal(service.ErrNoIssueKeys.Error()))
		})

		It("returns 400 for a malformed body", func() {
			req := withCredentials(httptest.NewRequest(http.MethodPost, "/api/issues/search", bytes.NewBufferString(`{`)))

			w := serve(req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeEnvelope(w).Success).To(BeFalse())
		})

		It("returns 400 when a chunk fails", func() {
			svc.searchFn = func(context.Context, issue_tracker.Credentials, []string) (*model.SearchResult, error) {
				return nil, errors.New("fetching chunk 1: upstream unavailable")
			}
			req := withCredentials(httptest.NewRequest(http.MethodPost, "/api/issues/search",
				bytes.NewBufferString(`{"issueKeys":["QA-1"]}`)))

			w := serve(req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("EpicIssues", func() {
		It("returns 500 on failure", func() {
			svc.epicIssuesFn = func(context.Context, issue_tracker.Credentials, string) (*model.SearchResult, error) {
				return nil, errors.New("epic listing failed")
			}

			w := serve(withCredentials(httptest.NewRequest(http.MethodGet, "/api/epic/QA-EPIC/issues", nil)))

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(decodeEnvelope(w).Error).To(Equal("epic listing failed"))
		})

		It("passes the epic key through", func() {
			svc.epicIssuesFn = func(_ context.Context, _ issue_tracker.Credentials, epicKey string) (*model.SearchResult, error) {
				Expect(epicKey).To(Equal("QA-EPIC"))
				return &model.SearchResult{Issues: []model.RawIssue{}}, nil
			}

			w := serve(withCredentials(httptest.NewRequest(http.MethodGet, "/api/epic/QA-EPIC/issues", nil)))

			Expect(w.Code).To(Equal(http.StatusOK))
		})
	})

	Describe("TestAuth", func() {
		It("returns the authenticated user", func() {
			svc.testAuthFn = func(context.Context, issue_tracker.Credentials) (*model.TrackerUser, error) {
				return &model.TrackerUser{AccountID: "abc", DisplayName: "QA Bot"}, nil
			}

			w := serve(withCredentials(httptest.NewRequest(http.MethodPost, "/api/auth/test", nil)))

			Expect(w.Code).To(Equal(http.StatusOK))
			var data map[string]any
			Expect(json.Unmarshal(decodeEnvelope(w).Data, &data)).To(Succeed())
			Expect(data["message"]).To(Equal("authenticated"))
			Expect(data["user"]).To(HaveKeyWithValue("accountId", "abc"))
		})

		It("returns 401 when the tracker rejects the credentials", func() {
			svc.testAuthFn = func(context.Context, issue_tracker.Credentials) (*model.TrackerUser, error) {
				return nil, &issue_tracker.UpstreamRequestError{StatusCode: http.StatusUnauthorized}
			}

			w := serve(withCredentials(httptest.NewRequest(http.MethodPost, "/api/auth/test", nil)))

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			env := decodeEnvelope(w)
			Expect(env.Success).To(BeFalse())
			Expect(env.Error).To(ContainSubstring("authentication failed"))
		})
	})
})
