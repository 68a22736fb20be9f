package middleware_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/qareport/internal/http/middleware"
)

var _ = Describe("middleware", func() {
	var (
		router *gin.Engine
		logs   *bytes.Buffer
	)

	BeforeEach(func() {
		logs = &bytes.Buffer{}
		previous := slog.Default()
		slog.SetDefault(slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelInfo})))
		DeferCleanup(slog.SetDefault, previous)

		router = gin.New()
		router.Use(middleware.Recovery(), middleware.Logger("/health"))
		router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
		router.GET("/api/issue/:key", func(c *gin.Context) { c.Status(http.StatusOK) })
		router.GET("/boom", func(c *gin.Context) { panic("boom") })
	})

	It("turns panics into a 500 envelope", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).To(MatchJSON(`{"success":false,"error":"internal server error"}`))
		Expect(logs.String()).To(ContainSubstring("panic recovered"))
	})

	It("logs credential presence but never the values", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/issue/QA-1", nil)
		req.Header.Set("username", "qa@example.com")
		req.Header.Set("password", "super-secret")

		router.ServeHTTP(httptest.NewRecorder(), req)

		Expect(logs.String()).To(ContainSubstring("has_credentials=true"))
		Expect(logs.String()).To(ContainSubstring("route=/api/issue/:key"))
		Expect(logs.String()).NotTo(ContainSubstring("super-secret"))
		Expect(logs.String()).NotTo(ContainSubstring("qa@example.com"))
	})

	It("keeps quiet paths below info", func() {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

		Expect(logs.String()).To(BeEmpty())
	})
})

var _ = Describe("CORS", func() {
	const origin = "http://localhost:5173"

	newRouter := func(allowedOrigins ...string) *gin.Engine {
		router := gin.New()
		router.Use(middleware.Recovery(), middleware.Logger("/health"), middleware.CORS(allowedOrigins))
		router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
		router.POST("/api/issues/search", func(c *gin.Context) { c.Status(http.StatusOK) })
		return router
	}

	preflight := func(router *gin.Engine, from string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/issues/search", nil)
		req.Header.Set("Origin", from)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "content-type,username,password")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("answers preflights for routes without an OPTIONS handler", func() {
		w := preflight(newRouter(), origin)

		Expect(w.Code).To(Equal(http.StatusNoContent))
		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal(origin))
		Expect(w.Header().Get("Access-Control-Allow-Credentials")).To(Equal("true"))
		Expect(w.Header().Get("Access-Control-Allow-Methods")).To(ContainSubstring(http.MethodDelete))

		allowed := strings.ToLower(w.Header().Get("Access-Control-Allow-Headers"))
		for _, h := range []string{"content-type", "authorization", "username", "password", "x-username", "x-password"} {
			Expect(allowed).To(ContainSubstring(h))
		}
	})

	It("echoes the origin on simple requests", func() {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()

		newRouter().ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal(origin))
	})

	It("restricts origins when an allow list is configured", func() {
		router := newRouter("https://qa.example.com")

		Expect(preflight(router, "https://qa.example.com").Code).To(Equal(http.StatusNoContent))
		Expect(preflight(router, origin).Code).To(Equal(http.StatusForbidden))
	})
})
