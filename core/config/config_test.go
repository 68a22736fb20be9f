package config_test

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/qareport/core/config"
)

func setEnv(key, value string) {
	previous, had := os.LookupEnv(key)
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(func() {
		if had {
			_ = os.Setenv(key, previous)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

var _ = Describe("Load", func() {
	BeforeEach(func() {
		setEnv("QAREPORT_ENV", "test")
	})

	It("reads tracker and report settings from the environment", func() {
		setEnv("JIRA_BASE_URL", "https://tracker.example.com/")
		setEnv("JIRA_TIMEOUT", "5s")
		setEnv("JIRA_EPIC_PAGE_SIZE", "50")
		setEnv("REPORT_SESSION_TTL", "30m")
		setEnv("REPORT_MAX_SESSIONS", "10")

		cfg, err := config.Load(config.ServiceTypeServer)

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Tracker.BaseURL).To(Equal("https://tracker.example.com"))
		Expect(cfg.Tracker.Timeout).To(Equal(5 * time.Second))
		Expect(cfg.Tracker.SearchPageSize).To(Equal(config.DefaultSearchPageSize))
		Expect(cfg.Tracker.EpicPageSize).To(Equal(50))
		Expect(cfg.Report.SessionTTL).To(Equal(30 * time.Minute))
		Expect(cfg.Report.MaxSessions).To(Equal(10))
	})

	It("rejects search pages above the tracker limit", func() {
		setEnv("JIRA_SEARCH_PAGE_SIZE", "101")

		_, err := config.Load(config.ServiceTypeServer)

		Expect(err).To(MatchError(ContainSubstring("JIRA_SEARCH_PAGE_SIZE")))
	})

	It("disables telemetry without an endpoint", func() {
		setEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

		cfg, err := config.Load(config.ServiceTypeServer)

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.OTel.Enabled()).To(BeFalse())
		Expect(cfg.IsProduction()).To(BeFalse())
	})

	It("splits allowed CORS origins and allows any origin by default", func() {
		setEnv("CORS_ALLOWED_ORIGINS", "")
		cfg, err := config.Load(config.ServiceTypeServer)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.CORS.AllowedOrigins).To(BeEmpty())

		setEnv("CORS_ALLOWED_ORIGINS", " http://localhost:5173, ,https://qa.example.com ")
		cfg, err = config.Load(config.ServiceTypeServer)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.CORS.AllowedOrigins).To(Equal([]string{"http://localhost:5173", "https://qa.example.com"}))
	})
})
