package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Tracker TrackerConfig
	Report  ReportConfig
	CORS    CORSConfig
	OTel    OTelConfig
	Metrics MetricsConfig
	Env     string
	Port    string
	NodeID  int64
}

type TrackerConfig struct {
	BaseURL        string
	Timeout        time.Duration
	SearchPageSize int // upstream search rejects more than 100 keys per query
	EpicPageSize   int
}

type ReportConfig struct {
	VocabularyFile string
	SessionTTL     time.Duration
	MaxSessions    int
}

// CORSConfig lists the browser origins allowed to call the API. Empty allows any origin.
type CORSConfig struct {
	AllowedOrigins []string
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type MetricsConfig struct {
	Path string
}

type ServiceType string

const (
	ServiceTypeServer ServiceType = "server"
	ServiceTypeCLI    ServiceType = "cli"
)

const (
	DefaultSearchPageSize = 100
	DefaultEpicPageSize   = 150
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.server for the proxy server
//   - .env.cli for the report CLI
//
// Falls back to .env if service-specific file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("QAREPORT_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:    getEnv("QAREPORT_ENV", "development"),
		Port:   getEnv("PORT", "3000"),
		NodeID: int64(getEnvInt("NODE_ID", 1)),
		Tracker: TrackerConfig{
			BaseURL:        strings.TrimSuffix(getEnv("JIRA_BASE_URL", "https://jsdev.atlassian.net"), "/"),
			Timeout:        getEnvDuration("JIRA_TIMEOUT", 30*time.Second),
			SearchPageSize: getEnvInt("JIRA_SEARCH_PAGE_SIZE", DefaultSearchPageSize),
			EpicPageSize:   getEnvInt("JIRA_EPIC_PAGE_SIZE", DefaultEpicPageSize),
		},
		Report: ReportConfig{
			VocabularyFile: getEnv("VOCABULARY_FILE", ""),
			SessionTTL:     getEnvDuration("REPORT_SESSION_TTL", 2*time.Hour),
			MaxSessions:    getEnvInt("REPORT_MAX_SESSIONS", 500),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "qareport"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		Metrics: MetricsConfig{
			Path: getEnv("METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.Tracker.BaseURL == "" {
		return fmt.Errorf("JIRA_BASE_URL is required")
	}
	if c.Tracker.SearchPageSize <= 0 || c.Tracker.SearchPageSize > DefaultSearchPageSize {
		return fmt.Errorf("JIRA_SEARCH_PAGE_SIZE must be between 1 and %d, got %d", DefaultSearchPageSize, c.Tracker.SearchPageSize)
	}
	if c.Tracker.EpicPageSize <= 0 {
		return fmt.Errorf("JIRA_EPIC_PAGE_SIZE must be positive, got %d", c.Tracker.EpicPageSize)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c MetricsConfig) Enabled() bool {
	return c.Path != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
