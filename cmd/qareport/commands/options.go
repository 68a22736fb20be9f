package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"basegraph.app/qareport/common/logger"
	"basegraph.app/qareport/core/config"
	"basegraph.app/qareport/internal/service/issue_tracker"
)

const envPrefix = "QAREPORT"

var (
	ErrMissingSource     = errors.New("one of --epic or --issues is required")
	ErrConflictingSource = errors.New("--epic and --issues are mutually exclusive")
)

// trackerOptions are shared by every command that talks to the tracker.
type trackerOptions struct {
	BaseURL        string
	Username       string
	Password       string
	Timeout        time.Duration
	SearchPageSize int
	EpicPageSize   int
	Vocabulary     string
	Verbose        bool
}

func (o trackerOptions) credentials() issue_tracker.Credentials {
	return issue_tracker.Credentials{Username: o.Username, Password: o.Password}
}

func (o trackerOptions) trackerConfig() config.TrackerConfig {
	return config.TrackerConfig{
		BaseURL:        strings.TrimSuffix(o.BaseURL, "/"),
		Timeout:        o.Timeout,
		SearchPageSize: o.SearchPageSize,
		EpicPageSize:   o.EpicPageSize,
	}
}

func addTrackerFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("base-url", "https://jsdev.atlassian.net", "tracker base URL")
	flags.String("username", "", "tracker username (or QAREPORT_USERNAME)")
	flags.String("password", "", "tracker API token (or QAREPORT_PASSWORD)")
	flags.Duration("timeout", 30*time.Second, "per-request timeout")
	flags.Int("search-page-size", config.DefaultSearchPageSize, "keys per search request")
	flags.Int("epic-page-size", config.DefaultEpicPageSize, "issues per epic page")
	flags.String("vocabulary", "", "YAML vocabulary file for localized tracker names")
	flags.BoolP("verbose", "v", false, "debug logging")
}

// newViper binds the command's flags with QAREPORT_* environment fallbacks.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}
	return v, nil
}

func loadTrackerOptions(v *viper.Viper) (trackerOptions, error) {
	opts := trackerOptions{
		BaseURL:        v.GetString("base-url"),
		Username:       v.GetString("username"),
		Password:       v.GetString("password"),
		Timeout:        v.GetDuration("timeout"),
		SearchPageSize: v.GetInt("search-page-size"),
		EpicPageSize:   v.GetInt("epic-page-size"),
		Vocabulary:     v.GetString("vocabulary"),
		Verbose:        v.GetBool("verbose"),
	}

	cfg := config.Config{Tracker: opts.trackerConfig()}
	if err := cfg.Validate(); err != nil {
		return trackerOptions{}, err
	}
	if !opts.credentials().Valid() {
		return trackerOptions{}, fmt.Errorf("%w (set --username/--password or %s_USERNAME/%s_PASSWORD)",
			issue_tracker.ErrMissingCredentials, envPrefix, envPrefix)
	}
	return opts, nil
}

func setupLogging(verbose bool) {
	env := "cli"
	if verbose {
		env = "development"
	}
	slog.SetDefault(slog.New(logger.NewHandler(config.Config{Env: env}, os.Stderr)))
}
