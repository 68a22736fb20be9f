package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"basegraph.app/qareport/common/id"
	"basegraph.app/qareport/common/logger"
	"basegraph.app/qareport/common/observability"
	"basegraph.app/qareport/common/otel"
	"basegraph.app/qareport/core/config"
	"basegraph.app/qareport/internal/http/middleware"
	httprouter "basegraph.app/qareport/internal/http/router"
	"basegraph.app/qareport/internal/report"
	"basegraph.app/qareport/internal/service"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled() {
		metrics, err = observability.SetupPrometheus()
		if err != nil {
			slog.ErrorContext(ctx, "failed to initialize metrics", "error", err)
			os.Exit(1)
		}
	}

	slog.InfoContext(ctx, "qareport starting",
		"env", cfg.Env,
		"service", cfg.OTel.ServiceName,
		"tracker", cfg.Tracker.BaseURL)

	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	vocab, err := report.LoadVocabulary(cfg.Report.VocabularyFile)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load vocabulary", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "vocabulary loaded",
		"file", cfg.Report.VocabularyFile,
		"defect_type", vocab.IssueTypes.Defect,
		"priorities", len(vocab.Priorities))

	services, err := service.NewServices(cfg, vocab, nil)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create services", "error", err)
		os.Exit(1)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services, metrics)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Epic and multi-chunk fetches run inside the request.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if err := metrics.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "metrics shutdown error", "error", err)
	}

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, services *service.Services, metrics *observability.Metrics) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context → CORS answers preflights
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger("/health", cfg.Metrics.Path))
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	routerCfg := httprouter.RouterConfig{}
	if metrics != nil {
		routerCfg.MetricsPath = cfg.Metrics.Path
		routerCfg.MetricsHandler = metrics.Handler()
	}
	httprouter.SetupRoutes(router, services, routerCfg)

	return router
}

const banner = `
 ██████╗  █████╗     ██████╗ ███████╗██████╗  ██████╗ ██████╗ ████████╗
██╔═══██╗██╔══██╗    ██╔══██╗██╔════╝██╔══██╗██╔═══██╗██╔══██╗╚══██╔══╝
██║   ██║███████║    ██████╔╝█████╗  ██████╔╝██║   ██║██████╔╝   ██║
██║▄▄ ██║██╔══██║    ██╔══██╗██╔══╝  ██╔═══╝ ██║   ██║██╔══██╗   ██║
╚██████╔╝██║  ██║    ██║  ██║███████╗██║     ╚██████╔╝██║  ██║   ██║
 ╚══▀▀═╝ ╚═╝  ╚═╝    ╚═╝  ╚═╝╚══════╝╚═╝      ╚═════╝ ╚═╝  ╚═╝   ╚═╝
`
