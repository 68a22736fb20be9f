package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/qareport/internal/http/handler"
	"basegraph.app/qareport/internal/service"
)

type RouterConfig struct {
	MetricsPath    string
	MetricsHandler http.Handler
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", handler.Health)

	if cfg.MetricsHandler != nil && cfg.MetricsPath != "" {
		router.GET(cfg.MetricsPath, gin.WrapH(cfg.MetricsHandler))
	}

	api := router.Group("/api")
	{
		proxyHandler := handler.NewProxyHandler(services.Proxy())
		ProxyRouter(api, proxyHandler)

		reportHandler := handler.NewReportHandler(services.Reports())
		ReportRouter(api.Group("/reports"), reportHandler)
	}
}
