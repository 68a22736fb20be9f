package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/qareport/internal/http/handler"
)

func ReportRouter(rg *gin.RouterGroup, h *handler.ReportHandler) {
	rg.POST("", h.Create)
	rg.GET("/schema", h.Schema)
	rg.GET("/:id", h.Get)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/refresh", h.Refresh)
	rg.DELETE("/:id/issues/:issueId", h.RemoveIssue)
	rg.GET("/:id/html", h.HTML)
	rg.GET("/:id/text", h.Text)
}
