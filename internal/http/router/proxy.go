package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/qareport/internal/http/handler"
)

func ProxyRouter(rg *gin.RouterGroup, h *handler.ProxyHandler) {
	rg.GET("/issue/:key", h.Issue)
	rg.POST("/issues/search", h.Search)
	rg.GET("/epic/:key/issues", h.EpicIssues)
	rg.POST("/auth/test", h.TestAuth)
}
