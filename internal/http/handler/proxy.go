package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"basegraph.app/qareport/common/logger"
	"basegraph.app/qareport/internal/http/dto"
	"basegraph.app/qareport/internal/service"
	"basegraph.app/qareport/internal/service/issue_tracker"
)

const authFailedMessage = "authentication failed: check the username and API token"

type ProxyHandler struct {
	proxyService service.ProxyService
}

func NewProxyHandler(proxyService service.ProxyService) *ProxyHandler {
	return &ProxyHandler{proxyService: proxyService}
}

func (h *ProxyHandler) Issue(c *gin.Context) {
	key := c.Param("key")
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{IssueKey: logger.Ptr(key)})

	creds, ok := requireCredentials(c)
	if !ok {
		return
	}

	issue, err := h.proxyService.Issue(ctx, creds, key)
	if err != nil {
		c.JSON(statusFor(err, http.StatusBadRequest), dto.Fail(err.Error()))
		return
	}

	c.JSON(http.StatusOK, dto.OK(issue))
}

func (h *ProxyHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()

	creds, ok := requireCredentials(c)
	if !ok {
		return
	}

	var req dto.SearchIssuesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Fail(err.Error()))
		return
	}

	result, err := h.proxyService.Search(ctx, creds, req.IssueKeys)
	if err != nil {
		c.JSON(statusFor(err, http.StatusBadRequest), dto.Fail(err.Error()))
		return
	}

	c.JSON(http.StatusOK, dto.OK(dto.ToSearchResponse(result)))
}

func (h *ProxyHandler) EpicIssues(c *gin.Context) {
	key := c.Param("key")
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{EpicKey: logger.Ptr(key)})

	creds, ok := requireCredentials(c)
	if !ok {
		return
	}

	result, err := h.proxyService.EpicIssues(ctx, creds, key)
	if err != nil {
		c.JSON(statusFor(err, http.StatusInternalServerError), dto.Fail(err.Error()))
		return
	}

	c.JSON(http.StatusOK, dto.OK(dto.ToSearchResponse(result)))
}

func (h *ProxyHandler) TestAuth(c *gin.Context) {
	ctx := c.Request.Context()

	creds, ok := requireCredentials(c)
	if !ok {
		return
	}

	user, err := h.proxyService.TestAuth(ctx, creds)
	if err != nil {
		c.JSON(http.StatusUnauthorized, dto.Fail(authFailedMessage))
		return
	}

	c.JSON(http.StatusOK, dto.OK(dto.AuthTestResponse{
		Message: "authenticated",
		User:    *user,
	}))
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func requireCredentials(c *gin.Context) (issue_tracker.Credentials, bool) {
	creds := credentialsFromHeaders(c)
	if !creds.Valid() {
		c.JSON(http.StatusUnauthorized, dto.Fail(issue_tracker.ErrMissingCredentials.Error()))
		return creds, false
	}
	return creds, true
}

// statusFor maps errors that have a fixed status regardless of endpoint; anything else
// gets fallback.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, issue_tracker.ErrMissingCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNoIssueKeys):
		return http.StatusBadRequest
	default:
		return fallback
	}
}
