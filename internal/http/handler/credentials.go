package handler

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/qareport/internal/service/issue_tracker"
)

// credentialsFromHeaders reads tracker credentials from the username/password headers,
// falling back to their x- prefixed forms.
func credentialsFromHeaders(c *gin.Context) issue_tracker.Credentials {
	return issue_tracker.Credentials{
		Username: firstHeader(c, "username", "x-username"),
		Password: firstHeader(c, "password", "x-password"),
	}
}

func firstHeader(c *gin.Context, names ...string) string {
	for _, name := range names {
		if v := c.GetHeader(name); v != "" {
			return v
		}
	}
	return ""
}
