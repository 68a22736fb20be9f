package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// credentialHeaders carry tracker credentials on every proxied request.
var credentialHeaders = []string{"username", "password", "x-username", "x-password"}

// CORS lets the browser front end call the API with credential headers. With no allowed
// origins every origin is accepted and echoed back, so cookies and credentials still work.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders:     append([]string{"Content-Type", "Authorization"}, credentialHeaders...),
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		cfg.AllowOrigins = allowedOrigins
	} else {
		cfg.AllowOriginFunc = func(string) bool { return true }
	}
	return cors.New(cfg)
}
