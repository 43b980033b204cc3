package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const corsMaxAge = 12 * time.Hour

// CORS allows the browser UI served from origins to call the API. An empty
// list, or one containing "*", allows any origin. Rate limit and request id
// headers are exposed so the UI can show remaining quota.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", AccessPasswordHeader, RequestIDHeader},
		ExposeHeaders: []string{
			"Content-Length",
			RequestIDHeader,
			RateLimitLimit,
			RateLimitRemaining,
			RetryAfter,
		},
		MaxAge: corsMaxAge,
	}
	if anyOrigin(origins) {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func anyOrigin(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
