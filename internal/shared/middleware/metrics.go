package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/thumbfast/server/internal/shared/metrics"
)

const unmatchedRoute = "unmatched"

// Metrics records request count, latency and response size per route
// pattern. Requests to any of skip (usually the scrape endpoint itself) are
// not recorded.
func Metrics(m *metrics.Metrics, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}

	return func(c *gin.Context) {
		route := c.FullPath()
		if skipped[route] {
			c.Next()
			return
		}
		if route == "" {
			route = unmatchedRoute
		}

		m.HTTPRequestsInFlight.Inc()
		start := time.Now()
		defer func() {
			m.HTTPRequestsInFlight.Dec()
			m.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start), c.Writer.Size())
		}()

		c.Next()
	}
}
