package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nguyenvh/custodesk/pkg/metrics"
)

// Metrics observes per-request latency labelled by method, route and
// status. Unmatched requests collapse into a single label so probes against
// random paths cannot blow up series cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		metrics.APILatency.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
