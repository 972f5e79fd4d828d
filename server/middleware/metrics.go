package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/whisperbatch/observability"
)

// Metrics records request count, duration and in-flight requests per route
// template. Unmatched requests share the "unmatched" route label.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		start := time.Now()
		m.RecordRequestStart(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordRequestEnd(ctx, c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
