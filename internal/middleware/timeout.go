package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// DefaultGrace is the time a request may run beyond the routing timeout.
const DefaultGrace = 5 * time.Second

// RouteDeadline bounds each request to routerTimeout plus grace.
//
// Every per-mode call to the routing API is already capped by routerTimeout
// on its http.Client, so a slow backend settles its modes as transport
// failures and the handler answers 502 with those failures well before this
// deadline. The deadline only catches work that outlives every mode: if it
// expired and the handler wrote nothing, the client gets a 503 naming the
// budget that was exceeded.
//
// A non-positive grace uses DefaultGrace.
func RouteDeadline(routerTimeout, grace time.Duration) gin.HandlerFunc {
	if grace <= 0 {
		grace = DefaultGrace
	}
	budget := routerTimeout + grace

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), budget)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if ctx.Err() == nil || c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"error":    "route calculation did not finish in time",
			"budgetMs": budget.Milliseconds(),
		})
	}
}
