package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/contentsafety/internal/observability"
	"github.com/yungbote/contentsafety/internal/platform/ctxutil"
	"github.com/yungbote/contentsafety/internal/safety/httpapi/response"
	"github.com/yungbote/contentsafety/internal/safety/ratelimit"
)

var errRateLimited = errors.New("too many requests")

// RateLimit rejects requests whose client key has no tokens left. A nil
// limiter disables it.
func RateLimit(l *ratelimit.Limiter, m *observability.Metrics) gin.HandlerFunc {
	if l == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		key := c.ClientIP()
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil && td.ClientKey != "" {
			key = td.ClientKey
		}
		d := l.Check(key)
		if d.Remaining >= 0 {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		}
		if !d.Allowed {
			m.IncRateLimitDenied()
			retryAfter := d.RetryAfterSeconds
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			response.AbortError(c, http.StatusTooManyRequests, "rate_limited", errRateLimited)
			return
		}
		c.Next()
	}
}
