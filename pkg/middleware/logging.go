package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tourcraft/tourcraft/pkg/logger"
)

// RequestLogger logs one structured line per request. Health probes are
// logged at debug level.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		l := logger.With(
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
		)
		if id, ok := CurrentIdentity(c); ok {
			l = l.With("sub", id.Sub)
		}
		switch {
		case c.FullPath() == "/health" || c.FullPath() == "/ready":
			l.Debug("request")
		case c.Writer.Status() >= 500:
			l.Errorw("request", "errors", c.Errors.String())
		case c.Writer.Status() >= 400:
			l.Warn("request")
		default:
			l.Info("request")
		}
	}
}
