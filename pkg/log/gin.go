package log

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// GinMiddleware puts the base logger into every request context and logs the outcome.
// Server errors log at error level, client errors at warn, the rest at debug.
func GinMiddleware(base context.Context) gin.HandlerFunc {
	logger := FromCtx(base)

	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))

		c.Next()

		status := c.Writer.Status()
		event := logger.Debug()
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		}

		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	}
}
