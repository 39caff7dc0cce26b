package middleware

import (
	"time"

	"complaintdesk/backend/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Logger writes one line per request. 5xx log at error, 4xx at warn.
func Logger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		}

		if id, ok := auth.FromContext(c.Request.Context()); ok {
			event = event.Str("account_id", id.AccountID)
		}
		event.
			Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Str("client_ip", c.ClientIP()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("request_id", c.Writer.Header().Get(RequestIDHeader)).
			Msg("http request")
	}
}
