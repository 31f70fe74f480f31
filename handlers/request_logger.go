package handlers

import (
	"time"

	"decktrack/api/logging"

	"github.com/gin-gonic/gin"
)

// requestLogger replaces gin's default text logger with one structured line
// per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := logging.Info()
		if status >= 500 {
			ev = logging.Error()
		} else if c.Request.URL.Path == "/metrics" || c.Request.URL.Path == "/health" {
			ev = logging.Debug()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}
