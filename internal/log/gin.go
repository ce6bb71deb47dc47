package log

import (
	"time"

	"github.com/gin-gonic/gin"
)

// GinLogger logs one line per request. Only the route pattern is logged, so
// session ids in paths stay out of request logs.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := Info()
		if status >= 500 {
			event = Error()
		} else if status >= 400 {
			event = Warn()
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		event.
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Int("size", c.Writer.Size())
		if msg := c.Errors.ByType(gin.ErrorTypePrivate).String(); msg != "" {
			event.Str("error", msg)
		}
		event.Msg("request")
	}
}
