package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger prints one line per request with the request id and, once
// authenticated, the caller's user id.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		var userID int64
		if actor, ok := CurrentActor(c); ok {
			userID = actor.UserID
		}
		log.Printf("[HTTP] request_id=%s method=%s path=%s status=%d bytes=%d latency_ms=%.3f ip=%s user_id=%d",
			GetRequestID(c),
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			c.Writer.Size(),
			float64(time.Since(start).Microseconds())/1000.0,
			c.ClientIP(),
			userID,
		)
	}
}
