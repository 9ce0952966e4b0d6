package middleware

import (
	"io"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/techpathlabs/milestonedesk/pkg/logger"
)

// Recovery turns a handler panic into a logged 500. When the handler had
// already started the response only the abort is applied.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		ctx := c.Request.Context()
		logger.Error(ctx, "handler panicked",
			"panic", recovered,
			"route", c.FullPath(),
			"session_id", c.GetString("session_id"),
			"stack", string(debug.Stack()),
		)

		if c.Writer.Written() {
			c.Abort()
			return
		}

		body := gin.H{"error": "Internal server error"}
		if id := GetRequestID(c); id != "" {
			body["request_id"] = id
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	})
}
