package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/techpathlabs/milestonedesk/pkg/logger"
)

// RequestIDHeader is echoed back on every response
const RequestIDHeader = "X-Request-ID"

const (
	requestIDKey       = "request_id"
	maxRequestIDLength = 128
)

// RequestID tags each request with an id. A caller supplied id is reused
// when it is short printable ASCII; anything else is replaced by a UUID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID, ok := acceptRequestID(c.GetHeader(RequestIDHeader))
		if !ok {
			requestID = uuid.NewString()
		}

		c.Header(RequestIDHeader, requestID)
		c.Set(requestIDKey, requestID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID))

		c.Next()
	}
}

func acceptRequestID(raw string) (string, bool) {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxRequestIDLength {
		return "", false
	}
	if strings.IndexFunc(id, func(r rune) bool { return r < '!' || r > '~' }) >= 0 {
		return "", false
	}
	return id, true
}

// GetRequestID returns the id set by RequestID, or "" outside it
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
