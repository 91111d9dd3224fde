// Package middleware provides the gin middleware of the campaign API.
package middleware

import (
	"github.com/cnec/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// RequestIDKey is the gin context key and header holding the request id
const RequestIDKey = "X-Request-ID"

// requestIDContextKey is the gin key the request id is stored under
const requestIDContextKey = "request_id"

// GetRequestID returns the request id assigned by RequestID
func GetRequestID(c *gin.Context) string {
	if id := c.GetString(requestIDContextKey); id != "" {
		return id
	}
	return truncate(c.GetHeader(RequestIDKey), MaxRequestIDLength)
}

// abort answers with the error envelope and stops the chain
func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
