// Package httputil provides shared HTTP response helpers.
package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// retryAfterSeconds is the hint attached to every 429 response.
const retryAfterSeconds = 1

// ErrorBody is the structured error payload nested under "error".
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// RespondError writes a standardized JSON error envelope and aborts the request.
// Details must never contain credential material.
func RespondError(c *gin.Context, status int, code, message string, details ...any) {
	body := ErrorBody{Code: code, Message: message}

	if rid, exists := c.Get("request_id"); exists {
		if s, ok := rid.(string); ok {
			body.RequestID = s
		}
	}
	if len(details) > 0 {
		body.Details = details[0]
	}

	if status == http.StatusTooManyRequests {
		c.Header("Retry-After", "1")
		if body.Details == nil {
			body.Details = map[string]int{"retry_after_seconds": retryAfterSeconds}
		}
	}

	c.AbortWithStatusJSON(status, gin.H{"error": body})
}
