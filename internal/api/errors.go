package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loglens/loglens/internal/httputil"
	"github.com/loglens/loglens/internal/metrics"
	"github.com/loglens/loglens/internal/models"
)

// Error code constants for standardized API responses.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeForbidden       = "forbidden"
	ErrCodeNotFound        = "not_found"
	ErrCodeConflict        = "conflict"
	ErrCodePayloadTooLarge = "payload_too_large"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeTimeout         = "timeout"
	ErrCodeInternal        = "internal"
)

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}

// respondDomainError maps a domain error to its HTTP status and code. The
// message is the error text except for internal failures, which get a generic
// message so internals never leak.
func respondDomainError(c *gin.Context, err error) {
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.Is(err, models.ErrEmptyBody),
		errors.Is(err, models.ErrBadFraming),
		errors.Is(err, models.ErrMissingOwner),
		errors.Is(err, models.ErrMissingName):
		respondError(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, models.ErrTenantNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, models.ErrBadCredential),
		errors.Is(err, models.ErrTenantRevoked):
		respondError(c, http.StatusForbidden, ErrCodeForbidden, "invalid credentials")
	case errors.Is(err, models.ErrDuplicateTenant):
		respondError(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, models.ErrRateLimited):
		respondError(c, http.StatusTooManyRequests, ErrCodeRateLimited, err.Error())
	case errors.As(err, &maxBytesErr):
		respondError(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "request body too large")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(c, http.StatusGatewayTimeout, ErrCodeTimeout, "operation timed out")
	default:
		respondError(c, http.StatusInternalServerError, ErrCodeInternal, "internal error")
	}
}
