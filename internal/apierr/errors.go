package apierr

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/majdjadalhaq/MovieValut/internal/logger"
)

// ErrorCode represents a structured error code
type ErrorCode string

// Error code constants organized by category
const (
	// AUTH_ - admin authentication
	ErrAuthMissing  ErrorCode = "AUTH_MISSING"
	ErrAuthInvalid  ErrorCode = "AUTH_INVALID"
	ErrAuthDisabled ErrorCode = "AUTH_DISABLED"

	// UPSTREAM_ - movie API failures
	ErrUpstreamCredential  ErrorCode = "UPSTREAM_CREDENTIAL_MISSING"
	ErrUpstreamFailed      ErrorCode = "UPSTREAM_FAILED"
	ErrUpstreamNotFound    ErrorCode = "UPSTREAM_NOT_FOUND"
	ErrUpstreamRateLimited ErrorCode = "UPSTREAM_RATE_LIMITED"
	ErrUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrUpstreamTimeout     ErrorCode = "UPSTREAM_TIMEOUT"

	// CACHE_ - cache administration
	ErrCacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"
	ErrCacheKeyNotFound ErrorCode = "CACHE_KEY_NOT_FOUND"

	// SYSTEM_ - System and server errors
	ErrSystemInternal    ErrorCode = "SYSTEM_INTERNAL"
	ErrSystemUnavailable ErrorCode = "SYSTEM_UNAVAILABLE"

	// VALIDATION_ - Request validation errors
	ErrValidationInvalidFormat ErrorCode = "VALIDATION_INVALID_FORMAT"
	ErrValidationMissingField  ErrorCode = "VALIDATION_MISSING_FIELD"
	ErrValidationInvalidValue  ErrorCode = "VALIDATION_INVALID_VALUE"

	// RATE_LIMIT_ - Rate limiting errors
	ErrRateLimitIP ErrorCode = "RATE_LIMIT_IP"
)

// Error represents a structured API error
type Error struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	status    int
}

// ErrorResponse is the top-level error response wrapper
type ErrorResponse struct {
	Error *Error `json:"error"`
}

// New creates a new API error
func New(code ErrorCode, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		status:  status,
	}
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// WithRequestID adds a request ID to the error
func (e *Error) WithRequestID(requestID string) *Error {
	e.RequestID = requestID
	return e
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Status returns the HTTP status code
func (e *Error) Status() int {
	return e.status
}

// WriteError writes a structured error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(err.Status())
	json.NewEncoder(w).Encode(ErrorResponse{Error: err})
}

func orDefault(message, def string) string {
	if message == "" {
		return def
	}
	return message
}

// AuthMissing creates an authentication missing error
func AuthMissing(message string) *Error {
	return New(ErrAuthMissing, orDefault(message, "Authentication required"), http.StatusUnauthorized)
}

// AuthInvalid creates an invalid authentication error
func AuthInvalid(message string) *Error {
	return New(ErrAuthInvalid, orDefault(message, "Invalid authentication credentials"), http.StatusUnauthorized)
}

// AuthDisabled is returned by admin routes when ADMIN_API_TOKEN is unset.
func AuthDisabled() *Error {
	return New(ErrAuthDisabled, "Admin API is disabled", http.StatusForbidden)
}

// UpstreamCredentialMissing is returned when no movie API token is configured.
func UpstreamCredentialMissing() *Error {
	return New(ErrUpstreamCredential, "Movie API credential is not configured", http.StatusServiceUnavailable)
}

// UpstreamFailed wraps a terminal upstream failure.
func UpstreamFailed(message string) *Error {
	return New(ErrUpstreamFailed, orDefault(message, "We hit a snag fetching fresh data."), http.StatusBadGateway)
}

// UpstreamNotFound maps an upstream 404.
func UpstreamNotFound(resourceType string) *Error {
	return New(ErrUpstreamNotFound, resourceType+" not found", http.StatusNotFound).
		WithDetails(map[string]any{"resource_type": resourceType})
}

// UpstreamRateLimited maps an upstream 429.
func UpstreamRateLimited() *Error {
	return New(ErrUpstreamRateLimited, "Movie API rate limit reached, try again shortly", http.StatusTooManyRequests)
}

// UpstreamUnavailable is returned while the upstream circuit breaker is open.
func UpstreamUnavailable() *Error {
	return New(ErrUpstreamUnavailable, "Movie API is temporarily unavailable", http.StatusServiceUnavailable)
}

// UpstreamTimeout is returned when the request deadline passes mid-fetch.
func UpstreamTimeout() *Error {
	return New(ErrUpstreamTimeout, "Movie API request timed out", http.StatusGatewayTimeout)
}

// CacheUnavailable is returned by admin routes when the store is down.
func CacheUnavailable() *Error {
	return New(ErrCacheUnavailable, "Cache store is unavailable", http.StatusServiceUnavailable)
}

// CacheKeyNotFound is returned when an admin lookup misses.
func CacheKeyNotFound(key string) *Error {
	return New(ErrCacheKeyNotFound, "Cache key not found", http.StatusNotFound).
		WithDetails(map[string]any{"key": key})
}

// SystemInternal creates an internal server error
func SystemInternal(message string) *Error {
	return New(ErrSystemInternal, orDefault(message, "Internal server error"), http.StatusInternalServerError)
}

// SystemUnavailable creates a service unavailable error
func SystemUnavailable(message string) *Error {
	return New(ErrSystemUnavailable, orDefault(message, "Service unavailable"), http.StatusServiceUnavailable)
}

// ValidationInvalidFormat creates an invalid format error
func ValidationInvalidFormat(message string) *Error {
	return New(ErrValidationInvalidFormat, orDefault(message, "Invalid request format"), http.StatusBadRequest)
}

// ValidationMissingField creates a missing field error
func ValidationMissingField(field string) *Error {
	return New(ErrValidationMissingField, "Missing required field: "+field, http.StatusBadRequest).
		WithDetails(map[string]any{"field": field})
}

// ValidationInvalidValue creates an invalid value error
func ValidationInvalidValue(field string, message string) *Error {
	return New(ErrValidationInvalidValue, orDefault(message, "Invalid value for field: "+field), http.StatusBadRequest).
		WithDetails(map[string]any{"field": field})
}

// RateLimitIP creates an IP rate limit error
func RateLimitIP() *Error {
	return New(ErrRateLimitIP, "Rate limit exceeded - too many requests from your IP", http.StatusTooManyRequests)
}

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		return reqID
	}
	return ""
}

// WriteErrorWithContext writes a structured error response with request ID from context
func WriteErrorWithContext(w http.ResponseWriter, r *http.Request, err *Error) {
	if reqID := GetRequestID(r.Context()); reqID != "" {
		err = err.WithRequestID(reqID)
	}
	WriteError(w, err)
}
