package tmdb

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/majdjadalhaq/MovieValut/internal/httpx"
)

// ErrorType represents different types of upstream API errors
type ErrorType int

const (
	ErrorUnknown ErrorType = iota
	ErrorRateLimited
	ErrorNotFound
	ErrorForbidden
	ErrorServerError
	ErrorBadRequest
	ErrorUnauthorized
	ErrorTransport
)

func (t ErrorType) String() string {
	switch t {
	case ErrorRateLimited:
		return "rate_limited"
	case ErrorNotFound:
		return "not_found"
	case ErrorForbidden:
		return "forbidden"
	case ErrorServerError:
		return "server_error"
	case ErrorBadRequest:
		return "bad_request"
	case ErrorUnauthorized:
		return "unauthorized"
	case ErrorTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// APIError represents an upstream API error with additional context
type APIError struct {
	Type       ErrorType
	StatusCode int
	Code       int
	Message    string
	Retryable  bool
}

func (e *APIError) Error() string {
	return e.Message
}

// errorResponse is the JSON body the movie API returns on failure.
type errorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Success       *bool  `json:"success"`
}

// ClassifyStatus determines the type of error from a status code and body.
func ClassifyStatus(status int, body []byte) *APIError {
	var upstream errorResponse
	if len(body) > 0 {
		_ = json.Unmarshal(body, &upstream)
	}

	apiErr := &APIError{
		StatusCode: status,
		Code:       upstream.StatusCode,
		Type:       ErrorUnknown,
	}

	switch status {
	case http.StatusTooManyRequests:
		apiErr.Type = ErrorRateLimited
		apiErr.Message = "rate limited by movie API"
		apiErr.Retryable = true

	case http.StatusNotFound:
		apiErr.Type = ErrorNotFound
		apiErr.Message = "resource not found (404)"

	case http.StatusForbidden:
		apiErr.Type = ErrorForbidden
		apiErr.Message = "forbidden (403)"

	case http.StatusUnauthorized:
		apiErr.Type = ErrorUnauthorized
		apiErr.Message = "unauthorized (401) - check TMDB_API_TOKEN"
		// upstream auth backends occasionally flap
		apiErr.Retryable = true

	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		apiErr.Type = ErrorBadRequest
		apiErr.Message = "bad request"

	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		apiErr.Type = ErrorServerError
		apiErr.Message = "movie API server error (5xx)"
		apiErr.Retryable = true

	default:
		if status >= 500 {
			apiErr.Type = ErrorServerError
			apiErr.Message = "server error"
			apiErr.Retryable = true
		} else if status >= 400 {
			apiErr.Type = ErrorBadRequest
			apiErr.Message = "client error"
		} else {
			apiErr.Message = "unexpected status"
		}
	}

	if upstream.StatusMessage != "" {
		apiErr.Message += ": " + upstream.StatusMessage
	}
	return apiErr
}

// AsAPIError extracts the classified upstream failure from err, if any.
// Transport failures are reported as ErrorTransport.
func AsAPIError(err error) (*APIError, bool) {
	if err == nil {
		return nil, false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var se *httpx.StatusError
	if errors.As(err, &se) {
		return ClassifyStatus(se.StatusCode, se.Body), true
	}
	var re *httpx.RetryError
	if errors.As(err, &re) {
		return &APIError{Type: ErrorTransport, Message: re.Err.Error(), Retryable: true}, true
	}
	return nil, false
}

// IsRetryable checks if an error should be retried
func IsRetryable(err *APIError) bool {
	return err != nil && err.Retryable
}

// RetryClassified is an httpx.RetryDecider that only spends retry budget on
// transport failures and retryable status classes.
func RetryClassified(status int, body []byte, err error) bool {
	if status == 0 {
		return true
	}
	return IsRetryable(ClassifyStatus(status, body))
}
