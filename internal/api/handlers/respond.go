package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/majdjadalhaq/MovieValut/internal/apierr"
	"github.com/majdjadalhaq/MovieValut/internal/circuitbreaker"
	"github.com/majdjadalhaq/MovieValut/internal/fetcher"
	"github.com/majdjadalhaq/MovieValut/internal/logger"
	"github.com/majdjadalhaq/MovieValut/internal/tmdb"
)

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRaw writes an already encoded JSON body.
func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// upstreamError maps a failed lookup onto the API error envelope.
func upstreamError(err error, resource string) *apierr.Error {
	switch {
	case errors.Is(err, tmdb.ErrInvalidArgument):
		msg := strings.TrimPrefix(err.Error(), tmdb.ErrInvalidArgument.Error()+": ")
		return apierr.ValidationInvalidFormat(msg)
	case errors.Is(err, fetcher.ErrCredentialMissing):
		return apierr.UpstreamCredentialMissing()
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return apierr.UpstreamUnavailable()
	case errors.Is(err, context.DeadlineExceeded):
		return apierr.UpstreamTimeout()
	}
	if apiErr, ok := tmdb.AsAPIError(err); ok {
		switch apiErr.Type {
		case tmdb.ErrorNotFound:
			return apierr.UpstreamNotFound(resource)
		case tmdb.ErrorRateLimited:
			return apierr.UpstreamRateLimited()
		}
	}
	return apierr.UpstreamFailed("")
}

// writeUpstreamError logs and writes err. Client disconnects are only logged.
func writeUpstreamError(w http.ResponseWriter, r *http.Request, err error, resource string) {
	if errors.Is(err, context.Canceled) {
		logger.DebugContext(r.Context(), "request cancelled by client", "path", r.URL.Path)
		return
	}
	apiErr := upstreamError(err, resource)
	if apiErr.Status() >= http.StatusInternalServerError {
		logger.WithRequestID(r.Context()).Warn("upstream lookup failed",
			"path", r.URL.Path, "code", apiErr.Code, "error", err)
	}
	apierr.WriteErrorWithContext(w, r, apiErr)
}

// pageParam reads ?page=, defaulting to 1. Out-of-range pages are clamped by
// the movie API client.
func pageParam(r *http.Request) (int, *apierr.Error) {
	v := r.URL.Query().Get("page")
	if v == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apierr.ValidationInvalidValue("page", "page must be an integer")
	}
	return n, nil
}

// intParam reads an optional integer query parameter; zero means unset.
func intParam(r *http.Request, name string) (int, *apierr.Error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apierr.ValidationInvalidValue(name, name+" must be an integer")
	}
	return n, nil
}

// refreshParam reports whether the caller asked to bypass every cache layer.
func refreshParam(r *http.Request) bool {
	v := strings.ToLower(r.URL.Query().Get("refresh"))
	return v == "1" || v == "true" || v == "yes"
}
