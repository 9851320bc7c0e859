package httpx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/majdjadalhaq/MovieValut/internal/config"
	"github.com/majdjadalhaq/MovieValut/internal/logger"
	"github.com/majdjadalhaq/MovieValut/internal/metrics"
	"github.com/majdjadalhaq/MovieValut/internal/tracing"
)

// Note: In Go 1.20+, the global random number generator is automatically seeded.
// No explicit seeding is required for rand.Int63n used in retry jitter.

const maxErrorBody = 4 << 10

// PreAttempt lets callers run logic (e.g., rate limiting) before each try; return an error to abort.
type PreAttempt func(ctx context.Context, attempt int) error

// AttemptInfo describes a single attempt outcome. Attempt is 0-based.
type AttemptInfo struct {
	Attempt int
	Method  string
	URL     string
	Status  int
	Err     error
	Wait    time.Duration
}

// Observer callback to report attempt telemetry.
type Observer func(info AttemptInfo)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryDecider reports whether a failed attempt should be retried. It is
// only consulted for failures: a transport error or a non-2xx response.
type RetryDecider func(status int, body []byte, err error) bool

// Policy controls the retry loop. The first attempt is always made;
// MaxRetries more follow on failure, each preceded by
// BaseDelay*(attempt+1) plus up to Jitter of random delay.
type Policy struct {
	MaxRetries      int
	BaseDelay       time.Duration
	Jitter          time.Duration
	HonorRetryAfter bool
	ShouldRetry     RetryDecider
	Sleep           SleepFunc
	LogRetries      bool
}

// PolicyFromConfig builds the default policy from config.
func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		MaxRetries:      cfg.HTTPMaxRetries,
		BaseDelay:       cfg.HTTPRetryBase,
		Jitter:          cfg.HTTPRetryJitter,
		HonorRetryAfter: true,
		LogRetries:      cfg.LogHTTPRetries,
	}
}

// Backoff returns the linear delay applied after the given 0-based attempt fails.
func (p Policy) Backoff(attempt int) time.Duration {
	d := p.BaseDelay * time.Duration(attempt+1)
	if p.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	return d
}

// StatusError is a non-2xx response. Body holds at most the first 4KiB.
type StatusError struct {
	StatusCode int
	URL        string
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpx: %s returned %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// RetryError is returned once the loop gives up. It wraps the last failure.
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("httpx: giving up after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }

// SleepContext is the default SleepFunc.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs build+client.Do until a 2xx response, retrying failures under p.
// Attempts are strictly sequential. A 2xx body is read in full inside the
// attempt, so a connection dropped mid-body is retried like any transport
// error; the returned resp.Body is an in-memory copy.
// A cancelled ctx ends the loop with ctx.Err() rather than a RetryError.
func Do(ctx context.Context, client *http.Client, build func(ctx context.Context) (*http.Request, error), p Policy, pre PreAttempt, obs Observer) (*http.Response, error) {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	log := logger.WithRequestID(ctx).With("component", "httpx")

	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if pre != nil {
			if err := pre(ctx, attempt); err != nil {
				return nil, err
			}
		}
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}

		actx, span := tracing.StartSpan(ctx, "httpx.attempt")
		span.SetAttributes(
			attribute.Int("http.attempt", attempt),
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
		)
		resp, err := client.Do(req.WithContext(actx))

		info := AttemptInfo{Attempt: attempt, Method: req.Method, URL: req.URL.String()}
		var body []byte
		var retryAfter string
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				tracing.RecordError(span, ctxErr)
				span.End()
				return nil, ctxErr
			}
			lastErr = err
			info.Err = err
		} else {
			span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
			ok := resp.StatusCode >= 200 && resp.StatusCode < 300
			if ok {
				if body, err = io.ReadAll(resp.Body); err != nil {
					resp.Body.Close()
					if ctxErr := ctx.Err(); ctxErr != nil {
						tracing.RecordError(span, ctxErr)
						span.End()
						return nil, ctxErr
					}
					ok = false
					lastErr = fmt.Errorf("read body: %w", err)
					info.Err = lastErr
					body = nil
				} else {
					resp.Body.Close()
					resp.Body = io.NopCloser(bytes.NewReader(body))
				}
			}
			if ok {
				span.End()
				metrics.UpstreamRequests.WithLabelValues("success").Inc()
				if p.LogRetries && attempt > 0 {
					log.Info("request succeeded after retry", "attempt", attempt, "method", req.Method, "url", req.URL.String(), "status", resp.StatusCode)
				}
				info.Status = resp.StatusCode
				if obs != nil {
					obs(info)
				}
				return resp, nil
			}
			if info.Err == nil {
				body, _ = io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
				resp.Body.Close()
				retryAfter = resp.Header.Get("Retry-After")
				lastErr = &StatusError{StatusCode: resp.StatusCode, URL: req.URL.String(), Body: body}
				info.Status = resp.StatusCode
				info.Err = lastErr
			}
		}
		tracing.RecordError(span, lastErr)
		span.End()

		retryable := p.ShouldRetry == nil || p.ShouldRetry(info.Status, body, info.Err)
		if attempt == p.MaxRetries || !retryable {
			metrics.UpstreamRequests.WithLabelValues("failure").Inc()
			if p.LogRetries {
				log.Warn("giving up", "attempt", attempt, "method", req.Method, "url", req.URL.String(), "status", info.Status, "error", lastErr, "retryable", retryable)
			}
			if obs != nil {
				obs(info)
			}
			return nil, &RetryError{Attempts: attempt + 1, Err: lastErr}
		}

		wait := p.Backoff(attempt)
		if p.HonorRetryAfter {
			if ra := parseRetryAfter(retryAfter); ra > wait {
				wait = ra
			}
		}
		info.Wait = wait
		metrics.UpstreamRequests.WithLabelValues("retry").Inc()
		metrics.UpstreamRetries.Inc()
		metrics.UpstreamBackoff.Observe(wait.Seconds())
		if p.LogRetries {
			log.Info("backing off", "attempt", attempt, "wait", wait, "method", req.Method, "url", req.URL.String(), "status", info.Status, "error", lastErr)
		}
		if obs != nil {
			obs(info)
		}
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, &RetryError{Attempts: p.MaxRetries + 1, Err: lastErr}
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
