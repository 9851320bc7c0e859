// Package fetcher resolves upstream JSON through the TTL cache, falling back
// to the network with bounded retries. A fetch that exhausts its retries emits
// exactly one user-facing notification.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/majdjadalhaq/MovieValut/internal/circuitbreaker"
	"github.com/majdjadalhaq/MovieValut/internal/config"
	"github.com/majdjadalhaq/MovieValut/internal/httpx"
	"github.com/majdjadalhaq/MovieValut/internal/logger"
	"github.com/majdjadalhaq/MovieValut/internal/metrics"
	"github.com/majdjadalhaq/MovieValut/internal/notify"
	"github.com/majdjadalhaq/MovieValut/internal/tracing"
	"github.com/majdjadalhaq/MovieValut/internal/ttlcache"
)

// ErrCredentialMissing is returned before any network attempt when no API
// token is configured. It does not trigger a notification.
var ErrCredentialMissing = errors.New("fetcher: upstream API credential is not configured")

// ErrInvalidPayload is returned when a 2xx response body is not JSON.
var ErrInvalidPayload = errors.New("fetcher: upstream returned a non-JSON body")

// FetchError is a terminal failure: retries are exhausted, the breaker is
// open, or the payload was unusable.
type FetchError struct {
	Key string
	URL string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.Key, e.Err) }

func (e *FetchError) Unwrap() error { return e.Err }

// Options controls a single fetch. TTL <= 0 uses the cache default.
type Options struct {
	TTL       time.Duration
	SkipCache bool

	// set by Fetch once its typed lookup has missed
	cacheChecked bool
}

// Config wires a Client. Cache, Notifier, Limiter and Breaker may be nil.
type Config struct {
	HTTPClient   *http.Client
	Cache        *ttlcache.Cache
	Notifier     notify.Notifier
	Policy       httpx.Policy
	Token        string
	UserAgent    string
	Limiter      *rate.Limiter
	Breaker      *circuitbreaker.CircuitBreaker
	SingleFlight bool
}

// ConfigFrom derives a Config from application settings. Callers still set
// Cache and Notifier, and may override Policy.ShouldRetry.
func ConfigFrom(cfg *config.Config) Config {
	c := Config{
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
		Policy:     httpx.PolicyFromConfig(cfg),
		Token:      cfg.TMDBAPIToken,
		UserAgent:  cfg.UserAgent,
	}
	if cfg.UpstreamRPS > 0 {
		burst := cfg.UpstreamBurst
		if burst < 1 {
			burst = 1
		}
		c.Limiter = rate.NewLimiter(rate.Limit(cfg.UpstreamRPS), burst)
	}
	if cfg.CircuitBreakerEnabled {
		c.Breaker = circuitbreaker.New(circuitbreaker.Config{
			Name:             "upstream",
			FailureThreshold: cfg.CircuitBreakerThreshold,
			Timeout:          cfg.CircuitBreakerTimeout,
		})
	}
	c.SingleFlight = cfg.CacheSingleFlight
	return c
}

// Client is safe for concurrent use. Each call's retry sequence runs on the
// calling goroutine; distinct calls are not coordinated unless SingleFlight is set.
type Client struct {
	http      *http.Client
	cache     *ttlcache.Cache
	notifier  notify.Notifier
	policy    httpx.Policy
	token     string
	userAgent string
	limiter   *rate.Limiter
	breaker   *circuitbreaker.CircuitBreaker
	group     *singleflight.Group
	log       *slog.Logger
}

// New builds a Client from c.
func New(c Config) *Client {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if c.Notifier == nil {
		c.Notifier = notify.Nop{}
	}
	cl := &Client{
		http:      c.HTTPClient,
		cache:     c.Cache,
		notifier:  c.Notifier,
		policy:    c.Policy,
		token:     c.Token,
		userAgent: c.UserAgent,
		limiter:   c.Limiter,
		breaker:   c.Breaker,
		log:       logger.WithComponent("fetcher"),
	}
	if c.SingleFlight {
		cl.group = &singleflight.Group{}
	}
	return cl
}

// Cache returns the TTL cache, or nil if caching is disabled.
func (c *Client) Cache() *ttlcache.Cache { return c.cache }

// HasCredential reports whether an API token is configured.
func (c *Client) HasCredential() bool { return c.token != "" }

// FetchWithCache returns the JSON body for url, served from cache under key
// when fresh. On a miss it fetches with retries and caches the result.
func (c *Client) FetchWithCache(ctx context.Context, url, key string, opts Options) (json.RawMessage, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "fetcher.FetchWithCache")
	defer span.End()
	span.SetAttributes(
		attribute.String("cache.key", key),
		attribute.Bool("cache.skip", opts.SkipCache),
	)

	if !opts.SkipCache && !opts.cacheChecked && c.cache != nil {
		if data, ok := c.cache.Get(ctx, key); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			metrics.UpstreamDuration.WithLabelValues("cache").Observe(time.Since(start).Seconds())
			return data, nil
		}
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	if c.token == "" {
		logger.WarnContext(ctx, "upstream credential missing, not fetching", "component", "fetcher", "key", key)
		tracing.RecordError(span, ErrCredentialMissing)
		return nil, ErrCredentialMissing
	}

	var (
		data []byte
		err  error
	)
	if c.group != nil && !opts.SkipCache {
		// the shared fetch outlives any one waiter; each waiter leaves on its own ctx
		ch := c.group.DoChan(key, func() (any, error) {
			return c.fetch(context.WithoutCancel(ctx), url, key, opts)
		})
		select {
		case res := <-ch:
			if res.Shared {
				metrics.UpstreamCoalesced.Inc()
			}
			err = res.Err
			if err == nil {
				data = res.Val.([]byte)
			}
		case <-ctx.Done():
			err = ctx.Err()
		}
	} else {
		data, err = c.fetch(ctx, url, key, opts)
	}
	if err != nil {
		tracing.RecordError(span, err)
		metrics.UpstreamDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, err
	}
	metrics.UpstreamDuration.WithLabelValues("network").Observe(time.Since(start).Seconds())
	return data, nil
}

// fetch runs one retry sequence and settles its outcome: cache on success,
// one notification on terminal failure, silence on cancellation.
func (c *Client) fetch(ctx context.Context, url, key string, opts Options) ([]byte, error) {
	var body []byte
	call := func(ctx context.Context) error {
		b, err := c.attempt(ctx, url)
		body = b
		return err
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Call(ctx, call)
	} else {
		err = call(ctx)
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, ctxErr
		}
		fe := &FetchError{Key: key, URL: url, Err: err}
		c.log.Warn("fetch failed", "key", key, "url", url, "error", err)
		notify.Send(ctx, c.notifier, notify.FetchFailed(key, url, fe))
		return nil, fe
	}

	if !opts.SkipCache && c.cache != nil {
		c.cache.Set(ctx, key, body, opts.TTL)
	}
	return body, nil
}

// attempt performs the bounded retry sequence and reads a valid JSON body.
func (c *Client) attempt(ctx context.Context, url string) ([]byte, error) {
	build := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.token)
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}
		return req, nil
	}

	resp, err := httpx.Do(ctx, c.http, build, c.policy, c.preAttempt, c.observe)
	if err != nil {
		return nil, err
	}
	// already buffered by httpx.Do
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if !json.Valid(body) {
		return nil, ErrInvalidPayload
	}
	return body, nil
}

func (c *Client) preAttempt(ctx context.Context, attempt int) error {
	if c.limiter == nil {
		return nil
	}
	if c.limiter.Tokens() < 1 {
		metrics.UpstreamRateLimitWaits.Inc()
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) observe(info httpx.AttemptInfo) {
	if info.Wait > 0 {
		notify.Breadcrumb("upstream", fmt.Sprintf("attempt %d failed (status %d), retrying in %s", info.Attempt, info.Status, info.Wait))
	}
}

// Invalidate drops the cached entry for key.
func (c *Client) Invalidate(ctx context.Context, key string) {
	if c.cache != nil {
		c.cache.Remove(ctx, key)
	}
}

// Fetch is FetchWithCache with the payload decoded into T. Cache hits go
// through a ttlcache.Typed view, so a cached payload that no longer decodes
// into T is discarded and fetched again.
func Fetch[T any](ctx context.Context, c *Client, url, key string, opts Options) (T, error) {
	var zero T
	if !opts.SkipCache && c.cache != nil {
		start := time.Now()
		if v, ok := ttlcache.NewTyped[T](c.cache, nil).Get(ctx, key); ok {
			metrics.UpstreamDuration.WithLabelValues("cache").Observe(time.Since(start).Seconds())
			return v, nil
		}
		opts.cacheChecked = true
	}
	raw, err := c.FetchWithCache(ctx, url, key, opts)
	if err != nil {
		return zero, err
	}
	v, err := ttlcache.JSONCodec[T]{}.Decode(raw)
	if err != nil {
		c.Invalidate(ctx, key)
		return zero, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}
