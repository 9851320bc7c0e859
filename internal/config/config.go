package config

import (
	"os"
	"strings"
	"time"

	"github.com/majdjadalhaq/MovieValut/internal/utils"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	// Upstream movie API
	TMDBBaseURL      string
	TMDBImageBaseURL string
	TMDBAPIToken     string
	TMDBLanguage     string
	UserAgent        string

	// Retry policy for upstream calls
	HTTPMaxRetries        int
	HTTPRetryBase         time.Duration
	HTTPRetryJitter       time.Duration
	HTTPTimeout           time.Duration
	HTTPRetryClientErrors bool
	LogHTTPRetries        bool

	// TTL cache
	CacheTTL          time.Duration
	CachePrefix       string
	CacheIndexKey     string
	CacheSingleFlight bool

	// Key-value store backing the TTL cache
	StoreDriver     string // memory, sqlite, postgres, redis
	StorePath       string
	DatabaseURL     string
	RedisURL        string
	StoreQuotaBytes int64

	// In-process response cache used by the HTTP handlers
	ResponseCacheMB      int64
	ResponseCacheEntries int64
	ResponseCacheTTL     time.Duration

	// Upstream pacing
	UpstreamRPS   float64
	UpstreamBurst int

	// Circuit breaker around upstream calls
	CircuitBreakerEnabled   bool
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration

	// HTTP server
	ListenAddr          string
	AdminAPIToken       string
	CORSAllowedOrigins  []string
	APIRateLimitEnabled bool
	APIRateLimitRPS     float64
	APIRateLimitBurst   int

	// Observability settings
	LogLevel          string  // log level: debug, info, warn, error
	OTELEnabled       bool    // enable OpenTelemetry tracing
	OTELEndpoint      string  // OpenTelemetry collector endpoint
	OTELSampleRate    float64 // trace sampling rate (0.0 to 1.0)
	SentryDSN         string
	SentryEnvironment string
	SentryRelease     string
}

// DefaultTTL is the cache lifetime used when neither the caller nor CACHE_TTL_MS overrides it.
const DefaultTTL = 10 * time.Minute

var cached *Config

// Load reads env vars once and caches them.
func Load() *Config {
	if cached != nil {
		return cached
	}
	cached = &Config{
		TMDBBaseURL:      strings.TrimRight(utils.GetEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"), "/"),
		TMDBImageBaseURL: strings.TrimRight(utils.GetEnv("TMDB_IMAGE_BASE_URL", "https://image.tmdb.org/t/p"), "/"),
		TMDBAPIToken:     strings.TrimSpace(os.Getenv("TMDB_API_TOKEN")),
		TMDBLanguage:     utils.GetEnv("TMDB_LANGUAGE", "en-US"),
		UserAgent:        utils.GetEnv("USER_AGENT", "movievault/0.1"),

		HTTPMaxRetries:        utils.GetEnvAsInt("HTTP_MAX_RETRIES", 2),
		HTTPRetryBase:         utils.GetEnvAsMillis("HTTP_RETRY_BASE_MS", 450),
		HTTPRetryJitter:       utils.GetEnvAsMillis("HTTP_RETRY_JITTER_MS", 0),
		HTTPTimeout:           utils.GetEnvAsMillis("HTTP_TIMEOUT_MS", 15000),
		HTTPRetryClientErrors: utils.GetEnvAsBool("HTTP_RETRY_CLIENT_ERRORS", true),
		LogHTTPRetries:        utils.GetEnvAsBool("LOG_HTTP_RETRIES", false),

		CacheTTL:          utils.GetEnvAsMillis("CACHE_TTL_MS", int(DefaultTTL/time.Millisecond)),
		CachePrefix:       utils.GetEnv("CACHE_PREFIX", "movievault:cache:"),
		CacheIndexKey:     utils.GetEnv("CACHE_INDEX_KEY", "movievault:cache-index"),
		CacheSingleFlight: utils.GetEnvAsBool("CACHE_SINGLEFLIGHT", false),

		StoreDriver:     strings.ToLower(utils.GetEnv("STORE_DRIVER", "sqlite")),
		StorePath:       utils.GetEnv("STORE_PATH", "movievault.db"),
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:        strings.TrimSpace(os.Getenv("REDIS_URL")),
		StoreQuotaBytes: utils.GetEnvAsInt64("STORE_QUOTA_BYTES", 5*1024*1024),

		ResponseCacheMB:      utils.GetEnvAsInt64("RESPONSE_CACHE_MB", 16),
		ResponseCacheEntries: utils.GetEnvAsInt64("RESPONSE_CACHE_ENTRIES", 2000),
		ResponseCacheTTL:     utils.GetEnvAsMillis("RESPONSE_CACHE_TTL_MS", 30000),

		UpstreamRPS:   utils.GetEnvAsFloat("UPSTREAM_RPS", 40),
		UpstreamBurst: utils.GetEnvAsInt("UPSTREAM_BURST", 20),

		CircuitBreakerEnabled:   utils.GetEnvAsBool("CIRCUIT_BREAKER_ENABLED", false),
		CircuitBreakerThreshold: utils.GetEnvAsInt("CIRCUIT_BREAKER_THRESHOLD", 5),
		CircuitBreakerTimeout:   utils.GetEnvAsMillis("CIRCUIT_BREAKER_TIMEOUT_MS", 30000),

		ListenAddr:    utils.GetEnv("LISTEN_ADDR", ":8080"),
		AdminAPIToken: strings.TrimSpace(os.Getenv("ADMIN_API_TOKEN")),
		CORSAllowedOrigins: utils.GetEnvAsSlice("CORS_ALLOWED_ORIGINS",
			[]string{"http://localhost:5173", "http://localhost:3000"}, ","),
		APIRateLimitEnabled: utils.GetEnvAsBool("API_RATE_LIMIT_ENABLED", true),
		APIRateLimitRPS:     utils.GetEnvAsFloat("API_RATE_LIMIT_RPS", 10),
		APIRateLimitBurst:   utils.GetEnvAsInt("API_RATE_LIMIT_BURST", 20),

		LogLevel:          strings.ToLower(utils.GetEnv("LOG_LEVEL", "info")),
		OTELEnabled:       utils.GetEnvAsBool("OTEL_ENABLED", false),
		OTELEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTELSampleRate:    utils.GetEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
		SentryDSN:         strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		SentryEnvironment: utils.GetEnv("SENTRY_ENVIRONMENT", utils.GetEnv("ENV", "development")),
		SentryRelease:     utils.GetEnv("SENTRY_RELEASE", utils.GetEnv("SERVICE_VERSION", "dev")),
	}
	if cached.HTTPMaxRetries < 0 {
		cached.HTTPMaxRetries = 0
	}
	if cached.CacheTTL <= 0 {
		cached.CacheTTL = DefaultTTL
	}
	return cached
}

// ResetForTest clears cached config; for use in tests only.
func ResetForTest() { cached = nil }

// SearchTTL is the shorter lifetime used for volatile search-adjacent lookups.
func (c *Config) SearchTTL() time.Duration {
	return c.CacheTTL / 2
}
