// Package server assembles the cache stack, movie API client and HTTP API
// into one runnable process.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/majdjadalhaq/MovieValut/internal/api"
	"github.com/majdjadalhaq/MovieValut/internal/api/handlers"
	"github.com/majdjadalhaq/MovieValut/internal/cache"
	"github.com/majdjadalhaq/MovieValut/internal/config"
	"github.com/majdjadalhaq/MovieValut/internal/kvstore"
	"github.com/majdjadalhaq/MovieValut/internal/logger"
	"github.com/majdjadalhaq/MovieValut/internal/metrics"
	"github.com/majdjadalhaq/MovieValut/internal/middleware"
	"github.com/majdjadalhaq/MovieValut/internal/notify"
	"github.com/majdjadalhaq/MovieValut/internal/secrets"
	"github.com/majdjadalhaq/MovieValut/internal/tmdb"
	"github.com/majdjadalhaq/MovieValut/internal/ttlcache"
)

const (
	shutdownTimeout = 10 * time.Second
	statsInterval   = 30 * time.Second
)

type Server struct {
	cfg       *config.Config
	store     *kvstore.Adapter
	cache     *ttlcache.Cache
	responses cache.Cache
	hub       *handlers.Hub
	limiter   *middleware.RateLimiter
	collector *metrics.Collector
	handler   http.Handler
}

// New opens the configured store and wires every component. A store that
// fails its probe does not fail startup; the service runs uncached.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	store, err := kvstore.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	responses, err := cache.NewFromConfig(cfg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("response cache: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		store:     store,
		cache:     ttlcache.New(store, ttlcache.OptionsFromConfig(cfg)),
		responses: responses,
		hub:       handlers.NewHub(middleware.CORSConfigFromConfig(cfg).CheckOrigin),
		limiter:   middleware.NewRateLimiterFromConfig(cfg),
	}
	s.collector = metrics.NewCollector(s.cache, statsInterval)

	notifier := notify.Multi{notify.Log{}, notify.Sentry{}, s.hub}
	client := tmdb.NewFromConfig(cfg, s.cache, notifier)
	if !client.Fetcher().HasCredential() {
		logger.Warn("TMDB_API_TOKEN is not set; movie endpoints will answer 503")
	} else {
		logger.Info("upstream credential configured", "token", secrets.Mask(cfg.TMDBAPIToken))
	}

	s.handler = api.NewRouter(api.Deps{
		Config:      cfg,
		Movies:      handlers.NewMovieHandlers(client, responses),
		CacheAdmin:  handlers.NewCacheAdminHandler(s.cache, responses),
		Hub:         s.hub,
		Health:      handlers.Health(s.cache, client.Fetcher().HasCredential()),
		RateLimiter: s.limiter,
	})

	logger.Info("server configured",
		"store", store.Backend(),
		"store_available", store.Available(),
		"cache_ttl", cfg.CacheTTL,
		"max_retries", cfg.HTTPMaxRetries,
		"singleflight", cfg.CacheSingleFlight,
		"circuit_breaker", cfg.CircuitBreakerEnabled)
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs background workers and the HTTP server on ln. When ctx is
// cancelled it stops accepting requests, drains in-flight ones and
// disconnects websocket clients.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go s.hub.Run(hubCtx)
	go s.collector.Start(ctx)
	defer s.collector.Stop()

	// a cache miss may sit through every upstream attempt and its backoff
	writeTimeout := s.cfg.HTTPTimeout*time.Duration(s.cfg.HTTPMaxRetries+1) + 30*time.Second
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server")
	// websocket connections are hijacked and not tracked by Shutdown
	stopHub()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases the store and background resources.
func (s *Server) Close() error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if c, ok := s.responses.(interface{ Close() }); ok {
		c.Close()
	}
	return s.store.Close()
}
