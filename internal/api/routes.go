package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/majdjadalhaq/MovieValut/internal/api/handlers"
	"github.com/majdjadalhaq/MovieValut/internal/config"
	"github.com/majdjadalhaq/MovieValut/internal/middleware"
)

// publicMaxAge is how long browsers may reuse a public read without revalidating.
const publicMaxAge = time.Minute

// Deps are the handlers and shared components the router mounts.
type Deps struct {
	Config      *config.Config
	Movies      *handlers.MovieHandlers
	CacheAdmin  *handlers.CacheAdminHandler
	Hub         *handlers.Hub
	Health      http.HandlerFunc
	RateLimiter *middleware.RateLimiter // nil disables per-client limiting
}

// NewRouter builds the full HTTP handler, including the outer middleware chain.
func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	r := mux.NewRouter()
	r.Use(middleware.Metrics)

	r.HandleFunc("/health", d.Health).Methods(http.MethodGet, http.MethodHead)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	if d.Hub != nil {
		r.HandleFunc("/ws/notifications", d.Hub.ServeWS).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	if d.RateLimiter != nil {
		api.Use(d.RateLimiter.Limit)
	}

	// Public reads: conditional GET and compression
	etag := middleware.ETag(publicMaxAge, cfg.CacheTTL)
	read := func(h http.HandlerFunc) http.Handler {
		return middleware.Compress(etag(h))
	}
	m := d.Movies
	api.Handle("/movies/trending", read(m.Trending)).Methods(http.MethodGet)
	api.Handle("/movies/popular", read(m.Popular)).Methods(http.MethodGet)
	api.Handle("/movies/top_rated", read(m.TopRated)).Methods(http.MethodGet)
	api.Handle("/movies/upcoming", read(m.Upcoming)).Methods(http.MethodGet)
	api.Handle("/movies/discover", read(m.Discover)).Methods(http.MethodGet)
	api.Handle("/movies/{id:[0-9]+}", read(m.Movie)).Methods(http.MethodGet)
	api.Handle("/genres", read(m.Genres)).Methods(http.MethodGet)
	api.Handle("/search/movies", read(m.SearchMovies)).Methods(http.MethodGet)
	api.Handle("/search/people", read(m.SearchPeople)).Methods(http.MethodGet)
	api.Handle("/search/collections", read(m.SearchCollections)).Methods(http.MethodGet)
	api.Handle("/collections/{id:[0-9]+}", read(m.Collection)).Methods(http.MethodGet)
	api.Handle("/people/{id:[0-9]+}", read(m.Person)).Methods(http.MethodGet)

	// Admin
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(AdminOnly(cfg.AdminAPIToken))
	a := d.CacheAdmin
	admin.HandleFunc("/cache/clear", a.ClearCache).Methods(http.MethodPost)
	admin.HandleFunc("/cache/entries", a.ListEntries).Methods(http.MethodGet)
	admin.HandleFunc("/cache/entries", a.DeleteEntry).Methods(http.MethodDelete)
	admin.HandleFunc("/cache/stats", a.GetCacheStats).Methods(http.MethodGet)

	debug := r.PathPrefix("/debug/pprof").Subrouter()
	debug.Use(AdminOnly(cfg.AdminAPIToken))
	handlers.RegisterPprof(debug)

	cors := middleware.CORSConfigFromConfig(cfg)
	var h http.Handler = r
	h = middleware.SecurityHeaders(h)
	h = middleware.CORS(cors)(h)
	h = middleware.RecoverWithSentry(h)
	h = middleware.RequestID(h)
	return h
}
