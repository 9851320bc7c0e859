package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/spf13/cast"

	"github.com/majdjadalhaq/MovieValut/internal/apierr"
	"github.com/majdjadalhaq/MovieValut/internal/cache"
	"github.com/majdjadalhaq/MovieValut/internal/cachekey"
	"github.com/majdjadalhaq/MovieValut/internal/middleware"
	"github.com/majdjadalhaq/MovieValut/internal/tmdb"
)

// X-Cache values.
const (
	cacheHit    = "HIT"
	cacheMiss   = "MISS"
	cacheBypass = "BYPASS"
)

// MovieHandlers serves the read-only movie endpoints. Rendered bodies are kept
// in an in-process response cache in front of the persistent TTL cache.
type MovieHandlers struct {
	client    *tmdb.Client
	responses cache.Cache
}

// NewMovieHandlers wires handlers to the movie API client. A nil response
// cache disables that layer.
func NewMovieHandlers(client *tmdb.Client, responses cache.Cache) *MovieHandlers {
	if responses == nil {
		responses = cache.Nop{}
	}
	return &MovieHandlers{client: client, responses: responses}
}

// loader performs one lookup against the movie API.
type loader func(ctx context.Context, opts ...tmdb.CallOption) (any, error)

// serve answers from the response cache when possible, otherwise runs load
// and stores the encoded result. ?refresh=1 skips both cache reads and writes
// the fresh result back.
func (h *MovieHandlers) serve(w http.ResponseWriter, r *http.Request, resource string, load loader) {
	key := responseKey(r)
	refresh := refreshParam(r)

	if !refresh {
		if body, ok := h.responses.Get(key); ok {
			w.Header().Set(middleware.CacheStatusHeader, cacheHit)
			writeRaw(w, http.StatusOK, body)
			return
		}
	}

	v, err := load(r.Context(), tmdb.Refresh(refresh))
	if err != nil {
		writeUpstreamError(w, r, err, resource)
		return
	}
	body, err := json.Marshal(v)
	if err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.SystemInternal(""))
		return
	}
	h.responses.Set(key, body, 0)

	status := cacheMiss
	if refresh {
		status = cacheBypass
	}
	w.Header().Set(middleware.CacheStatusHeader, status)
	writeRaw(w, http.StatusOK, body)
}

// responseKey derives the response cache key from the route and its query,
// ignoring the refresh flag.
func responseKey(r *http.Request) string {
	q := r.URL.Query()
	params := make(map[string]any, len(q))
	for k, vs := range q {
		if k == "refresh" {
			continue
		}
		params[k] = strings.Join(vs, ",")
	}
	return cachekey.Build("response"+r.URL.Path, params)
}

func pathID(r *http.Request) (int, *apierr.Error) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		return 0, apierr.ValidationInvalidValue("id", "id must be a positive integer")
	}
	return id, nil
}

// Trending handles GET /api/movies/trending?window=day|week&page=
func (h *MovieHandlers) Trending(w http.ResponseWriter, r *http.Request) {
	page, perr := pageParam(r)
	if perr != nil {
		apierr.WriteErrorWithContext(w, r, perr)
		return
	}
	window := r.URL.Query().Get("window")
	h.serve(w, r, "trending", func(ctx context.Context, opts ...tmdb.CallOption) (any, error) {
		return h.client.Trending(ctx, window, page, opts...)
	})
}

type pageFunc func(ctx context.Context, page int, opts ...tmdb.CallOption) (tmdb.Page[tmdb.Movie], error)

// listing adapts a plain paginated endpoint into a handler.
func (h *MovieHandlers) listing(resource string, fn pageFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, perr := pageParam(r)
		if perr != nil {
			apierr.WriteErrorWithContext(w, r, perr)
			return
		}
		h.serve(w, r, resource, func(ctx context.Context, opts ...tmdb.CallOption) (any, error) {
			return fn(ctx, page, opts...)
		})
	}
}

// Popular handles GET /api/movies/popular?page=
func (h *MovieHandlers) Popular(w http.ResponseWriter, r *http.Request) {
	h.listing("popular", h.client.Popular)(w, r)
}

// TopRated handles GET /api/movies/top_rated?page=
func (h *MovieHandlers) TopRated(w http.ResponseWriter, r *http.Request) {
	h.listing("top_rated", h.client.TopRated)(w, r)
}

// Upcoming handles GET /api/movies/upcoming?page=
func (h *MovieHandlers) Upcoming(w http.ResponseWriter, r *http.Request) {
	h.listing("upcoming", h.client.Upcoming)(w, r)
}

// Discover handles GET /api/movies/discover?genre=&year=&sort_by=&min_rating=&page=
func (h *MovieHandlers) Discover(w http.ResponseWriter, r *http.Request) {
	page, perr := pageParam(r)
	if perr != nil {
		apierr.WriteErrorWithContext(w, r, perr)
		return
	}
	genre, perr := intParam(r, "genre")
	if perr != nil {
		apierr.WriteErrorWithContext(w, r, perr)
		return
	}
	year, perr := intParam(r, "year")
	if perr != nil {
		apierr.WriteErrorWithContext(w, r, perr)
		return
	}
	var minRating float64
	if v := r.URL.Query().Get("min_rating"); v != "" {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("min_rating", "min_rating must be a number"))
			return
		}
		minRating = f
	}
	filter := tmdb.DiscoverFilter{
		Genre:     genre,
		Year:      year,
		SortBy:    r.URL.Query().Get("sort_by"),
		MinRating: minRating,
	}
	h.serve(w, r, "discover", func(ctx context.Context, opts ...tmdb.CallOption) (any, error) {
		return h.client.Discover(ctx, filter, page, opts...)
	})
}

// Movie handles GET /api/movies/{id}
func (h *MovieHandlers) Movie(w http.ResponseWriter, r *http.Request) {
	id, perr := pathID(r)
	if perr != nil {
		apierr.WriteErrorWithContext(w, r, perr)
		return
	}
	h.serve(w, r, "movie", func(ctx context.Context, opts ...tmdb.CallOption) (any, error) {
		return h.client.Movie(ctx, id, opts...)
	})
}

// Genres handles GET /api/genres
func (h *MovieHandlers) Genres(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "genres", func(ctx context.Context, opts ...tmdb.CallOption) (any, error) {
		genres, err := h.client.Genres(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return map[string]any{"genres": genres}, nil
	})
}

// Collection handles GET /api/collections/{id}
func (h *MovieHandlers) Collection(w http.ResponseWriter, r *http.Request) {
	id, perr := pathID(r)
	if perr != nil {
		apierr.WriteErrorWithContext(w, r, perr)
		return
	}
	h.serve(w, r, "collection", func(ctx context.Context, opts ...tmdb.CallOption) (any, error) {
		return h.client.Collection(ctx, id, opts...)
	})
}

// Person handles GET /api/people/{id}
func (h *MovieHandlers) Person(w http.ResponseWriter, r *http.Request) {
	id, perr := pathID(r)
	if perr != nil {
		apierr.WriteErrorWithContext(w, r, perr)
		return
	}
	h.serve(w, r, "person", func(ctx context.Context, opts ...tmdb.CallOption) (any, error) {
		return h.client.Person(ctx, id, opts...)
	})
}
