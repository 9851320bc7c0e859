package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majdjadalhaq/MovieValut/internal/middleware"
	"github.com/majdjadalhaq/MovieValut/internal/notify"
	"github.com/majdjadalhaq/MovieValut/internal/tmdb"
)

const trendingBody = `{"page":1,"total_pages":3,"total_results":60,"results":[
	{"id":438631,"title":"Dune","poster_path":"/d5NXSklXo0qyIYkgV94XAgMIckC.jpg"},
	{"id":1399,"name":"Game of Thrones"}]}`

var movieRoutes = map[string]string{
	"/trending/movie/week": trendingBody,
	"/movie/popular":       trendingBody,
	"/discover/movie":      trendingBody,
	"/search/movie":        trendingBody,
	"/search/person":       `{"page":1,"total_pages":1,"total_results":1,"results":[{"id":976,"name":"Jason Statham","profile_path":"/js.jpg"}]}`,
	"/movie/438631":        `{"id":438631,"title":"Dune","runtime":155,"genres":[{"id":878,"name":"Science Fiction"}],"videos":{"results":[{"key":"n9xhJrPXop4","site":"YouTube","type":"Trailer","official":true}]},"credits":{"cast":[],"crew":[]}}`,
	"/genre/movie/list":    `{"genres":[{"id":28,"name":"Action"},{"id":878,"name":"Science Fiction"}]}`,
}

func TestTrending_ResponseCacheLayers(t *testing.T) {
	env := newTestEnv(t, movieRoutes, "tok")

	rr := env.do(t, http.MethodGet, "/api/movies/trending?window=week")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, cacheMiss, rr.Header().Get(middleware.CacheStatusHeader))
	assert.Equal(t, 1, env.upstream.count("/trending/movie/week"))

	var page tmdb.Page[tmdb.Movie]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	require.Len(t, page.Results, 2)
	assert.Equal(t, "https://img.example/t/p/w500/d5NXSklXo0qyIYkgV94XAgMIckC.jpg", page.Results[0].PosterURL)
	assert.Equal(t, "Game of Thrones", page.Results[1].Title)

	// served from the in-process response cache
	rr = env.do(t, http.MethodGet, "/api/movies/trending?window=week")
	assert.Equal(t, cacheHit, rr.Header().Get(middleware.CacheStatusHeader))
	assert.Equal(t, 1, env.upstream.count("/trending/movie/week"))

	// response cache gone, persistent TTL cache still answers
	env.responses.Clear()
	rr = env.do(t, http.MethodGet, "/api/movies/trending?window=week")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, cacheMiss, rr.Header().Get(middleware.CacheStatusHeader))
	assert.Equal(t, 1, env.upstream.count("/trending/movie/week"))
	assert.Zero(t, env.notes.len())
}

func TestRefreshBypassesBothCaches(t *testing.T) {
	env := newTestEnv(t, movieRoutes, "tok")

	env.do(t, http.MethodGet, "/api/movies/popular?page=1")
	rr := env.do(t, http.MethodGet, "/api/movies/popular?page=1&refresh=1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, cacheBypass, rr.Header().Get(middleware.CacheStatusHeader))
	assert.Equal(t, 2, env.upstream.count("/movie/popular"))

	// the refreshed body replaced the cached response under the same key
	rr = env.do(t, http.MethodGet, "/api/movies/popular?page=1")
	assert.Equal(t, cacheHit, rr.Header().Get(middleware.CacheStatusHeader))
	assert.Equal(t, 2, env.upstream.count("/movie/popular"))
}

func TestMovieDetails(t *testing.T) {
	env := newTestEnv(t, movieRoutes, "tok")

	rr := env.do(t, http.MethodGet, "/api/movies/438631")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var d tmdb.MovieDetails
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &d))
	assert.Equal(t, "Dune", d.Title)
	assert.Equal(t, 155, d.Runtime)
	assert.Equal(t, "https://www.youtube.com/watch?v=n9xhJrPXop4", d.TrailerURL)
}

func TestGenresAndSearch(t *testing.T) {
	env := newTestEnv(t, movieRoutes, "tok")

	rr := env.do(t, http.MethodGet, "/api/genres")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"genres":[{"id":28,"name":"Action"},{"id":878,"name":"Science Fiction"}]}`, rr.Body.String())

	rr = env.do(t, http.MethodGet, "/api/search/movies?query=dune")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/search/people?query=statham")
	require.Equal(t, http.StatusOK, rr.Code)
	var people tmdb.Page[tmdb.Person]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &people))
	require.Len(t, people.Results, 1)
	assert.Equal(t, "https://img.example/t/p/w185/js.jpg", people.Results[0].ProfileURL)
}

func TestValidationErrors(t *testing.T) {
	env := newTestEnv(t, movieRoutes, "tok")

	tests := []struct {
		name   string
		target string
		code   string
	}{
		{"bad page", "/api/movies/popular?page=two", "VALIDATION_INVALID_VALUE"},
		{"bad window", "/api/movies/trending?window=month", "VALIDATION_INVALID_FORMAT"},
		{"bad id", "/api/movies/dune", "VALIDATION_INVALID_VALUE"},
		{"missing query", "/api/search/movies?query=%20", "VALIDATION_MISSING_FIELD"},
		{"bad rating", "/api/movies/discover?min_rating=high", "VALIDATION_INVALID_VALUE"},
		{"bad sort", "/api/movies/discover?sort_by=random", "VALIDATION_INVALID_FORMAT"},
		{"bad genre", "/api/movies/discover?genre=action", "VALIDATION_INVALID_VALUE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodGet, tt.target)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			code, _ := errorBody(t, rr)
			assert.Equal(t, tt.code, code)
		})
	}
	assert.Zero(t, env.upstream.count("/trending/movie/month"))
	assert.Zero(t, env.upstream.count("/discover/movie"))
	assert.Zero(t, env.notes.len())
}

func TestUpstreamFailure(t *testing.T) {
	env := newTestEnv(t, movieRoutes, "tok")
	env.upstream.fail(http.StatusInternalServerError)

	rr := env.do(t, http.MethodGet, "/api/movies/popular")
	require.Equal(t, http.StatusBadGateway, rr.Code)
	code, msg := errorBody(t, rr)
	assert.Equal(t, "UPSTREAM_FAILED", code)
	assert.Equal(t, notify.FetchFailedMessage, msg)
	assert.Equal(t, 1, env.notes.len())
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	// nothing was cached, so the next call goes upstream again
	env.upstream.fail(0)
	rr = env.do(t, http.MethodGet, "/api/movies/popular")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2, env.upstream.count("/movie/popular"))
}

func TestUpstreamNotFound(t *testing.T) {
	env := newTestEnv(t, movieRoutes, "tok")

	rr := env.do(t, http.MethodGet, "/api/movies/42")
	require.Equal(t, http.StatusNotFound, rr.Code)
	code, _ := errorBody(t, rr)
	assert.Equal(t, "UPSTREAM_NOT_FOUND", code)
}

func TestCredentialMissing(t *testing.T) {
	env := newTestEnv(t, movieRoutes, "")

	rr := env.do(t, http.MethodGet, "/api/genres")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	code, _ := errorBody(t, rr)
	assert.Equal(t, "UPSTREAM_CREDENTIAL_MISSING", code)
	assert.Zero(t, env.upstream.count("/genre/movie/list"))
	assert.Zero(t, env.notes.len())
}

func TestResponseKeyIgnoresRefreshAndOrder(t *testing.T) {
	a := responseKey(httptestRequest("/api/movies/discover?year=2021&genre=28&refresh=1"))
	b := responseKey(httptestRequest("/api/movies/discover?genre=28&year=2021"))
	assert.Equal(t, b, a)
	assert.Equal(t, "response/api/movies/discover::genre:28|year:2021", a)
	assert.Equal(t, "response/api/genres", responseKey(httptestRequest("/api/genres")))
}
