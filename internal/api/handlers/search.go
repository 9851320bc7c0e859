package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/majdjadalhaq/MovieValut/internal/apierr"
	"github.com/majdjadalhaq/MovieValut/internal/tmdb"
)

const maxQueryLength = 200

// searchRequest validates ?query= and ?page=.
func searchRequest(r *http.Request) (string, int, *apierr.Error) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		return "", 0, apierr.ValidationMissingField("query")
	}
	if len(query) > maxQueryLength {
		return "", 0, apierr.ValidationInvalidValue("query", "query is too long")
	}
	page, perr := pageParam(r)
	if perr != nil {
		return "", 0, perr
	}
	return query, page, nil
}

// SearchMovies handles GET /api/search/movies?query=&page=
func (h *MovieHandlers) SearchMovies(w http.ResponseWriter, r *http.Request) {
	query, page, perr := searchRequest(r)
	if perr != nil {
		apierr.WriteErrorWithContext(w, r, perr)
		return
	}
	h.serve(w, r, "search", func(ctx context.Context, opts ...tmdb.CallOption) (any, error) {
		return h.client.SearchMovies(ctx, query, page, opts...)
	})
}

// SearchPeople handles GET /api/search/people?query=&page=
func (h *MovieHandlers) SearchPeople(w http.ResponseWriter, r *http.Request) {
	query, page, perr := searchRequest(r)
	if perr != nil {
		apierr.WriteErrorWithContext(w, r, perr)
		return
	}
	h.serve(w, r, "person", func(ctx context.Context, opts ...tmdb.CallOption) (any, error) {
		return h.client.SearchPeople(ctx, query, page, opts...)
	})
}

// SearchCollections handles GET /api/search/collections?query=&page=
func (h *MovieHandlers) SearchCollections(w http.ResponseWriter, r *http.Request) {
	query, page, perr := searchRequest(r)
	if perr != nil {
		apierr.WriteErrorWithContext(w, r, perr)
		return
	}
	h.serve(w, r, "collection", func(ctx context.Context, opts ...tmdb.CallOption) (any, error) {
		return h.client.SearchCollections(ctx, query, page, opts...)
	})
}
