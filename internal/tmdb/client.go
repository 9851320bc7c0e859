// Package tmdb exposes typed endpoints of the movie metadata API. Every call
// derives a cache key from its namespace and parameters and resolves through
// the fetcher's read-through cache.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/majdjadalhaq/MovieValut/internal/cachekey"
	"github.com/majdjadalhaq/MovieValut/internal/config"
	"github.com/majdjadalhaq/MovieValut/internal/fetcher"
	"github.com/majdjadalhaq/MovieValut/internal/notify"
	"github.com/majdjadalhaq/MovieValut/internal/ttlcache"
)

// MaxPage is the highest page the upstream API will serve.
const MaxPage = 500

// ErrInvalidArgument is returned for requests rejected before any lookup.
var ErrInvalidArgument = errors.New("tmdb: invalid argument")

// Cache namespaces.
const (
	NSTrending          = "trending"
	NSPopular           = "popular"
	NSTopRated          = "top_rated"
	NSUpcoming          = "upcoming"
	NSDiscover          = "discover"
	NSSearch            = "search"
	NSSearchPeople      = "search_people"
	NSSearchCollections = "search_collections"
	NSMovie             = "movie"
	NSGenres            = "genres"
	NSCollection        = "collection"
	NSPerson            = "person"
)

var sortOrders = map[string]bool{
	"popularity.desc":           true,
	"popularity.asc":            true,
	"vote_average.desc":         true,
	"vote_average.asc":          true,
	"primary_release_date.desc": true,
	"primary_release_date.asc":  true,
	"revenue.desc":              true,
}

// Options configures a Client.
type Options struct {
	BaseURL      string
	ImageBaseURL string
	Language     string
	// SearchTTL applies to person and collection searches.
	SearchTTL time.Duration
}

// Client is safe for concurrent use.
type Client struct {
	fetch     *fetcher.Client
	baseURL   string
	imageBase string
	language  string
	searchTTL time.Duration
}

// New wraps f.
func New(f *fetcher.Client, opts Options) *Client {
	return &Client{
		fetch:     f,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		imageBase: strings.TrimRight(opts.ImageBaseURL, "/"),
		language:  opts.Language,
		searchTTL: opts.SearchTTL,
	}
}

// NewFromConfig builds the fetcher and client from application settings.
// With HTTP_RETRY_CLIENT_ERRORS=false only retryable failures consume retry budget.
func NewFromConfig(cfg *config.Config, cache *ttlcache.Cache, n notify.Notifier) *Client {
	fc := fetcher.ConfigFrom(cfg)
	fc.Cache = cache
	fc.Notifier = n
	if !cfg.HTTPRetryClientErrors {
		fc.Policy.ShouldRetry = RetryClassified
	}
	return New(fetcher.New(fc), Options{
		BaseURL:      cfg.TMDBBaseURL,
		ImageBaseURL: cfg.TMDBImageBaseURL,
		Language:     cfg.TMDBLanguage,
		SearchTTL:    cfg.SearchTTL(),
	})
}

// Fetcher returns the underlying fetch client.
func (c *Client) Fetcher() *fetcher.Client { return c.fetch }

// CallOption adjusts a single call.
type CallOption func(*fetcher.Options)

// Refresh bypasses the cache for both read and write.
func Refresh(skip bool) CallOption {
	return func(o *fetcher.Options) { o.SkipCache = skip }
}

// WithTTL overrides the cache lifetime for this call.
func WithTTL(d time.Duration) CallOption {
	return func(o *fetcher.Options) { o.TTL = d }
}

// request is one resolved endpoint call. key feeds the cache key; query is
// what goes on the wire.
type request struct {
	path      string
	namespace string
	key       map[string]any
	query     url.Values
	opts      fetcher.Options
}

// Key returns the cache key a call for namespace and params resolves to. The
// configured language is always part of it.
func (c *Client) Key(namespace string, params map[string]any) string {
	p := make(map[string]any, len(params)+1)
	for k, v := range params {
		p[k] = v
	}
	if c.language != "" {
		p["language"] = c.language
	}
	return cachekey.Build(namespace, p)
}

func (c *Client) newRequest(path, namespace string, params map[string]any, opts []CallOption) request {
	r := request{path: path, namespace: namespace, key: params, query: url.Values{}}
	for k, v := range params {
		r.query.Set(k, cast.ToString(v))
	}
	if c.language != "" {
		r.query.Set("language", c.language)
	}
	for _, o := range opts {
		o(&r.opts)
	}
	return r
}

// inPath keeps names in the cache key but drops them from the query string
// because the path already carries them.
func (r request) inPath(names ...string) request {
	for _, n := range names {
		r.query.Del(n)
	}
	return r
}

func (c *Client) url(r request) string {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	return u
}

// get resolves r and decodes the payload into T.
func get[T any](ctx context.Context, c *Client, r request) (T, error) {
	return fetcher.Fetch[T](ctx, c.fetch, c.url(r), c.Key(r.namespace, r.key), r.opts)
}

func clampPage(page int) int {
	if page < 1 {
		return 1
	}
	if page > MaxPage {
		return MaxPage
	}
	return page
}

func (c *Client) moviePage(ctx context.Context, r request) (Page[Movie], error) {
	p, err := get[Page[Movie]](ctx, c, r)
	if err != nil {
		return p, err
	}
	normalizeMovies(p.Results, c.imageBase)
	return p, nil
}

// Trending lists trending movies for window "day" or "week".
func (c *Client) Trending(ctx context.Context, window string, page int, opts ...CallOption) (Page[Movie], error) {
	if window == "" {
		window = "day"
	}
	if window != "day" && window != "week" {
		return Page[Movie]{}, fmt.Errorf("%w: window must be day or week", ErrInvalidArgument)
	}
	r := c.newRequest("/trending/movie/"+window, NSTrending,
		map[string]any{"window": window, "page": clampPage(page)}, opts)
	return c.moviePage(ctx, r.inPath("window"))
}

// Popular lists currently popular movies.
func (c *Client) Popular(ctx context.Context, page int, opts ...CallOption) (Page[Movie], error) {
	return c.moviePage(ctx, c.newRequest("/movie/popular", NSPopular, map[string]any{"page": clampPage(page)}, opts))
}

// TopRated lists the highest rated movies.
func (c *Client) TopRated(ctx context.Context, page int, opts ...CallOption) (Page[Movie], error) {
	return c.moviePage(ctx, c.newRequest("/movie/top_rated", NSTopRated, map[string]any{"page": clampPage(page)}, opts))
}

// Upcoming lists movies about to be released.
func (c *Client) Upcoming(ctx context.Context, page int, opts ...CallOption) (Page[Movie], error) {
	return c.moviePage(ctx, c.newRequest("/movie/upcoming", NSUpcoming, map[string]any{"page": clampPage(page)}, opts))
}

// DiscoverFilter narrows a discover listing. Zero values are omitted.
type DiscoverFilter struct {
	Genre     int
	Year      int
	SortBy    string
	MinRating float64
}

// Discover lists movies matching f.
func (c *Client) Discover(ctx context.Context, f DiscoverFilter, page int, opts ...CallOption) (Page[Movie], error) {
	params := map[string]any{"page": clampPage(page)}
	if f.SortBy == "" {
		f.SortBy = "popularity.desc"
	}
	if !sortOrders[f.SortBy] {
		return Page[Movie]{}, fmt.Errorf("%w: unsupported sort_by %q", ErrInvalidArgument, f.SortBy)
	}
	params["sort_by"] = f.SortBy
	if f.Genre < 0 || f.Year < 0 || f.MinRating < 0 || f.MinRating > 10 {
		return Page[Movie]{}, fmt.Errorf("%w: filter out of range", ErrInvalidArgument)
	}
	if f.Genre > 0 {
		params["with_genres"] = f.Genre
	}
	if f.Year > 0 {
		params["primary_release_year"] = f.Year
	}
	if f.MinRating > 0 {
		params["vote_average.gte"] = f.MinRating
	}
	return c.moviePage(ctx, c.newRequest("/discover/movie", NSDiscover, params, opts))
}

func searchParams(query string, page int) (map[string]any, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidArgument)
	}
	return map[string]any{"query": query, "page": clampPage(page)}, nil
}

// SearchMovies searches movies by title.
func (c *Client) SearchMovies(ctx context.Context, query string, page int, opts ...CallOption) (Page[Movie], error) {
	params, err := searchParams(query, page)
	if err != nil {
		return Page[Movie]{}, err
	}
	return c.moviePage(ctx, c.newRequest("/search/movie", NSSearch, params, opts))
}

// SearchPeople searches people by name. Results use the shorter search TTL.
func (c *Client) SearchPeople(ctx context.Context, query string, page int, opts ...CallOption) (Page[Person], error) {
	params, err := searchParams(query, page)
	if err != nil {
		return Page[Person]{}, err
	}
	r := c.newRequest("/search/person", NSSearchPeople, params, c.withSearchTTL(opts))
	p, err := get[Page[Person]](ctx, c, r)
	if err != nil {
		return p, err
	}
	for i := range p.Results {
		p.Results[i].normalize(c.imageBase)
	}
	return p, nil
}

// SearchCollections searches collections by name. Results use the shorter search TTL.
func (c *Client) SearchCollections(ctx context.Context, query string, page int, opts ...CallOption) (Page[Collection], error) {
	params, err := searchParams(query, page)
	if err != nil {
		return Page[Collection]{}, err
	}
	r := c.newRequest("/search/collection", NSSearchCollections, params, c.withSearchTTL(opts))
	p, err := get[Page[Collection]](ctx, c, r)
	if err != nil {
		return p, err
	}
	for i := range p.Results {
		p.Results[i].normalize(c.imageBase)
	}
	return p, nil
}

// withSearchTTL puts the search TTL ahead of caller options so an explicit
// WithTTL still wins.
func (c *Client) withSearchTTL(opts []CallOption) []CallOption {
	if c.searchTTL <= 0 {
		return opts
	}
	return append([]CallOption{WithTTL(c.searchTTL)}, opts...)
}

func checkID(id int) error {
	if id <= 0 {
		return fmt.Errorf("%w: id must be positive", ErrInvalidArgument)
	}
	return nil
}

// Movie returns details for one movie with videos and credits appended.
func (c *Client) Movie(ctx context.Context, id int, opts ...CallOption) (MovieDetails, error) {
	if err := checkID(id); err != nil {
		return MovieDetails{}, err
	}
	r := c.newRequest(fmt.Sprintf("/movie/%d", id), NSMovie, map[string]any{"id": id}, opts)
	r.query.Set("append_to_response", "videos,credits")
	r = r.inPath("id")
	d, err := get[MovieDetails](ctx, c, r)
	if err != nil {
		return d, err
	}
	d.normalize(c.imageBase)
	return d, nil
}

// Genres lists all movie genres.
func (c *Client) Genres(ctx context.Context, opts ...CallOption) ([]Genre, error) {
	l, err := get[genreList](ctx, c, c.newRequest("/genre/movie/list", NSGenres, nil, opts))
	if err != nil {
		return nil, err
	}
	return l.Genres, nil
}

// Collection returns a collection and its parts.
func (c *Client) Collection(ctx context.Context, id int, opts ...CallOption) (Collection, error) {
	if err := checkID(id); err != nil {
		return Collection{}, err
	}
	r := c.newRequest(fmt.Sprintf("/collection/%d", id), NSCollection, map[string]any{"id": id}, opts).inPath("id")
	col, err := get[Collection](ctx, c, r)
	if err != nil {
		return col, err
	}
	col.normalize(c.imageBase)
	return col, nil
}

// Person returns a person with their movie credits appended.
func (c *Client) Person(ctx context.Context, id int, opts ...CallOption) (Person, error) {
	if err := checkID(id); err != nil {
		return Person{}, err
	}
	r := c.newRequest(fmt.Sprintf("/person/%d", id), NSPerson, map[string]any{"id": id}, opts)
	r.query.Set("append_to_response", "movie_credits")
	r = r.inPath("id")
	p, err := get[Person](ctx, c, r)
	if err != nil {
		return p, err
	}
	p.normalize(c.imageBase)
	return p, nil
}
