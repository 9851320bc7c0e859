package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/majdjadalhaq/MovieValut/internal/config"
	"github.com/majdjadalhaq/MovieValut/internal/fetcher"
	"github.com/majdjadalhaq/MovieValut/internal/httpx"
	"github.com/majdjadalhaq/MovieValut/internal/kvstore"
	"github.com/majdjadalhaq/MovieValut/internal/notify"
	"github.com/majdjadalhaq/MovieValut/internal/ttlcache"
)

type upstream struct {
	mu    sync.Mutex
	calls []*http.Request
	srv   *httptest.Server
}

func (u *upstream) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.calls)
}

func (u *upstream) last() *http.Request {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls[len(u.calls)-1]
}

func newUpstream(t *testing.T, routes map[string]string) *upstream {
	t.Helper()
	u := &upstream{}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.calls = append(u.calls, r)
		u.mu.Unlock()
		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"success":false,"status_code":34,"status_message":"The resource you requested could not be found."}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func newClient(t *testing.T, u *upstream) (*Client, *ttlcache.Cache) {
	t.Helper()
	cache := ttlcache.New(kvstore.New(context.Background(), kvstore.NewMemory(0)), ttlcache.Options{})
	f := fetcher.New(fetcher.Config{
		HTTPClient: u.srv.Client(),
		Cache:      cache,
		Policy:     httpx.Policy{MaxRetries: 0},
		Token:      "tok",
	})
	return New(f, Options{
		BaseURL:      u.srv.URL,
		ImageBaseURL: "https://img.example/t/p/",
		Language:     "en-US",
		SearchTTL:    5 * time.Minute,
	}), cache
}

const trendingBody = `{"page":2,"total_pages":9,"total_results":180,"results":[
	{"id":1,"title":"Dune","poster_path":"/dune.jpg","backdrop_path":"/dune-bg.jpg"},
	{"id":2,"name":"Shogun","original_title":"Shōgun"},
	{"id":3,"original_title":"Le Samouraï"}
]}`

func TestTrending(t *testing.T) {
	u := newUpstream(t, map[string]string{"/trending/movie/week": trendingBody})
	c, cache := newClient(t, u)
	ctx := context.Background()

	p, err := c.Trending(ctx, "week", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 9, p.TotalPages)
	require.Len(t, p.Results, 3)
	assert.Equal(t, "https://img.example/t/p/w500/dune.jpg", p.Results[0].PosterURL)
	assert.Equal(t, "https://img.example/t/p/w1280/dune-bg.jpg", p.Results[0].BackdropURL)
	assert.Equal(t, "Shogun", p.Results[1].Title)
	assert.Equal(t, "Le Samouraï", p.Results[2].Title)
	assert.Empty(t, p.Results[2].PosterURL)

	req := u.last()
	assert.Equal(t, "2", req.URL.Query().Get("page"))
	assert.Equal(t, "en-US", req.URL.Query().Get("language"))
	assert.False(t, req.URL.Query().Has("window"), "window travels in the path")
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))

	assert.Equal(t, []string{"trending::language:en-US|page:2|window:week"}, cache.Keys(ctx))

	_, err = c.Trending(ctx, "week", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, u.count(), "second call is served from cache")

	_, err = c.Trending(ctx, "week", 2, Refresh(true))
	require.NoError(t, err)
	assert.Equal(t, 2, u.count())
}

func TestTrendingRejectsBadWindow(t *testing.T) {
	u := newUpstream(t, nil)
	c, _ := newClient(t, u)
	_, err := c.Trending(context.Background(), "month", 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Zero(t, u.count())
}

func TestPageIsClamped(t *testing.T) {
	u := newUpstream(t, map[string]string{"/movie/popular": `{"page":500,"results":[]}`})
	c, _ := newClient(t, u)
	_, err := c.Popular(context.Background(), 9000)
	require.NoError(t, err)
	assert.Equal(t, "500", u.last().URL.Query().Get("page"))

	_, err = c.Popular(context.Background(), -1)
	require.NoError(t, err)
	assert.Equal(t, "1", u.last().URL.Query().Get("page"))
}

func TestDiscover(t *testing.T) {
	u := newUpstream(t, map[string]string{"/discover/movie": `{"page":1,"results":[{"id":5,"title":"Heat"}]}`})
	c, _ := newClient(t, u)

	p, err := c.Discover(context.Background(), DiscoverFilter{Genre: 80, Year: 1995, MinRating: 7.5}, 1)
	require.NoError(t, err)
	require.Len(t, p.Results, 1)

	q := u.last().URL.Query()
	assert.Equal(t, "80", q.Get("with_genres"))
	assert.Equal(t, "1995", q.Get("primary_release_year"))
	assert.Equal(t, "7.5", q.Get("vote_average.gte"))
	assert.Equal(t, "popularity.desc", q.Get("sort_by"))

	_, err = c.Discover(context.Background(), DiscoverFilter{SortBy: "random"}, 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = c.Discover(context.Background(), DiscoverFilter{MinRating: 11}, 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSearchUsesShorterTTLForPeopleAndCollections(t *testing.T) {
	u := newUpstream(t, map[string]string{
		"/search/movie":      `{"page":1,"results":[]}`,
		"/search/person":     `{"page":1,"results":[{"id":9,"name":"Denis Villeneuve","profile_path":"/dv.jpg","known_for":[{"id":1,"title":"Dune","poster_path":"/d.jpg"}]}]}`,
		"/search/collection": `{"page":1,"results":[{"id":4,"name":"Dune Collection","poster_path":"/c.jpg"}]}`,
	})
	c, cache := newClient(t, u)
	ctx := context.Background()

	_, err := c.SearchMovies(ctx, " dune ", 1)
	require.NoError(t, err)
	assert.Equal(t, "dune", u.last().URL.Query().Get("query"))

	people, err := c.SearchPeople(ctx, "villeneuve", 1)
	require.NoError(t, err)
	require.Len(t, people.Results, 1)
	assert.Equal(t, "https://img.example/t/p/w185/dv.jpg", people.Results[0].ProfileURL)
	assert.Equal(t, "https://img.example/t/p/w500/d.jpg", people.Results[0].KnownFor[0].PosterURL)

	cols, err := c.SearchCollections(ctx, "dune", 1)
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/t/p/w500/c.jpg", cols.Results[0].PosterURL)

	e, ok := cache.Peek(ctx, c.Key(NSSearch, map[string]any{"query": "dune", "page": 1}))
	require.True(t, ok)
	assert.EqualValues(t, config.DefaultTTL.Milliseconds(), e.TTL)

	e, ok = cache.Peek(ctx, c.Key(NSSearchPeople, map[string]any{"query": "villeneuve", "page": 1}))
	require.True(t, ok)
	assert.EqualValues(t, (5 * time.Minute).Milliseconds(), e.TTL)

	e, ok = cache.Peek(ctx, c.Key(NSSearchCollections, map[string]any{"query": "dune", "page": 1}))
	require.True(t, ok)
	assert.EqualValues(t, (5 * time.Minute).Milliseconds(), e.TTL)

	_, err = c.SearchMovies(ctx, "   ", 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestMovieDetails(t *testing.T) {
	u := newUpstream(t, map[string]string{"/movie/438631": `{
		"id":438631,"title":"Dune","runtime":155,"genres":[{"id":878,"name":"Science Fiction"}],
		"belongs_to_collection":{"id":726871,"name":"Dune Collection","poster_path":"/col.jpg"},
		"videos":{"results":[
			{"key":"teaser","site":"YouTube","type":"Teaser"},
			{"key":"fan","site":"YouTube","type":"Trailer","official":false},
			{"key":"n8nGf","site":"YouTube","type":"Trailer","official":true}
		]},
		"credits":{"cast":[{"id":1,"name":"Timothée Chalamet","character":"Paul","profile_path":"/tc.jpg"}],"crew":[]}
	}`})
	c, _ := newClient(t, u)

	d, err := c.Movie(context.Background(), 438631)
	require.NoError(t, err)
	assert.Equal(t, "Dune", d.Title)
	assert.Equal(t, 155, d.Runtime)
	assert.Equal(t, "https://www.youtube.com/watch?v=n8nGf", d.TrailerURL)
	assert.Equal(t, "https://img.example/t/p/w185/tc.jpg", d.Credits.Cast[0].ProfileURL)
	assert.Equal(t, "https://img.example/t/p/w500/col.jpg", d.BelongsToCollection.PosterURL)
	assert.Equal(t, "videos,credits", u.last().URL.Query().Get("append_to_response"))
	assert.False(t, u.last().URL.Query().Has("id"))

	_, err = c.Movie(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGenresCollectionPerson(t *testing.T) {
	u := newUpstream(t, map[string]string{
		"/genre/movie/list": `{"genres":[{"id":28,"name":"Action"},{"id":18,"name":"Drama"}]}`,
		"/collection/10":    `{"id":10,"name":"Star Wars","backdrop_path":"/sw.jpg","parts":[{"id":11,"title":"Star Wars"}]}`,
		"/person/31":        `{"id":31,"name":"Tom Hanks","movie_credits":{"cast":[{"id":13,"title":"Forrest Gump","poster_path":"/fg.jpg"}]}}`,
	})
	c, _ := newClient(t, u)
	ctx := context.Background()

	g, err := c.Genres(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Genre{{ID: 28, Name: "Action"}, {ID: 18, Name: "Drama"}}, g)

	col, err := c.Collection(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/t/p/w1280/sw.jpg", col.BackdropURL)
	require.Len(t, col.Parts, 1)

	p, err := c.Person(ctx, 31)
	require.NoError(t, err)
	require.NotNil(t, p.MovieCredits)
	assert.Equal(t, "https://img.example/t/p/w500/fg.jpg", p.MovieCredits.Cast[0].PosterURL)
	assert.Equal(t, "movie_credits", u.last().URL.Query().Get("append_to_response"))
}

func TestNotFoundIsClassified(t *testing.T) {
	u := newUpstream(t, nil)
	c, _ := newClient(t, u)

	_, err := c.Movie(context.Background(), 1)
	require.Error(t, err)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorNotFound, apiErr.Type)
	assert.Equal(t, 34, apiErr.Code)
	assert.Contains(t, apiErr.Message, "could not be found")
}

func TestNewFromConfigClientErrorPolicy(t *testing.T) {
	var hits int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := &config.Config{
		TMDBBaseURL:           srv.URL,
		TMDBAPIToken:          "tok",
		TMDBLanguage:          "en-US",
		HTTPMaxRetries:        2,
		HTTPRetryBase:         time.Millisecond,
		HTTPTimeout:           time.Second,
		HTTPRetryClientErrors: true,
		CacheTTL:              time.Minute,
	}
	notes := 0
	n := notify.Func(func(context.Context, notify.Notification) { notes++ })

	c := NewFromConfig(cfg, nil, n)
	_, err := c.Popular(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, 3, hits, "client errors are retried by default")
	assert.Equal(t, 1, notes)

	hits, notes = 0, 0
	cfg.HTTPRetryClientErrors = false
	c = NewFromConfig(cfg, nil, n)
	_, err = c.Popular(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, 1, hits, "permanent failures skip the retry budget")
	assert.Equal(t, 1, notes)
}
