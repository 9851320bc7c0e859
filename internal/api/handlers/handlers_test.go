package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/majdjadalhaq/MovieValut/internal/cache"
	"github.com/majdjadalhaq/MovieValut/internal/fetcher"
	"github.com/majdjadalhaq/MovieValut/internal/httpx"
	"github.com/majdjadalhaq/MovieValut/internal/kvstore"
	"github.com/majdjadalhaq/MovieValut/internal/notify"
	"github.com/majdjadalhaq/MovieValut/internal/tmdb"
	"github.com/majdjadalhaq/MovieValut/internal/ttlcache"
)

// memResponses is a deterministic cache.Cache for handler tests.
type memResponses struct {
	mu      sync.Mutex
	items   map[string][]byte
	hits    uint64
	misses  uint64
	cleared int
}

func newMemResponses() *memResponses { return &memResponses{items: map[string][]byte{}} }

func (m *memResponses) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	if ok {
		m.hits++
	} else {
		m.misses++
	}
	return v, ok
}

func (m *memResponses) Set(key string, value []byte, _ time.Duration) {
	m.mu.Lock()
	m.items[key] = value
	m.mu.Unlock()
}

func (m *memResponses) Delete(key string) {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
}

func (m *memResponses) Clear() {
	m.mu.Lock()
	m.items = map[string][]byte{}
	m.cleared++
	m.mu.Unlock()
}

func (m *memResponses) Stats() cache.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cache.Stats{Hits: m.hits, Misses: m.misses, Items: int64(len(m.items))}
}

type upstreamStub struct {
	mu     sync.Mutex
	hits   map[string]int
	routes map[string]string
	status int
}

func (u *upstreamStub) fail(status int) {
	u.mu.Lock()
	u.status = status
	u.mu.Unlock()
}

func (u *upstreamStub) count(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits[path]
}

type notes struct {
	mu  sync.Mutex
	got []notify.Notification
}

func (n *notes) Notify(_ context.Context, x notify.Notification) {
	n.mu.Lock()
	n.got = append(n.got, x)
	n.mu.Unlock()
}

func (n *notes) len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.got)
}

type testEnv struct {
	router    *mux.Router
	upstream  *upstreamStub
	store     *ttlcache.Cache
	mem       *kvstore.Memory
	responses *memResponses
	notes     *notes
}

func newTestEnv(t *testing.T, routes map[string]string, token string) *testEnv {
	t.Helper()
	up := &upstreamStub{hits: map[string]int{}, routes: routes}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up.mu.Lock()
		up.hits[r.URL.Path]++
		status := up.status
		up.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"success":false,"status_code":34,"status_message":"The resource you requested could not be found."}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	mem := kvstore.NewMemory(0)
	store := ttlcache.New(kvstore.New(context.Background(), mem), ttlcache.Options{})
	n := &notes{}
	f := fetcher.New(fetcher.Config{
		HTTPClient: srv.Client(),
		Cache:      store,
		Notifier:   n,
		Policy:     httpx.Policy{MaxRetries: 0},
		Token:      token,
	})
	client := tmdb.New(f, tmdb.Options{BaseURL: srv.URL, Language: "en-US", ImageBaseURL: "https://img.example/t/p"})
	responses := newMemResponses()

	movies := NewMovieHandlers(client, responses)
	admin := NewCacheAdminHandler(store, responses)

	r := mux.NewRouter()
	r.HandleFunc("/api/movies/trending", movies.Trending)
	r.HandleFunc("/api/movies/popular", movies.Popular)
	r.HandleFunc("/api/movies/discover", movies.Discover)
	r.HandleFunc("/api/movies/{id}", movies.Movie)
	r.HandleFunc("/api/genres", movies.Genres)
	r.HandleFunc("/api/search/movies", movies.SearchMovies)
	r.HandleFunc("/api/search/people", movies.SearchPeople)
	r.HandleFunc("/api/admin/cache/clear", admin.ClearCache).Methods(http.MethodPost)
	r.HandleFunc("/api/admin/cache/entries", admin.DeleteEntry).Methods(http.MethodDelete)
	r.HandleFunc("/api/admin/cache/entries", admin.ListEntries).Methods(http.MethodGet)
	r.HandleFunc("/api/admin/cache/stats", admin.GetCacheStats).Methods(http.MethodGet)

	return &testEnv{router: r, upstream: up, store: store, mem: mem, responses: responses, notes: n}
}

func (e *testEnv) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

// errorBody decodes the apierr envelope.
func errorBody(t *testing.T, rr *httptest.ResponseRecorder) (code, message string) {
	t.Helper()
	var out struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out.Error.Code, out.Error.Message
}
