package handlers

import (
	"net/http"
	"net/http/pprof"

	"github.com/gorilla/mux"

	"github.com/majdjadalhaq/MovieValut/internal/logger"
)

// logPprofAccess logs profiling endpoint access for security monitoring.
func logPprofAccess(r *http.Request) {
	logger.InfoContext(r.Context(), "Profiling endpoint accessed",
		"endpoint", r.URL.Path,
		"remote_addr", r.RemoteAddr,
		"type", "security_audit")
}

// RegisterPprof mounts the runtime profiler on r, a subrouter rooted at
// /debug/pprof that the caller has placed behind admin authentication.
func RegisterPprof(r *mux.Router) {
	audited := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			logPprofAccess(req)
			h(w, req)
		}
	}
	r.HandleFunc("/cmdline", audited(pprof.Cmdline))
	r.HandleFunc("/profile", audited(pprof.Profile))
	r.HandleFunc("/symbol", audited(pprof.Symbol))
	r.HandleFunc("/trace", audited(pprof.Trace))
	r.PathPrefix("/").HandlerFunc(audited(pprof.Index))
}
