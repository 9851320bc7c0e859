package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/majdjadalhaq/MovieValut/internal/apierr"
	"github.com/majdjadalhaq/MovieValut/internal/logger"
)

// AdminOnly gates routes behind a static bearer token. An empty token
// disables the admin surface entirely.
func AdminOnly(token string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				apierr.WriteErrorWithContext(w, r, apierr.AuthDisabled())
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" {
				apierr.WriteErrorWithContext(w, r, apierr.AuthMissing(""))
				return
			}
			const prefix = "Bearer "
			given, ok := strings.CutPrefix(auth, prefix)
			if !ok || subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
				logger.WithRequestID(r.Context()).Warn("rejected admin request",
					"path", r.URL.Path, "remote_addr", r.RemoteAddr)
				apierr.WriteErrorWithContext(w, r, apierr.AuthInvalid(""))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
