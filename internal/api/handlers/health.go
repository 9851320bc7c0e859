package handlers

import (
	"net/http"

	"github.com/majdjadalhaq/MovieValut/internal/metrics"
)

// Health reports liveness plus the state of the persistent cache and the
// upstream credential. The API keeps serving without either, so a degraded
// service still answers 200.
func Health(source metrics.StatsSource, credentialConfigured bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		store := map[string]any{"available": false}
		if source != nil {
			if stats, err := source.CollectStats(r.Context()); err == nil {
				store["backend"] = stats.StoreBackend
				store["available"] = stats.StoreAvailable
			}
		}
		if store["available"] != true || !credentialConfigured {
			status = "degraded"
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, map[string]any{
			"status":               status,
			"store":                store,
			"credentialConfigured": credentialConfigured,
		})
	}
}
