package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
)

func TestAdminOnly(t *testing.T) {
	tests := []struct {
		name           string
		adminToken     string
		authHeader     string
		expectedStatus int
	}{
		{"valid token", "test-admin-token-123", "Bearer test-admin-token-123", http.StatusOK},
		{"invalid token", "test-admin-token-123", "Bearer wrong-token", http.StatusUnauthorized},
		{"missing token", "test-admin-token-123", "", http.StatusUnauthorized},
		{"malformed bearer token", "test-admin-token-123", "Bearertest-admin-token-123", http.StatusUnauthorized},
		{"wrong auth scheme", "test-admin-token-123", "Basic dGVzdDp0ZXN0", http.StatusUnauthorized},
		{"token prefix only", "test-admin-token-123", "Bearer test-admin", http.StatusUnauthorized},
		{"admin token not configured", "", "Bearer test-admin-token-123", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mux.NewRouter()
			r.Use(AdminOnly(tt.adminToken))
			r.HandleFunc("/api/admin/test", func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("OK"))
			})

			req := httptest.NewRequest("GET", "/api/admin/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
			if tt.expectedStatus == http.StatusOK && rr.Body.String() != "OK" {
				t.Errorf("expected handler body, got %q", rr.Body.String())
			}
		})
	}
}

// TestAdminEndpointsRequireAuth tests that all admin endpoints are protected
func TestAdminEndpointsRequireAuth(t *testing.T) {
	router := newTestRouter(t, routerOpts{token: "tok", adminToken: "test-token"})

	adminEndpoints := []struct {
		method string
		path   string
	}{
		{"POST", "/api/admin/cache/clear"},
		{"GET", "/api/admin/cache/entries"},
		{"DELETE", "/api/admin/cache/entries?key=genres"},
		{"GET", "/api/admin/cache/stats"},
		{"GET", "/debug/pprof/"},
	}

	for _, endpoint := range adminEndpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			rr := serve(router, httptest.NewRequest(endpoint.method, endpoint.path, nil))
			if rr.Code != http.StatusUnauthorized {
				t.Errorf("expected status 401 for %s %s without auth, got %d",
					endpoint.method, endpoint.path, rr.Code)
			}

			req := httptest.NewRequest(endpoint.method, endpoint.path, nil)
			req.Header.Set("Authorization", "Bearer test-token")
			rr = serve(router, req)
			if rr.Code == http.StatusUnauthorized || rr.Code == http.StatusForbidden {
				t.Errorf("expected %s %s to pass auth, got %d", endpoint.method, endpoint.path, rr.Code)
			}
		})
	}
}

func TestAdminDisabledWithoutToken(t *testing.T) {
	router := newTestRouter(t, routerOpts{token: "tok"})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/cache/stats", nil)
	req.Header.Set("Authorization", "Bearer anything")
	if rr := serve(router, req); rr.Code != http.StatusForbidden {
		t.Errorf("expected 403 when ADMIN_API_TOKEN is unset, got %d", rr.Code)
	}
}
