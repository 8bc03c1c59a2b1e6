package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestRouterUnknownRouteReturnsJSON(t *testing.T) {
	router := NewRouter()

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
	if body := decodeErrorBody(t, res); body["error"] != "route_not_found" {
		t.Fatalf("unexpected error code %v", body["error"])
	}
}

func TestRouterUnregisteredGroupReturnsNotImplemented(t *testing.T) {
	router := NewRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/ord_1", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", res.Code)
	}
	if body := decodeErrorBody(t, res); body["error"] != "not_implemented" {
		t.Fatalf("unexpected error code %v", body["error"])
	}
}

func TestRouterMountsRegistrars(t *testing.T) {
	router := NewRouter(
		WithOrderRoutes(func(r chi.Router) {
			r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/ping", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
}

func TestRouterAppliesAdminGroupMiddleware(t *testing.T) {
	var adminHit, orderHit bool
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			adminHit = true
			next.ServeHTTP(w, r)
		})
	}
	router := NewRouter(
		WithAdminRoutes(func(r chi.Router) {
			r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
		}),
		WithAdminMiddlewares(mw),
		WithOrderRoutes(func(r chi.Router) {
			r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
				orderHit = true
				w.WriteHeader(http.StatusNoContent)
			})
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/ping", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)
	if !adminHit {
		t.Fatal("expected admin middleware to run")
	}

	adminHit = false
	req = httptest.NewRequest(http.MethodGet, "/api/v1/orders/ping", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)
	if adminHit {
		t.Fatal("admin middleware leaked onto orders group")
	}
	if !orderHit {
		t.Fatal("expected order route to be served")
	}
}

func TestRouterServesHealthEndpoints(t *testing.T) {
	router := NewRouter()

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", path, res.Code)
		}
	}
}
