package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/metrics", "200")); v < 1 {
		t.Errorf("expected http_requests_total >= 1, got %f", v)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds to have observations")
	}
}

func TestMiddleware_UnknownPath(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/favicon.ico", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unknown", "404")); v < 1 {
		t.Errorf("expected unknown path to be recorded, got %f", v)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "unknown"},
		{"/metrics", "/metrics"},
	}

	for _, tc := range tests {
		if got := normalizePath(tc.input); got != tc.expected {
			t.Errorf("normalizePath(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestObserveAPI(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("rate_limit", "error"))
	ObserveAPI("rate_limit", time.Now(), errors.New("boom"))
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("rate_limit", "error"))

	if after-before != 1 {
		t.Errorf("expected error counter to increase by 1, got %f", after-before)
	}

	ObserveAPI("graphql", time.Now(), nil)
	if v := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("graphql", "ok")); v < 1 {
		t.Errorf("expected ok counter >= 1, got %f", v)
	}
}

func TestRegister_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)
	Register(reg)

	TokenMintsTotal.WithLabelValues(MintJWT).Inc()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "ratewatch_token_mints_total" {
			found = true
		}
	}
	if !found {
		t.Error("expected ratewatch_token_mints_total in registry")
	}
}

func TestRegister_EachRegistry(t *testing.T) {
	first := prometheus.NewRegistry()
	second := prometheus.NewRegistry()
	Register(first)
	Register(second)

	TokenMintsTotal.WithLabelValues(MintFallback).Inc()
	for name, reg := range map[string]*prometheus.Registry{"first": first, "second": second} {
		n, err := testutil.GatherAndCount(reg, "ratewatch_token_mints_total")
		if err != nil {
			t.Fatalf("%s: gather failed: %v", name, err)
		}
		if n == 0 {
			t.Errorf("%s: expected ratewatch_token_mints_total series", name)
		}
	}
}
