// Cinematch - Collaborative Filtering Movie Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/cinematch/internal/metrics"
)

func TestPrometheusMetrics(t *testing.T) {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return PrometheusMetrics(next.ServeHTTP)
	})
	r.Get("/user/{id}/ratings", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/ok", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})

	tests := []struct {
		name     string
		path     string
		pattern  string
		wantCode int
	}{
		{"pattern label for path params", "/user/42/ratings", "/user/{id}/ratings", http.StatusNotFound},
		{"implicit 200", "/ok", "/ok", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("GET", tt.pattern, strconv.Itoa(tt.wantCode)))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			after := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("GET", tt.pattern, strconv.Itoa(tt.wantCode)))
			if after-before != 1 {
				t.Errorf("api_requests_total{endpoint=%q} delta = %v, want 1", tt.pattern, after-before)
			}
		})
	}
}

func TestPrometheusMetrics_ActiveRequestsBalanced(t *testing.T) {
	before := testutil.ToFloat64(metrics.APIActiveRequests)
	handler := PrometheusMetrics(func(w http.ResponseWriter, _ *http.Request) {
		if got := testutil.ToFloat64(metrics.APIActiveRequests); got != before+1 {
			t.Errorf("in-flight gauge = %v, want %v", got, before+1)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	if got := testutil.ToFloat64(metrics.APIActiveRequests); got != before {
		t.Errorf("in-flight gauge after = %v, want %v", got, before)
	}
}
