package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stuttter/wp-multi-network-sub000/internal/logger"
	"github.com/stuttter/wp-multi-network-sub000/internal/metrics"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestForceHTTPS(t *testing.T) {
	h := ForceHTTPS(ok)

	cases := []struct {
		name  string
		url   string
		proto string
		tls   bool
		code  int
	}{
		{"plain http redirects", "http://net.example/networks?page=2", "", false, http.StatusPermanentRedirect},
		{"tls passes", "https://net.example/networks", "", true, http.StatusOK},
		{"proxy https passes", "http://net.example/networks", "https", false, http.StatusOK},
		{"localhost passes", "http://localhost:8080/networks", "", false, http.StatusOK},
		{"health passes", "http://net.example/healthz", "", false, http.StatusOK},
	}
	for _, c := range cases {
		r := httptest.NewRequest(http.MethodGet, c.url, nil)
		if c.proto != "" {
			r.Header.Set("X-Forwarded-Proto", c.proto)
		}
		if c.tls {
			r.TLS = &tls.ConnectionState{}
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		assert.Equal(t, c.code, rec.Code, c.name)
		if c.code == http.StatusPermanentRedirect {
			assert.Equal(t, "https://net.example/networks?page=2", rec.Header().Get("Location"))
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	Security(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	for _, k := range []string{"Strict-Transport-Security", "Content-Security-Policy", "X-Frame-Options", "X-Content-Type-Options", "Referrer-Policy"} {
		assert.NotEmpty(t, rec.Header().Get(k), k)
	}
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestRequestID(t *testing.T) {
	var seen string
	var hasLogger bool
	h := RequestID(zap.NewNop().Sugar())(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		hasLogger = logger.FromContext(r.Context()) != zap.S()
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get("X-Request-Id"))
	assert.True(t, hasLogger)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-Id", "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, "abc-123", seen)
}

func TestAccessLogCountsByRoute(t *testing.T) {
	r := chi.NewRouter()
	r.Use(AccessLog)
	r.Get("/networks/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/networks/{id}", "418"))
	for _, p := range []string{"/networks/7", "/networks/8"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	after := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/networks/{id}", "418"))
	assert.Equal(t, 2.0, after-before)
}
