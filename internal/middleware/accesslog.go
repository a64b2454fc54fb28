// internal/middleware/accesslog.go
//
// Access log and Prometheus HTTP metrics.
//
// Workflow
// --------
//  1. Wrap the ResponseWriter to capture status and byte count.
//  2. Serve.
//  3. Label metrics with the chi route pattern, not the raw path, so
//     /networks/7 and /networks/8 share one series.
//  4. Log one Info line per request through the request-scoped logger,
//     enriched with the client fingerprint when requestinfo ran.

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stuttter/wp-multi-network-sub000/internal/logger"
	"github.com/stuttter/wp-multi-network-sub000/internal/metrics"
	"github.com/stuttter/wp-multi-network-sub000/internal/requestinfo"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// AccessLog records metrics and writes one log line per request.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		elapsed := time.Since(start)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := strconv.Itoa(rec.status)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route, status).Observe(elapsed.Seconds())

		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration_ms", elapsed.Milliseconds(),
		}
		if info := requestinfo.FromContext(r.Context()); info != nil {
			fields = append(fields,
				"ip", info.Geo.IP,
				"country", info.Geo.CountryISO,
				"browser", info.UA.Browser,
				"bot", info.UA.IsBot,
			)
		}
		logger.FromContext(r.Context()).Infow("http request", fields...)
	})
}
