package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMiddleware records request durations by route pattern, method and status.
func (s *Sink) HTTPMiddleware(next http.Handler) http.Handler {
	summary := s.factory.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: s.namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
		},
		[]string{"path", "method", "status"},
	)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		summary.WithLabelValues(path, r.Method, strconv.Itoa(rec.status)).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
