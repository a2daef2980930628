package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/templui/fileshare/internal/metrics"
)

// Metrics records request counts and latencies labelled by the matched
// route pattern, which keeps ids and tokens out of the label values.
// It must wrap the mux directly: the mux records the pattern on the
// request it receives.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newResponseWriter(w)

		next.ServeHTTP(rw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
