package middlewares

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpMetricsOnce sync.Once

	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "path", "status"})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	httpInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "http_inflight_requests",
		Help: "Requests in flight by method and route",
	}, []string{"method", "path"})
)

// RegisterHTTPMetrics registers the HTTP collectors once. Duplicate
// registration is not an error.
func RegisterHTTPMetrics(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	var err error
	httpMetricsOnce.Do(func() {
		for _, c := range []prometheus.Collector{httpRequestsTotal, httpRequestDuration, httpInflight} {
			if rerr := reg.Register(c); rerr != nil {
				if _, ok := rerr.(prometheus.AlreadyRegisteredError); !ok {
					err = rerr
					return
				}
			}
		}
	})
	return err
}

// WithMetrics records request count, latency and in-flight gauge. The path
// label is the route's static path, so ids never become label values.
func WithMetrics(route string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method := strings.ToUpper(r.Method)
			httpInflight.WithLabelValues(method, route).Inc()
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				httpInflight.WithLabelValues(method, route).Dec()
				httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
				httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
			}()
			next.ServeHTTP(rec, r)
		})
	}
}
