package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts served requests by route group, method and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "careerpointer_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"route", "method", "status"})

	// HTTPDuration records request latency by route group.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "careerpointer_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	// RedisErrors counts failed Redis commands by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "careerpointer_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})
)

// routeGroups keeps label cardinality bounded: every path maps onto one of
// these prefixes or "other".
var routeGroups = []string{
	"/v1/users",
	"/v1/applications",
	"/v1",
	"/applications",
	"/profile",
	"/password",
	"/auth",
	"/login",
	"/register",
	"/logout",
	"/uploads",
	"/static",
	"/healthz",
	"/metrics",
}

func routeLabel(path string) string {
	if path == "/" {
		return "/"
	}
	for _, g := range routeGroups {
		if path == g || strings.HasPrefix(path, g+"/") {
			return g
		}
	}
	return "other"
}

func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: 200}

			next.ServeHTTP(rec, r)

			route := routeLabel(r.URL.Path)
			HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
			HTTPDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		})
	}
}
