package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the API. A nil *Metrics
// records nothing.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	routeQueries    *prometheus.CounterVec
	routeDistance   prometheus.Histogram
	nearestLookups  *prometheus.CounterVec
	indexRebuilds   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "street_router_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "street_router_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		routeQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "street_router_route_queries_total",
			Help: "Shortest-path queries by result.",
		}, []string{"result"}),
		routeDistance: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "street_router_route_distance_meters",
			Help:    "Total distance of found routes.",
			Buckets: prometheus.ExponentialBuckets(100, 2, 12),
		}),
		nearestLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "street_router_nearest_lookups_total",
			Help: "Nearest-intersection lookups by result.",
		}, []string{"result"}),
		indexRebuilds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "street_router_index_rebuild_seconds",
			Help:    "Spatial index rebuild time after a viewport change.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
	}
	reg.MustRegister(
		m.requests,
		m.requestDuration,
		m.routeQueries,
		m.routeDistance,
		m.nearestLookups,
		m.indexRebuilds,
	)
	return m
}

// Middleware records request counts and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) observeRoute(result string, meters float64) {
	if m == nil {
		return
	}
	m.routeQueries.WithLabelValues(result).Inc()
	if result == "found" {
		m.routeDistance.Observe(meters)
	}
}

func (m *Metrics) observeNearest(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.nearestLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) observeRebuild(d time.Duration) {
	if m == nil {
		return
	}
	m.indexRebuilds.Observe(d.Seconds())
}
