package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walkies",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served, by route and status",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "walkies",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Time spent serving HTTP requests",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "walkies",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "Size of HTTP response bodies",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Walk lifecycle metrics
	WalkTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walkies",
		Subsystem: "walk",
		Name:      "transitions_total",
		Help:      "Walk session status transitions applied",
	}, []string{"op", "to"})

	WalkTransitionRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walkies",
		Subsystem: "walk",
		Name:      "transition_rejections_total",
		Help:      "Transitions rejected because the session status precondition failed",
	}, []string{"op"})

	LocationReports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walkies",
		Subsystem: "walk",
		Name:      "location_reports_total",
		Help:      "Location reports processed, by outcome",
	}, []string{"outcome"})

	ActiveObservers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "walkies",
		Subsystem: "walk",
		Name:      "active_observers",
		Help:      "Live session observers currently subscribed",
	}, []string{"view"})

	// Directions provider metrics
	DirectionsRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "walkies",
		Subsystem: "directions",
		Name:      "request_duration_seconds",
		Help:      "Latency of walking-directions provider calls",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	DirectionsErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walkies",
		Subsystem: "directions",
		Name:      "errors_total",
		Help:      "Walking-directions provider failures by reason",
	}, []string{"reason"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "walkies",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Open live-view WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walkies",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Valkey reads that found a value",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walkies",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Valkey reads that found nothing",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "walkies",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Connections open in the pgx pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "walkies",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections checked out of the pgx pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "walkies",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the pgx pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler serves the Prometheus registry.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// PoolStat is the subset of pgxpool.Stat the pool gauges read.
type PoolStat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
}

// UpdateDBPoolMetrics copies pool statistics into the db gauges.
func UpdateDBPoolMetrics(s PoolStat) {
	DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
	DBPoolConnsIdle.Set(float64(s.IdleConns()))
	DBPoolConnsOpen.Set(float64(s.TotalConns()))
}
