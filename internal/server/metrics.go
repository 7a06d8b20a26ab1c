package server

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// serverMetrics holds the Prometheus metrics owned by the HTTP server.
// Metrics register against an injected registry so tests stay hermetic.
type serverMetrics struct {
	// httpRequestsTotal counts handled requests by method, route, and
	// status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records request latency by method and route.
	httpDurationSeconds *prometheus.HistogramVec

	// ingestedDocuments counts documents indexed by /ingest runs.
	ingestedDocuments prometheus.Counter

	// queriesTotal counts answered questions by outcome: "ok",
	// "rate_limited", or "error". Both /query and /webhook count here.
	queriesTotal *prometheus.CounterVec
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragd",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests handled, partitioned by method, route, and status code.",
		}, []string{"method", "route", "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ragd",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		ingestedDocuments: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ragd",
			Subsystem: "ingest",
			Name:      "documents_total",
			Help:      "Total documents indexed by ingestion runs.",
		}),

		queriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragd",
			Subsystem: "query",
			Name:      "total",
			Help:      "Total questions answered, partitioned by outcome.",
		}, []string{"outcome"}),
	}
}

// middleware returns an Echo middleware recording request count and
// latency. Routes are recorded by pattern, not raw URL, to keep label
// cardinality bounded.
func (m *serverMetrics) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = "/"
			}
			method := c.Request().Method

			m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			m.httpDurationSeconds.WithLabelValues(method, route).Observe(time.Since(start).Seconds())

			return err
		}
	}
}
