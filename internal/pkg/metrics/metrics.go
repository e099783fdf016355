package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "dispatch", Name: "matches_total", Help: "Matching invocations by outcome"},
		[]string{"outcome"}, // matched, no_match, fallback
	)
	AcceptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "dispatch", Name: "accepts_total", Help: "Accept attempts by result"},
		[]string{"result"}, // accepted, taken, busy, out_of_range
	)
	BroadcastsTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "dispatch", Name: "broadcasts_total", Help: "Position updates fanned out to subscribers"},
	)
	PresenceUpserts = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "dispatch", Name: "presence_upserts_total", Help: "Driver presence writes"},
	)
	StoreFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "dispatch", Name: "store_fallbacks_total", Help: "Times the durable index served candidates instead of the live store"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "dispatch", Name: "http_requests_total", Help: "HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dispatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Middleware records request counts and latency per route template.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			labels := []string{c.Request().Method, c.Path(), strconv.Itoa(status)}
			httpRequestsTotal.WithLabelValues(labels...).Inc()
			httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
