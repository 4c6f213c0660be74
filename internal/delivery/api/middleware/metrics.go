package middleware

import (
	"time"

	"tasktracker/internal/infra/metrics"

	"github.com/labstack/echo/v4"
)

// unmatchedRoute labels requests that hit no route, keeping label cardinality bounded.
const unmatchedRoute = "unmatched"

// MetricsMiddleware records request counts and latency per route template.
type MetricsMiddleware struct {
	metrics *metrics.Metrics
	skip    string
}

// NewMetricsMiddleware records every request except scrapes of skipPath.
func NewMetricsMiddleware(m *metrics.Metrics, skipPath string) *MetricsMiddleware {
	return &MetricsMiddleware{metrics: m, skip: skipPath}
}

func (m *MetricsMiddleware) Handle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		route := c.Path()
		if route == m.skip {
			return nil
		}
		if route == "" || route == "/*" {
			route = unmatchedRoute
		}
		m.metrics.ObserveRequest(c.Request().Method, route, c.Response().Status, time.Since(start))

		return nil
	}
}
