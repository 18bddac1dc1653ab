package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/deppfellow/covid-api/internal/errs"
	"github.com/deppfellow/covid-api/internal/server"
	"github.com/labstack/echo/v4"
)

// MetricsMiddleware records request latency per route template.
type MetricsMiddleware struct {
	server *server.Server
}

func NewMetricsMiddleware(s *server.Server) *MetricsMiddleware {
	return &MetricsMiddleware{server: s}
}

// Observe times every request that matched a route. Unmatched paths are
// skipped so scanners cannot inflate label cardinality.
func (m *MetricsMiddleware) Observe() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				return err
			}

			status := c.Response().Status
			if err != nil {
				status = statusFromError(err, status)
			}

			m.server.Metrics.ObserveHTTP(route, c.Request().Method, status, time.Since(start))
			return err
		}
	}
}

// statusFromError predicts the status GlobalErrorHandler will write for err,
// since the response is not committed yet when middleware sees the error.
func statusFromError(err error, fallback int) int {
	var httpErr *errs.HTTPError
	var echoErr *echo.HTTPError

	switch {
	case errors.As(err, &httpErr):
		return httpErr.Status
	case errors.As(err, &echoErr):
		return echoErr.Code
	case fallback >= http.StatusBadRequest:
		return fallback
	}
	return http.StatusInternalServerError
}
