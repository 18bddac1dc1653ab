package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/deppfellow/covid-api/internal/config"
	"github.com/deppfellow/covid-api/internal/middleware"
	"github.com/deppfellow/covid-api/internal/server"
	"github.com/labstack/echo/v4"
)

const defaultHealthCheckTimeout = 5 * time.Second

// HealthHandler reports liveness plus database and Redis connectivity.
type HealthHandler struct {
	Handler
}

// NewHealthHandler constructs a HealthHandler with access to shared app dependencies.
func NewHealthHandler(s *server.Server) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
	}
}

// CheckHealth returns 200 when the database is reachable and 503 otherwise.
// Redis only backs the cache and jobs, so a Redis failure is reported but
// does not flip the overall status.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()

	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	checks := make(map[string]interface{})
	response := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"environment": h.server.Config.Primary.Env,
		"checks":      checks,
	}

	isHealthy := true
	obs := h.server.Config.Observability
	timeout := defaultHealthCheckTimeout
	if obs != nil && obs.HealthChecks.Timeout > 0 {
		timeout = obs.HealthChecks.Timeout
	}

	switch {
	case h.server.DB == nil:
		checks["database"] = map[string]interface{}{
			"status": "healthy",
			"driver": config.DriverMemory,
		}
	case obs == nil || obs.HealthCheckEnabled("database"):
		if err := h.probe(c.Request().Context(), checks, "database", timeout, h.server.DB.Ping); err != nil {
			isHealthy = false
		}
	}

	if h.server.Redis != nil && (obs == nil || obs.HealthCheckEnabled("redis")) {
		_ = h.probe(c.Request().Context(), checks, "redis", timeout, func(ctx context.Context) error {
			return h.server.Redis.Ping(ctx).Err()
		})
	}

	if !isHealthy {
		response["status"] = "unhealthy"

		logger.Warn().
			Dur("total_duration", time.Since(start)).
			Msg("health check failed")

		h.recordHealthEvent(map[string]interface{}{
			"check_type":        "overall",
			"operation":         "health_check",
			"error_type":        "overall_unhealthy",
			"total_duration_ms": time.Since(start).Milliseconds(),
		})

		return c.JSON(http.StatusServiceUnavailable, response)
	}

	logger.Debug().
		Dur("total_duration", time.Since(start)).
		Msg("health check passed")

	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write JSON response: %w", err)
	}

	return nil
}

// probe runs ping under timeout and records the outcome under name.
func (h *HealthHandler) probe(
	parent context.Context,
	checks map[string]interface{},
	name string,
	timeout time.Duration,
	ping func(context.Context) error,
) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	probeStart := time.Now()
	err := ping(ctx)
	elapsed := time.Since(probeStart)

	if err != nil {
		checks[name] = map[string]interface{}{
			"status":        "unhealthy",
			"response_time": elapsed.String(),
			"error":         err.Error(),
		}

		h.server.Logger.Error().
			Err(err).
			Str("check", name).
			Dur("response_time", elapsed).
			Msg("health check failed")

		h.recordHealthEvent(map[string]interface{}{
			"check_type":       name,
			"operation":        "health_check",
			"error_type":       name + "_unhealthy",
			"response_time_ms": elapsed.Milliseconds(),
			"error_message":    err.Error(),
		})
		return err
	}

	checks[name] = map[string]interface{}{
		"status":        "healthy",
		"response_time": elapsed.String(),
	}
	return nil
}

func (h *HealthHandler) recordHealthEvent(attrs map[string]interface{}) {
	if h.server.LoggerService != nil && h.server.LoggerService.GetApplication() != nil {
		h.server.LoggerService.GetApplication().RecordCustomEvent("HealthCheckError", attrs)
	}
}
