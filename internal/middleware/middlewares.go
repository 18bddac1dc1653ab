package middleware

import (
	"github.com/deppfellow/covid-api/internal/server"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// Middlewares groups all middleware components used by the HTTP server so
// the router builds them once.
type Middlewares struct {
	// Global holds CORS, request logging, recovery, secure headers, body
	// limit, request timeout and the global error handler.
	Global *GlobalMiddlewares

	// Auth verifies the auth-token header on data routes.
	Auth *AuthMiddleware

	ContextEnhancer *ContextEnhancer
	Tracing         *TracingMiddleware

	// RateLimit throttles the register and login endpoints.
	RateLimit *RateLimitMiddleware

	Metrics *MetricsMiddleware
}

// NewMiddlewares constructs all middleware components.
//
// When New Relic is not configured nrApp is nil and the tracing
// middleware passes requests through unchanged.
func NewMiddlewares(s *server.Server, verifier TokenVerifier) *Middlewares {
	var nrApp *newrelic.Application
	if s.LoggerService != nil {
		nrApp = s.LoggerService.GetApplication()
	}

	return &Middlewares{
		Global:          NewGlobalMiddlewares(s),
		Auth:            NewAuthMiddleware(s, verifier),
		ContextEnhancer: NewContextEnhancer(s),
		Tracing:         NewTracingMiddleware(s, nrApp),
		RateLimit:       NewRateLimitMiddleware(s),
		Metrics:         NewMetricsMiddleware(s),
	}
}
