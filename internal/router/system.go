package router

import (
	"github.com/deppfellow/covid-api/internal/handler"
	"github.com/deppfellow/covid-api/internal/server"
	"github.com/deppfellow/covid-api/static"
	"github.com/labstack/echo/v4"
)

// registerSystemRoutes registers endpoints outside the business API:
// health, prometheus metrics and, when server.docs_enabled, the docs UI
// with its static assets.
func registerSystemRoutes(r *echo.Echo, h *handler.Handlers, s *server.Server) {
	r.GET("/status", h.Health.CheckHealth)
	r.GET("/metrics", echo.WrapHandler(s.Metrics.Handler()))

	if s.Config.Server.DocsEnabled {
		r.StaticFS("/static", static.Files)
		r.GET("/docs", h.OpenAPI.ServeOpenAPIUI)
	}
}
