package router

import (
	"net/http"

	"github.com/deppfellow/covid-api/internal/handler"
	"github.com/deppfellow/covid-api/internal/middleware"
	"github.com/labstack/echo/v4"
)

// registerAPIRoutes mounts the user and covid data routes. Credential
// endpoints are rate limited; data endpoints require a token.
func registerAPIRoutes(r *echo.Echo, h *handler.Handlers, m *middleware.Middlewares) {
	api := r.Group("/api")

	user := api.Group("/user", m.RateLimit.Limit())
	user.POST("/register", handler.Handle(h.Auth.Handler, h.Auth.Register, http.StatusOK))
	user.POST("/login", handler.HandleText(h.Auth.Handler, h.Auth.Login, http.StatusOK))

	data := api.Group("/covid/data", m.Auth.RequireAuth)
	data.GET("/all", handler.Handle(h.Covid.Handler, h.Covid.All, http.StatusOK))
	data.GET("/get/continents", handler.Handle(h.Covid.Handler, h.Covid.ContinentSummary, http.StatusOK))
	data.GET("/get/countries", handler.Handle(h.Covid.Handler, h.Covid.CountrySummary, http.StatusOK))
	data.GET("/country/:country", handler.Handle(h.Covid.Handler, h.Covid.ByCountry, http.StatusOK))
	data.GET("/continent/:continent", handler.Handle(h.Covid.Handler, h.Covid.ByContinent, http.StatusOK))
	data.GET("/:id", handler.Handle(h.Covid.Handler, h.Covid.ByID, http.StatusOK))
	data.POST("/post", handler.Handle(h.Covid.Handler, h.Covid.Append, http.StatusOK))
	data.PATCH("/update/:id", handler.Handle(h.Covid.Handler, h.Covid.UpdateWeeklyCount, http.StatusOK))
	data.DELETE("/delete/:id", handler.Handle(h.Covid.Handler, h.Covid.Delete, http.StatusOK))
}
