package handler

import (
	"github.com/deppfellow/covid-api/internal/server"
	"github.com/deppfellow/covid-api/internal/service"
)

// Handlers groups all HTTP handlers so the router receives one value.
type Handlers struct {
	Health  *HealthHandler
	OpenAPI *OpenAPIHandler
	Auth    *AuthHandler
	Covid   *CovidHandler
}

// NewHandlers constructs the handler container.
func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(s),
		OpenAPI: NewOpenAPIHandler(s),
		Auth:    NewAuthHandler(s, services.Auth),
		Covid:   NewCovidHandler(s, services.Covid, services.Aggregation),
	}
}
