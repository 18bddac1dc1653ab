package service

import (
	"fmt"

	"github.com/deppfellow/covid-api/internal/lib/cache"
	"github.com/deppfellow/covid-api/internal/lib/job"
	"github.com/deppfellow/covid-api/internal/reference"
	"github.com/deppfellow/covid-api/internal/repository"
	"github.com/deppfellow/covid-api/internal/server"
)

// CacheKeyPrefix namespaces every summary cache key in Redis.
const CacheKeyPrefix = "covid-api:"

type Services struct {
	Auth        *AuthService
	Covid       *CovidService
	Aggregation *AggregationService
	Job         *job.JobService
}

func NewService(s *server.Server, repos *repository.Repositories) (*Services, error) {
	countries, err := reference.Countries(s.Config.App.CountriesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load country reference list: %w", err)
	}

	var summaryCache cache.Cache = cache.Nop{}
	if s.Redis != nil {
		summaryCache = cache.NewRedisCache(s.Redis, CacheKeyPrefix)
	}

	authService, err := NewAuthService(s, repos.Users)
	if err != nil {
		return nil, err
	}

	aggregation := NewAggregationService(s, repos.Observations, summaryCache, countries)

	return &Services{
		Auth:        authService,
		Covid:       NewCovidService(s, repos.Observations, summaryCache),
		Aggregation: aggregation,
		Job:         s.Job,
	}, nil
}
