package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/deppfellow/covid-api/internal/lib/cache"
	"github.com/deppfellow/covid-api/internal/lib/metrics"
	"github.com/deppfellow/covid-api/internal/model"
	"github.com/deppfellow/covid-api/internal/repository"
	"github.com/deppfellow/covid-api/internal/server"
	"github.com/rs/zerolog"
)

// CovidService reads and writes observations.
//
// Concurrent appends or updates on one series are last-write-wins: two
// appends racing on the same (country, indicator) may compute the same
// year-week.
type CovidService struct {
	store   repository.ObservationStore
	cache   cache.Cache
	metrics *metrics.Metrics
	logger  *zerolog.Logger
}

// AppendInput is an observation without its period; the period is derived
// from the latest row of the same series.
type AppendInput struct {
	Country         string
	CountryCode     *string
	Continent       string
	Population      int64
	Indicator       string
	WeeklyCount     int64
	Rate14Day       *float64
	CumulativeCount int64
	Source          string
}

func NewCovidService(s *server.Server, store repository.ObservationStore, c cache.Cache) *CovidService {
	return &CovidService{
		store:   store,
		cache:   c,
		metrics: s.Metrics,
		logger:  s.Logger,
	}
}

func (c *CovidService) All(ctx context.Context) ([]model.Observation, error) {
	return c.store.FindAll(ctx)
}

// ByID returns zero or one observation.
func (c *CovidService) ByID(ctx context.Context, id string) ([]model.Observation, error) {
	o, err := c.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return []model.Observation{}, nil
		}
		return nil, err
	}
	return []model.Observation{*o}, nil
}

func (c *CovidService) ByCountry(ctx context.Context, country string) ([]model.Observation, error) {
	return c.store.FindByCountry(ctx, country)
}

func (c *CovidService) ByContinent(ctx context.Context, continent string) ([]model.Observation, error) {
	return c.store.FindByContinent(ctx, continent)
}

// NextYearWeek returns the period following the latest row of the
// (country, indicator) series, or ErrNoPriorRecord.
func (c *CovidService) NextYearWeek(ctx context.Context, country, indicator string) (string, error) {
	latest, err := c.store.LatestByCountryAndIndicator(ctx, country, indicator)
	if err != nil {
		return "", err
	}
	if latest == nil {
		return "", ErrNoPriorRecord
	}

	next, err := model.NextYearWeek(latest.YearWeek)
	if err != nil {
		return "", fmt.Errorf("latest observation %s: %w", latest.ID, err)
	}
	return next, nil
}

// Append stores a new observation one period after the series' latest row.
func (c *CovidService) Append(ctx context.Context, in AppendInput) (*model.Observation, error) {
	yearWeek, err := c.NextYearWeek(ctx, in.Country, in.Indicator)
	if err != nil {
		return nil, err
	}

	o := &model.Observation{
		Country:         in.Country,
		CountryCode:     in.CountryCode,
		Continent:       in.Continent,
		Population:      in.Population,
		Indicator:       in.Indicator,
		WeeklyCount:     in.WeeklyCount,
		YearWeek:        yearWeek,
		Rate14Day:       in.Rate14Day,
		CumulativeCount: in.CumulativeCount,
		Source:          in.Source,
	}
	if err := c.store.Insert(ctx, o); err != nil {
		return nil, err
	}

	c.metrics.ObservationWrite("append")
	c.invalidateSummaries(ctx)
	return o, nil
}

// Import stores observations as given, keeping their year-week. It seeds
// the baseline rows Append needs.
func (c *CovidService) Import(ctx context.Context, observations []model.Observation) (int, error) {
	for i := range observations {
		o := observations[i]
		o.ID = ""
		if err := c.store.Insert(ctx, &o); err != nil {
			return i, fmt.Errorf("import row %d: %w", i, err)
		}
	}

	if len(observations) > 0 {
		c.metrics.ObservationWrite("import")
		c.invalidateSummaries(ctx)
	}
	return len(observations), nil
}

func (c *CovidService) UpdateWeeklyCount(ctx context.Context, id string, weeklyCount int64) (model.UpdateResult, error) {
	res, err := c.store.UpdateWeeklyCount(ctx, id, weeklyCount)
	if err != nil {
		return model.UpdateResult{}, err
	}
	if res.Modified > 0 {
		c.metrics.ObservationWrite("update")
		c.invalidateSummaries(ctx)
	}
	return res, nil
}

func (c *CovidService) Delete(ctx context.Context, id string) (model.DeleteResult, error) {
	res, err := c.store.Delete(ctx, id)
	if err != nil {
		return model.DeleteResult{}, err
	}
	if res.Deleted > 0 {
		c.metrics.ObservationWrite("delete")
		c.invalidateSummaries(ctx)
	}
	return res, nil
}

// invalidateSummaries runs after the store write so a reader that sees the
// new generation also sees the write.
func (c *CovidService) invalidateSummaries(ctx context.Context) {
	if _, err := c.cache.Incr(ctx, summaryGenerationKey); err != nil {
		c.logger.Warn().Err(err).Msg("failed to invalidate summary cache")
	}
}
