package service

import (
	"context"
	"fmt"
	"time"

	"github.com/deppfellow/covid-api/internal/lib/cache"
	"github.com/deppfellow/covid-api/internal/lib/metrics"
	"github.com/deppfellow/covid-api/internal/model"
	"github.com/deppfellow/covid-api/internal/repository"
	"github.com/deppfellow/covid-api/internal/server"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	continentSummaryKey = "summary:continents"
	countrySummaryKey   = "summary:countries"

	// summaryGenerationKey is bumped after every observation write. Summary
	// entries are stored under the generation read before computing them,
	// so a summary computed across a write is never served afterwards.
	summaryGenerationKey = "summary:generation"
)

func summaryKey(name string, generation int64) string {
	return fmt.Sprintf("%s:%d", name, generation)
}

// AggregationService derives latest-per-entity summaries.
//
// Lookups inside one summary run concurrently; the response is composed
// once all of them finish.
type AggregationService struct {
	store       repository.ObservationStore
	cache       cache.Cache
	cacheTTL    time.Duration
	countries   []model.CountryReference
	concurrency int
	metrics     *metrics.Metrics
	logger      *zerolog.Logger
}

func NewAggregationService(
	s *server.Server,
	store repository.ObservationStore,
	c cache.Cache,
	countries []model.CountryReference,
) *AggregationService {
	return &AggregationService{
		store:       store,
		cache:       c,
		cacheTTL:    s.Config.Cache.SummaryTTL,
		countries:   countries,
		concurrency: s.Config.App.AggregationConcurrency,
		metrics:     s.Metrics,
		logger:      s.Logger,
	}
}

// Countries returns the configured reference list.
func (a *AggregationService) Countries() []model.CountryReference {
	return a.countries
}

// LatestForEntity returns the newest observation whose country equals name,
// comparing year-weeks numerically and breaking ties by insertion order.
// Synthetic "<Continent> (total)" rows are ordinary entities here.
func (a *AggregationService) LatestForEntity(ctx context.Context, name string) (*model.Observation, error) {
	return a.store.LatestByCountry(ctx, name)
}

// ContinentSummary returns the latest aggregate row for each continent,
// keyed asiaTotal, africaTotal, europeTotal, americaTotal, oceaniaTotal.
// Continents without data map to nil.
func (a *AggregationService) ContinentSummary(ctx context.Context) (model.ContinentSummary, error) {
	key, cacheable := a.summaryCacheKey(ctx, continentSummaryKey)

	var cached model.ContinentSummary
	if cacheable && a.cacheGet(ctx, continentSummaryKey, key, &cached) {
		return cached, nil
	}

	start := time.Now()
	latest := make([]*model.Observation, len(model.Continents))

	g, gctx := errgroup.WithContext(ctx)
	for i, continent := range model.Continents {
		g.Go(func() error {
			o, err := a.LatestForEntity(gctx, continent.TotalEntity())
			if err != nil {
				return err
			}
			latest[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := make(model.ContinentSummary, len(model.Continents))
	for i, continent := range model.Continents {
		summary[continent.Key] = latest[i]
	}

	a.metrics.ObserveAggregation("continents", time.Since(start))
	if cacheable {
		a.cacheSet(ctx, key, summary)
	}
	return summary, nil
}

// CountrySummary computes the latest cumulative count for each reference
// entry, in reference order. Entries without data are returned as
// MissingData entries rather than failing the batch; store errors fail it.
func (a *AggregationService) CountrySummary(ctx context.Context, refs []model.CountryReference) ([]model.CountryTotal, error) {
	start := time.Now()
	totals := make([]model.CountryTotal, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	if a.concurrency > 0 {
		g.SetLimit(a.concurrency)
	}

	for i, ref := range refs {
		g.Go(func() error {
			o, err := a.LatestForEntity(gctx, ref.Country)
			if err != nil {
				return err
			}

			entry := model.CountryTotal{Code: ref.Code, Country: ref.Country}
			if o == nil {
				entry.Error = model.MissingDataMessage
			} else {
				count := o.CumulativeCount
				entry.CumulativeCount = &count
			}
			totals[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	missing := 0
	for _, t := range totals {
		if t.Missing() {
			missing++
		}
	}
	if missing > 0 {
		a.logger.Debug().Int("missing", missing).Int("countries", len(refs)).Msg("country summary has missing data")
	}

	a.metrics.SetMissingCountries(missing)
	a.metrics.ObserveAggregation("countries", time.Since(start))
	return totals, nil
}

// ReferenceCountrySummary runs CountrySummary over the configured list,
// served from the cache when possible.
func (a *AggregationService) ReferenceCountrySummary(ctx context.Context) ([]model.CountryTotal, error) {
	key, cacheable := a.summaryCacheKey(ctx, countrySummaryKey)

	var cached []model.CountryTotal
	if cacheable && a.cacheGet(ctx, countrySummaryKey, key, &cached) {
		return cached, nil
	}

	totals, err := a.CountrySummary(ctx, a.countries)
	if err != nil {
		return nil, err
	}

	if cacheable {
		a.cacheSet(ctx, key, totals)
	}
	return totals, nil
}

// summaryCacheKey scopes name by the current write generation. It must be
// called before the summary is computed. The second result is false when
// caching is disabled or the generation cannot be read.
func (a *AggregationService) summaryCacheKey(ctx context.Context, name string) (string, bool) {
	if a.cacheTTL <= 0 {
		return "", false
	}

	var generation int64
	if _, err := a.cache.Get(ctx, summaryGenerationKey, &generation); err != nil {
		a.logger.Warn().Err(err).Msg("summary cache generation read failed")
		return "", false
	}
	return summaryKey(name, generation), true
}

// Cache failures only cost a recomputation, so they are logged and ignored.
func (a *AggregationService) cacheGet(ctx context.Context, name, key string, dest any) bool {
	found, err := a.cache.Get(ctx, key, dest)
	if err != nil {
		a.logger.Warn().Err(err).Str("key", key).Msg("summary cache read failed")
		return false
	}
	a.metrics.CacheLookup(name, found)
	return found
}

func (a *AggregationService) cacheSet(ctx context.Context, key string, value any) {
	if err := a.cache.Set(ctx, key, value, a.cacheTTL); err != nil {
		a.logger.Warn().Err(err).Str("key", key).Msg("summary cache write failed")
	}
}
