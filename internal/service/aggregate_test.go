package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/deppfellow/covid-api/internal/model"
	"github.com/deppfellow/covid-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAggregation(t *testing.T, refs []model.CountryReference) (*AggregationService, *repository.Memory, *mapCache) {
	t.Helper()
	store := repository.NewMemory()
	c := newMapCache()
	return NewAggregationService(newTestServer(t), store, c, refs), store, c
}

func TestLatestForEntity_NumericOrdering(t *testing.T) {
	svc, store, _ := newAggregation(t, nil)
	seed(t, store,
		obs("Spain", "cases", "2021-10", 200),
		obs("Spain", "cases", "2021-9", 100),
	)

	latest, err := svc.LatestForEntity(context.Background(), "Spain")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2021-10", latest.YearWeek)
	assert.Equal(t, int64(200), latest.CumulativeCount)
}

func TestLatestForEntity_TieBrokenByInsertionOrder(t *testing.T) {
	svc, store, _ := newAggregation(t, nil)
	seed(t, store,
		obs("Spain", "cases", "2021-10", 1),
		obs("Spain", "deaths", "2021-10", 2),
	)

	latest, err := svc.LatestForEntity(context.Background(), "Spain")
	require.NoError(t, err)
	assert.Equal(t, int64(2), latest.CumulativeCount)
}

func TestContinentSummary(t *testing.T) {
	svc, store, c := newAggregation(t, nil)
	ctx := context.Background()

	seed(t, store,
		obs("Europe (total)", "cases", "2021-1", 10),
		obs("Europe (total)", "cases", "2021-2", 20),
		obs("Asia (total)", "cases", "2021-5", 7),
	)

	summary, err := svc.ContinentSummary(ctx)
	require.NoError(t, err)

	require.Len(t, summary, 5)
	require.NotNil(t, summary["europeTotal"])
	assert.Equal(t, int64(20), summary["europeTotal"].CumulativeCount)
	require.NotNil(t, summary["asiaTotal"])
	assert.Equal(t, "2021-5", summary["asiaTotal"].YearWeek)
	assert.Nil(t, summary["africaTotal"])
	assert.Contains(t, summary, "oceaniaTotal")

	assert.True(t, c.has(summaryKey(continentSummaryKey, 0)))
}

func TestCountrySummary_PartialResult(t *testing.T) {
	refs := []model.CountryReference{
		{Code: "ESP", Country: "Spain"},
		{Code: "FRA", Country: "France"},
	}
	svc, store, _ := newAggregation(t, refs)
	seed(t, store,
		obs("Spain", "cases", "2021-1", 100),
		obs("Spain", "cases", "2021-2", 150),
	)

	totals, err := svc.CountrySummary(context.Background(), refs)
	require.NoError(t, err)
	require.Len(t, totals, 2)

	assert.Equal(t, "ESP", totals[0].Code)
	require.NotNil(t, totals[0].CumulativeCount)
	assert.Equal(t, int64(150), *totals[0].CumulativeCount)
	assert.Empty(t, totals[0].Error)

	assert.Equal(t, "FRA", totals[1].Code)
	assert.True(t, totals[1].Missing())
	assert.Equal(t, model.MissingDataMessage, totals[1].Error)
}

func TestCountrySummary_PreservesOrderUnderConcurrency(t *testing.T) {
	refs := make([]model.CountryReference, 0, 60)
	for i := range 60 {
		refs = append(refs, model.CountryReference{
			Code:    fmt.Sprintf("C%02d", i),
			Country: fmt.Sprintf("Country %02d", i),
		})
	}

	svc, store, _ := newAggregation(t, refs)
	for i, ref := range refs {
		if i%3 == 0 {
			continue
		}
		seed(t, store, obs(ref.Country, "cases", "2021-1", int64(i)))
	}

	totals, err := svc.ReferenceCountrySummary(context.Background())
	require.NoError(t, err)
	require.Len(t, totals, len(refs))

	for i, total := range totals {
		assert.Equal(t, refs[i].Code, total.Code)
		if i%3 == 0 {
			assert.True(t, total.Missing(), total.Code)
			continue
		}
		require.NotNil(t, total.CumulativeCount, total.Code)
		assert.Equal(t, int64(i), *total.CumulativeCount)
	}
}

func TestReferenceCountrySummary_ServedFromCacheUntilInvalidated(t *testing.T) {
	refs := []model.CountryReference{{Code: "ESP", Country: "Spain"}}
	svc, store, c := newAggregation(t, refs)
	ctx := context.Background()

	first, err := svc.ReferenceCountrySummary(ctx)
	require.NoError(t, err)
	assert.True(t, first[0].Missing())

	seed(t, store, obs("Spain", "cases", "2021-1", 100))

	cached, err := svc.ReferenceCountrySummary(ctx)
	require.NoError(t, err)
	assert.True(t, cached[0].Missing())

	_, err = c.Incr(ctx, summaryGenerationKey)
	require.NoError(t, err)

	fresh, err := svc.ReferenceCountrySummary(ctx)
	require.NoError(t, err)
	require.NotNil(t, fresh[0].CumulativeCount)
	assert.Equal(t, int64(100), *fresh[0].CumulativeCount)
}

func TestReferenceCountrySummary_WriteDuringComputeIsNotCached(t *testing.T) {
	refs := []model.CountryReference{{Code: "ESP", Country: "Spain"}}
	store := newGatedStore()
	c := newMapCache()
	s := newTestServer(t)
	aggregation := NewAggregationService(s, store, c, refs)
	covid := NewCovidService(s, store, c)
	ctx := context.Background()

	seed(t, store, obs("Spain", "cases", "2021-1", 100))

	done := make(chan []model.CountryTotal, 1)
	go func() {
		totals, err := aggregation.ReferenceCountrySummary(ctx)
		assert.NoError(t, err)
		done <- totals
	}()

	<-store.reached
	in := appendInput("Spain", "cases")
	in.CumulativeCount = 200
	_, err := covid.Append(ctx, in)
	require.NoError(t, err)
	close(store.release)

	stale := <-done
	require.NotNil(t, stale[0].CumulativeCount)
	assert.Equal(t, int64(100), *stale[0].CumulativeCount)

	fresh, err := aggregation.ReferenceCountrySummary(ctx)
	require.NoError(t, err)
	require.NotNil(t, fresh[0].CumulativeCount)
	assert.Equal(t, int64(200), *fresh[0].CumulativeCount)
}

func TestReferenceCountrySummary_NegativeTTLDisablesCache(t *testing.T) {
	refs := []model.CountryReference{{Code: "ESP", Country: "Spain"}}
	store := repository.NewMemory()
	c := newMapCache()
	s := newTestServer(t)
	s.Config.Cache.SummaryTTL = -1
	svc := NewAggregationService(s, store, c, refs)
	ctx := context.Background()

	_, err := svc.ReferenceCountrySummary(ctx)
	require.NoError(t, err)
	assert.False(t, c.has(summaryKey(countrySummaryKey, 0)))

	seed(t, store, obs("Spain", "cases", "2021-1", 100))

	totals, err := svc.ReferenceCountrySummary(ctx)
	require.NoError(t, err)
	require.NotNil(t, totals[0].CumulativeCount)
	assert.Equal(t, int64(100), *totals[0].CumulativeCount)
}
