package service

import (
	"context"
	"testing"

	"github.com/deppfellow/covid-api/internal/model"
	"github.com/deppfellow/covid-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCovid(t *testing.T) (*CovidService, *repository.Memory, *mapCache) {
	t.Helper()
	store := repository.NewMemory()
	c := newMapCache()
	return NewCovidService(newTestServer(t), store, c), store, c
}

func appendInput(country, indicator string) AppendInput {
	return AppendInput{
		Country:         country,
		Continent:       "Europe",
		Population:      47000000,
		Indicator:       indicator,
		WeeklyCount:     120,
		CumulativeCount: 5000,
		Source:          "manual",
	}
}

func TestAppend_NextWeekOfSameSeries(t *testing.T) {
	svc, store, _ := newCovid(t)
	ctx := context.Background()

	seed(t, store,
		obs("Spain", "cases", "2021-9", 10),
		obs("Spain", "cases", "2021-10", 20),
		obs("Spain", "deaths", "2021-30", 1),
	)

	o, err := svc.Append(ctx, appendInput("Spain", "cases"))
	require.NoError(t, err)
	assert.Equal(t, "2021-11", o.YearWeek)
	assert.NotEmpty(t, o.ID)

	o, err = svc.Append(ctx, appendInput("Spain", "deaths"))
	require.NoError(t, err)
	assert.Equal(t, "2021-31", o.YearWeek)
}

func TestAppend_YearRollover(t *testing.T) {
	svc, store, _ := newCovid(t)
	seed(t, store, obs("Spain", "cases", "2020-53", 10))

	o, err := svc.Append(context.Background(), appendInput("Spain", "cases"))
	require.NoError(t, err)
	assert.Equal(t, "2021-0", o.YearWeek)
}

func TestAppend_NoPriorRecord(t *testing.T) {
	svc, store, c := newCovid(t)
	seed(t, store, obs("Spain", "deaths", "2021-1", 1))

	_, err := svc.Append(context.Background(), appendInput("Spain", "cases"))
	assert.ErrorIs(t, err, ErrNoPriorRecord)
	assert.Zero(t, c.generation())

	rows, err := store.FindByCountry(context.Background(), "Spain")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestByID(t *testing.T) {
	svc, store, _ := newCovid(t)
	ctx := context.Background()

	rows := []model.Observation{obs("Spain", "cases", "2021-1", 1)}
	seed(t, store, rows...)

	got, err := svc.ByID(ctx, rows[0].ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Spain", got[0].Country)

	got, err = svc.ByID(ctx, "2b1d9f7e-1111-4a3b-8c6d-000000000000")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestWritesBumpSummaryGeneration(t *testing.T) {
	svc, store, c := newCovid(t)
	ctx := context.Background()

	rows := []model.Observation{obs("Spain", "cases", "2021-1", 1)}
	seed(t, store, rows...)
	id := rows[0].ID

	_, err := svc.Append(ctx, appendInput("Spain", "cases"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.generation())

	res, err := svc.UpdateWeeklyCount(ctx, id, 99)
	require.NoError(t, err)
	assert.Equal(t, model.UpdateResult{Matched: 1, Modified: 1}, res)
	assert.Equal(t, int64(2), c.generation())

	del, err := svc.Delete(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), del.Deleted)
	assert.Equal(t, int64(3), c.generation())

	del, err = svc.Delete(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, del.Deleted)
	assert.Equal(t, int64(3), c.generation())
}

func TestImport_KeepsYearWeek(t *testing.T) {
	svc, store, _ := newCovid(t)
	ctx := context.Background()

	rows := []model.Observation{
		obs("France", "cases", "2020-52", 100),
		obs("France", "cases", "2020-53", 150),
	}
	rows[0].ID = "ignored"

	n, err := svc.Import(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	latest, err := store.LatestByCountryAndIndicator(ctx, "France", "cases")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2020-53", latest.YearWeek)
	assert.NotEqual(t, "ignored", latest.ID)
}

func TestImport_RejectsMalformedYearWeek(t *testing.T) {
	svc, _, _ := newCovid(t)

	n, err := svc.Import(context.Background(), []model.Observation{
		obs("France", "cases", "2020-52", 100),
		obs("France", "cases", "week-1", 100),
	})
	require.Error(t, err)
	assert.Equal(t, 1, n)
}
