package repository

import (
	"context"
	"os"
	"testing"

	"github.com/deppfellow/covid-api/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPostgresIntegration runs against a migrated database named by
// COVID_TEST_POSTGRES_DSN.
func TestPostgresIntegration(t *testing.T) {
	dsn := os.Getenv("COVID_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("COVID_TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	users := NewUserRepository(pool)
	observations := NewObservationRepository(pool)

	email := uuid.NewString() + "@example.com"
	require.NoError(t, users.Create(ctx, &model.User{Name: "Integration", Email: email, PasswordHash: "x"}))
	assert.ErrorIs(t, users.Create(ctx, &model.User{Name: "Integration", Email: email, PasswordHash: "x"}), ErrEmailTaken)

	country := "Testland-" + uuid.NewString()[:8]
	for _, yw := range []string{"2021-9", "2021-10"} {
		require.NoError(t, observations.Insert(ctx, &model.Observation{
			Country: country, Continent: "Europe", Indicator: "cases",
			YearWeek: yw, Population: 1, Source: "test",
		}))
	}

	latest, err := observations.LatestByCountryAndIndicator(ctx, country, "cases")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2021-10", latest.YearWeek)

	res, err := observations.UpdateWeeklyCount(ctx, latest.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, model.UpdateResult{Matched: 1, Modified: 1}, res)

	del, err := observations.Delete(ctx, latest.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, del.Deleted)
}
