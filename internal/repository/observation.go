package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/deppfellow/covid-api/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const observationColumns = `
	id::text, seq, country, country_code, continent, population, indicator,
	weekly_count, year_week, rate_14_day, cumulative_count, source, created_at
`

// latestOrder sorts newest first using the numeric year-week columns and
// insertion order as tie-break.
const latestOrder = `ORDER BY year_week_year DESC, year_week_number DESC, seq DESC`

// ObservationRepository stores observations in postgres.
type ObservationRepository struct {
	db DBTX
}

func NewObservationRepository(db DBTX) *ObservationRepository {
	return &ObservationRepository{db: db}
}

func (r *ObservationRepository) Insert(ctx context.Context, o *model.Observation) error {
	yw, err := model.ParseYearWeek(o.YearWeek)
	if err != nil {
		return err
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	stmt := `
		INSERT INTO observations (
			id, country, country_code, continent, population, indicator, weekly_count,
			year_week, year_week_year, year_week_number, rate_14_day, cumulative_count, source
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING seq, created_at
	`

	err = r.db.QueryRow(ctx, stmt,
		o.ID, o.Country, o.CountryCode, o.Continent, o.Population, o.Indicator, o.WeeklyCount,
		o.YearWeek, yw.Year, yw.Week, o.Rate14Day, o.CumulativeCount, o.Source,
	).Scan(&o.Seq, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert observation: %w", err)
	}

	return nil
}

func (r *ObservationRepository) FindAll(ctx context.Context) ([]model.Observation, error) {
	return r.query(ctx, `SELECT `+observationColumns+` FROM observations ORDER BY seq`)
}

func (r *ObservationRepository) FindByID(ctx context.Context, id string) (*model.Observation, error) {
	return r.queryOne(ctx, `SELECT `+observationColumns+` FROM observations WHERE id = $1`, id)
}

func (r *ObservationRepository) FindByCountry(ctx context.Context, country string) ([]model.Observation, error) {
	return r.query(ctx, `SELECT `+observationColumns+` FROM observations WHERE country = $1 ORDER BY seq`, country)
}

func (r *ObservationRepository) FindByContinent(ctx context.Context, continent string) ([]model.Observation, error) {
	return r.query(ctx, `SELECT `+observationColumns+` FROM observations WHERE continent = $1 ORDER BY seq`, continent)
}

func (r *ObservationRepository) FindByCountryAndIndicator(ctx context.Context, country, indicator string) ([]model.Observation, error) {
	return r.query(ctx,
		`SELECT `+observationColumns+` FROM observations WHERE country = $1 AND indicator = $2 ORDER BY seq`,
		country, indicator)
}

func (r *ObservationRepository) LatestByCountry(ctx context.Context, country string) (*model.Observation, error) {
	o, err := r.queryOne(ctx,
		`SELECT `+observationColumns+` FROM observations WHERE country = $1 `+latestOrder+` LIMIT 1`,
		country)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return o, err
}

func (r *ObservationRepository) LatestByCountryAndIndicator(ctx context.Context, country, indicator string) (*model.Observation, error) {
	o, err := r.queryOne(ctx,
		`SELECT `+observationColumns+` FROM observations WHERE country = $1 AND indicator = $2 `+latestOrder+` LIMIT 1`,
		country, indicator)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return o, err
}

func (r *ObservationRepository) UpdateWeeklyCount(ctx context.Context, id string, weeklyCount int64) (model.UpdateResult, error) {
	stmt := `
		WITH target AS (
			SELECT id, weekly_count FROM observations WHERE id = $1 FOR UPDATE
		), updated AS (
			UPDATE observations o
			SET weekly_count = $2
			FROM target t
			WHERE o.id = t.id AND t.weekly_count <> $2
			RETURNING o.id
		)
		SELECT (SELECT COUNT(*) FROM target), (SELECT COUNT(*) FROM updated)
	`

	var result model.UpdateResult
	if err := r.db.QueryRow(ctx, stmt, id, weeklyCount).Scan(&result.Matched, &result.Modified); err != nil {
		return model.UpdateResult{}, fmt.Errorf("failed to update weekly count: %w", err)
	}
	return result, nil
}

func (r *ObservationRepository) Delete(ctx context.Context, id string) (model.DeleteResult, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM observations WHERE id = $1`, id)
	if err != nil {
		return model.DeleteResult{}, fmt.Errorf("failed to delete observation: %w", err)
	}
	return model.DeleteResult{Deleted: tag.RowsAffected()}, nil
}

func (r *ObservationRepository) query(ctx context.Context, stmt string, args ...any) ([]model.Observation, error) {
	rows, err := r.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}

	observations, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Observation, error) {
		return scanObservation(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect observations: %w", err)
	}
	if observations == nil {
		observations = []model.Observation{}
	}
	return observations, nil
}

func (r *ObservationRepository) queryOne(ctx context.Context, stmt string, args ...any) (*model.Observation, error) {
	o, err := scanObservation(r.db.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query observation: %w", err)
	}
	return &o, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObservation(row rowScanner) (model.Observation, error) {
	var o model.Observation
	err := row.Scan(
		&o.ID, &o.Seq, &o.Country, &o.CountryCode, &o.Continent, &o.Population, &o.Indicator,
		&o.WeeklyCount, &o.YearWeek, &o.Rate14Day, &o.CumulativeCount, &o.Source, &o.CreatedAt,
	)
	return o, err
}
