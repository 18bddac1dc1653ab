// Package repository handles all interactions with the database.
//
// It contains raw SQL queries and methods to fetch, persist,
// or update data, abstracting SQL logic away from the service layer.
// An in-memory implementation of the same interfaces backs tests and
// the "memory" database driver.
package repository

import (
	"context"
	"errors"

	"github.com/deppfellow/covid-api/internal/model"
)

var (
	// ErrNotFound is returned by single-row lookups that match nothing.
	ErrNotFound = errors.New("record not found")

	// ErrEmailTaken is returned when a user with the same email exists.
	ErrEmailTaken = errors.New("email already registered")
)

// UserStore persists registered users. Email lookups are exact-match.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// ObservationStore persists observations. Every lookup is exact-match and
// case-sensitive; callers normalize names before querying.
type ObservationStore interface {
	// Insert assigns ID, Seq and CreatedAt and stores the row.
	Insert(ctx context.Context, o *model.Observation) error
	FindAll(ctx context.Context) ([]model.Observation, error)
	FindByID(ctx context.Context, id string) (*model.Observation, error)
	FindByCountry(ctx context.Context, country string) ([]model.Observation, error)
	FindByContinent(ctx context.Context, continent string) ([]model.Observation, error)
	FindByCountryAndIndicator(ctx context.Context, country, indicator string) ([]model.Observation, error)

	// Latest* return the newest row per model.Observation.Newer, or nil.
	LatestByCountry(ctx context.Context, country string) (*model.Observation, error)
	LatestByCountryAndIndicator(ctx context.Context, country, indicator string) (*model.Observation, error)

	UpdateWeeklyCount(ctx context.Context, id string, weeklyCount int64) (model.UpdateResult, error)
	Delete(ctx context.Context, id string) (model.DeleteResult, error)
}
