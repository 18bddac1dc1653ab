package repository

import (
	"context"
	"sync"
	"time"

	"github.com/deppfellow/covid-api/internal/model"
	"github.com/google/uuid"
)

// Memory is a thread-safe in-memory implementation of UserStore and
// ObservationStore. Data lives for the process lifetime only.
type Memory struct {
	mu           sync.RWMutex
	nextSeq      int64
	users        map[string]model.User
	observations []model.Observation
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		nextSeq: 1,
		users:   make(map[string]model.User),
	}
}

// UserStore implementation -------------------------------------------------

func (m *Memory) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[user.Email]; exists {
		return ErrEmailTaken
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now().UTC()

	m.users[user.Email] = *user
	return nil
}

func (m *Memory) FindByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[email]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (m *Memory) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.users[email]
	return ok, nil
}

// ObservationStore implementation ------------------------------------------

func (m *Memory) Insert(_ context.Context, o *model.Observation) error {
	if _, err := model.ParseYearWeek(o.YearWeek); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.Seq = m.nextSeq
	m.nextSeq++
	o.CreatedAt = time.Now().UTC()

	m.observations = append(m.observations, cloneObservation(*o))
	return nil
}

func (m *Memory) FindAll(_ context.Context) ([]model.Observation, error) {
	return m.filter(func(model.Observation) bool { return true }), nil
}

func (m *Memory) FindByID(_ context.Context, id string) (*model.Observation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if i := m.indexLocked(id); i >= 0 {
		o := cloneObservation(m.observations[i])
		return &o, nil
	}
	return nil, ErrNotFound
}

func (m *Memory) FindByCountry(_ context.Context, country string) ([]model.Observation, error) {
	return m.filter(func(o model.Observation) bool { return o.Country == country }), nil
}

func (m *Memory) FindByContinent(_ context.Context, continent string) ([]model.Observation, error) {
	return m.filter(func(o model.Observation) bool { return o.Continent == continent }), nil
}

func (m *Memory) FindByCountryAndIndicator(_ context.Context, country, indicator string) ([]model.Observation, error) {
	return m.filter(func(o model.Observation) bool {
		return o.Country == country && o.Indicator == indicator
	}), nil
}

func (m *Memory) LatestByCountry(ctx context.Context, country string) (*model.Observation, error) {
	rows, _ := m.FindByCountry(ctx, country)
	return model.Latest(rows), nil
}

func (m *Memory) LatestByCountryAndIndicator(ctx context.Context, country, indicator string) (*model.Observation, error) {
	rows, _ := m.FindByCountryAndIndicator(ctx, country, indicator)
	return model.Latest(rows), nil
}

func (m *Memory) UpdateWeeklyCount(_ context.Context, id string, weeklyCount int64) (model.UpdateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(id)
	if i < 0 {
		return model.UpdateResult{}, nil
	}

	result := model.UpdateResult{Matched: 1}
	if m.observations[i].WeeklyCount != weeklyCount {
		m.observations[i].WeeklyCount = weeklyCount
		result.Modified = 1
	}
	return result, nil
}

func (m *Memory) Delete(_ context.Context, id string) (model.DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(id)
	if i < 0 {
		return model.DeleteResult{}, nil
	}

	m.observations = append(m.observations[:i], m.observations[i+1:]...)
	return model.DeleteResult{Deleted: 1}, nil
}

func (m *Memory) indexLocked(id string) int {
	for i := range m.observations {
		if m.observations[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Memory) filter(keep func(model.Observation) bool) []model.Observation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []model.Observation{}
	for _, o := range m.observations {
		if keep(o) {
			out = append(out, cloneObservation(o))
		}
	}
	return out
}

// cloneObservation copies the optional pointer fields so callers cannot
// mutate stored rows.
func cloneObservation(o model.Observation) model.Observation {
	if o.CountryCode != nil {
		code := *o.CountryCode
		o.CountryCode = &code
	}
	if o.Rate14Day != nil {
		rate := *o.Rate14Day
		o.Rate14Day = &rate
	}
	return o
}
