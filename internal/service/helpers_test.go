package service

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/deppfellow/covid-api/internal/config"
	"github.com/deppfellow/covid-api/internal/lib/metrics"
	"github.com/deppfellow/covid-api/internal/model"
	"github.com/deppfellow/covid-api/internal/repository"
	"github.com/deppfellow/covid-api/internal/server"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *server.Server {
	t.Helper()

	cfg := &config.Config{
		Primary: config.Primary{Env: "test"},
		Server: config.ServerConfig{
			Port:               "0",
			ReadTimeout:        5,
			WriteTimeout:       5,
			IdleTimeout:        5,
			CORSAllowedOrigins: []string{"*"},
		},
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		Auth: config.AuthConfig{
			SecretKey: "test-secret-key-0123456789",
			TokenTTL:  time.Hour,
		},
	}
	require.NoError(t, cfg.Finalize())

	logger := zerolog.Nop()
	return &server.Server{
		Config:  cfg,
		Logger:  &logger,
		Metrics: metrics.New(),
	}
}

// mapCache is an in-process cache.Cache for asserting cache traffic.
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (m *mapCache) Get(_ context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *mapCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

func (m *mapCache) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	if raw, ok := m.entries[key]; ok {
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, err
		}
	}
	n++
	m.entries[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func (m *mapCache) generation() int64 {
	var n int64
	_, _ = m.Get(context.Background(), summaryGenerationKey, &n)
	return n
}

func (m *mapCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

func seed(t *testing.T, store repository.ObservationStore, rows ...model.Observation) {
	t.Helper()
	for i := range rows {
		require.NoError(t, store.Insert(context.Background(), &rows[i]))
	}
}

func obs(country, indicator, yearWeek string, cumulative int64) model.Observation {
	return model.Observation{
		Country:         country,
		Continent:       "Europe",
		Population:      1000,
		Indicator:       indicator,
		WeeklyCount:     1,
		YearWeek:        yearWeek,
		CumulativeCount: cumulative,
		Source:          "test",
	}
}

// gatedStore pauses the first LatestByCountry call after it has read the
// store, until release is closed.
type gatedStore struct {
	*repository.Memory
	once    sync.Once
	reached chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		Memory:  repository.NewMemory(),
		reached: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedStore) LatestByCountry(ctx context.Context, country string) (*model.Observation, error) {
	o, err := g.Memory.LatestByCountry(ctx, country)
	g.once.Do(func() {
		close(g.reached)
		<-g.release
	})
	return o, err
}
