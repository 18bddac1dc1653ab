package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/deppfellow/covid-api/internal/config"
	"github.com/deppfellow/covid-api/internal/handler"
	"github.com/deppfellow/covid-api/internal/lib/metrics"
	"github.com/deppfellow/covid-api/internal/model"
	"github.com/deppfellow/covid-api/internal/repository"
	"github.com/deppfellow/covid-api/internal/server"
	"github.com/deppfellow/covid-api/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	t        *testing.T
	router   *echo.Echo
	services *service.Services
}

func newTestApp(t *testing.T, docs bool) *testApp {
	t.Helper()

	cfg := &config.Config{
		Primary: config.Primary{Env: "test"},
		Server: config.ServerConfig{
			Port:               "0",
			ReadTimeout:        5,
			WriteTimeout:       5,
			IdleTimeout:        5,
			CORSAllowedOrigins: []string{"*"},
			DocsEnabled:        docs,
		},
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		Auth: config.AuthConfig{
			SecretKey: "router-test-secret-0123456789",
			TokenTTL:  time.Hour,
		},
	}
	require.NoError(t, cfg.Finalize())

	logger := zerolog.Nop()
	s := &server.Server{
		Config:  cfg,
		Logger:  &logger,
		Metrics: metrics.New(),
	}

	services, err := service.NewService(s, repository.NewRepositories(s))
	require.NoError(t, err)

	return &testApp{
		t:        t,
		router:   NewRouter(s, handler.NewHandlers(s, services), services),
		services: services,
	}
}

func (a *testApp) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("auth-token", token)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Errors  []struct {
		Field string `json:"field"`
		Error string `json:"error"`
	} `json:"errors"`
}

func (a *testApp) login(t *testing.T) string {
	t.Helper()

	rec := a.do(http.MethodPost, "/api/user/register", "", map[string]string{
		"name": "Grace Hopper", "email": "grace@example.com", "password": "cobol59",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/user/login", "", map[string]string{
		"email": "grace@example.com", "password": "cobol59",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return rec.Body.String()
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t, false)

	rec := app.do(http.MethodPost, "/api/user/register", "", map[string]string{
		"name": "Ada Lovelace", "email": "ada@example.com", "password": "engine1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	userID := decode[map[string]string](t, rec)["user_id"]
	assert.NotEmpty(t, userID)

	t.Run("duplicate email", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/api/user/register", "", map[string]string{
			"name": "Someone Else", "email": "ada@example.com", "password": "engine2",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode[errorBody](t, rec)
		assert.Equal(t, "EMAIL_ALREADY_EXISTS", body.Code)
		assert.Equal(t, "Email already exists", body.Message)
	})

	t.Run("validation errors name the json field", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/api/user/register", "", map[string]string{
			"name": "Ada", "email": "not-an-email", "password": "123",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		fields := map[string]bool{}
		for _, fe := range decode[errorBody](t, rec).Errors {
			fields[fe.Field] = true
		}
		assert.Equal(t, map[string]bool{"name": true, "email": true, "password": true}, fields)
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		wrong := app.do(http.MethodPost, "/api/user/login", "", map[string]string{
			"email": "ada@example.com", "password": "wrong-pass",
		})
		unknown := app.do(http.MethodPost, "/api/user/login", "", map[string]string{
			"email": "nobody@example.com", "password": "engine1",
		})

		assert.Equal(t, http.StatusBadRequest, wrong.Code)
		assert.Equal(t, http.StatusBadRequest, unknown.Code)
		assert.Equal(t, decode[errorBody](t, wrong), decode[errorBody](t, unknown))
		assert.Equal(t, "INVALID_CREDENTIALS", decode[errorBody](t, wrong).Code)
	})

	t.Run("login returns the bare token in body and header", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/api/user/login", "", map[string]string{
			"email": "ada@example.com", "password": "engine1",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMETextPlain))
		token := rec.Body.String()
		assert.NotEmpty(t, token)
		assert.NotContains(t, token, `"`)
		assert.Equal(t, token, rec.Header().Get("auth-token"))

		id, err := app.services.Auth.VerifyToken(token)
		require.NoError(t, err)
		assert.Equal(t, userID, id)
	})
}

func TestDataRoutesRequireToken(t *testing.T) {
	app := newTestApp(t, false)
	token := app.login(t)

	paths := []string{
		"/api/covid/data/all",
		"/api/covid/data/get/continents",
		"/api/covid/data/get/countries",
		"/api/covid/data/country/spain",
	}
	for _, p := range paths {
		assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, p, "", nil).Code, p)
		assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, p, token+"x", nil).Code, p)
		assert.Equal(t, http.StatusOK, app.do(http.MethodGet, p, token, nil).Code, p)
	}
}

func TestObservationLifecycle(t *testing.T) {
	app := newTestApp(t, false)
	token := app.login(t)
	ctx := context.Background()

	newRow := map[string]any{
		"country":          "Spain",
		"country_code":     "ESP",
		"continent":        "Europe",
		"population":       47000000,
		"indicator":        "cases",
		"weekly_count":     1200,
		"rate_14_day":      51.3,
		"cumulative_count": 3100000,
		"source":           "manual",
	}

	rec := app.do(http.MethodPost, "/api/covid/data/post", token, newRow)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "NO_PRIOR_RECORD", decode[errorBody](t, rec).Code)

	_, err := app.services.Covid.Import(ctx, []model.Observation{
		{Country: "Spain", Continent: "Europe", Indicator: "cases", YearWeek: "2021-9", CumulativeCount: 3000000, Source: "seed"},
		{Country: "Spain", Continent: "Europe", Indicator: "cases", YearWeek: "2021-10", CumulativeCount: 3050000, Source: "seed"},
		{Country: "Europe (total)", Continent: "Europe", Indicator: "cases", YearWeek: "2021-10", CumulativeCount: 9, Source: "seed"},
	})
	require.NoError(t, err)

	rec = app.do(http.MethodPost, "/api/covid/data/post", token, newRow)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode[model.Observation](t, rec)
	assert.Equal(t, "2021-11", created.YearWeek)
	assert.NotEmpty(t, created.ID)

	t.Run("client supplied year_week is overwritten", func(t *testing.T) {
		withWeek := map[string]any{"year_week": "2030-1"}
		for k, v := range newRow {
			withWeek[k] = v
		}
		rec := app.do(http.MethodPost, "/api/covid/data/post", token, withWeek)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2021-12", decode[model.Observation](t, rec).YearWeek)
	})

	t.Run("missing numeric field is rejected, zero is accepted", func(t *testing.T) {
		missing := map[string]any{}
		for k, v := range newRow {
			if k != "weekly_count" {
				missing[k] = v
			}
		}
		assert.Equal(t, http.StatusBadRequest, app.do(http.MethodPost, "/api/covid/data/post", token, missing).Code)

		missing["weekly_count"] = 0
		assert.Equal(t, http.StatusOK, app.do(http.MethodPost, "/api/covid/data/post", token, missing).Code)
	})

	t.Run("country path is capitalized", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/covid/data/country/spain", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]model.Observation](t, rec), 5)
	})

	t.Run("continent path is capitalized", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/covid/data/continent/europe", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]model.Observation](t, rec), 6)
	})

	t.Run("get by id", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/covid/data/"+created.ID, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		rows := decode[[]model.Observation](t, rec)
		require.Len(t, rows, 1)
		assert.Equal(t, created.ID, rows[0].ID)

		rec = app.do(http.MethodGet, "/api/covid/data/0d8c1f4e-5b6a-4c3d-9e8f-7a6b5c4d3e2f", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())

		rec = app.do(http.MethodGet, "/api/covid/data/not-a-uuid", token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update weekly count", func(t *testing.T) {
		rec := app.do(http.MethodPatch, "/api/covid/data/update/"+created.ID, token, map[string]any{"weekly_count": 42})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"matched":1,"modified":1}`, rec.Body.String())

		rec = app.do(http.MethodPatch, "/api/covid/data/update/0d8c1f4e-5b6a-4c3d-9e8f-7a6b5c4d3e2f", token, map[string]any{"weekly_count": 42})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"matched":0,"modified":0}`, rec.Body.String())

		rec = app.do(http.MethodPatch, "/api/covid/data/update/"+created.ID, token, map[string]any{"weekly_count": -1})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("summaries", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/covid/data/get/continents", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		continents := decode[map[string]*model.Observation](t, rec)
		assert.Len(t, continents, 5)
		require.NotNil(t, continents["europeTotal"])
		assert.Equal(t, int64(9), continents["europeTotal"].CumulativeCount)
		assert.Nil(t, continents["asiaTotal"])

		rec = app.do(http.MethodGet, "/api/covid/data/get/countries", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		totals := decode[[]model.CountryTotal](t, rec)

		byCode := map[string]model.CountryTotal{}
		for _, total := range totals {
			byCode[total.Code] = total
		}
		require.Contains(t, byCode, "ESP")
		require.NotNil(t, byCode["ESP"].CumulativeCount)
		assert.Equal(t, int64(3100000), *byCode["ESP"].CumulativeCount)
		require.Contains(t, byCode, "FRA")
		assert.Equal(t, model.MissingDataMessage, byCode["FRA"].Error)
	})

	t.Run("delete", func(t *testing.T) {
		rec := app.do(http.MethodDelete, "/api/covid/data/delete/"+created.ID, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"deleted":1}`, rec.Body.String())

		rec = app.do(http.MethodDelete, "/api/covid/data/delete/"+created.ID, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"deleted":0}`, rec.Body.String())
	})
}

func TestSystemRoutes(t *testing.T) {
	app := newTestApp(t, false)

	rec := app.do(http.MethodGet, "/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	rec = app.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "covid_api_http_request_duration_seconds")

	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/docs", "", nil).Code)

	docs := newTestApp(t, true)
	rec = docs.do(http.MethodGet, "/docs", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/static/openapi.json")

	rec = docs.do(http.MethodGet, "/static/openapi.json", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"openapi"`)
}
