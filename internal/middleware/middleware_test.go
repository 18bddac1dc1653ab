package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deppfellow/covid-api/internal/config"
	"github.com/deppfellow/covid-api/internal/errs"
	"github.com/deppfellow/covid-api/internal/lib/metrics"
	"github.com/deppfellow/covid-api/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier map[string]string

func (s stubVerifier) VerifyToken(tok string) (string, error) {
	if id, ok := s[tok]; ok {
		return id, nil
	}
	return "", errors.New("bad token")
}

func newTestServer(rps float64, burst int) *server.Server {
	logger := zerolog.Nop()
	return &server.Server{
		Config: &config.Config{
			Server: config.ServerConfig{
				RateLimitRPS:   rps,
				RateLimitBurst: burst,
			},
		},
		Logger:  &logger,
		Metrics: metrics.New(),
	}
}

func newEcho(s *server.Server) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = NewGlobalMiddlewares(s).GlobalErrorHandler
	return e
}

func TestRequireAuth(t *testing.T) {
	s := newTestServer(1, 1)
	e := newEcho(s)
	auth := NewAuthMiddleware(s, stubVerifier{"good": "user-1"})

	e.GET("/private", func(c echo.Context) error {
		return c.String(http.StatusOK, GetUserID(c))
	}, auth.RequireAuth)

	tests := []struct {
		name   string
		token  string
		status int
		body   string
	}{
		{name: "missing header", status: http.StatusUnauthorized},
		{name: "invalid token", token: "forged", status: http.StatusUnauthorized},
		{name: "valid token", token: "good", status: http.StatusOK, body: "user-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.token != "" {
				req.Header.Set(AuthTokenHeader, tt.token)
			}
			rec := httptest.NewRecorder()

			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"code":"UNAUTHORIZED"`)
			}
		})
	}
}

func TestRateLimit_RejectsBurstOverflow(t *testing.T) {
	s := newTestServer(0.001, 2)
	e := newEcho(s)
	limiter := NewRateLimitMiddleware(s)

	e.POST("/login", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, limiter.Limit())

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	other := httptest.NewRequest(http.MethodPost, "/login", nil)
	other.RemoteAddr = "198.51.100.1:5555"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestID_ReusesIncomingHeader(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, GetRequestID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Body.String())
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestGlobalErrorHandler_HidesUnknownErrors(t *testing.T) {
	s := newTestServer(1, 1)
	e := newEcho(s)
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("dial tcp 10.0.0.1:5432: connection refused")
	})
	e.GET("/bad", func(c echo.Context) error {
		return errs.NewBadRequestError("nope", false, nil, nil, nil)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.1")

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bad", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"nope"`)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Route not found")
}

func TestMetricsMiddleware_RecordsMatchedRoutes(t *testing.T) {
	s := newTestServer(1, 1)
	e := newEcho(s)
	e.Use(NewMetricsMiddleware(s).Observe())
	e.GET("/things/:id", func(c echo.Context) error {
		return errs.NewBadRequestError("bad", false, nil, nil, nil)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/1", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	n, err := testutil.GatherAndCount(s.Metrics.Registry(), "covid_api_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
