package middleware

import (
	"time"

	"github.com/deppfellow/covid-api/internal/errs"
	"github.com/deppfellow/covid-api/internal/server"
	"github.com/labstack/echo/v4"
)

// AuthTokenHeader carries the session token on requests, and on the login
// response.
const AuthTokenHeader = "auth-token"

// TokenVerifier resolves a token to the user id it was issued for.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// AuthMiddleware guards the data routes.
type AuthMiddleware struct {
	server   *server.Server
	verifier TokenVerifier
}

// NewAuthMiddleware constructs an AuthMiddleware.
func NewAuthMiddleware(s *server.Server, verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		server:   s,
		verifier: verifier,
	}
}

// RequireAuth rejects requests without a valid auth-token header with a 401.
// On success it stores the user id under UserIDKey and adds it to the
// request logger.
func (auth *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		tok := c.Request().Header.Get(AuthTokenHeader)
		if tok == "" {
			GetLogger(c).Warn().
				Str("function", "RequireAuth").
				Dur("duration", time.Since(start)).
				Msg("missing auth token")

			return errs.NewUnauthorizedError("Access denied", false)
		}

		userID, err := auth.verifier.VerifyToken(tok)
		if err != nil {
			GetLogger(c).Warn().
				Err(err).
				Str("function", "RequireAuth").
				Dur("duration", time.Since(start)).
				Msg("invalid auth token")

			return errs.NewUnauthorizedError("Invalid token", false)
		}

		c.Set(UserIDKey, userID)

		logger := GetLogger(c).With().Str("user_id", userID).Logger()
		c.Set(LoggerKey, &logger)

		logger.Debug().
			Str("function", "RequireAuth").
			Dur("duration", time.Since(start)).
			Msg("user authenticated successfully")

		return next(c)
	}
}
