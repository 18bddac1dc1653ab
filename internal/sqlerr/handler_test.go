package sqlerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/deppfellow/covid-api/internal/errs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError_UniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		Severity:       "ERROR",
		TableName:      "users",
		ConstraintName: "users_email_key",
	}

	err := HandleError(fmt.Errorf("insert user: %w", pgErr))

	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.Equal(t, "USER_ALREADY_EXISTS", httpErr.Code)
	assert.Equal(t, "A User with this Email already exists", httpErr.Message)
	assert.True(t, IsUniqueViolation(pgErr, "users_email_key"))
	assert.False(t, IsUniqueViolation(pgErr, "other_key"))
}

func TestHandleError_NoRows(t *testing.T) {
	err := HandleError(fmt.Errorf("table:observations: %w", pgx.ErrNoRows))

	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.Status)
	assert.Equal(t, "Observation not found", httpErr.Message)
}

func TestHandleError_UnknownIsGeneric500(t *testing.T) {
	err := HandleError(errors.New("connection reset by peer"))

	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusInternalServerError, httpErr.Status)
	assert.NotContains(t, httpErr.Message, "connection reset")
}

func TestErrCode(t *testing.T) {
	assert.Equal(t, NotNullViolation, ErrCode(&pgconn.PgError{Code: "23502"}))
	assert.Equal(t, Other, ErrCode(errors.New("x")))
	assert.Equal(t, SeverityError, MapSeverity("bogus"))
}
