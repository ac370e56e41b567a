package errorutil

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"validation", NewValidationError("title required", nil), CodeValidation, http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("close: %w", NewNotFound("ticket", nil)), CodeNotFound, http.StatusNotFound},
		{"sql no rows", sql.ErrNoRows, CodeNotFound, http.StatusNotFound},
		{"pgx no rows", fmt.Errorf("get: %w", pgx.ErrNoRows), CodeNotFound, http.StatusNotFound},
		{"unauthorized", NewUnauthorized("nope"), CodeUnauthorized, http.StatusUnauthorized},
		{"generic", errors.New("disk full"), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantStatus, got.HTTPStatus)
		})
	}

	assert.Nil(t, ToDomainError(nil))
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFound("ticket", nil)))
	assert.True(t, IsNotFound(fmt.Errorf("x: %w", sql.ErrNoRows)))
	assert.False(t, IsNotFound(NewValidationError("bad", nil)))

	assert.True(t, IsValidation(fmt.Errorf("create: %w", NewValidationError("bad", nil))))
	assert.False(t, IsValidation(errors.New("bad")))
}

func TestInternalErrorUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewInternalError(cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}
