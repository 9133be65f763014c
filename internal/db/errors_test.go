package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/pkg/apperror"
)

func pgErr(code string) error {
	return fmt.Errorf("exec failed: %w", &pgconn.PgError{Code: code, ConstraintName: "reservations_no_overlap"})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"lock timeout", pgErr(pgerrcode.LockNotAvailable), ErrResourceBusy},
		{"statement timeout", pgErr(pgerrcode.QueryCanceled), ErrResourceBusy},
		{"serialization", pgErr(pgerrcode.SerializationFailure), ErrStoreContention},
		{"deadlock", pgErr(pgerrcode.DeadlockDetected), ErrStoreContention},
		{"connection", pgErr(pgerrcode.ConnectionFailure), ErrStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.True(t, apperror.IsRetryable(got))

			var pg *pgconn.PgError
			assert.True(t, errors.As(got, &pg), "cause is preserved")
		})
	}
}

func TestClassifyPassesThroughOtherErrors(t *testing.T) {
	assert.Nil(t, Classify(nil))

	plain := errors.New("boom")
	assert.Same(t, plain, Classify(plain))

	unique := pgErr(pgerrcode.UniqueViolation)
	assert.Equal(t, unique, Classify(unique))

	appErr := apperror.New(400, "bad input")
	assert.Same(t, appErr, Classify(appErr))

	assert.ErrorIs(t, Classify(context.Canceled), context.Canceled)
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(pgErr(pgerrcode.SerializationFailure)))
	assert.True(t, retryable(pgErr(pgerrcode.DeadlockDetected)))
	assert.False(t, retryable(pgErr(pgerrcode.LockNotAvailable)), "lock timeouts surface to the caller")
	assert.False(t, retryable(pgErr(pgerrcode.ExclusionViolation)))
	assert.False(t, retryable(errors.New("boom")))
}

func TestIsExclusionViolation(t *testing.T) {
	err := pgErr(pgerrcode.ExclusionViolation)
	assert.True(t, IsExclusionViolation(err, ""))
	assert.True(t, IsExclusionViolation(err, "reservations_no_overlap"))
	assert.False(t, IsExclusionViolation(err, "other"))
	assert.False(t, IsExclusionViolation(pgErr(pgerrcode.UniqueViolation), ""))
	assert.True(t, IsUniqueViolation(pgErr(pgerrcode.UniqueViolation)))
}
