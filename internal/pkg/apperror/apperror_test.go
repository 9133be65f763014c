package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesKindFromCode(t *testing.T) {
	tests := []struct {
		code int
		want Kind
	}{
		{http.StatusBadRequest, KindValidation},
		{http.StatusUnprocessableEntity, KindValidation},
		{http.StatusNotFound, KindNotFound},
		{http.StatusForbidden, KindForbidden},
		{http.StatusConflict, KindConflict},
		{http.StatusServiceUnavailable, KindTransient},
		{http.StatusInternalServerError, KindInternal},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.code, "x").Kind)
		})
	}
}

func TestCopiesMatchSentinel(t *testing.T) {
	sentinel := NewKind(KindConflict, http.StatusConflict, "room already held")

	withDetails := WithDetails(sentinel, map[string]any{"ids": []string{"a"}})
	assert.ErrorIs(t, withDetails, sentinel)
	assert.Nil(t, sentinel.Details, "sentinel must not be mutated")

	cause := errors.New("boom")
	wrapped := fmt.Errorf("outer: %w", WithCause(sentinel, cause))
	assert.ErrorIs(t, wrapped, sentinel)
	assert.ErrorIs(t, wrapped, cause)

	other := NewKind(KindConflict, http.StatusConflict, "something else")
	assert.NotErrorIs(t, withDetails, other)
}

func TestKindOfAndRetryable(t *testing.T) {
	busy := NewKind(KindTransient, http.StatusConflict, "busy")

	assert.Equal(t, KindTransient, KindOf(fmt.Errorf("wrap: %w", busy)))
	assert.True(t, IsRetryable(busy))
	assert.True(t, busy.Retryable())

	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.False(t, IsRetryable(errors.New("plain")))

	var target *AppError
	require.True(t, errors.As(fmt.Errorf("wrap: %w", busy), &target))
	assert.Equal(t, http.StatusConflict, target.Code)
}
