package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/miyog/miyog-engine/internal/domain"
	"github.com/miyog/miyog-engine/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		ErrNotOwned,
		ErrInsufficientCredits,
		ErrUserNotFound,
		ErrProjectNotFound,
		ErrTaskNotFound,
		ErrInvalidTimeline,
		ErrInvalidInput,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			assert.Equal(t, i == j, errors.Is(a, b), "%v vs %v", a, b)
		}
	}
	assert.Equal(t, "project not found or unauthorized", ErrProjectNotFound.Error())
	assert.Equal(t, "task not found or unauthorized", ErrTaskNotFound.Error())
}

func TestMapError(t *testing.T) {
	dbErr := errors.New("connection reset")
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"missing user", fmt.Errorf("get: %w", store.ErrUserNotFound), ErrUserNotFound},
		{"missing project", store.ErrProjectNotFound, ErrProjectNotFound},
		{"missing task", store.ErrVideoTaskNotFound, ErrTaskNotFound},
		{"no credits", fmt.Errorf("debit: %w", domain.ErrInsufficientCredits), ErrInsufficientCredits},
		{"service sentinel passes through", ErrNotOwned, ErrNotOwned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError("task", "get", tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.Same(t, tt.want, got)
		})
	}

	t.Run("unexpected errors are wrapped", func(t *testing.T) {
		got := mapError("task", "get", dbErr)
		var serviceErr *ServiceError
		require.True(t, errors.As(got, &serviceErr))
		assert.Equal(t, "task", serviceErr.Service)
		assert.ErrorIs(t, got, dbErr)
	})
}

func TestServiceError(t *testing.T) {
	dbErr := errors.New("connection reset")
	tests := []struct {
		name string
		err  *ServiceError
		want string
	}{
		{"with cause", &ServiceError{Service: "task", Op: "generate", Err: dbErr}, "task service generate operation failed: connection reset"},
		{"without cause", &ServiceError{Service: "project", Op: "delete"}, "project service delete operation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.Equal(t, tt.err.Err, tt.err.Unwrap())
		})
	}

	t.Run("chains keep the root cause", func(t *testing.T) {
		inner := NewServiceError("user", "debit", dbErr)
		outer := NewServiceError("task", "generate", inner)

		assert.ErrorIs(t, outer, dbErr)
		var serviceErr *ServiceError
		require.ErrorAs(t, outer, &serviceErr)
		assert.Equal(t, "task", serviceErr.Service, "the outermost error is found first")
		assert.Equal(t, "task service generate operation failed: user service debit operation failed: connection reset", outer.Error())
	})
}
