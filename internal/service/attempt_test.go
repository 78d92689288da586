package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestAttempt_Success(t *testing.T) {
	out := Attempt(context.Background(), "load", func(ctx context.Context) (int, error) {
		return 42, nil
	})

	assert.True(t, out.OK())
	assert.Equal(t, 42, out.Value)
	assert.Empty(t, out.Message)
}

func TestAttempt_CategorizesErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category domain.ErrorCategory
	}{
		{"cross workspace", fmt.Errorf("%w: documents", domain.ErrCrossWorkspace), domain.CategoryPermission},
		{"not found", domain.ErrTaskNotFound, domain.CategoryNotFound},
		{"validation", domain.ErrTitleRequired, domain.CategoryValidation},
		{"network", errors.New("dial tcp: connection refused"), domain.CategoryNetwork},
		{"deadline", context.DeadlineExceeded, domain.CategoryNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Attempt(context.Background(), "op", func(ctx context.Context) (string, error) {
				return "ignored", tt.err
			})
			assert.False(t, out.OK())
			assert.Equal(t, tt.category, out.Category)
			assert.Equal(t, domain.UserMessage(tt.category), out.Message)
			assert.Empty(t, out.Value)
		})
	}
}

func TestAttempt_RecoversPanic(t *testing.T) {
	out := Attempt(context.Background(), "explode", func(ctx context.Context) (*domain.Task, error) {
		panic("nil task")
	})

	assert.False(t, out.OK())
	assert.ErrorIs(t, out.Err, domain.ErrInternalError)
	assert.Equal(t, domain.CategoryServer, out.Category)
}
