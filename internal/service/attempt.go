package service

import (
	"context"
	"fmt"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// Outcome is the result of an attempted operation. Err is nil on success.
type Outcome[T any] struct {
	Value    T
	Err      error
	Category domain.ErrorCategory
	Message  string
}

// OK reports whether the operation succeeded
func (o Outcome[T]) OK() bool {
	return o.Err == nil
}

// Attempt runs fn, converting errors and panics into a categorized Outcome.
// Failures are logged; nothing is re-thrown.
func Attempt[T any](ctx context.Context, operation string, fn func(ctx context.Context) (T, error)) (out Outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			out = failed[T](operation, fmt.Errorf("%w: panic: %v", domain.ErrInternalError, r))
		}
	}()

	value, err := fn(ctx)
	if err != nil {
		return failed[T](operation, err)
	}
	return Outcome[T]{Value: value}
}

func failed[T any](operation string, err error) Outcome[T] {
	category := domain.Categorize(err)
	log.Error().Err(err).Str("operation", operation).Str("category", string(category)).Msg("Operation failed")
	return Outcome[T]{
		Err:      err,
		Category: category,
		Message:  domain.UserMessage(category),
	}
}
