package service

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Optimistic is a local change committed remotely afterwards. Apply sets local
// state to a value and is reused with the previous value as the inverse patch
// when either step fails.
type Optimistic[T any] struct {
	Name   string
	Apply  func(ctx context.Context, value T) error
	Commit func(ctx context.Context, value T) error
}

// Run applies next, commits it, and restores prev on failure
func (o Optimistic[T]) Run(ctx context.Context, prev, next T) error {
	if err := o.Apply(ctx, next); err != nil {
		o.rollback(ctx, prev, err)
		return err
	}
	if o.Commit != nil {
		if err := o.Commit(ctx, next); err != nil {
			o.rollback(ctx, prev, err)
			return err
		}
	}
	return nil
}

func (o Optimistic[T]) rollback(ctx context.Context, prev T, cause error) {
	log.Warn().Err(cause).Str("mutation", o.Name).Msg("Optimistic update failed, rolling back")
	if err := o.Apply(context.WithoutCancel(ctx), prev); err != nil {
		log.Error().Err(err).Str("mutation", o.Name).Msg("Rollback failed")
	}
}
