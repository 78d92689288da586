package service

import (
	"context"
	"fmt"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ScopedStore wraps a raw entity store so every operation requires a Scope.
// Creates are stamped with the scope's workspace, filters always carry it, and
// updates and deletes are checked against the stored entity before any write.
type ScopedStore[T domain.Entity] struct {
	store      domain.EntityStore[T]
	collection string
}

// NewScopedStore creates a ScopedStore for one collection
func NewScopedStore[T domain.Entity](store domain.EntityStore[T], collection string) *ScopedStore[T] {
	return &ScopedStore[T]{store: store, collection: collection}
}

// Create stamps the active workspace on entity and stores it
func (s *ScopedStore[T]) Create(ctx context.Context, scope domain.Scope, entity T) (T, error) {
	var zero T
	if scope.IsZero() {
		return zero, domain.ErrNoActiveWorkspace
	}
	entity.Base().WorkspaceID = scope.WorkspaceID
	return s.store.Create(ctx, entity)
}

// Get returns the entity only when it belongs to the active workspace
func (s *ScopedStore[T]) Get(ctx context.Context, scope domain.Scope, id uuid.UUID) (T, error) {
	var zero T
	if scope.IsZero() {
		return zero, domain.ErrNoActiveWorkspace
	}
	entity, err := s.store.Get(ctx, id)
	if err != nil {
		return zero, err
	}
	if err := s.Authorize(scope, entity, "get"); err != nil {
		return zero, err
	}
	return entity, nil
}

// Update applies patch after re-checking the stored entity's workspace
func (s *ScopedStore[T]) Update(ctx context.Context, scope domain.Scope, id uuid.UUID, patch domain.Patch) (T, error) {
	var zero T
	if scope.IsZero() {
		return zero, domain.ErrNoActiveWorkspace
	}
	if err := patch.Validate(); err != nil {
		return zero, err
	}
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return zero, err
	}
	if err := s.Authorize(scope, existing, "update"); err != nil {
		return zero, err
	}
	return s.store.Update(ctx, id, patch)
}

// Delete removes the entity after re-checking its workspace
func (s *ScopedStore[T]) Delete(ctx context.Context, scope domain.Scope, id uuid.UUID) error {
	if scope.IsZero() {
		return domain.ErrNoActiveWorkspace
	}
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Authorize(scope, existing, "delete"); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// Filter returns entities of the active workspace matching criteria.
// Any workspace_id supplied by the caller is overridden.
func (s *ScopedStore[T]) Filter(ctx context.Context, scope domain.Scope, criteria domain.Criteria, sort domain.SortSpec, limit int) ([]T, error) {
	if scope.IsZero() {
		return nil, domain.ErrNoActiveWorkspace
	}
	scoped := make(domain.Criteria, len(criteria)+1)
	for k, v := range criteria {
		scoped[k] = v
	}
	scoped["workspace_id"] = scope.WorkspaceID

	entities, err := s.store.Filter(ctx, scoped, sort, limit)
	if err != nil {
		return nil, err
	}

	result := make([]T, 0, len(entities))
	for _, e := range entities {
		if s.Authorize(scope, e, "filter") == nil {
			result = append(result, e)
		}
	}
	return result, nil
}

// List returns every entity of the active workspace
func (s *ScopedStore[T]) List(ctx context.Context, scope domain.Scope, sort domain.SortSpec, limit int) ([]T, error) {
	return s.Filter(ctx, scope, nil, sort, limit)
}

// Authorize rejects entity when it belongs to another workspace and logs the attempt
func (s *ScopedStore[T]) Authorize(scope domain.Scope, entity T, operation string) error {
	rec := entity.Base()
	if rec.WorkspaceID == scope.WorkspaceID {
		return nil
	}
	log.Warn().
		Str("collection", s.collection).
		Str("operation", operation).
		Str("entity_id", rec.ID.String()).
		Str("entity_workspace_id", rec.WorkspaceID.String()).
		Str("active_workspace_id", scope.WorkspaceID.String()).
		Str("actor", scope.ActorEmail).
		Msg("Security violation: cross-workspace access blocked")
	return fmt.Errorf("%w: %s", domain.ErrCrossWorkspace, s.collection)
}
