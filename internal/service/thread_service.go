package service

import (
	"context"
	"time"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/websocket"
	"github.com/google/uuid"
)

// ThreadService handles conversation thread business logic
type ThreadService struct {
	eventPublishing
	threads     *ScopedStore[*domain.ConversationThread]
	assignments *ScopedStore[*domain.Assignment]
	now         func() time.Time
}

// NewThreadService creates a new ThreadService
func NewThreadService(threads domain.EntityStore[*domain.ConversationThread], assignments domain.EntityStore[*domain.Assignment]) *ThreadService {
	return &ThreadService{
		threads:     NewScopedStore(threads, domain.CollectionThreads),
		assignments: NewScopedStore(assignments, domain.CollectionAssignments),
		now:         time.Now,
	}
}

// CreateThreadInput contains input for creating a thread
type CreateThreadInput struct {
	AssignmentID *uuid.UUID
	Topic        string
	Description  string
	Tags         []string
}

// CreateThread opens a new conversation thread
func (s *ThreadService) CreateThread(ctx context.Context, scope domain.Scope, input CreateThreadInput) (*domain.ConversationThread, error) {
	topic, err := requiredText(input.Topic, domain.MaxTitleLength, domain.ErrTitleRequired)
	if err != nil {
		return nil, err
	}
	if input.AssignmentID != nil {
		if _, err := s.assignments.Get(ctx, scope, *input.AssignmentID); err != nil {
			return nil, err
		}
	}

	thread, err := s.threads.Create(ctx, scope, &domain.ConversationThread{
		AssignmentID: input.AssignmentID,
		Topic:        topic,
		Description:  input.Description,
		Tags:         cleanTags(input.Tags),
		Status:       domain.ThreadStatusActive,
		LastActivity: s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	s.publishEvent(scope.WorkspaceID, websocket.Created(websocket.EntityTypeThread, thread))
	return thread, nil
}

// GetThread retrieves a thread of the active workspace
func (s *ThreadService) GetThread(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.ConversationThread, error) {
	return s.threads.Get(ctx, scope, id)
}

// ThreadFilter narrows ListThreads; zero fields are ignored
type ThreadFilter struct {
	AssignmentID *uuid.UUID
	Status       domain.ThreadStatus
	Tag          string
}

// ListThreads lists threads, most recently active first unless opts.Sort says otherwise
func (s *ThreadService) ListThreads(ctx context.Context, scope domain.Scope, filter ThreadFilter, opts ListOptions) ([]*domain.ConversationThread, error) {
	criteria := domain.Criteria{}
	if filter.AssignmentID != nil {
		criteria["assignment_id"] = *filter.AssignmentID
	}
	if filter.Status != "" {
		if !domain.ValidThreadStatuses[filter.Status] {
			return nil, domain.ErrInvalidStatus
		}
		criteria["status"] = filter.Status
	}
	if filter.Tag != "" {
		criteria["tags"] = []string{filter.Tag}
	}
	sort := opts.Sort
	if sort.Field == "" {
		sort = domain.SortSpec{Field: "last_activity", Descending: true}
	}
	return s.threads.Filter(ctx, scope, criteria, sort, opts.Limit)
}

// UpdateThreadInput contains input for updating a thread; nil fields are unchanged
type UpdateThreadInput struct {
	Topic       *string
	Description *string
	Tags        []string
	Status      *domain.ThreadStatus
}

// UpdateThread updates a thread
func (s *ThreadService) UpdateThread(ctx context.Context, scope domain.Scope, id uuid.UUID, input UpdateThreadInput) (*domain.ConversationThread, error) {
	patch := domain.Patch{}
	if input.Topic != nil {
		topic, err := requiredText(*input.Topic, domain.MaxTitleLength, domain.ErrTitleRequired)
		if err != nil {
			return nil, err
		}
		patch["topic"] = topic
	}
	if input.Description != nil {
		patch["description"] = *input.Description
	}
	if input.Tags != nil {
		patch["tags"] = cleanTags(input.Tags)
	}
	if input.Status != nil {
		if !domain.ValidThreadStatuses[*input.Status] {
			return nil, domain.ErrInvalidStatus
		}
		patch["status"] = *input.Status
	}

	thread, err := s.threads.Update(ctx, scope, id, patch)
	if err != nil {
		return nil, err
	}
	s.publishEvent(scope.WorkspaceID, websocket.Updated(websocket.EntityTypeThread, thread))
	return thread, nil
}

// DeleteThread permanently deletes a thread
func (s *ThreadService) DeleteThread(ctx context.Context, scope domain.Scope, id uuid.UUID) error {
	if err := s.threads.Delete(ctx, scope, id); err != nil {
		return err
	}
	s.publishEvent(scope.WorkspaceID, websocket.Deleted(websocket.EntityTypeThread, deletedPayload(id)))
	return nil
}

// recordActivity bumps last_activity and adjusts message_count by delta
func (s *ThreadService) recordActivity(ctx context.Context, scope domain.Scope, thread *domain.ConversationThread, delta int) (*domain.ConversationThread, error) {
	count := thread.MessageCount + delta
	if count < 0 {
		count = 0
	}
	updated, err := s.threads.Update(ctx, scope, thread.ID, domain.Patch{
		"last_activity": s.now().UTC(),
		"message_count": count,
	})
	if err != nil {
		return nil, err
	}
	s.publishEvent(scope.WorkspaceID, websocket.Updated(websocket.EntityTypeThread, updated))
	return updated, nil
}
