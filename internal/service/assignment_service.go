package service

import (
	"context"
	"strings"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/websocket"
	"github.com/google/uuid"
)

// AssignmentService handles assignment business logic
type AssignmentService struct {
	eventPublishing
	assignments *ScopedStore[*domain.Assignment]
	projects    *ScopedStore[*domain.Project]
}

// NewAssignmentService creates a new AssignmentService
func NewAssignmentService(assignments domain.EntityStore[*domain.Assignment], projects domain.EntityStore[*domain.Project]) *AssignmentService {
	return &AssignmentService{
		assignments: NewScopedStore(assignments, domain.CollectionAssignments),
		projects:    NewScopedStore(projects, domain.CollectionProjects),
	}
}

// CreateAssignmentInput contains input for creating an assignment
type CreateAssignmentInput struct {
	ProjectID         *uuid.UUID
	Name              string
	Description       string
	AssignmentManager string
	TeamMembers       []string
	Status            domain.AssignmentStatus
	Priority          domain.Priority
}

// CreateAssignment creates an assignment, optionally inside a project of the same workspace
func (s *AssignmentService) CreateAssignment(ctx context.Context, scope domain.Scope, input CreateAssignmentInput) (*domain.Assignment, error) {
	name, err := requiredText(input.Name, domain.MaxNameLength, domain.ErrNameRequired)
	if err != nil {
		return nil, err
	}
	status, err := oneOf(input.Status, domain.AssignmentStatusNotStarted, domain.ValidAssignmentStatuses, domain.ErrInvalidStatus)
	if err != nil {
		return nil, err
	}
	priority, err := oneOf(input.Priority, domain.PriorityMedium, domain.ValidPriorities, domain.ErrInvalidPriority)
	if err != nil {
		return nil, err
	}
	if input.ProjectID != nil {
		if _, err := s.projects.Get(ctx, scope, *input.ProjectID); err != nil {
			return nil, err
		}
	}

	manager := strings.TrimSpace(input.AssignmentManager)
	if manager == "" {
		manager = scope.ActorEmail
	}

	assignment, err := s.assignments.Create(ctx, scope, &domain.Assignment{
		ProjectID:         input.ProjectID,
		Name:              name,
		Description:       input.Description,
		AssignmentManager: manager,
		TeamMembers:       cleanEmails(input.TeamMembers),
		Status:            status,
		Priority:          priority,
	})
	if err != nil {
		return nil, err
	}
	s.publishEvent(scope.WorkspaceID, websocket.Created(websocket.EntityTypeAssignment, assignment))
	return assignment, nil
}

// GetAssignment retrieves an assignment of the active workspace
func (s *AssignmentService) GetAssignment(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.Assignment, error) {
	return s.assignments.Get(ctx, scope, id)
}

// AssignmentFilter narrows ListAssignments; zero fields are ignored
type AssignmentFilter struct {
	ProjectID  *uuid.UUID
	Status     domain.AssignmentStatus
	TeamMember string
}

// ListAssignments lists assignments of the active workspace
func (s *AssignmentService) ListAssignments(ctx context.Context, scope domain.Scope, filter AssignmentFilter, opts ListOptions) ([]*domain.Assignment, error) {
	criteria := domain.Criteria{}
	if filter.ProjectID != nil {
		criteria["project_id"] = *filter.ProjectID
	}
	if filter.Status != "" {
		if !domain.ValidAssignmentStatuses[filter.Status] {
			return nil, domain.ErrInvalidStatus
		}
		criteria["status"] = filter.Status
	}
	if member := strings.ToLower(strings.TrimSpace(filter.TeamMember)); member != "" {
		criteria["team_members"] = []string{member}
	}
	return s.assignments.Filter(ctx, scope, criteria, opts.Sort, opts.Limit)
}

// UpdateAssignmentInput contains input for updating an assignment; nil fields are unchanged
type UpdateAssignmentInput struct {
	ProjectID         *uuid.UUID
	ClearProject      bool
	Name              *string
	Description       *string
	AssignmentManager *string
	TeamMembers       []string
	Status            *domain.AssignmentStatus
	Priority          *domain.Priority
}

// UpdateAssignment updates an assignment
func (s *AssignmentService) UpdateAssignment(ctx context.Context, scope domain.Scope, id uuid.UUID, input UpdateAssignmentInput) (*domain.Assignment, error) {
	patch := domain.Patch{}
	switch {
	case input.ClearProject:
		patch["project_id"] = nil
	case input.ProjectID != nil:
		if _, err := s.projects.Get(ctx, scope, *input.ProjectID); err != nil {
			return nil, err
		}
		patch["project_id"] = *input.ProjectID
	}
	if input.Name != nil {
		name, err := requiredText(*input.Name, domain.MaxNameLength, domain.ErrNameRequired)
		if err != nil {
			return nil, err
		}
		patch["name"] = name
	}
	if input.Description != nil {
		patch["description"] = *input.Description
	}
	if input.AssignmentManager != nil {
		patch["assignment_manager"] = strings.TrimSpace(*input.AssignmentManager)
	}
	if input.TeamMembers != nil {
		patch["team_members"] = cleanEmails(input.TeamMembers)
	}
	if input.Status != nil {
		if !domain.ValidAssignmentStatuses[*input.Status] {
			return nil, domain.ErrInvalidStatus
		}
		patch["status"] = *input.Status
	}
	if input.Priority != nil {
		if !domain.ValidPriorities[*input.Priority] {
			return nil, domain.ErrInvalidPriority
		}
		patch["priority"] = *input.Priority
	}

	assignment, err := s.assignments.Update(ctx, scope, id, patch)
	if err != nil {
		return nil, err
	}
	s.publishEvent(scope.WorkspaceID, websocket.Updated(websocket.EntityTypeAssignment, assignment))
	return assignment, nil
}

// DeleteAssignment permanently deletes an assignment
func (s *AssignmentService) DeleteAssignment(ctx context.Context, scope domain.Scope, id uuid.UUID) error {
	if err := s.assignments.Delete(ctx, scope, id); err != nil {
		return err
	}
	s.publishEvent(scope.WorkspaceID, websocket.Deleted(websocket.EntityTypeAssignment, deletedPayload(id)))
	return nil
}
