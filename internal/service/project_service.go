package service

import (
	"context"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/websocket"
	"github.com/google/uuid"
)

// ListOptions are the sort and limit applied to list operations
type ListOptions struct {
	Sort  domain.SortSpec
	Limit int
}

// ProjectService handles project business logic
type ProjectService struct {
	eventPublishing
	projects *ScopedStore[*domain.Project]
}

// NewProjectService creates a new ProjectService
func NewProjectService(projects domain.EntityStore[*domain.Project]) *ProjectService {
	return &ProjectService{projects: NewScopedStore(projects, domain.CollectionProjects)}
}

// CreateProjectInput contains input for creating a project
type CreateProjectInput struct {
	Name        string
	Description string
	Status      domain.ProjectStatus
	Priority    domain.Priority
	Goals       string
}

// CreateProject creates a project in the active workspace
func (s *ProjectService) CreateProject(ctx context.Context, scope domain.Scope, input CreateProjectInput) (*domain.Project, error) {
	name, err := requiredText(input.Name, domain.MaxNameLength, domain.ErrNameRequired)
	if err != nil {
		return nil, err
	}
	status, err := oneOf(input.Status, domain.ProjectStatusPlanning, domain.ValidProjectStatuses, domain.ErrInvalidStatus)
	if err != nil {
		return nil, err
	}
	priority, err := oneOf(input.Priority, domain.PriorityMedium, domain.ValidPriorities, domain.ErrInvalidPriority)
	if err != nil {
		return nil, err
	}

	project, err := s.projects.Create(ctx, scope, &domain.Project{
		Name:        name,
		Description: input.Description,
		Status:      status,
		Priority:    priority,
		Goals:       input.Goals,
	})
	if err != nil {
		return nil, err
	}
	s.publishEvent(scope.WorkspaceID, websocket.Created(websocket.EntityTypeProject, project))
	return project, nil
}

// GetProject retrieves a project of the active workspace
func (s *ProjectService) GetProject(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.Project, error) {
	return s.projects.Get(ctx, scope, id)
}

// ListProjects lists projects, optionally by status
func (s *ProjectService) ListProjects(ctx context.Context, scope domain.Scope, status domain.ProjectStatus, opts ListOptions) ([]*domain.Project, error) {
	criteria := domain.Criteria{}
	if status != "" {
		if !domain.ValidProjectStatuses[status] {
			return nil, domain.ErrInvalidStatus
		}
		criteria["status"] = status
	}
	return s.projects.Filter(ctx, scope, criteria, opts.Sort, opts.Limit)
}

// UpdateProjectInput contains input for updating a project; nil fields are unchanged
type UpdateProjectInput struct {
	Name        *string
	Description *string
	Status      *domain.ProjectStatus
	Priority    *domain.Priority
	Goals       *string
}

// UpdateProject updates a project
func (s *ProjectService) UpdateProject(ctx context.Context, scope domain.Scope, id uuid.UUID, input UpdateProjectInput) (*domain.Project, error) {
	patch := domain.Patch{}
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
	if input.Status != nil {
		if !domain.ValidProjectStatuses[*input.Status] {
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
	if input.Goals != nil {
		patch["goals"] = *input.Goals
	}

	project, err := s.projects.Update(ctx, scope, id, patch)
	if err != nil {
		return nil, err
	}
	s.publishEvent(scope.WorkspaceID, websocket.Updated(websocket.EntityTypeProject, project))
	return project, nil
}

// DeleteProject permanently deletes a project
func (s *ProjectService) DeleteProject(ctx context.Context, scope domain.Scope, id uuid.UUID) error {
	if err := s.projects.Delete(ctx, scope, id); err != nil {
		return err
	}
	s.publishEvent(scope.WorkspaceID, websocket.Deleted(websocket.EntityTypeProject, deletedPayload(id)))
	return nil
}
