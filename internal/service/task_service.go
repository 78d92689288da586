package service

import (
	"context"
	"strings"
	"time"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/websocket"
	"github.com/google/uuid"
)

// TaskService handles task business logic
type TaskService struct {
	eventPublishing
	tasks       *ScopedStore[*domain.Task]
	assignments *ScopedStore[*domain.Assignment]
}

// NewTaskService creates a new TaskService
func NewTaskService(tasks domain.EntityStore[*domain.Task], assignments domain.EntityStore[*domain.Assignment]) *TaskService {
	return &TaskService{
		tasks:       NewScopedStore(tasks, domain.CollectionTasks),
		assignments: NewScopedStore(assignments, domain.CollectionAssignments),
	}
}

// CreateTaskInput contains input for creating a task
type CreateTaskInput struct {
	AssignmentID uuid.UUID
	Title        string
	Description  string
	Status       domain.TaskStatus
	Priority     domain.Priority
	AssignedTo   string
	DueDate      *time.Time
}

// CreateTask creates a task under an assignment of the active workspace
func (s *TaskService) CreateTask(ctx context.Context, scope domain.Scope, input CreateTaskInput) (*domain.Task, error) {
	title, err := requiredText(input.Title, domain.MaxTitleLength, domain.ErrTitleRequired)
	if err != nil {
		return nil, err
	}
	status, err := oneOf(input.Status, domain.TaskStatusTodo, domain.ValidTaskStatuses, domain.ErrInvalidStatus)
	if err != nil {
		return nil, err
	}
	priority, err := oneOf(input.Priority, domain.PriorityMedium, domain.ValidPriorities, domain.ErrInvalidPriority)
	if err != nil {
		return nil, err
	}
	if input.AssignmentID == uuid.Nil {
		return nil, domain.ErrInvalidInput
	}
	if _, err := s.assignments.Get(ctx, scope, input.AssignmentID); err != nil {
		return nil, err
	}

	task, err := s.tasks.Create(ctx, scope, &domain.Task{
		AssignmentID: input.AssignmentID,
		Title:        title,
		Description:  input.Description,
		Status:       status,
		Priority:     priority,
		AssignedTo:   strings.ToLower(strings.TrimSpace(input.AssignedTo)),
		DueDate:      input.DueDate,
	})
	if err != nil {
		return nil, err
	}
	s.publishEvent(scope.WorkspaceID, websocket.Created(websocket.EntityTypeTask, task))
	return task, nil
}

// GetTask retrieves a task of the active workspace
func (s *TaskService) GetTask(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.Task, error) {
	return s.tasks.Get(ctx, scope, id)
}

// TaskFilter narrows ListTasks; zero fields are ignored
type TaskFilter struct {
	AssignmentID *uuid.UUID
	Status       domain.TaskStatus
	AssignedTo   string
}

// ListTasks lists tasks of the active workspace
func (s *TaskService) ListTasks(ctx context.Context, scope domain.Scope, filter TaskFilter, opts ListOptions) ([]*domain.Task, error) {
	criteria := domain.Criteria{}
	if filter.AssignmentID != nil {
		criteria["assignment_id"] = *filter.AssignmentID
	}
	if filter.Status != "" {
		if !domain.ValidTaskStatuses[filter.Status] {
			return nil, domain.ErrInvalidStatus
		}
		criteria["status"] = filter.Status
	}
	if assignee := strings.ToLower(strings.TrimSpace(filter.AssignedTo)); assignee != "" {
		criteria["assigned_to"] = assignee
	}
	return s.tasks.Filter(ctx, scope, criteria, opts.Sort, opts.Limit)
}

// UpdateTaskInput contains input for updating a task; nil fields are unchanged
type UpdateTaskInput struct {
	AssignmentID *uuid.UUID
	Title        *string
	Description  *string
	Status       *domain.TaskStatus
	Priority     *domain.Priority
	AssignedTo   *string
	DueDate      *time.Time
	ClearDueDate bool
}

// UpdateTask updates a task
func (s *TaskService) UpdateTask(ctx context.Context, scope domain.Scope, id uuid.UUID, input UpdateTaskInput) (*domain.Task, error) {
	patch := domain.Patch{}
	if input.AssignmentID != nil {
		if _, err := s.assignments.Get(ctx, scope, *input.AssignmentID); err != nil {
			return nil, err
		}
		patch["assignment_id"] = *input.AssignmentID
	}
	if input.Title != nil {
		title, err := requiredText(*input.Title, domain.MaxTitleLength, domain.ErrTitleRequired)
		if err != nil {
			return nil, err
		}
		patch["title"] = title
	}
	if input.Description != nil {
		patch["description"] = *input.Description
	}
	if input.Status != nil {
		if !domain.ValidTaskStatuses[*input.Status] {
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
	if input.AssignedTo != nil {
		patch["assigned_to"] = strings.ToLower(strings.TrimSpace(*input.AssignedTo))
	}
	switch {
	case input.ClearDueDate:
		patch["due_date"] = nil
	case input.DueDate != nil:
		patch["due_date"] = input.DueDate.UTC()
	}

	task, err := s.tasks.Update(ctx, scope, id, patch)
	if err != nil {
		return nil, err
	}
	s.publishEvent(scope.WorkspaceID, websocket.Updated(websocket.EntityTypeTask, task))
	return task, nil
}

// DeleteTask permanently deletes a task
func (s *TaskService) DeleteTask(ctx context.Context, scope domain.Scope, id uuid.UUID) error {
	if err := s.tasks.Delete(ctx, scope, id); err != nil {
		return err
	}
	s.publishEvent(scope.WorkspaceID, websocket.Deleted(websocket.EntityTypeTask, deletedPayload(id)))
	return nil
}
