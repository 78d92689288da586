package handler

import (
	"net/http"
	"time"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/middleware"
	"github.com/dafibh/proflow/proflow-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskService *service.TaskService
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskService *service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// CreateTaskRequest represents the create task request body
type CreateTaskRequest struct {
	AssignmentID uuid.UUID         `json:"assignment_id" validate:"required"`
	Title        string            `json:"title" validate:"required,max=500"`
	Description  string            `json:"description"`
	Status       domain.TaskStatus `json:"status"`
	Priority     domain.Priority   `json:"priority"`
	AssignedTo   string            `json:"assigned_to" validate:"omitempty,email"`
	DueDate      *time.Time        `json:"due_date"`
}

// UpdateTaskRequest represents the update task request body; omitted fields are unchanged
type UpdateTaskRequest struct {
	AssignmentID *uuid.UUID         `json:"assignment_id"`
	Title        *string            `json:"title" validate:"omitempty,max=500"`
	Description  *string            `json:"description"`
	Status       *domain.TaskStatus `json:"status"`
	Priority     *domain.Priority   `json:"priority"`
	AssignedTo   *string            `json:"assigned_to"`
	DueDate      *time.Time         `json:"due_date"`
	ClearDueDate bool               `json:"clear_due_date"`
}

// CreateTask godoc
// @Summary Create a task
// @Description Create a task under an assignment of the active workspace
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTaskRequest true "Task"
// @Success 201 {object} domain.Task
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Router /tasks [post]
func (h *TaskHandler) CreateTask(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req CreateTaskRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), scope, service.CreateTaskInput{
		AssignmentID: req.AssignmentID,
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		Priority:     req.Priority,
		AssignedTo:   req.AssignedTo,
		DueDate:      req.DueDate,
	})
	if err != nil {
		return respondError(c, err, "Failed to create task")
	}

	log.Info().Str("workspace_id", scope.WorkspaceID.String()).Str("task_id", task.ID.String()).Msg("Task created")

	return c.JSON(http.StatusCreated, task)
}

// ListTasks godoc
// @Summary List tasks
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param assignment_id query string false "Filter by assignment"
// @Param status query string false "Filter by status"
// @Param assigned_to query string false "Filter by assignee email"
// @Param sort query string false "Sort field, prefix with - for descending"
// @Param limit query int false "Maximum number of results"
// @Success 200 {array} domain.Task
// @Failure 400 {object} ProblemDetails
// @Router /tasks [get]
func (h *TaskHandler) ListTasks(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}

	opts, errs := listOptions(c)
	assignmentID, err := queryID(c, "assignment_id")
	if err != nil {
		errs = append(errs, ValidationError{Field: "assignment_id", Message: "Must be a valid ID"})
	}
	if len(errs) > 0 {
		return NewValidationError(c, "Invalid query parameters", errs)
	}

	tasks, err := h.taskService.ListTasks(c.Request().Context(), scope, service.TaskFilter{
		AssignmentID: assignmentID,
		Status:       domain.TaskStatus(c.QueryParam("status")),
		AssignedTo:   c.QueryParam("assigned_to"),
	}, opts)
	if err != nil {
		return respondError(c, err, "Failed to list tasks")
	}
	return c.JSON(http.StatusOK, tasks)
}

// GetTask handles GET /tasks/:id
func (h *TaskHandler) GetTask(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	task, err := h.taskService.GetTask(c.Request().Context(), scope, id)
	if err != nil {
		return respondError(c, err, "Failed to get task")
	}
	return c.JSON(http.StatusOK, task)
}

// UpdateTask handles PUT /tasks/:id
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	var req UpdateTaskRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), scope, id, service.UpdateTaskInput{
		AssignmentID: req.AssignmentID,
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		Priority:     req.Priority,
		AssignedTo:   req.AssignedTo,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
	})
	if err != nil {
		return respondError(c, err, "Failed to update task")
	}
	return c.JSON(http.StatusOK, task)
}

// DeleteTask handles DELETE /tasks/:id
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	if err := h.taskService.DeleteTask(c.Request().Context(), scope, id); err != nil {
		return respondError(c, err, "Failed to delete task")
	}
	return c.NoContent(http.StatusNoContent)
}
