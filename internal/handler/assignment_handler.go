package handler

import (
	"net/http"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/middleware"
	"github.com/dafibh/proflow/proflow-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// AssignmentHandler handles assignment-related HTTP requests
type AssignmentHandler struct {
	assignmentService *service.AssignmentService
}

// NewAssignmentHandler creates a new AssignmentHandler
func NewAssignmentHandler(assignmentService *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: assignmentService}
}

// CreateAssignmentRequest represents the create assignment request body
type CreateAssignmentRequest struct {
	ProjectID         *uuid.UUID              `json:"project_id"`
	Name              string                  `json:"name" validate:"required,max=255"`
	Description       string                  `json:"description"`
	AssignmentManager string                  `json:"assignment_manager" validate:"omitempty,email"`
	TeamMembers       []string                `json:"team_members" validate:"omitempty,dive,email"`
	Status            domain.AssignmentStatus `json:"status"`
	Priority          domain.Priority         `json:"priority"`
}

// UpdateAssignmentRequest represents the update assignment request body; omitted fields are unchanged
type UpdateAssignmentRequest struct {
	ProjectID         *uuid.UUID               `json:"project_id"`
	ClearProject      bool                     `json:"clear_project"`
	Name              *string                  `json:"name" validate:"omitempty,max=255"`
	Description       *string                  `json:"description"`
	AssignmentManager *string                  `json:"assignment_manager" validate:"omitempty,email"`
	TeamMembers       []string                 `json:"team_members" validate:"omitempty,dive,email"`
	Status            *domain.AssignmentStatus `json:"status"`
	Priority          *domain.Priority         `json:"priority"`
}

// CreateAssignment godoc
// @Summary Create an assignment
// @Description Create an assignment, optionally inside a project of the active workspace
// @Tags assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateAssignmentRequest true "Assignment"
// @Success 201 {object} domain.Assignment
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Router /assignments [post]
func (h *AssignmentHandler) CreateAssignment(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req CreateAssignmentRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	assignment, err := h.assignmentService.CreateAssignment(c.Request().Context(), scope, service.CreateAssignmentInput{
		ProjectID:         req.ProjectID,
		Name:              req.Name,
		Description:       req.Description,
		AssignmentManager: req.AssignmentManager,
		TeamMembers:       req.TeamMembers,
		Status:            req.Status,
		Priority:          req.Priority,
	})
	if err != nil {
		return respondError(c, err, "Failed to create assignment")
	}

	log.Info().Str("workspace_id", scope.WorkspaceID.String()).Str("assignment_id", assignment.ID.String()).Msg("Assignment created")

	return c.JSON(http.StatusCreated, assignment)
}

// ListAssignments godoc
// @Summary List assignments
// @Tags assignments
// @Produce json
// @Security BearerAuth
// @Param project_id query string false "Filter by project"
// @Param status query string false "Filter by status"
// @Param team_member query string false "Filter by team member email"
// @Param sort query string false "Sort field, prefix with - for descending"
// @Param limit query int false "Maximum number of results"
// @Success 200 {array} domain.Assignment
// @Failure 400 {object} ProblemDetails
// @Router /assignments [get]
func (h *AssignmentHandler) ListAssignments(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}

	opts, errs := listOptions(c)
	projectID, err := queryID(c, "project_id")
	if err != nil {
		errs = append(errs, ValidationError{Field: "project_id", Message: "Must be a valid ID"})
	}
	if len(errs) > 0 {
		return NewValidationError(c, "Invalid query parameters", errs)
	}

	assignments, err := h.assignmentService.ListAssignments(c.Request().Context(), scope, service.AssignmentFilter{
		ProjectID:  projectID,
		Status:     domain.AssignmentStatus(c.QueryParam("status")),
		TeamMember: c.QueryParam("team_member"),
	}, opts)
	if err != nil {
		return respondError(c, err, "Failed to list assignments")
	}
	return c.JSON(http.StatusOK, assignments)
}

// GetAssignment handles GET /assignments/:id
func (h *AssignmentHandler) GetAssignment(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	assignment, err := h.assignmentService.GetAssignment(c.Request().Context(), scope, id)
	if err != nil {
		return respondError(c, err, "Failed to get assignment")
	}
	return c.JSON(http.StatusOK, assignment)
}

// UpdateAssignment handles PUT /assignments/:id
func (h *AssignmentHandler) UpdateAssignment(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	var req UpdateAssignmentRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	assignment, err := h.assignmentService.UpdateAssignment(c.Request().Context(), scope, id, service.UpdateAssignmentInput{
		ProjectID:         req.ProjectID,
		ClearProject:      req.ClearProject,
		Name:              req.Name,
		Description:       req.Description,
		AssignmentManager: req.AssignmentManager,
		TeamMembers:       req.TeamMembers,
		Status:            req.Status,
		Priority:          req.Priority,
	})
	if err != nil {
		return respondError(c, err, "Failed to update assignment")
	}
	return c.JSON(http.StatusOK, assignment)
}

// DeleteAssignment handles DELETE /assignments/:id
func (h *AssignmentHandler) DeleteAssignment(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	if err := h.assignmentService.DeleteAssignment(c.Request().Context(), scope, id); err != nil {
		return respondError(c, err, "Failed to delete assignment")
	}
	return c.NoContent(http.StatusNoContent)
}
