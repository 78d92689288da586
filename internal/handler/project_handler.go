package handler

import (
	"net/http"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/middleware"
	"github.com/dafibh/proflow/proflow-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ProjectHandler handles project-related HTTP requests
type ProjectHandler struct {
	projectService *service.ProjectService
}

// NewProjectHandler creates a new ProjectHandler
func NewProjectHandler(projectService *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// CreateProjectRequest represents the create project request body
type CreateProjectRequest struct {
	Name        string               `json:"name" validate:"required,max=255"`
	Description string               `json:"description"`
	Status      domain.ProjectStatus `json:"status"`
	Priority    domain.Priority      `json:"priority"`
	Goals       string               `json:"goals"`
}

// UpdateProjectRequest represents the update project request body; omitted fields are unchanged
type UpdateProjectRequest struct {
	Name        *string               `json:"name" validate:"omitempty,max=255"`
	Description *string               `json:"description"`
	Status      *domain.ProjectStatus `json:"status"`
	Priority    *domain.Priority      `json:"priority"`
	Goals       *string               `json:"goals"`
}

// CreateProject godoc
// @Summary Create a project
// @Description Create a project in the active workspace
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateProjectRequest true "Project"
// @Success 201 {object} domain.Project
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Router /projects [post]
func (h *ProjectHandler) CreateProject(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req CreateProjectRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	project, err := h.projectService.CreateProject(c.Request().Context(), scope, service.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Goals:       req.Goals,
	})
	if err != nil {
		return respondError(c, err, "Failed to create project")
	}

	log.Info().Str("workspace_id", scope.WorkspaceID.String()).Str("project_id", project.ID.String()).Str("name", project.Name).Msg("Project created")

	return c.JSON(http.StatusCreated, project)
}

// ListProjects godoc
// @Summary List projects
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param sort query string false "Sort field, prefix with - for descending" default(-updated_date)
// @Param limit query int false "Maximum number of results"
// @Success 200 {array} domain.Project
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Router /projects [get]
func (h *ProjectHandler) ListProjects(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}

	opts, errs := listOptions(c)
	if len(errs) > 0 {
		return NewValidationError(c, "Invalid query parameters", errs)
	}

	projects, err := h.projectService.ListProjects(c.Request().Context(), scope, domain.ProjectStatus(c.QueryParam("status")), opts)
	if err != nil {
		return respondError(c, err, "Failed to list projects")
	}
	return c.JSON(http.StatusOK, projects)
}

// GetProject handles GET /projects/:id
func (h *ProjectHandler) GetProject(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	project, err := h.projectService.GetProject(c.Request().Context(), scope, id)
	if err != nil {
		return respondError(c, err, "Failed to get project")
	}
	return c.JSON(http.StatusOK, project)
}

// UpdateProject godoc
// @Summary Update a project
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Project ID"
// @Param request body UpdateProjectRequest true "Fields to change"
// @Success 200 {object} domain.Project
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /projects/{id} [put]
func (h *ProjectHandler) UpdateProject(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	var req UpdateProjectRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	project, err := h.projectService.UpdateProject(c.Request().Context(), scope, id, service.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Goals:       req.Goals,
	})
	if err != nil {
		return respondError(c, err, "Failed to update project")
	}
	return c.JSON(http.StatusOK, project)
}

// DeleteProject handles DELETE /projects/:id
func (h *ProjectHandler) DeleteProject(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	if err := h.projectService.DeleteProject(c.Request().Context(), scope, id); err != nil {
		return respondError(c, err, "Failed to delete project")
	}

	log.Info().Str("workspace_id", scope.WorkspaceID.String()).Str("project_id", id.String()).Msg("Project deleted")

	return c.NoContent(http.StatusNoContent)
}
