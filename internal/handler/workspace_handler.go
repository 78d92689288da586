package handler

import (
	"net/http"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/middleware"
	"github.com/dafibh/proflow/proflow-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// WorkspaceHandler handles workspace-related HTTP requests
type WorkspaceHandler struct {
	workspaceService *service.WorkspaceService
	resolver         *service.WorkspaceResolver
}

// NewWorkspaceHandler creates a new WorkspaceHandler
func NewWorkspaceHandler(workspaceService *service.WorkspaceService, resolver *service.WorkspaceResolver) *WorkspaceHandler {
	return &WorkspaceHandler{workspaceService: workspaceService, resolver: resolver}
}

// CreateWorkspaceRequest represents the create workspace request body
type CreateWorkspaceRequest struct {
	Name     string                   `json:"name" validate:"required,max=255"`
	Type     string                   `json:"type" validate:"omitempty,oneof=personal team client"`
	Settings domain.WorkspaceSettings `json:"settings"`
}

// UpdateWorkspaceRequest represents the update workspace request body
type UpdateWorkspaceRequest struct {
	Name     *string                   `json:"name" validate:"omitempty,max=255"`
	Type     *string                   `json:"type" validate:"omitempty,oneof=personal team client"`
	Settings *domain.WorkspaceSettings `json:"settings"`
}

// AddMemberRequest represents the add member request body
type AddMemberRequest struct {
	Email string `json:"email" validate:"required"`
}

// ListWorkspaces godoc
// @Summary List workspaces
// @Description Workspaces the caller is a member of
// @Tags workspaces
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Workspace
// @Failure 401 {object} ProblemDetails
// @Router /workspaces [get]
func (h *WorkspaceHandler) ListWorkspaces(c echo.Context) error {
	session := middleware.GetSession(c)
	if session == nil || session.User == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	workspaces, err := h.workspaceService.ListWorkspaces(c.Request().Context(), session.User)
	if err != nil {
		return respondError(c, err, "Failed to list workspaces")
	}
	return c.JSON(http.StatusOK, workspaces)
}

// CreateWorkspace godoc
// @Summary Create a workspace
// @Tags workspaces
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateWorkspaceRequest true "Workspace"
// @Success 201 {object} domain.Workspace
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Router /workspaces [post]
func (h *WorkspaceHandler) CreateWorkspace(c echo.Context) error {
	session := middleware.GetSession(c)
	if session == nil || session.User == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreateWorkspaceRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	workspace, err := h.workspaceService.CreateWorkspace(c.Request().Context(), session.User, service.CreateWorkspaceInput{
		Name:     req.Name,
		Type:     domain.WorkspaceType(req.Type),
		Settings: req.Settings,
	})
	if err != nil {
		return respondError(c, err, "Failed to create workspace")
	}

	log.Info().Str("workspace_id", workspace.ID.String()).Str("owner", workspace.OwnerEmail).Msg("Workspace created")

	return c.JSON(http.StatusCreated, workspace)
}

// UpdateWorkspace handles PUT /workspaces/:id
func (h *WorkspaceHandler) UpdateWorkspace(c echo.Context) error {
	session := middleware.GetSession(c)
	if session == nil || session.User == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	var req UpdateWorkspaceRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	input := service.UpdateWorkspaceInput{Name: req.Name, Settings: req.Settings}
	if req.Type != nil {
		wsType := domain.WorkspaceType(*req.Type)
		input.Type = &wsType
	}

	workspace, err := h.workspaceService.UpdateWorkspace(c.Request().Context(), session.User, id, input)
	if err != nil {
		return respondError(c, err, "Failed to update workspace")
	}
	return c.JSON(http.StatusOK, workspace)
}

// AddMember handles POST /workspaces/:id/members
func (h *WorkspaceHandler) AddMember(c echo.Context) error {
	session := middleware.GetSession(c)
	if session == nil || session.User == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	var req AddMemberRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	workspace, err := h.workspaceService.AddMember(c.Request().Context(), session.User, id, req.Email)
	if err != nil {
		return respondError(c, err, "Failed to add workspace member")
	}
	return c.JSON(http.StatusOK, workspace)
}

// RemoveMember handles DELETE /workspaces/:id/members/:email
func (h *WorkspaceHandler) RemoveMember(c echo.Context) error {
	session := middleware.GetSession(c)
	if session == nil || session.User == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	workspace, err := h.workspaceService.RemoveMember(c.Request().Context(), session.User, id, c.Param("email"))
	if err != nil {
		return respondError(c, err, "Failed to remove workspace member")
	}
	return c.JSON(http.StatusOK, workspace)
}

// SwitchWorkspace godoc
// @Summary Switch the active workspace
// @Tags workspaces
// @Produce json
// @Security BearerAuth
// @Param id path string true "Workspace ID"
// @Success 200 {object} service.Resolution
// @Failure 403 {object} ProblemDetails
// @Router /workspaces/{id}/switch [post]
func (h *WorkspaceHandler) SwitchWorkspace(c echo.Context) error {
	session := middleware.GetSession(c)
	if session == nil || session.User == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	res, err := h.resolver.SwitchWorkspace(c.Request().Context(), session.User, session.Preferences, id)
	if err != nil {
		return respondError(c, err, "Failed to switch workspace")
	}
	return c.JSON(http.StatusOK, res)
}

// Reload handles POST /workspaces/reload, forcing a fresh resolution
func (h *WorkspaceHandler) Reload(c echo.Context) error {
	session := middleware.GetSession(c)
	if session == nil || session.User == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	res, err := h.resolver.RetryLoad(c.Request().Context(), session.User, session.Preferences)
	if err != nil {
		return respondError(c, err, "Failed to reload workspaces")
	}
	return c.JSON(http.StatusOK, res)
}

// State handles GET /workspaces/state
func (h *WorkspaceHandler) State(c echo.Context) error {
	session := middleware.GetSession(c)
	if session == nil || session.User == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}
	return c.JSON(http.StatusOK, h.resolver.State(session.User.Email))
}

// ClearAllData handles DELETE /workspace/clear
// This is a destructive operation that deletes all data of the active workspace
func (h *WorkspaceHandler) ClearAllData(c echo.Context) error {
	session := middleware.GetSession(c)
	if session == nil || session.User == nil || session.Workspace == nil {
		return NewUnauthorizedError(c, "Workspace required")
	}

	workspaceID := session.Workspace.ID
	if err := h.workspaceService.ClearAllData(c.Request().Context(), session.User, workspaceID); err != nil {
		return respondError(c, err, "Failed to clear workspace data")
	}

	log.Info().Str("workspace_id", workspaceID.String()).Msg("Workspace data cleared")

	return c.NoContent(http.StatusNoContent)
}
