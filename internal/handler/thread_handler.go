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

// ThreadHandler handles conversation thread HTTP requests
type ThreadHandler struct {
	threadService *service.ThreadService
}

// NewThreadHandler creates a new ThreadHandler
func NewThreadHandler(threadService *service.ThreadService) *ThreadHandler {
	return &ThreadHandler{threadService: threadService}
}

// CreateThreadRequest represents the create thread request body
type CreateThreadRequest struct {
	AssignmentID *uuid.UUID `json:"assignment_id"`
	Topic        string     `json:"topic" validate:"required,max=255"`
	Description  string     `json:"description"`
	Tags         []string   `json:"tags"`
}

// UpdateThreadRequest represents the update thread request body; omitted fields are unchanged
type UpdateThreadRequest struct {
	Topic       *string              `json:"topic" validate:"omitempty,max=255"`
	Description *string              `json:"description"`
	Tags        []string             `json:"tags"`
	Status      *domain.ThreadStatus `json:"status"`
}

// CreateThread godoc
// @Summary Open a conversation thread
// @Tags threads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateThreadRequest true "Thread"
// @Success 201 {object} domain.ConversationThread
// @Failure 400 {object} ProblemDetails
// @Router /threads [post]
func (h *ThreadHandler) CreateThread(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req CreateThreadRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	thread, err := h.threadService.CreateThread(c.Request().Context(), scope, service.CreateThreadInput{
		AssignmentID: req.AssignmentID,
		Topic:        req.Topic,
		Description:  req.Description,
		Tags:         req.Tags,
	})
	if err != nil {
		return respondError(c, err, "Failed to create thread")
	}

	log.Info().Str("workspace_id", scope.WorkspaceID.String()).Str("thread_id", thread.ID.String()).Msg("Thread created")

	return c.JSON(http.StatusCreated, thread)
}

// ListThreads godoc
// @Summary List conversation threads
// @Description Most recently active first unless a sort is given
// @Tags threads
// @Produce json
// @Security BearerAuth
// @Param assignment_id query string false "Filter by assignment"
// @Param status query string false "Filter by status"
// @Param tag query string false "Filter by tag"
// @Param sort query string false "Sort field, prefix with - for descending"
// @Param limit query int false "Maximum number of results"
// @Success 200 {array} domain.ConversationThread
// @Router /threads [get]
func (h *ThreadHandler) ListThreads(c echo.Context) error {
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

	threads, err := h.threadService.ListThreads(c.Request().Context(), scope, service.ThreadFilter{
		AssignmentID: assignmentID,
		Status:       domain.ThreadStatus(c.QueryParam("status")),
		Tag:          c.QueryParam("tag"),
	}, opts)
	if err != nil {
		return respondError(c, err, "Failed to list threads")
	}
	return c.JSON(http.StatusOK, threads)
}

// GetThread handles GET /threads/:id
func (h *ThreadHandler) GetThread(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	thread, err := h.threadService.GetThread(c.Request().Context(), scope, id)
	if err != nil {
		return respondError(c, err, "Failed to get thread")
	}
	return c.JSON(http.StatusOK, thread)
}

// UpdateThread handles PUT /threads/:id
func (h *ThreadHandler) UpdateThread(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	var req UpdateThreadRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	thread, err := h.threadService.UpdateThread(c.Request().Context(), scope, id, service.UpdateThreadInput{
		Topic:       req.Topic,
		Description: req.Description,
		Tags:        req.Tags,
		Status:      req.Status,
	})
	if err != nil {
		return respondError(c, err, "Failed to update thread")
	}
	return c.JSON(http.StatusOK, thread)
}

// DeleteThread handles DELETE /threads/:id
func (h *ThreadHandler) DeleteThread(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	if err := h.threadService.DeleteThread(c.Request().Context(), scope, id); err != nil {
		return respondError(c, err, "Failed to delete thread")
	}
	return c.NoContent(http.StatusNoContent)
}
