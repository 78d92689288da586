package handler

import (
	"errors"
	"net/http"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type      string               `json:"type"`
	Title     string               `json:"title"`
	Status    int                  `json:"status"`
	Detail    string               `json:"detail,omitempty"`
	Instance  string               `json:"instance,omitempty"`
	Category  domain.ErrorCategory `json:"category,omitempty"`
	Retryable bool                 `json:"retryable,omitempty"`
	Errors    []ValidationError    `json:"errors,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error types
const (
	ErrorTypeValidation   = "https://proflow.app/errors/validation"
	ErrorTypeNotFound     = "https://proflow.app/errors/not-found"
	ErrorTypeUnauthorized = "https://proflow.app/errors/unauthorized"
	ErrorTypeForbidden    = "https://proflow.app/errors/forbidden"
	ErrorTypeConflict     = "https://proflow.app/errors/conflict"
	ErrorTypeUnavailable  = "https://proflow.app/errors/unavailable"
	ErrorTypeInternal     = "https://proflow.app/errors/internal"
)

func problem(c echo.Context, status int, errorType, title, detail string, category domain.ErrorCategory) error {
	return c.JSON(status, ProblemDetails{
		Type:      errorType,
		Title:     title,
		Status:    status,
		Detail:    detail,
		Instance:  c.Request().URL.Path,
		Category:  category,
		Retryable: category != "" && domain.IsRetryable(category),
	})
}

// NewValidationError creates a validation error response
func NewValidationError(c echo.Context, detail string, errors []ValidationError) error {
	return c.JSON(http.StatusBadRequest, ProblemDetails{
		Type:     ErrorTypeValidation,
		Title:    "Validation Error",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Category: domain.CategoryValidation,
		Errors:   errors,
	})
}

// NewNotFoundError creates a not found error response
func NewNotFoundError(c echo.Context, detail string) error {
	return problem(c, http.StatusNotFound, ErrorTypeNotFound, "Not Found", detail, domain.CategoryNotFound)
}

// NewUnauthorizedError creates an unauthorized error response
func NewUnauthorizedError(c echo.Context, detail string) error {
	return problem(c, http.StatusUnauthorized, ErrorTypeUnauthorized, "Unauthorized", detail, domain.CategoryAuth)
}

// NewForbiddenError creates a forbidden error response
func NewForbiddenError(c echo.Context, detail string) error {
	return problem(c, http.StatusForbidden, ErrorTypeForbidden, "Forbidden", detail, domain.CategoryPermission)
}

// NewConflictError creates a conflict error response
func NewConflictError(c echo.Context, detail string) error {
	return problem(c, http.StatusConflict, ErrorTypeConflict, "Conflict", detail, domain.CategoryValidation)
}

// NewServiceUnavailableError creates a 503 for optional features that are switched off or briefly unreachable
func NewServiceUnavailableError(c echo.Context, detail string) error {
	return problem(c, http.StatusServiceUnavailable, ErrorTypeUnavailable, "Service Unavailable", detail, domain.CategoryNetwork)
}

// NewInternalError creates an internal error response
func NewInternalError(c echo.Context, detail string) error {
	return problem(c, http.StatusInternalServerError, ErrorTypeInternal, "Internal Server Error", detail, domain.CategoryServer)
}

// respondError maps a service error to its problem response. action is the
// log message used for unexpected failures, e.g. "Failed to create project".
func respondError(c echo.Context, err error, action string) error {
	switch {
	case errors.Is(err, domain.ErrCrossWorkspace):
		log.Warn().Str("path", c.Request().URL.Path).Msg("Cross-workspace access rejected")
		return NewForbiddenError(c, "Cannot access resources from other workspaces")
	case errors.Is(err, domain.ErrFolderExists), errors.Is(err, domain.ErrAlreadyExists):
		return NewConflictError(c, err.Error())
	case errors.Is(err, service.ErrLLMNotConfigured):
		return NewServiceUnavailableError(c, "AI features are disabled (LLM not configured)")
	case errors.Is(err, service.ErrFileStorageNotConfigured):
		return NewServiceUnavailableError(c, "File uploads are disabled (storage not configured)")
	case errors.Is(err, service.ErrFileTooLarge), errors.Is(err, service.ErrEmptyFile):
		return NewValidationError(c, err.Error(), []ValidationError{{Field: "file", Message: err.Error()}})
	}

	category := domain.Categorize(err)
	switch category {
	case domain.CategoryValidation:
		return NewValidationError(c, err.Error(), nil)
	case domain.CategoryNotFound:
		return NewNotFoundError(c, err.Error())
	case domain.CategoryPermission:
		return NewForbiddenError(c, err.Error())
	case domain.CategoryAuth:
		return NewUnauthorizedError(c, err.Error())
	case domain.CategoryNetwork:
		log.Error().Err(err).Msg(action)
		return NewServiceUnavailableError(c, domain.UserMessage(category))
	default:
		log.Error().Err(err).Str("category", string(category)).Msg(action)
		return problem(c, http.StatusInternalServerError, ErrorTypeInternal, "Internal Server Error", domain.UserMessage(category), category)
	}
}
