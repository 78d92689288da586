package handler

import (
	"net/http"

	"github.com/dafibh/proflow/proflow-backend/internal/middleware"
	"github.com/dafibh/proflow/proflow-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// PreferenceHandler exposes the client-writable preference keys
type PreferenceHandler struct {
	preferenceService *service.PreferenceService
}

// NewPreferenceHandler creates a new PreferenceHandler
func NewPreferenceHandler(preferenceService *service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{preferenceService: preferenceService}
}

// PreferenceResponse is one stored preference
type PreferenceResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SetPreferenceRequest is the body of PUT /preferences/:key
type SetPreferenceRequest struct {
	Value string `json:"value"`
}

// GetPreference handles GET /preferences/:key
func (h *PreferenceHandler) GetPreference(c echo.Context) error {
	session := middleware.GetSession(c)
	if session == nil || session.Preferences == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	key := c.Param("key")
	value, err := h.preferenceService.Get(c.Request().Context(), session.Preferences, key)
	if err != nil {
		return respondError(c, err, "Failed to get preference")
	}
	return c.JSON(http.StatusOK, PreferenceResponse{Key: key, Value: value})
}

// SetPreference handles PUT /preferences/:key
func (h *PreferenceHandler) SetPreference(c echo.Context) error {
	session := middleware.GetSession(c)
	if session == nil || session.Preferences == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req SetPreferenceRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	key := c.Param("key")
	if err := h.preferenceService.Set(c.Request().Context(), session.Preferences, key, req.Value); err != nil {
		return respondError(c, err, "Failed to save preference")
	}
	return c.JSON(http.StatusOK, PreferenceResponse{Key: key, Value: req.Value})
}

// DeletePreference handles DELETE /preferences/:key
func (h *PreferenceHandler) DeletePreference(c echo.Context) error {
	session := middleware.GetSession(c)
	if session == nil || session.Preferences == nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	if err := h.preferenceService.Remove(c.Request().Context(), session.Preferences, c.Param("key")); err != nil {
		return respondError(c, err, "Failed to remove preference")
	}
	return c.NoContent(http.StatusNoContent)
}
