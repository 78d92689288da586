package service

import (
	"context"
	"fmt"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/google/uuid"
)

// UserPreferences binds one user to the preference repository
type UserPreferences struct {
	repo   domain.PreferenceRepository
	userID uuid.UUID
}

var _ domain.PreferenceStore = (*UserPreferences)(nil)

// NewUserPreferences creates the preference store of userID
func NewUserPreferences(repo domain.PreferenceRepository, userID uuid.UUID) *UserPreferences {
	return &UserPreferences{repo: repo, userID: userID}
}

func (p *UserPreferences) Get(ctx context.Context, key string) (string, bool, error) {
	return p.repo.Get(ctx, p.userID, key)
}

func (p *UserPreferences) Set(ctx context.Context, key, value string) error {
	return p.repo.Set(ctx, p.userID, key, value)
}

func (p *UserPreferences) Remove(ctx context.Context, key string) error {
	return p.repo.Remove(ctx, p.userID, key)
}

// DevicePreferences binds one anonymous device to the device preference repository
type DevicePreferences struct {
	repo     domain.DevicePreferenceRepository
	deviceID string
}

var _ domain.PreferenceStore = (*DevicePreferences)(nil)

// NewDevicePreferences creates the preference store of deviceID
func NewDevicePreferences(repo domain.DevicePreferenceRepository, deviceID string) *DevicePreferences {
	return &DevicePreferences{repo: repo, deviceID: deviceID}
}

func (p *DevicePreferences) Get(ctx context.Context, key string) (string, bool, error) {
	return p.repo.Get(ctx, p.deviceID, key)
}

func (p *DevicePreferences) Set(ctx context.Context, key, value string) error {
	return p.repo.Set(ctx, p.deviceID, key, value)
}

func (p *DevicePreferences) Remove(ctx context.Context, key string) error {
	return p.repo.Remove(ctx, p.deviceID, key)
}

// PreferenceService exposes the client-writable keys (drafts, tutorial flags, UI state)
type PreferenceService struct{}

// NewPreferenceService creates a new PreferenceService
func NewPreferenceService() *PreferenceService {
	return &PreferenceService{}
}

// Get returns a client preference, or ErrNotFound when unset
func (s *PreferenceService) Get(ctx context.Context, prefs domain.PreferenceStore, key string) (string, error) {
	if !domain.IsClientPreferenceKey(key) {
		return "", fmt.Errorf("%w: preference key %q", domain.ErrInvalidInput, key)
	}
	value, found, err := prefs.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !found {
		return "", domain.ErrNotFound
	}
	return value, nil
}

// Set stores a client preference
func (s *PreferenceService) Set(ctx context.Context, prefs domain.PreferenceStore, key, value string) error {
	if !domain.IsClientPreferenceKey(key) {
		return fmt.Errorf("%w: preference key %q", domain.ErrInvalidInput, key)
	}
	if len(value) > domain.MaxPreferenceValueLength {
		return fmt.Errorf("%w: preference value too large", domain.ErrInvalidInput)
	}
	return prefs.Set(ctx, key, value)
}

// Remove deletes a client preference. Removing an unset key is not an error.
func (s *PreferenceService) Remove(ctx context.Context, prefs domain.PreferenceStore, key string) error {
	if !domain.IsClientPreferenceKey(key) {
		return fmt.Errorf("%w: preference key %q", domain.ErrInvalidInput, key)
	}
	return prefs.Remove(ctx, key)
}
