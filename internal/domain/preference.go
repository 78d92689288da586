package domain

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Well-known preference keys
const (
	PrefActiveWorkspaceID = "active_workspace_id"
	PrefCurrentUser       = "proflow_current_user"
)

// Client-writable preference key prefixes
const (
	PrefPrefixDraft    = "draft:"
	PrefPrefixTutorial = "tutorial:"
	PrefPrefixUI       = "ui:"
)

// MaxPreferenceValueLength caps a single stored value (drafts included)
const MaxPreferenceValueLength = 1 << 20

// IsClientPreferenceKey reports whether clients may read and write key directly.
// Identity and workspace keys are managed by the resolvers only.
func IsClientPreferenceKey(key string) bool {
	for _, prefix := range []string{PrefPrefixDraft, PrefPrefixTutorial, PrefPrefixUI} {
		if strings.HasPrefix(key, prefix) && len(key) > len(prefix) && len(key) <= 200 {
			return true
		}
	}
	return false
}

// PreferenceStore is a flat key-value store scoped to one owner
type PreferenceStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// PreferenceRepository persists preferences for every user
type PreferenceRepository interface {
	Get(ctx context.Context, userID uuid.UUID, key string) (string, bool, error)
	Set(ctx context.Context, userID uuid.UUID, key, value string) error
	Remove(ctx context.Context, userID uuid.UUID, key string) error
}

// DevicePreferenceRepository persists preferences for anonymous devices (local identity mode)
type DevicePreferenceRepository interface {
	Get(ctx context.Context, deviceID, key string) (string, bool, error)
	Set(ctx context.Context, deviceID, key, value string) error
	Remove(ctx context.Context, deviceID, key string) error
}
