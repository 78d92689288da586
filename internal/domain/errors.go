package domain

import "errors"

// Domain errors
var (
	ErrNotFound          = errors.New("resource not found")
	ErrAlreadyExists     = errors.New("resource already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInternalError     = errors.New("internal error")
	ErrUserNotFound      = errors.New("user not found")
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrNotMember         = errors.New("not a member of this workspace")
	ErrNotOwner          = errors.New("only the workspace owner can do this")
	ErrCannotRemoveOwner = errors.New("the workspace owner cannot be removed")
	ErrNoActiveWorkspace = errors.New("no active workspace")
	ErrNameRequired      = errors.New("name is required")
	ErrNameTooLong       = errors.New("name exceeds maximum length")
	ErrTitleRequired     = errors.New("title is required")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidPriority   = errors.New("invalid priority")
	ErrInvalidSort       = errors.New("invalid sort specification")
	ErrImmutableField    = errors.New("field cannot be changed")

	// ErrCrossWorkspace is returned whenever an operation touches an entity that
	// belongs to a workspace other than the caller's active one.
	ErrCrossWorkspace = errors.New("cannot access resources from other workspaces")
)

// Validation constants
const (
	MaxNameLength  = 255
	MaxTitleLength = 500
)
