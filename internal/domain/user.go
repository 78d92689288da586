package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User represents a user in the system. Email is unique.
type User struct {
	ID                uuid.UUID  `json:"id"`
	AuthSubject       *string    `json:"-"`
	Email             string     `json:"email"`
	FullName          string     `json:"full_name"`
	ActiveWorkspaceID *uuid.UUID `json:"active_workspace_id"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Principal is the authenticated caller as asserted by the identity provider
type Principal struct {
	Subject string
	Email   string
	// EmailVerified is the provider's email_verified claim
	EmailVerified bool
	Name          string
	// DeviceID identifies the browser in local identity mode
	DeviceID string
}

// UserRepository defines the interface for user persistence operations
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetBySubject(ctx context.Context, subject string) (*User, error)
	// Upsert creates the user or refreshes the email of an existing subject or email.
	// The name is only filled in when the stored one is empty.
	Upsert(ctx context.Context, user *User) (*User, error)
	UpdateFullName(ctx context.Context, id uuid.UUID, fullName string) (*User, error)
	SetActiveWorkspace(ctx context.Context, id uuid.UUID, workspaceID *uuid.UUID) error
}
