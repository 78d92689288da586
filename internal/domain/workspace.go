package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type WorkspaceType string

const (
	WorkspaceTypePersonal WorkspaceType = "personal"
	WorkspaceTypeTeam     WorkspaceType = "team"
	WorkspaceTypeClient   WorkspaceType = "client"
)

// ValidWorkspaceTypes lists accepted workspace types
var ValidWorkspaceTypes = map[WorkspaceType]bool{
	WorkspaceTypePersonal: true,
	WorkspaceTypeTeam:     true,
	WorkspaceTypeClient:   true,
}

// DefaultWorkspaceName is used for the lazily created personal workspace
const DefaultWorkspaceName = "My Workspace"

// WorkspaceSettings holds cosmetic workspace settings
type WorkspaceSettings struct {
	Color string `json:"color,omitempty"`
	Icon  string `json:"icon,omitempty"`
}

// Workspace is the tenant boundary. Every other entity belongs to exactly one.
type Workspace struct {
	ID         uuid.UUID         `json:"id"`
	Name       string            `json:"name"`
	OwnerEmail string            `json:"owner_email"`
	Members    []string          `json:"members"`
	Type       WorkspaceType     `json:"type"`
	IsDefault  bool              `json:"is_default"`
	Settings   WorkspaceSettings `json:"settings"`
	CreatedAt  time.Time         `json:"created_date"`
	UpdatedAt  time.Time         `json:"updated_date"`
}

// HasMember reports whether email is listed in the workspace members
func (w *Workspace) HasMember(email string) bool {
	for _, m := range w.Members {
		if strings.EqualFold(m, email) {
			return true
		}
	}
	return false
}

// IsOwner reports whether email owns the workspace
func (w *Workspace) IsOwner(email string) bool {
	return strings.EqualFold(w.OwnerEmail, email)
}

// NewDefaultWorkspace builds the personal workspace created for a user with none
func NewDefaultWorkspace(email string) *Workspace {
	return &Workspace{
		Name:       DefaultWorkspaceName,
		OwnerEmail: email,
		Members:    []string{email},
		Type:       WorkspaceTypePersonal,
		IsDefault:  true,
	}
}

// SelectActiveWorkspace picks the active workspace from the ones the user can access.
// Priority, first match wins: stored preference, the user's saved active workspace,
// the default-flagged workspace, then the first in the list. A candidate id only
// counts if it is present in workspaces. Returns nil when workspaces is empty.
func SelectActiveWorkspace(workspaces []*Workspace, storedID, userActiveID *uuid.UUID) *Workspace {
	if len(workspaces) == 0 {
		return nil
	}
	for _, candidate := range []*uuid.UUID{storedID, userActiveID} {
		if candidate == nil || *candidate == uuid.Nil {
			continue
		}
		for _, ws := range workspaces {
			if ws.ID == *candidate {
				return ws
			}
		}
	}
	for _, ws := range workspaces {
		if ws.IsDefault {
			return ws
		}
	}
	return workspaces[0]
}

// WorkspaceRepository defines the interface for workspace persistence operations
type WorkspaceRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Workspace, error)
	// ListByMember returns workspaces whose members include email, oldest first
	ListByMember(ctx context.Context, email string) ([]*Workspace, error)
	GetAllWorkspaces(ctx context.Context) ([]*Workspace, error)
	Create(ctx context.Context, workspace *Workspace) (*Workspace, error)
	// CreateDefault creates the owner's default workspace, or returns the existing one
	CreateDefault(ctx context.Context, workspace *Workspace) (*Workspace, error)
	Update(ctx context.Context, workspace *Workspace) (*Workspace, error)
	SetMembers(ctx context.Context, id uuid.UUID, members []string) (*Workspace, error)
	ClearAllData(ctx context.Context, id uuid.UUID) error
}
