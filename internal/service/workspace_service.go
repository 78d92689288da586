package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// WorkspaceService handles workspace-related business logic
type WorkspaceService struct {
	workspaceRepo  domain.WorkspaceRepository
	cache          resolverCache
	files          *FileService
	eventPublisher websocket.EventPublisher
}

// NewWorkspaceService creates a new WorkspaceService
func NewWorkspaceService(workspaceRepo domain.WorkspaceRepository, cache resolverCache) *WorkspaceService {
	return &WorkspaceService{workspaceRepo: workspaceRepo, cache: cache}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *WorkspaceService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// SetFileService lets ClearAllData remove the workspace's stored files
func (s *WorkspaceService) SetFileService(files *FileService) {
	s.files = files
}

// CreateWorkspaceInput contains input for creating a workspace
type CreateWorkspaceInput struct {
	Name     string
	Type     domain.WorkspaceType
	Settings domain.WorkspaceSettings
}

// CreateWorkspace creates a non-default workspace owned by the user
func (s *WorkspaceService) CreateWorkspace(ctx context.Context, user *domain.User, input CreateWorkspaceInput) (*domain.Workspace, error) {
	name, err := validateWorkspaceName(input.Name)
	if err != nil {
		return nil, err
	}
	wsType := input.Type
	if wsType == "" {
		wsType = domain.WorkspaceTypeTeam
	}
	if !domain.ValidWorkspaceTypes[wsType] {
		return nil, domain.ErrInvalidInput
	}

	workspace, err := s.workspaceRepo.Create(ctx, &domain.Workspace{
		Name:       name,
		OwnerEmail: user.Email,
		Members:    []string{user.Email},
		Type:       wsType,
		Settings:   input.Settings,
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(user.Email)
	return workspace, nil
}

// ListWorkspaces returns the workspaces the user is a member of
func (s *WorkspaceService) ListWorkspaces(ctx context.Context, user *domain.User) ([]*domain.Workspace, error) {
	return s.workspaceRepo.ListByMember(ctx, user.Email)
}

// UpdateWorkspaceInput contains input for updating a workspace; nil fields are unchanged
type UpdateWorkspaceInput struct {
	Name     *string
	Type     *domain.WorkspaceType
	Settings *domain.WorkspaceSettings
}

// UpdateWorkspace renames or restyles a workspace (owner only)
func (s *WorkspaceService) UpdateWorkspace(ctx context.Context, user *domain.User, id uuid.UUID, input UpdateWorkspaceInput) (*domain.Workspace, error) {
	workspace, err := s.ownedWorkspace(ctx, user, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name, err := validateWorkspaceName(*input.Name)
		if err != nil {
			return nil, err
		}
		workspace.Name = name
	}
	if input.Type != nil {
		if !domain.ValidWorkspaceTypes[*input.Type] {
			return nil, domain.ErrInvalidInput
		}
		workspace.Type = *input.Type
	}
	if input.Settings != nil {
		workspace.Settings = *input.Settings
	}

	updated, err := s.workspaceRepo.Update(ctx, workspace)
	if err != nil {
		return nil, err
	}
	s.invalidateMembers(updated.Members)
	s.publishEvent(updated.ID, websocket.Updated(websocket.EntityTypeWorkspace, updated))
	return updated, nil
}

// AddMember shares a workspace with another user by email (owner only)
func (s *WorkspaceService) AddMember(ctx context.Context, user *domain.User, id uuid.UUID, email string) (*domain.Workspace, error) {
	workspace, err := s.ownedWorkspace(ctx, user, id)
	if err != nil {
		return nil, err
	}
	email, err = normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if workspace.HasMember(email) {
		return workspace, nil
	}

	updated, err := s.workspaceRepo.SetMembers(ctx, id, append(workspace.Members, email))
	if err != nil {
		return nil, err
	}
	s.invalidate(email)
	s.invalidate(user.Email)
	log.Info().Str("workspace_id", id.String()).Str("member", email).Msg("Added workspace member")
	s.publishEvent(id, websocket.Updated(websocket.EntityTypeWorkspace, updated))
	return updated, nil
}

// RemoveMember revokes a member's access (owner only). The owner cannot be removed.
func (s *WorkspaceService) RemoveMember(ctx context.Context, user *domain.User, id uuid.UUID, email string) (*domain.Workspace, error) {
	workspace, err := s.ownedWorkspace(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if workspace.IsOwner(email) {
		return nil, domain.ErrCannotRemoveOwner
	}
	if !workspace.HasMember(email) {
		return nil, domain.ErrNotMember
	}

	members := make([]string, 0, len(workspace.Members))
	for _, m := range workspace.Members {
		if !strings.EqualFold(m, email) {
			members = append(members, m)
		}
	}
	updated, err := s.workspaceRepo.SetMembers(ctx, id, members)
	if err != nil {
		return nil, err
	}
	s.invalidate(email)
	s.invalidate(user.Email)
	log.Info().Str("workspace_id", id.String()).Str("member", email).Msg("Removed workspace member")
	// cut live connections before announcing, so the removed member sees nothing more
	if s.eventPublisher != nil {
		s.eventPublisher.RemoveUser(email, id)
	}
	s.publishEvent(id, websocket.Updated(websocket.EntityTypeWorkspace, updated))
	return updated, nil
}

// ClearAllData deletes every project, assignment, task, document, thread and
// message of a workspace but keeps the workspace itself (owner only)
func (s *WorkspaceService) ClearAllData(ctx context.Context, user *domain.User, id uuid.UUID) error {
	if _, err := s.ownedWorkspace(ctx, user, id); err != nil {
		return err
	}
	if err := s.workspaceRepo.ClearAllData(ctx, id); err != nil {
		return err
	}
	removed, err := s.files.DeleteWorkspace(ctx, id)
	if err != nil {
		// the rows are already gone, so the clear itself still succeeds
		log.Error().Err(err).Str("workspace_id", id.String()).Int("files_removed", removed).Msg("Failed to remove workspace files")
	}
	log.Warn().Str("workspace_id", id.String()).Str("actor", user.Email).Int("files_removed", removed).Msg("Cleared all workspace data")
	s.publishEvent(id, websocket.WorkspaceCleared(websocket.DeletedPayload{ID: id.String()}))
	return nil
}

func (s *WorkspaceService) ownedWorkspace(ctx context.Context, user *domain.User, id uuid.UUID) (*domain.Workspace, error) {
	workspace, err := s.workspaceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !workspace.HasMember(user.Email) {
		// members of other workspaces learn nothing about this one
		return nil, domain.ErrWorkspaceNotFound
	}
	if !workspace.IsOwner(user.Email) {
		return nil, domain.ErrNotOwner
	}
	return workspace, nil
}

func (s *WorkspaceService) invalidate(email string) {
	if s.cache != nil {
		s.cache.Invalidate(email)
	}
}

func (s *WorkspaceService) invalidateMembers(members []string) {
	for _, m := range members {
		s.invalidate(m)
	}
}

func (s *WorkspaceService) publishEvent(workspaceID uuid.UUID, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(workspaceID, event)
	}
}

func validateWorkspaceName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.ErrNameRequired
	}
	if len(name) > domain.MaxNameLength {
		return "", domain.ErrNameTooLong
	}
	return name, nil
}

func normalizeEmail(email string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return "", domain.ErrInvalidInput
	}
	return strings.ToLower(addr.Address), nil
}
