package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const workspaceColumns = `id, name, owner_email, members, type, is_default, settings, created_at, updated_at`

// entityTables are the per-collection JSONB tables owned by a workspace
var entityTables = []string{
	domain.CollectionMessages,
	domain.CollectionThreads,
	domain.CollectionTasks,
	domain.CollectionDocuments,
	domain.CollectionAssignments,
	domain.CollectionProjects,
}

// WorkspaceRepository implements domain.WorkspaceRepository using PostgreSQL
type WorkspaceRepository struct {
	pool *pgxpool.Pool
}

// NewWorkspaceRepository creates a new WorkspaceRepository
func NewWorkspaceRepository(pool *pgxpool.Pool) *WorkspaceRepository {
	return &WorkspaceRepository{pool: pool}
}

// GetByID retrieves a workspace by its ID
func (r *WorkspaceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workspace, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE id = $1`, id)
	return scanWorkspace(row)
}

// ListByMember returns every workspace whose members include email, oldest first
func (r *WorkspaceRepository) ListByMember(ctx context.Context, email string) ([]*domain.Workspace, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+workspaceColumns+` FROM workspaces
		WHERE EXISTS (SELECT 1 FROM unnest(members) m WHERE lower(m) = lower($1))
		ORDER BY created_at, id`, email)
	if err != nil {
		return nil, err
	}
	return collectWorkspaces(rows)
}

// GetAllWorkspaces returns every workspace. Used by background workers only.
func (r *WorkspaceRepository) GetAllWorkspaces(ctx context.Context) ([]*domain.Workspace, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+workspaceColumns+` FROM workspaces ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	return collectWorkspaces(rows)
}

// Create creates a new workspace
func (r *WorkspaceRepository) Create(ctx context.Context, workspace *domain.Workspace) (*domain.Workspace, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO workspaces (name, owner_email, members, type, is_default, settings)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+workspaceColumns,
		workspace.Name, workspace.OwnerEmail, membersOrEmpty(workspace.Members), string(workspace.Type), workspace.IsDefault, workspace.Settings)
	created, err := scanWorkspace(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	return created, nil
}

// CreateDefault inserts the owner's default workspace. When one already exists,
// because of an earlier or concurrent call, the existing workspace is returned.
func (r *WorkspaceRepository) CreateDefault(ctx context.Context, workspace *domain.Workspace) (*domain.Workspace, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO workspaces (name, owner_email, members, type, is_default, settings)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		ON CONFLICT (lower(owner_email)) WHERE is_default DO NOTHING
		RETURNING `+workspaceColumns,
		workspace.Name, workspace.OwnerEmail, membersOrEmpty(workspace.Members), string(workspace.Type), workspace.Settings)
	created, err := scanWorkspace(row)
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, domain.ErrWorkspaceNotFound) {
		return nil, err
	}

	row = r.pool.QueryRow(ctx, `
		SELECT `+workspaceColumns+` FROM workspaces
		WHERE lower(owner_email) = lower($1) AND is_default`, workspace.OwnerEmail)
	return scanWorkspace(row)
}

// Update updates name, type and settings of an existing workspace
func (r *WorkspaceRepository) Update(ctx context.Context, workspace *domain.Workspace) (*domain.Workspace, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE workspaces SET name = $2, type = $3, settings = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+workspaceColumns,
		workspace.ID, workspace.Name, string(workspace.Type), workspace.Settings)
	return scanWorkspace(row)
}

// SetMembers replaces the member list
func (r *WorkspaceRepository) SetMembers(ctx context.Context, id uuid.UUID, members []string) (*domain.Workspace, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE workspaces SET members = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+workspaceColumns, id, membersOrEmpty(members))
	return scanWorkspace(row)
}

// ClearAllData deletes every entity owned by the workspace, keeping the workspace itself
func (r *WorkspaceRepository) ClearAllData(ctx context.Context, id uuid.UUID) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, table := range entityTables {
			if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE workspace_id = $1`, pgx.Identifier{table}.Sanitize()), id); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}

func membersOrEmpty(members []string) []string {
	if members == nil {
		return []string{}
	}
	return members
}

func scanWorkspace(row pgx.Row) (*domain.Workspace, error) {
	var w domain.Workspace
	var wsType string
	err := row.Scan(&w.ID, &w.Name, &w.OwnerEmail, &w.Members, &wsType, &w.IsDefault, &w.Settings, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWorkspaceNotFound
		}
		return nil, err
	}
	w.Type = domain.WorkspaceType(wsType)
	return &w, nil
}

func collectWorkspaces(rows pgx.Rows) ([]*domain.Workspace, error) {
	defer rows.Close()
	var result []*domain.Workspace
	for rows.Next() {
		w, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}
