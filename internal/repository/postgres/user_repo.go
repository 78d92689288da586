package postgres

import (
	"context"
	"errors"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, auth_subject, email, full_name, active_workspace_id, created_at, updated_at`

// UserRepository implements domain.UserRepository using PostgreSQL
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID retrieves a user by their UUID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail retrieves a user by email, ignoring case
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

// GetBySubject retrieves a user by their hosted-auth subject
func (r *UserRepository) GetBySubject(ctx context.Context, subject string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE auth_subject = $1`, subject)
	return scanUser(row)
}

// Upsert creates a user or refreshes an existing one matched by subject, then email.
// An empty full name never overwrites a stored one.
func (r *UserRepository) Upsert(ctx context.Context, user *domain.User) (*domain.User, error) {
	var result *domain.User
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var existing *domain.User
		var err error
		if user.AuthSubject != nil {
			existing, err = scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE auth_subject = $1 FOR UPDATE`, *user.AuthSubject))
			if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
				return err
			}
		}
		if existing == nil {
			existing, err = scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1) FOR UPDATE`, user.Email))
			if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
				return err
			}
		}

		if existing == nil {
			result, err = scanUser(tx.QueryRow(ctx, `
				INSERT INTO users (auth_subject, email, full_name)
				VALUES ($1, $2, $3)
				RETURNING `+userColumns,
				user.AuthSubject, user.Email, user.FullName))
			return err
		}

		result, err = scanUser(tx.QueryRow(ctx, `
			UPDATE users SET
				auth_subject = COALESCE($2::text, auth_subject),
				email = $3,
				full_name = CASE WHEN full_name = '' THEN $4::text ELSE full_name END,
				updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns,
			existing.ID, user.AuthSubject, user.Email, user.FullName))
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateFullName updates only the user's display name
func (r *UserRepository) UpdateFullName(ctx context.Context, id uuid.UUID, fullName string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET full_name = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns, id, fullName)
	return scanUser(row)
}

// SetActiveWorkspace stores the user's last active workspace
func (r *UserRepository) SetActiveWorkspace(ctx context.Context, id uuid.UUID, workspaceID *uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET active_workspace_id = $2, updated_at = NOW() WHERE id = $1`, id, workspaceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.AuthSubject, &u.Email, &u.FullName, &u.ActiveWorkspaceID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
