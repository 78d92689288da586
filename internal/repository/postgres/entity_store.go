package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// columnFields are entity fields stored as real columns instead of inside data
var columnFields = map[string]string{
	"id":           "id",
	"workspace_id": "workspace_id",
	"created_date": "created_date",
	"updated_date": "updated_date",
}

// numericFields are data fields holding JSON numbers. They sort by value, not as text.
var numericFields = map[string]bool{
	"version":       true,
	"message_count": true,
	"file_size":     true,
}

// EntityStore implements domain.EntityStore[T] over a JSONB collection table:
// (id, workspace_id, data, created_date, updated_date).
// It applies no workspace scoping of its own.
type EntityStore[T domain.Entity] struct {
	pool      *pgxpool.Pool
	table     string
	newEntity func() T
	notFound  error
}

// NewEntityStore creates a store for one collection table. newEntity must return
// a fresh zero value, and notFound is returned when an id does not exist.
func NewEntityStore[T domain.Entity](pool *pgxpool.Pool, table string, newEntity func() T, notFound error) *EntityStore[T] {
	return &EntityStore[T]{
		pool:      pool,
		table:     pgx.Identifier{table}.Sanitize(),
		newEntity: newEntity,
		notFound:  notFound,
	}
}

// Create inserts entity, assigning an id when it has none
func (s *EntityStore[T]) Create(ctx context.Context, entity T) (T, error) {
	var zero T
	rec := entity.Base()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := time.Now().UTC()
	rec.CreatedDate = now
	rec.UpdatedDate = now

	data, err := json.Marshal(entity)
	if err != nil {
		return zero, fmt.Errorf("encode %s: %w", s.table, err)
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, workspace_id, data, created_date, updated_date)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id, workspace_id, data, created_date, updated_date`, s.table),
		rec.ID, rec.WorkspaceID, data, now)
	created, err := s.scan(row)
	if err != nil {
		if isUniqueViolation(err) {
			return zero, domain.ErrAlreadyExists
		}
		return zero, err
	}
	return created, nil
}

// Update merges patch into the stored document (shallow, top-level keys)
func (s *EntityStore[T]) Update(ctx context.Context, id uuid.UUID, patch domain.Patch) (T, error) {
	var zero T
	if err := patch.Validate(); err != nil {
		return zero, err
	}
	data, err := json.Marshal(patch)
	if err != nil {
		return zero, fmt.Errorf("encode patch: %w", err)
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE %s SET data = data || $2::jsonb, updated_date = NOW()
		WHERE id = $1
		RETURNING id, workspace_id, data, created_date, updated_date`, s.table),
		id, data)
	return s.scan(row)
}

// Delete removes the entity permanently
func (s *EntityStore[T]) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.notFound
	}
	return nil
}

// Get retrieves an entity by id
func (s *EntityStore[T]) Get(ctx context.Context, id uuid.UUID) (T, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT id, workspace_id, data, created_date, updated_date
		FROM %s WHERE id = $1`, s.table), id)
	return s.scan(row)
}

// Filter returns entities matching every criterion. Column fields compare by
// equality, everything else uses JSONB containment so list values match by membership.
func (s *EntityStore[T]) Filter(ctx context.Context, criteria domain.Criteria, sort domain.SortSpec, limit int) ([]T, error) {
	var where []string
	var args []any

	dataCriteria := map[string]any{}
	for field, value := range criteria {
		if !domain.IsValidField(field) {
			return nil, fmt.Errorf("%w: unknown field %q", domain.ErrInvalidInput, field)
		}
		if column, ok := columnFields[field]; ok {
			args = append(args, value)
			where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
			continue
		}
		dataCriteria[field] = value
	}
	if len(dataCriteria) > 0 {
		encoded, err := json.Marshal(dataCriteria)
		if err != nil {
			return nil, fmt.Errorf("encode criteria: %w", err)
		}
		args = append(args, encoded)
		where = append(where, fmt.Sprintf("data @> $%d::jsonb", len(args)))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`SELECT id, workspace_id, data, created_date, updated_date FROM %s`, s.table))
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	orderBy, err := orderClause(sort, &args)
	if err != nil {
		return nil, err
	}
	sb.WriteString(orderBy)

	if limit > 0 {
		args = append(args, limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []T
	for rows.Next() {
		entity, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, entity)
	}
	return result, rows.Err()
}

// List returns all entities in the collection
func (s *EntityStore[T]) List(ctx context.Context, sort domain.SortSpec, limit int) ([]T, error) {
	return s.Filter(ctx, nil, sort, limit)
}

func orderClause(sort domain.SortSpec, args *[]any) (string, error) {
	if sort.Field == "" {
		sort = domain.DefaultSort
	}
	if !domain.IsValidField(sort.Field) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidSort, sort.Field)
	}
	direction := "ASC"
	if sort.Descending {
		direction = "DESC"
	}
	if column, ok := columnFields[sort.Field]; ok {
		return fmt.Sprintf(" ORDER BY %s %s, id", column, direction), nil
	}
	*args = append(*args, sort.Field)
	if numericFields[sort.Field] {
		return fmt.Sprintf(" ORDER BY (data->>$%d)::numeric %s NULLS LAST, id", len(*args), direction), nil
	}
	return fmt.Sprintf(" ORDER BY data->>$%d %s NULLS LAST, id", len(*args), direction), nil
}

func (s *EntityStore[T]) scan(row pgx.Row) (T, error) {
	var zero T
	var (
		id, workspaceID      uuid.UUID
		data                 []byte
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &workspaceID, &data, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, s.notFound
		}
		return zero, err
	}

	entity := s.newEntity()
	if err := json.Unmarshal(data, entity); err != nil {
		return zero, fmt.Errorf("decode %s %s: %w", s.table, id, err)
	}
	rec := entity.Base()
	rec.ID = id
	rec.WorkspaceID = workspaceID
	rec.CreatedDate = createdAt
	rec.UpdatedDate = updatedAt
	return entity, nil
}
