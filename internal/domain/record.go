package domain

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record holds the fields every workspace-owned entity carries
type Record struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	CreatedDate time.Time `json:"created_date"`
	UpdatedDate time.Time `json:"updated_date"`
}

// Base returns the record itself so entities embedding Record satisfy Entity
func (r *Record) Base() *Record {
	return r
}

// Entity is implemented by every collection type through an embedded Record
type Entity interface {
	Base() *Record
}

// Collection names
const (
	CollectionProjects    = "projects"
	CollectionAssignments = "assignments"
	CollectionDocuments   = "documents"
	CollectionTasks       = "tasks"
	CollectionThreads     = "conversation_threads"
	CollectionMessages    = "messages"
)

// EntityRef points at a single entity in a collection
type EntityRef struct {
	Collection string    `json:"collection"`
	ID         uuid.UUID `json:"id"`
}

// Criteria is a flat equality map applied to entity fields
type Criteria map[string]any

// Patch is a partial update applied to entity fields
type Patch map[string]any

// reserved fields cannot be written through a Patch
var reservedFields = map[string]bool{
	"id":           true,
	"workspace_id": true,
	"created_date": true,
	"updated_date": true,
}

// Validate rejects patches that try to rewrite identity or ownership fields
func (p Patch) Validate() error {
	for key := range p {
		if reservedFields[key] {
			return fmt.Errorf("%w: %s", ErrImmutableField, key)
		}
	}
	return nil
}

var fieldPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidField reports whether name is a safe entity field identifier
func IsValidField(name string) bool {
	return fieldPattern.MatchString(name)
}

// SortSpec orders filter results, parsed from strings like "-updated_date"
type SortSpec struct {
	Field      string
	Descending bool
}

// DefaultSort is newest-updated first
var DefaultSort = SortSpec{Field: "updated_date", Descending: true}

// ParseSort parses a sort string. An empty string yields DefaultSort.
func ParseSort(s string) (SortSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultSort, nil
	}
	spec := SortSpec{Field: s}
	if strings.HasPrefix(s, "-") {
		spec.Field = s[1:]
		spec.Descending = true
	}
	if !IsValidField(spec.Field) {
		return SortSpec{}, fmt.Errorf("%w: %q", ErrInvalidSort, s)
	}
	return spec, nil
}

// String renders the spec back into its wire form
func (s SortSpec) String() string {
	if s.Descending {
		return "-" + s.Field
	}
	return s.Field
}

// EntityStore is the raw per-collection contract of the backing entity store.
// It does not scope anything by workspace; see service.ScopedStore for that.
type EntityStore[T Entity] interface {
	Create(ctx context.Context, entity T) (T, error)
	Update(ctx context.Context, id uuid.UUID, patch Patch) (T, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (T, error)
	Filter(ctx context.Context, criteria Criteria, sort SortSpec, limit int) ([]T, error)
	List(ctx context.Context, sort SortSpec, limit int) ([]T, error)
}

// Scope identifies the caller's active workspace for one request.
// Every scoped read or write takes a Scope, so an unscoped query does not compile.
type Scope struct {
	WorkspaceID uuid.UUID
	ActorEmail  string
}

// IsZero reports whether the scope is unset
func (s Scope) IsZero() bool {
	return s.WorkspaceID == uuid.Nil
}
