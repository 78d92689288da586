package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/google/uuid"
)

// MemoryEntityStore is an in-memory domain.EntityStore[T] that behaves like the
// JSONB-backed store: shallow patch merge, containment filters and text ordering
// of data fields.
type MemoryEntityStore[T domain.Entity] struct {
	mu        sync.Mutex
	docs      map[uuid.UUID]map[string]any
	newEntity func() T
	notFound  error
	last      time.Time

	// Calls records every operation in order, e.g. "get", "update", "delete"
	Calls []string
	// Filters records the criteria of every Filter call
	Filters   []domain.Criteria
	CreateErr error
	UpdateErr error
	DeleteErr error
}

// NewMemoryEntityStore creates an empty store
func NewMemoryEntityStore[T domain.Entity](newEntity func() T, notFound error) *MemoryEntityStore[T] {
	return &MemoryEntityStore[T]{
		docs:      make(map[uuid.UUID]map[string]any),
		newEntity: newEntity,
		notFound:  notFound,
	}
}

// Put stores entity exactly as given, bypassing any scoping (helper for tests)
func (s *MemoryEntityStore[T]) Put(entity T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := entity.Base()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedDate.IsZero() {
		rec.CreatedDate = s.now()
		rec.UpdatedDate = rec.CreatedDate
	}
	s.docs[rec.ID] = toDoc(entity)
	return entity
}

// Len returns the number of stored entities
func (s *MemoryEntityStore[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// Mutations counts create, update and delete calls
func (s *MemoryEntityStore[T]) Mutations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.Calls {
		if c == "create" || c == "update" || c == "delete" {
			n++
		}
	}
	return n
}

// now returns a strictly increasing clock so ordering by date is deterministic
func (s *MemoryEntityStore[T]) now() time.Time {
	now := time.Now().UTC().Truncate(time.Microsecond)
	if !now.After(s.last) {
		now = s.last.Add(time.Microsecond)
	}
	s.last = now
	return now
}

func (s *MemoryEntityStore[T]) Create(ctx context.Context, entity T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	s.Calls = append(s.Calls, "create")
	if s.CreateErr != nil {
		return zero, s.CreateErr
	}
	rec := entity.Base()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if _, exists := s.docs[rec.ID]; exists {
		return zero, domain.ErrAlreadyExists
	}
	now := s.now()
	rec.CreatedDate = now
	rec.UpdatedDate = now
	s.docs[rec.ID] = toDoc(entity)
	return s.decode(s.docs[rec.ID])
}

func (s *MemoryEntityStore[T]) Update(ctx context.Context, id uuid.UUID, patch domain.Patch) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	s.Calls = append(s.Calls, "update")
	if s.UpdateErr != nil {
		return zero, s.UpdateErr
	}
	if err := patch.Validate(); err != nil {
		return zero, err
	}
	doc, ok := s.docs[id]
	if !ok {
		return zero, s.notFound
	}
	merged := make(map[string]any, len(doc)+len(patch))
	for k, v := range doc {
		merged[k] = v
	}
	for k, v := range toDoc(map[string]any(patch)) {
		merged[k] = v
	}
	merged["updated_date"] = s.now().Format(time.RFC3339Nano)
	s.docs[id] = merged
	return s.decode(merged)
}

func (s *MemoryEntityStore[T]) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, "delete")
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	if _, ok := s.docs[id]; !ok {
		return s.notFound
	}
	delete(s.docs, id)
	return nil
}

func (s *MemoryEntityStore[T]) Get(ctx context.Context, id uuid.UUID) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	s.Calls = append(s.Calls, "get")
	doc, ok := s.docs[id]
	if !ok {
		return zero, s.notFound
	}
	return s.decode(doc)
}

func (s *MemoryEntityStore[T]) Filter(ctx context.Context, criteria domain.Criteria, sortSpec domain.SortSpec, limit int) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, "filter")
	copied := make(domain.Criteria, len(criteria))
	for k, v := range criteria {
		if !domain.IsValidField(k) {
			return nil, fmt.Errorf("%w: unknown field %q", domain.ErrInvalidInput, k)
		}
		copied[k] = v
	}
	s.Filters = append(s.Filters, copied)

	if sortSpec.Field == "" {
		sortSpec = domain.DefaultSort
	}
	if !domain.IsValidField(sortSpec.Field) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidSort, sortSpec.Field)
	}

	want := toDoc(map[string]any(criteria))
	var matched []map[string]any
	for _, doc := range s.docs {
		if jsonContains(doc, want) {
			matched = append(matched, doc)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return lessDocs(matched[i], matched[j], sortSpec)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	result := make([]T, 0, len(matched))
	for _, doc := range matched {
		entity, err := s.decode(doc)
		if err != nil {
			return nil, err
		}
		result = append(result, entity)
	}
	return result, nil
}

func (s *MemoryEntityStore[T]) List(ctx context.Context, sortSpec domain.SortSpec, limit int) ([]T, error) {
	return s.Filter(ctx, nil, sortSpec, limit)
}

func (s *MemoryEntityStore[T]) decode(doc map[string]any) (T, error) {
	var zero T
	raw, err := json.Marshal(doc)
	if err != nil {
		return zero, err
	}
	entity := s.newEntity()
	if err := json.Unmarshal(raw, entity); err != nil {
		return zero, err
	}
	return entity, nil
}

func toDoc(v any) map[string]any {
	doc, _ := normalize(v).(map[string]any)
	if doc == nil {
		doc = map[string]any{}
	}
	return doc
}

// normalize round-trips v through JSON so values compare like stored JSONB
func normalize(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	if _, isMap := v.(map[string]any); isMap && out == nil {
		return map[string]any{}
	}
	return out
}

// jsonContains mirrors Postgres "@>": objects match key by key, arrays match
// when every wanted element is contained in some element, scalars by equality.
func jsonContains(have, want any) bool {
	switch w := want.(type) {
	case map[string]any:
		h, ok := have.(map[string]any)
		if !ok {
			return false
		}
		for k, wv := range w {
			hv, ok := h[k]
			if !ok || !jsonContains(hv, wv) {
				return false
			}
		}
		return true
	case []any:
		h, ok := have.([]any)
		if !ok {
			return false
		}
		for _, wv := range w {
			found := false
			for _, hv := range h {
				if jsonContains(hv, wv) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	default:
		return have == want
	}
}

func lessDocs(a, b map[string]any, spec domain.SortSpec) bool {
	av, aok := sortKey(a, spec.Field)
	bv, bok := sortKey(b, spec.Field)
	switch {
	case aok && !bok:
		return true
	case !aok && bok:
		return false
	case aok && bok && av != bv:
		if spec.Descending {
			return av > bv
		}
		return av < bv
	}
	return fmt.Sprint(a["id"]) < fmt.Sprint(b["id"])
}

// sortKey renders a field the way "data->>field" does; record dates are
// re-formatted so they order chronologically.
func sortKey(doc map[string]any, field string) (string, bool) {
	v, ok := doc[field]
	if !ok || v == nil {
		return "", false
	}
	if field == "created_date" || field == "updated_date" {
		if s, isString := v.(string); isString {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return t.UTC().Format("2006-01-02T15:04:05.000000000"), true
			}
		}
	}
	switch tv := v.(type) {
	case string:
		return tv, true
	case map[string]any, []any:
		raw, _ := json.Marshal(tv)
		return string(raw), true
	default:
		return fmt.Sprint(tv), true
	}
}

// MemoryStores bundles one in-memory store per collection
type MemoryStores struct {
	Projects    *MemoryEntityStore[*domain.Project]
	Assignments *MemoryEntityStore[*domain.Assignment]
	Documents   *MemoryEntityStore[*domain.Document]
	Tasks       *MemoryEntityStore[*domain.Task]
	Threads     *MemoryEntityStore[*domain.ConversationThread]
	Messages    *MemoryEntityStore[*domain.Message]
}

// NewMemoryStores creates empty stores for every collection
func NewMemoryStores() *MemoryStores {
	return &MemoryStores{
		Projects: NewMemoryEntityStore(
			func() *domain.Project { return &domain.Project{} }, domain.ErrProjectNotFound),
		Assignments: NewMemoryEntityStore(
			func() *domain.Assignment { return &domain.Assignment{} }, domain.ErrAssignmentNotFound),
		Documents: NewMemoryEntityStore(
			func() *domain.Document { return &domain.Document{} }, domain.ErrDocumentNotFound),
		Tasks: NewMemoryEntityStore(
			func() *domain.Task { return &domain.Task{} }, domain.ErrTaskNotFound),
		Threads: NewMemoryEntityStore(
			func() *domain.ConversationThread { return &domain.ConversationThread{} }, domain.ErrThreadNotFound),
		Messages: NewMemoryEntityStore(
			func() *domain.Message { return &domain.Message{} }, domain.ErrMessageNotFound),
	}
}
