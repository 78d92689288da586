package postgres

import (
	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Stores bundles one EntityStore per collection
type Stores struct {
	Projects    *EntityStore[*domain.Project]
	Assignments *EntityStore[*domain.Assignment]
	Documents   *EntityStore[*domain.Document]
	Tasks       *EntityStore[*domain.Task]
	Threads     *EntityStore[*domain.ConversationThread]
	Messages    *EntityStore[*domain.Message]
}

// NewStores creates the entity stores for every collection table
func NewStores(pool *pgxpool.Pool) *Stores {
	return &Stores{
		Projects: NewEntityStore(pool, domain.CollectionProjects,
			func() *domain.Project { return &domain.Project{} }, domain.ErrProjectNotFound),
		Assignments: NewEntityStore(pool, domain.CollectionAssignments,
			func() *domain.Assignment { return &domain.Assignment{} }, domain.ErrAssignmentNotFound),
		Documents: NewEntityStore(pool, domain.CollectionDocuments,
			func() *domain.Document { return &domain.Document{} }, domain.ErrDocumentNotFound),
		Tasks: NewEntityStore(pool, domain.CollectionTasks,
			func() *domain.Task { return &domain.Task{} }, domain.ErrTaskNotFound),
		Threads: NewEntityStore(pool, domain.CollectionThreads,
			func() *domain.ConversationThread { return &domain.ConversationThread{} }, domain.ErrThreadNotFound),
		Messages: NewEntityStore(pool, domain.CollectionMessages,
			func() *domain.Message { return &domain.Message{} }, domain.ErrMessageNotFound),
	}
}
