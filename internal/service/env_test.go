package service

import (
	"testing"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// serviceEnv wires every feature service over in-memory stores
type serviceEnv struct {
	stores      *testutil.MemoryStores
	fileRepo    *testutil.MockFileRepository
	llm         *testutil.MockLLM
	events      *testutil.MockEventPublisher
	files       *FileService
	projects    *ProjectService
	assignments *AssignmentService
	tasks       *TaskService
	threads     *ThreadService
	documents   *DocumentService
	messages    *MessageService
	ai          *AIService
	scope       domain.Scope
	otherScope  domain.Scope
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()
	env := &serviceEnv{
		stores:   testutil.NewMemoryStores(),
		fileRepo: testutil.NewMockFileRepository(),
		llm:      testutil.NewMockLLM("<p>Improved</p>"),
		events:   testutil.NewMockEventPublisher(),
		scope: domain.Scope{
			WorkspaceID: uuid.New(),
			ActorEmail:  "alice@example.com",
		},
		otherScope: domain.Scope{
			WorkspaceID: uuid.New(),
			ActorEmail:  "bob@example.com",
		},
	}
	s := env.stores
	env.files = NewFileService(env.fileRepo)
	env.projects = NewProjectService(s.Projects)
	env.assignments = NewAssignmentService(s.Assignments, s.Projects)
	env.tasks = NewTaskService(s.Tasks, s.Assignments)
	env.threads = NewThreadService(s.Threads, s.Assignments)
	env.documents = NewDocumentService(s.Documents, s.Projects, s.Assignments, env.files)
	env.messages = NewMessageService(s.Messages, s.Documents, env.threads, env.files)
	env.ai = NewAIService(env.llm, env.documents, decimal.RequireFromString("0.002"))

	env.projects.SetEventPublisher(env.events)
	env.assignments.SetEventPublisher(env.events)
	env.tasks.SetEventPublisher(env.events)
	env.threads.SetEventPublisher(env.events)
	env.documents.SetEventPublisher(env.events)
	env.messages.SetEventPublisher(env.events)
	return env
}
