package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/middleware"
	"github.com/dafibh/proflow/proflow-backend/internal/service"
	"github.com/dafibh/proflow/proflow-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// handlerEnv wires real services over in-memory stores behind the handlers
type handlerEnv struct {
	e        *echo.Echo
	stores   *testutil.MemoryStores
	fileRepo *testutil.MockFileRepository
	llm      *testutil.MockLLM

	projects    *service.ProjectService
	assignments *service.AssignmentService
	threads     *service.ThreadService
	documents   *service.DocumentService
	messages    *service.MessageService
	ai          *service.AIService

	session      *service.UserSession
	otherSession *service.UserSession
}

func newSession(email string) *service.UserSession {
	ws := &domain.Workspace{ID: uuid.New(), Name: "Workspace of " + email, OwnerEmail: email, Members: []string{email}}
	return &service.UserSession{
		Principal:  domain.Principal{Subject: "auth0|" + email, Email: email},
		User:       &domain.User{ID: uuid.New(), Email: email, FullName: "Test User"},
		Workspace:  ws,
		Workspaces: []*domain.Workspace{ws},
	}
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	e := echo.New()
	e.Validator = NewRequestValidator()

	env := &handlerEnv{
		e:            e,
		stores:       testutil.NewMemoryStores(),
		fileRepo:     testutil.NewMockFileRepository(),
		llm:          testutil.NewMockLLM("<p>Improved</p>"),
		session:      newSession("alice@example.com"),
		otherSession: newSession("bob@example.com"),
	}
	s := env.stores
	files := service.NewFileService(env.fileRepo)
	env.assignments = service.NewAssignmentService(s.Assignments, s.Projects)
	env.projects = service.NewProjectService(s.Projects)
	env.threads = service.NewThreadService(s.Threads, s.Assignments)
	env.documents = service.NewDocumentService(s.Documents, s.Projects, s.Assignments, files)
	env.messages = service.NewMessageService(s.Messages, s.Documents, env.threads, files)
	env.ai = service.NewAIService(env.llm, env.documents, decimal.RequireFromString("0.002"))
	return env
}

// call runs h against a request authenticated as session
func (env *handlerEnv) call(h echo.HandlerFunc, session *service.UserSession, method, target string, body interface{}, params ...string) *httptest.ResponseRecorder {
	return invoke(env.e, h, session, method, target, body, params...)
}

// invoke runs h with a JSON body. params are name/value pairs for path parameters.
func invoke(e *echo.Echo, h echo.HandlerFunc, session *service.UserSession, method, target string, body interface{}, params ...string) *httptest.ResponseRecorder {
	var data []byte
	if body != nil {
		data, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if session != nil {
		middleware.WithSession(c, session)
	}
	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)

	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) ProblemDetails {
	t.Helper()
	var problem ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("Failed to unmarshal problem: %v (body %s)", err, rec.Body.String())
	}
	return problem
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to unmarshal response: %v (body %s)", err, rec.Body.String())
	}
	return v
}
