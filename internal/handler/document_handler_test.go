package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/middleware"
	"github.com/dafibh/proflow/proflow-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadRequest(t *testing.T, env *handlerEnv, h echo.HandlerFunc, fields map[string]string, fileName string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	middleware.WithSession(c, env.session)
	if err := h(c); err != nil {
		env.e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestCreateDocument(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewDocumentHandler(env.documents)

	rec := env.call(h.CreateDocument, env.session, http.MethodPost, "/api/v1/documents", CreateDocumentRequest{
		Title:      "Spec",
		Content:    "<p>v1</p>",
		FolderPath: "/Specs",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	doc := decodeBody[domain.Document](t, rec)
	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, "/Specs", doc.FolderPath)
	assert.Empty(t, doc.VersionHistory)
}

func TestCreateDocument_ForeignProjectLink(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewDocumentHandler(env.documents)

	theirs, err := env.projects.CreateProject(context.Background(), env.otherSession.Scope(), service.CreateProjectInput{Name: "Theirs"})
	require.NoError(t, err)

	rec := env.call(h.CreateDocument, env.session, http.MethodPost, "/api/v1/documents", CreateDocumentRequest{
		Title:             "Spec",
		AssignedToProject: &theirs.ID,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, env.stores.Documents.Len())
}

func TestUploadDocument(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewDocumentHandler(env.documents)

	rec := uploadRequest(t, env, h.UploadDocument, map[string]string{"folder_path": "/Contracts"}, "nda.pdf", []byte("%PDF-1.4"))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	doc := decodeBody[domain.Document](t, rec)
	assert.Equal(t, "nda.pdf", doc.Title)
	assert.Equal(t, "/Contracts", doc.FolderPath)
	assert.Equal(t, int64(8), doc.FileSize)
	assert.True(t, env.fileRepo.Has(doc.FileURL))

	// the stored path is only reachable through short-lived links
	rec = env.call(h.DownloadURLs, env.session, http.MethodGet, "/api/v1/documents/x/download", nil, "id", doc.ID.String())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	urls := decodeBody[service.FileURLs](t, rec)
	assert.NotEmpty(t, urls.FileURL)
	assert.Equal(t, int(service.FileURLExpiry.Seconds()), urls.ExpiresIn)
}

func TestUploadDocument_MissingFile(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewDocumentHandler(env.documents)

	rec := uploadRequest(t, env, h.UploadDocument, map[string]string{"title": "x"}, "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decodeProblem(t, rec)
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "file", problem.Errors[0].Field)
}

func TestUploadDocument_StorageDisabled(t *testing.T) {
	env := newHandlerEnv(t)
	s := env.stores
	documents := service.NewDocumentService(s.Documents, s.Projects, s.Assignments, service.NewFileService(nil))
	h := NewDocumentHandler(documents)

	rec := uploadRequest(t, env, h.UploadDocument, nil, "nda.pdf", []byte("%PDF-1.4"))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, 0, s.Documents.Len())
}

func TestDeleteDocument_TrashThenEmpty(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewDocumentHandler(env.documents)
	ctx := context.Background()

	doc, err := env.documents.CreateDocument(ctx, env.session.Scope(), service.CreateDocumentInput{Title: "Old"})
	require.NoError(t, err)
	_, err = env.documents.CreateDocument(ctx, env.session.Scope(), service.CreateDocumentInput{Title: "Keep"})
	require.NoError(t, err)

	rec := env.call(h.DeleteDocument, env.session, http.MethodDelete, "/api/v1/documents/x", nil, "id", doc.ID.String())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	trashed := decodeBody[domain.Document](t, rec)
	assert.True(t, trashed.IsDeleted)
	assert.NotNil(t, trashed.DeletedDate)

	rec = env.call(h.EmptyTrash, env.session, http.MethodDelete, "/api/v1/documents/trash", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decodeBody[PurgeTrashResponse](t, rec).Purged)
	assert.Equal(t, 1, env.stores.Documents.Len())
}

func TestFolders(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewDocumentHandler(env.documents)

	rec := env.call(h.CreateFolder, env.session, http.MethodPost, "/api/v1/documents/folders", CreateFolderRequest{Name: "Specs"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.call(h.CreateFolder, env.session, http.MethodPost, "/api/v1/documents/folders", CreateFolderRequest{Name: "Specs"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.call(h.ListFolders, env.session, http.MethodGet, "/api/v1/documents/folders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"/Specs"}, decodeBody[[]string](t, rec))

	rec = env.call(h.DeleteFolder, env.session, http.MethodDelete, "/api/v1/documents/folders", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.call(h.DeleteFolder, env.session, http.MethodDelete, "/api/v1/documents/folders?path=/Specs", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGetDocument_CrossWorkspace(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewDocumentHandler(env.documents)

	foreign, err := env.documents.CreateDocument(context.Background(), env.otherSession.Scope(), service.CreateDocumentInput{Title: "Secret"})
	require.NoError(t, err)

	for name, fn := range map[string]echo.HandlerFunc{
		"get":    h.GetDocument,
		"star":   h.ToggleStar,
		"delete": h.DeleteDocument,
	} {
		t.Run(name, func(t *testing.T) {
			rec := env.call(fn, env.session, http.MethodPost, "/api/v1/documents/x", nil, "id", foreign.ID.String())
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}

	stored, err := env.documents.GetDocument(context.Background(), env.otherSession.Scope(), foreign.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsStarred)
	assert.False(t, stored.IsDeleted)
}
