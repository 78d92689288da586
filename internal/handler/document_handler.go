package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/middleware"
	"github.com/dafibh/proflow/proflow-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// DocumentHandler handles document, folder and version HTTP requests
type DocumentHandler struct {
	documentService *service.DocumentService
	now             func() time.Time
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(documentService *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService, now: time.Now}
}

// CreateDocumentRequest represents the create document request body
type CreateDocumentRequest struct {
	Title                 string      `json:"title" validate:"required,max=500"`
	Content               string      `json:"content"`
	FolderPath            string      `json:"folder_path"`
	DocumentType          string      `json:"document_type"`
	AssignedToProject     *uuid.UUID  `json:"assigned_to_project"`
	AssignedToAssignments []uuid.UUID `json:"assigned_to_assignments"`
}

// UpdateDocumentRequest represents the update document request body; omitted fields are unchanged
type UpdateDocumentRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=500"`
	Content     *string `json:"content"`
	AIAnalysis  *string `json:"ai_analysis"`
	SaveVersion bool    `json:"save_version"`
	ChangeNotes string  `json:"change_notes" validate:"max=500"`
}

// CreateFolderRequest represents the create folder request body
type CreateFolderRequest struct {
	Parent string `json:"parent"`
	Name   string `json:"name" validate:"required,max=255"`
}

// MoveDocumentRequest represents the move request body
type MoveDocumentRequest struct {
	FolderPath string `json:"folder_path" validate:"required"`
}

// OutdateDocumentRequest represents the mark outdated request body
type OutdateDocumentRequest struct {
	ReplacedBy *uuid.UUID `json:"replaced_by"`
}

// LinkDocumentRequest represents the link request body
type LinkDocumentRequest struct {
	ProjectID     *uuid.UUID  `json:"project_id"`
	ClearProject  bool        `json:"clear_project"`
	AssignmentIDs []uuid.UUID `json:"assignment_ids"`
}

// PurgeTrashResponse reports how many trashed documents were deleted
type PurgeTrashResponse struct {
	Purged int `json:"purged"`
}

// CreateDocument godoc
// @Summary Create a document
// @Description Create a rich-text document at version 1
// @Tags documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateDocumentRequest true "Document"
// @Success 201 {object} domain.Document
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Router /documents [post]
func (h *DocumentHandler) CreateDocument(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req CreateDocumentRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	doc, err := h.documentService.CreateDocument(c.Request().Context(), scope, service.CreateDocumentInput{
		Title:                 req.Title,
		Content:               req.Content,
		FolderPath:            req.FolderPath,
		DocumentType:          req.DocumentType,
		AssignedToProject:     req.AssignedToProject,
		AssignedToAssignments: req.AssignedToAssignments,
	})
	if err != nil {
		return respondError(c, err, "Failed to create document")
	}

	log.Info().Str("workspace_id", scope.WorkspaceID.String()).Str("document_id", doc.ID.String()).Msg("Document created")

	return c.JSON(http.StatusCreated, doc)
}

// UploadDocument godoc
// @Summary Upload a file as a document
// @Tags documents
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param file formData file true "File"
// @Param title formData string false "Title, defaults to the file name"
// @Param folder_path formData string false "Folder path"
// @Param assigned_to_project formData string false "Project ID"
// @Param assigned_to_assignments formData []string false "Assignment IDs"
// @Success 201 {object} domain.Document
// @Failure 400 {object} ProblemDetails
// @Failure 503 {object} ProblemDetails
// @Router /documents/upload [post]
func (h *DocumentHandler) UploadDocument(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}

	file, ok, err := readUpload(c, "file", true)
	if !ok {
		return err
	}

	input := service.UploadDocumentInput{
		FileName:    file.Name,
		ContentType: file.ContentType,
		Data:        file.Data,
		Title:       c.FormValue("title"),
		FolderPath:  c.FormValue("folder_path"),
	}
	if raw := c.FormValue("assigned_to_project"); raw != "" {
		projectID, err := uuid.Parse(raw)
		if err != nil {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "assigned_to_project", Message: "Must be a valid ID"},
			})
		}
		input.AssignedToProject = &projectID
	}
	if form, err := c.MultipartForm(); err == nil {
		ids, err := parseIDs(form.Value["assigned_to_assignments"])
		if err != nil {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "assigned_to_assignments", Message: "Must be valid IDs"},
			})
		}
		input.AssignedToAssignments = ids
	}

	doc, err := h.documentService.UploadDocument(c.Request().Context(), scope, input)
	if err != nil {
		return respondError(c, err, "Failed to upload document")
	}

	log.Info().
		Str("workspace_id", scope.WorkspaceID.String()).
		Str("document_id", doc.ID.String()).
		Int64("size", doc.FileSize).
		Msg("Document uploaded")

	return c.JSON(http.StatusCreated, doc)
}

// ListDocuments godoc
// @Summary List documents
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param folder query string false "Folder path"
// @Param project_id query string false "Filter by project"
// @Param assignment_id query string false "Filter by assignment"
// @Param starred query bool false "Only starred documents"
// @Param outdated query bool false "Filter by outdated flag"
// @Param trash query bool false "List the trash instead"
// @Param include_folders query bool false "Include folder placeholders"
// @Param sort query string false "Sort field, prefix with - for descending"
// @Param limit query int false "Maximum number of results"
// @Success 200 {array} domain.Document
// @Failure 400 {object} ProblemDetails
// @Router /documents [get]
func (h *DocumentHandler) ListDocuments(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}

	opts, errs := listOptions(c)
	filter := service.DocumentFilter{
		Starred:        c.QueryParam("starred") == "true",
		Trash:          c.QueryParam("trash") == "true",
		IncludeFolders: c.QueryParam("include_folders") == "true",
	}
	if folder := c.QueryParam("folder"); folder != "" {
		filter.FolderPath = &folder
	}
	if raw := c.QueryParam("outdated"); raw != "" {
		outdated, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, ValidationError{Field: "outdated", Message: "Must be true or false"})
		}
		filter.Outdated = &outdated
	}
	var err error
	if filter.ProjectID, err = queryID(c, "project_id"); err != nil {
		errs = append(errs, ValidationError{Field: "project_id", Message: "Must be a valid ID"})
	}
	if filter.AssignmentID, err = queryID(c, "assignment_id"); err != nil {
		errs = append(errs, ValidationError{Field: "assignment_id", Message: "Must be a valid ID"})
	}
	if len(errs) > 0 {
		return NewValidationError(c, "Invalid query parameters", errs)
	}

	docs, err := h.documentService.ListDocuments(c.Request().Context(), scope, filter, opts)
	if err != nil {
		return respondError(c, err, "Failed to list documents")
	}
	return c.JSON(http.StatusOK, docs)
}

// GetDocument handles GET /documents/:id
func (h *DocumentHandler) GetDocument(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	doc, err := h.documentService.GetDocument(c.Request().Context(), scope, id)
	if err != nil {
		return respondError(c, err, "Failed to get document")
	}
	return c.JSON(http.StatusOK, doc)
}

// UpdateDocument godoc
// @Summary Edit a document
// @Description With save_version the prior content is kept in the version history
// @Tags documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Param request body UpdateDocumentRequest true "Fields to change"
// @Success 200 {object} domain.Document
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /documents/{id} [put]
func (h *DocumentHandler) UpdateDocument(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	var req UpdateDocumentRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	doc, err := h.documentService.UpdateDocument(c.Request().Context(), scope, id, service.UpdateDocumentInput{
		Title:       req.Title,
		Content:     req.Content,
		AIAnalysis:  req.AIAnalysis,
		SaveVersion: req.SaveVersion,
		ChangeNotes: req.ChangeNotes,
	})
	if err != nil {
		return respondError(c, err, "Failed to update document")
	}
	return c.JSON(http.StatusOK, doc)
}

// DeleteDocument handles DELETE /documents/:id. Documents go to the trash
// unless ?permanent=true is given.
func (h *DocumentHandler) DeleteDocument(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	if c.QueryParam("permanent") == "true" {
		if err := h.documentService.DeleteDocument(c.Request().Context(), scope, id); err != nil {
			return respondError(c, err, "Failed to delete document")
		}
		log.Info().Str("workspace_id", scope.WorkspaceID.String()).Str("document_id", id.String()).Msg("Document permanently deleted")
		return c.NoContent(http.StatusNoContent)
	}

	doc, err := h.documentService.TrashDocument(c.Request().Context(), scope, id)
	if err != nil {
		return respondError(c, err, "Failed to move document to trash")
	}
	return c.JSON(http.StatusOK, doc)
}

// RestoreDocument handles POST /documents/:id/restore
func (h *DocumentHandler) RestoreDocument(c echo.Context) error {
	return h.documentAction(c, "Failed to restore document", h.documentService.RestoreDocument)
}

// ToggleStar handles POST /documents/:id/star
func (h *DocumentHandler) ToggleStar(c echo.Context) error {
	return h.documentAction(c, "Failed to toggle star", h.documentService.ToggleStar)
}

// RestoreOutdated handles POST /documents/:id/restore-outdated
func (h *DocumentHandler) RestoreOutdated(c echo.Context) error {
	return h.documentAction(c, "Failed to restore outdated document", h.documentService.RestoreOutdated)
}

// DuplicateDocument handles POST /documents/:id/duplicate
func (h *DocumentHandler) DuplicateDocument(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	doc, err := h.documentService.DuplicateDocument(c.Request().Context(), scope, id)
	if err != nil {
		return respondError(c, err, "Failed to duplicate document")
	}
	return c.JSON(http.StatusCreated, doc)
}

func (h *DocumentHandler) documentAction(c echo.Context, action string, fn func(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.Document, error)) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	doc, err := fn(c.Request().Context(), scope, id)
	if err != nil {
		return respondError(c, err, action)
	}
	return c.JSON(http.StatusOK, doc)
}

// MoveDocument handles POST /documents/:id/move
func (h *DocumentHandler) MoveDocument(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	var req MoveDocumentRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	doc, err := h.documentService.MoveDocument(c.Request().Context(), scope, id, req.FolderPath)
	if err != nil {
		return respondError(c, err, "Failed to move document")
	}
	return c.JSON(http.StatusOK, doc)
}

// OutdateDocument handles POST /documents/:id/outdate
func (h *DocumentHandler) OutdateDocument(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	var req OutdateDocumentRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return NewValidationError(c, "Invalid request body", nil)
		}
	}

	doc, err := h.documentService.MarkOutdated(c.Request().Context(), scope, id, req.ReplacedBy)
	if err != nil {
		return respondError(c, err, "Failed to mark document outdated")
	}
	return c.JSON(http.StatusOK, doc)
}

// LinkDocument handles POST /documents/:id/link
func (h *DocumentHandler) LinkDocument(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	var req LinkDocumentRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	doc, err := h.documentService.LinkDocument(c.Request().Context(), scope, id, service.LinkDocumentInput{
		ProjectID:     req.ProjectID,
		ClearProject:  req.ClearProject,
		AssignmentIDs: req.AssignmentIDs,
	})
	if err != nil {
		return respondError(c, err, "Failed to link document")
	}
	return c.JSON(http.StatusOK, doc)
}

// ListVersions handles GET /documents/:id/versions
func (h *DocumentHandler) ListVersions(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	versions, err := h.documentService.ListVersions(c.Request().Context(), scope, id)
	if err != nil {
		return respondError(c, err, "Failed to list versions")
	}
	return c.JSON(http.StatusOK, versions)
}

// RestoreVersion handles POST /documents/:id/versions/:version/restore
func (h *DocumentHandler) RestoreVersion(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil || version < 1 {
		return NewValidationError(c, "Invalid version", []ValidationError{
			{Field: "version", Message: "Must be a positive number"},
		})
	}

	doc, err := h.documentService.RestoreVersion(c.Request().Context(), scope, id, version)
	if err != nil {
		return respondError(c, err, "Failed to restore version")
	}
	return c.JSON(http.StatusOK, doc)
}

// DownloadURLs handles GET /documents/:id/download
func (h *DocumentHandler) DownloadURLs(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	urls, err := h.documentService.DownloadURLs(c.Request().Context(), scope, id)
	if err != nil {
		return respondError(c, err, "Failed to generate download links")
	}
	return c.JSON(http.StatusOK, urls)
}

// ListFolders handles GET /documents/folders
func (h *DocumentHandler) ListFolders(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}

	folders, err := h.documentService.ListFolders(c.Request().Context(), scope)
	if err != nil {
		return respondError(c, err, "Failed to list folders")
	}
	return c.JSON(http.StatusOK, folders)
}

// CreateFolder handles POST /documents/folders
func (h *DocumentHandler) CreateFolder(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req CreateFolderRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	parent := req.Parent
	if parent == "" {
		parent = domain.RootFolder
	}

	folder, err := h.documentService.CreateFolder(c.Request().Context(), scope, parent, req.Name)
	if err != nil {
		return respondError(c, err, "Failed to create folder")
	}
	return c.JSON(http.StatusCreated, folder)
}

// DeleteFolder handles DELETE /documents/folders?path=/Specs. Contents move to the parent folder.
func (h *DocumentHandler) DeleteFolder(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}

	path := c.QueryParam("path")
	if path == "" {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "path", Message: "Folder path is required"},
		})
	}
	if err := h.documentService.DeleteFolder(c.Request().Context(), scope, path); err != nil {
		return respondError(c, err, "Failed to delete folder")
	}
	return c.NoContent(http.StatusNoContent)
}

// EmptyTrash handles DELETE /documents/trash, permanently deleting everything in the trash
func (h *DocumentHandler) EmptyTrash(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}

	purged, err := h.documentService.PurgeTrash(c.Request().Context(), scope, h.now().UTC().Add(time.Second))
	if err != nil {
		return respondError(c, err, "Failed to empty trash")
	}

	log.Info().Str("workspace_id", scope.WorkspaceID.String()).Int("purged", purged).Msg("Trash emptied")

	return c.JSON(http.StatusOK, PurgeTrashResponse{Purged: purged})
}
