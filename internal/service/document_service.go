package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DocumentService handles documents, folders, versions and the trash
type DocumentService struct {
	eventPublishing
	documents   *ScopedStore[*domain.Document]
	projects    *ScopedStore[*domain.Project]
	assignments *ScopedStore[*domain.Assignment]
	files       *FileService
	now         func() time.Time
}

// NewDocumentService creates a new DocumentService. files may be nil when storage is not configured.
func NewDocumentService(
	documents domain.EntityStore[*domain.Document],
	projects domain.EntityStore[*domain.Project],
	assignments domain.EntityStore[*domain.Assignment],
	files *FileService,
) *DocumentService {
	return &DocumentService{
		documents:   NewScopedStore(documents, domain.CollectionDocuments),
		projects:    NewScopedStore(projects, domain.CollectionProjects),
		assignments: NewScopedStore(assignments, domain.CollectionAssignments),
		files:       files,
		now:         time.Now,
	}
}

// CreateDocumentInput contains input for creating a rich-text document
type CreateDocumentInput struct {
	Title                 string
	Content               string
	FolderPath            string
	DocumentType          string
	AssignedToProject     *uuid.UUID
	AssignedToAssignments []uuid.UUID
}

// CreateDocument creates a document at version 1
func (s *DocumentService) CreateDocument(ctx context.Context, scope domain.Scope, input CreateDocumentInput) (*domain.Document, error) {
	title, err := requiredText(input.Title, domain.MaxTitleLength, domain.ErrTitleRequired)
	if err != nil {
		return nil, err
	}
	folder, err := domain.NormalizeFolderPath(input.FolderPath)
	if err != nil {
		return nil, err
	}
	docType := strings.TrimSpace(input.DocumentType)
	if docType == domain.DocumentTypeFolder {
		return nil, domain.ErrDocumentIsFolder
	}
	if docType == "" {
		docType = "document"
	}
	if err := s.checkLinks(ctx, scope, input.AssignedToProject, input.AssignedToAssignments); err != nil {
		return nil, err
	}

	return s.create(ctx, scope, &domain.Document{
		Title:                 title,
		Content:               input.Content,
		FolderPath:            folder,
		DocumentType:          docType,
		AssignedToProject:     input.AssignedToProject,
		AssignedToAssignments: uniqueIDs(input.AssignedToAssignments),
	})
}

// UploadDocumentInput contains an uploaded file and where to file it
type UploadDocumentInput struct {
	FileName              string
	ContentType           string
	Data                  []byte
	Title                 string
	FolderPath            string
	AssignedToProject     *uuid.UUID
	AssignedToAssignments []uuid.UUID
}

// UploadDocument stores an uploaded file and creates its document
func (s *DocumentService) UploadDocument(ctx context.Context, scope domain.Scope, input UploadDocumentInput) (*domain.Document, error) {
	folder, err := domain.NormalizeFolderPath(input.FolderPath)
	if err != nil {
		return nil, err
	}
	if err := s.checkLinks(ctx, scope, input.AssignedToProject, input.AssignedToAssignments); err != nil {
		return nil, err
	}

	stored, err := s.files.Store(ctx, scope, FileKindDocuments, input.FileName, input.ContentType, input.Data)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = stored.FileName
	}
	title = truncateRunes(title, domain.MaxTitleLength)

	doc, err := s.create(ctx, scope, &domain.Document{
		Title:                 title,
		FolderPath:            folder,
		DocumentType:          DocumentTypeFor(stored.FileName),
		AssignedToProject:     input.AssignedToProject,
		AssignedToAssignments: uniqueIDs(input.AssignedToAssignments),
		FileURL:               stored.Path,
		FileName:              stored.FileName,
		FileType:              stored.ContentType,
		FileSize:              stored.Size,
		ThumbnailURL:          stored.ThumbnailPath,
	})
	if err != nil {
		s.files.Delete(context.WithoutCancel(ctx), stored.Path, stored.ThumbnailPath)
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) create(ctx context.Context, scope domain.Scope, doc *domain.Document) (*domain.Document, error) {
	doc.Version = 1
	doc.VersionHistory = []domain.DocumentVersion{}
	if doc.AssignedToAssignments == nil {
		doc.AssignedToAssignments = []uuid.UUID{}
	}
	created, err := s.documents.Create(ctx, scope, doc)
	if err != nil {
		return nil, err
	}
	s.publishEvent(scope.WorkspaceID, websocket.Created(websocket.EntityTypeDocument, created))
	return created, nil
}

// GetDocument retrieves a document of the active workspace
func (s *DocumentService) GetDocument(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.Document, error) {
	return s.documents.Get(ctx, scope, id)
}

// DocumentFilter narrows ListDocuments; zero fields are ignored
type DocumentFilter struct {
	FolderPath     *string
	ProjectID      *uuid.UUID
	AssignmentID   *uuid.UUID
	Starred        bool
	Outdated       *bool
	Trash          bool
	IncludeFolders bool
}

// ListDocuments lists documents; trashed documents are only listed with Trash set
func (s *DocumentService) ListDocuments(ctx context.Context, scope domain.Scope, filter DocumentFilter, opts ListOptions) ([]*domain.Document, error) {
	criteria := domain.Criteria{"is_deleted": filter.Trash}
	if filter.FolderPath != nil {
		folder, err := domain.NormalizeFolderPath(*filter.FolderPath)
		if err != nil {
			return nil, err
		}
		criteria["folder_path"] = folder
	}
	if filter.ProjectID != nil {
		criteria["assigned_to_project"] = *filter.ProjectID
	}
	if filter.AssignmentID != nil {
		criteria["assigned_to_assignments"] = []uuid.UUID{*filter.AssignmentID}
	}
	if filter.Starred {
		criteria["is_starred"] = true
	}
	if filter.Outdated != nil {
		criteria["is_outdated"] = *filter.Outdated
	}

	docs, err := s.documents.Filter(ctx, scope, criteria, opts.Sort, opts.Limit)
	if err != nil {
		return nil, err
	}
	if filter.IncludeFolders {
		return docs, nil
	}
	result := make([]*domain.Document, 0, len(docs))
	for _, d := range docs {
		if !d.IsFolder() {
			result = append(result, d)
		}
	}
	return result, nil
}

// ListFolders returns every folder path in use, including parents, sorted
func (s *DocumentService) ListFolders(ctx context.Context, scope domain.Scope) ([]string, error) {
	docs, err := s.documents.Filter(ctx, scope, domain.Criteria{"is_deleted": false}, domain.SortSpec{Field: "folder_path"}, 0)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for _, d := range docs {
		for p := d.FolderPath; p != "" && p != domain.RootFolder && !seen[p]; p = domain.ParentFolder(p) {
			seen[p] = true
		}
	}
	folders := make([]string, 0, len(seen))
	for p := range seen {
		folders = append(folders, p)
	}
	sort.Strings(folders)
	return folders, nil
}

// CreateFolder creates the placeholder document that represents an empty folder
func (s *DocumentService) CreateFolder(ctx context.Context, scope domain.Scope, parent, name string) (*domain.Document, error) {
	parent, err := domain.NormalizeFolderPath(parent)
	if err != nil {
		return nil, err
	}
	folderPath, err := domain.JoinFolder(parent, name)
	if err != nil {
		return nil, err
	}

	existing, err := s.documents.Filter(ctx, scope, domain.Criteria{
		"document_type": domain.DocumentTypeFolder,
		"folder_path":   folderPath,
		"is_deleted":    false,
	}, domain.SortSpec{}, 1)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, domain.ErrFolderExists
	}

	return s.create(ctx, scope, &domain.Document{
		Title:        strings.TrimSpace(name),
		FolderPath:   folderPath,
		DocumentType: domain.DocumentTypeFolder,
	})
}

// DeleteFolder removes a folder placeholder and moves everything inside it to the parent folder
func (s *DocumentService) DeleteFolder(ctx context.Context, scope domain.Scope, folderPath string) error {
	folderPath, err := domain.NormalizeFolderPath(folderPath)
	if err != nil {
		return err
	}
	if folderPath == domain.RootFolder {
		return domain.ErrInvalidFolderPath
	}
	parent := domain.ParentFolder(folderPath)

	docs, err := s.documents.List(ctx, scope, domain.SortSpec{}, 0)
	if err != nil {
		return err
	}
	for _, d := range docs {
		if !domain.InFolder(d.FolderPath, folderPath) {
			continue
		}
		if d.IsFolder() && d.FolderPath == folderPath {
			if err := s.documents.Delete(ctx, scope, d.ID); err != nil {
				return err
			}
			s.publishEvent(scope.WorkspaceID, websocket.Deleted(websocket.EntityTypeDocument, deletedPayload(d.ID)))
			continue
		}
		relocated := parent + strings.TrimPrefix(d.FolderPath, folderPath)
		if relocated, err = domain.NormalizeFolderPath(relocated); err != nil {
			return err
		}
		if _, err := s.update(ctx, scope, d.ID, domain.Patch{"folder_path": relocated}); err != nil {
			return err
		}
	}
	return nil
}

// UpdateDocumentInput contains input for editing a document; nil fields are unchanged
type UpdateDocumentInput struct {
	Title       *string
	Content     *string
	AIAnalysis  *string
	SaveVersion bool
	ChangeNotes string
}

// UpdateDocument edits title and content. With SaveVersion the prior content is
// kept in the version history and the version number is bumped.
func (s *DocumentService) UpdateDocument(ctx context.Context, scope domain.Scope, id uuid.UUID, input UpdateDocumentInput) (*domain.Document, error) {
	doc, err := s.editable(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	patch := domain.Patch{}
	if input.Content != nil {
		if input.SaveVersion {
			for k, v := range doc.VersionPatch(*input.Content, strings.TrimSpace(input.ChangeNotes), s.now().UTC()) {
				patch[k] = v
			}
		} else {
			patch["content"] = *input.Content
		}
	}
	if input.Title != nil {
		title, err := requiredText(*input.Title, domain.MaxTitleLength, domain.ErrTitleRequired)
		if err != nil {
			return nil, err
		}
		patch["title"] = title
	}
	if input.AIAnalysis != nil {
		patch["ai_analysis"] = *input.AIAnalysis
	}
	return s.update(ctx, scope, id, patch)
}

// ReviseContent replaces the content of doc, recording its prior state in the history
func (s *DocumentService) ReviseContent(ctx context.Context, scope domain.Scope, doc *domain.Document, content, changeNotes string) (*domain.Document, error) {
	if doc.IsFolder() {
		return nil, domain.ErrDocumentIsFolder
	}
	return s.update(ctx, scope, doc.ID, doc.VersionPatch(content, changeNotes, s.now().UTC()))
}

// MoveDocument moves a document to another folder
func (s *DocumentService) MoveDocument(ctx context.Context, scope domain.Scope, id uuid.UUID, folderPath string) (*domain.Document, error) {
	if _, err := s.editable(ctx, scope, id); err != nil {
		return nil, err
	}
	folder, err := domain.NormalizeFolderPath(folderPath)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, scope, id, domain.Patch{"folder_path": folder})
}

// DuplicateDocument copies a document, its links and file reference, starting a fresh history
func (s *DocumentService) DuplicateDocument(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.Document, error) {
	doc, err := s.editable(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	title := truncateRunes(doc.Title+" (copy)", domain.MaxTitleLength)
	return s.create(ctx, scope, &domain.Document{
		Title:                 title,
		Content:               doc.Content,
		FolderPath:            doc.FolderPath,
		DocumentType:          doc.DocumentType,
		AssignedToProject:     doc.AssignedToProject,
		AssignedToAssignments: doc.AssignedToAssignments,
		AIAnalysis:            doc.AIAnalysis,
		FileURL:               doc.FileURL,
		FileName:              doc.FileName,
		FileType:              doc.FileType,
		FileSize:              doc.FileSize,
		ThumbnailURL:          doc.ThumbnailURL,
	})
}

// ToggleStar flips the starred flag
func (s *DocumentService) ToggleStar(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.Document, error) {
	doc, err := s.documents.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, scope, id, domain.Patch{"is_starred": !doc.IsStarred})
}

// TrashDocument soft-deletes a document
func (s *DocumentService) TrashDocument(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.Document, error) {
	doc, err := s.documents.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if doc.IsDeleted {
		return doc, nil
	}
	return s.update(ctx, scope, id, domain.Patch{"is_deleted": true, "deleted_date": s.now().UTC()})
}

// RestoreDocument takes a document out of the trash
func (s *DocumentService) RestoreDocument(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.Document, error) {
	doc, err := s.documents.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if !doc.IsDeleted {
		return nil, domain.ErrNotInTrash
	}
	return s.update(ctx, scope, id, domain.Patch{"is_deleted": false, "deleted_date": nil})
}

// DeleteDocument permanently deletes a document, and its stored file when
// no other document still references it
func (s *DocumentService) DeleteDocument(ctx context.Context, scope domain.Scope, id uuid.UUID) error {
	doc, err := s.documents.Get(ctx, scope, id)
	if err != nil {
		return err
	}
	if err := s.documents.Delete(ctx, scope, id); err != nil {
		return err
	}
	s.releaseFile(ctx, scope, doc)
	s.publishEvent(scope.WorkspaceID, websocket.Deleted(websocket.EntityTypeDocument, deletedPayload(id)))
	return nil
}

// PurgeTrash permanently deletes documents that have been in the trash since before cutoff
func (s *DocumentService) PurgeTrash(ctx context.Context, scope domain.Scope, cutoff time.Time) (int, error) {
	trashed, err := s.documents.Filter(ctx, scope, domain.Criteria{"is_deleted": true}, domain.SortSpec{Field: "deleted_date"}, 0)
	if err != nil {
		return 0, err
	}
	purged := 0
	for _, doc := range trashed {
		if doc.DeletedDate == nil || !doc.DeletedDate.Before(cutoff) {
			continue
		}
		if err := s.DeleteDocument(ctx, scope, doc.ID); err != nil {
			return purged, err
		}
		purged++
	}
	return purged, nil
}

func (s *DocumentService) releaseFile(ctx context.Context, scope domain.Scope, doc *domain.Document) {
	if doc.FileURL == "" || !s.files.IsEnabled() {
		return
	}
	others, err := s.documents.Filter(ctx, scope, domain.Criteria{"file_url": doc.FileURL}, domain.SortSpec{}, 1)
	if err != nil {
		log.Warn().Err(err).Str("document_id", doc.ID.String()).Msg("Failed to check file references, keeping file")
		return
	}
	if len(others) > 0 {
		return
	}
	s.files.Delete(ctx, doc.FileURL, doc.ThumbnailURL)
}

// MarkOutdated moves a document to the outdated folder, remembering where it
// came from and optionally which document replaces it
func (s *DocumentService) MarkOutdated(ctx context.Context, scope domain.Scope, id uuid.UUID, replacedBy *uuid.UUID) (*domain.Document, error) {
	doc, err := s.editable(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if replacedBy != nil {
		if *replacedBy == id {
			return nil, domain.ErrSelfReplacement
		}
		if _, err := s.documents.Get(ctx, scope, *replacedBy); err != nil {
			return nil, err
		}
	}

	from := doc.FolderPath
	if doc.IsOutdated {
		from = doc.OutdatedFromFolder
	}
	patch := domain.Patch{
		"is_outdated":          true,
		"outdated_from_folder": from,
		"folder_path":          domain.OutdatedFolder,
	}
	if replacedBy != nil {
		patch["replaced_by"] = *replacedBy
	}
	return s.update(ctx, scope, id, patch)
}

// RestoreOutdated returns an outdated document to its original folder
func (s *DocumentService) RestoreOutdated(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.Document, error) {
	doc, err := s.editable(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if !doc.IsOutdated {
		return doc, nil
	}
	folder := doc.OutdatedFromFolder
	if folder == "" {
		folder = domain.RootFolder
	}
	return s.update(ctx, scope, id, domain.Patch{
		"is_outdated":          false,
		"outdated_from_folder": "",
		"folder_path":          folder,
		"replaced_by":          nil,
	})
}

// LinkDocumentInput sets the project and assignments a document is attached to
type LinkDocumentInput struct {
	ProjectID     *uuid.UUID
	ClearProject  bool
	AssignmentIDs []uuid.UUID
}

// LinkDocument attaches a document to a project and assignments of the same workspace
func (s *DocumentService) LinkDocument(ctx context.Context, scope domain.Scope, id uuid.UUID, input LinkDocumentInput) (*domain.Document, error) {
	if _, err := s.editable(ctx, scope, id); err != nil {
		return nil, err
	}
	if err := s.checkLinks(ctx, scope, input.ProjectID, input.AssignmentIDs); err != nil {
		return nil, err
	}

	patch := domain.Patch{}
	switch {
	case input.ClearProject:
		patch["assigned_to_project"] = nil
	case input.ProjectID != nil:
		patch["assigned_to_project"] = *input.ProjectID
	}
	if input.AssignmentIDs != nil {
		patch["assigned_to_assignments"] = uniqueIDs(input.AssignmentIDs)
	}
	return s.update(ctx, scope, id, patch)
}

// DocumentVersions is the current version and the recorded history of a document
type DocumentVersions struct {
	Current int                      `json:"current_version"`
	History []domain.DocumentVersion `json:"version_history"`
}

// ListVersions returns the version history, newest first
func (s *DocumentService) ListVersions(ctx context.Context, scope domain.Scope, id uuid.UUID) (*DocumentVersions, error) {
	doc, err := s.documents.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	history := make([]domain.DocumentVersion, len(doc.VersionHistory))
	copy(history, doc.VersionHistory)
	sort.SliceStable(history, func(i, j int) bool { return history[i].Version > history[j].Version })
	return &DocumentVersions{Current: doc.Version, History: history}, nil
}

// RestoreVersion makes an old version current again. The content being replaced
// is appended to the history first, so nothing is lost.
func (s *DocumentService) RestoreVersion(ctx context.Context, scope domain.Scope, id uuid.UUID, version int) (*domain.Document, error) {
	doc, err := s.editable(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	old, err := doc.FindVersion(version)
	if err != nil {
		return nil, err
	}
	return s.ReviseContent(ctx, scope, doc, old.Content, fmt.Sprintf("Restored version %d", version))
}

// FileURLs are short-lived links to a document's stored file
type FileURLs struct {
	FileURL      string `json:"file_url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
}

// DownloadURLs returns presigned links for an uploaded document
func (s *DocumentService) DownloadURLs(ctx context.Context, scope domain.Scope, id uuid.UUID) (*FileURLs, error) {
	doc, err := s.documents.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if doc.FileURL == "" {
		return nil, domain.ErrNotFound
	}
	urls := &FileURLs{ExpiresIn: int(FileURLExpiry.Seconds())}
	if urls.FileURL, err = s.files.URL(ctx, scope, doc.FileURL, doc.FileName); err != nil {
		return nil, err
	}
	if doc.ThumbnailURL != "" {
		if urls.ThumbnailURL, err = s.files.URL(ctx, scope, doc.ThumbnailURL, ""); err != nil {
			return nil, err
		}
	}
	return urls, nil
}

// editable loads a document that may be changed: not a folder and not in the trash
func (s *DocumentService) editable(ctx context.Context, scope domain.Scope, id uuid.UUID) (*domain.Document, error) {
	doc, err := s.documents.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if doc.IsFolder() {
		return nil, domain.ErrDocumentIsFolder
	}
	if doc.IsDeleted {
		return nil, domain.ErrDocumentDeleted
	}
	return doc, nil
}

func (s *DocumentService) update(ctx context.Context, scope domain.Scope, id uuid.UUID, patch domain.Patch) (*domain.Document, error) {
	doc, err := s.documents.Update(ctx, scope, id, patch)
	if err != nil {
		return nil, err
	}
	s.publishEvent(scope.WorkspaceID, websocket.Updated(websocket.EntityTypeDocument, doc))
	return doc, nil
}

func (s *DocumentService) checkLinks(ctx context.Context, scope domain.Scope, projectID *uuid.UUID, assignmentIDs []uuid.UUID) error {
	if projectID != nil {
		if _, err := s.projects.Get(ctx, scope, *projectID); err != nil {
			return err
		}
	}
	for _, id := range assignmentIDs {
		if _, err := s.assignments.Get(ctx, scope, id); err != nil {
			return err
		}
	}
	return nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
