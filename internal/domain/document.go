package domain

import (
	"errors"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrDocumentIsFolder  = errors.New("operation not supported on folders")
	ErrFolderExists      = errors.New("folder already exists")
	ErrInvalidFolderPath = errors.New("invalid folder path")
	ErrVersionNotFound   = errors.New("version not found")
	ErrDocumentDeleted   = errors.New("document is in the trash")
	ErrNotInTrash        = errors.New("document is not in the trash")
	ErrSelfReplacement   = errors.New("a document cannot replace itself")
)

// DocumentTypeFolder marks the synthetic documents that represent folders
const DocumentTypeFolder = "folder_placeholder"

// RootFolder is the folder path of documents not inside any folder
const RootFolder = "/"

// OutdatedFolder receives documents marked outdated
const OutdatedFolder = "/Outdated"

// DocumentVersion is one prior state kept in a document's history
type DocumentVersion struct {
	Version     int       `json:"version"`
	Content     string    `json:"content"`
	CreatedDate time.Time `json:"created_date"`
	ChangeNotes string    `json:"change_notes"`
}

// Document is a versioned rich-text or uploaded file inside a workspace
type Document struct {
	Record
	Title                 string            `json:"title"`
	Content               string            `json:"content"`
	FolderPath            string            `json:"folder_path"`
	DocumentType          string            `json:"document_type"`
	AssignedToProject     *uuid.UUID        `json:"assigned_to_project,omitempty"`
	AssignedToAssignments []uuid.UUID       `json:"assigned_to_assignments"`
	Version               int               `json:"version"`
	VersionHistory        []DocumentVersion `json:"version_history"`
	IsStarred             bool              `json:"is_starred"`
	IsDeleted             bool              `json:"is_deleted"`
	DeletedDate           *time.Time        `json:"deleted_date,omitempty"`
	IsOutdated            bool              `json:"is_outdated"`
	OutdatedFromFolder    string            `json:"outdated_from_folder,omitempty"`
	ReplacedBy            *uuid.UUID        `json:"replaced_by,omitempty"`
	AIAnalysis            string            `json:"ai_analysis,omitempty"`
	FileURL               string            `json:"file_url,omitempty"`
	FileName              string            `json:"file_name,omitempty"`
	FileType              string            `json:"file_type,omitempty"`
	FileSize              int64             `json:"file_size,omitempty"`
	ThumbnailURL          string            `json:"thumbnail_url,omitempty"`
}

// IsFolder reports whether the document is a folder placeholder
func (d *Document) IsFolder() bool {
	return d.DocumentType == DocumentTypeFolder
}

// VersionPatch builds the patch that replaces content while keeping the prior
// content and version in the history. Exactly one history entry is appended.
func (d *Document) VersionPatch(newContent, changeNotes string, now time.Time) Patch {
	current := d.Version
	if current < 1 {
		current = 1
	}
	history := make([]DocumentVersion, 0, len(d.VersionHistory)+1)
	history = append(history, d.VersionHistory...)
	history = append(history, DocumentVersion{
		Version:     current,
		Content:     d.Content,
		CreatedDate: now,
		ChangeNotes: changeNotes,
	})
	return Patch{
		"content":         newContent,
		"version":         current + 1,
		"version_history": history,
	}
}

// FindVersion returns the history entry for version
func (d *Document) FindVersion(version int) (*DocumentVersion, error) {
	for i := range d.VersionHistory {
		if d.VersionHistory[i].Version == version {
			return &d.VersionHistory[i], nil
		}
	}
	return nil, ErrVersionNotFound
}

// NormalizeFolderPath cleans a folder path into "/a/b" form. Empty means root.
func NormalizeFolderPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return RootFolder, nil
	}
	if strings.Contains(p, "\\") || strings.Contains(p, "..") {
		return "", ErrInvalidFolderPath
	}
	cleaned := path.Clean("/" + strings.Trim(p, "/"))
	if len(cleaned) > 1024 {
		return "", ErrInvalidFolderPath
	}
	return cleaned, nil
}

// ParentFolder returns the folder containing p; the root's parent is the root
func ParentFolder(p string) string {
	if p == RootFolder || p == "" {
		return RootFolder
	}
	return path.Dir(p)
}

// InFolder reports whether p is folder or lies somewhere beneath it
func InFolder(p, folder string) bool {
	if folder == RootFolder {
		return true
	}
	return p == folder || strings.HasPrefix(p, folder+"/")
}

// JoinFolder returns the path of child name inside parent
func JoinFolder(parent, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "/") {
		return "", ErrInvalidFolderPath
	}
	return NormalizeFolderPath(path.Join(parent, name))
}
