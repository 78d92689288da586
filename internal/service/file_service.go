package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/repository/storage"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	MaxFileSize     = 25 * 1024 * 1024 // 25MB
	MaxThumbnailSrc = 10 * 1024 * 1024
	ThumbnailWidth  = 200
	JPEGQuality     = 85
	FileURLExpiry   = 15 * time.Minute
)

// Storage kinds used in object paths
const (
	FileKindDocuments = "documents"
	FileKindMessages  = "messages"
)

var (
	ErrFileTooLarge             = errors.New("file too large. Maximum size is 25MB")
	ErrEmptyFile                = errors.New("file is empty")
	ErrFileStorageNotConfigured = errors.New("file storage not configured")
)

// ThumbnailFormats contains the image MIME types a thumbnail is generated for
var ThumbnailFormats = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
}

// StoredFile describes an uploaded object and its optional thumbnail
type StoredFile struct {
	Path          string
	ThumbnailPath string
	FileName      string
	ContentType   string
	Size          int64
}

// isMessageAttachment reports whether objectPath was uploaded with a message of
// the workspace, as opposed to a document's file linked into a thread
func isMessageAttachment(workspaceID uuid.UUID, objectPath string) bool {
	return strings.HasPrefix(objectPath, storage.WorkspacePrefix(workspaceID)+FileKindMessages+"/")
}

// FileService stores uploaded files and produces their thumbnails
type FileService struct {
	storage storage.FileRepository
}

// NewFileService creates a new FileService
func NewFileService(storage storage.FileRepository) *FileService {
	return &FileService{storage: storage}
}

// IsEnabled indicates whether uploads are supported (storage configured).
func (s *FileService) IsEnabled() bool {
	return s != nil && s.storage != nil
}

// Store uploads data for the active workspace and, for images, a JPEG thumbnail.
// A failed thumbnail never fails the upload.
func (s *FileService) Store(ctx context.Context, scope domain.Scope, kind, fileName, contentType string, data []byte) (*StoredFile, error) {
	if !s.IsEnabled() {
		return nil, ErrFileStorageNotConfigured
	}
	if scope.IsZero() {
		return nil, domain.ErrNoActiveWorkspace
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if len(data) > MaxFileSize {
		return nil, ErrFileTooLarge
	}
	fileName = filepath.Base(strings.TrimSpace(fileName))
	contentType = DetectContentType(fileName, contentType, data)

	objectPath := storage.ObjectPath(scope.WorkspaceID, kind, fileName)
	if _, err := s.storage.Upload(ctx, objectPath, bytes.NewReader(data), contentType, int64(len(data))); err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	stored := &StoredFile{
		Path:        objectPath,
		FileName:    fileName,
		ContentType: contentType,
		Size:        int64(len(data)),
	}

	if ThumbnailFormats[contentType] && len(data) <= MaxThumbnailSrc {
		thumbPath, err := s.storeThumbnail(ctx, objectPath, data)
		if err != nil {
			log.Warn().Err(err).Str("object_path", objectPath).Msg("Failed to create thumbnail")
		} else {
			stored.ThumbnailPath = thumbPath
		}
	}

	return stored, nil
}

func (s *FileService) storeThumbnail(ctx context.Context, objectPath string, data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	if img.Bounds().Dx() > ThumbnailWidth {
		img = imaging.Resize(img, ThumbnailWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}

	thumbPath := storage.ThumbnailPath(objectPath)
	if _, err := s.storage.Upload(ctx, thumbPath, bytes.NewReader(buf.Bytes()), "image/jpeg", int64(buf.Len())); err != nil {
		return "", err
	}
	return thumbPath, nil
}

// URL returns a short-lived download URL for an object of the active workspace.
// downloadName is the name the browser saves the file under; empty derives it from the path.
func (s *FileService) URL(ctx context.Context, scope domain.Scope, objectPath, downloadName string) (string, error) {
	if !s.IsEnabled() {
		return "", ErrFileStorageNotConfigured
	}
	owner, ok := storage.WorkspaceOf(objectPath)
	if !ok {
		return "", domain.ErrNotFound
	}
	if owner != scope.WorkspaceID {
		log.Warn().
			Str("collection", "files").
			Str("object_path", objectPath).
			Str("active_workspace_id", scope.WorkspaceID.String()).
			Str("actor", scope.ActorEmail).
			Msg("Security violation: cross-workspace access blocked")
		return "", domain.ErrCrossWorkspace
	}
	return s.storage.GeneratePresignedURL(ctx, objectPath, downloadName, FileURLExpiry)
}

// Delete removes an object and its thumbnail. Errors are logged, not returned.
func (s *FileService) Delete(ctx context.Context, paths ...string) {
	if !s.IsEnabled() {
		return
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := s.storage.Delete(ctx, p); err != nil {
			log.Warn().Err(err).Str("object_path", p).Msg("Failed to delete stored file")
		}
	}
}

// DeleteWorkspace removes every stored object of a workspace: document files,
// thumbnails and message attachments
func (s *FileService) DeleteWorkspace(ctx context.Context, workspaceID uuid.UUID) (int, error) {
	if !s.IsEnabled() {
		return 0, nil
	}
	removed, err := s.storage.DeletePrefix(ctx, storage.WorkspacePrefix(workspaceID))
	if err != nil {
		return removed, fmt.Errorf("delete workspace files: %w", err)
	}
	return removed, nil
}

// DetectContentType prefers the declared type, then the extension, then sniffing
func DetectContentType(fileName, declared string, data []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
			return mediaType
		}
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName))); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType
		}
	}
	sniffed, _, err := mime.ParseMediaType(http.DetectContentType(data))
	if err != nil {
		return "application/octet-stream"
	}
	return sniffed
}

// DocumentTypeFor derives a document_type from a file name, e.g. "pdf"
func DocumentTypeFor(fileName string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	if ext == "" {
		return "file"
	}
	return ext
}
