package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// FileRepository stores uploaded document and message files
type FileRepository interface {
	// Upload stores data under objectPath and returns the object path
	Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error)
	Delete(ctx context.Context, objectPath string) error
	// DeletePrefix removes every object whose key starts with prefix
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	// GeneratePresignedURL returns a download link; downloadName is the file
	// name the browser saves, DownloadName(objectPath) when empty
	GeneratePresignedURL(ctx context.Context, objectPath, downloadName string, expiry time.Duration) (string, error)
}

// WorkspacePrefix is the key prefix shared by every object of one workspace
func WorkspacePrefix(workspaceID uuid.UUID) string {
	return "workspaces/" + workspaceID.String() + "/"
}

// ObjectPath builds the storage key for an uploaded file:
// workspaces/{workspace}/{kind}/{uuid}-{slugged-name}{.ext}
func ObjectPath(workspaceID uuid.UUID, kind, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	base := slug.Make(strings.TrimSuffix(fileName, path.Ext(fileName)))
	if base == "" {
		base = "file"
	}
	if len(base) > 80 {
		base = strings.TrimRight(base[:80], "-")
	}
	return fmt.Sprintf("%s%s/%s-%s%s", WorkspacePrefix(workspaceID), kind, uuid.New(), base, ext)
}

// DownloadName recovers a readable file name from an object path by dropping
// the directory and the uuid prefix ObjectPath adds
func DownloadName(objectPath string) string {
	name := path.Base(objectPath)
	if len(name) > 37 && name[36] == '-' {
		if _, err := uuid.Parse(name[:36]); err == nil {
			return name[37:]
		}
	}
	return name
}

// ThumbnailPath returns the key of the thumbnail stored next to objectPath
func ThumbnailPath(objectPath string) string {
	ext := path.Ext(objectPath)
	return strings.TrimSuffix(objectPath, ext) + "_thumb.jpg"
}

// WorkspaceOf extracts the workspace id from an object path built by ObjectPath
func WorkspaceOf(objectPath string) (uuid.UUID, bool) {
	parts := strings.Split(objectPath, "/")
	if len(parts) < 3 || parts[0] != "workspaces" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
