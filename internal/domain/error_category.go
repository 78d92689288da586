package domain

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorCategory is a best-effort classification of a failure
type ErrorCategory string

const (
	CategoryNetwork    ErrorCategory = "network"
	CategoryAuth       ErrorCategory = "auth"
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not_found"
	CategoryPermission ErrorCategory = "permission"
	CategoryServer     ErrorCategory = "server"
	CategoryUnknown    ErrorCategory = "unknown"
)

// StatusCoder is implemented by errors that carry an HTTP status from a remote call
type StatusCoder interface {
	StatusCode() int
}

var sentinelCategories = []struct {
	err      error
	category ErrorCategory
}{
	{ErrCrossWorkspace, CategoryPermission},
	{ErrForbidden, CategoryPermission},
	{ErrNotMember, CategoryPermission},
	{ErrNotOwner, CategoryPermission},
	{ErrCannotRemoveOwner, CategoryPermission},
	{ErrNotMessageAuthor, CategoryPermission},
	{ErrUnauthorized, CategoryAuth},
	{ErrNoActiveWorkspace, CategoryAuth},
	{ErrNotFound, CategoryNotFound},
	{ErrUserNotFound, CategoryNotFound},
	{ErrWorkspaceNotFound, CategoryNotFound},
	{ErrProjectNotFound, CategoryNotFound},
	{ErrAssignmentNotFound, CategoryNotFound},
	{ErrTaskNotFound, CategoryNotFound},
	{ErrDocumentNotFound, CategoryNotFound},
	{ErrThreadNotFound, CategoryNotFound},
	{ErrMessageNotFound, CategoryNotFound},
	{ErrVersionNotFound, CategoryNotFound},
	{ErrInvalidInput, CategoryValidation},
	{ErrNameRequired, CategoryValidation},
	{ErrNameTooLong, CategoryValidation},
	{ErrTitleRequired, CategoryValidation},
	{ErrInvalidStatus, CategoryValidation},
	{ErrInvalidPriority, CategoryValidation},
	{ErrInvalidSort, CategoryValidation},
	{ErrImmutableField, CategoryValidation},
	{ErrInvalidFolderPath, CategoryValidation},
	{ErrFolderExists, CategoryValidation},
	{ErrDocumentIsFolder, CategoryValidation},
	{ErrDocumentDeleted, CategoryValidation},
	{ErrNotInTrash, CategoryValidation},
	{ErrSelfReplacement, CategoryValidation},
	{ErrMessageContentEmpty, CategoryValidation},
	{ErrInvalidEmoji, CategoryValidation},
	{ErrAlreadyExists, CategoryValidation},
	{ErrInvalidRewriteAction, CategoryValidation},
	{ErrNothingToRewrite, CategoryValidation},
	{ErrInternalError, CategoryServer},
}

// Categorize classifies err using sentinel errors, database error codes,
// HTTP status codes and finally message substrings.
func Categorize(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}

	for _, s := range sentinelCategories {
		if errors.Is(err, s.err) {
			return s.category
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryNetwork
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return categorizeSQLState(pgErr.Code)
	}

	var coder StatusCoder
	if errors.As(err, &coder) {
		return categorizeStatus(coder.StatusCode())
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryNetwork
	}

	return categorizeMessage(err.Error())
}

func categorizeSQLState(code string) ErrorCategory {
	if len(code) < 2 {
		return CategoryServer
	}
	switch {
	case code == "42501":
		return CategoryPermission
	case code == "02000" || code == "P0002":
		return CategoryNotFound
	}
	switch code[:2] {
	case "08":
		return CategoryNetwork
	case "28":
		return CategoryAuth
	case "22", "23":
		return CategoryValidation
	default:
		return CategoryServer
	}
}

func categorizeStatus(status int) ErrorCategory {
	switch {
	case status == http.StatusUnauthorized:
		return CategoryAuth
	case status == http.StatusForbidden:
		return CategoryPermission
	case status == http.StatusNotFound:
		return CategoryNotFound
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests:
		return CategoryNetwork
	case status >= 400 && status < 500:
		return CategoryValidation
	case status >= 500:
		return CategoryServer
	default:
		return CategoryUnknown
	}
}

func categorizeMessage(msg string) ErrorCategory {
	msg = strings.ToLower(msg)
	switch {
	case containsAny(msg, "network", "connection refused", "connection reset", "timeout", "no such host", "eof"):
		return CategoryNetwork
	case containsAny(msg, "jwt", "token", "unauthenticated", "session"):
		return CategoryAuth
	case containsAny(msg, "permission", "forbidden", "not allowed", "denied"):
		return CategoryPermission
	case containsAny(msg, "not found", "does not exist"):
		return CategoryNotFound
	case containsAny(msg, "invalid", "required", "must be"):
		return CategoryValidation
	case containsAny(msg, "internal", "unavailable", "server error"):
		return CategoryServer
	default:
		return CategoryUnknown
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// UserMessage returns the generic user-facing message for a category
func UserMessage(category ErrorCategory) string {
	switch category {
	case CategoryNetwork:
		return "Network error. Please check your connection and try again."
	case CategoryAuth:
		return "Your session has expired. Please sign in again."
	case CategoryValidation:
		return "Some of the provided information is invalid."
	case CategoryNotFound:
		return "The requested item could not be found."
	case CategoryPermission:
		return "You don't have permission to do that."
	case CategoryServer:
		return "The server ran into a problem. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}

// IsRetryable reports whether retrying the same operation can reasonably succeed
func IsRetryable(category ErrorCategory) bool {
	return category == CategoryNetwork || category == CategoryServer || category == CategoryUnknown
}
