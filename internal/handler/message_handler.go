package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dafibh/proflow/proflow-backend/internal/middleware"
	"github.com/dafibh/proflow/proflow-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// MessageHandler handles chat message HTTP requests
type MessageHandler struct {
	messageService *service.MessageService
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// PostMessageRequest represents a JSON message body. Attachments are sent as
// multipart/form-data with "content" and "file" fields instead.
type PostMessageRequest struct {
	Content         string      `json:"content" validate:"max=10000"`
	LinkedDocuments []uuid.UUID `json:"linked_documents"`
}

// ShareDocumentRequest represents the share document request body
type ShareDocumentRequest struct {
	ThreadID   uuid.UUID `json:"thread_id" validate:"required"`
	DocumentID uuid.UUID `json:"document_id" validate:"required"`
	Note       string    `json:"note" validate:"max=10000"`
}

// ReactionRequest represents the toggle reaction request body
type ReactionRequest struct {
	Emoji string `json:"emoji" validate:"required,max=16"`
}

// ListMessages godoc
// @Summary List thread messages
// @Description Messages of a thread, oldest first
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Thread ID"
// @Param limit query int false "Maximum number of results"
// @Success 200 {array} domain.Message
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /threads/{id}/messages [get]
func (h *MessageHandler) ListMessages(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	threadID, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 || limit > maxListLimit {
			return NewValidationError(c, "Invalid query parameters", []ValidationError{
				{Field: "limit", Message: "Must be between 0 and 500"},
			})
		}
	}

	messages, err := h.messageService.ListMessages(c.Request().Context(), scope, threadID, limit)
	if err != nil {
		return respondError(c, err, "Failed to list messages")
	}
	return c.JSON(http.StatusOK, messages)
}

// PostMessage godoc
// @Summary Post a message
// @Description Post a text message, or a file message when sent as multipart with a file
// @Tags messages
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param id path string true "Thread ID"
// @Param request body PostMessageRequest false "Message"
// @Success 201 {object} domain.Message
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Router /threads/{id}/messages [post]
func (h *MessageHandler) PostMessage(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	threadID, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	var input service.PostMessageInput
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		file, ok, err := readUpload(c, "file", false)
		if !ok {
			return err
		}
		input.Content = c.FormValue("content")
		if file != nil {
			input.Attachment = &service.Attachment{FileName: file.Name, ContentType: file.ContentType, Data: file.Data}
		}
	} else {
		var req PostMessageRequest
		if ok, err := bindAndValidate(c, &req); !ok {
			return err
		}
		input.Content = req.Content
		input.LinkedDocuments = req.LinkedDocuments
	}

	msg, err := h.messageService.PostMessage(c.Request().Context(), scope, threadID, input)
	if err != nil {
		return respondError(c, err, "Failed to post message")
	}
	return c.JSON(http.StatusCreated, msg)
}

// ShareDocument godoc
// @Summary Share a document into a thread
// @Description Posts a file message linking the document. Documents of other workspaces are rejected and no message is created.
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ShareDocumentRequest true "Share"
// @Success 201 {object} domain.Message
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /messages/share-document [post]
func (h *MessageHandler) ShareDocument(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req ShareDocumentRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	msg, err := h.messageService.ShareDocument(c.Request().Context(), scope, service.ShareDocumentInput{
		ThreadID:   req.ThreadID,
		DocumentID: req.DocumentID,
		Note:       req.Note,
	})
	if err != nil {
		return respondError(c, err, "Failed to share document")
	}

	log.Info().
		Str("workspace_id", scope.WorkspaceID.String()).
		Str("thread_id", req.ThreadID.String()).
		Str("document_id", req.DocumentID.String()).
		Msg("Document shared")

	return c.JSON(http.StatusCreated, msg)
}

// ToggleReaction handles POST /messages/:id/reactions
func (h *MessageHandler) ToggleReaction(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	var req ReactionRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	msg, err := h.messageService.ToggleReaction(c.Request().Context(), scope, id, req.Emoji)
	if err != nil {
		return respondError(c, err, "Failed to toggle reaction")
	}
	return c.JSON(http.StatusOK, msg)
}

// DeleteMessage handles DELETE /messages/:id
func (h *MessageHandler) DeleteMessage(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}
	id, ok, err := pathID(c, "id")
	if !ok {
		return err
	}

	if err := h.messageService.DeleteMessage(c.Request().Context(), scope, id); err != nil {
		return respondError(c, err, "Failed to delete message")
	}
	return c.NoContent(http.StatusNoContent)
}
