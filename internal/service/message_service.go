package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	MaxMessageLength = 10000
	MaxEmojiLength   = 16
)

// MessageService handles chat messages, reactions and document sharing
type MessageService struct {
	eventPublishing
	messages  *ScopedStore[*domain.Message]
	documents *ScopedStore[*domain.Document]
	threads   *ThreadService
	files     *FileService
}

// NewMessageService creates a new MessageService
func NewMessageService(
	messages domain.EntityStore[*domain.Message],
	documents domain.EntityStore[*domain.Document],
	threads *ThreadService,
	files *FileService,
) *MessageService {
	return &MessageService{
		messages:  NewScopedStore(messages, domain.CollectionMessages),
		documents: NewScopedStore(documents, domain.CollectionDocuments),
		threads:   threads,
		files:     files,
	}
}

// PostMessageInput contains input for posting a message
type PostMessageInput struct {
	Content         string
	LinkedDocuments []uuid.UUID
	Attachment      *Attachment
}

// Attachment is a file uploaded along with a message
type Attachment struct {
	FileName    string
	ContentType string
	Data        []byte
}

// PostMessage posts a message to a thread, storing an attachment first when present
func (s *MessageService) PostMessage(ctx context.Context, scope domain.Scope, threadID uuid.UUID, input PostMessageInput) (*domain.Message, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" && input.Attachment == nil {
		return nil, domain.ErrMessageContentEmpty
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, domain.ErrInvalidInput
	}

	thread, err := s.threads.GetThread(ctx, scope, threadID)
	if err != nil {
		return nil, err
	}
	for _, id := range input.LinkedDocuments {
		if _, err := s.documents.Get(ctx, scope, id); err != nil {
			return nil, err
		}
	}

	msg := &domain.Message{
		ThreadID:        thread.ID,
		AssignmentID:    thread.AssignmentID,
		AuthorEmail:     scope.ActorEmail,
		Content:         content,
		MessageType:     domain.MessageTypeText,
		LinkedDocuments: uniqueIDs(input.LinkedDocuments),
		Reactions:       []domain.Reaction{},
	}

	if input.Attachment != nil {
		stored, err := s.files.Store(ctx, scope, FileKindMessages, input.Attachment.FileName, input.Attachment.ContentType, input.Attachment.Data)
		if err != nil {
			return nil, err
		}
		msg.MessageType = domain.MessageTypeFile
		msg.FileURL = stored.Path
		msg.FileName = stored.FileName
		msg.ThumbnailURL = stored.ThumbnailPath
	}

	created, err := s.create(ctx, scope, thread, msg)
	if err != nil && input.Attachment != nil {
		s.files.Delete(context.WithoutCancel(ctx), msg.FileURL, msg.ThumbnailURL)
	}
	return created, err
}

// ShareDocumentInput contains input for sharing a document into a thread
type ShareDocumentInput struct {
	ThreadID   uuid.UUID
	DocumentID uuid.UUID
	Note       string
}

// ShareDocument posts a file message linking a document. A document from
// another workspace is rejected before any message is created.
func (s *MessageService) ShareDocument(ctx context.Context, scope domain.Scope, input ShareDocumentInput) (*domain.Message, error) {
	doc, err := s.documents.Get(ctx, scope, input.DocumentID)
	if err != nil {
		return nil, err
	}
	if doc.IsFolder() {
		return nil, domain.ErrDocumentIsFolder
	}
	if doc.IsDeleted {
		return nil, domain.ErrDocumentDeleted
	}

	thread, err := s.threads.GetThread(ctx, scope, input.ThreadID)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(input.Note)
	if content == "" {
		content = "Shared " + doc.Title
	}
	fileName := doc.FileName
	if fileName == "" {
		fileName = doc.Title
	}

	return s.create(ctx, scope, thread, &domain.Message{
		ThreadID:        thread.ID,
		AssignmentID:    thread.AssignmentID,
		AuthorEmail:     scope.ActorEmail,
		Content:         content,
		MessageType:     domain.MessageTypeFile,
		FileURL:         doc.FileURL,
		FileName:        fileName,
		ThumbnailURL:    doc.ThumbnailURL,
		LinkedDocuments: []uuid.UUID{doc.ID},
		Reactions:       []domain.Reaction{},
	})
}

func (s *MessageService) create(ctx context.Context, scope domain.Scope, thread *domain.ConversationThread, msg *domain.Message) (*domain.Message, error) {
	created, err := s.messages.Create(ctx, scope, msg)
	if err != nil {
		return nil, err
	}
	s.publishEvent(scope.WorkspaceID, websocket.Created(websocket.EntityTypeMessage, created))

	if _, err := s.threads.recordActivity(ctx, scope, thread, 1); err != nil {
		log.Warn().Err(err).Str("thread_id", thread.ID.String()).Msg("Failed to update thread activity")
	}
	return created, nil
}

// ListMessages returns the messages of a thread, oldest first
func (s *MessageService) ListMessages(ctx context.Context, scope domain.Scope, threadID uuid.UUID, limit int) ([]*domain.Message, error) {
	if _, err := s.threads.GetThread(ctx, scope, threadID); err != nil {
		return nil, err
	}
	return s.messages.Filter(ctx, scope, domain.Criteria{"thread_id": threadID}, domain.SortSpec{Field: "created_date"}, limit)
}

// ToggleReaction adds the caller's emoji to a message, or removes it when already present
func (s *MessageService) ToggleReaction(ctx context.Context, scope domain.Scope, messageID uuid.UUID, emoji string) (*domain.Message, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" || utf8.RuneCountInString(emoji) > MaxEmojiLength {
		return nil, domain.ErrInvalidEmoji
	}
	msg, err := s.messages.Get(ctx, scope, messageID)
	if err != nil {
		return nil, err
	}

	updated, err := s.messages.Update(ctx, scope, messageID, domain.Patch{
		"reactions": msg.ToggleReaction(emoji, scope.ActorEmail),
	})
	if err != nil {
		return nil, err
	}
	s.publishEvent(scope.WorkspaceID, websocket.MessageReacted(updated))
	return updated, nil
}

// DeleteMessage deletes one of the caller's own messages
func (s *MessageService) DeleteMessage(ctx context.Context, scope domain.Scope, messageID uuid.UUID) error {
	msg, err := s.messages.Get(ctx, scope, messageID)
	if err != nil {
		return err
	}
	if !strings.EqualFold(msg.AuthorEmail, scope.ActorEmail) {
		return domain.ErrNotMessageAuthor
	}
	if err := s.messages.Delete(ctx, scope, messageID); err != nil {
		return err
	}
	s.publishEvent(scope.WorkspaceID, websocket.Deleted(websocket.EntityTypeMessage, deletedPayload(messageID)))

	// shared documents keep their file; only an uploaded attachment goes
	if msg.MessageType == domain.MessageTypeFile && isMessageAttachment(scope.WorkspaceID, msg.FileURL) {
		s.files.Delete(ctx, msg.FileURL, msg.ThumbnailURL)
	}
	if thread, err := s.threads.GetThread(ctx, scope, msg.ThreadID); err == nil {
		if _, err := s.threads.recordActivity(ctx, scope, thread, -1); err != nil {
			log.Warn().Err(err).Str("thread_id", thread.ID.String()).Msg("Failed to update thread activity")
		}
	}
	return nil
}
