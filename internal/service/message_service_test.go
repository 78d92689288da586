package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/google/uuid"
)

func setupThread(t *testing.T, env *serviceEnv) *domain.ConversationThread {
	t.Helper()
	thread, err := env.threads.CreateThread(context.Background(), env.scope, CreateThreadInput{Topic: "Launch plan"})
	if err != nil {
		t.Fatalf("Expected no error creating thread, got %v", err)
	}
	return thread
}

func TestPostMessage_Success(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	thread := setupThread(t, env)

	msg, err := env.messages.PostMessage(ctx, env.scope, thread.ID, PostMessageInput{Content: "  Hello team  "})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if msg.Content != "Hello team" {
		t.Errorf("Expected trimmed content, got %q", msg.Content)
	}
	if msg.AuthorEmail != "alice@example.com" {
		t.Errorf("Expected author alice@example.com, got %s", msg.AuthorEmail)
	}
	if msg.MessageType != domain.MessageTypeText {
		t.Errorf("Expected text message, got %s", msg.MessageType)
	}
	if msg.WorkspaceID != env.scope.WorkspaceID {
		t.Errorf("Expected workspace %s, got %s", env.scope.WorkspaceID, msg.WorkspaceID)
	}

	updated, err := env.threads.GetThread(ctx, env.scope, thread.ID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if updated.MessageCount != 1 {
		t.Errorf("Expected message count 1, got %d", updated.MessageCount)
	}
	if updated.LastActivity.Before(thread.LastActivity) {
		t.Errorf("Expected last activity to move forward")
	}
}

func TestPostMessage_EmptyContent(t *testing.T) {
	env := newServiceEnv(t)
	thread := setupThread(t, env)

	_, err := env.messages.PostMessage(context.Background(), env.scope, thread.ID, PostMessageInput{Content: "   "})
	if !errors.Is(err, domain.ErrMessageContentEmpty) {
		t.Errorf("Expected ErrMessageContentEmpty, got %v", err)
	}
	if env.stores.Messages.Len() != 0 {
		t.Errorf("Expected no messages stored")
	}
}

func TestPostMessage_WithAttachment(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	thread := setupThread(t, env)
	data, _ := createTestImage(400, 300, "png")

	msg, err := env.messages.PostMessage(ctx, env.scope, thread.ID, PostMessageInput{
		Attachment: &Attachment{FileName: "mockup.png", Data: data},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if msg.MessageType != domain.MessageTypeFile {
		t.Errorf("Expected file message, got %s", msg.MessageType)
	}
	if !env.fileRepo.Has(msg.FileURL) {
		t.Errorf("Expected uploaded file at %s", msg.FileURL)
	}
	if msg.ThumbnailURL == "" || !env.fileRepo.Has(msg.ThumbnailURL) {
		t.Errorf("Expected thumbnail for image attachment")
	}
	if msg.FileName != "mockup.png" {
		t.Errorf("Expected file name mockup.png, got %s", msg.FileName)
	}
}

func TestPostMessage_ThreadInOtherWorkspace(t *testing.T) {
	env := newServiceEnv(t)
	thread := setupThread(t, env)

	_, err := env.messages.PostMessage(context.Background(), env.otherScope, thread.ID, PostMessageInput{Content: "hi"})
	if !errors.Is(err, domain.ErrCrossWorkspace) {
		t.Errorf("Expected ErrCrossWorkspace, got %v", err)
	}
	if env.stores.Messages.Mutations() != 0 {
		t.Errorf("Expected no message mutation")
	}
}

func TestShareDocument_Success(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	thread := setupThread(t, env)

	doc, err := env.documents.UploadDocument(ctx, env.scope, UploadDocumentInput{
		FileName: "brief.pdf",
		Data:     []byte("%PDF-1.4 brief"),
	})
	if err != nil {
		t.Fatalf("Expected no error uploading, got %v", err)
	}

	msg, err := env.messages.ShareDocument(ctx, env.scope, ShareDocumentInput{
		ThreadID:   thread.ID,
		DocumentID: doc.ID,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if msg.MessageType != domain.MessageTypeFile {
		t.Errorf("Expected file message, got %s", msg.MessageType)
	}
	if msg.FileURL != doc.FileURL {
		t.Errorf("Expected message to reference %s, got %s", doc.FileURL, msg.FileURL)
	}
	if len(msg.LinkedDocuments) != 1 || msg.LinkedDocuments[0] != doc.ID {
		t.Errorf("Expected linked document %s, got %v", doc.ID, msg.LinkedDocuments)
	}
	if !strings.HasPrefix(msg.Content, "Shared ") {
		t.Errorf("Expected default share note, got %q", msg.Content)
	}
}

// A document from another workspace is refused without creating a message.
func TestShareDocument_CrossWorkspaceDocument(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	thread := setupThread(t, env)

	foreign := env.stores.Documents.Put(&domain.Document{
		Record:       domain.Record{WorkspaceID: env.otherScope.WorkspaceID},
		Title:        "Their contract",
		DocumentType: "pdf",
		FolderPath:   domain.RootFolder,
		FileURL:      "workspaces/" + env.otherScope.WorkspaceID.String() + "/documents/x-contract.pdf",
	})

	_, err := env.messages.ShareDocument(ctx, env.scope, ShareDocumentInput{
		ThreadID:   thread.ID,
		DocumentID: foreign.ID,
		Note:       "look at this",
	})
	if !errors.Is(err, domain.ErrCrossWorkspace) {
		t.Fatalf("Expected ErrCrossWorkspace, got %v", err)
	}
	for _, call := range env.stores.Messages.Calls {
		if call == "create" {
			t.Fatalf("Expected message create not to be called")
		}
	}
	if env.stores.Messages.Len() != 0 {
		t.Errorf("Expected no messages, got %d", env.stores.Messages.Len())
	}

	updated, _ := env.threads.GetThread(ctx, env.scope, thread.ID)
	if updated.MessageCount != 0 {
		t.Errorf("Expected thread message count unchanged, got %d", updated.MessageCount)
	}
}

func TestShareDocument_RejectsFolderAndTrash(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	thread := setupThread(t, env)

	folder, err := env.documents.CreateFolder(ctx, env.scope, domain.RootFolder, "Specs")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	_, err = env.messages.ShareDocument(ctx, env.scope, ShareDocumentInput{ThreadID: thread.ID, DocumentID: folder.ID})
	if !errors.Is(err, domain.ErrDocumentIsFolder) {
		t.Errorf("Expected ErrDocumentIsFolder, got %v", err)
	}

	doc, err := env.documents.CreateDocument(ctx, env.scope, CreateDocumentInput{Title: "Notes", Content: "<p>x</p>"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := env.documents.TrashDocument(ctx, env.scope, doc.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	_, err = env.messages.ShareDocument(ctx, env.scope, ShareDocumentInput{ThreadID: thread.ID, DocumentID: doc.ID})
	if !errors.Is(err, domain.ErrDocumentDeleted) {
		t.Errorf("Expected ErrDocumentDeleted, got %v", err)
	}
}

func TestToggleReaction(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	thread := setupThread(t, env)
	msg, _ := env.messages.PostMessage(ctx, env.scope, thread.ID, PostMessageInput{Content: "Ship it"})

	reacted, err := env.messages.ToggleReaction(ctx, env.scope, msg.ID, "👍")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(reacted.Reactions) != 1 || reacted.Reactions[0].UserEmail != "alice@example.com" {
		t.Errorf("Expected one reaction from alice, got %v", reacted.Reactions)
	}

	cleared, err := env.messages.ToggleReaction(ctx, env.scope, msg.ID, "👍")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(cleared.Reactions) != 0 {
		t.Errorf("Expected reaction removed, got %v", cleared.Reactions)
	}

	if _, err := env.messages.ToggleReaction(ctx, env.scope, msg.ID, " "); !errors.Is(err, domain.ErrInvalidEmoji) {
		t.Errorf("Expected ErrInvalidEmoji, got %v", err)
	}

	types := env.events.Types()
	if types[len(types)-1] != "message.reacted" {
		t.Errorf("Expected last event message.reacted, got %s", types[len(types)-1])
	}
}

func TestDeleteMessage(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	thread := setupThread(t, env)
	msg, _ := env.messages.PostMessage(ctx, env.scope, thread.ID, PostMessageInput{Content: "typo"})

	bob := domain.Scope{WorkspaceID: env.scope.WorkspaceID, ActorEmail: "bob@example.com"}
	if err := env.messages.DeleteMessage(ctx, bob, msg.ID); !errors.Is(err, domain.ErrNotMessageAuthor) {
		t.Errorf("Expected ErrNotMessageAuthor, got %v", err)
	}

	if err := env.messages.DeleteMessage(ctx, env.scope, msg.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if env.stores.Messages.Len() != 0 {
		t.Errorf("Expected message deleted")
	}
	updated, _ := env.threads.GetThread(ctx, env.scope, thread.ID)
	if updated.MessageCount != 0 {
		t.Errorf("Expected message count 0, got %d", updated.MessageCount)
	}
}

func TestDeleteMessage_AttachmentFiles(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	thread := setupThread(t, env)

	doc, err := env.documents.UploadDocument(ctx, env.scope, UploadDocumentInput{FileName: "brief.pdf", Data: []byte("%PDF-1.4 brief")})
	if err != nil {
		t.Fatalf("Expected no error uploading, got %v", err)
	}

	// an uploaded attachment that also links a document belongs to the message
	withLinks, err := env.messages.PostMessage(ctx, env.scope, thread.ID, PostMessageInput{
		Content:         "notes attached",
		LinkedDocuments: []uuid.UUID{doc.ID},
		Attachment:      &Attachment{FileName: "notes.txt", ContentType: "text/plain", Data: []byte("notes")},
	})
	if err != nil {
		t.Fatalf("Expected no error posting, got %v", err)
	}
	shared, err := env.messages.ShareDocument(ctx, env.scope, ShareDocumentInput{ThreadID: thread.ID, DocumentID: doc.ID})
	if err != nil {
		t.Fatalf("Expected no error sharing, got %v", err)
	}

	if err := env.messages.DeleteMessage(ctx, env.scope, withLinks.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if env.fileRepo.Has(withLinks.FileURL) {
		t.Errorf("Expected attachment %s to be deleted", withLinks.FileURL)
	}

	if err := env.messages.DeleteMessage(ctx, env.scope, shared.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !env.fileRepo.Has(doc.FileURL) {
		t.Errorf("Expected shared document file %s to be kept", doc.FileURL)
	}
}

func TestListMessages_OldestFirst(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	thread := setupThread(t, env)
	other := setupThread(t, env)

	for _, content := range []string{"one", "two", "three"} {
		if _, err := env.messages.PostMessage(ctx, env.scope, thread.ID, PostMessageInput{Content: content}); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}
	env.messages.PostMessage(ctx, env.scope, other.ID, PostMessageInput{Content: "elsewhere"})

	msgs, err := env.messages.ListMessages(ctx, env.scope, thread.ID, 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "one" || msgs[2].Content != "three" {
		t.Errorf("Expected oldest first, got %s..%s", msgs[0].Content, msgs[2].Content)
	}

	if _, err := env.messages.ListMessages(ctx, env.scope, uuid.New(), 0); !errors.Is(err, domain.ErrThreadNotFound) {
		t.Errorf("Expected ErrThreadNotFound, got %v", err)
	}
}
