package handler

import (
	"net/http"

	"github.com/dafibh/proflow/proflow-backend/internal/middleware"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// Handlers groups every HTTP handler the API serves
type Handlers struct {
	Auth       *AuthHandler
	Profile    *ProfileHandler
	Preference *PreferenceHandler
	Workspace  *WorkspaceHandler
	Project    *ProjectHandler
	Assignment *AssignmentHandler
	Task       *TaskHandler
	Thread     *ThreadHandler
	Message    *MessageHandler
	Document   *DocumentHandler
	AI         *AIHandler
	WebSocket  *WebSocketHandler
}

// HealthCheck handles GET /health
func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, identity *middleware.IdentityAuthMiddleware, aiLimiter *middleware.RateLimiter, h Handlers) {
	e.GET("/health", HealthCheck)
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/openapi.json", ServeOpenAPI3Spec)
	if h.WebSocket != nil {
		e.GET("/ws", h.WebSocket.HandleWS)
	}

	// API version 1
	api := e.Group("/api/v1")
	api.GET("/health", HealthCheck)

	// Identity-only routes stay reachable while workspace resolution is failing,
	// so /workspaces/state can report the error and /workspaces/reload retry it
	authed := api.Group("", identity.Authenticate())

	auth := authed.Group("/auth")
	auth.GET("/me", h.Auth.Me)
	auth.POST("/logout", h.Auth.Logout)

	profile := authed.Group("/profile")
	profile.GET("", h.Profile.GetProfile)
	profile.PUT("", h.Profile.UpdateProfile)

	preferences := authed.Group("/preferences")
	preferences.GET("/:key", h.Preference.GetPreference)
	preferences.PUT("/:key", h.Preference.SetPreference)
	preferences.DELETE("/:key", h.Preference.DeletePreference)

	workspaces := authed.Group("/workspaces")
	workspaces.GET("", h.Workspace.ListWorkspaces)
	workspaces.POST("", h.Workspace.CreateWorkspace)
	workspaces.POST("/reload", h.Workspace.Reload)
	workspaces.GET("/state", h.Workspace.State)
	workspaces.POST("/:id/switch", h.Workspace.SwitchWorkspace)
	workspaces.PUT("/:id", h.Workspace.UpdateWorkspace)
	workspaces.POST("/:id/members", h.Workspace.AddMember)
	workspaces.DELETE("/:id/members/:email", h.Workspace.RemoveMember)

	// Everything below is scoped to the active workspace
	scoped := authed.Group("", middleware.RequireWorkspace())

	scoped.DELETE("/workspace/clear", h.Workspace.ClearAllData)

	projects := scoped.Group("/projects")
	projects.POST("", h.Project.CreateProject)
	projects.GET("", h.Project.ListProjects)
	projects.GET("/:id", h.Project.GetProject)
	projects.PUT("/:id", h.Project.UpdateProject)
	projects.DELETE("/:id", h.Project.DeleteProject)

	assignments := scoped.Group("/assignments")
	assignments.POST("", h.Assignment.CreateAssignment)
	assignments.GET("", h.Assignment.ListAssignments)
	assignments.GET("/:id", h.Assignment.GetAssignment)
	assignments.PUT("/:id", h.Assignment.UpdateAssignment)
	assignments.DELETE("/:id", h.Assignment.DeleteAssignment)

	tasks := scoped.Group("/tasks")
	tasks.POST("", h.Task.CreateTask)
	tasks.GET("", h.Task.ListTasks)
	tasks.GET("/:id", h.Task.GetTask)
	tasks.PUT("/:id", h.Task.UpdateTask)
	tasks.DELETE("/:id", h.Task.DeleteTask)

	threads := scoped.Group("/threads")
	threads.POST("", h.Thread.CreateThread)
	threads.GET("", h.Thread.ListThreads)
	threads.GET("/:id", h.Thread.GetThread)
	threads.PUT("/:id", h.Thread.UpdateThread)
	threads.DELETE("/:id", h.Thread.DeleteThread)
	threads.GET("/:id/messages", h.Message.ListMessages)
	threads.POST("/:id/messages", h.Message.PostMessage)

	messages := scoped.Group("/messages")
	messages.POST("/share-document", h.Message.ShareDocument)
	messages.POST("/:id/reactions", h.Message.ToggleReaction)
	messages.DELETE("/:id", h.Message.DeleteMessage)

	documents := scoped.Group("/documents")
	documents.POST("", h.Document.CreateDocument)
	documents.GET("", h.Document.ListDocuments)
	documents.POST("/upload", h.Document.UploadDocument)
	documents.GET("/folders", h.Document.ListFolders)
	documents.POST("/folders", h.Document.CreateFolder)
	documents.DELETE("/folders", h.Document.DeleteFolder)
	documents.DELETE("/trash", h.Document.EmptyTrash)
	documents.GET("/:id", h.Document.GetDocument)
	documents.PUT("/:id", h.Document.UpdateDocument)
	documents.DELETE("/:id", h.Document.DeleteDocument)
	documents.POST("/:id/move", h.Document.MoveDocument)
	documents.POST("/:id/duplicate", h.Document.DuplicateDocument)
	documents.POST("/:id/star", h.Document.ToggleStar)
	documents.POST("/:id/outdate", h.Document.OutdateDocument)
	documents.POST("/:id/restore-outdated", h.Document.RestoreOutdated)
	documents.POST("/:id/restore", h.Document.RestoreDocument)
	documents.POST("/:id/link", h.Document.LinkDocument)
	documents.GET("/:id/versions", h.Document.ListVersions)
	documents.POST("/:id/versions/:version/restore", h.Document.RestoreVersion)
	documents.GET("/:id/download", h.Document.DownloadURLs)

	// AI routes are rate limited per user
	ai := scoped.Group("/ai")
	ai.POST("/estimate", h.AI.Estimate)
	limited := ai.Group("", middleware.RateLimitMiddleware(aiLimiter))
	limited.POST("/rewrite", h.AI.Rewrite)
	limited.POST("/rewrite/stream", h.AI.StreamRewrite)
	limited.POST("/search", h.AI.Search)
}
