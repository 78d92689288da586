package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dafibh/proflow/proflow-backend/db"
	"github.com/dafibh/proflow/proflow-backend/internal/config"
	"github.com/dafibh/proflow/proflow-backend/internal/handler"
	"github.com/dafibh/proflow/proflow-backend/internal/llm"
	"github.com/dafibh/proflow/proflow-backend/internal/middleware"
	"github.com/dafibh/proflow/proflow-backend/internal/repository/postgres"
	"github.com/dafibh/proflow/proflow-backend/internal/repository/storage"
	"github.com/dafibh/proflow/proflow-backend/internal/service"
	"github.com/dafibh/proflow/proflow-backend/internal/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// @title Proflow API
// @version 1.0
// @description Multi-tenant project, document and task collaboration backend.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.AutoMigrate {
		if err := db.Up(cfg.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
		log.Info().Msg("Migrations applied")
	}

	// Connect to database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	// Verify database connection
	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	// Initialize repositories
	stores := postgres.NewStores(pool)
	userRepo := postgres.NewUserRepository(pool)
	workspaceRepo := postgres.NewWorkspaceRepository(pool)
	prefRepo := postgres.NewPreferenceRepository(pool)
	deviceRepo := postgres.NewDevicePreferenceRepository(pool)

	// Optional integrations
	var fileRepo storage.FileRepository
	if cfg.S3.Enabled() {
		s3Repo, err := storage.NewS3FileRepository(context.Background(), cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize S3 storage")
		}
		fileRepo = s3Repo
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("File storage enabled")
	} else {
		log.Warn().Msg("S3_BUCKET not set, file uploads are disabled")
	}

	var llmClient service.LLM
	if cfg.LLM.Enabled() {
		llmClient = llm.NewClient(llm.Config{
			BaseURL: cfg.LLM.APIURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
		})
		log.Info().Str("model", cfg.LLM.Model).Msg("AI features enabled")
	} else {
		log.Warn().Msg("LLM_API_KEY not set, AI features are disabled")
	}

	hub := websocket.NewHub()

	// Identity and workspaces
	resolver := service.NewWorkspaceResolver(workspaceRepo, userRepo, cfg.WorkspaceCacheTTL)
	resolver.SetEventPublisher(hub)

	var identity service.IdentityResolver
	if cfg.AuthMode == config.AuthModeLocal {
		identity = service.NewLocalIdentityResolver(userRepo, prefRepo, deviceRepo, resolver)
	} else {
		identity = service.NewHostedIdentityResolver(userRepo, prefRepo, resolver)
	}
	authService := service.NewAuthService(identity, resolver, prefRepo)
	profileService := service.NewProfileService(identity)
	preferenceService := service.NewPreferenceService()
	workspaceService := service.NewWorkspaceService(workspaceRepo, resolver)
	workspaceService.SetEventPublisher(hub)

	// Feature services
	fileService := service.NewFileService(fileRepo)
	workspaceService.SetFileService(fileService)
	projectService := service.NewProjectService(stores.Projects)
	assignmentService := service.NewAssignmentService(stores.Assignments, stores.Projects)
	taskService := service.NewTaskService(stores.Tasks, stores.Assignments)
	threadService := service.NewThreadService(stores.Threads, stores.Assignments)
	documentService := service.NewDocumentService(stores.Documents, stores.Projects, stores.Assignments, fileService)
	messageService := service.NewMessageService(stores.Messages, stores.Documents, threadService, fileService)
	aiService := service.NewAIService(llmClient, documentService, cfg.LLM.PricePer1KTokens)

	projectService.SetEventPublisher(hub)
	assignmentService.SetEventPublisher(hub)
	taskService.SetEventPublisher(hub)
	threadService.SetEventPublisher(hub)
	documentService.SetEventPublisher(hub)
	messageService.SetEventPublisher(hub)

	// Initialize auth middleware
	var jwtAuth *middleware.AuthMiddleware
	var deviceAuth *middleware.DeviceAuthMiddleware
	var wsValidator websocket.TokenValidator
	if cfg.AuthMode == config.AuthModeLocal {
		deviceAuth = middleware.NewDeviceAuthMiddleware(authService)
		wsValidator = websocket.NewDeviceValidator(authService)
		log.Warn().Msg("AUTH_MODE=local: requests are identified by device id only")
	} else {
		jwtAuth, err = middleware.NewAuthMiddleware(cfg.Auth0Domain, cfg.Auth0Audience, authService)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create auth middleware")
		}
		wsValidator, err = websocket.NewAuth0JWTValidator(cfg.Auth0Domain, cfg.Auth0Audience, authService)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create WebSocket token validator")
		}
	}
	identityAuth := middleware.NewIdentityAuthMiddleware(jwtAuth, deviceAuth)

	aiLimiter := middleware.NewRateLimiterWithConfig(cfg.LLM.RateLimitPerMinute, cfg.LLM.RateLimitPerMinute)
	defer aiLimiter.Stop()

	// Background trash purge
	purgeWorker := service.NewTrashPurgeWorker(documentService, workspaceRepo, log.Logger, service.TrashPurgeWorkerConfig{
		RetentionDays: cfg.TrashRetentionDays,
	})
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	purgeWorker.Start(workerCtx)

	// Initialize handlers
	handlers := handler.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Profile:    handler.NewProfileHandler(profileService),
		Preference: handler.NewPreferenceHandler(preferenceService),
		Workspace:  handler.NewWorkspaceHandler(workspaceService, resolver),
		Project:    handler.NewProjectHandler(projectService),
		Assignment: handler.NewAssignmentHandler(assignmentService),
		Task:       handler.NewTaskHandler(taskService),
		Thread:     handler.NewThreadHandler(threadService),
		Message:    handler.NewMessageHandler(messageService),
		Document:   handler.NewDocumentHandler(documentService),
		AI:         handler.NewAIHandler(aiService),
		WebSocket:  handler.NewWebSocketHandler(hub, wsValidator, cfg.CORSOrigins),
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, middleware.DeviceIDHeader},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Register routes
	handler.RegisterRoutes(e, identityAuth, aiLimiter, handlers)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Str("auth_mode", cfg.AuthMode).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	purgeWorker.Stop()
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			event := log.Info()
			if res.Status >= http.StatusInternalServerError {
				event = log.Error()
			}
			event.
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
