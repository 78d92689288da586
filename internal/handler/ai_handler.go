package handler

import (
	"net/http"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/middleware"
	"github.com/dafibh/proflow/proflow-backend/internal/service"
	"github.com/gin-contrib/sse"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// AIHandler handles AI-assisted document actions
type AIHandler struct {
	aiService *service.AIService
}

// NewAIHandler creates a new AIHandler
func NewAIHandler(aiService *service.AIService) *AIHandler {
	return &AIHandler{aiService: aiService}
}

// RewriteRequest represents the rewrite request body. Apply replaces the
// document content and records the old content as a version.
type RewriteRequest struct {
	Action   domain.RewriteAction `json:"action" validate:"required"`
	Style    string               `json:"style" validate:"max=100"`
	Audience string               `json:"audience" validate:"max=200"`
	Keywords []string             `json:"keywords" validate:"max=20"`
	Target   domain.EntityRef     `json:"target"`
	Apply    bool                 `json:"apply"`
}

// EstimateRequest represents the estimate request body
type EstimateRequest struct {
	Text string `json:"text"`
}

// SearchRequest represents the semantic search request body
type SearchRequest struct {
	Query string `json:"query" validate:"required,max=500"`
}

func (r RewriteRequest) toDomain() domain.RewriteRequest {
	return domain.RewriteRequest{
		Action:   r.Action,
		Style:    r.Style,
		Audience: r.Audience,
		Keywords: r.Keywords,
		Target:   r.Target,
	}
}

// Rewrite godoc
// @Summary Rewrite a document with AI
// @Tags ai
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RewriteRequest true "Rewrite"
// @Success 200 {object} service.RewriteResult
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 429 {object} ProblemDetails
// @Failure 503 {object} ProblemDetails
// @Router /ai/rewrite [post]
func (h *AIHandler) Rewrite(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req RewriteRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	result, err := h.aiService.Rewrite(c.Request().Context(), scope, req.toDomain(), req.Apply)
	if err != nil {
		return respondError(c, err, "Failed to rewrite document")
	}

	log.Info().
		Str("workspace_id", scope.WorkspaceID.String()).
		Str("document_id", req.Target.ID.String()).
		Str("action", string(req.Action)).
		Bool("applied", result.Applied).
		Int("tokens", result.Estimate.Tokens).
		Msg("AI rewrite completed")

	return c.JSON(http.StatusOK, result)
}

// StreamRewrite godoc
// @Summary Rewrite a document with AI, streaming the output
// @Description Server-sent events: "chunk" events carry text, a final "done" event carries the result, "error" carries a problem
// @Tags ai
// @Accept json
// @Produce text/event-stream
// @Security BearerAuth
// @Param request body RewriteRequest true "Rewrite"
// @Success 200 {string} string "event stream"
// @Failure 400 {object} ProblemDetails
// @Router /ai/rewrite/stream [post]
func (h *AIHandler) StreamRewrite(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req RewriteRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if !h.aiService.IsEnabled() {
		return respondError(c, service.ErrLLMNotConfigured, "AI disabled")
	}

	res := c.Response()
	started := false
	start := func() {
		if started {
			return
		}
		started = true
		res.Header().Set(echo.HeaderContentType, "text/event-stream")
		res.Header().Set("Cache-Control", "no-cache")
		res.Header().Set("Connection", "keep-alive")
		res.WriteHeader(http.StatusOK)
	}

	result, err := h.aiService.StreamRewrite(c.Request().Context(), scope, req.toDomain(), req.Apply, func(chunk string) error {
		start()
		return writeEvent(res, "chunk", map[string]string{"text": chunk})
	})
	if err != nil {
		if !started {
			return respondError(c, err, "Failed to stream rewrite")
		}
		category := domain.Categorize(err)
		log.Error().Err(err).Str("category", string(category)).Msg("AI stream failed")
		return writeEvent(res, "error", ProblemDetails{
			Type:      ErrorTypeInternal,
			Title:     "Stream Failed",
			Status:    http.StatusInternalServerError,
			Detail:    domain.UserMessage(category),
			Category:  category,
			Retryable: domain.IsRetryable(category),
		})
	}

	start()
	return writeEvent(res, "done", result)
}

// writeEvent writes one server-sent event and flushes it
func writeEvent(res *echo.Response, event string, payload interface{}) error {
	if err := sse.Encode(res, sse.Event{Event: event, Data: payload}); err != nil {
		return err
	}
	res.Flush()
	return nil
}

// Estimate godoc
// @Summary Estimate tokens and cost for a text
// @Tags ai
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body EstimateRequest true "Text"
// @Success 200 {object} domain.TokenEstimate
// @Router /ai/estimate [post]
func (h *AIHandler) Estimate(c echo.Context) error {
	var req EstimateRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	return c.JSON(http.StatusOK, h.aiService.Estimate(req.Text))
}

// Search godoc
// @Summary Search documents with AI
// @Description Ranks documents of the active workspace by relevance to the query
// @Tags ai
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SearchRequest true "Query"
// @Success 200 {array} service.SearchResult
// @Failure 400 {object} ProblemDetails
// @Failure 503 {object} ProblemDetails
// @Router /ai/search [post]
func (h *AIHandler) Search(c echo.Context) error {
	scope := middleware.GetScope(c)
	if scope.IsZero() {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req SearchRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	results, err := h.aiService.Search(c.Request().Context(), scope, req.Query)
	if err != nil {
		return respondError(c, err, "Failed to search documents")
	}
	return c.JSON(http.StatusOK, results)
}
