package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/llm"
	"github.com/dafibh/proflow/proflow-backend/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rewriteBody(docID string, apply bool) map[string]interface{} {
	return map[string]interface{}{
		"action": "rewrite",
		"style":  "formal",
		"target": map[string]string{"collection": string(domain.CollectionDocuments), "id": docID},
		"apply":  apply,
	}
}

func TestRewrite_Apply(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewAIHandler(env.ai)

	doc, err := env.documents.CreateDocument(context.Background(), env.session.Scope(), service.CreateDocumentInput{Title: "Plan", Content: "<p>draft</p>"})
	require.NoError(t, err)

	rec := env.call(h.Rewrite, env.session, http.MethodPost, "/api/v1/ai/rewrite", rewriteBody(doc.ID.String(), true))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := env.documents.GetDocument(context.Background(), env.session.Scope(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "<p>Improved</p>", stored.Content)
	assert.Len(t, stored.VersionHistory, 1)
}

func TestRewrite_Disabled(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewAIHandler(service.NewAIService(nil, env.documents, decimal.Zero))

	doc, err := env.documents.CreateDocument(context.Background(), env.session.Scope(), service.CreateDocumentInput{Title: "Plan", Content: "<p>draft</p>"})
	require.NoError(t, err)

	rec := env.call(h.Rewrite, env.session, http.MethodPost, "/api/v1/ai/rewrite", rewriteBody(doc.ID.String(), true))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = env.call(h.StreamRewrite, env.session, http.MethodPost, "/api/v1/ai/rewrite/stream", rewriteBody(doc.ID.String(), true))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Header().Get("Content-Type"), "text/event-stream")
}

func TestStreamRewrite_Events(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewAIHandler(env.ai)
	env.llm.Chunks = []string{"Stre", "amed"}

	doc, err := env.documents.CreateDocument(context.Background(), env.session.Scope(), service.CreateDocumentInput{Title: "Plan", Content: "<p>draft</p>"})
	require.NoError(t, err)

	rec := env.call(h.StreamRewrite, env.session, http.MethodPost, "/api/v1/ai/rewrite/stream", rewriteBody(doc.ID.String(), false))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Equal(t, 2, strings.Count(body, "event:chunk\n"))
	assert.Contains(t, body, `data:{"text":"Stre"}`)
	assert.Contains(t, body, `data:{"text":"amed"}`)
	assert.Less(t, strings.Index(body, "event:chunk\n"), strings.Index(body, "event:done\n"))
	assert.NotContains(t, body, "event:error")
}

func TestStreamRewrite_CrossWorkspaceBeforeStream(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewAIHandler(env.ai)

	doc, err := env.documents.CreateDocument(context.Background(), env.otherSession.Scope(), service.CreateDocumentInput{Title: "Theirs", Content: "<p>x</p>"})
	require.NoError(t, err)

	rec := env.call(h.StreamRewrite, env.session, http.MethodPost, "/api/v1/ai/rewrite/stream", rewriteBody(doc.ID.String(), true))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, env.llm.RequestCount())
}

func TestStreamRewrite_ProviderFailure(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewAIHandler(env.ai)
	env.llm.Err = &llm.APIError{Status: 503, Message: "overloaded"}

	doc, err := env.documents.CreateDocument(context.Background(), env.session.Scope(), service.CreateDocumentInput{Title: "Plan", Content: "<p>draft</p>"})
	require.NoError(t, err)

	rec := env.call(h.StreamRewrite, env.session, http.MethodPost, "/api/v1/ai/rewrite/stream", rewriteBody(doc.ID.String(), true))

	// nothing was streamed so the failure is a plain problem response
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	problem := decodeProblem(t, rec)
	assert.Equal(t, domain.CategoryServer, problem.Category)
	assert.True(t, problem.Retryable)
}

func TestEstimate(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewAIHandler(env.ai)

	rec := env.call(h.Estimate, nil, http.MethodPost, "/api/v1/ai/estimate", EstimateRequest{Text: strings.Repeat("a", 400)})
	require.Equal(t, http.StatusOK, rec.Code)

	est := decodeBody[domain.TokenEstimate](t, rec)
	assert.Equal(t, 400, est.Characters)
	assert.Equal(t, 100, est.Tokens)
}

func TestSearch_RequiresQuery(t *testing.T) {
	env := newHandlerEnv(t)
	h := NewAIHandler(env.ai)

	rec := env.call(h.Search, env.session, http.MethodPost, "/api/v1/ai/search", SearchRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, env.llm.RequestCount())
}
