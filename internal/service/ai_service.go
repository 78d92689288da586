package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/llm"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
)

const (
	maxSearchCandidates = 50
	searchSnippetLength = 240
	MaxSearchQuery      = 500
)

var ErrLLMNotConfigured = errors.New("ai features are not configured")

// LLM is the model invocation surface the AI service needs
type LLM interface {
	Invoke(ctx context.Context, req llm.Request) (string, error)
	InvokeJSON(ctx context.Context, req llm.Request, v any) error
	Stream(ctx context.Context, req llm.Request, onChunk func(string) error) (string, error)
}

// AIService runs AI-assisted document actions
type AIService struct {
	llm        LLM
	documents  *DocumentService
	pricePer1K decimal.Decimal
}

// NewAIService creates a new AIService. A nil client disables AI features.
func NewAIService(client LLM, documents *DocumentService, pricePer1K decimal.Decimal) *AIService {
	return &AIService{
		llm:        client,
		documents:  documents,
		pricePer1K: pricePer1K,
	}
}

// IsEnabled reports whether an LLM client is configured
func (s *AIService) IsEnabled() bool {
	return s != nil && s.llm != nil
}

// RewriteResult is the outcome of a rewrite, with the updated document when applied
type RewriteResult struct {
	Content  string               `json:"content"`
	Applied  bool                 `json:"applied"`
	Document *domain.Document     `json:"document,omitempty"`
	Estimate domain.TokenEstimate `json:"estimate"`
}

// Rewrite runs the request against the target document. When apply is set the
// result replaces the document content and the prior content becomes a version.
func (s *AIService) Rewrite(ctx context.Context, scope domain.Scope, req domain.RewriteRequest, apply bool) (*RewriteResult, error) {
	doc, system, prompt, err := s.prepare(ctx, scope, req)
	if err != nil {
		return nil, err
	}

	content, err := s.llm.Invoke(ctx, llm.Request{Prompt: prompt, SystemPrompt: system})
	if err != nil {
		log.Error().Err(err).Str("action", string(req.Action)).Str("document_id", doc.ID.String()).Msg("AI rewrite failed")
		return nil, err
	}
	return s.finish(ctx, scope, req, doc, prompt, content, apply)
}

// StreamRewrite is Rewrite over the streaming variant; onChunk receives text as it arrives
func (s *AIService) StreamRewrite(ctx context.Context, scope domain.Scope, req domain.RewriteRequest, apply bool, onChunk func(string) error) (*RewriteResult, error) {
	doc, system, prompt, err := s.prepare(ctx, scope, req)
	if err != nil {
		return nil, err
	}

	content, err := s.llm.Stream(ctx, llm.Request{Prompt: prompt, SystemPrompt: system}, onChunk)
	if err != nil {
		log.Error().Err(err).Str("action", string(req.Action)).Str("document_id", doc.ID.String()).Msg("AI rewrite stream failed")
		return nil, err
	}
	return s.finish(ctx, scope, req, doc, prompt, content, apply)
}

func (s *AIService) prepare(ctx context.Context, scope domain.Scope, req domain.RewriteRequest) (*domain.Document, string, string, error) {
	if !s.IsEnabled() {
		return nil, "", "", ErrLLMNotConfigured
	}
	if err := req.Validate(); err != nil {
		return nil, "", "", err
	}
	doc, err := s.documents.editable(ctx, scope, req.Target.ID)
	if err != nil {
		return nil, "", "", err
	}
	if strings.TrimSpace(doc.Content) == "" {
		return nil, "", "", domain.ErrNothingToRewrite
	}
	system, prompt := domain.BuildRewritePrompt(req, doc.Title, doc.Content)
	return doc, system, prompt, nil
}

func (s *AIService) finish(ctx context.Context, scope domain.Scope, req domain.RewriteRequest, doc *domain.Document, prompt, content string, apply bool) (*RewriteResult, error) {
	content = strings.TrimSpace(content)
	result := &RewriteResult{
		Content:  content,
		Estimate: s.Estimate(prompt),
	}
	if !apply {
		return result, nil
	}
	if content == "" {
		return nil, domain.ErrNothingToRewrite
	}

	// the model call can take a while; version against what is stored now
	current, err := s.documents.editable(ctx, scope, doc.ID)
	if err != nil {
		return nil, err
	}
	if current.Version != doc.Version {
		log.Warn().
			Str("document_id", doc.ID.String()).
			Int("prompt_version", doc.Version).
			Int("current_version", current.Version).
			Msg("Document changed during AI rewrite")
	}

	updated, err := s.documents.ReviseContent(ctx, scope, current, content, req.ChangeNotes())
	if err != nil {
		return nil, err
	}
	result.Applied = true
	result.Document = updated
	return result, nil
}

// Estimate approximates the token count and cost of text
func (s *AIService) Estimate(text string) domain.TokenEstimate {
	return domain.EstimateTokens(text, s.pricePer1K)
}

// SearchResult is one ranked document
type SearchResult struct {
	Document *domain.Document `json:"document"`
	Reason   string           `json:"reason,omitempty"`
}

type searchResponse struct {
	Results []struct {
		ID     string `json:"id"`
		Reason string `json:"reason"`
	} `json:"results"`
}

// Search ranks the active workspace's documents against query. Ids the model
// returns that were not offered as candidates are dropped.
func (s *AIService) Search(ctx context.Context, scope domain.Scope, query string) ([]SearchResult, error) {
	if !s.IsEnabled() {
		return nil, ErrLLMNotConfigured
	}
	query = strings.TrimSpace(query)
	if query == "" || utf8.RuneCountInString(query) > MaxSearchQuery {
		return nil, domain.ErrInvalidInput
	}

	docs, err := s.documents.ListDocuments(ctx, scope, DocumentFilter{}, ListOptions{
		Sort:  domain.SortSpec{Field: "updated_date", Descending: true},
		Limit: maxSearchCandidates,
	})
	if err != nil {
		return nil, err
	}
	results := []SearchResult{}
	if len(docs) == 0 {
		return results, nil
	}

	byID := make(map[uuid.UUID]*domain.Document, len(docs))
	candidates := make([]domain.SearchCandidate, 0, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
		candidates = append(candidates, domain.SearchCandidate{
			ID:      d.ID.String(),
			Title:   d.Title,
			Snippet: snippet(d.Content, searchSnippetLength),
		})
	}

	system, prompt := domain.BuildSearchPrompt(query, candidates)
	var resp searchResponse
	if err := s.llm.InvokeJSON(ctx, llm.Request{Prompt: prompt, SystemPrompt: system, JSON: true}, &resp); err != nil {
		log.Error().Err(err).Msg("AI search failed")
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(resp.Results))
	for _, r := range resp.Results {
		id, err := uuid.Parse(strings.TrimSpace(r.ID))
		if err != nil || seen[id] {
			continue
		}
		doc, ok := byID[id]
		if !ok {
			log.Debug().Str("id", r.ID).Msg("Discarding AI search result outside candidate set")
			continue
		}
		seen[id] = true
		results = append(results, SearchResult{Document: doc, Reason: r.Reason})
	}
	return results, nil
}

// plainText drops markup and decodes entities from stored HTML content
func plainText(content string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(content))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		default:
			b.WriteByte(' ')
		}
	}
}

// snippet strips markup and collapses whitespace, cut to at most n runes
func snippet(content string, n int) string {
	text := strings.Join(strings.Fields(plainText(content)), " ")
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "..."
}
