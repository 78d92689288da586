package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidRewriteAction = errors.New("invalid rewrite action")
	ErrNothingToRewrite     = errors.New("document has no content to rewrite")
)

type RewriteAction string

const (
	RewriteActionRewrite    RewriteAction = "rewrite"
	RewriteActionSummarize  RewriteAction = "summarize"
	RewriteActionExpand     RewriteAction = "expand"
	RewriteActionSimplify   RewriteAction = "simplify"
	RewriteActionFixGrammar RewriteAction = "fix_grammar"
)

var rewriteInstructions = map[RewriteAction]string{
	RewriteActionRewrite:    "Rewrite the document below.",
	RewriteActionSummarize:  "Summarize the document below.",
	RewriteActionExpand:     "Expand the document below with more detail.",
	RewriteActionSimplify:   "Simplify the document below so it is easier to read.",
	RewriteActionFixGrammar: "Fix spelling and grammar in the document below without changing its meaning.",
}

// RewriteRequest describes one AI action against a target entity
type RewriteRequest struct {
	Action   RewriteAction `json:"action"`
	Style    string        `json:"style,omitempty"`
	Audience string        `json:"audience,omitempty"`
	Keywords []string      `json:"keywords,omitempty"`
	Target   EntityRef     `json:"target"`
}

// Validate checks the action and target
func (r RewriteRequest) Validate() error {
	if _, ok := rewriteInstructions[r.Action]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidRewriteAction, r.Action)
	}
	if r.Target.Collection != CollectionDocuments {
		return fmt.Errorf("%w: unsupported target %q", ErrInvalidInput, r.Target.Collection)
	}
	return nil
}

// ChangeNotes is the version-history note recorded when the rewrite is applied
func (r RewriteRequest) ChangeNotes() string {
	notes := "AI " + strings.ReplaceAll(string(r.Action), "_", " ")
	if r.Style != "" {
		notes += " (" + r.Style + ")"
	}
	return notes
}

const rewriteSystemPrompt = "You are a writing assistant for project documents. " +
	"Return only the resulting document as HTML, without commentary."

// BuildRewritePrompt produces the system and user prompts for a rewrite request
func BuildRewritePrompt(req RewriteRequest, title, content string) (system, prompt string) {
	var sb strings.Builder
	sb.WriteString(rewriteInstructions[req.Action])
	sb.WriteString("\n")
	if req.Style != "" {
		sb.WriteString(fmt.Sprintf("Style: %s\n", req.Style))
	}
	if req.Audience != "" {
		sb.WriteString(fmt.Sprintf("Audience: %s\n", req.Audience))
	}
	if kw := cleanKeywords(req.Keywords); len(kw) > 0 {
		sb.WriteString(fmt.Sprintf("Include these keywords: %s\n", strings.Join(kw, ", ")))
	}
	if title != "" {
		sb.WriteString(fmt.Sprintf("\nTitle: %s\n", title))
	}
	sb.WriteString("\nDocument:\n")
	sb.WriteString(content)
	return rewriteSystemPrompt, sb.String()
}

func cleanKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// SearchCandidate is a document offered to the model during AI search
type SearchCandidate struct {
	ID      string
	Title   string
	Snippet string
}

const searchSystemPrompt = "You rank project documents by relevance to a search query. " +
	`Respond with JSON of the form {"results":[{"id":"...","reason":"..."}]} using only ids from the list.`

// BuildSearchPrompt lists candidate documents and the query for ranking
func BuildSearchPrompt(query string, candidates []SearchCandidate) (system, prompt string) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Query: %s\n\nDocuments:\n", query))
	for _, c := range candidates {
		sb.WriteString(fmt.Sprintf("- id=%s title=%q\n  %s\n", c.ID, c.Title, c.Snippet))
	}
	return searchSystemPrompt, sb.String()
}

// CharsPerToken is the rough ratio used for display-only token estimates
const CharsPerToken = 4

// TokenEstimate is a display-only approximation of prompt size and cost
type TokenEstimate struct {
	Characters    int             `json:"characters"`
	Tokens        int             `json:"tokens"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
}

// EstimateTokens approximates tokens as ceil(chars/4) and prices them per 1K tokens
func EstimateTokens(text string, pricePer1K decimal.Decimal) TokenEstimate {
	chars := utf8.RuneCountInString(text)
	tokens := (chars + CharsPerToken - 1) / CharsPerToken
	cost := pricePer1K.Mul(decimal.NewFromInt(int64(tokens))).Div(decimal.NewFromInt(1000)).Round(6)
	return TokenEstimate{
		Characters:    chars,
		Tokens:        tokens,
		EstimatedCost: cost,
	}
}
