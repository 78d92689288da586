package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the provider is failing and calls are short-circuited
var ErrCircuitOpen = errors.New("llm provider temporarily unavailable")

// Request is a single LLM invocation
type Request struct {
	Prompt       string
	SystemPrompt string
	Model        string
	Temperature  *float64
	MaxTokens    int
	// JSON asks the provider for a JSON object response
	JSON bool
}

// APIError is a non-2xx response from the provider
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm request failed with status %d: %s", e.Status, e.Message)
}

// StatusCode exposes the HTTP status for error categorization
func (e *APIError) StatusCode() int {
	return e.Status
}

// Config configures a Client
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	// Timeout bounds a whole non-streaming call and the wait for a stream's headers
	Timeout time.Duration
	// StreamIdleTimeout aborts a stream that sends nothing for this long
	StreamIdleTimeout time.Duration
}

// Client calls an OpenAI-compatible chat completions endpoint
type Client struct {
	httpClient   *http.Client
	streamClient *http.Client
	streamIdle   time.Duration
	baseURL      string
	apiKey       string
	model        string
	breaker      *gobreaker.CircuitBreaker
}

// NewClient creates a Client with its own circuit breaker
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	idle := cfg.StreamIdleTimeout
	if idle == 0 {
		idle = 60 * time.Second
	}
	// a long answer may stream for longer than timeout, so the stream client
	// only bounds the headers and relies on the idle watchdog after that
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		streamClient: &http.Client{Transport: transport},
		streamIdle:   idle,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "llm",
			MaxRequests: 1,
			Interval:    30 * time.Second,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			IsSuccessful: countsAsSuccess,
		}),
	}
}

// countsAsSuccess keeps caller mistakes and cancellations from tripping the breaker
func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 400 && apiErr.Status < 500 && apiErr.Status != http.StatusTooManyRequests
	}
	return false
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Stream         bool            `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
		Delta   chatMessage `json:"delta"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Invoke sends req and returns the full completion text
func (c *Client) Invoke(ctx context.Context, req Request) (string, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.do(ctx, req, false)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		var body chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return "", fmt.Errorf("decode llm response: %w", err)
		}
		if len(body.Choices) == 0 {
			return "", &APIError{Status: http.StatusBadGateway, Message: "response contained no choices"}
		}
		return body.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", mapBreakerError(err)
	}
	return out.(string), nil
}

// InvokeJSON invokes in JSON mode and decodes the response object into v
func (c *Client) InvokeJSON(ctx context.Context, req Request, v any) error {
	req.JSON = true
	text, err := c.Invoke(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(stripCodeFence(text)), v); err != nil {
		return fmt.Errorf("decode llm json: %w", err)
	}
	return nil
}

// Stream sends req with streaming enabled, calling onChunk for every text delta.
// It returns the full concatenated text. An error from onChunk stops the stream.
func (c *Client) Stream(ctx context.Context, req Request, onChunk func(string) error) (string, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		watchdog := newIdleWatchdog(c.streamIdle, cancel)
		defer watchdog.stop()

		resp, err := c.do(ctx, req, true)
		if err != nil {
			return "", watchdog.explain(err)
		}
		defer resp.Body.Close()
		text, err := readStream(watchdog.wrap(resp.Body), onChunk)
		return text, watchdog.explain(err)
	})
	if err != nil {
		return "", mapBreakerError(err)
	}
	return out.(string), nil
}

// idleWatchdog cancels a stream once no bytes have arrived for d
type idleWatchdog struct {
	d     time.Duration
	timer *time.Timer
	fired atomic.Bool
}

func newIdleWatchdog(d time.Duration, cancel context.CancelFunc) *idleWatchdog {
	w := &idleWatchdog{d: d}
	w.timer = time.AfterFunc(d, func() {
		w.fired.Store(true)
		cancel()
	})
	return w
}

func (w *idleWatchdog) wrap(r io.Reader) io.Reader {
	return readerFunc(func(p []byte) (int, error) {
		n, err := r.Read(p)
		if n > 0 {
			w.timer.Reset(w.d)
		}
		return n, err
	})
}

// explain reports a watchdog cancellation as a timeout rather than a caller cancel
func (w *idleWatchdog) explain(err error) error {
	if err != nil && w.fired.Load() {
		return fmt.Errorf("llm stream idle for %s: %w", w.d, context.DeadlineExceeded)
	}
	return err
}

func (w *idleWatchdog) stop() {
	w.timer.Stop()
}

type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

func readStream(body io.Reader, onChunk func(string) error) (string, error) {
	var full strings.Builder
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}
		var chunk chatResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return full.String(), fmt.Errorf("decode llm stream chunk: %w", err)
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		text := chunk.Choices[0].Delta.Content
		full.WriteString(text)
		if onChunk != nil {
			if err := onChunk(text); err != nil {
				return full.String(), err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("read llm stream: %w", err)
	}
	return full.String(), nil
}

func (c *Client) do(ctx context.Context, req Request, stream bool) (*http.Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	payload := chatRequest{
		Model:       model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
	if req.SystemPrompt != "" {
		payload.Messages = append(payload.Messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	payload.Messages = append(payload.Messages, chatMessage{Role: "user", Content: req.Prompt})
	if req.JSON {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	client := c.httpClient
	if stream {
		client = c.streamClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, readAPIError(resp)
	}
	return resp, nil
}

func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var parsed errorResponse
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &parsed) == nil && parsed.Error.Message != "" {
		msg = parsed.Error.Message
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

func mapBreakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

// stripCodeFence removes a ```json fence some models wrap JSON output in
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
