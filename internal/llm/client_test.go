package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/", APIKey: "test-key", Model: "test-model"})
}

func TestClient_Invoke(t *testing.T) {
	var received chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"<p>Rewritten</p>"}}]}`)
	})

	temp := 0.2
	out, err := client.Invoke(context.Background(), Request{
		Prompt:       "Rewrite this",
		SystemPrompt: "You are helpful",
		Temperature:  &temp,
		MaxTokens:    500,
	})

	require.NoError(t, err)
	assert.Equal(t, "<p>Rewritten</p>", out)
	assert.Equal(t, "test-model", received.Model)
	require.Len(t, received.Messages, 2)
	assert.Equal(t, "system", received.Messages[0].Role)
	assert.Equal(t, "Rewrite this", received.Messages[1].Content)
	assert.Equal(t, 500, received.MaxTokens)
	assert.Nil(t, received.ResponseFormat)
}

func TestClient_InvokeJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.ResponseFormat)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)
		content := "```json\n{\"results\":[{\"id\":\"a\"}]}\n```"
		resp := map[string]any{"choices": []any{map[string]any{"message": map[string]any{"content": content}}}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})

	var out struct {
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	err := client.InvokeJSON(context.Background(), Request{Prompt: "rank"}, &out)

	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "a", out.Results[0].ID)
}

func TestClient_InvokeAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
	})

	_, err := client.Invoke(context.Background(), Request{Prompt: "x"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode())
	assert.Equal(t, "bad key", apiErr.Message)
}

func TestClient_Stream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var chunks []string
	full, err := client.Stream(context.Background(), Request{Prompt: "hi"}, func(s string) error {
		chunks = append(chunks, s)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello", full)
	assert.Equal(t, []string{"Hel", "lo"}, chunks)
}

func TestClient_StreamOutlivesRequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for i := 0; i < 6; i++ {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":\"%d\"}}]}\n\n", i)
			w.(http.Flusher).Flush()
			time.Sleep(40 * time.Millisecond)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	client := NewClient(Config{BaseURL: srv.URL, Timeout: 100 * time.Millisecond, StreamIdleTimeout: time.Second})

	full, err := client.Stream(context.Background(), Request{Prompt: "hi"}, nil)

	require.NoError(t, err)
	assert.Equal(t, "012345", full)
}

func TestClient_StreamIdleTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	client := NewClient(Config{BaseURL: srv.URL, StreamIdleTimeout: 100 * time.Millisecond})

	start := time.Now()
	var chunks []string
	_, err := client.Stream(context.Background(), Request{Prompt: "hi"}, func(s string) error {
		chunks = append(chunks, s)
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"a"}, chunks)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_StreamStopsOnCallbackError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n\n")
	})

	stop := errors.New("client gone")
	_, err := client.Stream(context.Background(), Request{Prompt: "hi"}, func(string) error { return stop })

	assert.ErrorIs(t, err, stop)
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 3; i++ {
		_, err := client.Invoke(context.Background(), Request{Prompt: "x"})
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
	}

	_, err := client.Invoke(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 3, calls)
}

func TestClient_BreakerIgnoresClientErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	for i := 0; i < 5; i++ {
		_, err := client.Invoke(context.Background(), Request{Prompt: "x"})
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence(`{"a":1}`))
}
