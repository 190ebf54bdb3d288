package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func writeJSON(t *testing.T, w http.ResponseWriter, payload any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func newTestClient(serverURL string, opts ...Option) *Client {
	opts = append([]Option{WithSleeper(func(time.Duration) {})}, opts...)
	return NewClient(Config{APIKey: "test-key", BaseURL: serverURL, Model: "demo-model"}, opts...)
}

func TestChatSendsHeadersAndReturnsFirstText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Fatalf("x-api-key = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != anthropicVersion {
			t.Fatalf("anthropic-version = %q", got)
		}
		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "demo-model" || req.MaxTokens != defaultChatMaxTokens {
			t.Fatalf("unexpected request: %+v", req)
		}
		if req.System != "be kind" {
			t.Fatalf("system = %q", req.System)
		}
		if len(req.Messages) != 2 || req.Messages[1].Role != RoleAssistant {
			t.Fatalf("messages = %+v", req.Messages)
		}
		if len(req.Tools) != 0 || req.ToolChoice != nil {
			t.Fatalf("chat must not send tools: %+v", req)
		}
		writeJSON(t, w, map[string]any{
			"type": "message",
			"content": []any{
				map[string]any{"type": "text", "text": "What matters most to you?"},
				map[string]any{"type": "text", "text": "ignored"},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	reply, err := client.Chat(context.Background(), []Message{
		UserMessage("Hello"),
		AssistantMessage("Hi"),
	}, "be kind")
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if reply != "What matters most to you?" {
		t.Fatalf("reply = %q", reply)
	}
}

func TestChatWithoutTextBlockReturnsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"content": []any{}})
	}))
	defer server.Close()

	reply, err := newTestClient(server.URL).Chat(context.Background(), []Message{UserMessage("hi")}, "")
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if reply != "" {
		t.Fatalf("expected empty reply, got %q", reply)
	}
}

func TestGenerateStructuredForcesTool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ToolChoice == nil || req.ToolChoice.Type != "tool" || req.ToolChoice.Name != structuredToolName {
			t.Fatalf("tool_choice = %+v", req.ToolChoice)
		}
		if len(req.Tools) != 1 || req.Tools[0].Description != "Output data matching the MindMovieSpec schema." {
			t.Fatalf("tools = %+v", req.Tools)
		}
		if req.Tools[0].InputSchema["type"] != "object" {
			t.Fatalf("input_schema = %v", req.Tools[0].InputSchema)
		}
		if req.MaxTokens != defaultMaxTokens {
			t.Fatalf("max_tokens = %d", req.MaxTokens)
		}
		writeJSON(t, w, map[string]any{
			"content": []any{
				map[string]any{"type": "text", "text": "Here you go"},
				map[string]any{"type": "tool_use", "id": "tu_1", "name": structuredToolName, "input": map[string]any{"title": "My Vision"}},
			},
			"stop_reason": "tool_use",
		})
	}))
	defer server.Close()

	schema := Schema{Name: "MindMovieSpec", JSON: map[string]any{"type": "object"}}
	out, err := newTestClient(server.URL).GenerateStructured(context.Background(), []Message{UserMessage("go")}, schema, "sys")
	if err != nil {
		t.Fatalf("GenerateStructured returned error: %v", err)
	}
	if out["title"] != "My Vision" {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestGenerateStructuredParsesStringInput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"content": []any{
				map[string]any{"type": "tool_use", "name": structuredToolName, "input": `{"music_mood":"uplifting"}`},
			},
		})
	}))
	defer server.Close()

	schema := Schema{Name: "MindMovieSpec", JSON: map[string]any{"type": "object"}}
	out, err := newTestClient(server.URL).GenerateStructured(context.Background(), []Message{UserMessage("go")}, schema, "")
	if err != nil {
		t.Fatalf("GenerateStructured returned error: %v", err)
	}
	if out["music_mood"] != "uplifting" {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestGenerateStructuredWithoutToolUse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"content":     []any{map[string]any{"type": "text", "text": "sorry"}},
			"stop_reason": "end_turn",
		})
	}))
	defer server.Close()

	schema := Schema{Name: "MindMovieSpec", JSON: map[string]any{"type": "object"}}
	_, err := newTestClient(server.URL).GenerateStructured(context.Background(), []Message{UserMessage("go")}, schema, "")
	if !errors.Is(err, ErrNoStructuredOutput) {
		t.Fatalf("expected ErrNoStructuredOutput, got %v", err)
	}
}

func TestRetriesOverloadedThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(529)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
			return
		}
		writeJSON(t, w, map[string]any{"content": []any{map[string]any{"type": "text", "text": "ok"}}})
	}))
	defer server.Close()

	var delays []time.Duration
	client := NewClient(Config{APIKey: "k", BaseURL: server.URL},
		WithSleeper(func(d time.Duration) { delays = append(delays, d) }),
	)
	reply, err := client.Chat(context.Background(), []Message{UserMessage("hi")}, "")
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if reply != "ok" || calls.Load() != 3 {
		t.Fatalf("reply=%q calls=%d", reply, calls.Load())
	}
	if len(delays) != 2 || delays[0] != 4*time.Second || delays[1] != 8*time.Second {
		t.Fatalf("unexpected backoff delays: %v", delays)
	}
}

func TestRetryHonoursRetryAfter(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(t, w, map[string]any{"content": []any{map[string]any{"type": "text", "text": "ok"}}})
	}))
	defer server.Close()

	var delays []time.Duration
	client := NewClient(Config{APIKey: "k", BaseURL: server.URL},
		WithSleeper(func(d time.Duration) { delays = append(delays, d) }),
	)
	if _, err := client.Chat(context.Background(), []Message{UserMessage("hi")}, ""); err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if len(delays) != 1 || delays[0] != 7*time.Second {
		t.Fatalf("expected Retry-After delay, got %v", delays)
	}
}

func TestAuthErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Chat(context.Background(), []Message{UserMessage("hi")}, "")
	if err == nil {
		t.Fatal("expected error")
	}
	var statusErr *httpStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 status error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Chat(context.Background(), []Message{UserMessage("hi")}, "")
	if err == nil || !strings.Contains(err.Error(), "failed after 3 attempts") {
		t.Fatalf("expected exhausted retries, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestMissingAPIKey(t *testing.T) {
	client := NewClient(Config{})
	if _, err := client.Chat(context.Background(), []Message{UserMessage("hi")}, ""); err == nil {
		t.Fatal("expected api key error")
	}
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check error")
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"content": []any{map[string]any{"type": "text", "text": "ok"}}})
	}))
	defer server.Close()

	if err := newTestClient(server.URL).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestBackoffDelayCaps(t *testing.T) {
	client := NewClient(Config{})
	if got := client.backoffDelay(1); got != 4*time.Second {
		t.Fatalf("attempt 1 = %s", got)
	}
	if got := client.backoffDelay(10); got != 60*time.Second {
		t.Fatalf("attempt 10 = %s", got)
	}
}

func TestDecodeLLMJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "plain", content: `{"ok":true}`},
		{name: "fenced", content: "```json\n{\"ok\":true}\n```"},
		{name: "prose", content: "Sure! {\"ok\":true} Hope that helps."},
		{name: "empty", content: "   ", wantErr: true},
		{name: "garbage", content: "no json here", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				OK bool `json:"ok"`
			}
			err := DecodeLLMJSON(tt.content, &out)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeLLMJSON returned error: %v", err)
			}
			if !out.OK {
				t.Fatalf("expected ok=true")
			}
		})
	}
}
