package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
)

func chatReply(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

func testConfig(url string) Config {
	return Config{APIKey: "sk-test", BaseURL: url, Model: "test-model", Backoff: time.Millisecond}
}

func TestCompleteSendsPrompt(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(chatReply("hello back"))
	}))
	defer srv.Close()

	chat, err := NewChat(testConfig(srv.URL), "You are a software analyst.")
	if err != nil {
		t.Fatalf("NewChat error: %v", err)
	}
	reply, err := chat.Complete(context.Background(), "hello", 600)
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if reply != "hello back" {
		t.Errorf("reply = %q, want %q", reply, "hello back")
	}
	if got.Model != "test-model" {
		t.Errorf("model = %q", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "hello" {
		t.Errorf("unexpected messages: %+v", got.Messages)
	}
	if got.MaxTokens != 600 {
		t.Errorf("max_tokens = %d, want 600", got.MaxTokens)
	}
}

func TestCompleteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"error":{"message":"upstream down","type":"server_error"}}`))
			return
		}
		json.NewEncoder(w).Encode(chatReply("ok"))
	}))
	defer srv.Close()

	chat, err := NewChat(testConfig(srv.URL), "")
	if err != nil {
		t.Fatalf("NewChat error: %v", err)
	}
	reply, err := chat.Complete(context.Background(), "hi", 0)
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if reply != "ok" || calls.Load() != 3 {
		t.Errorf("reply = %q after %d calls, want ok after 3", reply, calls.Load())
	}
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	chat, _ := NewChat(testConfig(srv.URL), "")
	if _, err := chat.Complete(context.Background(), "hi", 0); err == nil {
		t.Fatal("expected error for 401")
	}
	if calls.Load() != 1 {
		t.Errorf("got %d calls, want 1 (no retry on 4xx)", calls.Load())
	}
}

func TestNewClientRequiresKeyOrURL(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Error("expected error without key or base URL")
	}
	if _, err := NewClient(Config{BaseURL: "http://localhost:11434/v1"}); err != nil {
		t.Errorf("local base URL without key should be accepted: %v", err)
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{fmt.Errorf("wrap: %w", context.DeadlineExceeded), false},
		{&openai.APIError{HTTPStatusCode: 429}, true},
		{&openai.APIError{HTTPStatusCode: 503}, true},
		{&openai.APIError{HTTPStatusCode: 400}, false},
		{&openai.RequestError{HTTPStatusCode: 500, Err: errors.New("x")}, true},
		{errors.New("plain"), false},
	}
	for _, tt := range tests {
		if got := Retryable(tt.err); got != tt.want {
			t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
