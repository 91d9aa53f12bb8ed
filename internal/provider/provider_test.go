package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mindwell/recall/pkg/types"
)

func TestOllamaGenerateResponse(t *testing.T) {
	var gotReq ollamaGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %q, want /api/generate", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaGenerateResponse{
			Response:  "You have a budget meeting at 3pm.",
			Done:      true,
			EvalCount: 42,
		})
	}))
	defer srv.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: srv.URL, Model: "qwen2.5:7b"})
	memCtx := &types.MemoryContext{
		UserQuery: "what's on today",
		ShortTermMemories: []types.ShortTermMemory{
			{ID: "stm-1", Content: "Budget meeting moved to 3pm"},
		},
	}
	result, err := p.GenerateResponse(context.Background(), "what's on today", memCtx)
	if err != nil {
		t.Fatalf("GenerateResponse failed: %v", err)
	}
	if result.Content != "You have a budget meeting at 3pm." {
		t.Errorf("Content = %q", result.Content)
	}
	if !result.IsOnDevice {
		t.Error("IsOnDevice = false for the local provider")
	}
	if result.TokensUsed != 42 {
		t.Errorf("TokensUsed = %d, want 42", result.TokensUsed)
	}
	if result.ModelUsed != "qwen2.5:7b" {
		t.Errorf("ModelUsed = %q", result.ModelUsed)
	}
	if gotReq.Stream {
		t.Error("request asked for streaming")
	}
	if !strings.Contains(gotReq.Prompt, "Budget meeting moved to 3pm") {
		t.Errorf("prompt missing memory content: %q", gotReq.Prompt)
	}
	if !strings.Contains(gotReq.Prompt, "what's on today") {
		t.Errorf("prompt missing the question: %q", gotReq.Prompt)
	}
}

func TestOllamaServerErrorIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: srv.URL})
	_, err := p.GenerateResponse(context.Background(), "hello", nil)
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("err = %v, want ErrNetwork", err)
	}
}

func TestOllamaPrepare(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/version" {
			t.Errorf("path = %q, want /api/version", r.URL.Path)
		}
		w.Write([]byte(`{"version":"0.5.0"}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: srv.URL})
	if err := p.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	down := NewOllamaProvider(OllamaConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	if err := down.Prepare(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Prepare against a dead endpoint = %v, want ErrUnavailable", err)
	}
}

func TestOpenAIGenerateResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "Paris."}},
			},
			"usage": map[string]int{"total_tokens": 17},
		})
	}))
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	result, err := p.GenerateResponse(context.Background(), "capital of France", nil)
	if err != nil {
		t.Fatalf("GenerateResponse failed: %v", err)
	}
	if result.Content != "Paris." {
		t.Errorf("Content = %q", result.Content)
	}
	if result.IsOnDevice {
		t.Error("IsOnDevice = true for a cloud provider")
	}
	if result.TokensUsed != 17 {
		t.Errorf("TokensUsed = %d, want 17", result.TokensUsed)
	}
}

func TestOpenAIAuthFailureNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-bad", BaseURL: srv.URL})
	p.retry = fastPolicy()
	_, err := p.GenerateResponse(context.Background(), "hello", nil)
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("err = %v, want ErrAuthenticationFailed", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (auth failures are terminal)", calls)
	}
}

func TestOpenAIRateLimitRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "ok"}},
			},
		})
	}))
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	p.retry = fastPolicy()
	result, err := p.GenerateResponse(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("GenerateResponse failed: %v", err)
	}
	if result.Content != "ok" {
		t.Errorf("Content = %q", result.Content)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (one rate-limited, one success)", calls)
	}
}

func TestOpenAIPrepareRequiresKey(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{})
	if err := p.Prepare(context.Background()); !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("Prepare without a key = %v, want ErrAuthenticationFailed", err)
	}
	withKey := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test"})
	if err := withKey.Prepare(context.Background()); err != nil {
		t.Errorf("Prepare with a key failed: %v", err)
	}
}

func TestAnthropicGenerateResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "sk-ant-test" {
			t.Errorf("x-api-key = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got == "" {
			t.Error("anthropic-version header missing")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": "The Eiffel Tower."}},
			"usage":   map[string]int{"input_tokens": 12, "output_tokens": 5},
		})
	}))
	defer srv.Close()

	p := NewAnthropicProvider(AnthropicConfig{APIKey: "sk-ant-test", BaseURL: srv.URL})
	result, err := p.GenerateResponse(context.Background(), "famous Paris landmark", nil)
	if err != nil {
		t.Fatalf("GenerateResponse failed: %v", err)
	}
	if result.Content != "The Eiffel Tower." {
		t.Errorf("Content = %q", result.Content)
	}
	if result.TokensUsed != 17 {
		t.Errorf("TokensUsed = %d, want input+output = 17", result.TokensUsed)
	}
}

func TestSupportsPersonalDataFollowsConfig(t *testing.T) {
	if NewOpenAIProvider(OpenAIConfig{}).SupportsPersonalData() {
		t.Error("OpenAI defaults to not accepting personal data")
	}
	if !NewOpenAIProvider(OpenAIConfig{AllowPersonalData: true}).SupportsPersonalData() {
		t.Error("AllowPersonalData not honored")
	}
	if !NewOllamaProvider(OllamaConfig{}).SupportsPersonalData() {
		t.Error("the local provider always accepts personal data")
	}
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: srv.URL})
	for i := 0; i < 5; i++ {
		p.GenerateResponse(context.Background(), "hello", nil)
	}
	_, err := p.GenerateResponse(context.Background(), "hello", nil)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err after repeated failures = %v, want ErrCircuitOpen", err)
	}
}

func TestFactoryNew(t *testing.T) {
	tests := []struct {
		kind   string
		wantID string
	}{
		{"", "ollama"},
		{"ollama", "ollama"},
		{"openai", "openai"},
		{"anthropic", "anthropic"},
	}
	for _, tt := range tests {
		p, err := New(Settings{Kind: tt.kind, APIKey: "k"})
		if err != nil {
			t.Fatalf("New(%q) failed: %v", tt.kind, err)
		}
		if p.Identifier() != tt.wantID {
			t.Errorf("New(%q).Identifier() = %q, want %q", tt.kind, p.Identifier(), tt.wantID)
		}
	}
	if _, err := New(Settings{Kind: "bedrock"}); err == nil {
		t.Error("expected an error for an unsupported kind")
	}
}

func TestBuildPrompt(t *testing.T) {
	memCtx := &types.MemoryContext{
		ShortTermMemories: []types.ShortTermMemory{{Content: "Meeting moved to 3pm"}},
		LongTermMemories:  []types.LongTermMemory{{Content: "Works at Acme"}},
		Entities:          []types.Entity{{Name: "Acme", Type: types.EntityTypeOrganization}},
	}
	prompt := BuildPrompt("when is the meeting", memCtx)
	for _, want := range []string{"Recent memories:", "Meeting moved to 3pm", "Established knowledge:", "Acme", "Question: when is the meeting"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}

	if got := BuildPrompt("bare question", nil); got != "bare question" {
		t.Errorf("nil context prompt = %q, want the bare question", got)
	}
}
