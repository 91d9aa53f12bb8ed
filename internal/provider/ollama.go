package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mindwell/recall/pkg/types"
)

// OllamaConfig holds the local inference endpoint configuration.
type OllamaConfig struct {
	// BaseURL is the Ollama API endpoint (default: http://localhost:11434).
	BaseURL string
	// Model is the model name (default: qwen2.5:7b).
	Model string
	// Timeout bounds each request (default: 120s; local generation is slow).
	Timeout time.Duration
}

// OllamaProvider generates text against a local Ollama instance. It is the
// on-device path: routing sends it everything the privacy policy keeps off
// the network.
type OllamaProvider struct {
	cfg     OllamaConfig
	client  *http.Client
	breaker *breaker
}

// NewOllamaProvider creates the on-device provider with defaults applied.
func NewOllamaProvider(cfg OllamaConfig) *OllamaProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "qwen2.5:7b"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &OllamaProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: newBreaker("ollama", DefaultBreakerConfig()),
	}
}

func (p *OllamaProvider) Identifier() string  { return "ollama" }
func (p *OllamaProvider) DisplayName() string { return "Ollama (local)" }

// IsOnDevice is true: Ollama serves from local compute.
func (p *OllamaProvider) IsOnDevice() bool           { return true }
func (p *OllamaProvider) SupportsPersonalData() bool { return true }
func (p *OllamaProvider) MaxContextLength() int      { return 32768 }

func (p *OllamaProvider) EstimatedResponseTime() time.Duration { return 8 * time.Second }

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	EvalCount int    `json:"eval_count"`
}

// GenerateResponse renders the context into a prompt and completes it
// locally. Calls go through the circuit breaker so a wedged local server
// fails fast instead of piling up requests.
func (p *OllamaProvider) GenerateResponse(ctx context.Context, prompt string, memCtx *types.MemoryContext) (*GenerationResult, error) {
	result, err := p.breaker.execute(ctx, func() (any, error) {
		return p.generate(ctx, BuildPrompt(prompt, memCtx))
	})
	if err != nil {
		return nil, err
	}
	return result.(*GenerationResult), nil
}

func (p *OllamaProvider) generate(ctx context.Context, prompt string) (*GenerationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  p.cfg.Model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, classifyHTTPError(resp, string(raw))
	}

	var out ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: ollama: decode response: %v", ErrGenerationFailed, err)
	}

	return &GenerationResult{
		Content:    out.Response,
		Confidence: 0.7,
		TokensUsed: out.EvalCount,
		ModelUsed:  p.cfg.Model,
		IsOnDevice: true,
	}, nil
}

// Prepare verifies the local server is reachable.
func (p *OllamaProvider) Prepare(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/api/version", nil)
	if err != nil {
		return fmt.Errorf("ollama: failed to create health check request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ollama health check: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ollama health check returned status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// Cleanup has nothing to release; the HTTP client holds no pinned resources.
func (p *OllamaProvider) Cleanup(context.Context) error { return nil }

var _ GenerationProvider = (*OllamaProvider)(nil)
