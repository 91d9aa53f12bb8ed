package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/mindwell/recall/pkg/types"
)

// AnthropicConfig holds the Anthropic Messages API configuration.
type AnthropicConfig struct {
	APIKey  string
	Model   string        // default: claude-haiku-4-5-20251001
	BaseURL string        // default: https://api.anthropic.com
	Timeout time.Duration // default: 60s

	// AllowPersonalData declares whether this deployment is cleared to
	// receive personal content. Defaults to false.
	AllowPersonalData bool

	// RequestsPerMinute caps the outbound request rate (default: 50).
	RequestsPerMinute int
}

// AnthropicProvider generates text against the Anthropic Messages API.
type AnthropicProvider struct {
	cfg     AnthropicConfig
	client  *http.Client
	breaker *breaker
	limiter *rate.Limiter
	retry   RetryPolicy
}

// NewAnthropicProvider creates the cloud provider with defaults applied.
func NewAnthropicProvider(cfg AnthropicConfig) *AnthropicProvider {
	if cfg.Model == "" {
		cfg.Model = "claude-haiku-4-5-20251001"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = 50
	}
	return &AnthropicProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: newBreaker("anthropic", DefaultBreakerConfig()),
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute/6+1),
		retry:   DefaultRetryPolicy(),
	}
}

func (p *AnthropicProvider) Identifier() string         { return "anthropic" }
func (p *AnthropicProvider) DisplayName() string        { return "Anthropic" }
func (p *AnthropicProvider) IsOnDevice() bool           { return false }
func (p *AnthropicProvider) SupportsPersonalData() bool { return p.cfg.AllowPersonalData }
func (p *AnthropicProvider) MaxContextLength() int      { return 200000 }

func (p *AnthropicProvider) EstimatedResponseTime() time.Duration { return 4 * time.Second }

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// GenerateResponse completes the prompt over the Messages API with rate
// limiting, circuit breaking, and bounded retries on transient failures.
func (p *AnthropicProvider) GenerateResponse(ctx context.Context, prompt string, memCtx *types.MemoryContext) (*GenerationResult, error) {
	full := BuildPrompt(prompt, memCtx)

	var out *GenerationResult
	err := Retry(ctx, p.retry, func() error {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
		result, err := p.breaker.execute(ctx, func() (any, error) {
			return p.message(ctx, full)
		})
		if err != nil {
			return err
		}
		out = result.(*GenerationResult)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *AnthropicProvider) message(ctx context.Context, prompt string) (*GenerationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(anthropicRequest{
		Model:     p.cfg.Model,
		MaxTokens: 4096,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("anthropic: failed to create request: %w", err)
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: anthropic: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, classifyHTTPError(resp, string(raw))
	}

	var out anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: anthropic: decode response: %v", ErrGenerationFailed, err)
	}
	if len(out.Content) == 0 {
		return nil, fmt.Errorf("%w: anthropic: empty content", ErrGenerationFailed)
	}

	return &GenerationResult{
		Content:    out.Content[0].Text,
		Confidence: 0.85,
		TokensUsed: out.Usage.InputTokens + out.Usage.OutputTokens,
		ModelUsed:  p.cfg.Model,
		IsOnDevice: false,
	}, nil
}

// Prepare validates that an API key is configured.
func (p *AnthropicProvider) Prepare(context.Context) error {
	if p.cfg.APIKey == "" {
		return fmt.Errorf("%w: anthropic: missing API key", ErrAuthenticationFailed)
	}
	return nil
}

func (p *AnthropicProvider) Cleanup(context.Context) error { return nil }

var _ GenerationProvider = (*AnthropicProvider)(nil)
