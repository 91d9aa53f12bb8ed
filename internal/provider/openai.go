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

// OpenAIConfig holds the OpenAI-compatible endpoint configuration.
type OpenAIConfig struct {
	APIKey  string
	Model   string        // default: gpt-4o-mini
	BaseURL string        // default: https://api.openai.com/v1
	Timeout time.Duration // default: 60s

	// AllowPersonalData declares whether this deployment is cleared to
	// receive personal content. Defaults to false; routing then restricts
	// this provider to public-knowledge queries.
	AllowPersonalData bool

	// RequestsPerMinute caps the outbound request rate (default: 60).
	RequestsPerMinute int
}

// OpenAIProvider generates text against an OpenAI-compatible chat API.
// Cloud-hosted: routing never sends it content that requires on-device
// processing.
type OpenAIProvider struct {
	cfg     OpenAIConfig
	client  *http.Client
	breaker *breaker
	limiter *rate.Limiter
	retry   RetryPolicy
}

// NewOpenAIProvider creates the cloud provider with defaults applied.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = 60
	}
	return &OpenAIProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: newBreaker("openai", DefaultBreakerConfig()),
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute/6+1),
		retry:   DefaultRetryPolicy(),
	}
}

func (p *OpenAIProvider) Identifier() string         { return "openai" }
func (p *OpenAIProvider) DisplayName() string        { return "OpenAI" }
func (p *OpenAIProvider) IsOnDevice() bool           { return false }
func (p *OpenAIProvider) SupportsPersonalData() bool { return p.cfg.AllowPersonalData }
func (p *OpenAIProvider) MaxContextLength() int      { return 128000 }

func (p *OpenAIProvider) EstimatedResponseTime() time.Duration { return 3 * time.Second }

type openAIChatRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// GenerateResponse completes the prompt over the chat API with rate
// limiting, circuit breaking, and bounded retries on transient failures.
func (p *OpenAIProvider) GenerateResponse(ctx context.Context, prompt string, memCtx *types.MemoryContext) (*GenerationResult, error) {
	full := BuildPrompt(prompt, memCtx)

	var out *GenerationResult
	err := Retry(ctx, p.retry, func() error {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
		result, err := p.breaker.execute(ctx, func() (any, error) {
			return p.chat(ctx, full)
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

func (p *OpenAIProvider) chat(ctx context.Context, prompt string) (*GenerationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(openAIChatRequest{
		Model:    p.cfg.Model,
		Messages: []openAIMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("openai: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, classifyHTTPError(resp, string(raw))
	}

	var out openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: openai: decode response: %v", ErrGenerationFailed, err)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%w: openai: empty choices", ErrGenerationFailed)
	}

	return &GenerationResult{
		Content:    out.Choices[0].Message.Content,
		Confidence: 0.85,
		TokensUsed: out.Usage.TotalTokens,
		ModelUsed:  p.cfg.Model,
		IsOnDevice: false,
	}, nil
}

// Prepare validates that an API key is configured. Reachability is probed
// lazily on first use; a cold start must not require network access.
func (p *OpenAIProvider) Prepare(context.Context) error {
	if p.cfg.APIKey == "" {
		return fmt.Errorf("%w: openai: missing API key", ErrAuthenticationFailed)
	}
	return nil
}

func (p *OpenAIProvider) Cleanup(context.Context) error { return nil }

var _ GenerationProvider = (*OpenAIProvider)(nil)
