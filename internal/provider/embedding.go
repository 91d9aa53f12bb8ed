package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaEmbedderConfig holds the embedding endpoint configuration.
type OllamaEmbedderConfig struct {
	// BaseURL is the Ollama API endpoint (default: http://localhost:11434).
	BaseURL string
	// Model is the embedding model name (default: nomic-embed-text).
	Model string
	// Timeout bounds each request (default: 30s; embedding is much faster
	// than generation).
	Timeout time.Duration
}

// OllamaEmbedder computes text embeddings against a local Ollama instance.
// It feeds the pgvector retrieval path; text never leaves the device.
type OllamaEmbedder struct {
	cfg    OllamaEmbedderConfig
	client *http.Client
}

// NewOllamaEmbedder creates an embedder with defaults applied.
func NewOllamaEmbedder(cfg OllamaEmbedderConfig) *OllamaEmbedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &OllamaEmbedder{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Model returns the embedding model name, recorded alongside each vector so
// a model change invalidates stale embeddings.
func (e *OllamaEmbedder) Model() string { return e.cfg.Model }

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the embedding vector for text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(ollamaEmbedRequest{
		Model:  e.cfg.Model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama: failed to marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama: failed to create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama embed: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, classifyHTTPError(resp, string(raw))
	}

	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ollama: decode embed response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("ollama: model %s returned an empty embedding", e.cfg.Model)
	}
	return out.Embedding, nil
}
