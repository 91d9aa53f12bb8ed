// Package provider defines the generation and transcription capability
// contracts and their concrete adapters. Providers declare whether they run
// on local compute and whether they accept personal data; the routing layer
// relies on those declarations for its safety guarantees.
package provider

import (
	"context"
	"time"

	"github.com/mindwell/recall/pkg/types"
)

// GenerationResult carries a provider's response plus bookkeeping.
type GenerationResult struct {
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
	TokensUsed int     `json:"tokens_used,omitempty"`
	ModelUsed  string  `json:"model_used"`
	IsOnDevice bool    `json:"is_on_device"`
}

// GenerationProvider is the capability interface for text generation.
// IsOnDevice and SupportsPersonalData are declarations the routing policy
// trusts; a provider must not claim on-device operation while calling out.
type GenerationProvider interface {
	Identifier() string
	DisplayName() string
	IsOnDevice() bool
	SupportsPersonalData() bool
	MaxContextLength() int
	EstimatedResponseTime() time.Duration

	GenerateResponse(ctx context.Context, prompt string, memCtx *types.MemoryContext) (*GenerationResult, error)

	// Prepare acquires resources (connections, model readiness checks).
	Prepare(ctx context.Context) error
	// Cleanup releases them. Safe to call after a failed Prepare.
	Cleanup(ctx context.Context) error
}

// Transcription is the output of a speech-to-text engine.
type Transcription struct {
	Text       string              `json:"text"`
	Confidence float64             `json:"confidence"`
	Language   string              `json:"language,omitempty"`
	Segments   []TranscriptSegment `json:"segments,omitempty"`
}

// TranscriptSegment is a timed span of transcribed speech.
type TranscriptSegment struct {
	Text  string        `json:"text"`
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

// TranscriptionEngine converts captured audio to text. Engine selection and
// fallback are external policy; the pipeline only consumes the text.
type TranscriptionEngine interface {
	Transcribe(ctx context.Context, audio []byte) (*Transcription, error)
	Prepare(ctx context.Context) error
	Cleanup(ctx context.Context) error
}
