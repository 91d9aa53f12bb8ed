// Package agent orchestrates the query pipeline: privacy classification,
// memory retrieval, provider selection, and generation. It owns the routing
// safety contract: content that requires on-device processing is never sent
// to a cloud provider, and no fallback to a disallowed provider ever happens.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/mindwell/recall/internal/privacy"
	"github.com/mindwell/recall/internal/provider"
	"github.com/mindwell/recall/internal/retrieval"
	"github.com/mindwell/recall/internal/storage"
	"github.com/mindwell/recall/pkg/types"
)

// State is the router lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

var (
	// ErrNotInitialized means ProcessQuery was called before Initialize
	// completed. The call fails; the router itself is unaffected.
	ErrNotInitialized = errors.New("agent: router not initialized")

	// ErrNoProvidersAvailable means no registered provider satisfies the
	// query's privacy constraint. The call fails loudly; there is no
	// fallback to a disallowed provider.
	ErrNoProvidersAvailable = errors.New("agent: no providers satisfy the privacy constraint")

	// ErrGenerationFailed wraps the underlying provider failure after all
	// eligible candidates have been tried.
	ErrGenerationFailed = errors.New("agent: generation failed")
)

// Response is the outcome of a routed query.
type Response struct {
	Content        string             `json:"content"`
	Confidence     float64            `json:"confidence"`
	ModelUsed      string             `json:"model_used"`
	Provider       string             `json:"provider"`
	IsOnDevice     bool               `json:"is_on_device"`
	PrivacyLevel   types.PrivacyLevel `json:"privacy_level"`
	ContextItems   int                `json:"context_items"`
	ProcessingTime time.Duration      `json:"processing_time"`
}

// Router coordinates the classify-retrieve-route-generate pipeline. Safe for
// concurrent ProcessQuery calls; Initialize and Shutdown serialize against
// each other and against in-flight state reads.
type Router struct {
	analyzer *privacy.Analyzer
	engine   *retrieval.Engine
	store    storage.Store

	mu        sync.RWMutex
	state     State
	providers []provider.GenerationProvider
	active    []provider.GenerationProvider
	preferred string

	ids *idGen
	now func() time.Time
}

// Option configures a Router.
type Option func(*Router)

// WithPreferredProvider sets an explicit provider override by identifier.
// The override is only honored when the provider passes the privacy filter.
func WithPreferredProvider(id string) Option {
	return func(r *Router) { r.preferred = id }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// NewRouter creates a router over the given store and providers. The router
// starts uninitialized; call Initialize before processing queries.
func NewRouter(store storage.Store, analyzer *privacy.Analyzer, engine *retrieval.Engine, providers []provider.GenerationProvider, opts ...Option) *Router {
	r := &Router{
		analyzer:  analyzer,
		engine:    engine,
		store:     store,
		state:     StateUninitialized,
		providers: providers,
		ids:       newIDGen(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State reports the current lifecycle state.
func (r *Router) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Initialize prepares the registered providers and transitions the router to
// ready. Providers that fail to prepare are excluded from routing and logged;
// at least one must succeed.
func (r *Router) Initialize(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateUninitialized {
		state := r.state
		r.mu.Unlock()
		return fmt.Errorf("agent: initialize called in state %s", state)
	}
	r.state = StateInitializing
	providers := r.providers
	r.mu.Unlock()

	var active []provider.GenerationProvider
	for _, p := range providers {
		if err := p.Prepare(ctx); err != nil {
			log.Printf("agent: WARNING: provider %s failed to prepare, excluding from routing: %v", p.Identifier(), err)
			continue
		}
		active = append(active, p)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(active) == 0 {
		r.state = StateUninitialized
		return fmt.Errorf("%w: no provider completed preparation", ErrNoProvidersAvailable)
	}
	r.active = active
	r.state = StateReady
	log.Printf("agent: router ready with %d of %d providers", len(active), len(providers))
	return nil
}

// Shutdown releases provider resources and returns the router to
// uninitialized. Cleanup failures are logged, not propagated.
func (r *Router) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateReady {
		state := r.state
		r.mu.Unlock()
		return fmt.Errorf("agent: shutdown called in state %s", state)
	}
	r.state = StateShuttingDown
	active := r.active
	r.mu.Unlock()

	for _, p := range active {
		if err := p.Cleanup(ctx); err != nil {
			log.Printf("agent: WARNING: provider %s cleanup failed: %v", p.Identifier(), err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = nil
	r.state = StateUninitialized
	return nil
}

// ProcessQuery runs the full pipeline for one query:
//
//  1. Classify the query text.
//  2. Retrieve memories with a configuration capped by the privacy level.
//  3. Re-classify with the retrieved context; the level can only rise.
//  4. Filter providers by the final level and pick the best candidate.
//  5. Generate against the privacy-filtered context, never the raw one.
//
// Provider failures during generation fail over to the next eligible
// candidate; the router stays ready regardless of the outcome.
func (r *Router) ProcessQuery(ctx context.Context, query string) (*Response, error) {
	r.mu.RLock()
	if r.state != StateReady {
		r.mu.RUnlock()
		return nil, fmt.Errorf("%w: state is %s", ErrNotInitialized, r.state)
	}
	active := slices.Clone(r.active)
	preferred := r.preferred
	r.mu.RUnlock()

	start := r.now()

	initial := r.analyzer.AnalyzePrivacy(query, nil)
	cfg := retrieval.ConfigurationForPrivacyLevel(initial.Level)

	memCtx, err := r.engine.RetrieveRelevantMemories(ctx, query, cfg)
	if err != nil {
		return nil, fmt.Errorf("agent: retrieval: %w", err)
	}

	// Retrieved content can raise the sensitivity level, never lower it.
	analysis := r.analyzer.AnalyzePrivacy(query, memCtx)
	level := analysis.Level

	// A retrieved long-term memory flagged on-device-only pins routing to
	// local compute even when the assembled text alone would not. The flag
	// was set at consolidation time and outlives later lexicon changes.
	requireOnDevice := level.RequiresOnDevice() || containsOnDeviceOnly(memCtx)

	candidates := eligibleProviders(active, level, requireOnDevice)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: level %s requires on-device=%v", ErrNoProvidersAvailable, level, requireOnDevice)
	}
	rankCandidates(candidates, preferred, level)

	filtered := r.analyzer.FilterPersonalDataFromContext(*memCtx, level)

	var lastErr error
	for _, p := range candidates {
		result, err := p.GenerateResponse(ctx, query, &filtered)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("agent: WARNING: provider %s failed, trying next candidate: %v", p.Identifier(), err)
			lastErr = err
			continue
		}
		return &Response{
			Content:        result.Content,
			Confidence:     result.Confidence,
			ModelUsed:      result.ModelUsed,
			Provider:       p.Identifier(),
			IsOnDevice:     result.IsOnDevice,
			PrivacyLevel:   level,
			ContextItems:   filtered.TotalItems(),
			ProcessingTime: r.now().Sub(start),
		}, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, lastErr)
}

// containsOnDeviceOnly reports whether any retrieved long-term memory was
// marked on-device-only at consolidation time.
func containsOnDeviceOnly(memCtx *types.MemoryContext) bool {
	if memCtx == nil {
		return false
	}
	for _, m := range memCtx.LongTermMemories {
		if m.OnDeviceOnly {
			return true
		}
	}
	return false
}

// eligibleProviders applies the privacy filter: on-device required means
// on-device only, and any non-public level requires personal-data support.
func eligibleProviders(providers []provider.GenerationProvider, level types.PrivacyLevel, requireOnDevice bool) []provider.GenerationProvider {
	var out []provider.GenerationProvider
	for _, p := range providers {
		if requireOnDevice && !p.IsOnDevice() {
			continue
		}
		if level != types.PrivacyPublicKnowledge && !p.SupportsPersonalData() {
			continue
		}
		out = append(out, p)
	}
	return out
}

// rankCandidates orders eligible providers: explicit override first, then
// on-device when the query carries any personal signal, then lowest latency,
// then largest context window, then identifier for a stable order.
func rankCandidates(candidates []provider.GenerationProvider, preferred string, level types.PrivacyLevel) {
	slices.SortStableFunc(candidates, func(a, b provider.GenerationProvider) int {
		if preferred != "" {
			if a.Identifier() == preferred && b.Identifier() != preferred {
				return -1
			}
			if b.Identifier() == preferred && a.Identifier() != preferred {
				return 1
			}
		}
		if level != types.PrivacyPublicKnowledge && a.IsOnDevice() != b.IsOnDevice() {
			if a.IsOnDevice() {
				return -1
			}
			return 1
		}
		if a.EstimatedResponseTime() != b.EstimatedResponseTime() {
			if a.EstimatedResponseTime() < b.EstimatedResponseTime() {
				return -1
			}
			return 1
		}
		if a.MaxContextLength() != b.MaxContextLength() {
			if a.MaxContextLength() > b.MaxContextLength() {
				return -1
			}
			return 1
		}
		if a.Identifier() < b.Identifier() {
			return -1
		}
		if a.Identifier() > b.Identifier() {
			return 1
		}
		return 0
	})
}
