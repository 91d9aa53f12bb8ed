// Package consolidation promotes short-term memories into the long-term tier.
// A pass evaluates every unprocessed short-term entry past the promotion age
// threshold, groups corroborating entries, and writes merged long-term records
// with back-references to their sources. Short-term rows are never deleted;
// processed entries are marked consolidated and age out of future passes.
package consolidation

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mindwell/recall/internal/privacy"
	"github.com/mindwell/recall/internal/storage"
	"github.com/mindwell/recall/pkg/types"
)

// Config controls promotion policy.
type Config struct {
	// PromotionThreshold is the minimum age before an entry is evaluated.
	PromotionThreshold time.Duration

	// MinImportance is the floor for promoting an uncorroborated entry.
	MinImportance float64

	// FastPathImportance promotes an entry immediately, before the age
	// threshold, when its importance is at or above this value.
	FastPathImportance float64

	// CorroborationOverlap is the minimum term-overlap ratio for two entries
	// to count as corroborating the same content.
	CorroborationOverlap float64
}

// DefaultConfig returns the reference promotion policy.
func DefaultConfig() Config {
	return Config{
		PromotionThreshold:   24 * time.Hour,
		MinImportance:        0.5,
		FastPathImportance:   0.9,
		CorroborationOverlap: 0.5,
	}
}

// Validate checks the policy for unusable values.
func (c Config) Validate() error {
	if c.PromotionThreshold <= 0 {
		return fmt.Errorf("consolidation: promotion threshold must be positive")
	}
	if c.MinImportance < 0 || c.MinImportance > 1 {
		return fmt.Errorf("consolidation: min importance must be in [0,1], got %g", c.MinImportance)
	}
	if c.FastPathImportance < 0 || c.FastPathImportance > 1 {
		return fmt.Errorf("consolidation: fast-path importance must be in [0,1], got %g", c.FastPathImportance)
	}
	if c.CorroborationOverlap <= 0 || c.CorroborationOverlap > 1 {
		return fmt.Errorf("consolidation: corroboration overlap must be in (0,1], got %g", c.CorroborationOverlap)
	}
	return nil
}

// Report summarizes one consolidation pass.
type Report struct {
	Evaluated int       `json:"evaluated"`
	Promoted  int       `json:"promoted"`  // STM entries marked consolidated
	Created   int       `json:"created"`   // LTM entries written
	Expired   int       `json:"expired"`   // past threshold, left to decay
	Skipped   int       `json:"skipped"`   // malformed or failed individually
	StartedAt time.Time `json:"started_at"`
	Duration  time.Duration
}

// Service runs consolidation passes. Exactly one pass may be in flight at a
// time; Consolidate serializes callers on an internal mutex.
type Service struct {
	store    storage.MemoryStore
	analyzer *privacy.Analyzer
	cfg      Config

	mu      sync.Mutex
	now     func() time.Time
	entropy *ulid.MonotonicEntropy
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a consolidation service with the given policy.
func NewService(store storage.MemoryStore, analyzer *privacy.Analyzer, cfg Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		store:    store,
		analyzer: analyzer,
		cfg:      cfg,
		now:      time.Now,
		entropy:  ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Consolidate runs a single pass. A store-level failure listing candidates
// aborts the pass with no partial promotion visible; per-entry failures are
// logged and skipped without blocking the rest of the batch.
func (s *Service) Consolidate(ctx context.Context) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	report := &Report{StartedAt: now}
	defer func() { report.Duration = s.now().Sub(report.StartedAt) }()

	entries, err := s.store.ListShortTerm(ctx, storage.ScanOptions{})
	if err != nil {
		return nil, fmt.Errorf("consolidation: listing candidates: %w", err)
	}

	var candidates []types.ShortTermMemory
	for _, e := range entries {
		if strings.TrimSpace(e.Content) == "" {
			log.Printf("consolidation: WARNING: skipping entry %s with empty content", e.ID)
			report.Skipped++
			continue
		}
		eligible := e.EligibleForConsolidation(now, s.cfg.PromotionThreshold)
		fastPath := !e.Consolidated && e.Importance >= s.cfg.FastPathImportance
		if !eligible && !fastPath {
			continue // fresh, untouched by this pass
		}
		report.Evaluated++
		candidates = append(candidates, e)
	}

	for _, group := range s.groupCorroborating(candidates) {
		if !s.shouldPromote(group) {
			report.Expired += len(group)
			continue
		}
		if err := s.promote(ctx, group, now); err != nil {
			log.Printf("consolidation: WARNING: promotion of group led by %s failed: %v", group[0].ID, err)
			report.Skipped += len(group)
			continue
		}
		report.Created++
		for _, e := range group {
			if err := s.store.MarkConsolidated(ctx, e.ID, now); err != nil {
				log.Printf("consolidation: WARNING: failed to mark %s consolidated: %v", e.ID, err)
				report.Skipped++
				continue
			}
			report.Promoted++
		}
	}

	return report, nil
}

// shouldPromote decides whether a corroboration group earns a long-term entry.
func (s *Service) shouldPromote(group []types.ShortTermMemory) bool {
	if len(group) >= 2 {
		return true // recurring content is its own evidence
	}
	e := group[0]
	return e.Importance >= s.cfg.MinImportance || e.Importance >= s.cfg.FastPathImportance
}

// groupCorroborating buckets entries whose term sets overlap at or above the
// configured ratio. Grouping is greedy in list order, which is deterministic
// because the store returns entries in a stable order.
func (s *Service) groupCorroborating(entries []types.ShortTermMemory) [][]types.ShortTermMemory {
	type bucket struct {
		terms   map[string]bool
		entries []types.ShortTermMemory
	}

	var buckets []*bucket
	for _, e := range entries {
		terms := contentTerms(e.Content)
		placed := false
		for _, b := range buckets {
			if overlapRatio(terms, b.terms) >= s.cfg.CorroborationOverlap {
				b.entries = append(b.entries, e)
				for t := range terms {
					b.terms[t] = true
				}
				placed = true
				break
			}
		}
		if !placed {
			buckets = append(buckets, &bucket{terms: terms, entries: []types.ShortTermMemory{e}})
		}
	}

	out := make([][]types.ShortTermMemory, len(buckets))
	for i, b := range buckets {
		out[i] = b.entries
	}
	return out
}

// promote writes one long-term entry merged from the group.
func (s *Service) promote(ctx context.Context, group []types.ShortTermMemory, now time.Time) error {
	lead := group[0]
	maxImportance := 0.0
	newest := group[0].CreatedAt
	var (
		sourceIDs []string
		tags      []string
		entityIDs []string
		seenTag   = map[string]bool{}
		seenEnt   = map[string]bool{}
	)
	for _, e := range group {
		if e.Importance > maxImportance {
			maxImportance = e.Importance
			lead = e
		}
		if e.CreatedAt.After(newest) {
			newest = e.CreatedAt
		}
		sourceIDs = append(sourceIDs, e.ID)
		for _, t := range e.ContextTags {
			if !seenTag[t] {
				seenTag[t] = true
				tags = append(tags, t)
			}
		}
		for _, id := range e.RelatedEntityIDs {
			if !seenEnt[id] {
				seenEnt[id] = true
				entityIDs = append(entityIDs, id)
			}
		}
	}

	// The promoted importance is floored at the strongest contributing signal
	// discounted by time decay; corroboration adds on top, capped at 1.
	decay := timeDecayFactor(now, newest)
	importance := maxImportance * decay
	importance += 0.05 * float64(len(group)-1)
	if importance > 1 {
		importance = 1
	}

	analysis := s.analyzer.AnalyzeMemoryPrivacy(lead.Content)

	ltm := &types.LongTermMemory{
		ID:                 "ltm:" + ulid.MustNew(ulid.Timestamp(now), s.entropy).String(),
		Content:            lead.Content,
		CreatedAt:          now,
		Importance:         importance,
		Confidence:         lead.Confidence,
		ContextTags:        tags,
		RelatedEntityIDs:   entityIDs,
		Category:           categoryFor(lead, analysis),
		RetrievalCues:      retrievalCues(group),
		SourceShortTermIDs: sourceIDs,
		OnDeviceOnly:       analysis.Level == types.PrivacySensitive,
	}
	return s.store.StoreLongTerm(ctx, ltm)
}

// timeDecayFactor is bounded to (0,1]: 30-day half-life from the newest
// contributing entry, floored so very old signal is discounted but never
// erased.
func timeDecayFactor(now, newest time.Time) float64 {
	days := now.Sub(newest).Hours() / 24.0
	if days < 0 {
		days = 0
	}
	decay := math.Pow(2, -days/30.0)
	if decay < 0.25 {
		decay = 0.25
	}
	return decay
}

// categoryFor maps a promoted entry to its long-term classification.
func categoryFor(lead types.ShortTermMemory, analysis types.PrivacyAnalysis) string {
	if analysis.Level >= types.PrivacyPersonal {
		return types.CategoryPersonal
	}
	switch lead.MemoryType {
	case types.MemoryTypeProcedural:
		return types.CategoryProcedural
	case types.MemoryTypeEpisodic:
		return types.CategoryRelational
	default:
		return types.CategoryFactual
	}
}

// retrievalCues picks the most frequent content terms across the group.
func retrievalCues(group []types.ShortTermMemory) []string {
	counts := map[string]int{}
	for _, e := range group {
		for t := range contentTerms(e.Content) {
			counts[t]++
		}
	}
	cues := make([]string, 0, len(counts))
	for t := range counts {
		cues = append(cues, t)
	}
	sort.Slice(cues, func(i, j int) bool {
		if counts[cues[i]] != counts[cues[j]] {
			return counts[cues[i]] > counts[cues[j]]
		}
		return cues[i] < cues[j]
	})
	if len(cues) > 8 {
		cues = cues[:8]
	}
	return cues
}

// contentTerms tokenizes content into a lowercase term set, skipping very
// short tokens.
func contentTerms(content string) map[string]bool {
	out := map[string]bool{}
	for _, f := range strings.Fields(strings.ToLower(content)) {
		f = strings.Trim(f, ".,!?;:\"'()[]")
		if len(f) < 3 {
			continue
		}
		out[f] = true
	}
	return out
}

// overlapRatio is |a∩b| / min(|a|,|b|).
func overlapRatio(a, b map[string]bool) float64 {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	if len(small) == 0 {
		return 0
	}
	matched := 0
	for t := range small {
		if large[t] {
			matched++
		}
	}
	return float64(matched) / float64(len(small))
}
