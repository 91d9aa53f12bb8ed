// Package retrieval scores and ranks stored memories for a query using a
// weighted blend of term-overlap relevance and recency decay. Scoring is
// deterministic: identical store state and query always produce identical
// ordered results.
package retrieval

import (
	"context"
	"fmt"
	"log"
	"math"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/orsinium-labs/stopwords"

	"github.com/mindwell/recall/internal/privacy"
	"github.com/mindwell/recall/internal/storage"
	"github.com/mindwell/recall/pkg/types"
)

// recencyHalfLifeDays controls the recency decay curve (30-day half-life).
const recencyHalfLifeDays = 30.0

// Engine ranks retrieval candidates from the memory store. Read-only against
// the store; safe for concurrent use.
type Engine struct {
	store      storage.Store
	analyzer   *privacy.Analyzer
	stop       *stopwords.Stopwords
	now        func() time.Time
	embeddings storage.EmbeddingProvider
	embed      storage.EmbedFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithVectorSearch enables embedding-based note candidate selection. The
// provider narrows the note pool by vector similarity before term ranking;
// any failure falls back to the full scan so retrieval never degrades to an
// error on a missing embedding service.
func WithVectorSearch(provider storage.EmbeddingProvider, embed storage.EmbedFunc) Option {
	return func(e *Engine) {
		e.embeddings = provider
		e.embed = embed
	}
}

// NewEngine creates a retrieval engine over the given store.
func NewEngine(store storage.Store, analyzer *privacy.Analyzer, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		analyzer: analyzer,
		stop:     stopwords.MustGet("en"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RetrieveRelevantMemories assembles a ranked context bundle for the query.
// Each enabled memory class contributes its own top MaxResults independently.
// An empty or punctuation-only query returns an empty-but-valid context.
func (e *Engine) RetrieveRelevantMemories(ctx context.Context, query string, cfg RetrievalConfiguration) (*types.MemoryContext, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	result := &types.MemoryContext{UserQuery: query}

	terms := e.ExtractTerms(query)
	if len(terms) == 0 {
		return result, nil
	}

	now := e.now()

	if cfg.IncludeShortTerm {
		mems, err := e.store.ListShortTerm(ctx, storage.ScanOptions{IncludeConsolidated: true})
		if err != nil {
			return nil, fmt.Errorf("retrieval: short-term fetch: %w", err)
		}
		result.ShortTermMemories = rank(mems, terms, cfg, now, func(m types.ShortTermMemory) candidate {
			return candidate{
				text:      []string{m.Content},
				tags:      m.ContextTags,
				timestamp: m.CreatedAt,
				id:        m.ID,
			}
		})
	}

	if cfg.IncludeLongTerm {
		mems, err := e.store.ListLongTerm(ctx, storage.ScanOptions{})
		if err != nil {
			return nil, fmt.Errorf("retrieval: long-term fetch: %w", err)
		}
		result.LongTermMemories = rank(mems, terms, cfg, now, func(m types.LongTermMemory) candidate {
			return candidate{
				text:      []string{m.Content},
				tags:      append(append([]string{}, m.ContextTags...), m.RetrievalCues...),
				timestamp: m.CreatedAt,
				id:        m.ID,
			}
		})
	}

	if cfg.IncludeEpisodic {
		mems, err := e.store.ListEpisodic(ctx, storage.ScanOptions{})
		if err != nil {
			return nil, fmt.Errorf("retrieval: episodic fetch: %w", err)
		}
		result.EpisodicMemories = rank(mems, terms, cfg, now, func(m types.EpisodicMemory) candidate {
			return candidate{
				text:      []string{m.EventDescription, m.Location, m.Outcome},
				tags:      append(append([]string{}, m.ContextualCues...), m.ContextTags...),
				timestamp: m.OccurredAt,
				id:        m.ID,
			}
		})
	}

	if cfg.IncludeNotes {
		notes, err := e.noteCandidates(ctx, query, cfg)
		if err != nil {
			return nil, fmt.Errorf("retrieval: note fetch: %w", err)
		}
		result.RelevantNotes = rank(notes, terms, cfg, now, func(n types.ProcessedNote) candidate {
			return candidate{
				text:      []string{n.Summary, n.OriginalText},
				tags:      append(append([]string{}, n.Topics...), n.ContextTags...),
				timestamp: n.CreatedAt,
				id:        n.ID,
			}
		})
	}

	if cfg.IncludeEntities {
		entities, err := e.store.ListEntities(ctx, storage.ScanOptions{})
		if err != nil {
			return nil, fmt.Errorf("retrieval: entity fetch: %w", err)
		}
		result.Entities = rank(entities, terms, cfg, now, func(en types.Entity) candidate {
			return candidate{
				text:      append([]string{en.Name}, en.Aliases...),
				timestamp: en.LastMentioned,
				id:        en.ID,
			}
		})
		rels, err := e.relationshipsFor(ctx, result.Entities)
		if err != nil {
			return nil, err
		}
		result.Relationships = rels
	}

	// Single source of truth: the privacy analyzer decides whether the
	// assembled bundle carries personal data.
	result.ContainsPersonalData = e.analyzer.ContainsPersonalData(result)
	return result, nil
}

// ExtractTerms lowercases the query, strips punctuation, and removes
// stop-words. Degenerate input yields an empty term list, never an error.
func (e *Engine) ExtractTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})

	var terms []string
	seen := map[string]bool{}
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f == "" || e.stop.Contains(f) || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}

// relationshipsFor collects the triples touching the selected entities,
// deduplicated, ordered by entity rank then relationship ID.
func (e *Engine) relationshipsFor(ctx context.Context, entities []types.Entity) ([]types.Relationship, error) {
	var out []types.Relationship
	seen := map[string]bool{}
	for _, en := range entities {
		rels, err := e.store.ListRelationshipsForEntity(ctx, en.ID)
		if err != nil {
			return nil, fmt.Errorf("retrieval: relationship fetch: %w", err)
		}
		for _, r := range rels {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			out = append(out, r)
		}
	}
	return out, nil
}

// noteCandidates selects the note pool for ranking. With vector search
// configured, the query embedding narrows the pool to the nearest notes;
// otherwise, or on any embedding failure, every note is a candidate. The
// term ranking and threshold still apply either way, so ordering stays
// deterministic for a fixed candidate set.
func (e *Engine) noteCandidates(ctx context.Context, query string, cfg RetrievalConfiguration) ([]types.ProcessedNote, error) {
	if e.embeddings != nil && e.embed != nil {
		vec, err := e.embed(ctx, query)
		if err != nil {
			log.Printf("retrieval: WARNING: query embedding failed, falling back to full note scan: %v", err)
		} else {
			notes, err := e.embeddings.SimilarNotes(ctx, vec, cfg.MaxResults*4)
			if err != nil {
				log.Printf("retrieval: WARNING: vector search failed, falling back to full note scan: %v", err)
			} else if len(notes) > 0 {
				return notes, nil
			}
		}
	}
	return e.store.ListNotes(ctx, storage.ScanOptions{})
}

// candidate is the scoring view of a record: its searchable text, its tags,
// and the timestamp used for recency.
type candidate struct {
	text      []string
	tags      []string
	timestamp time.Time
	id        string
}

type scored[T any] struct {
	item      T
	relevance float64
	combined  float64
	timestamp time.Time
	id        string
}

// rank scores every candidate, applies the relevance threshold as a hard
// filter, sorts descending by combined score with most-recent-wins ties, and
// returns the top MaxResults.
func rank[T any](items []T, terms []string, cfg RetrievalConfiguration, now time.Time, view func(T) candidate) []T {
	ranked := make([]scored[T], 0, len(items))
	for _, item := range items {
		c := view(item)
		rel := relevanceScore(terms, c)
		if rel < cfg.SemanticThreshold {
			continue
		}
		rec := recencyScore(now, c.timestamp)
		ranked = append(ranked, scored[T]{
			item:      item,
			relevance: rel,
			combined:  cfg.RelevanceWeight*rel + cfg.RecencyWeight*rec,
			timestamp: c.timestamp,
			id:        c.id,
		})
	}

	slices.SortFunc(ranked, func(a, b scored[T]) int {
		switch {
		case a.combined > b.combined:
			return -1
		case a.combined < b.combined:
			return 1
		}
		// Ties break by raw recency, most recent first, then ID for
		// full determinism.
		switch {
		case a.timestamp.After(b.timestamp):
			return -1
		case b.timestamp.After(a.timestamp):
			return 1
		}
		return strings.Compare(a.id, b.id)
	})

	if len(ranked) > cfg.MaxResults {
		ranked = ranked[:cfg.MaxResults]
	}
	out := make([]T, len(ranked))
	for i, s := range ranked {
		out[i] = s.item
	}
	return out
}

// relevanceScore is the normalized term overlap between the query terms and
// the candidate's text and tags: matched terms divided by total query terms.
func relevanceScore(terms []string, c candidate) float64 {
	if len(terms) == 0 {
		return 0
	}

	var haystack strings.Builder
	for _, t := range c.text {
		haystack.WriteString(strings.ToLower(t))
		haystack.WriteByte(' ')
	}
	for _, t := range c.tags {
		haystack.WriteString(strings.ToLower(t))
		haystack.WriteByte(' ')
	}
	body := haystack.String()

	matched := 0
	for _, term := range terms {
		if strings.Contains(body, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

// recencyScore decays monotonically with age and is bounded to [0,1]. Future
// timestamps score 1.
func recencyScore(now, ts time.Time) float64 {
	if ts.IsZero() {
		return 0
	}
	days := now.Sub(ts).Hours() / 24.0
	if days < 0 {
		days = 0
	}
	return math.Pow(2, -days/recencyHalfLifeDays)
}
