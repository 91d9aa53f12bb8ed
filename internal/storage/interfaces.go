// Package storage provides composable storage interfaces for the recall
// memory system.
//
// The layer is designed with small, focused interfaces that can be implemented
// independently and composed as needed. The core subsystem holds no long-lived
// references to records: every record is fetched fresh per operation, mutated,
// and handed back to the store. Cross-references between records are by ID
// only, never by pointer.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mindwell/recall/pkg/types"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("storage: record not found")

// ErrUnavailable wraps backend I/O failures. Callers treat it as a generic
// "storage unavailable" condition and degrade rather than crash.
var ErrUnavailable = errors.New("storage: unavailable")

// ScanOptions bounds a list operation. The core assumes fetch-then-filter is
// acceptable at reference scale; backends may translate these into indexed
// predicate queries transparently.
type ScanOptions struct {
	// Limit caps the number of records returned; 0 means backend default.
	Limit int

	// IncludeConsolidated includes STM entries already processed by a
	// consolidation pass. Retrieval wants them (they decay out via recency);
	// consolidation does not.
	IncludeConsolidated bool

	// Since restricts the scan to records created at or after the instant.
	Since time.Time
}

// MemoryStore provides CRUD and bounded scans for the four memory tiers.
// Writes are append-only from the caller's perspective except for the
// consolidation bookkeeping on short-term entries; a record's ID is the unit
// of atomicity and readers never observe a partially written record.
type MemoryStore interface {
	// StoreShortTerm creates or replaces a short-term entry (upsert).
	StoreShortTerm(ctx context.Context, mem *types.ShortTermMemory) error

	// GetShortTerm retrieves a short-term entry by ID.
	// Returns ErrNotFound if it does not exist.
	GetShortTerm(ctx context.Context, id string) (*types.ShortTermMemory, error)

	// ListShortTerm returns short-term entries, most recent first.
	ListShortTerm(ctx context.Context, opts ScanOptions) ([]types.ShortTermMemory, error)

	// MarkConsolidated records that a consolidation pass evaluated the entry.
	// Returns ErrNotFound if the entry does not exist.
	MarkConsolidated(ctx context.Context, id string, at time.Time) error

	// StoreLongTerm creates or replaces a long-term entry (upsert).
	// Only the consolidation service creates long-term entries.
	StoreLongTerm(ctx context.Context, mem *types.LongTermMemory) error

	// GetLongTerm retrieves a long-term entry by ID.
	GetLongTerm(ctx context.Context, id string) (*types.LongTermMemory, error)

	// ListLongTerm returns long-term entries, most recent first.
	ListLongTerm(ctx context.Context, opts ScanOptions) ([]types.LongTermMemory, error)

	// StoreEpisodic creates or replaces an episodic entry (upsert).
	StoreEpisodic(ctx context.Context, mem *types.EpisodicMemory) error

	// ListEpisodic returns episodic entries, most recent event first.
	ListEpisodic(ctx context.Context, opts ScanOptions) ([]types.EpisodicMemory, error)

	// StoreNote creates or replaces a processed note (upsert).
	StoreNote(ctx context.Context, note *types.ProcessedNote) error

	// ListNotes returns processed notes, most recent first.
	ListNotes(ctx context.Context, opts ScanOptions) ([]types.ProcessedNote, error)

	// Close releases any resources held by the store.
	Close() error
}

// EntityStore manages knowledge-graph entities. Entities are created on first
// extraction and updated on every re-mention; they are never deleted.
type EntityStore interface {
	// StoreEntity creates or updates an entity (upsert).
	StoreEntity(ctx context.Context, entity *types.Entity) error

	// GetEntity retrieves an entity by ID.
	// Returns ErrNotFound if it does not exist.
	GetEntity(ctx context.Context, id string) (*types.Entity, error)

	// FindEntityByName looks up an entity by exact name or alias.
	// Returns ErrNotFound when no entity matches.
	FindEntityByName(ctx context.Context, name string) (*types.Entity, error)

	// ListEntities returns entities ordered by last mention, most recent first.
	ListEntities(ctx context.Context, opts ScanOptions) ([]types.Entity, error)
}

// RelationshipStore manages the directed entity triples. Bidirectional
// predicates are not mirrored on write; ListRelationshipsForEntity treats
// them as undirected at query time.
type RelationshipStore interface {
	// StoreRelationship creates or replaces a relationship (upsert).
	StoreRelationship(ctx context.Context, rel *types.Relationship) error

	// ListRelationships returns relationships, most recently updated first.
	ListRelationships(ctx context.Context, opts ScanOptions) ([]types.Relationship, error)

	// ListRelationshipsForEntity returns relationships touching an entity:
	// all triples where the entity is the subject, plus triples where it is
	// the object and the predicate is bidirectional.
	ListRelationshipsForEntity(ctx context.Context, entityID string) ([]types.Relationship, error)
}

// EmbedFunc produces a vector embedding for text. The provider layer
// supplies implementations; storage backends use one to maintain note
// embeddings on write and retrieval uses one to embed queries.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// EmbeddingProvider manages vector embeddings for processed notes. Optional:
// the bag-of-words retrieval path works without one.
type EmbeddingProvider interface {
	// StoreEmbedding stores a vector embedding for a note.
	StoreEmbedding(ctx context.Context, noteID string, embedding []float32, model string) error

	// SimilarNotes returns notes ranked by vector similarity to the query
	// embedding, nearest first.
	SimilarNotes(ctx context.Context, embedding []float32, limit int) ([]types.ProcessedNote, error)
}

// TierStats summarizes the store contents for the stats surface.
type TierStats struct {
	ShortTerm             int        `json:"short_term"`
	ShortTermConsolidated int        `json:"short_term_consolidated"`
	LongTerm              int        `json:"long_term"`
	Episodic              int        `json:"episodic"`
	Notes                 int        `json:"notes"`
	Entities              int        `json:"entities"`
	Relationships         int        `json:"relationships"`
	LastConsolidatedAt    *time.Time `json:"last_consolidated_at,omitempty"`
}

// StatsProvider exposes per-tier record counts.
type StatsProvider interface {
	Stats(ctx context.Context) (*TierStats, error)
}

// Store is the full composed storage surface the application wires together.
type Store interface {
	MemoryStore
	EntityStore
	RelationshipStore
	StatsProvider
}
