// Package memory provides an in-process implementation of the storage
// interfaces. It backs tests and small single-session deployments where
// persistence across restarts is not needed.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mindwell/recall/internal/storage"
	"github.com/mindwell/recall/pkg/types"
)

// Store implements storage.Store with copy-on-read map semantics. All list
// orderings are deterministic: primary sort key descending, record ID as the
// tie-break.
type Store struct {
	mu sync.RWMutex

	shortTerm     map[string]types.ShortTermMemory
	longTerm      map[string]types.LongTermMemory
	episodic      map[string]types.EpisodicMemory
	notes         map[string]types.ProcessedNote
	entities      map[string]types.Entity
	relationships map[string]types.Relationship

	lastConsolidatedAt *time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		shortTerm:     make(map[string]types.ShortTermMemory),
		longTerm:      make(map[string]types.LongTermMemory),
		episodic:      make(map[string]types.EpisodicMemory),
		notes:         make(map[string]types.ProcessedNote),
		entities:      make(map[string]types.Entity),
		relationships: make(map[string]types.Relationship),
	}
}

// StoreShortTerm creates or replaces a short-term entry.
func (s *Store) StoreShortTerm(_ context.Context, mem *types.ShortTermMemory) error {
	if mem == nil || mem.ID == "" {
		return fmt.Errorf("memory: short-term entry requires an ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shortTerm[mem.ID] = *mem
	return nil
}

// GetShortTerm retrieves a short-term entry by ID.
func (s *Store) GetShortTerm(_ context.Context, id string) (*types.ShortTermMemory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mem, ok := s.shortTerm[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &mem, nil
}

// ListShortTerm returns short-term entries, most recent first.
func (s *Store) ListShortTerm(_ context.Context, opts storage.ScanOptions) ([]types.ShortTermMemory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.ShortTermMemory, 0, len(s.shortTerm))
	for _, mem := range s.shortTerm {
		if !opts.IncludeConsolidated && mem.Consolidated {
			continue
		}
		if !opts.Since.IsZero() && mem.CreatedAt.Before(opts.Since) {
			continue
		}
		out = append(out, mem)
	}
	slices.SortFunc(out, func(a, b types.ShortTermMemory) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return truncate(out, opts.Limit), nil
}

// MarkConsolidated records a consolidation pass over the entry.
func (s *Store) MarkConsolidated(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mem, ok := s.shortTerm[id]
	if !ok {
		return storage.ErrNotFound
	}
	mem.Consolidated = true
	mem.ConsolidatedAt = &at
	s.shortTerm[id] = mem
	s.lastConsolidatedAt = &at
	return nil
}

// StoreLongTerm creates or replaces a long-term entry.
func (s *Store) StoreLongTerm(_ context.Context, mem *types.LongTermMemory) error {
	if mem == nil || mem.ID == "" {
		return fmt.Errorf("memory: long-term entry requires an ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.longTerm[mem.ID] = *mem
	return nil
}

// GetLongTerm retrieves a long-term entry by ID.
func (s *Store) GetLongTerm(_ context.Context, id string) (*types.LongTermMemory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mem, ok := s.longTerm[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &mem, nil
}

// ListLongTerm returns long-term entries, most recent first.
func (s *Store) ListLongTerm(_ context.Context, opts storage.ScanOptions) ([]types.LongTermMemory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.LongTermMemory, 0, len(s.longTerm))
	for _, mem := range s.longTerm {
		if !opts.Since.IsZero() && mem.CreatedAt.Before(opts.Since) {
			continue
		}
		out = append(out, mem)
	}
	slices.SortFunc(out, func(a, b types.LongTermMemory) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return truncate(out, opts.Limit), nil
}

// StoreEpisodic creates or replaces an episodic entry.
func (s *Store) StoreEpisodic(_ context.Context, mem *types.EpisodicMemory) error {
	if mem == nil || mem.ID == "" {
		return fmt.Errorf("memory: episodic entry requires an ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.episodic[mem.ID] = *mem
	return nil
}

// ListEpisodic returns episodic entries, most recent event first.
func (s *Store) ListEpisodic(_ context.Context, opts storage.ScanOptions) ([]types.EpisodicMemory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.EpisodicMemory, 0, len(s.episodic))
	for _, mem := range s.episodic {
		if !opts.Since.IsZero() && mem.OccurredAt.Before(opts.Since) {
			continue
		}
		out = append(out, mem)
	}
	slices.SortFunc(out, func(a, b types.EpisodicMemory) int {
		if c := b.OccurredAt.Compare(a.OccurredAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return truncate(out, opts.Limit), nil
}

// StoreNote creates or replaces a processed note.
func (s *Store) StoreNote(_ context.Context, note *types.ProcessedNote) error {
	if note == nil || note.ID == "" {
		return fmt.Errorf("memory: note requires an ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[note.ID] = *note
	return nil
}

// ListNotes returns processed notes, most recent first.
func (s *Store) ListNotes(_ context.Context, opts storage.ScanOptions) ([]types.ProcessedNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.ProcessedNote, 0, len(s.notes))
	for _, note := range s.notes {
		if !opts.Since.IsZero() && note.CreatedAt.Before(opts.Since) {
			continue
		}
		out = append(out, note)
	}
	slices.SortFunc(out, func(a, b types.ProcessedNote) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return truncate(out, opts.Limit), nil
}

// StoreEntity creates or updates an entity.
func (s *Store) StoreEntity(_ context.Context, entity *types.Entity) error {
	if entity == nil || entity.ID == "" {
		return fmt.Errorf("memory: entity requires an ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[entity.ID] = *entity
	return nil
}

// GetEntity retrieves an entity by ID.
func (s *Store) GetEntity(_ context.Context, id string) (*types.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entity, ok := s.entities[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &entity, nil
}

// FindEntityByName looks up an entity by exact name or alias (case-insensitive).
func (s *Store) FindEntityByName(_ context.Context, name string) (*types.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Iterate IDs in sorted order so alias collisions resolve deterministically.
	ids := make([]string, 0, len(s.entities))
	for id := range s.entities {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	lowered := strings.ToLower(name)
	for _, id := range ids {
		entity := s.entities[id]
		if strings.ToLower(entity.Name) == lowered {
			return &entity, nil
		}
		for _, alias := range entity.Aliases {
			if strings.ToLower(alias) == lowered {
				return &entity, nil
			}
		}
	}
	return nil, storage.ErrNotFound
}

// ListEntities returns entities ordered by last mention, most recent first.
func (s *Store) ListEntities(_ context.Context, opts storage.ScanOptions) ([]types.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Entity, 0, len(s.entities))
	for _, entity := range s.entities {
		out = append(out, entity)
	}
	slices.SortFunc(out, func(a, b types.Entity) int {
		if c := b.LastMentioned.Compare(a.LastMentioned); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return truncate(out, opts.Limit), nil
}

// StoreRelationship creates or replaces a relationship.
func (s *Store) StoreRelationship(_ context.Context, rel *types.Relationship) error {
	if rel == nil || rel.ID == "" {
		return fmt.Errorf("memory: relationship requires an ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relationships[rel.ID] = *rel
	return nil
}

// ListRelationships returns relationships, most recently updated first.
func (s *Store) ListRelationships(_ context.Context, opts storage.ScanOptions) ([]types.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Relationship, 0, len(s.relationships))
	for _, rel := range s.relationships {
		out = append(out, rel)
	}
	slices.SortFunc(out, func(a, b types.Relationship) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return truncate(out, opts.Limit), nil
}

// ListRelationshipsForEntity returns triples touching the entity, treating
// bidirectional predicates as undirected.
func (s *Store) ListRelationshipsForEntity(_ context.Context, entityID string) ([]types.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Relationship
	for _, rel := range s.relationships {
		if rel.SubjectID == entityID {
			out = append(out, rel)
			continue
		}
		if rel.ObjectID == entityID && rel.IsBidirectional() {
			out = append(out, rel)
		}
	}
	slices.SortFunc(out, func(a, b types.Relationship) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Stats returns per-tier record counts.
func (s *Store) Stats(_ context.Context) (*storage.TierStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &storage.TierStats{
		ShortTerm:          len(s.shortTerm),
		LongTerm:           len(s.longTerm),
		Episodic:           len(s.episodic),
		Notes:              len(s.notes),
		Entities:           len(s.entities),
		Relationships:      len(s.relationships),
		LastConsolidatedAt: s.lastConsolidatedAt,
	}
	for _, mem := range s.shortTerm {
		if mem.Consolidated {
			stats.ShortTermConsolidated++
		}
	}
	return stats, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// truncate bounds a slice to limit; limit <= 0 means no bound.
func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
