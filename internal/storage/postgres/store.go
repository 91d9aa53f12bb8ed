// Package postgres provides a PostgreSQL implementation of the storage
// interfaces, with optional pgvector-backed note embeddings for the semantic
// retrieval path.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/mindwell/recall/internal/storage"
	"github.com/mindwell/recall/pkg/types"
)

// Store implements storage.Store using PostgreSQL.
type Store struct {
	db                *sql.DB
	pgvectorAvailable bool
	embed             storage.EmbedFunc
	embedModel        string
}

// Option configures a Store.
type Option func(*Store)

// WithEmbedder attaches an embedding function. When pgvector is available,
// every StoreNote write then maintains a matching note_embeddings row.
func WithEmbedder(embed storage.EmbedFunc, model string) Option {
	return func(s *Store) {
		s.embed = embed
		s.embedModel = model
	}
}

// NewStore opens a PostgreSQL connection, applies the schema, and probes for
// the pgvector extension. Vector search is disabled (not fatal) when the
// extension is missing.
func NewStore(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to ping database: %w", err)
	}

	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to apply schema: %w", err)
	}

	if _, err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		log.Printf("postgres: pgvector extension not available (vector search disabled): %v", err)
	} else if _, err := db.Exec(MigrationPgvector); err != nil {
		log.Printf("postgres: failed to apply pgvector migration (vector search disabled): %v", err)
	} else {
		s.pgvectorAvailable = true
	}

	return s, nil
}

// DB exposes the underlying connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// VectorSearchAvailable reports whether the pgvector extension is usable.
func (s *Store) VectorSearchAvailable() bool {
	return s.pgvectorAvailable
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// StoreShortTerm creates or replaces a short-term entry.
func (s *Store) StoreShortTerm(ctx context.Context, mem *types.ShortTermMemory) error {
	if mem == nil || mem.ID == "" {
		return fmt.Errorf("postgres: short-term entry requires an ID")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO short_term_memories
			(id, content, created_at, importance, confidence, context_tags,
			 related_entity_ids, memory_type, source_note_id, emotional_weight,
			 consolidated, consolidated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			importance = EXCLUDED.importance,
			confidence = EXCLUDED.confidence,
			context_tags = EXCLUDED.context_tags,
			related_entity_ids = EXCLUDED.related_entity_ids,
			memory_type = EXCLUDED.memory_type,
			source_note_id = EXCLUDED.source_note_id,
			emotional_weight = EXCLUDED.emotional_weight,
			consolidated = EXCLUDED.consolidated,
			consolidated_at = EXCLUDED.consolidated_at
	`,
		mem.ID, mem.Content, mem.CreatedAt, mem.Importance, mem.Confidence,
		marshalStrings(mem.ContextTags), marshalStrings(mem.RelatedEntityIDs),
		mem.MemoryType, nullString(mem.SourceNoteID), mem.EmotionalWeight,
		mem.Consolidated, nullTime(mem.ConsolidatedAt),
	)
	if err != nil {
		return fmt.Errorf("%w: store short-term: %v", storage.ErrUnavailable, err)
	}
	return nil
}

// GetShortTerm retrieves a short-term entry by ID.
func (s *Store) GetShortTerm(ctx context.Context, id string) (*types.ShortTermMemory, error) {
	row := s.db.QueryRowContext(ctx, shortTermSelect+" WHERE id = $1", id)
	mem, err := scanShortTerm(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get short-term: %v", storage.ErrUnavailable, err)
	}
	return mem, nil
}

// ListShortTerm returns short-term entries, most recent first.
func (s *Store) ListShortTerm(ctx context.Context, opts storage.ScanOptions) ([]types.ShortTermMemory, error) {
	var conds []string
	var args []any

	if !opts.IncludeConsolidated {
		conds = append(conds, "NOT consolidated")
	}
	if !opts.Since.IsZero() {
		args = append(args, opts.Since)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	query := shortTermSelect + whereClause(conds) + " ORDER BY created_at DESC, id ASC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list short-term: %v", storage.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []types.ShortTermMemory
	for rows.Next() {
		mem, err := scanShortTerm(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan short-term: %v", storage.ErrUnavailable, err)
		}
		out = append(out, *mem)
	}
	return out, rows.Err()
}

// MarkConsolidated records a consolidation pass over the entry.
func (s *Store) MarkConsolidated(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE short_term_memories
		SET consolidated = TRUE, consolidated_at = $1
		WHERE id = $2
	`, at, id)
	if err != nil {
		return fmt.Errorf("%w: mark consolidated: %v", storage.ErrUnavailable, err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// StoreLongTerm creates or replaces a long-term entry.
func (s *Store) StoreLongTerm(ctx context.Context, mem *types.LongTermMemory) error {
	if mem == nil || mem.ID == "" {
		return fmt.Errorf("postgres: long-term entry requires an ID")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO long_term_memories
			(id, content, created_at, importance, confidence, context_tags,
			 related_entity_ids, category, retrieval_cues, source_short_term_ids,
			 memory_cluster, on_device_only)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			importance = EXCLUDED.importance,
			confidence = EXCLUDED.confidence,
			context_tags = EXCLUDED.context_tags,
			related_entity_ids = EXCLUDED.related_entity_ids,
			category = EXCLUDED.category,
			retrieval_cues = EXCLUDED.retrieval_cues,
			source_short_term_ids = EXCLUDED.source_short_term_ids,
			memory_cluster = EXCLUDED.memory_cluster,
			on_device_only = EXCLUDED.on_device_only
	`,
		mem.ID, mem.Content, mem.CreatedAt, mem.Importance, mem.Confidence,
		marshalStrings(mem.ContextTags), marshalStrings(mem.RelatedEntityIDs),
		mem.Category, marshalStrings(mem.RetrievalCues),
		marshalStrings(mem.SourceShortTermIDs), nullString(mem.MemoryCluster),
		mem.OnDeviceOnly,
	)
	if err != nil {
		return fmt.Errorf("%w: store long-term: %v", storage.ErrUnavailable, err)
	}
	return nil
}

// GetLongTerm retrieves a long-term entry by ID.
func (s *Store) GetLongTerm(ctx context.Context, id string) (*types.LongTermMemory, error) {
	row := s.db.QueryRowContext(ctx, longTermSelect+" WHERE id = $1", id)
	mem, err := scanLongTerm(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get long-term: %v", storage.ErrUnavailable, err)
	}
	return mem, nil
}

// ListLongTerm returns long-term entries, most recent first.
func (s *Store) ListLongTerm(ctx context.Context, opts storage.ScanOptions) ([]types.LongTermMemory, error) {
	var conds []string
	var args []any

	if !opts.Since.IsZero() {
		args = append(args, opts.Since)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	query := longTermSelect + whereClause(conds) + " ORDER BY created_at DESC, id ASC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list long-term: %v", storage.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []types.LongTermMemory
	for rows.Next() {
		mem, err := scanLongTerm(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan long-term: %v", storage.ErrUnavailable, err)
		}
		out = append(out, *mem)
	}
	return out, rows.Err()
}

// StoreEpisodic creates or replaces an episodic entry.
func (s *Store) StoreEpisodic(ctx context.Context, mem *types.EpisodicMemory) error {
	if mem == nil || mem.ID == "" {
		return fmt.Errorf("postgres: episodic entry requires an ID")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO episodic_memories
			(id, event_description, participants, location, emotional_tone,
			 contextual_cues, outcome, occurred_at, created_at, importance,
			 confidence, context_tags, related_entity_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			event_description = EXCLUDED.event_description,
			participants = EXCLUDED.participants,
			location = EXCLUDED.location,
			emotional_tone = EXCLUDED.emotional_tone,
			contextual_cues = EXCLUDED.contextual_cues,
			outcome = EXCLUDED.outcome,
			occurred_at = EXCLUDED.occurred_at,
			importance = EXCLUDED.importance,
			confidence = EXCLUDED.confidence,
			context_tags = EXCLUDED.context_tags,
			related_entity_ids = EXCLUDED.related_entity_ids
	`,
		mem.ID, mem.EventDescription, marshalStrings(mem.Participants),
		nullString(mem.Location), nullString(mem.EmotionalTone),
		marshalStrings(mem.ContextualCues), nullString(mem.Outcome),
		mem.OccurredAt, mem.CreatedAt, mem.Importance, mem.Confidence,
		marshalStrings(mem.ContextTags), marshalStrings(mem.RelatedEntityIDs),
	)
	if err != nil {
		return fmt.Errorf("%w: store episodic: %v", storage.ErrUnavailable, err)
	}
	return nil
}

// ListEpisodic returns episodic entries, most recent event first.
func (s *Store) ListEpisodic(ctx context.Context, opts storage.ScanOptions) ([]types.EpisodicMemory, error) {
	var conds []string
	var args []any

	if !opts.Since.IsZero() {
		args = append(args, opts.Since)
		conds = append(conds, fmt.Sprintf("occurred_at >= $%d", len(args)))
	}

	query := episodicSelect + whereClause(conds) + " ORDER BY occurred_at DESC, id ASC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list episodic: %v", storage.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []types.EpisodicMemory
	for rows.Next() {
		var mem types.EpisodicMemory
		var participants, cues, tags, entityIDs sql.NullString
		var location, tone, outcome sql.NullString
		err := rows.Scan(&mem.ID, &mem.EventDescription, &participants, &location,
			&tone, &cues, &outcome, &mem.OccurredAt, &mem.CreatedAt,
			&mem.Importance, &mem.Confidence, &tags, &entityIDs)
		if err != nil {
			return nil, fmt.Errorf("%w: scan episodic: %v", storage.ErrUnavailable, err)
		}
		mem.Participants = unmarshalStrings(participants)
		mem.Location = location.String
		mem.EmotionalTone = tone.String
		mem.ContextualCues = unmarshalStrings(cues)
		mem.Outcome = outcome.String
		mem.ContextTags = unmarshalStrings(tags)
		mem.RelatedEntityIDs = unmarshalStrings(entityIDs)
		out = append(out, mem)
	}
	return out, rows.Err()
}

// StoreNote creates or replaces a processed note.
func (s *Store) StoreNote(ctx context.Context, note *types.ProcessedNote) error {
	if note == nil || note.ID == "" {
		return fmt.Errorf("postgres: note requires an ID")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processed_notes
			(id, original_text, summary, topics, sentiment, created_at,
			 importance, confidence, context_tags, related_entity_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			original_text = EXCLUDED.original_text,
			summary = EXCLUDED.summary,
			topics = EXCLUDED.topics,
			sentiment = EXCLUDED.sentiment,
			importance = EXCLUDED.importance,
			confidence = EXCLUDED.confidence,
			context_tags = EXCLUDED.context_tags,
			related_entity_ids = EXCLUDED.related_entity_ids
	`,
		note.ID, note.OriginalText, nullString(note.Summary),
		marshalStrings(note.Topics), nullString(note.Sentiment), note.CreatedAt,
		note.Importance, note.Confidence, marshalStrings(note.ContextTags),
		marshalStrings(note.RelatedEntityIDs),
	)
	if err != nil {
		return fmt.Errorf("%w: store note: %v", storage.ErrUnavailable, err)
	}

	s.maintainEmbedding(ctx, note)
	return nil
}

// maintainEmbedding keeps note_embeddings in step with processed_notes.
// Failures are logged, not returned: the term-overlap retrieval path still
// covers the note.
func (s *Store) maintainEmbedding(ctx context.Context, note *types.ProcessedNote) {
	if s.embed == nil || !s.pgvectorAvailable {
		return
	}

	vec, err := s.embed(ctx, note.OriginalText)
	if err != nil {
		log.Printf("postgres: WARNING: embedding note %s: %v", note.ID, err)
		return
	}

	provider := &EmbeddingProvider{store: s}
	if err := provider.StoreEmbedding(ctx, note.ID, vec, s.embedModel); err != nil {
		log.Printf("postgres: WARNING: storing embedding for note %s: %v", note.ID, err)
	}
}

// ListNotes returns processed notes, most recent first.
func (s *Store) ListNotes(ctx context.Context, opts storage.ScanOptions) ([]types.ProcessedNote, error) {
	var conds []string
	var args []any

	if !opts.Since.IsZero() {
		args = append(args, opts.Since)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	query := noteSelect + whereClause(conds) + " ORDER BY created_at DESC, id ASC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list notes: %v", storage.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []types.ProcessedNote
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan note: %v", storage.ErrUnavailable, err)
		}
		out = append(out, *note)
	}
	return out, rows.Err()
}

// StoreEntity creates or updates an entity.
func (s *Store) StoreEntity(ctx context.Context, entity *types.Entity) error {
	if entity == nil || entity.ID == "" {
		return fmt.Errorf("postgres: entity requires an ID")
	}

	attrs, err := json.Marshal(entity.Attributes)
	if err != nil {
		return fmt.Errorf("postgres: marshal entity attributes: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entities
			(id, name, type, aliases, confidence, is_validated, mentions,
			 last_mentioned, attributes, importance, salience, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			aliases = EXCLUDED.aliases,
			confidence = EXCLUDED.confidence,
			is_validated = EXCLUDED.is_validated,
			mentions = EXCLUDED.mentions,
			last_mentioned = EXCLUDED.last_mentioned,
			attributes = EXCLUDED.attributes,
			importance = EXCLUDED.importance,
			salience = EXCLUDED.salience,
			updated_at = EXCLUDED.updated_at
	`,
		entity.ID, entity.Name, entity.Type, marshalStrings(entity.Aliases),
		entity.Confidence, entity.IsValidated, entity.Mentions,
		nullTimeValue(entity.LastMentioned), string(attrs), entity.Importance,
		entity.Salience, entity.CreatedAt, entity.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: store entity: %v", storage.ErrUnavailable, err)
	}
	return nil
}

// GetEntity retrieves an entity by ID.
func (s *Store) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	row := s.db.QueryRowContext(ctx, entitySelect+" WHERE id = $1", id)
	entity, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get entity: %v", storage.ErrUnavailable, err)
	}
	return entity, nil
}

// FindEntityByName looks up an entity by exact name (case-insensitive) or alias.
func (s *Store) FindEntityByName(ctx context.Context, name string) (*types.Entity, error) {
	row := s.db.QueryRowContext(ctx,
		entitySelect+" WHERE LOWER(name) = LOWER($1) ORDER BY id LIMIT 1", name)
	entity, err := scanEntity(row)
	if err == nil {
		return entity, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("%w: find entity: %v", storage.ErrUnavailable, err)
	}

	// Alias fallback: aliases live in a JSONB array.
	row = s.db.QueryRowContext(ctx, entitySelect+`
		WHERE aliases IS NOT NULL
		  AND EXISTS (
			SELECT 1 FROM jsonb_array_elements_text(aliases) alias
			WHERE LOWER(alias) = LOWER($1)
		  )
		ORDER BY id LIMIT 1`, name)
	entity, err = scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find entity by alias: %v", storage.ErrUnavailable, err)
	}
	return entity, nil
}

// ListEntities returns entities ordered by last mention, most recent first.
func (s *Store) ListEntities(ctx context.Context, opts storage.ScanOptions) ([]types.Entity, error) {
	query := entitySelect + " ORDER BY last_mentioned DESC NULLS LAST, id ASC"
	var args []any
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += " LIMIT $1"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list entities: %v", storage.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []types.Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan entity: %v", storage.ErrUnavailable, err)
		}
		out = append(out, *entity)
	}
	return out, rows.Err()
}

// StoreRelationship creates or replaces a relationship.
func (s *Store) StoreRelationship(ctx context.Context, rel *types.Relationship) error {
	if rel == nil || rel.ID == "" {
		return fmt.Errorf("postgres: relationship requires an ID")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO relationships
			(id, subject_id, predicate_type, object_id, confidence, strength,
			 importance, start_date, end_date, evidence, bidirectional,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			confidence = EXCLUDED.confidence,
			strength = EXCLUDED.strength,
			importance = EXCLUDED.importance,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			evidence = EXCLUDED.evidence,
			bidirectional = EXCLUDED.bidirectional,
			updated_at = EXCLUDED.updated_at
	`,
		rel.ID, rel.SubjectID, rel.PredicateType, rel.ObjectID, rel.Confidence,
		rel.Strength, rel.Importance, nullTime(rel.StartDate), nullTime(rel.EndDate),
		marshalStrings(rel.Evidence), rel.Bidirectional, rel.CreatedAt, rel.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: store relationship: %v", storage.ErrUnavailable, err)
	}
	return nil
}

// ListRelationships returns relationships, most recently updated first.
func (s *Store) ListRelationships(ctx context.Context, opts storage.ScanOptions) ([]types.Relationship, error) {
	query := relationshipSelect + " ORDER BY updated_at DESC, id ASC"
	var args []any
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += " LIMIT $1"
	}
	return s.queryRelationships(ctx, query, args...)
}

// ListRelationshipsForEntity returns triples touching the entity, treating
// bidirectional predicates as undirected.
func (s *Store) ListRelationshipsForEntity(ctx context.Context, entityID string) ([]types.Relationship, error) {
	rels, err := s.queryRelationships(ctx,
		relationshipSelect+" WHERE subject_id = $1 OR object_id = $1 ORDER BY id ASC",
		entityID)
	if err != nil {
		return nil, err
	}

	out := rels[:0]
	for _, rel := range rels {
		if rel.SubjectID == entityID || rel.IsBidirectional() {
			out = append(out, rel)
		}
	}
	return out, nil
}

// Stats returns per-tier record counts.
func (s *Store) Stats(ctx context.Context) (*storage.TierStats, error) {
	stats := &storage.TierStats{}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM short_term_memories", &stats.ShortTerm},
		{"SELECT COUNT(*) FROM short_term_memories WHERE consolidated", &stats.ShortTermConsolidated},
		{"SELECT COUNT(*) FROM long_term_memories", &stats.LongTerm},
		{"SELECT COUNT(*) FROM episodic_memories", &stats.Episodic},
		{"SELECT COUNT(*) FROM processed_notes", &stats.Notes},
		{"SELECT COUNT(*) FROM entities", &stats.Entities},
		{"SELECT COUNT(*) FROM relationships", &stats.Relationships},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("%w: stats: %v", storage.ErrUnavailable, err)
		}
	}

	var last sql.NullTime
	err := s.db.QueryRowContext(ctx,
		"SELECT MAX(consolidated_at) FROM short_term_memories").Scan(&last)
	if err == nil && last.Valid {
		stats.LastConsolidatedAt = &last.Time
	}

	return stats, nil
}

// ---------------------------------------------------------------------------
// Scan helpers
// ---------------------------------------------------------------------------

const shortTermSelect = `
	SELECT id, content, created_at, importance, confidence, context_tags,
	       related_entity_ids, memory_type, source_note_id, emotional_weight,
	       consolidated, consolidated_at
	FROM short_term_memories`

const longTermSelect = `
	SELECT id, content, created_at, importance, confidence, context_tags,
	       related_entity_ids, category, retrieval_cues, source_short_term_ids,
	       memory_cluster, on_device_only
	FROM long_term_memories`

const episodicSelect = `
	SELECT id, event_description, participants, location, emotional_tone,
	       contextual_cues, outcome, occurred_at, created_at, importance,
	       confidence, context_tags, related_entity_ids
	FROM episodic_memories`

const noteSelect = `
	SELECT id, original_text, summary, topics, sentiment, created_at,
	       importance, confidence, context_tags, related_entity_ids
	FROM processed_notes`

const entitySelect = `
	SELECT id, name, type, aliases, confidence, is_validated, mentions,
	       last_mentioned, attributes, importance, salience, created_at, updated_at
	FROM entities`

const relationshipSelect = `
	SELECT id, subject_id, predicate_type, object_id, confidence, strength,
	       importance, start_date, end_date, evidence, bidirectional,
	       created_at, updated_at
	FROM relationships`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShortTerm(row rowScanner) (*types.ShortTermMemory, error) {
	var mem types.ShortTermMemory
	var tags, entityIDs, sourceNoteID sql.NullString
	var consolidatedAt sql.NullTime
	err := row.Scan(&mem.ID, &mem.Content, &mem.CreatedAt, &mem.Importance,
		&mem.Confidence, &tags, &entityIDs, &mem.MemoryType, &sourceNoteID,
		&mem.EmotionalWeight, &mem.Consolidated, &consolidatedAt)
	if err != nil {
		return nil, err
	}
	mem.ContextTags = unmarshalStrings(tags)
	mem.RelatedEntityIDs = unmarshalStrings(entityIDs)
	mem.SourceNoteID = sourceNoteID.String
	if consolidatedAt.Valid {
		mem.ConsolidatedAt = &consolidatedAt.Time
	}
	return &mem, nil
}

func scanLongTerm(row rowScanner) (*types.LongTermMemory, error) {
	var mem types.LongTermMemory
	var tags, entityIDs, cues, sourceIDs, cluster sql.NullString
	err := row.Scan(&mem.ID, &mem.Content, &mem.CreatedAt, &mem.Importance,
		&mem.Confidence, &tags, &entityIDs, &mem.Category, &cues, &sourceIDs,
		&cluster, &mem.OnDeviceOnly)
	if err != nil {
		return nil, err
	}
	mem.ContextTags = unmarshalStrings(tags)
	mem.RelatedEntityIDs = unmarshalStrings(entityIDs)
	mem.RetrievalCues = unmarshalStrings(cues)
	mem.SourceShortTermIDs = unmarshalStrings(sourceIDs)
	mem.MemoryCluster = cluster.String
	return &mem, nil
}

func scanNote(row rowScanner) (*types.ProcessedNote, error) {
	var note types.ProcessedNote
	var summary, topics, sentiment, tags, entityIDs sql.NullString
	err := row.Scan(&note.ID, &note.OriginalText, &summary, &topics,
		&sentiment, &note.CreatedAt, &note.Importance, &note.Confidence,
		&tags, &entityIDs)
	if err != nil {
		return nil, err
	}
	note.Summary = summary.String
	note.Topics = unmarshalStrings(topics)
	note.Sentiment = sentiment.String
	note.ContextTags = unmarshalStrings(tags)
	note.RelatedEntityIDs = unmarshalStrings(entityIDs)
	return &note, nil
}

func scanEntity(row rowScanner) (*types.Entity, error) {
	var entity types.Entity
	var aliases, attrs sql.NullString
	var lastMentioned sql.NullTime
	err := row.Scan(&entity.ID, &entity.Name, &entity.Type, &aliases,
		&entity.Confidence, &entity.IsValidated, &entity.Mentions,
		&lastMentioned, &attrs, &entity.Importance, &entity.Salience,
		&entity.CreatedAt, &entity.UpdatedAt)
	if err != nil {
		return nil, err
	}
	entity.Aliases = unmarshalStrings(aliases)
	if lastMentioned.Valid {
		entity.LastMentioned = lastMentioned.Time
	}
	if attrs.Valid && attrs.String != "" {
		if err := json.Unmarshal([]byte(attrs.String), &entity.Attributes); err != nil {
			return nil, fmt.Errorf("unmarshal entity attributes: %w", err)
		}
	}
	return &entity, nil
}

func (s *Store) queryRelationships(ctx context.Context, query string, args ...any) ([]types.Relationship, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list relationships: %v", storage.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []types.Relationship
	for rows.Next() {
		var rel types.Relationship
		var evidence sql.NullString
		var startDate, endDate sql.NullTime
		err := rows.Scan(&rel.ID, &rel.SubjectID, &rel.PredicateType,
			&rel.ObjectID, &rel.Confidence, &rel.Strength, &rel.Importance,
			&startDate, &endDate, &evidence, &rel.Bidirectional,
			&rel.CreatedAt, &rel.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: scan relationship: %v", storage.ErrUnavailable, err)
		}
		rel.Evidence = unmarshalStrings(evidence)
		if startDate.Valid {
			rel.StartDate = &startDate.Time
		}
		if endDate.Valid {
			rel.EndDate = &endDate.Time
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Column marshaling helpers
// ---------------------------------------------------------------------------

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func marshalStrings(values []string) any {
	if len(values) == 0 {
		return nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return string(data)
}

func unmarshalStrings(col sql.NullString) []string {
	if !col.Valid || col.String == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(col.String), &out); err != nil {
		return nil
	}
	return out
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return *t
}

func nullTimeValue(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
