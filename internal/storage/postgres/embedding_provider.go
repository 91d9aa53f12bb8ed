package postgres

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/mindwell/recall/internal/storage"
	"github.com/mindwell/recall/pkg/types"
)

// EmbeddingProvider stores and searches note embeddings using pgvector.
// Construction fails when the extension is unavailable so callers fall back
// to term-overlap retrieval explicitly.
type EmbeddingProvider struct {
	store *Store
}

var _ storage.EmbeddingProvider = (*EmbeddingProvider)(nil)

// NewEmbeddingProvider returns a provider backed by the store's database.
func NewEmbeddingProvider(store *Store) (*EmbeddingProvider, error) {
	if !store.VectorSearchAvailable() {
		return nil, fmt.Errorf("postgres: pgvector extension is not available")
	}
	return &EmbeddingProvider{store: store}, nil
}

// StoreEmbedding saves or replaces the embedding for a note.
func (p *EmbeddingProvider) StoreEmbedding(ctx context.Context, noteID string, embedding []float32, model string) error {
	if noteID == "" {
		return fmt.Errorf("postgres: embedding requires a note ID")
	}
	if len(embedding) == 0 {
		return fmt.Errorf("postgres: embedding for note %s is empty", noteID)
	}

	_, err := p.store.db.ExecContext(ctx, `
		INSERT INTO note_embeddings (note_id, embedding, model, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (note_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			model = EXCLUDED.model,
			created_at = EXCLUDED.created_at
	`, noteID, pgvector.NewVector(embedding), model)
	if err != nil {
		return fmt.Errorf("%w: store embedding: %v", storage.ErrUnavailable, err)
	}
	return nil
}

// SimilarNotes returns the notes whose embeddings are closest to the query
// vector by cosine distance, nearest first.
func (p *EmbeddingProvider) SimilarNotes(ctx context.Context, embedding []float32, limit int) ([]types.ProcessedNote, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := p.store.db.QueryContext(ctx, `
		SELECT n.id, n.original_text, n.summary, n.topics, n.sentiment,
		       n.created_at, n.importance, n.confidence, n.context_tags,
		       n.related_entity_ids
		FROM note_embeddings e
		JOIN processed_notes n ON n.id = e.note_id
		ORDER BY e.embedding <=> $1
		LIMIT $2
	`, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: similar notes: %v", storage.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []types.ProcessedNote
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan similar note: %v", storage.ErrUnavailable, err)
		}
		out = append(out, *note)
	}
	return out, rows.Err()
}
