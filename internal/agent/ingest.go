package agent

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mindwell/recall/pkg/types"
)

// IngestItem is one unit of incoming data from a background pipeline:
// a transcription, a note, a health reading, or an event.
type IngestItem struct {
	Type       string            `json:"type"`
	Content    string            `json:"content"`
	Confidence float64           `json:"confidence"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// idGen issues monotonic ULIDs, safe for concurrent ingestion.
type idGen struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newIDGen() *idGen {
	return &idGen{entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)}
}

func (g *idGen) next(prefix string, now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return prefix + ":" + ulid.MustNew(ulid.Timestamp(now), g.entropy).String()
}

// IngestData dispatches an incoming item by type and writes the matching
// memory record. Malformed items (unknown type, missing content) are logged
// and swallowed; ingestion is best-effort since it is usually driven by
// background pipelines. Storage failures do propagate.
func (r *Router) IngestData(ctx context.Context, item IngestItem) error {
	if strings.TrimSpace(item.Content) == "" {
		log.Printf("agent: WARNING: dropping %q ingest item with empty content", item.Type)
		return nil
	}
	if item.Confidence <= 0 || item.Confidence > 1 {
		item.Confidence = 0.5
	}

	switch item.Type {
	case types.IngestTypeTranscription:
		return r.ingestShortTerm(ctx, item, types.MemoryTypeEpisodic)
	case types.IngestTypeHealthData:
		return r.ingestShortTerm(ctx, item, types.MemoryTypeSemantic)
	case types.IngestTypeNote:
		return r.ingestNote(ctx, item)
	case types.IngestTypeEvent:
		return r.ingestEvent(ctx, item)
	default:
		log.Printf("agent: WARNING: dropping ingest item with unknown type %q", item.Type)
		return nil
	}
}

// ingestShortTerm writes a short-term memory, tagged with the content's
// privacy classification so retrieval and consolidation can honor it later.
func (r *Router) ingestShortTerm(ctx context.Context, item IngestItem, memoryType string) error {
	now := r.now()
	analysis := r.analyzer.AnalyzeMemoryPrivacy(item.Content)

	stm := types.ShortTermMemory{
		ID:          r.ids.next("stm", now),
		Content:     item.Content,
		CreatedAt:   now,
		Importance:  importanceFrom(item, analysis),
		Confidence:  item.Confidence,
		ContextTags: privacyTags(analysis, item.Metadata["tags"]),
		MemoryType:  memoryType,
	}
	if err := r.store.StoreShortTerm(ctx, &stm); err != nil {
		return fmt.Errorf("agent: ingest %s: %w", item.Type, err)
	}
	return nil
}

func (r *Router) ingestNote(ctx context.Context, item IngestItem) error {
	now := r.now()
	analysis := r.analyzer.AnalyzeMemoryPrivacy(item.Content)

	note := types.ProcessedNote{
		ID:           r.ids.next("note", now),
		OriginalText: item.Content,
		Summary:      item.Metadata["summary"],
		Topics:       splitList(item.Metadata["topics"]),
		Sentiment:    item.Metadata["sentiment"],
		CreatedAt:    now,
		Importance:   importanceFrom(item, analysis),
		Confidence:   item.Confidence,
		ContextTags:  privacyTags(analysis, item.Metadata["tags"]),
	}
	if err := r.store.StoreNote(ctx, &note); err != nil {
		return fmt.Errorf("agent: ingest note: %w", err)
	}
	return nil
}

func (r *Router) ingestEvent(ctx context.Context, item IngestItem) error {
	now := r.now()
	analysis := r.analyzer.AnalyzeMemoryPrivacy(item.Content)

	occurred := now
	if raw := item.Metadata["occurred_at"]; raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			log.Printf("agent: WARNING: event item has unparseable occurred_at %q, using ingest time", raw)
		} else {
			occurred = at
		}
	}

	event := types.EpisodicMemory{
		ID:               r.ids.next("epi", now),
		EventDescription: item.Content,
		Participants:     splitList(item.Metadata["participants"]),
		Location:         item.Metadata["location"],
		EmotionalTone:    item.Metadata["emotional_tone"],
		Outcome:          item.Metadata["outcome"],
		OccurredAt:       occurred,
		CreatedAt:        now,
		Importance:       importanceFrom(item, analysis),
		Confidence:       item.Confidence,
		ContextTags:      privacyTags(analysis, item.Metadata["tags"]),
	}
	if err := r.store.StoreEpisodic(ctx, &event); err != nil {
		return fmt.Errorf("agent: ingest event: %w", err)
	}
	return nil
}

// importanceFrom derives the record's importance from the item confidence,
// boosted when the content classified as personal or sensitive.
func importanceFrom(item IngestItem, analysis types.PrivacyAnalysis) float64 {
	importance := item.Confidence * 0.8
	if analysis.Level >= types.PrivacyPersonal {
		importance += 0.1
	}
	if analysis.Level == types.PrivacySensitive {
		importance += 0.1
	}
	if importance > 1 {
		importance = 1
	}
	return importance
}

// privacyTags records the classification on the stored record so future
// retrieval can honor it without re-analyzing.
func privacyTags(analysis types.PrivacyAnalysis, extra string) []string {
	tags := []string{"privacy:" + analysis.Level.String()}
	tags = append(tags, analysis.RiskFactors...)
	tags = append(tags, splitList(extra)...)
	return tags
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
