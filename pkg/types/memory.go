package types

import (
	"math"
	"time"
)

// ShortTermMemory is the ingestion-time memory tier. Entries are created with
// a provisional importance and become eligible for consolidation once they
// pass the promotion age threshold. Consolidation never hard-deletes a row;
// processed entries are marked Consolidated and age out of future passes.
type ShortTermMemory struct {
	ID               string    `json:"id"`
	Content          string    `json:"content"`
	CreatedAt        time.Time `json:"created_at"`
	Importance       float64   `json:"importance"` // 0.0-1.0
	Confidence       float64   `json:"confidence"` // 0.0-1.0
	ContextTags      []string  `json:"context_tags,omitempty"`
	RelatedEntityIDs []string  `json:"related_entity_ids,omitempty"`

	// MemoryType classifies the entry: episodic, semantic, or procedural.
	MemoryType string `json:"memory_type"`

	// SourceNoteID links back to the ProcessedNote this entry came from, if any.
	SourceNoteID string `json:"source_note_id,omitempty"`

	// EmotionalWeight captures affect at ingestion time (0.0-1.0).
	EmotionalWeight float64 `json:"emotional_weight,omitempty"`

	// Consolidated marks entries already evaluated by a consolidation pass.
	// Set once, never cleared.
	Consolidated   bool       `json:"consolidated"`
	ConsolidatedAt *time.Time `json:"consolidated_at,omitempty"`
}

// EligibleForConsolidation reports whether the entry has passed the promotion
// age threshold and has not already been processed by a previous pass.
func (m *ShortTermMemory) EligibleForConsolidation(now time.Time, threshold time.Duration) bool {
	if m.Consolidated {
		return false
	}
	return now.Sub(m.CreatedAt) >= threshold
}

// LongTermMemory is the consolidated memory tier. Entries are created only by
// the consolidation service, never directly by ingestion. Content is immutable
// once validated; importance may still be recalculated.
type LongTermMemory struct {
	ID               string    `json:"id"`
	Content          string    `json:"content"`
	CreatedAt        time.Time `json:"created_at"`
	Importance       float64   `json:"importance"` // 0.0-1.0
	Confidence       float64   `json:"confidence"` // 0.0-1.0
	ContextTags      []string  `json:"context_tags,omitempty"`
	RelatedEntityIDs []string  `json:"related_entity_ids,omitempty"`

	// Category is the long-term classification (professional, personal, ...).
	Category string `json:"category"`

	// RetrievalCues are terms that should surface this memory at query time.
	RetrievalCues []string `json:"retrieval_cues,omitempty"`

	// SourceShortTermIDs point back to the contributing STM entries.
	SourceShortTermIDs []string `json:"source_short_term_ids,omitempty"`

	// MemoryCluster groups related long-term memories, if assigned.
	MemoryCluster string `json:"memory_cluster,omitempty"`

	// OnDeviceOnly marks memories whose content classified as sensitive at
	// consolidation time. They are never handed to a cloud provider.
	OnDeviceOnly bool `json:"on_device_only"`
}

// EpisodicMemory is an event-shaped record created directly from dated or
// event-like ingested content. It does not expire, but its temporal
// significance decays.
type EpisodicMemory struct {
	ID               string    `json:"id"`
	EventDescription string    `json:"event_description"`
	Participants     []string  `json:"participants,omitempty"` // ordered
	Location         string    `json:"location,omitempty"`
	EmotionalTone    string    `json:"emotional_tone,omitempty"`
	ContextualCues   []string  `json:"contextual_cues,omitempty"`
	Outcome          string    `json:"outcome,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
	CreatedAt        time.Time `json:"created_at"`
	Importance       float64   `json:"importance"`
	Confidence       float64   `json:"confidence"`
	ContextTags      []string  `json:"context_tags,omitempty"`
	RelatedEntityIDs []string  `json:"related_entity_ids,omitempty"`
}

// episodicHalfLifeDays controls temporal significance decay (90-day half-life).
const episodicHalfLifeDays = 90.0

// TemporalSignificance returns the event's decayed significance at the given
// instant: importance scaled by an exponential falloff from the event date.
// The result is clamped to [0.0, 1.0].
func (m *EpisodicMemory) TemporalSignificance(now time.Time) float64 {
	days := now.Sub(m.OccurredAt).Hours() / 24.0
	if days < 0 {
		days = 0
	}
	sig := m.Importance * math.Pow(2, -days/episodicHalfLifeDays)
	return math.Min(math.Max(sig, 0.0), 1.0)
}

// ProcessedNote is a note/document-shaped record produced by the note
// ingestion pipeline. Notes are retrieval candidates but are never merged
// into the STM/LTM tiers directly.
type ProcessedNote struct {
	ID               string    `json:"id"`
	OriginalText     string    `json:"original_text"`
	Summary          string    `json:"summary,omitempty"`
	Topics           []string  `json:"topics,omitempty"`
	Sentiment        string    `json:"sentiment,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	Importance       float64   `json:"importance"`
	Confidence       float64   `json:"confidence"`
	ContextTags      []string  `json:"context_tags,omitempty"`
	RelatedEntityIDs []string  `json:"related_entity_ids,omitempty"`
}
