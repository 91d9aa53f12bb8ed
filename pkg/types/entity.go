package types

import (
	"math"
	"time"
)

// Entity is a named node in the knowledge graph. Entities are created on
// first extraction from ingested text and updated (never deleted) on every
// re-mention. Relationships reference entities by ID only.
type Entity struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Type          string            `json:"type"` // person, organization, activity, concept, location
	Aliases       []string          `json:"aliases,omitempty"`
	Confidence    float64           `json:"confidence"` // 0.0-1.0
	IsValidated   bool              `json:"is_validated"`
	Mentions      int               `json:"mentions"`
	LastMentioned time.Time         `json:"last_mentioned"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	Importance    float64           `json:"importance"` // 0.0-1.0
	Salience      float64           `json:"salience"`   // 0.0-1.0
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

const (
	// mentionSaturation is the mention count at which the mention factor
	// approaches its ceiling. Log scaling keeps heavy re-mention from
	// dominating the score.
	mentionSaturation = 50.0

	// freshnessHalfLifeDays controls how fast an entity's freshness factor
	// decays without re-mention.
	freshnessHalfLifeDays = 120.0
)

// EntityScore returns the deterministic composite score for the entity at the
// given instant. The score is a pure function of mentions, confidence,
// freshness, and importance, and is always within [0.0, 1.0] regardless of
// field values.
func (e *Entity) EntityScore(now time.Time) float64 {
	mentionFactor := math.Log1p(float64(e.Mentions)) / math.Log1p(mentionSaturation)
	mentionFactor = clamp01(mentionFactor)

	freshness := 0.0
	if !e.LastMentioned.IsZero() {
		days := now.Sub(e.LastMentioned).Hours() / 24.0
		if days < 0 {
			days = 0
		}
		freshness = math.Pow(2, -days/freshnessHalfLifeDays)
	}

	score := mentionFactor*0.3 +
		clamp01(e.Confidence)*0.25 +
		freshness*0.2 +
		clamp01(e.Importance)*0.25

	return clamp01(score)
}

// RecordMention updates the mention count and freshness timestamps for a
// re-mention of the entity at the given instant.
func (e *Entity) RecordMention(now time.Time) {
	e.Mentions++
	e.LastMentioned = now
	e.UpdatedAt = now
}

// clamp01 bounds v to [0.0, 1.0].
func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0.0), 1.0)
}
