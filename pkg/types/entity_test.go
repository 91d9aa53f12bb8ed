package types_test

import (
	"testing"
	"time"

	"github.com/mindwell/recall/pkg/types"
)

// TestEntityScoreBounds verifies that EntityScore stays within [0.0, 1.0]
// even for out-of-range field values.
func TestEntityScoreBounds(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name   string
		entity types.Entity
	}{
		{"zero_value", types.Entity{}},
		{"typical", types.Entity{
			Mentions:      5,
			Confidence:    0.8,
			Importance:    0.6,
			LastMentioned: now.Add(-24 * time.Hour),
		}},
		{"extreme_mentions", types.Entity{
			Mentions:      1_000_000,
			Confidence:    1.0,
			Importance:    1.0,
			LastMentioned: now,
		}},
		{"out_of_range_fields", types.Entity{
			Mentions:      -3,
			Confidence:    42.0,
			Importance:    -1.0,
			LastMentioned: now.Add(48 * time.Hour), // future mention
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score := tc.entity.EntityScore(now)
			if score < 0.0 || score > 1.0 {
				t.Errorf("EntityScore() = %f, outside [0.0, 1.0]", score)
			}
		})
	}
}

// TestEntityScoreDeterministic verifies the score is a pure function of the
// entity fields and the evaluation instant.
func TestEntityScoreDeterministic(t *testing.T) {
	now := time.Now()
	e := types.Entity{
		Mentions:      12,
		Confidence:    0.7,
		Importance:    0.5,
		LastMentioned: now.Add(-72 * time.Hour),
	}

	first := e.EntityScore(now)
	second := e.EntityScore(now)
	if first != second {
		t.Errorf("EntityScore not deterministic: %f vs %f", first, second)
	}
}

// TestEntityScoreRewardsFreshness verifies a recently mentioned entity
// outscores an otherwise identical stale one.
func TestEntityScoreRewardsFreshness(t *testing.T) {
	now := time.Now()
	fresh := types.Entity{Mentions: 5, Confidence: 0.8, Importance: 0.5, LastMentioned: now.Add(-time.Hour)}
	stale := types.Entity{Mentions: 5, Confidence: 0.8, Importance: 0.5, LastMentioned: now.Add(-365 * 24 * time.Hour)}

	if fresh.EntityScore(now) <= stale.EntityScore(now) {
		t.Error("fresh entity should outscore stale entity")
	}
}

// TestRecordMention verifies mention bookkeeping.
func TestRecordMention(t *testing.T) {
	now := time.Now()
	e := types.Entity{Mentions: 2}

	e.RecordMention(now)

	if e.Mentions != 3 {
		t.Errorf("Mentions = %d, want 3", e.Mentions)
	}
	if !e.LastMentioned.Equal(now) {
		t.Errorf("LastMentioned = %v, want %v", e.LastMentioned, now)
	}
	if !e.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", e.UpdatedAt, now)
	}
}
