package types_test

import (
	"testing"
	"time"

	"github.com/mindwell/recall/pkg/types"
)

// TestEligibleForConsolidation verifies the STM age gate.
func TestEligibleForConsolidation(t *testing.T) {
	now := time.Now()
	threshold := 24 * time.Hour

	cases := []struct {
		name     string
		mem      types.ShortTermMemory
		eligible bool
	}{
		{"fresh", types.ShortTermMemory{CreatedAt: now.Add(-time.Hour)}, false},
		{"exactly_at_threshold", types.ShortTermMemory{CreatedAt: now.Add(-threshold)}, true},
		{"past_threshold", types.ShortTermMemory{CreatedAt: now.Add(-48 * time.Hour)}, true},
		{"already_consolidated", types.ShortTermMemory{
			CreatedAt:    now.Add(-48 * time.Hour),
			Consolidated: true,
		}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.mem.EligibleForConsolidation(now, threshold); got != tc.eligible {
				t.Errorf("EligibleForConsolidation() = %v, want %v", got, tc.eligible)
			}
		})
	}
}

// TestTemporalSignificanceDecays verifies episodic significance is monotonic
// non-increasing with event age and bounded to [0.0, 1.0].
func TestTemporalSignificanceDecays(t *testing.T) {
	now := time.Now()

	ages := []time.Duration{0, 24 * time.Hour, 30 * 24 * time.Hour, 365 * 24 * time.Hour}
	prev := 1.1
	for _, age := range ages {
		mem := types.EpisodicMemory{Importance: 0.9, OccurredAt: now.Add(-age)}
		sig := mem.TemporalSignificance(now)
		if sig < 0.0 || sig > 1.0 {
			t.Errorf("significance %f outside [0.0, 1.0] at age %v", sig, age)
		}
		if sig > prev {
			t.Errorf("significance increased with age: %f after %f at age %v", sig, prev, age)
		}
		prev = sig
	}
}

// TestTemporalSignificanceFutureEvent verifies a future-dated event is scored
// at full importance, not above it.
func TestTemporalSignificanceFutureEvent(t *testing.T) {
	now := time.Now()
	mem := types.EpisodicMemory{Importance: 0.6, OccurredAt: now.Add(24 * time.Hour)}

	if got := mem.TemporalSignificance(now); got != 0.6 {
		t.Errorf("TemporalSignificance() = %f, want 0.6", got)
	}
}
