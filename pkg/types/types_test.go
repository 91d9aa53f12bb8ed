package types_test

import (
	"testing"

	"github.com/mindwell/recall/pkg/types"
)

// TestPrivacyLevelOrdering verifies the level ordering used by routing:
// public_knowledge < contextual < personal < sensitive.
func TestPrivacyLevelOrdering(t *testing.T) {
	if !(types.PrivacyPublicKnowledge < types.PrivacyContextual) {
		t.Error("public_knowledge must order below contextual")
	}
	if !(types.PrivacyContextual < types.PrivacyPersonal) {
		t.Error("contextual must order below personal")
	}
	if !(types.PrivacyPersonal < types.PrivacySensitive) {
		t.Error("personal must order below sensitive")
	}
}

// TestRequiresOnDevice verifies that every level except public_knowledge
// requires on-device processing.
func TestRequiresOnDevice(t *testing.T) {
	cases := []struct {
		level    types.PrivacyLevel
		onDevice bool
	}{
		{types.PrivacyPublicKnowledge, false},
		{types.PrivacyContextual, true},
		{types.PrivacyPersonal, true},
		{types.PrivacySensitive, true},
	}

	for _, tc := range cases {
		t.Run(tc.level.String(), func(t *testing.T) {
			if got := tc.level.RequiresOnDevice(); got != tc.onDevice {
				t.Errorf("RequiresOnDevice() = %v, want %v", got, tc.onDevice)
			}
		})
	}
}

// TestRecommendedContextSizeTightens verifies the context budget is
// non-increasing as sensitivity rises.
func TestRecommendedContextSizeTightens(t *testing.T) {
	levels := []types.PrivacyLevel{
		types.PrivacyPublicKnowledge,
		types.PrivacyContextual,
		types.PrivacyPersonal,
		types.PrivacySensitive,
	}

	for i := 1; i < len(levels); i++ {
		lower := levels[i-1].RecommendedContextSize()
		higher := levels[i].RecommendedContextSize()
		if higher > lower {
			t.Errorf("context size for %s (%d) exceeds %s (%d)",
				levels[i], higher, levels[i-1], lower)
		}
	}

	if got := types.PrivacyPublicKnowledge.RecommendedContextSize(); got != 32768 {
		t.Errorf("public_knowledge context size = %d, want 32768", got)
	}
	if got := types.PrivacyPersonal.RecommendedContextSize(); got != 8192 {
		t.Errorf("personal context size = %d, want 8192", got)
	}
	if got := types.PrivacySensitive.RecommendedContextSize(); got != 4096 {
		t.Errorf("sensitive context size = %d, want 4096", got)
	}
}

// TestParsePrivacyLevelRoundTrip verifies String/Parse round-trip for all levels.
func TestParsePrivacyLevelRoundTrip(t *testing.T) {
	levels := []types.PrivacyLevel{
		types.PrivacyPublicKnowledge,
		types.PrivacyContextual,
		types.PrivacyPersonal,
		types.PrivacySensitive,
	}

	for _, level := range levels {
		parsed, err := types.ParsePrivacyLevel(level.String())
		if err != nil {
			t.Fatalf("ParsePrivacyLevel(%q): %v", level.String(), err)
		}
		if parsed != level {
			t.Errorf("round-trip %q: got %v, want %v", level.String(), parsed, level)
		}
	}

	if _, err := types.ParsePrivacyLevel("super_secret"); err == nil {
		t.Error("expected error for unknown level name")
	}
}

// TestValidationHelpers spot-checks the type validation helpers.
func TestValidationHelpers(t *testing.T) {
	if !types.IsValidMemoryType(types.MemoryTypeEpisodic) {
		t.Error("episodic should be a valid memory type")
	}
	if types.IsValidMemoryType("holographic") {
		t.Error("holographic should not be a valid memory type")
	}
	if !types.IsValidCategory(types.CategoryProfessional) {
		t.Error("professional should be a valid category")
	}
	if !types.IsValidEntityType(types.EntityTypeLocation) {
		t.Error("location should be a valid entity type")
	}
	if types.IsValidEntityType("planet") {
		t.Error("planet should not be a valid entity type")
	}
}
