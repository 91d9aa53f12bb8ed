package types_test

import (
	"strings"
	"testing"

	"github.com/mindwell/recall/pkg/types"
)

// TestPredicateDirectionality verifies the bidirectionality table for a
// representative sample of predicate types.
func TestPredicateDirectionality(t *testing.T) {
	cases := []struct {
		predicate     string
		bidirectional bool
		inverse       string
	}{
		{types.PredKnows, true, types.PredKnows},
		{types.PredMarriedTo, true, types.PredMarriedTo},
		{types.PredParentOf, false, types.PredChildOf},
		{types.PredChildOf, false, types.PredParentOf},
		{types.PredWorksAt, false, types.PredEmploys},
		{types.PredLocatedIn, false, ""},
	}

	for _, tc := range cases {
		t.Run(tc.predicate, func(t *testing.T) {
			meta := types.PredicateInfo(tc.predicate)
			if meta.Bidirectional != tc.bidirectional {
				t.Errorf("Bidirectional = %v, want %v", meta.Bidirectional, tc.bidirectional)
			}
			if meta.Inverse != tc.inverse {
				t.Errorf("Inverse = %q, want %q", meta.Inverse, tc.inverse)
			}
		})
	}
}

// TestUnknownPredicateIsDirected verifies unknown predicates default to
// directed with no inverse.
func TestUnknownPredicateIsDirected(t *testing.T) {
	meta := types.PredicateInfo("orbits")
	if meta.Bidirectional {
		t.Error("unknown predicate should not be bidirectional")
	}
	if meta.Inverse != "" {
		t.Errorf("unknown predicate inverse = %q, want empty", meta.Inverse)
	}
	if types.IsValidPredicateType("orbits") {
		t.Error("orbits should not be a valid predicate type")
	}
}

// TestRelationshipBidirectionalOverride verifies the per-relationship flag
// wins over the predicate table.
func TestRelationshipBidirectionalOverride(t *testing.T) {
	rel := types.Relationship{PredicateType: types.PredLocatedIn, Bidirectional: true}
	if !rel.IsBidirectional() {
		t.Error("explicit Bidirectional flag should override predicate metadata")
	}

	rel = types.Relationship{PredicateType: types.PredKnows}
	if !rel.IsBidirectional() {
		t.Error("knows should be bidirectional via predicate metadata")
	}
	if rel.InversePredicate() != types.PredKnows {
		t.Errorf("InversePredicate() = %q, want %q", rel.InversePredicate(), types.PredKnows)
	}
}

// TestNewRelationship verifies ID format and predicate-derived defaults.
func TestNewRelationship(t *testing.T) {
	rel := types.NewRelationship("ent:a", types.PredSiblingOf, "ent:b")

	if !strings.HasPrefix(rel.ID, "rel:") || len(rel.ID) != len("rel:")+36 {
		t.Errorf("ID = %q, want rel:<uuid>", rel.ID)
	}
	if rel.SubjectID != "ent:a" || rel.ObjectID != "ent:b" {
		t.Errorf("triple = (%q, %q)", rel.SubjectID, rel.ObjectID)
	}
	if !rel.Bidirectional {
		t.Error("sibling_of should default to bidirectional")
	}
	if rel.CreatedAt.IsZero() || !rel.CreatedAt.Equal(rel.UpdatedAt) {
		t.Error("timestamps should be set and equal on creation")
	}

	other := types.NewRelationship("ent:a", types.PredSiblingOf, "ent:b")
	if other.ID == rel.ID {
		t.Error("IDs should be unique per call")
	}
}
