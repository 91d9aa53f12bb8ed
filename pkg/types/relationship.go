package types

import (
	"time"

	"github.com/google/uuid"
)

// PredicateMetadata describes the directionality of a predicate type.
// Typically-bidirectional predicates are treated as undirected at query time;
// no inverse row is written on assertion.
type PredicateMetadata struct {
	Bidirectional bool   `json:"bidirectional"`
	Inverse       string `json:"inverse,omitempty"`
}

// Relationship is a directed subject→predicate→object triple over entity IDs.
// Evidence holds the memory IDs that support the assertion.
type Relationship struct {
	ID            string `json:"id"` // format: rel:uuid
	SubjectID     string `json:"subject_id"`
	PredicateType string `json:"predicate_type"`
	ObjectID      string `json:"object_id"`

	Confidence float64 `json:"confidence"` // 0.0-1.0
	Strength   float64 `json:"strength"`   // 0.0-1.0
	Importance float64 `json:"importance"` // 0.0-1.0

	// Optional temporal bounds for the relationship.
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	Evidence      []string `json:"evidence,omitempty"`
	Bidirectional bool     `json:"bidirectional"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Predicate type constants.
const (
	PredKnows        = "knows"
	PredMarriedTo    = "married_to"
	PredSiblingOf    = "sibling_of"
	PredFriendOf     = "friend_of"
	PredColleagueOf  = "colleague_of"
	PredWorksWith    = "works_with"
	PredWorksAt      = "works_at"
	PredEmploys      = "employs"
	PredParentOf     = "parent_of"
	PredChildOf      = "child_of"
	PredParticipates = "participates_in"
	PredLocatedIn    = "located_in"
	PredRelatesTo    = "relates_to"
)

// predicateMetadata maps each predicate type to its directionality info.
var predicateMetadata = map[string]PredicateMetadata{
	PredKnows:        {Bidirectional: true, Inverse: PredKnows},
	PredMarriedTo:    {Bidirectional: true, Inverse: PredMarriedTo},
	PredSiblingOf:    {Bidirectional: true, Inverse: PredSiblingOf},
	PredFriendOf:     {Bidirectional: true, Inverse: PredFriendOf},
	PredColleagueOf:  {Bidirectional: true, Inverse: PredColleagueOf},
	PredWorksWith:    {Bidirectional: true, Inverse: PredWorksWith},
	PredWorksAt:      {Bidirectional: false, Inverse: PredEmploys},
	PredEmploys:      {Bidirectional: false, Inverse: PredWorksAt},
	PredParentOf:     {Bidirectional: false, Inverse: PredChildOf},
	PredChildOf:      {Bidirectional: false, Inverse: PredParentOf},
	PredParticipates: {Bidirectional: false},
	PredLocatedIn:    {Bidirectional: false},
	PredRelatesTo:    {Bidirectional: true, Inverse: PredRelatesTo},
}

// PredicateInfo returns the directionality metadata for a predicate type.
// Unknown predicate types are treated as directed with no known inverse.
func PredicateInfo(predicateType string) PredicateMetadata {
	if meta, ok := predicateMetadata[predicateType]; ok {
		return meta
	}
	return PredicateMetadata{}
}

// IsValidPredicateType checks whether the predicate type is known.
func IsValidPredicateType(predicateType string) bool {
	_, ok := predicateMetadata[predicateType]
	return ok
}

// IsBidirectional reports whether the relationship's predicate is typically
// bidirectional. Traversal treats such relationships as undirected; the store
// does not mirror an inverse row.
func (r *Relationship) IsBidirectional() bool {
	if r.Bidirectional {
		return true
	}
	return PredicateInfo(r.PredicateType).Bidirectional
}

// InversePredicate returns the complementary predicate type, or the empty
// string when none is defined.
func (r *Relationship) InversePredicate() string {
	return PredicateInfo(r.PredicateType).Inverse
}

// NewRelationship creates a triple with a fresh rel:uuid ID and both
// timestamps set to now. Directionality defaults from the predicate type.
func NewRelationship(subjectID, predicateType, objectID string) *Relationship {
	now := time.Now()
	return &Relationship{
		ID:            "rel:" + uuid.NewString(),
		SubjectID:     subjectID,
		PredicateType: predicateType,
		ObjectID:      objectID,
		Confidence:    0.5,
		Strength:      0.5,
		Importance:    0.5,
		Bidirectional: PredicateInfo(predicateType).Bidirectional,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
