// Package types defines the core data structures for the recall memory system:
// tiered memory records, the knowledge-graph entities and relationships that
// cross-reference them, and the privacy classification results that drive
// provider routing.
package types

import "fmt"

// PrivacyLevel is an ordered sensitivity classification. Higher values are
// more sensitive. The ordering is load-bearing: routing decisions compare
// levels directly, and context can only ever raise a query's level.
type PrivacyLevel int

const (
	// PrivacyPublicKnowledge marks content with no personal signal.
	// The only level eligible for cloud processing.
	PrivacyPublicKnowledge PrivacyLevel = iota

	// PrivacyContextual marks content with a single personal indicator class.
	PrivacyContextual

	// PrivacyPersonal marks content with multiple corroborating personal
	// indicator classes, or any query whose retrieved context is personal.
	PrivacyPersonal

	// PrivacySensitive marks content containing health or financial terms.
	// Sensitive classification is a short-circuit, not an additive score.
	PrivacySensitive
)

// String returns the wire/display name of the level.
func (l PrivacyLevel) String() string {
	switch l {
	case PrivacyPublicKnowledge:
		return "public_knowledge"
	case PrivacyContextual:
		return "contextual"
	case PrivacyPersonal:
		return "personal"
	case PrivacySensitive:
		return "sensitive"
	default:
		return fmt.Sprintf("privacy_level(%d)", int(l))
	}
}

// ParsePrivacyLevel converts a stored level name back to a PrivacyLevel.
func ParsePrivacyLevel(s string) (PrivacyLevel, error) {
	switch s {
	case "public_knowledge":
		return PrivacyPublicKnowledge, nil
	case "contextual":
		return PrivacyContextual, nil
	case "personal":
		return PrivacyPersonal, nil
	case "sensitive":
		return PrivacySensitive, nil
	default:
		return PrivacyPublicKnowledge, fmt.Errorf("unknown privacy level %q", s)
	}
}

// RequiresOnDevice reports whether content at this level must stay on local
// compute. Everything above public knowledge requires on-device processing.
func (l PrivacyLevel) RequiresOnDevice() bool {
	return l != PrivacyPublicKnowledge
}

// RecommendedContextSize returns the context token budget for a generation
// request at this level. The budget tightens as sensitivity rises to bound
// what an on-device model must hold.
func (l PrivacyLevel) RecommendedContextSize() int {
	switch l {
	case PrivacyPublicKnowledge:
		return 32768
	case PrivacyContextual:
		return 16384
	case PrivacyPersonal:
		return 8192
	default:
		return 4096
	}
}

// Risk factor tags attached to a PrivacyAnalysis.
const (
	RiskHealthInformation     = "health_information"
	RiskFinancialInformation  = "financial_information"
	RiskPersonalMemoryContext = "personal_memory_context"
)

// Short-term memory type constants.
const (
	MemoryTypeEpisodic   = "episodic"
	MemoryTypeSemantic   = "semantic"
	MemoryTypeProcedural = "procedural"
)

// ValidMemoryTypes lists the accepted short-term memory types.
var ValidMemoryTypes = []string{
	MemoryTypeEpisodic,
	MemoryTypeSemantic,
	MemoryTypeProcedural,
}

// IsValidMemoryType checks if the given memory type is valid.
func IsValidMemoryType(memoryType string) bool {
	for _, validType := range ValidMemoryTypes {
		if validType == memoryType {
			return true
		}
	}
	return false
}

// Long-term memory category constants.
const (
	CategoryProfessional = "professional"
	CategoryPersonal     = "personal"
	CategoryFactual      = "factual"
	CategoryProcedural   = "procedural"
	CategoryRelational   = "relational"
)

// ValidCategories lists the accepted long-term memory categories.
var ValidCategories = []string{
	CategoryProfessional,
	CategoryPersonal,
	CategoryFactual,
	CategoryProcedural,
	CategoryRelational,
}

// IsValidCategory checks if the given long-term category is valid.
func IsValidCategory(category string) bool {
	for _, validCategory := range ValidCategories {
		if validCategory == category {
			return true
		}
	}
	return false
}

// Entity type constants.
const (
	EntityTypePerson       = "person"
	EntityTypeOrganization = "organization"
	EntityTypeActivity     = "activity"
	EntityTypeConcept      = "concept"
	EntityTypeLocation     = "location"
)

// ValidEntityTypes lists the accepted entity types.
var ValidEntityTypes = []string{
	EntityTypePerson,
	EntityTypeOrganization,
	EntityTypeActivity,
	EntityTypeConcept,
	EntityTypeLocation,
}

// IsValidEntityType checks if the given entity type is valid.
func IsValidEntityType(entityType string) bool {
	for _, validType := range ValidEntityTypes {
		if validType == entityType {
			return true
		}
	}
	return false
}

// Ingestion item type constants, used by the agent's ingest dispatcher.
const (
	IngestTypeTranscription = "transcription"
	IngestTypeNote          = "note"
	IngestTypeHealthData    = "health_data"
	IngestTypeEvent         = "event"
)
