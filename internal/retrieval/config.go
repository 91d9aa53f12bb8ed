package retrieval

import (
	"fmt"

	"github.com/mindwell/recall/pkg/types"
)

// RetrievalConfiguration controls which memory classes participate in a
// retrieval pass and how candidates are scored. RecencyWeight and
// RelevanceWeight are independent multipliers; they need not sum to 1.
type RetrievalConfiguration struct {
	// MaxResults caps the candidates taken per memory class, not globally.
	MaxResults int

	RecencyWeight   float64
	RelevanceWeight float64

	// SemanticThreshold is a hard floor on the relevance score alone.
	// Candidates below it are discarded regardless of recency.
	SemanticThreshold float64

	IncludeShortTerm bool
	IncludeLongTerm  bool
	IncludeEpisodic  bool
	IncludeEntities  bool
	IncludeNotes     bool
}

// DefaultConfiguration includes every memory class with balanced weights.
func DefaultConfiguration() RetrievalConfiguration {
	return RetrievalConfiguration{
		MaxResults:        10,
		RecencyWeight:     0.3,
		RelevanceWeight:   0.7,
		SemanticThreshold: 0.1,
		IncludeShortTerm:  true,
		IncludeLongTerm:   true,
		IncludeEpisodic:   true,
		IncludeEntities:   true,
		IncludeNotes:      true,
	}
}

// PersonalFocusConfiguration excludes the entity graph and upweights recency,
// favoring what the user did lately over what the system knows abstractly.
func PersonalFocusConfiguration() RetrievalConfiguration {
	return RetrievalConfiguration{
		MaxResults:        10,
		RecencyWeight:     0.6,
		RelevanceWeight:   0.4,
		SemanticThreshold: 0.1,
		IncludeShortTerm:  true,
		IncludeLongTerm:   true,
		IncludeEpisodic:   true,
		IncludeEntities:   false,
		IncludeNotes:      true,
	}
}

// ConfigurationForPrivacyLevel derives a retrieval configuration whose result
// budget shrinks as sensitivity rises, tracking the recommended context size
// for the level.
func ConfigurationForPrivacyLevel(level types.PrivacyLevel) RetrievalConfiguration {
	cfg := DefaultConfiguration()
	cfg.MaxResults = level.RecommendedContextSize() / 2048
	if cfg.MaxResults < 2 {
		cfg.MaxResults = 2
	}
	if level >= types.PrivacyPersonal {
		cfg = PersonalFocusConfiguration()
		cfg.MaxResults = level.RecommendedContextSize() / 2048
		if cfg.MaxResults < 2 {
			cfg.MaxResults = 2
		}
	}
	return cfg
}

// Validate checks the configuration for values the scorer cannot work with.
func (c RetrievalConfiguration) Validate() error {
	if c.MaxResults <= 0 {
		return fmt.Errorf("retrieval: max results must be positive, got %d", c.MaxResults)
	}
	if c.SemanticThreshold < 0 || c.SemanticThreshold > 1 {
		return fmt.Errorf("retrieval: semantic threshold must be in [0,1], got %g", c.SemanticThreshold)
	}
	if c.RecencyWeight < 0 || c.RelevanceWeight < 0 {
		return fmt.Errorf("retrieval: weights must be non-negative")
	}
	return nil
}
