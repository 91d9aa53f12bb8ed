package types

// PrivacyAnalysis is the transient result of classifying a piece of content.
// It is never persisted; every routing decision re-derives it fresh.
type PrivacyAnalysis struct {
	// Level is the ordered sensitivity classification.
	Level PrivacyLevel `json:"level"`

	// PersonalIndicators lists the matched personal-indicator terms.
	PersonalIndicators []string `json:"personal_indicators,omitempty"`

	// SensitiveEntities lists the matched health/financial terms.
	SensitiveEntities []string `json:"sensitive_entities,omitempty"`

	// RiskFactors holds risk tags such as health_information or
	// personal_memory_context. Order is deterministic (first-fired first).
	RiskFactors []string `json:"risk_factors,omitempty"`

	// Confidence rises with the number of independent indicator categories
	// that fired, capped at 1.0.
	Confidence float64 `json:"confidence"`
}

// RequiresOnDevice reports whether content at the analyzed level must stay on
// local compute.
func (a *PrivacyAnalysis) RequiresOnDevice() bool {
	return a.Level.RequiresOnDevice()
}

// HasRiskFactor reports whether the given risk tag was recorded.
func (a *PrivacyAnalysis) HasRiskFactor(factor string) bool {
	for _, f := range a.RiskFactors {
		if f == factor {
			return true
		}
	}
	return false
}
