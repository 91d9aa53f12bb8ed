// Package privacy classifies free text and memory records into an ordered
// sensitivity level and decides on-device-vs-cloud routing. Classification is
// a pure function of the input and the lexical indicator tables; it performs
// no I/O and never fails. Unrecognized text defaults to public knowledge with
// low confidence.
package privacy

import (
	"fmt"

	"github.com/mindwell/recall/pkg/types"
)

// Analyzer scans text against the indicator tables. Safe for concurrent use;
// the automaton is immutable after construction.
type Analyzer struct {
	lex *lexicon
}

// NewAnalyzer builds the indicator automaton.
func NewAnalyzer() (*Analyzer, error) {
	lex, err := newLexicon()
	if err != nil {
		return nil, fmt.Errorf("privacy: %w", err)
	}
	return &Analyzer{lex: lex}, nil
}

// MustNewAnalyzer panics on construction failure. The indicator tables are
// compile-time constants, so failure indicates a programming error.
func MustNewAnalyzer() *Analyzer {
	a, err := NewAnalyzer()
	if err != nil {
		panic(err)
	}
	return a
}

// AnalyzePrivacy classifies a query, optionally escalated by retrieved
// context. Context can only raise the level, never lower it: personal content
// among the candidates forces at least the personal level and records the
// personal_memory_context risk factor.
func (a *Analyzer) AnalyzePrivacy(query string, ctx *types.MemoryContext) types.PrivacyAnalysis {
	result := a.classify(query)

	if ctx == nil {
		return result
	}

	ctxScan := a.scanContext(ctx)
	if ctxScan.level >= types.PrivacyPersonal && result.Level < types.PrivacyPersonal {
		result.Level = types.PrivacyPersonal
	}
	if ctxScan.level == types.PrivacySensitive {
		result.Level = types.PrivacySensitive
	}
	if ctxScan.personal || ctxScan.level >= types.PrivacyPersonal {
		if !result.HasRiskFactor(types.RiskPersonalMemoryContext) {
			result.RiskFactors = append(result.RiskFactors, types.RiskPersonalMemoryContext)
		}
	}
	for _, rf := range ctxScan.riskFactors {
		if !result.HasRiskFactor(rf) {
			result.RiskFactors = append(result.RiskFactors, rf)
		}
	}
	return result
}

// AnalyzeMemoryPrivacy applies the classifier to a persisted record's text.
// The consolidation service uses the result to decide whether a record may
// ever be handed to a non-on-device provider.
func (a *Analyzer) AnalyzeMemoryPrivacy(content string) types.PrivacyAnalysis {
	return a.classify(content)
}

// ContainsPersonalData reports whether the query or any retrieved candidate
// carries personal or sensitive content. Retrieval delegates here so the
// verdict has a single source of truth.
func (a *Analyzer) ContainsPersonalData(ctx *types.MemoryContext) bool {
	if ctx == nil {
		return false
	}
	analysis := a.AnalyzePrivacy(ctx.UserQuery, ctx)
	return analysis.Level >= types.PrivacyContextual
}

// classify runs the indicator scan over a single piece of text.
func (a *Analyzer) classify(text string) types.PrivacyAnalysis {
	matches := a.lex.scan(text)

	var (
		personalCategories = map[indicatorCategory]bool{}
		indicators         []string
		sensitiveEntities  []string
		seenIndicator      = map[string]bool{}
		seenSensitive      = map[string]bool{}
		healthHit          bool
		financialHit       bool
	)

	for _, m := range matches {
		switch {
		case m.Category.isPersonal():
			personalCategories[m.Category] = true
			if !seenIndicator[m.Term] {
				seenIndicator[m.Term] = true
				indicators = append(indicators, m.Term)
			}
		case m.Category == categoryHealth:
			healthHit = true
			if !seenSensitive[m.Term] {
				seenSensitive[m.Term] = true
				sensitiveEntities = append(sensitiveEntities, m.Term)
			}
		case m.Category == categoryFinancial:
			financialHit = true
			if !seenSensitive[m.Term] {
				seenSensitive[m.Term] = true
				sensitiveEntities = append(sensitiveEntities, m.Term)
			}
		}
	}

	var riskFactors []string
	if healthHit {
		riskFactors = append(riskFactors, types.RiskHealthInformation)
	}
	if financialHit {
		riskFactors = append(riskFactors, types.RiskFinancialInformation)
	}

	// Sensitivity is a short-circuit, not an additive score: any health or
	// financial match overrides every other signal.
	level := types.PrivacyPublicKnowledge
	switch {
	case healthHit || financialHit:
		level = types.PrivacySensitive
	case len(personalCategories) >= 2:
		level = types.PrivacyPersonal
	case len(personalCategories) == 1:
		level = types.PrivacyContextual
	}

	return types.PrivacyAnalysis{
		Level:              level,
		PersonalIndicators: indicators,
		SensitiveEntities:  sensitiveEntities,
		RiskFactors:        riskFactors,
		Confidence:         confidence(len(personalCategories), healthHit, financialHit),
	}
}

// confidence grows with the number of independent indicator categories that
// fired, capped at 1.0. No signal at all means a low-confidence default.
func confidence(personalCategories int, healthHit, financialHit bool) float64 {
	fired := personalCategories
	if healthHit {
		fired++
	}
	if financialHit {
		fired++
	}
	if fired == 0 {
		return 0.3
	}
	c := 0.5 + 0.15*float64(fired)
	if c > 1.0 {
		c = 1.0
	}
	return c
}

type contextScan struct {
	level       types.PrivacyLevel
	personal    bool
	riskFactors []string
}

// scanContext classifies every candidate's text and keeps the highest level
// observed. Risk factors from context content carry through deterministically
// (health before financial).
func (a *Analyzer) scanContext(ctx *types.MemoryContext) contextScan {
	out := contextScan{level: types.PrivacyPublicKnowledge}

	var healthHit, financialHit bool
	consider := func(text string) {
		if text == "" {
			return
		}
		res := a.classify(text)
		if res.Level > out.level {
			out.level = res.Level
		}
		if len(res.PersonalIndicators) > 0 {
			out.personal = true
		}
		if res.HasRiskFactor(types.RiskHealthInformation) {
			healthHit = true
		}
		if res.HasRiskFactor(types.RiskFinancialInformation) {
			financialHit = true
		}
	}

	for _, m := range ctx.ShortTermMemories {
		consider(m.Content)
	}
	for _, m := range ctx.LongTermMemories {
		consider(m.Content)
	}
	for _, m := range ctx.EpisodicMemories {
		consider(m.EventDescription)
	}
	for _, n := range ctx.RelevantNotes {
		consider(n.Summary)
		consider(n.OriginalText)
	}
	for _, e := range ctx.Entities {
		consider(e.Name)
		if e.Type == types.EntityTypePerson || e.Type == types.EntityTypeLocation {
			out.personal = true
		}
	}

	if healthHit {
		out.riskFactors = append(out.riskFactors, types.RiskHealthInformation)
	}
	if financialHit {
		out.riskFactors = append(out.riskFactors, types.RiskFinancialInformation)
	}
	return out
}
