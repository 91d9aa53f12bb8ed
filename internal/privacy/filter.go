package privacy

import (
	"strings"

	"github.com/mindwell/recall/pkg/types"
)

// Redaction placeholders substituted for matched spans.
const (
	placeholderPersonal = "[PERSONAL]"
	placeholderFamily   = "[FAMILY]"
	placeholderLocation = "[LOCATION]"
)

// FilterPersonalDataFromContext returns a redacted copy of the context
// appropriate for a provider capped at targetLevel. Each stricter target is a
// non-increasing-information transform of the one above it:
//
//	sensitive        everything passes through unfiltered
//	personal         episodic memories dropped
//	contextual       episodic memories and person/location entities dropped
//	publicKnowledge  entities and episodic memories stripped entirely, and
//	                 personal/family/location substrings in all remaining text
//	                 replaced with bracketed placeholders
//
// The input is never mutated.
func (a *Analyzer) FilterPersonalDataFromContext(ctx types.MemoryContext, targetLevel types.PrivacyLevel) types.MemoryContext {
	out := ctx
	out.Entities = append([]types.Entity(nil), ctx.Entities...)
	out.Relationships = append([]types.Relationship(nil), ctx.Relationships...)
	out.ShortTermMemories = append([]types.ShortTermMemory(nil), ctx.ShortTermMemories...)
	out.LongTermMemories = append([]types.LongTermMemory(nil), ctx.LongTermMemories...)
	out.EpisodicMemories = append([]types.EpisodicMemory(nil), ctx.EpisodicMemories...)
	out.RelevantNotes = append([]types.ProcessedNote(nil), ctx.RelevantNotes...)

	if targetLevel == types.PrivacySensitive {
		return out
	}

	// Episodic memories carry the richest personal detail; they are the first
	// class dropped on the way down the ladder.
	out.EpisodicMemories = nil

	if targetLevel == types.PrivacyPersonal {
		return out
	}

	if targetLevel == types.PrivacyContextual {
		kept := out.Entities[:0]
		for _, e := range out.Entities {
			if e.Type == types.EntityTypePerson || e.Type == types.EntityTypeLocation {
				continue
			}
			kept = append(kept, e)
		}
		out.Entities = kept
		return out
	}

	// publicKnowledge target.
	out.Entities = nil
	out.Relationships = nil
	out.UserQuery = a.Redact(out.UserQuery)
	for i := range out.ShortTermMemories {
		out.ShortTermMemories[i].Content = a.Redact(out.ShortTermMemories[i].Content)
	}
	for i := range out.LongTermMemories {
		out.LongTermMemories[i].Content = a.Redact(out.LongTermMemories[i].Content)
	}
	for i := range out.RelevantNotes {
		out.RelevantNotes[i].Summary = a.Redact(out.RelevantNotes[i].Summary)
		out.RelevantNotes[i].OriginalText = a.Redact(out.RelevantNotes[i].OriginalText)
	}
	out.ContainsPersonalData = false
	return out
}

// Redact replaces every indicator span in text with the placeholder for its
// category: family terms become [FAMILY], location terms [LOCATION], and the
// remaining personal indicators [PERSONAL]. Health and financial matches also
// redact to [PERSONAL]; content classified sensitive is normally never handed
// down this far, but redaction stays safe if it is.
func (a *Analyzer) Redact(text string) string {
	matches := a.lex.scan(text)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	pos := 0
	for _, m := range matches {
		if m.Start < pos {
			continue // overlapping match already covered
		}
		b.WriteString(text[pos:m.Start])
		b.WriteString(placeholderFor(m.Category))
		pos = m.End
	}
	b.WriteString(text[pos:])
	return b.String()
}

func placeholderFor(cat indicatorCategory) string {
	switch cat {
	case categoryFamily:
		return placeholderFamily
	case categoryLocation:
		return placeholderLocation
	default:
		return placeholderPersonal
	}
}
