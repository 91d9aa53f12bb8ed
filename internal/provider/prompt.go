package provider

import (
	"fmt"
	"strings"

	"github.com/mindwell/recall/pkg/types"
)

// BuildPrompt renders the query and its retrieved context into a single
// completion prompt. Callers are expected to pass an already-filtered
// context; nothing here re-checks privacy.
func BuildPrompt(query string, memCtx *types.MemoryContext) string {
	if memCtx == nil || memCtx.IsEmpty() {
		return query
	}

	var b strings.Builder
	b.WriteString("Use the following remembered context to answer the question.\n\n")

	if len(memCtx.ShortTermMemories) > 0 {
		b.WriteString("Recent memories:\n")
		for _, m := range memCtx.ShortTermMemories {
			fmt.Fprintf(&b, "- %s\n", m.Content)
		}
		b.WriteByte('\n')
	}
	if len(memCtx.LongTermMemories) > 0 {
		b.WriteString("Established knowledge:\n")
		for _, m := range memCtx.LongTermMemories {
			fmt.Fprintf(&b, "- %s\n", m.Content)
		}
		b.WriteByte('\n')
	}
	if len(memCtx.EpisodicMemories) > 0 {
		b.WriteString("Past events:\n")
		for _, m := range memCtx.EpisodicMemories {
			fmt.Fprintf(&b, "- %s (%s)\n", m.EventDescription, m.OccurredAt.Format("2006-01-02"))
		}
		b.WriteByte('\n')
	}
	if len(memCtx.RelevantNotes) > 0 {
		b.WriteString("Notes:\n")
		for _, n := range memCtx.RelevantNotes {
			text := n.Summary
			if text == "" {
				text = n.OriginalText
			}
			fmt.Fprintf(&b, "- %s\n", text)
		}
		b.WriteByte('\n')
	}
	if len(memCtx.Entities) > 0 {
		b.WriteString("Known entities:\n")
		for _, e := range memCtx.Entities {
			fmt.Fprintf(&b, "- %s (%s)\n", e.Name, e.Type)
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "Question: %s\n", query)
	return b.String()
}
