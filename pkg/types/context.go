package types

// MemoryContext is the assembled retrieval result for a query: the ranked
// candidates from every enabled memory class plus the privacy verdict over
// the whole bundle. ContainsPersonalData is always computed by the privacy
// analyzer over the query and candidates together, never independently.
type MemoryContext struct {
	UserQuery            string            `json:"user_query"`
	Entities             []Entity          `json:"entities,omitempty"`
	Relationships        []Relationship    `json:"relationships,omitempty"`
	ShortTermMemories    []ShortTermMemory `json:"short_term_memories,omitempty"`
	LongTermMemories     []LongTermMemory  `json:"long_term_memories,omitempty"`
	EpisodicMemories     []EpisodicMemory  `json:"episodic_memories,omitempty"`
	RelevantNotes        []ProcessedNote   `json:"relevant_notes,omitempty"`
	ContainsPersonalData bool              `json:"contains_personal_data"`
}

// IsEmpty reports whether the context carries no retrieved candidates.
func (c *MemoryContext) IsEmpty() bool {
	return c.TotalItems() == 0
}

// TotalItems returns the number of retrieved candidates across all classes.
func (c *MemoryContext) TotalItems() int {
	return len(c.Entities) +
		len(c.Relationships) +
		len(c.ShortTermMemories) +
		len(c.LongTermMemories) +
		len(c.EpisodicMemories) +
		len(c.RelevantNotes)
}
