package sqlite

// Schema defines the SQLite database schema for the recall store.
// All statements are idempotent (IF NOT EXISTS) so the schema can be applied
// on every open. Slice and map fields are stored as JSON text columns; the
// core fetches whole records, so no per-element indexing is needed.
const Schema = `
CREATE TABLE IF NOT EXISTS short_term_memories (
    id                 TEXT PRIMARY KEY,
    content            TEXT NOT NULL,
    created_at         TIMESTAMP NOT NULL,
    importance         REAL NOT NULL DEFAULT 0.5,
    confidence         REAL NOT NULL DEFAULT 0.5,
    context_tags       TEXT,
    related_entity_ids TEXT,
    memory_type        TEXT NOT NULL DEFAULT 'semantic',
    source_note_id     TEXT,
    emotional_weight   REAL NOT NULL DEFAULT 0,
    consolidated       INTEGER NOT NULL DEFAULT 0,
    consolidated_at    TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_stm_created_at ON short_term_memories(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_stm_consolidated ON short_term_memories(consolidated);

CREATE TABLE IF NOT EXISTS long_term_memories (
    id                    TEXT PRIMARY KEY,
    content               TEXT NOT NULL,
    created_at            TIMESTAMP NOT NULL,
    importance            REAL NOT NULL DEFAULT 0.5,
    confidence            REAL NOT NULL DEFAULT 0.5,
    context_tags          TEXT,
    related_entity_ids    TEXT,
    category              TEXT NOT NULL DEFAULT 'factual',
    retrieval_cues        TEXT,
    source_short_term_ids TEXT,
    memory_cluster        TEXT,
    on_device_only        INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_ltm_created_at ON long_term_memories(created_at DESC);

CREATE TABLE IF NOT EXISTS episodic_memories (
    id                 TEXT PRIMARY KEY,
    event_description  TEXT NOT NULL,
    participants       TEXT,
    location           TEXT,
    emotional_tone     TEXT,
    contextual_cues    TEXT,
    outcome            TEXT,
    occurred_at        TIMESTAMP NOT NULL,
    created_at         TIMESTAMP NOT NULL,
    importance         REAL NOT NULL DEFAULT 0.5,
    confidence         REAL NOT NULL DEFAULT 0.5,
    context_tags       TEXT,
    related_entity_ids TEXT
);

CREATE INDEX IF NOT EXISTS idx_episodic_occurred_at ON episodic_memories(occurred_at DESC);

CREATE TABLE IF NOT EXISTS processed_notes (
    id                 TEXT PRIMARY KEY,
    original_text      TEXT NOT NULL,
    summary            TEXT,
    topics             TEXT,
    sentiment          TEXT,
    created_at         TIMESTAMP NOT NULL,
    importance         REAL NOT NULL DEFAULT 0.5,
    confidence         REAL NOT NULL DEFAULT 0.5,
    context_tags       TEXT,
    related_entity_ids TEXT
);

CREATE INDEX IF NOT EXISTS idx_notes_created_at ON processed_notes(created_at DESC);

CREATE TABLE IF NOT EXISTS entities (
    id             TEXT PRIMARY KEY,
    name           TEXT NOT NULL,
    type           TEXT NOT NULL,
    aliases        TEXT,
    confidence     REAL NOT NULL DEFAULT 0.5,
    is_validated   INTEGER NOT NULL DEFAULT 0,
    mentions       INTEGER NOT NULL DEFAULT 0,
    last_mentioned TIMESTAMP,
    attributes     TEXT,
    importance     REAL NOT NULL DEFAULT 0.5,
    salience       REAL NOT NULL DEFAULT 0.5,
    created_at     TIMESTAMP NOT NULL,
    updated_at     TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(name);
CREATE INDEX IF NOT EXISTS idx_entities_last_mentioned ON entities(last_mentioned DESC);

CREATE TABLE IF NOT EXISTS relationships (
    id             TEXT PRIMARY KEY,
    subject_id     TEXT NOT NULL,
    predicate_type TEXT NOT NULL,
    object_id      TEXT NOT NULL,
    confidence     REAL NOT NULL DEFAULT 0.5,
    strength       REAL NOT NULL DEFAULT 0.5,
    importance     REAL NOT NULL DEFAULT 0.5,
    start_date     TIMESTAMP,
    end_date       TIMESTAMP,
    evidence       TEXT,
    bidirectional  INTEGER NOT NULL DEFAULT 0,
    created_at     TIMESTAMP NOT NULL,
    updated_at     TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rel_subject ON relationships(subject_id);
CREATE INDEX IF NOT EXISTS idx_rel_object ON relationships(object_id);
`
