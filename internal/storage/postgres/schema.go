package postgres

// Schema defines the PostgreSQL schema for the recall store. All statements
// are idempotent so the schema can be applied on every open.
const Schema = `
CREATE TABLE IF NOT EXISTS short_term_memories (
    id                 TEXT PRIMARY KEY,
    content            TEXT NOT NULL,
    created_at         TIMESTAMPTZ NOT NULL,
    importance         DOUBLE PRECISION NOT NULL DEFAULT 0.5,
    confidence         DOUBLE PRECISION NOT NULL DEFAULT 0.5,
    context_tags       JSONB,
    related_entity_ids JSONB,
    memory_type        TEXT NOT NULL DEFAULT 'semantic',
    source_note_id     TEXT,
    emotional_weight   DOUBLE PRECISION NOT NULL DEFAULT 0,
    consolidated       BOOLEAN NOT NULL DEFAULT FALSE,
    consolidated_at    TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_stm_created_at ON short_term_memories(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_stm_consolidated ON short_term_memories(consolidated);

CREATE TABLE IF NOT EXISTS long_term_memories (
    id                    TEXT PRIMARY KEY,
    content               TEXT NOT NULL,
    created_at            TIMESTAMPTZ NOT NULL,
    importance            DOUBLE PRECISION NOT NULL DEFAULT 0.5,
    confidence            DOUBLE PRECISION NOT NULL DEFAULT 0.5,
    context_tags          JSONB,
    related_entity_ids    JSONB,
    category              TEXT NOT NULL DEFAULT 'factual',
    retrieval_cues        JSONB,
    source_short_term_ids JSONB,
    memory_cluster        TEXT,
    on_device_only        BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_ltm_created_at ON long_term_memories(created_at DESC);

CREATE TABLE IF NOT EXISTS episodic_memories (
    id                 TEXT PRIMARY KEY,
    event_description  TEXT NOT NULL,
    participants       JSONB,
    location           TEXT,
    emotional_tone     TEXT,
    contextual_cues    JSONB,
    outcome            TEXT,
    occurred_at        TIMESTAMPTZ NOT NULL,
    created_at         TIMESTAMPTZ NOT NULL,
    importance         DOUBLE PRECISION NOT NULL DEFAULT 0.5,
    confidence         DOUBLE PRECISION NOT NULL DEFAULT 0.5,
    context_tags       JSONB,
    related_entity_ids JSONB
);

CREATE INDEX IF NOT EXISTS idx_episodic_occurred_at ON episodic_memories(occurred_at DESC);

CREATE TABLE IF NOT EXISTS processed_notes (
    id                 TEXT PRIMARY KEY,
    original_text      TEXT NOT NULL,
    summary            TEXT,
    topics             JSONB,
    sentiment          TEXT,
    created_at         TIMESTAMPTZ NOT NULL,
    importance         DOUBLE PRECISION NOT NULL DEFAULT 0.5,
    confidence         DOUBLE PRECISION NOT NULL DEFAULT 0.5,
    context_tags       JSONB,
    related_entity_ids JSONB
);

CREATE INDEX IF NOT EXISTS idx_notes_created_at ON processed_notes(created_at DESC);

CREATE TABLE IF NOT EXISTS entities (
    id             TEXT PRIMARY KEY,
    name           TEXT NOT NULL,
    type           TEXT NOT NULL,
    aliases        JSONB,
    confidence     DOUBLE PRECISION NOT NULL DEFAULT 0.5,
    is_validated   BOOLEAN NOT NULL DEFAULT FALSE,
    mentions       INTEGER NOT NULL DEFAULT 0,
    last_mentioned TIMESTAMPTZ,
    attributes     JSONB,
    importance     DOUBLE PRECISION NOT NULL DEFAULT 0.5,
    salience       DOUBLE PRECISION NOT NULL DEFAULT 0.5,
    created_at     TIMESTAMPTZ NOT NULL,
    updated_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(LOWER(name));
CREATE INDEX IF NOT EXISTS idx_entities_last_mentioned ON entities(last_mentioned DESC);

CREATE TABLE IF NOT EXISTS relationships (
    id             TEXT PRIMARY KEY,
    subject_id     TEXT NOT NULL,
    predicate_type TEXT NOT NULL,
    object_id      TEXT NOT NULL,
    confidence     DOUBLE PRECISION NOT NULL DEFAULT 0.5,
    strength       DOUBLE PRECISION NOT NULL DEFAULT 0.5,
    importance     DOUBLE PRECISION NOT NULL DEFAULT 0.5,
    start_date     TIMESTAMPTZ,
    end_date       TIMESTAMPTZ,
    evidence       JSONB,
    bidirectional  BOOLEAN NOT NULL DEFAULT FALSE,
    created_at     TIMESTAMPTZ NOT NULL,
    updated_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rel_subject ON relationships(subject_id);
CREATE INDEX IF NOT EXISTS idx_rel_object ON relationships(object_id);
`

// MigrationPgvector adds the embedding column for processed notes. Applied
// only when the pgvector extension is available.
const MigrationPgvector = `
CREATE TABLE IF NOT EXISTS note_embeddings (
    note_id    TEXT PRIMARY KEY REFERENCES processed_notes(id) ON DELETE CASCADE,
    embedding  vector(768),
    model      TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
