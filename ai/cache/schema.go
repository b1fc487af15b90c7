package cache

// embeddedSchema contains the SQLite database schema
const embeddedSchema = `
-- Model tool-call cache

CREATE TABLE IF NOT EXISTS style_cache (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    cache_key TEXT NOT NULL UNIQUE,
    model TEXT NOT NULL,
    template TEXT NOT NULL,
    input_digest TEXT NOT NULL,
    arguments TEXT NOT NULL,

    -- Metrics
    tokens_input INTEGER DEFAULT 0,
    tokens_output INTEGER DEFAULT 0,
    tokens_total INTEGER DEFAULT 0,
    duration_ms INTEGER DEFAULT 0,
    hit_count INTEGER DEFAULT 0,

    -- Timestamps
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    accessed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    -- unix seconds, NULL never expires
    expires_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_style_cache_model ON style_cache(model);
CREATE INDEX IF NOT EXISTS idx_style_cache_expires ON style_cache(expires_at);
`
