package store

// Schema is the complete oxybridge schema. Applied on every Open; all
// statements are idempotent.
const Schema = `
-- Design documents: templates and pages, tree stored as raw JSON
CREATE TABLE IF NOT EXISTS documents (
    id          TEXT PRIMARY KEY,
    kind        TEXT NOT NULL DEFAULT 'page',
    title       TEXT NOT NULL DEFAULT '',
    slug        TEXT NOT NULL DEFAULT '',
    tree_json   TEXT NOT NULL,
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_kind ON documents(kind, updated_at DESC);
CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_slug ON documents(kind, slug) WHERE slug != '';

-- Application passwords for HTTP Basic auth
CREATE TABLE IF NOT EXISTS app_passwords (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    INTEGER NOT NULL,
    last_used_at  INTEGER
);
`
