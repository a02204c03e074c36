package sqlstore

const schema = `
CREATE TABLE IF NOT EXISTS users (
  id            TEXT PRIMARY KEY,
  email         TEXT NOT NULL UNIQUE COLLATE NOCASE,
  username      TEXT NOT NULL UNIQUE,
  is_active     INTEGER NOT NULL DEFAULT 1,
  is_superuser  INTEGER NOT NULL DEFAULT 0,
  created_at_ns INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS api_tokens (
  id              TEXT PRIMARY KEY,
  user_id         TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  name            TEXT NOT NULL DEFAULT '',
  token_hash      TEXT NOT NULL UNIQUE,
  is_active       INTEGER NOT NULL DEFAULT 1,
  expires_at_ns   INTEGER,
  last_used_at_ns INTEGER,
  created_at_ns   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_api_tokens_user ON api_tokens(user_id);
`
