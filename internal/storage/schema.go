package storage

const schema = `
-- The 'notes' table stores one captured mistake per row together with
-- its position on the review ladder.
CREATE TABLE IF NOT EXISTS notes (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    question TEXT NOT NULL,
    answer TEXT NOT NULL DEFAULT '',
    image_url TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '[]',
    collection_id TEXT,
    content_hash TEXT NOT NULL DEFAULT '',
    stage INTEGER NOT NULL DEFAULT 0,
    due_at DATETIME NOT NULL,
    mastered INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,

    FOREIGN KEY(collection_id) REFERENCES collections(id)
);

-- Serves the due query: unmastered notes ordered by due time.
CREATE INDEX IF NOT EXISTS idx_notes_due ON notes(user_id, mastered, due_at);

-- Deduplicates bulk-imported notes per user.
CREATE INDEX IF NOT EXISTS idx_notes_content_hash ON notes(user_id, content_hash);

-- The 'collections' table holds user-named folders of notes.
CREATE TABLE IF NOT EXISTS collections (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

-- The 'review_logs' table is an append-only history of review events.
CREATE TABLE IF NOT EXISTS review_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    note_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    outcome TEXT NOT NULL,
    old_stage INTEGER NOT NULL,
    new_stage INTEGER NOT NULL,
    reviewed_at DATETIME NOT NULL
);

-- The 'sources' table tracks bulk-import origins, either a local
-- directory of markdown files or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    path TEXT NOT NULL,
    kind TEXT NOT NULL,
    last_synced_at DATETIME,

    UNIQUE(user_id, path)
);
`
