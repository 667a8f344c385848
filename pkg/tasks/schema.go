package tasks

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the task tables. Times are Unix milliseconds.
const Schema = `
CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    scan_id TEXT NOT NULL,
    file TEXT NOT NULL,
    line INTEGER NOT NULL,
    col INTEGER NOT NULL DEFAULT 0,
    level INTEGER NOT NULL,
    source TEXT,
    message TEXT NOT NULL,
    recorded_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_file ON tasks(file);
CREATE INDEX IF NOT EXISTS idx_tasks_scan_id ON tasks(scan_id);
CREATE INDEX IF NOT EXISTS idx_tasks_recorded_at ON tasks(recorded_at);
`

const insertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

const getSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
