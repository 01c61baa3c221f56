package sqlite

import (
	"database/sql"
	"fmt"
)

// schemaVersion is bumped whenever the events table shape changes.
const schemaVersion = 1

const createSchemaSQL = `
CREATE TABLE IF NOT EXISTS events (
	event_id        TEXT PRIMARY KEY,
	session_id      TEXT NOT NULL,
	seq             INTEGER NOT NULL,
	type            TEXT NOT NULL,
	ts              TEXT NOT NULL,
	actor_kind      TEXT NOT NULL,
	actor_id        TEXT,
	head_id         TEXT NOT NULL,
	parent_event_id TEXT,
	waypoint_id     TEXT,
	payload_json    TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_events_session_seq ON events(session_id, seq);
CREATE INDEX IF NOT EXISTS idx_events_session_head_seq ON events(session_id, head_id, seq);
CREATE INDEX IF NOT EXISTS idx_events_session_parent ON events(session_id, parent_event_id);
CREATE INDEX IF NOT EXISTS idx_events_session_type ON events(session_id, type);

CREATE TABLE IF NOT EXISTS schema_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// initSchema creates the events table and its indexes if absent, and
// records the schema version in schema_meta — spec.md §5's "initialization
// creates schema if absent and records schema version".
func initSchema(db *sql.DB) error {
	if _, err := db.Exec(createSchemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	_, err := db.Exec(
		`INSERT INTO schema_meta(key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO NOTHING`,
		fmt.Sprintf("%d", schemaVersion),
	)
	if err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}
