package sqlite

// SQL queries for the append-only event log. Kept as named constants, the
// way the teacher's postgres adapter separates SQL text from Go control
// flow, so tests can match on them with regexp.QuoteMeta.
const (
	queryMaxSeq = `SELECT COALESCE(MAX(seq), 0) FROM events WHERE session_id = ?`

	queryInsertEvent = `
		INSERT INTO events (
			event_id, session_id, seq, type, ts, actor_kind, actor_id,
			head_id, parent_event_id, waypoint_id, payload_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	queryEventExists = `SELECT 1 FROM events WHERE event_id = ?`

	queryGetEventByID = `
		SELECT event_id, session_id, seq, type, ts, actor_kind, actor_id,
		       head_id, parent_event_id, waypoint_id, payload_json
		FROM events WHERE event_id = ?
	`

	queryGetParentSeq = `SELECT seq FROM events WHERE event_id = ? AND session_id = ?`

	queryGetChildren = `
		SELECT event_id, session_id, seq, type, ts, actor_kind, actor_id,
		       head_id, parent_event_id, waypoint_id, payload_json
		FROM events WHERE parent_event_id = ? ORDER BY seq ASC
	`

	queryGetHeads = `
		SELECT head_id, event_id FROM events e
		WHERE seq = (SELECT MAX(seq) FROM events WHERE session_id = e.session_id AND head_id = e.head_id)
		  AND session_id = ?
	`

	// MAX(ts) would be a lexical max over RFC3339Nano text, which drops
	// trailing fractional zeros and so does not sort the same as it
	// orders numerically; the row at MAX(seq) is the actual latest event.
	queryListSessions = `
		SELECT e.session_id, COUNT(*),
		       (SELECT ts FROM events WHERE session_id = e.session_id ORDER BY seq DESC LIMIT 1)
		FROM events e
		GROUP BY e.session_id
		ORDER BY e.session_id ASC
	`
)

// eventColumns lists the columns returned by every SELECT above that scans
// a full event row, in scan order.
var eventColumns = []string{
	"event_id", "session_id", "seq", "type", "ts", "actor_kind", "actor_id",
	"head_id", "parent_event_id", "waypoint_id", "payload_json",
}
