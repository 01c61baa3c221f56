package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pathwaylab/pathway-core/internal/event"
)

// scanner is satisfied by both *sql.Row and *sql.Rows, the way the
// teacher's postgres adapter shares one scan routine across both.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEventRow(row scanner) (*event.Envelope, error) {
	var (
		e            event.Envelope
		tsText       string
		actorID      sql.NullString
		parentID     sql.NullString
		waypointID   sql.NullString
		payloadJSON  string
	)

	err := row.Scan(
		&e.EventID, &e.SessionID, &e.Seq, &e.Type, &tsText,
		&e.Actor.Kind, &actorID, &e.HeadID, &parentID, &waypointID, &payloadJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan event row: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, tsText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ts %q: %w", tsText, err)
	}
	e.Timestamp = ts
	e.Actor.ID = actorID.String
	e.ParentEventID = parentID.String
	e.WaypointID = waypointID.String

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	e.Payload = payload

	return &e, nil
}

func marshalPayload(payload map[string]interface{}) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}
	return string(raw), nil
}
