// Package jsonl exports and re-imports a session's event stream as
// newline-delimited JSON, one envelope per line, in seq order. It is the
// transport format for moving a session between stores.
package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pathwaylab/pathway-core/internal/event"
	"github.com/pathwaylab/pathway-core/internal/store"
)

// Export writes sessionID's events to w in seq-ascending order, one JSON
// envelope per line.
func Export(ctx context.Context, es store.EventStore, sessionID string, w io.Writer) (int, error) {
	events, err := es.GetEvents(ctx, sessionID, store.EventFilter{Order: store.Asc})
	if err != nil {
		return 0, fmt.Errorf("failed to load events for session %q: %w", sessionID, err)
	}

	enc := json.NewEncoder(w)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return 0, fmt.Errorf("failed to encode event %q: %w", e.EventID, err)
		}
	}
	return len(events), nil
}

// ImportOptions controls Import's behavior.
type ImportOptions struct {
	// SessionIDOverride, if non-empty, rewrites every imported event's
	// session_id before append, letting a stream be replayed into a fresh
	// session without id collisions.
	SessionIDOverride string
}

// Import reads newline-delimited JSON envelopes from r and re-appends each
// in seq order, carrying EventID, Seq, and Timestamp over verbatim from the
// source rather than letting the target store assign fresh ones: this is
// what keeps parent_event_id references (event-id based, not
// session-scoped) resolvable after the round trip.
func Import(ctx context.Context, es store.EventStore, r io.Reader, opts ImportOptions) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	imported := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var e event.Envelope
		if err := json.Unmarshal(line, &e); err != nil {
			return imported, fmt.Errorf("failed to decode line %d: %w", imported+1, err)
		}

		sessionID := e.SessionID
		if opts.SessionIDOverride != "" {
			sessionID = opts.SessionIDOverride
		}

		// EventID, Seq, and Timestamp are carried over explicitly rather than
		// left for the target store to assign: parent_event_id references
		// are event-id based, not session-scoped, so preserving the original
		// ids is what keeps the DAG intact across the round trip.
		candidate := event.NewEnvelope{
			EventID:       e.EventID,
			SessionID:     sessionID,
			Seq:           e.Seq,
			Type:          e.Type,
			Timestamp:     e.Timestamp,
			Actor:         e.Actor,
			HeadID:        e.HeadID,
			ParentEventID: e.ParentEventID,
			WaypointID:    e.WaypointID,
			Payload:       e.Payload,
		}
		if _, err := es.Append(ctx, candidate); err != nil {
			return imported, fmt.Errorf("failed to import event at line %d: %w", imported+1, err)
		}
		imported++
	}
	if err := scanner.Err(); err != nil {
		return imported, fmt.Errorf("failed to scan JSONL stream: %w", err)
	}
	return imported, nil
}
