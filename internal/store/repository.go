// Package store defines the EventStore contract: durable, concurrent,
// gap-free sequence assignment over a structured log partitioned by
// session (spec.md §4.1).
package store

import (
	"context"
	"time"

	"github.com/pathwaylab/pathway-core/internal/event"
)

// Order is the requested sort direction for a ranged query.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// EventFilter narrows GetEvents to a subset of a session's log. Zero values
// mean "no filter on this dimension".
type EventFilter struct {
	Type    event.Kind
	HeadID  string
	SeqMin  int64
	SeqMax  int64
	Limit   int
	Offset  int
	Order   Order
}

// SessionSummary is one row of ListSessions.
type SessionSummary struct {
	SessionID  string
	EventCount int64
	LatestTS   time.Time
}

// EventStore is the durable, concurrent, session-partitioned event log.
// Implementations must give (session_id, seq) gapless monotonic assignment
// under concurrent writers (spec.md §5) and must never mutate or delete a
// stored event.
type EventStore interface {
	// Append validates and persists a candidate event, assigning Seq and
	// EventID when the caller left them unset. Returns ErrSeqConflict only
	// when the caller supplied an explicit Seq other than the session's next
	// seq (one that collides or would leave a gap).
	Append(ctx context.Context, candidate event.NewEnvelope) (*event.Envelope, error)

	// GetEvent returns a single event by its global event_id, or ErrNotFound.
	GetEvent(ctx context.Context, eventID string) (*event.Envelope, error)

	// GetEvents returns a session's events ordered by seq (or as filtered),
	// without requiring an in-memory sort for seq-ordered queries.
	GetEvents(ctx context.Context, sessionID string, filter EventFilter) ([]*event.Envelope, error)

	// GetChildren returns events whose parent_event_id equals eventID.
	GetChildren(ctx context.Context, eventID string) ([]*event.Envelope, error)

	// GetHeads returns each branch's tip event_id for a session.
	GetHeads(ctx context.Context, sessionID string) (map[string]string, error)

	// ListSessions summarizes every session the store has seen.
	ListSessions(ctx context.Context) ([]SessionSummary, error)

	// Close releases underlying resources. Safe to call once during shutdown.
	Close() error
}
