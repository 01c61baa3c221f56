// Package sqlite implements store.EventStore against a modernc.org/sqlite
// database. It is the sole storage backend for Pathway Core: pure-Go (no
// cgo), and its DSN honors ":memory:" directly, matching spec.md §6.5's
// db_path configuration option without a second in-memory implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/pathwaylab/pathway-core/internal/event"
	"github.com/pathwaylab/pathway-core/internal/eventerr"
	"github.com/pathwaylab/pathway-core/internal/store"
)

const (
	connectPingTimeout = 5 * time.Second
	maxAppendAttempts  = 8
)

// errRetryConflict signals that Append should retry seq allocation because
// another writer won the race for the same (session_id, seq) pair.
var errRetryConflict = errors.New("seq allocation lost the race, retry")

// Adapter is the sqlite-backed EventStore.
type Adapter struct {
	db        *sql.DB
	validator *event.Validator
}

// NewAdapter opens dbPath (a file path, or ":memory:") and ensures the
// schema exists. limits controls session/event id shape validation.
func NewAdapter(dbPath string, limits event.ShapeLimits) (*Adapter, error) {
	dsn := dbPath
	if dbPath == ":memory:" {
		// A bare ":memory:" DSN gives every *sql.DB connection its own
		// private database; since database/sql pools connections, that
		// would make writes from one connection invisible to reads from
		// another. A shared-cache URI keeps one logical database across
		// the pool while remaining in-memory. The cache is named uniquely
		// per Adapter (uuid) so two independent in-memory adapters in the
		// same process, e.g. in tests, never see each other's tables:
		// unnamed shared-cache memory databases are otherwise keyed by the
		// literal DSN string and would collide.
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if dbPath == ":memory:" {
		// Shared in-memory caches disappear once every connection closes;
		// pin the pool open with a single connection so schema and data
		// survive between calls.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), connectPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure pragmas: %w", err)
	}
	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("[sqlite] event store initialized", "db_path", dbPath)

	return &Adapter{db: db, validator: event.NewValidator(limits)}, nil
}

// Close flushes and closes the underlying database connection.
func (a *Adapter) Close() error {
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	slog.Info("[sqlite] event store closed")
	return nil
}

// Append validates and durably persists candidate, assigning Seq and
// EventID when unset. It implements spec.md §4.1's allocation algorithm:
// a transaction reads the current max seq for the session, computes
// next = max + 1, and inserts; if a concurrent writer committed first the
// unique (session_id, seq) index rejects the insert and Append retries.
func (a *Adapter) Append(ctx context.Context, candidate event.NewEnvelope) (*event.Envelope, error) {
	if err := a.validator.ValidateEnvelope(candidate); err != nil {
		return nil, err
	}
	if err := a.validator.ValidatePayload(candidate.Type, candidate.Payload); err != nil {
		return nil, err
	}

	envelope := normalizeCandidate(candidate)

	if envelope.Type == event.Backtracked {
		var payload event.BacktrackedPayload
		if err := event.DecodePayload(envelope.Payload, &payload); err == nil && payload.TargetEventID == "" {
			return nil, eventerr.Wrap(eventerr.ErrPayloadSchemaMismatch, "Backtracked.target_event_id is required")
		}
	}

	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		stored, err := a.tryAppend(ctx, envelope, candidate.Seq != 0)
		if err == nil {
			return stored, nil
		}
		if errors.Is(err, errRetryConflict) {
			continue
		}
		return nil, err
	}
	return nil, eventerr.Wrap(eventerr.ErrStoreFailure, "seq allocation for session %q did not converge after %d attempts", envelope.SessionID, maxAppendAttempts)
}

func normalizeCandidate(candidate event.NewEnvelope) event.Envelope {
	e := event.Envelope{
		EventID:       candidate.EventID,
		SessionID:     candidate.SessionID,
		Seq:           candidate.Seq,
		Type:          candidate.Type,
		Timestamp:     candidate.Timestamp,
		Actor:         candidate.Actor,
		HeadID:        candidate.HeadID,
		ParentEventID: candidate.ParentEventID,
		WaypointID:    candidate.WaypointID,
		Payload:       candidate.Payload,
	}
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.HeadID == "" {
		e.HeadID = event.DefaultHeadID
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Actor.Kind == "" {
		e.Actor.Kind = event.ActorSystem
	}
	return e
}

// tryAppend runs one attempt of the transactional seq-allocation critical
// section described in spec.md §4.1.
//
// A plain BeginTx opens a DEFERRED transaction: the queryMaxSeq SELECT below
// takes only a SHARED lock, and two concurrent attempts both holding it then
// race to upgrade to a RESERVED lock at the INSERT. SQLite detects that
// read->write upgrade deadlock and returns SQLITE_BUSY immediately,
// bypassing busy_timeout entirely. Opening with BEGIN IMMEDIATE instead
// takes the RESERVED lock up front, so contending attempts serialize at
// BEGIN (where busy_timeout does apply) rather than deadlocking at INSERT.
// database/sql's Tx has no portable way to request BEGIN IMMEDIATE, so the
// transaction is driven over a raw *sql.Conn with literal BEGIN/COMMIT/
// ROLLBACK statements instead of sql.DB.BeginTx.
func (a *Adapter) tryAppend(ctx context.Context, e event.Envelope, explicitSeq bool) (*event.Envelope, error) {
	conn, err := a.db.Conn(ctx)
	if err != nil {
		return nil, eventerr.Wrap(eventerr.ErrStoreFailure, "failed to acquire connection: %s", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		if isBusyErr(err) {
			return nil, errRetryConflict
		}
		return nil, eventerr.Wrap(eventerr.ErrStoreFailure, "failed to begin transaction: %s", err)
	}
	committed := false
	defer func() {
		if !committed {
			conn.ExecContext(context.Background(), "ROLLBACK") //nolint:errcheck // no-op once committed
		}
	}()

	var existsProbe int
	err = conn.QueryRowContext(ctx, queryEventExists, e.EventID).Scan(&existsProbe)
	if err == nil {
		return nil, eventerr.Wrap(eventerr.ErrInvalidEnvelope, "event_id %q already exists", e.EventID)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, eventerr.Wrap(eventerr.ErrStoreFailure, "failed to check event_id uniqueness: %s", err)
	}

	if e.ParentEventID != "" {
		var parentSeq int64
		err := conn.QueryRowContext(ctx, queryGetParentSeq, e.ParentEventID, e.SessionID).Scan(&parentSeq)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eventerr.Wrap(eventerr.ErrUnknownParent, "parent_event_id %q not found in session %q", e.ParentEventID, e.SessionID)
		}
		if err != nil {
			return nil, eventerr.Wrap(eventerr.ErrStoreFailure, "failed to resolve parent: %s", err)
		}
	}

	var maxSeq int64
	if err := conn.QueryRowContext(ctx, queryMaxSeq, e.SessionID).Scan(&maxSeq); err != nil {
		return nil, eventerr.Wrap(eventerr.ErrStoreFailure, "failed to read max seq: %s", err)
	}
	if explicitSeq {
		// The gapless {1..N} invariant (spec §3.1) makes max+1 the only
		// acceptable explicit seq: anything smaller collides, anything
		// larger leaves a gap. Both are out-of-order appends and rejected.
		if e.Seq != maxSeq+1 {
			return nil, eventerr.Wrap(eventerr.ErrSeqConflict, "explicit seq %d is not the next gapless seq (%d) for session %q", e.Seq, maxSeq+1, e.SessionID)
		}
	} else {
		e.Seq = maxSeq + 1
	}

	switch e.Type {
	case event.Backtracked:
		var payload event.BacktrackedPayload
		if err := event.DecodePayload(e.Payload, &payload); err != nil {
			return nil, eventerr.Wrap(eventerr.ErrInvalidEnvelope, "%s", err)
		}
		var targetSeq int64
		err := conn.QueryRowContext(ctx, queryGetParentSeq, payload.TargetEventID, e.SessionID).Scan(&targetSeq)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eventerr.Wrap(eventerr.ErrUnknownParent, "Backtracked.target_event_id %q not found in session %q", payload.TargetEventID, e.SessionID)
		}
		if err != nil {
			return nil, eventerr.Wrap(eventerr.ErrStoreFailure, "failed to resolve backtrack target: %s", err)
		}
		if targetSeq >= e.Seq {
			return nil, eventerr.Wrap(eventerr.ErrUnknownParent, "Backtracked.target_event_id %q has seq %d, not smaller than %d", payload.TargetEventID, targetSeq, e.Seq)
		}
	case event.Merged:
		var payload event.MergedPayload
		if err := event.DecodePayload(e.Payload, &payload); err != nil {
			return nil, eventerr.Wrap(eventerr.ErrInvalidEnvelope, "%s", err)
		}
		heads, err := queryHeadsTx(ctx, conn, e.SessionID)
		if err != nil {
			return nil, eventerr.Wrap(eventerr.ErrStoreFailure, "failed to resolve branch tips: %s", err)
		}
		for _, headID := range payload.SourceHeadIDs {
			if _, ok := heads[headID]; !ok {
				return nil, eventerr.Wrap(eventerr.ErrUnknownParent, "Merged.source_head_ids contains %q, which is not a current branch tip in session %q", headID, e.SessionID)
			}
		}
	}

	payloadJSON, err := marshalPayload(e.Payload)
	if err != nil {
		return nil, eventerr.Wrap(eventerr.ErrInvalidEnvelope, "%s", err)
	}

	_, err = conn.ExecContext(ctx, queryInsertEvent,
		e.EventID, e.SessionID, e.Seq, string(e.Type), e.Timestamp.UTC().Format(time.RFC3339Nano),
		string(e.Actor.Kind), nullableString(e.Actor.ID), e.HeadID,
		nullableString(e.ParentEventID), nullableString(e.WaypointID), payloadJSON,
	)
	if err != nil {
		if isUniqueConstraintErr(err) || isBusyErr(err) {
			return nil, errRetryConflict
		}
		return nil, eventerr.Wrap(eventerr.ErrStoreFailure, "failed to insert event: %s", err)
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		if isUniqueConstraintErr(err) || isBusyErr(err) {
			return nil, errRetryConflict
		}
		return nil, eventerr.Wrap(eventerr.ErrStoreFailure, "failed to commit append: %s", err)
	}
	committed = true

	slog.Debug("[sqlite] appended event",
		"session_id", e.SessionID, "event_id", e.EventID, "seq", e.Seq, "type", e.Type)

	return &e, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// isUniqueConstraintErr recognizes modernc.org/sqlite's constraint-violation
// message shape. The driver's structured error type isn't stable across
// versions of the pack's other consumers, so this matches the message the
// way the teacher matches sql.ErrNoRows for its own ON CONFLICT DO NOTHING.
func isUniqueConstraintErr(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "constraint failed")
}

// isBusyErr recognizes sqlite's "database is locked" condition, which
// PRAGMA busy_timeout mostly absorbs but can still surface under heavy
// contention; Append treats it the same as a lost seq-allocation race.
func isBusyErr(err error) bool {
	return strings.Contains(err.Error(), "database is locked") ||
		strings.Contains(err.Error(), "SQLITE_BUSY")
}

// GetEvent implements store.EventStore.
func (a *Adapter) GetEvent(ctx context.Context, eventID string) (*event.Envelope, error) {
	row := a.db.QueryRowContext(ctx, queryGetEventByID, eventID)
	e, err := scanEventRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eventerr.Wrap(eventerr.ErrNotFound, "event %q not found", eventID)
	}
	if err != nil {
		return nil, eventerr.Wrap(eventerr.ErrStoreFailure, "%s", err)
	}
	return e, nil
}

// GetEvents implements store.EventStore.
func (a *Adapter) GetEvents(ctx context.Context, sessionID string, filter store.EventFilter) ([]*event.Envelope, error) {
	query, args := buildGetEventsQuery(sessionID, filter)

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eventerr.Wrap(eventerr.ErrStoreFailure, "failed to query events: %s", err)
	}
	defer rows.Close()

	var events []*event.Envelope
	for rows.Next() {
		e, err := scanEventRow(rows)
		if err != nil {
			return nil, eventerr.Wrap(eventerr.ErrStoreFailure, "%s", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eventerr.Wrap(eventerr.ErrStoreFailure, "error iterating events: %s", err)
	}
	return events, nil
}

func buildGetEventsQuery(sessionID string, filter store.EventFilter) (string, []interface{}) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(eventColumns, ", "))
	b.WriteString(" FROM events WHERE session_id = ?")
	args := []interface{}{sessionID}

	if filter.Type != "" {
		b.WriteString(" AND type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.HeadID != "" {
		b.WriteString(" AND head_id = ?")
		args = append(args, filter.HeadID)
	}
	if filter.SeqMin != 0 {
		b.WriteString(" AND seq >= ?")
		args = append(args, filter.SeqMin)
	}
	if filter.SeqMax != 0 {
		b.WriteString(" AND seq <= ?")
		args = append(args, filter.SeqMax)
	}

	order := "ASC"
	if filter.Order == store.Desc {
		order = "DESC"
	}
	b.WriteString(" ORDER BY seq " + order)

	if filter.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		// sqlite only accepts OFFSET after a LIMIT; -1 means unbounded.
		b.WriteString(" LIMIT -1")
	}
	if filter.Offset > 0 {
		b.WriteString(" OFFSET ?")
		args = append(args, filter.Offset)
	}

	return b.String(), args
}

// GetChildren implements store.EventStore.
func (a *Adapter) GetChildren(ctx context.Context, eventID string) ([]*event.Envelope, error) {
	rows, err := a.db.QueryContext(ctx, queryGetChildren, eventID)
	if err != nil {
		return nil, eventerr.Wrap(eventerr.ErrStoreFailure, "failed to query children: %s", err)
	}
	defer rows.Close()

	var events []*event.Envelope
	for rows.Next() {
		e, err := scanEventRow(rows)
		if err != nil {
			return nil, eventerr.Wrap(eventerr.ErrStoreFailure, "%s", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetHeads implements store.EventStore.
func (a *Adapter) GetHeads(ctx context.Context, sessionID string) (map[string]string, error) {
	heads, err := queryHeadsTx(ctx, a.db, sessionID)
	if err != nil {
		return nil, eventerr.Wrap(eventerr.ErrStoreFailure, "failed to query heads: %s", err)
	}
	return heads, nil
}

// headQuerier is satisfied by both *sql.DB and *sql.Conn, letting
// queryHeadsTx resolve branch tips either standalone (GetHeads) or inside
// an in-flight append transaction (Merged.source_head_ids validation).
type headQuerier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func queryHeadsTx(ctx context.Context, q headQuerier, sessionID string) (map[string]string, error) {
	rows, err := q.QueryContext(ctx, queryGetHeads, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	heads := make(map[string]string)
	for rows.Next() {
		var headID, eventID string
		if err := rows.Scan(&headID, &eventID); err != nil {
			return nil, err
		}
		heads[headID] = eventID
	}
	return heads, rows.Err()
}

// ListSessions implements store.EventStore.
func (a *Adapter) ListSessions(ctx context.Context) ([]store.SessionSummary, error) {
	rows, err := a.db.QueryContext(ctx, queryListSessions)
	if err != nil {
		return nil, eventerr.Wrap(eventerr.ErrStoreFailure, "failed to query sessions: %s", err)
	}
	defer rows.Close()

	var summaries []store.SessionSummary
	for rows.Next() {
		var s store.SessionSummary
		var latestTS string
		if err := rows.Scan(&s.SessionID, &s.EventCount, &latestTS); err != nil {
			return nil, eventerr.Wrap(eventerr.ErrStoreFailure, "%s", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, latestTS)
		if err != nil {
			return nil, eventerr.Wrap(eventerr.ErrStoreFailure, "failed to parse latest_ts: %s", err)
		}
		s.LatestTS = ts
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// DB exposes the underlying *sql.DB for health checks, mirroring the
// teacher's Adapter.DB accessor.
func (a *Adapter) DB() *sql.DB {
	return a.db
}
