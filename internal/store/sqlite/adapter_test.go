package sqlite

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/pathwaylab/pathway-core/internal/event"
	"github.com/pathwaylab/pathway-core/internal/eventerr"
	"github.com/pathwaylab/pathway-core/internal/store"
)

func newMockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Adapter{db: db, validator: event.NewValidator(event.DefaultShapeLimits())}, mock
}

func intentCandidate(sessionID string) event.NewEnvelope {
	return event.NewEnvelope{
		SessionID: sessionID,
		Type:      event.IntentCreated,
		Payload:   map[string]interface{}{"goal": "learn go"},
	}
}

// expectBeginImmediate/expectCommit/expectRollback match the literal
// BEGIN IMMEDIATE / COMMIT / ROLLBACK statements tryAppend issues over a
// raw *sql.Conn, since sql.DB.Begin()/Commit()'s own driver hooks (and so
// sqlmock's ExpectBegin/ExpectCommit) are bypassed by that approach.
func expectBeginImmediate(mock sqlmock.Sqlmock) {
	mock.ExpectExec(regexp.QuoteMeta("BEGIN IMMEDIATE")).WillReturnResult(sqlmock.NewResult(0, 0))
}

func expectCommit(mock sqlmock.Sqlmock) {
	mock.ExpectExec(regexp.QuoteMeta("COMMIT")).WillReturnResult(sqlmock.NewResult(0, 0))
}

func expectRollback(mock sqlmock.Sqlmock) {
	mock.ExpectExec(regexp.QuoteMeta("ROLLBACK")).WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestAdapter_Append_AutoSeq(t *testing.T) {
	adapter, mock := newMockAdapter(t)
	candidate := intentCandidate("s1")

	expectBeginImmediate(mock)
	mock.ExpectQuery(regexp.QuoteMeta(queryEventExists)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(queryMaxSeq)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(0)))
	mock.ExpectExec(regexp.QuoteMeta(queryInsertEvent)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	expectCommit(mock)

	stored, err := adapter.Append(context.Background(), candidate)
	require.NoError(t, err)
	require.Equal(t, int64(1), stored.Seq)
	require.NotEmpty(t, stored.EventID)
	require.Equal(t, event.DefaultHeadID, stored.HeadID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_Append_UnknownParent(t *testing.T) {
	adapter, mock := newMockAdapter(t)
	candidate := intentCandidate("s1")
	candidate.ParentEventID = "missing-parent"

	expectBeginImmediate(mock)
	mock.ExpectQuery(regexp.QuoteMeta(queryEventExists)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(queryGetParentSeq)).
		WithArgs("missing-parent", "s1").
		WillReturnError(sql.ErrNoRows)
	expectRollback(mock)

	_, err := adapter.Append(context.Background(), candidate)
	require.ErrorIs(t, err, eventerr.ErrUnknownParent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_Append_DuplicateEventID(t *testing.T) {
	adapter, mock := newMockAdapter(t)
	candidate := intentCandidate("s1")
	candidate.EventID = "evt-1"

	expectBeginImmediate(mock)
	mock.ExpectQuery(regexp.QuoteMeta(queryEventExists)).
		WithArgs("evt-1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	expectRollback(mock)

	_, err := adapter.Append(context.Background(), candidate)
	require.ErrorIs(t, err, eventerr.ErrInvalidEnvelope)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_Append_ExplicitSeqConflict(t *testing.T) {
	adapter, mock := newMockAdapter(t)
	candidate := intentCandidate("s1")
	candidate.Seq = 3

	expectBeginImmediate(mock)
	mock.ExpectQuery(regexp.QuoteMeta(queryEventExists)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(queryMaxSeq)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(5)))
	expectRollback(mock)

	_, err := adapter.Append(context.Background(), candidate)
	require.ErrorIs(t, err, eventerr.ErrSeqConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_Append_ExplicitSeqGapRejected(t *testing.T) {
	adapter, mock := newMockAdapter(t)
	candidate := intentCandidate("s1")
	candidate.Seq = 10

	expectBeginImmediate(mock)
	mock.ExpectQuery(regexp.QuoteMeta(queryEventExists)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(queryMaxSeq)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(0)))
	expectRollback(mock)

	_, err := adapter.Append(context.Background(), candidate)
	require.ErrorIs(t, err, eventerr.ErrSeqConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_Append_BacktrackedTargetNotFound(t *testing.T) {
	adapter, mock := newMockAdapter(t)
	candidate := event.NewEnvelope{
		SessionID: "s1",
		Type:      event.Backtracked,
		Payload:   map[string]interface{}{"target_event_id": "missing-evt"},
	}

	expectBeginImmediate(mock)
	mock.ExpectQuery(regexp.QuoteMeta(queryEventExists)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(queryMaxSeq)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(2)))
	mock.ExpectQuery(regexp.QuoteMeta(queryGetParentSeq)).
		WithArgs("missing-evt", "s1").
		WillReturnError(sql.ErrNoRows)
	expectRollback(mock)

	_, err := adapter.Append(context.Background(), candidate)
	require.ErrorIs(t, err, eventerr.ErrUnknownParent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_Append_BacktrackedTargetNotEarlier(t *testing.T) {
	adapter, mock := newMockAdapter(t)
	candidate := event.NewEnvelope{
		SessionID: "s1",
		Type:      event.Backtracked,
		Payload:   map[string]interface{}{"target_event_id": "evt-later"},
	}

	expectBeginImmediate(mock)
	mock.ExpectQuery(regexp.QuoteMeta(queryEventExists)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(queryMaxSeq)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(2)))
	mock.ExpectQuery(regexp.QuoteMeta(queryGetParentSeq)).
		WithArgs("evt-later", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(int64(3)))
	expectRollback(mock)

	_, err := adapter.Append(context.Background(), candidate)
	require.ErrorIs(t, err, eventerr.ErrUnknownParent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_Append_MergedUnknownSourceHead(t *testing.T) {
	adapter, mock := newMockAdapter(t)
	candidate := event.NewEnvelope{
		SessionID: "s1",
		Type:      event.Merged,
		Payload: map[string]interface{}{
			"source_head_ids": []string{"feature-x"},
			"into_head_id":    "main",
		},
	}

	expectBeginImmediate(mock)
	mock.ExpectQuery(regexp.QuoteMeta(queryEventExists)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(queryMaxSeq)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(2)))
	mock.ExpectQuery(regexp.QuoteMeta(queryGetHeads)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"head_id", "event_id"}).AddRow("main", "evt-1"))
	expectRollback(mock)

	_, err := adapter.Append(context.Background(), candidate)
	require.ErrorIs(t, err, eventerr.ErrUnknownParent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_Append_InvalidPayloadSchema(t *testing.T) {
	adapter, _ := newMockAdapter(t)
	candidate := event.NewEnvelope{
		SessionID: "s1",
		Type:      event.IntentCreated,
		Payload:   map[string]interface{}{}, // missing required "goal"
	}

	_, err := adapter.Append(context.Background(), candidate)
	require.ErrorIs(t, err, eventerr.ErrPayloadSchemaMismatch)
}

func TestAdapter_Append_UnknownKind(t *testing.T) {
	adapter, _ := newMockAdapter(t)
	candidate := event.NewEnvelope{
		SessionID: "s1",
		Type:      "NotAKind",
		Payload:   map[string]interface{}{},
	}

	_, err := adapter.Append(context.Background(), candidate)
	require.ErrorIs(t, err, eventerr.ErrUnknownEventKind)
}

func TestAdapter_GetEvent_NotFound(t *testing.T) {
	adapter, mock := newMockAdapter(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryGetEventByID)).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := adapter.GetEvent(context.Background(), "missing")
	require.ErrorIs(t, err, eventerr.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_GetEvent_Found(t *testing.T) {
	adapter, mock := newMockAdapter(t)
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339Nano)

	mock.ExpectQuery(regexp.QuoteMeta(queryGetEventByID)).
		WithArgs("evt-1").
		WillReturnRows(sqlmock.NewRows(eventColumns).AddRow(
			"evt-1", "s1", int64(1), "IntentCreated", ts, "SYSTEM", nil,
			"main", nil, nil, `{"goal":"learn go"}`,
		))

	got, err := adapter.GetEvent(context.Background(), "evt-1")
	require.NoError(t, err)
	require.Equal(t, "evt-1", got.EventID)
	require.Equal(t, int64(1), got.Seq)
	require.Equal(t, "learn go", got.Payload["goal"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_ListSessions(t *testing.T) {
	adapter, mock := newMockAdapter(t)
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339Nano)

	mock.ExpectQuery(regexp.QuoteMeta(queryListSessions)).
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "count", "max_ts"}).
			AddRow("s1", int64(3), ts))

	summaries, err := adapter.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, "s1", summaries[0].SessionID)
	require.Equal(t, int64(3), summaries[0].EventCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildGetEventsQuery_Default(t *testing.T) {
	query, args := buildGetEventsQuery("s1", store.EventFilter{})
	require.Contains(t, query, "WHERE session_id = ?")
	require.Contains(t, query, "ORDER BY seq ASC")
	require.Equal(t, []interface{}{"s1"}, args)
}

func TestBuildGetEventsQuery_FilteredAndPaged(t *testing.T) {
	filter := store.EventFilter{
		Type:   event.StepCompleted,
		HeadID: "main",
		SeqMin: 2,
		SeqMax: 10,
		Limit:  5,
		Offset: 1,
		Order:  store.Desc,
	}
	query, args := buildGetEventsQuery("s1", filter)
	require.Contains(t, query, "AND type = ?")
	require.Contains(t, query, "AND head_id = ?")
	require.Contains(t, query, "AND seq >= ?")
	require.Contains(t, query, "AND seq <= ?")
	require.Contains(t, query, "ORDER BY seq DESC")
	require.Contains(t, query, "LIMIT ?")
	require.Contains(t, query, "OFFSET ?")
	require.Equal(t, []interface{}{
		"s1", string(event.StepCompleted), "main", int64(2), int64(10), 5, 1,
	}, args)
}

func TestAdapter_GetEvents_QueryError(t *testing.T) {
	adapter, mock := newMockAdapter(t)

	query, _ := buildGetEventsQuery("s1", store.EventFilter{})
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("s1").
		WillReturnError(sql.ErrConnDone)

	_, err := adapter.GetEvents(context.Background(), "s1", store.EventFilter{})
	require.ErrorIs(t, err, eventerr.ErrStoreFailure)
	require.NoError(t, mock.ExpectationsWereMet())
}
