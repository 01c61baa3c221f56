package jsonl

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pathwaylab/pathway-core/internal/event"
	"github.com/pathwaylab/pathway-core/internal/store"
	"github.com/pathwaylab/pathway-core/internal/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Adapter {
	t.Helper()
	adapter, err := sqlite.NewAdapter(":memory:", event.DefaultShapeLimits())
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })
	return adapter
}

func TestExportImport_RoundTripPreservesTopology(t *testing.T) {
	source := newStore(t)
	ctx := context.Background()

	first, err := source.Append(ctx, event.NewEnvelope{
		SessionID: "s1", Type: event.IntentCreated,
		Payload: map[string]interface{}{"goal": "learn go"},
	})
	require.NoError(t, err)

	second, err := source.Append(ctx, event.NewEnvelope{
		SessionID: "s1", Type: event.WaypointEntered, ParentEventID: first.EventID,
		Payload: map[string]interface{}{"waypoint_id": "w1"},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	count, err := Export(ctx, source, "s1", &buf)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	target := newStore(t)
	imported, err := Import(ctx, target, &buf, ImportOptions{SessionIDOverride: "s2"})
	require.NoError(t, err)
	require.Equal(t, 2, imported)

	events, err := target.GetEvents(ctx, "s2", store.EventFilter{Order: store.Asc})
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "s2", events[0].SessionID)
	require.Equal(t, first.EventID, events[0].EventID)
	require.Equal(t, second.EventID, events[1].EventID)
	require.Equal(t, first.EventID, events[1].ParentEventID)
}
