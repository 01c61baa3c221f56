package main

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pathwaylab/pathway-core/internal/event"
	"github.com/pathwaylab/pathway-core/internal/store/sqlite"
)

func TestEventsCmd_FiltersByType(t *testing.T) {
	dbPath := t.TempDir() + "/pathway.db"

	seed, err := sqlite.NewAdapter(dbPath, event.DefaultShapeLimits())
	require.NoError(t, err)
	first, err := seed.Append(context.Background(), event.NewEnvelope{
		SessionID: "s1", Type: event.IntentCreated,
		Payload: map[string]interface{}{"goal": "learn go"},
	})
	require.NoError(t, err)
	_, err = seed.Append(context.Background(), event.NewEnvelope{
		SessionID: "s1", Type: event.WaypointEntered, ParentEventID: first.EventID,
		Payload: map[string]interface{}{"waypoint_id": "w1"},
	})
	require.NoError(t, err)
	require.NoError(t, seed.Close())

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--db", dbPath, "events", "s1", "--type", "IntentCreated"})

	var out strings.Builder
	cmd.SetOut(&out)

	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "IntentCreated")
	require.NotContains(t, out.String(), "WaypointEntered")
}
