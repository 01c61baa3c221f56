package journey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pathwaylab/pathway-core/internal/event"
)

func env(id, sessionID string, kind event.Kind, headID, parentID, waypointID string, seq int64, payload map[string]interface{}) *event.Envelope {
	return &event.Envelope{
		EventID:       id,
		SessionID:     sessionID,
		Seq:           seq,
		Type:          kind,
		Timestamp:     time.Date(2026, 1, 1, 0, 0, int(seq), 0, time.UTC),
		Actor:         event.Actor{Kind: event.ActorUser},
		HeadID:        headID,
		ParentEventID: parentID,
		WaypointID:    waypointID,
		Payload:       payload,
	}
}

func TestReduce_LearningPersistsAcrossBacktrack(t *testing.T) {
	e1 := env("e1", "s2", event.IntentCreated, "main", "", "", 1, map[string]interface{}{"goal": "x"})
	e2 := env("e2", "s2", event.WaypointEntered, "main", "e1", "w1", 2, map[string]interface{}{"waypoint_id": "w1"})
	e3 := env("e3", "s2", event.PreferenceLearned, "main", "e2", "", 3, map[string]interface{}{"key": "style", "value": "terse", "confidence_delta": 0.5})
	e4 := env("e4", "s2", event.Backtracked, "main", "e3", "", 4, map[string]interface{}{"target_event_id": "e1"})

	view, warnings := Reduce([]*event.Envelope{e1, e2, e3, e4})
	require.Empty(t, warnings)
	require.Equal(t, "e1", view.PositionEventID)
	require.Len(t, view.Visited, 1)
	require.Equal(t, "w1", view.Visited[0].WaypointID)
}

func TestReduce_BranchingOnDivergentParent(t *testing.T) {
	a := env("a", "s3", event.WaypointEntered, "main", "", "w1", 1, map[string]interface{}{"waypoint_id": "w1"})
	b := env("b", "s3", event.WaypointEntered, "main", "a", "w2", 2, map[string]interface{}{"waypoint_id": "w2"})
	c := env("c", "s3", event.WaypointEntered, "alt", "a", "w3", 3, map[string]interface{}{"waypoint_id": "w3"})

	view, warnings := Reduce([]*event.Envelope{a, b, c})
	require.Empty(t, warnings)
	require.Equal(t, map[string]string{"main": "b", "alt": "c"}, view.BranchTips)
	require.Equal(t, "alt", view.ActiveHeadID)
}

func TestReduce_BacktrackTargetsIsAncestorChainExcludingSelf(t *testing.T) {
	a := env("a", "s1", event.WaypointEntered, "main", "", "w1", 1, map[string]interface{}{"waypoint_id": "w1"})
	b := env("b", "s1", event.WaypointEntered, "main", "a", "w2", 2, map[string]interface{}{"waypoint_id": "w2"})
	c := env("c", "s1", event.WaypointEntered, "main", "b", "w3", 3, map[string]interface{}{"waypoint_id": "w3"})

	view, warnings := Reduce([]*event.Envelope{a, b, c})
	require.Empty(t, warnings)
	require.Equal(t, "c", view.PositionEventID)
	require.Equal(t, []string{"b", "a"}, view.BacktrackTargets)
}

func TestReduce_MergeDropsSourceTips(t *testing.T) {
	a := env("a", "s4", event.WaypointEntered, "main", "", "w1", 1, map[string]interface{}{"waypoint_id": "w1"})
	b := env("b", "s4", event.WaypointEntered, "alt", "a", "w2", 2, map[string]interface{}{"waypoint_id": "w2"})
	m := env("m", "s4", event.Merged, "main", "b", "", 3, map[string]interface{}{"source_head_ids": []string{"alt"}, "into_head_id": "main"})

	view, warnings := Reduce([]*event.Envelope{a, b, m})
	require.Empty(t, warnings)
	require.Equal(t, map[string]string{"main": "m"}, view.BranchTips)
}

func TestReduce_MalformedPayloadYieldsWarning(t *testing.T) {
	a := env("a", "s5", event.Backtracked, "main", "", "", 1, map[string]interface{}{"target_event_id": 42})

	_, warnings := Reduce([]*event.Envelope{a})
	require.Len(t, warnings, 1)
	require.Equal(t, "a", warnings[0].EventID)
}
