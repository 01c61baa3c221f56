// Package journey folds an ordered event stream into a JourneyView: the
// current position, per-branch tips, waypoint history, and the ancestor
// chain reachable from the current position.
package journey

import (
	"time"

	"github.com/pathwaylab/pathway-core/internal/event"
	"github.com/pathwaylab/pathway-core/internal/eventerr"
)

// VisitedEntry records one waypoint entry in the order it happened.
type VisitedEntry struct {
	WaypointID string    `json:"waypoint_id"`
	EventID    string    `json:"event_id"`
	Timestamp  time.Time `json:"ts"`
}

// View is the derived journey state for a session.
type View struct {
	ActiveHeadID     string            `json:"active_head_id"`
	PositionEventID  string            `json:"position_event_id"`
	BranchTips       map[string]string `json:"branch_tips"`
	Visited          []VisitedEntry    `json:"visited"`
	BacktrackTargets []string          `json:"backtrack_targets"`
}

func newView() *View {
	return &View{BranchTips: make(map[string]string)}
}

// Reduce folds events, which must already be ordered by seq ascending, into
// a JourneyView. It never mutates events and holds no state beyond the
// returned View, so replaying the same prefix twice yields identical output.
func Reduce(events []*event.Envelope) (*View, []eventerr.ReducerWarning) {
	view := newView()
	var warnings []eventerr.ReducerWarning
	byID := make(map[string]*event.Envelope, len(events))

	for _, e := range events {
		byID[e.EventID] = e

		// Every event advances the tip of its own head; branch-specific
		// rules below layer additional effects on top of this default.
		view.BranchTips[e.HeadID] = e.EventID
		view.ActiveHeadID = e.HeadID

		switch e.Type {
		case event.IntentCreated, event.TrailVersionCreated:
			if e.WaypointID != "" {
				view.PositionEventID = e.EventID
			}

		case event.WaypointEntered:
			var payload event.WaypointEnteredPayload
			if err := event.DecodePayload(e.Payload, &payload); err != nil {
				warnings = append(warnings, eventerr.ReducerWarning{EventID: e.EventID, Kind: "malformed_payload", Message: "malformed WaypointEntered payload: " + err.Error()})
				continue
			}
			waypointID := payload.WaypointID
			if waypointID == "" {
				waypointID = e.WaypointID
			}
			view.Visited = append(view.Visited, VisitedEntry{
				WaypointID: waypointID,
				EventID:    e.EventID,
				Timestamp:  e.Timestamp,
			})
			view.PositionEventID = e.EventID

		case event.ChoiceMade, event.StepCompleted, event.Blocked:
			// branch tip already advanced above; position is unaffected.

		case event.Backtracked:
			var payload event.BacktrackedPayload
			if err := event.DecodePayload(e.Payload, &payload); err != nil {
				warnings = append(warnings, eventerr.ReducerWarning{EventID: e.EventID, Kind: "malformed_payload", Message: "malformed Backtracked payload: " + err.Error()})
				continue
			}
			view.PositionEventID = payload.TargetEventID

		case event.Replanned:
			// records a new trail version; position is unaffected and the
			// tip advanced above like any other event.

		case event.Merged:
			var payload event.MergedPayload
			if err := event.DecodePayload(e.Payload, &payload); err != nil {
				warnings = append(warnings, eventerr.ReducerWarning{EventID: e.EventID, Kind: "malformed_payload", Message: "malformed Merged payload: " + err.Error()})
				continue
			}
			for _, src := range payload.SourceHeadIDs {
				delete(view.BranchTips, src)
			}
			view.BranchTips[payload.IntoHeadID] = e.EventID

		default:
			// ArtifactCreated, ArtifactSuperseded, and the *Learned kinds
			// carry no journey-relevant fields beyond the default tip advance.
		}
	}

	view.BacktrackTargets = ancestorChain(byID, view.PositionEventID)
	return view, warnings
}

// ancestorChain walks parent_event_id links from eventID up to the root,
// excluding eventID itself.
func ancestorChain(byID map[string]*event.Envelope, eventID string) []string {
	var chain []string
	current, ok := byID[eventID]
	if !ok {
		return chain
	}
	seen := map[string]bool{eventID: true}
	for current.ParentEventID != "" {
		parentID := current.ParentEventID
		if seen[parentID] {
			// a cycle in parent pointers should never happen given
			// append-time validation, but guard against infinite loops.
			break
		}
		seen[parentID] = true
		parent, ok := byID[parentID]
		if !ok {
			break
		}
		chain = append(chain, parentID)
		current = parent
	}
	return chain
}
