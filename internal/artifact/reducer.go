// Package artifact folds an ordered event stream into an ArtifactView:
// active and superseded artifacts, and the supersedence chains linking
// them. Supersedence may reference an artifact not yet created; the
// reducer holds such links pending and resolves them when the artifact
// later appears, matching malformed-but-possible event streams.
package artifact

import (
	"github.com/pathwaylab/pathway-core/internal/event"
	"github.com/pathwaylab/pathway-core/internal/eventerr"
)

// Entry is one artifact's recorded state.
type Entry struct {
	Type         event.ArtifactType `json:"type"`
	CreatedEvent string             `json:"created_event_id"`
	WaypointID   string             `json:"waypoint_id,omitempty"`
	SupersededBy string             `json:"superseded_by,omitempty"`
}

// View is the derived artifact state for a session.
type View struct {
	Artifacts           map[string]*Entry `json:"artifacts"`
	Chains              [][]string        `json:"chains"`
	ActiveArtifacts     []string          `json:"active_artifacts"`
	SupersededArtifacts []string          `json:"superseded_artifacts"`
}

func newView() *View {
	return &View{Artifacts: make(map[string]*Entry)}
}

// Reduce folds events, which must already be ordered by seq ascending, into
// an ArtifactView.
func Reduce(events []*event.Envelope) (*View, []eventerr.ReducerWarning) {
	view := newView()
	var warnings []eventerr.ReducerWarning
	pendingLinks := make(map[string]string) // old_artifact_id -> new_artifact_id, awaiting old's creation

	for _, e := range events {
		switch e.Type {
		case event.ArtifactCreated:
			var payload event.ArtifactCreatedPayload
			if err := event.DecodePayload(e.Payload, &payload); err != nil {
				warnings = append(warnings, eventerr.ReducerWarning{EventID: e.EventID, Kind: "malformed_payload", Message: "malformed ArtifactCreated payload: " + err.Error()})
				continue
			}
			if _, exists := view.Artifacts[payload.ArtifactID]; exists {
				warnings = append(warnings, eventerr.ReducerWarning{EventID: e.EventID, Kind: "duplicate_artifact", Message: "duplicate artifact_id " + payload.ArtifactID + ", keeping first"})
				continue
			}
			entry := &Entry{
				Type:         payload.ArtifactType,
				CreatedEvent: e.EventID,
				WaypointID:   e.WaypointID,
			}
			if link, ok := pendingLinks[payload.ArtifactID]; ok {
				entry.SupersededBy = link
				delete(pendingLinks, payload.ArtifactID)
			}
			view.Artifacts[payload.ArtifactID] = entry

		case event.ArtifactSuperseded:
			var payload event.ArtifactSupersededPayload
			if err := event.DecodePayload(e.Payload, &payload); err != nil {
				warnings = append(warnings, eventerr.ReducerWarning{EventID: e.EventID, Kind: "malformed_payload", Message: "malformed ArtifactSuperseded payload: " + err.Error()})
				continue
			}
			if old, ok := view.Artifacts[payload.OldArtifactID]; ok {
				old.SupersededBy = payload.NewArtifactID
			} else {
				pendingLinks[payload.OldArtifactID] = payload.NewArtifactID
			}

		default:
			// journey and learned events carry no artifact-relevant fields.
		}
	}

	for _, old := range sortedPendingKeys(pendingLinks) {
		warnings = append(warnings, eventerr.ReducerWarning{Kind: "dangling_supersedence", Message: "old_artifact_id " + old + " superseded by " + pendingLinks[old] + " was never created"})
	}

	view.Chains, view.ActiveArtifacts, view.SupersededArtifacts = buildChains(view.Artifacts, &warnings)
	return view, warnings
}

// buildChains walks superseded_by links from every artifact with no
// inbound link, producing ordered chains. A cycle breaks at the repeating
// node and emits a warning; the rest of the view remains usable.
func buildChains(artifacts map[string]*Entry, warnings *[]eventerr.ReducerWarning) ([][]string, []string, []string) {
	hasInbound := make(map[string]bool, len(artifacts))
	for _, entry := range artifacts {
		if entry.SupersededBy != "" {
			hasInbound[entry.SupersededBy] = true
		}
	}

	var chains [][]string
	visited := make(map[string]bool, len(artifacts))
	ids := sortedKeys(artifacts)

	walk := func(id string) {
		chain := []string{id}
		seen := map[string]bool{id: true}
		visited[id] = true
		current := artifacts[id]
		for current.SupersededBy != "" {
			next := current.SupersededBy
			if seen[next] {
				*warnings = append(*warnings, eventerr.ReducerWarning{EventID: current.CreatedEvent, Kind: "supersedence_cycle", Message: "cycle detected in supersedence chain at " + next})
				break
			}
			chain = append(chain, next)
			seen[next] = true
			visited[next] = true
			nextEntry, ok := artifacts[next]
			if !ok {
				*warnings = append(*warnings, eventerr.ReducerWarning{EventID: current.CreatedEvent, Kind: "dangling_supersedence", Message: "superseded_by " + next + " does not resolve to a recorded artifact"})
				break
			}
			current = nextEntry
		}
		if len(chain) > 1 {
			chains = append(chains, chain)
		}
	}

	for _, id := range ids {
		if hasInbound[id] {
			continue
		}
		walk(id)
	}
	// Any remaining unvisited artifact with an outbound link belongs to a
	// pure cycle (every node has an inbound link); break it at an
	// arbitrary node and warn.
	for _, id := range ids {
		if visited[id] || artifacts[id].SupersededBy == "" {
			continue
		}
		walk(id)
	}

	var active, superseded []string
	for _, id := range ids {
		if artifacts[id].SupersededBy == "" {
			active = append(active, id)
		} else {
			superseded = append(superseded, id)
		}
	}
	return chains, active, superseded
}

func sortedPendingKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

func sortedKeys(m map[string]*Entry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// insertion order isn't preserved by Go maps; a stable lexical order
	// keeps chain output deterministic across runs.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
