// Package event defines the closed taxonomy of Pathway event kinds and the
// envelope shared by all of them. Events are immutable once appended; the
// envelope carries identity, ordering, parentage and branch, and the
// payload carries the kind-specific data.
package event

import "time"

// Kind is the closed set of event types a session's log can contain.
type Kind string

const (
	IntentCreated        Kind = "IntentCreated"
	TrailVersionCreated  Kind = "TrailVersionCreated"
	WaypointEntered      Kind = "WaypointEntered"
	ChoiceMade           Kind = "ChoiceMade"
	StepCompleted        Kind = "StepCompleted"
	Blocked              Kind = "Blocked"
	Backtracked          Kind = "Backtracked"
	Replanned            Kind = "Replanned"
	Merged               Kind = "Merged"
	ArtifactCreated      Kind = "ArtifactCreated"
	ArtifactSuperseded   Kind = "ArtifactSuperseded"
	PreferenceLearned    Kind = "PreferenceLearned"
	ConceptLearned       Kind = "ConceptLearned"
	ConstraintLearned    Kind = "ConstraintLearned"
)

// Kinds is the closed taxonomy in declaration order, used for membership
// checks and for generating exhaustive test fixtures.
var Kinds = []Kind{
	IntentCreated, TrailVersionCreated, WaypointEntered, ChoiceMade,
	StepCompleted, Blocked, Backtracked, Replanned, Merged,
	ArtifactCreated, ArtifactSuperseded, PreferenceLearned, ConceptLearned,
	ConstraintLearned,
}

// Valid reports whether k belongs to the closed taxonomy.
func (k Kind) Valid() bool {
	for _, valid := range Kinds {
		if k == valid {
			return true
		}
	}
	return false
}

// ActorKind distinguishes a human-initiated event from a system-initiated one.
type ActorKind string

const (
	ActorUser   ActorKind = "USER"
	ActorSystem ActorKind = "SYSTEM"
)

// Actor identifies who or what produced an event.
type Actor struct {
	Kind ActorKind `json:"kind"`
	ID   string    `json:"id,omitempty"`
}

// DefaultHeadID is the branch every session implicitly starts on.
const DefaultHeadID = "main"

// Envelope is the shared shape of every event, independent of its kind.
// Payload holds the kind-specific record; unknown fields inside Payload
// are preserved verbatim by the store for lossless round-tripping.
type Envelope struct {
	EventID       string                 `json:"event_id"`
	SessionID     string                 `json:"session_id"`
	Seq           int64                  `json:"seq"`
	Type          Kind                   `json:"type"`
	Timestamp     time.Time              `json:"ts"`
	Actor         Actor                  `json:"actor"`
	HeadID        string                 `json:"head_id"`
	ParentEventID string                 `json:"parent_event_id,omitempty"`
	WaypointID    string                 `json:"waypoint_id,omitempty"`
	Payload       map[string]interface{} `json:"payload"`
}

// NewEnvelope is a candidate event submitted for append: it carries every
// field a caller may set, with Seq and EventID left for the store to
// assign when absent.
type NewEnvelope struct {
	EventID       string                 `json:"event_id,omitempty"`
	SessionID     string                 `json:"session_id"`
	Seq           int64                  `json:"seq,omitempty"`
	Type          Kind                   `json:"type"`
	Timestamp     time.Time              `json:"ts,omitempty"`
	Actor         Actor                  `json:"actor,omitempty"`
	HeadID        string                 `json:"head_id,omitempty"`
	ParentEventID string                 `json:"parent_event_id,omitempty"`
	WaypointID    string                 `json:"waypoint_id,omitempty"`
	Payload       map[string]interface{} `json:"payload"`
}
