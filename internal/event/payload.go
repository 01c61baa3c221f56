package event

// Payload types describe the shape validated against Envelope.Payload for
// each Kind (§3.3). They are also used to marshal a typed payload into the
// map[string]interface{} the envelope carries, and are enriched with a
// handful of optional fields the original Pathway implementation carried
// (comfort_level, via, retryable, evidence notes, ...) that spec.md's
// distillation dropped but never excluded.

// WaypointKind is the closed set of waypoint roles in a trail.
type WaypointKind string

const (
	WaypointCheckpoint WaypointKind = "CHECKPOINT"
	WaypointAction     WaypointKind = "ACTION"
	WaypointBranch     WaypointKind = "BRANCH"
	WaypointMilestone  WaypointKind = "MILESTONE"
)

// BlockCategory is the closed set of reasons a journey can stall.
type BlockCategory string

const (
	BlockConfusion          BlockCategory = "CONFUSION"
	BlockTooling            BlockCategory = "TOOLING"
	BlockRuntimeError       BlockCategory = "RUNTIME_ERROR"
	BlockMissingInfo        BlockCategory = "MISSING_INFO"
	BlockExternalDependency BlockCategory = "EXTERNAL_DEPENDENCY"
)

// ArtifactType is the closed set of artifact kinds.
type ArtifactType string

const (
	ArtifactCode   ArtifactType = "CODE"
	ArtifactDoc    ArtifactType = "DOC"
	ArtifactConfig ArtifactType = "CONFIG"
	ArtifactData   ArtifactType = "DATA"
	ArtifactOther  ArtifactType = "OTHER"
)

// SideEffects is the closed set of consequences an artifact may carry.
type SideEffects string

const (
	SideEffectsNone   SideEffects = "NONE"
	SideEffectsLocal  SideEffects = "LOCAL"
	SideEffectsRemote SideEffects = "REMOTE"
)

// EvidenceRef points at an artifact or another event that backs a learned
// update or a completed step.
type EvidenceRef struct {
	Kind string `json:"kind"` // "artifact" | "event"
	ID   string `json:"id"`
	Note string `json:"note,omitempty"`
}

// Waypoint describes one node of a trail version.
type Waypoint struct {
	ID    string       `json:"id"`
	Title string       `json:"title,omitempty"`
	Kind  WaypointKind `json:"kind"`
}

type IntentCreatedPayload struct {
	Goal          string   `json:"goal"`
	Context       string   `json:"context,omitempty"`
	Motivation    string   `json:"motivation,omitempty"`
	StartingPoint string   `json:"starting_point,omitempty"`
	ComfortLevel  string   `json:"comfort_level,omitempty"` // guide_me_closely | explain_as_we_go | let_me_explore
}

type TrailVersionCreatedPayload struct {
	Version   string     `json:"version"`
	Waypoints []Waypoint `json:"waypoints"`
	Rationale string     `json:"rationale,omitempty"`
}

type WaypointEnteredPayload struct {
	WaypointID     string       `json:"waypoint_id"`
	Kind           WaypointKind `json:"kind"`
	Via            string       `json:"via,omitempty"` // next | jump | backtrack | replan | merge
	FromWaypointID string       `json:"from_waypoint_id,omitempty"`
}

type ChoiceReason struct {
	Kind   string `json:"kind"` // matches_preference | low_friction | fits_constraints | teaches_goal | unblocks
	Detail string `json:"detail,omitempty"`
}

type ChoiceMadePayload struct {
	Options      []string       `json:"options"`
	Chosen       string         `json:"chosen"`
	Reason       string         `json:"reason,omitempty"`
	SuggestedBy  string         `json:"suggested_by,omitempty"` // system | user
	ReasonDetail []ChoiceReason `json:"reason_detail,omitempty"`
}

type StepCompletedPayload struct {
	WaypointID string        `json:"waypoint_id"`
	Artifacts  []string      `json:"artifacts,omitempty"`
	Evidence   []EvidenceRef `json:"evidence,omitempty"`
	Outcome    string        `json:"outcome,omitempty"` // ok | ok_with_notes
	Notes      string        `json:"notes,omitempty"`
}

type SuggestedNext struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

type BlockedPayload struct {
	Category      BlockCategory   `json:"category"`
	Detail        string          `json:"detail"`
	SuggestedNext []SuggestedNext `json:"suggested_next,omitempty"`
	Retryable     bool            `json:"retryable,omitempty"`
	Evidence      []EvidenceRef   `json:"evidence,omitempty"`
}

type BacktrackedPayload struct {
	TargetEventID string `json:"target_event_id"`
	Reason        string `json:"reason,omitempty"`
	Mode          string `json:"mode,omitempty"` // one_step | jump
}

type ReplannedPayload struct {
	NewTrailVersion string `json:"new_trail_version"`
	Reason          string `json:"reason"`
}

type MergedPayload struct {
	SourceHeadIDs []string `json:"source_head_ids"`
	IntoHeadID    string   `json:"into_head_id"`
	Notes         string   `json:"notes,omitempty"`
}

type ArtifactCreatedPayload struct {
	ArtifactID   string        `json:"artifact_id"`
	ArtifactType ArtifactType  `json:"artifact_type"`
	SideEffects  SideEffects   `json:"side_effects"`
	URI          string        `json:"uri,omitempty"`
	Evidence     []EvidenceRef `json:"evidence,omitempty"`
}

type ArtifactSupersededPayload struct {
	OldArtifactID string `json:"old_artifact_id"`
	NewArtifactID string `json:"new_artifact_id"`
	Reason        string `json:"reason,omitempty"`
}

type PreferenceLearnedPayload struct {
	Key             string        `json:"key"`
	Value           interface{}   `json:"value"`
	ConfidenceDelta float64       `json:"confidence_delta"`
	Evidence        []EvidenceRef `json:"evidence,omitempty"`
	Note            string        `json:"note,omitempty"`
}

type ConceptLearnedPayload struct {
	ConceptID       string        `json:"concept_id"`
	Summary         string        `json:"summary"`
	ConfidenceDelta float64       `json:"confidence_delta"`
	EvidenceEventID string        `json:"evidence_event_id,omitempty"`
	Evidence        []EvidenceRef `json:"evidence,omitempty"`
	Note            string        `json:"note,omitempty"`
}

type ConstraintLearnedPayload struct {
	Key             string        `json:"key"`
	Value           interface{}   `json:"value"`
	ConfidenceDelta float64       `json:"confidence_delta"`
	Evidence        []EvidenceRef `json:"evidence,omitempty"`
	Note            string        `json:"note,omitempty"`
}
