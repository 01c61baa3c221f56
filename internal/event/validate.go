package event

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/pathwaylab/pathway-core/internal/eventerr"
)

// sessionIDPattern matches spec.md §3.1: alphanumeric plus "_" and "-".
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ShapeLimits bounds identifier lengths, configurable per spec.md §6.5.
type ShapeLimits struct {
	SessionIDMaxLength int
	EventIDMaxLength   int
}

// DefaultShapeLimits matches spec.md §6.5 defaults.
func DefaultShapeLimits() ShapeLimits {
	return ShapeLimits{SessionIDMaxLength: 128, EventIDMaxLength: 128}
}

// Validator checks envelope well-formedness and payload schema conformance.
// Struct-tag shape checks run through go-playground/validator; the DAG and
// taxonomy checks that don't map to a struct tag (parent existence, seq
// ordering) are the store's job, since they need the rest of the session's
// history to answer.
type Validator struct {
	limits ShapeLimits
	v      *validator.Validate
}

// NewValidator builds a Validator bound to the given shape limits.
func NewValidator(limits ShapeLimits) *Validator {
	if limits.SessionIDMaxLength <= 0 {
		limits.SessionIDMaxLength = 128
	}
	if limits.EventIDMaxLength <= 0 {
		limits.EventIDMaxLength = 128
	}
	return &Validator{limits: limits, v: validator.New()}
}

// ValidateSessionID checks §3.1's session_id shape rule.
func (val *Validator) ValidateSessionID(sessionID string) error {
	if sessionID == "" {
		return eventerr.Wrap(eventerr.ErrSessionIDShape, "session_id must not be empty")
	}
	if len(sessionID) > val.limits.SessionIDMaxLength {
		return eventerr.Wrap(eventerr.ErrSessionIDShape, "session_id exceeds %d characters", val.limits.SessionIDMaxLength)
	}
	if !sessionIDPattern.MatchString(sessionID) {
		return eventerr.Wrap(eventerr.ErrSessionIDShape, "session_id %q contains characters outside [A-Za-z0-9_-]", sessionID)
	}
	return nil
}

// ValidateEventID checks the event_id shape rule: non-empty, ≤ limit,
// case-sensitive (no normalization applied).
func (val *Validator) ValidateEventID(eventID string) error {
	if eventID == "" {
		return eventerr.Wrap(eventerr.ErrEventIDShape, "event_id must not be empty")
	}
	if len(eventID) > val.limits.EventIDMaxLength {
		return eventerr.Wrap(eventerr.ErrEventIDShape, "event_id exceeds %d characters", val.limits.EventIDMaxLength)
	}
	return nil
}

// ValidateEnvelope checks the envelope-level invariants from spec.md §3.1
// that don't require session history: required fields present, type within
// the closed taxonomy, identifiers well-shaped.
func (val *Validator) ValidateEnvelope(candidate NewEnvelope) error {
	if candidate.SessionID == "" {
		return eventerr.Wrap(eventerr.ErrInvalidEnvelope, "session_id is required")
	}
	if err := val.ValidateSessionID(candidate.SessionID); err != nil {
		return err
	}
	if candidate.EventID != "" {
		if err := val.ValidateEventID(candidate.EventID); err != nil {
			return err
		}
	}
	if candidate.Type == "" {
		return eventerr.Wrap(eventerr.ErrInvalidEnvelope, "type is required")
	}
	if !candidate.Type.Valid() {
		return eventerr.Wrap(eventerr.ErrUnknownEventKind, "type %q is not in the closed taxonomy", candidate.Type)
	}
	if candidate.Payload == nil {
		return eventerr.Wrap(eventerr.ErrInvalidEnvelope, "payload is required")
	}
	if candidate.Actor.Kind != "" && candidate.Actor.Kind != ActorUser && candidate.Actor.Kind != ActorSystem {
		return eventerr.Wrap(eventerr.ErrInvalidEnvelope, "actor.kind %q is not USER or SYSTEM", candidate.Actor.Kind)
	}
	return nil
}

// ValidatePayload decodes and struct-validates the payload for its declared
// kind, returning ErrPayloadSchemaMismatch on failure. §3.3 fixes exactly
// which payload shape a kind permits.
func (val *Validator) ValidatePayload(kind Kind, payload map[string]interface{}) error {
	target, err := val.newPayloadTarget(kind)
	if err != nil {
		return err
	}
	if err := DecodePayload(payload, target); err != nil {
		return eventerr.Wrap(eventerr.ErrPayloadSchemaMismatch, "%s: malformed payload for %s", err, kind)
	}
	if err := val.v.Struct(target); err != nil {
		return eventerr.Wrap(eventerr.ErrPayloadSchemaMismatch, "%s: payload for %s failed schema checks", err, kind)
	}
	return nil
}

func (val *Validator) newPayloadTarget(kind Kind) (interface{}, error) {
	switch kind {
	case IntentCreated:
		return &struct {
			Goal string `json:"goal" validate:"required"`
		}{}, nil
	case TrailVersionCreated:
		return &struct {
			Version   string `json:"version" validate:"required"`
			Waypoints []Waypoint `json:"waypoints" validate:"required"`
		}{}, nil
	case WaypointEntered:
		return &struct {
			WaypointID string `json:"waypoint_id" validate:"required"`
		}{}, nil
	case ChoiceMade:
		return &struct {
			Options []string `json:"options" validate:"required,min=1"`
			Chosen  string   `json:"chosen" validate:"required"`
		}{}, nil
	case StepCompleted:
		return &struct {
			WaypointID string `json:"waypoint_id" validate:"required"`
		}{}, nil
	case Blocked:
		return &struct {
			Category BlockCategory `json:"category" validate:"required,oneof=CONFUSION TOOLING RUNTIME_ERROR MISSING_INFO EXTERNAL_DEPENDENCY"`
			Detail   string        `json:"detail" validate:"required"`
		}{}, nil
	case Backtracked:
		return &struct {
			TargetEventID string `json:"target_event_id" validate:"required"`
		}{}, nil
	case Replanned:
		return &struct {
			NewTrailVersion string `json:"new_trail_version" validate:"required"`
			Reason          string `json:"reason" validate:"required"`
		}{}, nil
	case Merged:
		return &struct {
			SourceHeadIDs []string `json:"source_head_ids" validate:"required,min=1"`
			IntoHeadID    string   `json:"into_head_id" validate:"required"`
		}{}, nil
	case ArtifactCreated:
		return &struct {
			ArtifactID   string       `json:"artifact_id" validate:"required"`
			ArtifactType ArtifactType `json:"artifact_type" validate:"required,oneof=CODE DOC CONFIG DATA OTHER"`
			SideEffects  SideEffects  `json:"side_effects" validate:"required,oneof=NONE LOCAL REMOTE"`
		}{}, nil
	case ArtifactSuperseded:
		return &struct {
			OldArtifactID string `json:"old_artifact_id" validate:"required"`
			NewArtifactID string `json:"new_artifact_id" validate:"required"`
		}{}, nil
	case PreferenceLearned:
		return &struct {
			Key             string  `json:"key" validate:"required"`
			ConfidenceDelta float64 `json:"confidence_delta" validate:"gte=-1,lte=1"`
		}{}, nil
	case ConceptLearned:
		return &struct {
			ConceptID       string  `json:"concept_id" validate:"required"`
			Summary         string  `json:"summary" validate:"required"`
			ConfidenceDelta float64 `json:"confidence_delta" validate:"gte=-1,lte=1"`
		}{}, nil
	case ConstraintLearned:
		return &struct {
			Key             string  `json:"key" validate:"required"`
			ConfidenceDelta float64 `json:"confidence_delta" validate:"gte=-1,lte=1"`
		}{}, nil
	default:
		return nil, eventerr.Wrap(eventerr.ErrUnknownEventKind, "type %q is not in the closed taxonomy", fmt.Sprint(kind))
	}
}
