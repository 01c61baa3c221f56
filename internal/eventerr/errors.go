// Package eventerr collects the closed set of error kinds the core surfaces,
// mirroring the teacher's internal/core/errors package: sentinel errors for
// the Go API, plus a string error-type constant per kind for the HTTP
// surface's JSON error body.
package eventerr

import (
	"errors"
	"fmt"
)

// Sentinel errors, checked with errors.Is by callers.
var (
	ErrInvalidEnvelope       = errors.New("invalid envelope")
	ErrUnknownEventKind      = errors.New("unknown event kind")
	ErrPayloadSchemaMismatch = errors.New("payload does not match kind schema")
	ErrUnknownParent         = errors.New("parent event not found in session")
	ErrSessionIDShape        = errors.New("session_id has invalid shape")
	ErrEventIDShape          = errors.New("event_id has invalid shape")
	ErrSeqConflict           = errors.New("seq already assigned in session")
	ErrNotFound              = errors.New("not found")
	ErrStoreFailure          = errors.New("store failure")
)

// HTTP error-type strings for the JSON error body, one per sentinel above.
const (
	TypeInvalidEnvelope       = "invalid_envelope"
	TypeUnknownEventKind      = "unknown_event_kind"
	TypePayloadSchemaMismatch = "payload_schema_mismatch"
	TypeUnknownParent         = "unknown_parent"
	TypeSessionIDShape        = "session_id_shape"
	TypeEventIDShape          = "event_id_shape"
	TypeSeqConflict           = "seq_conflict"
	TypeNotFound              = "not_found"
	TypeInternalError         = "internal_error"
)

// ErrorResponse is the JSON error body returned by the HTTP surface.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// Wrap attaches context to a sentinel error while keeping it matchable via
// errors.Is.
func Wrap(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel)
}

// TypeFor maps a wrapped sentinel error to its HTTP error-type string.
// Unrecognized errors map to TypeInternalError.
func TypeFor(err error) string {
	switch {
	case errors.Is(err, ErrInvalidEnvelope):
		return TypeInvalidEnvelope
	case errors.Is(err, ErrUnknownEventKind):
		return TypeUnknownEventKind
	case errors.Is(err, ErrPayloadSchemaMismatch):
		return TypePayloadSchemaMismatch
	case errors.Is(err, ErrUnknownParent):
		return TypeUnknownParent
	case errors.Is(err, ErrSessionIDShape):
		return TypeSessionIDShape
	case errors.Is(err, ErrEventIDShape):
		return TypeEventIDShape
	case errors.Is(err, ErrSeqConflict):
		return TypeSeqConflict
	case errors.Is(err, ErrNotFound):
		return TypeNotFound
	default:
		return TypeInternalError
	}
}

// ReducerWarning is a non-fatal anomaly surfaced alongside a derived view.
// Reducers never abort on these; they collect them and keep folding.
type ReducerWarning struct {
	EventID string `json:"event_id,omitempty"`
	Kind    string `json:"kind"` // duplicate_artifact | supersedence_cycle | dangling_supersedence | ...
	Message string `json:"message"`
}

func (w ReducerWarning) Error() string {
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}
