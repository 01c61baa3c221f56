// Package learned folds an ordered event stream into a LearnedView:
// preferences, concepts, and constraints, each carrying a confidence
// clamped to [0,1]. Confidence arithmetic uses shopspring/decimal so that
// repeated deltas accumulate without the binary floating-point drift a
// plain float64 sum would introduce over a long-running session.
package learned

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/pathwaylab/pathway-core/internal/event"
	"github.com/pathwaylab/pathway-core/internal/eventerr"
)

var (
	zero = decimal.NewFromInt(0)
	one  = decimal.NewFromInt(1)
)

// Learned is one key's learned state: a preference, a constraint, or (via
// Concept) a concept entry.
type Learned struct {
	Value          interface{} `json:"value"`
	Confidence     float64     `json:"confidence"`
	FirstSeenSeq   int64       `json:"first_seen_seq"`
	LastUpdatedSeq int64       `json:"last_updated_seq"`
}

// Concept additionally tracks a summary and the evidence events that
// support it.
type Concept struct {
	Summary          string   `json:"summary"`
	Confidence       float64  `json:"confidence"`
	EvidenceEventIDs []string `json:"evidence_event_ids"`
	FirstSeenSeq     int64    `json:"first_seen_seq"`
	LastUpdatedSeq   int64    `json:"last_updated_seq"`
}

// View is the derived learned state for a session.
type View struct {
	Preferences map[string]*Learned `json:"preferences"`
	Concepts    map[string]*Concept `json:"concepts"`
	Constraints map[string]*Learned `json:"constraints"`
}

func newView() *View {
	return &View{
		Preferences: make(map[string]*Learned),
		Concepts:    make(map[string]*Concept),
		Constraints: make(map[string]*Learned),
	}
}

// clamp restricts x to [0,1] using decimal arithmetic to avoid float drift
// across long chains of small deltas.
func clamp(x decimal.Decimal) float64 {
	if x.LessThan(zero) {
		x = zero
	}
	if x.GreaterThan(one) {
		x = one
	}
	f, _ := x.Float64()
	return f
}

// Reduce folds events, which must already be ordered by seq ascending, into
// a LearnedView. Learned state never rewinds on Backtracked: this is what
// realizes the "learning persists across backtrack" guarantee.
func Reduce(events []*event.Envelope) (*View, []eventerr.ReducerWarning) {
	view := newView()
	var warnings []eventerr.ReducerWarning

	for _, e := range events {
		switch e.Type {
		case event.PreferenceLearned:
			var payload event.PreferenceLearnedPayload
			if err := event.DecodePayload(e.Payload, &payload); err != nil {
				warnings = append(warnings, eventerr.ReducerWarning{EventID: e.EventID, Kind: "malformed_payload", Message: "malformed PreferenceLearned payload: " + err.Error()})
				continue
			}
			applyKeyed(view.Preferences, payload.Key, payload.Value, payload.ConfidenceDelta, e.Seq)

		case event.ConstraintLearned:
			var payload event.ConstraintLearnedPayload
			if err := event.DecodePayload(e.Payload, &payload); err != nil {
				warnings = append(warnings, eventerr.ReducerWarning{EventID: e.EventID, Kind: "malformed_payload", Message: "malformed ConstraintLearned payload: " + err.Error()})
				continue
			}
			applyKeyed(view.Constraints, payload.Key, payload.Value, payload.ConfidenceDelta, e.Seq)

		case event.ConceptLearned:
			var payload event.ConceptLearnedPayload
			if err := event.DecodePayload(e.Payload, &payload); err != nil {
				warnings = append(warnings, eventerr.ReducerWarning{EventID: e.EventID, Kind: "malformed_payload", Message: "malformed ConceptLearned payload: " + err.Error()})
				continue
			}
			applyConcept(view.Concepts, payload, e.Seq)

		default:
			// journey and artifact events carry no learned-relevant fields.
		}
	}

	return view, warnings
}

// applyKeyed implements the shared PreferenceLearned/ConstraintLearned rule:
// same value accumulates confidence, a changed value resets it.
func applyKeyed(store map[string]*Learned, key string, value interface{}, delta float64, seq int64) {
	existing, ok := store[key]
	if !ok {
		store[key] = &Learned{
			Value:          value,
			Confidence:     clamp(decimal.NewFromFloat(delta)),
			FirstSeenSeq:   seq,
			LastUpdatedSeq: seq,
		}
		return
	}

	if valuesEqual(existing.Value, value) {
		existing.Confidence = clamp(decimal.NewFromFloat(existing.Confidence).Add(decimal.NewFromFloat(delta)))
		existing.LastUpdatedSeq = seq
		return
	}

	existing.Value = value
	existing.Confidence = clamp(decimal.NewFromFloat(delta))
	existing.LastUpdatedSeq = seq
}

func applyConcept(store map[string]*Concept, payload event.ConceptLearnedPayload, seq int64) {
	existing, ok := store[payload.ConceptID]
	if !ok {
		existing = &Concept{FirstSeenSeq: seq}
		store[payload.ConceptID] = existing
	}
	existing.Summary = payload.Summary
	existing.Confidence = clamp(decimal.NewFromFloat(existing.Confidence).Add(decimal.NewFromFloat(payload.ConfidenceDelta)))
	existing.LastUpdatedSeq = seq

	if payload.EvidenceEventID != "" && !containsString(existing.EvidenceEventIDs, payload.EvidenceEventID) {
		existing.EvidenceEventIDs = append(existing.EvidenceEventIDs, payload.EvidenceEventID)
	}
}

func containsString(list []string, target string) bool {
	for _, s := range list {
		if s == target {
			return true
		}
	}
	return false
}

// valuesEqual compares decoded JSON values (string, float64, bool, nil,
// or nested maps/slices from interface{} payload fields) structurally, by
// comparing their canonical JSON encoding.
func valuesEqual(a, b interface{}) bool {
	aJSON, errA := json.Marshal(a)
	bJSON, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(aJSON) == string(bJSON)
}
