// Package session composes the journey, learned, and artifact reducers
// over a single fetched event stream into one SessionState snapshot.
package session

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/pathwaylab/pathway-core/internal/artifact"
	"github.com/pathwaylab/pathway-core/internal/eventerr"
	"github.com/pathwaylab/pathway-core/internal/journey"
	"github.com/pathwaylab/pathway-core/internal/learned"
	"github.com/pathwaylab/pathway-core/internal/store"
)

// State is the composite derived view for one session, per spec.md §3.1.
type State struct {
	Journey    *journey.View  `json:"journey"`
	Learned    *learned.View  `json:"learned"`
	Artifacts  *artifact.View `json:"artifacts"`
	EventCount int            `json:"event_count"`
	LatestSeq  int64          `json:"latest_seq"`
}

// Composer reads a session's ordered event stream once and folds it
// through all three reducers. Concurrent requests for the same session are
// deduplicated with singleflight so a burst of readers triggers one store
// read and one set of reducer passes rather than one each.
type Composer struct {
	store   store.EventStore
	group   singleflight.Group
}

// NewComposer wraps an EventStore.
func NewComposer(es store.EventStore) *Composer {
	return &Composer{store: es}
}

// GetSessionState fetches session's events in seq order and folds them
// through the journey, learned, and artifact reducers. Reducer warnings
// are logged-worthy but non-fatal; callers that need them should call
// GetSessionStateWithWarnings instead.
func (c *Composer) GetSessionState(ctx context.Context, sessionID string) (*State, error) {
	st, _, err := c.GetSessionStateWithWarnings(ctx, sessionID)
	return st, err
}

// GetSessionStateWithWarnings is GetSessionState plus the reducer warnings
// accumulated while folding, e.g. malformed payloads or a supersedence
// cycle. It is a single-pass, pure fold: replaying the same event stream
// always yields the same State (spec.md §4.5's determinism requirement).
func (c *Composer) GetSessionStateWithWarnings(ctx context.Context, sessionID string) (*State, []eventerr.ReducerWarning, error) {
	v, err, _ := c.group.Do(sessionID, func() (interface{}, error) {
		return c.reduce(ctx, sessionID)
	})
	if err != nil {
		return nil, nil, err
	}
	result := v.(*composedResult)
	return result.state, result.warnings, nil
}

type composedResult struct {
	state    *State
	warnings []eventerr.ReducerWarning
}

func (c *Composer) reduce(ctx context.Context, sessionID string) (*composedResult, error) {
	events, err := c.store.GetEvents(ctx, sessionID, store.EventFilter{Order: store.Asc})
	if err != nil {
		return nil, fmt.Errorf("failed to load events for session %q: %w", sessionID, err)
	}

	journeyView, journeyWarnings := journey.Reduce(events)
	learnedView, learnedWarnings := learned.Reduce(events)
	artifactView, artifactWarnings := artifact.Reduce(events)

	var latestSeq int64
	if len(events) > 0 {
		latestSeq = events[len(events)-1].Seq
	}

	warnings := make([]eventerr.ReducerWarning, 0, len(journeyWarnings)+len(learnedWarnings)+len(artifactWarnings))
	warnings = append(warnings, journeyWarnings...)
	warnings = append(warnings, learnedWarnings...)
	warnings = append(warnings, artifactWarnings...)

	return &composedResult{
		state: &State{
			Journey:    journeyView,
			Learned:    learnedView,
			Artifacts:  artifactView,
			EventCount: len(events),
			LatestSeq:  latestSeq,
		},
		warnings: warnings,
	}, nil
}
