package domain

import (
	"fmt"
	"time"
)

// EventKind names an onboarding transition.
type EventKind string

const (
	EventStart           EventKind = "start"
	EventStep            EventKind = "step"
	EventComplete        EventKind = "complete"
	EventSkip            EventKind = "skip"
	EventReset           EventKind = "reset"
	EventSubTourComplete EventKind = "subtour_complete"
	EventSubTourReset    EventKind = "subtour_reset"
)

// Event is a single requested transition. Step is read only for EventStep
// and Tour only for the sub-tour events.
type Event struct {
	Kind EventKind
	Step int
	Tour SubTour
}

func StartEvent() Event { return Event{Kind: EventStart} }
func StepEvent(step int) Event { return Event{Kind: EventStep, Step: step} }
func CompleteEvent() Event { return Event{Kind: EventComplete} }
func SkipEvent() Event { return Event{Kind: EventSkip} }
func ResetEvent() Event { return Event{Kind: EventReset} }
func SubTourCompleteEvent(t SubTour) Event { return Event{Kind: EventSubTourComplete, Tour: t} }
func SubTourResetEvent(t SubTour) Event { return Event{Kind: EventSubTourReset, Tour: t} }

// Apply returns the state that results from e at time now.
// It never mutates o and carries Version through unchanged; bumping the
// version is the repo's job. Every transition is allowed from every phase:
// Start rewinds, Complete forces completion regardless of the current step.
func (o Onboarding) Apply(e Event, now time.Time) (Onboarding, error) {
	next := o
	switch e.Kind {
	case EventStart:
		next.Phase = PhaseInProgress
		next.Step = 0
		next.StartedAt = &now
		next.CompletedAt = nil

	case EventStep:
		if e.Step < 0 || e.Step >= TotalSteps {
			return o, fmt.Errorf("%w: step must be between 0 and %d", ErrValidation, TotalSteps-1)
		}
		next.Phase = PhaseInProgress
		next.Step = e.Step
		if next.StartedAt == nil {
			next.StartedAt = &now
		}
		next.CompletedAt = nil

	case EventComplete:
		next.Phase = PhaseCompleted
		next.Step = TotalSteps
		next.CompletedAt = &now

	case EventSkip:
		next.Phase = PhaseSkipped
		next.Step = 0
		next.CompletedAt = nil

	case EventReset:
		next.Phase = PhaseNotStarted
		next.Step = 0
		next.StartedAt = nil
		next.CompletedAt = nil

	case EventSubTourComplete, EventSubTourReset:
		done := e.Kind == EventSubTourComplete
		switch e.Tour {
		case SubTourLocations:
			next.LocationsCompleted = done
		case SubTourPeople:
			next.PeopleCompleted = done
		default:
			return o, fmt.Errorf("%w: unknown sub-tour %q", ErrValidation, e.Tour)
		}

	default:
		return o, fmt.Errorf("%w: unknown onboarding event %q", ErrValidation, e.Kind)
	}
	return next, nil
}
