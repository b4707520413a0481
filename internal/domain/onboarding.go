package domain

import (
	"fmt"
	"time"
)

// TotalSteps is the number of steps in the main onboarding tour.
// Valid in-progress steps are 0 through TotalSteps-1; a completed tour
// reports TotalSteps.
const TotalSteps = 9

// Phase is the discriminator of the onboarding state.
// Exactly one phase holds at a time, so a tour can never be both
// completed and skipped.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseInProgress Phase = "in_progress"
	PhaseCompleted  Phase = "completed"
	PhaseSkipped    Phase = "skipped"
)

// ParsePhase converts a stored discriminator back into a Phase.
func ParsePhase(s string) (Phase, error) {
	switch p := Phase(s); p {
	case PhaseNotStarted, PhaseInProgress, PhaseCompleted, PhaseSkipped:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown onboarding phase %q", ErrValidation, s)
}

// Onboarding is a user's onboarding progress.
//
// Phase selects which payload fields are meaningful:
//
//	not_started  no payload
//	in_progress  Step in [0, TotalSteps), StartedAt
//	completed    Step == TotalSteps, CompletedAt, StartedAt when the tour was started
//	skipped      StartedAt when the tour was started
//
// The sub-tour flags are independent of the phase.
type Onboarding struct {
	Phase       Phase
	Step        int
	StartedAt   *time.Time
	CompletedAt *time.Time

	LocationsCompleted bool
	PeopleCompleted    bool

	// Version is incremented by the repo on every successful write and is
	// compared on update to detect concurrent writers.
	Version int64
}

// NewOnboarding returns the state a freshly created user starts in.
func NewOnboarding() Onboarding {
	return Onboarding{Phase: PhaseNotStarted}
}

// CurrentStep returns the step index and whether one is present.
// Only in-progress and completed tours have a step.
func (o Onboarding) CurrentStep() (int, bool) {
	switch o.Phase {
	case PhaseInProgress, PhaseCompleted:
		return o.Step, true
	}
	return 0, false
}

// Completed reports whether the main tour has been finished.
func (o Onboarding) Completed() bool { return o.Phase == PhaseCompleted }

// Skipped reports whether the user opted out of the main tour.
func (o Onboarding) Skipped() bool { return o.Phase == PhaseSkipped }

// AtFinalStep reports whether the tour is on its last step or already done.
func (o Onboarding) AtFinalStep() bool {
	switch o.Phase {
	case PhaseInProgress:
		return o.Step == TotalSteps-1
	case PhaseCompleted:
		return true
	}
	return false
}

// Validate checks that the payload fields agree with the phase.
// Repos call it after scanning a row so corrupted data surfaces as an error
// instead of an impossible state.
func (o Onboarding) Validate() error {
	switch o.Phase {
	case PhaseNotStarted:
		if o.StartedAt != nil || o.CompletedAt != nil || o.Step != 0 {
			return fmt.Errorf("%w: not_started onboarding carries progress", ErrValidation)
		}
	case PhaseInProgress:
		if o.Step < 0 || o.Step >= TotalSteps {
			return fmt.Errorf("%w: step %d out of range", ErrValidation, o.Step)
		}
		if o.StartedAt == nil {
			return fmt.Errorf("%w: in_progress onboarding has no start time", ErrValidation)
		}
		if o.CompletedAt != nil {
			return fmt.Errorf("%w: in_progress onboarding has a completion time", ErrValidation)
		}
	case PhaseCompleted:
		if o.Step != TotalSteps {
			return fmt.Errorf("%w: completed onboarding at step %d", ErrValidation, o.Step)
		}
		if o.CompletedAt == nil {
			return fmt.Errorf("%w: completed onboarding has no completion time", ErrValidation)
		}
	case PhaseSkipped:
		if o.Step != 0 || o.CompletedAt != nil {
			return fmt.Errorf("%w: skipped onboarding carries progress", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown onboarding phase %q", ErrValidation, o.Phase)
	}
	return nil
}
