package repo

import (
	"fmt"
	"time"

	"github.com/pkordes/placekeeper/internal/domain"
)

// onboardingColumns is the storage shape of domain.Onboarding: one
// discriminator column plus nullable payload columns. Both dialects convert
// their driver-specific scan types into this before building the domain value.
type onboardingColumns struct {
	phase       string
	step        *int
	startedAt   *time.Time
	completedAt *time.Time
	locations   bool
	people      bool
	version     int64
}

func columnsFromOnboarding(o domain.Onboarding) onboardingColumns {
	c := onboardingColumns{
		phase:       string(o.Phase),
		startedAt:   o.StartedAt,
		completedAt: o.CompletedAt,
		locations:   o.LocationsCompleted,
		people:      o.PeopleCompleted,
		version:     o.Version,
	}
	if step, ok := o.CurrentStep(); ok {
		c.step = &step
	}
	return c
}

func (c onboardingColumns) toOnboarding() (domain.Onboarding, error) {
	// A row that fails validation is corrupt data, not a caller error: report
	// it with %v so it never unwraps to domain.ErrValidation.
	phase, err := domain.ParsePhase(c.phase)
	if err != nil {
		return domain.Onboarding{}, fmt.Errorf("corrupt onboarding row: %v", err)
	}
	o := domain.Onboarding{
		Phase:              phase,
		StartedAt:          c.startedAt,
		CompletedAt:        c.completedAt,
		LocationsCompleted: c.locations,
		PeopleCompleted:    c.people,
		Version:            c.version,
	}
	if c.step != nil {
		o.Step = *c.step
	}
	if err := o.Validate(); err != nil {
		return domain.Onboarding{}, fmt.Errorf("corrupt onboarding row: %v", err)
	}
	return o, nil
}
