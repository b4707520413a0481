package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExportRow is one user's onboarding progress in the admin report.
// It is a flat view: the tagged state is spread into nullable columns so the
// rows can be written as CSV without further interpretation.
type ExportRow struct {
	UserID      uuid.UUID
	Email       string
	Phase       Phase
	Step        *int // nil when the phase has no step
	StartedAt   *time.Time
	CompletedAt *time.Time

	LocationsCompleted bool
	PeopleCompleted    bool
}

// NewExportRow flattens a user into an ExportRow.
func NewExportRow(u User) ExportRow {
	row := ExportRow{
		UserID:             u.ID,
		Email:              u.Email,
		Phase:              u.Onboarding.Phase,
		StartedAt:          u.Onboarding.StartedAt,
		CompletedAt:        u.Onboarding.CompletedAt,
		LocationsCompleted: u.Onboarding.LocationsCompleted,
		PeopleCompleted:    u.Onboarding.PeopleCompleted,
	}
	if step, ok := u.Onboarding.CurrentStep(); ok {
		row.Step = &step
	}
	return row
}
