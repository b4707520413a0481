package domain_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/placekeeper/internal/domain"
)

var (
	t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	t1 = t0.Add(10 * time.Minute)
)

func ptr[T any](v T) *T { return &v }

func inProgress(step int) domain.Onboarding {
	return domain.Onboarding{Phase: domain.PhaseInProgress, Step: step, StartedAt: ptr(t0)}
}

func completed() domain.Onboarding {
	return domain.Onboarding{
		Phase:       domain.PhaseCompleted,
		Step:        domain.TotalSteps,
		StartedAt:   ptr(t0),
		CompletedAt: ptr(t0),
	}
}

func skipped() domain.Onboarding {
	return domain.Onboarding{Phase: domain.PhaseSkipped, StartedAt: ptr(t0)}
}

// allStates is every shape of state a transition may start from.
func allStates() map[string]domain.Onboarding {
	return map[string]domain.Onboarding{
		"not_started": domain.NewOnboarding(),
		"in_progress": inProgress(3),
		"final_step":  inProgress(domain.TotalSteps - 1),
		"completed":   completed(),
		"skipped":     skipped(),
		"with_flags": func() domain.Onboarding {
			o := inProgress(5)
			o.LocationsCompleted = true
			o.PeopleCompleted = true
			return o
		}(),
	}
}

func apply(t *testing.T, o domain.Onboarding, e domain.Event, now time.Time) domain.Onboarding {
	t.Helper()
	got, err := o.Apply(e, now)
	require.NoError(t, err)
	require.NoError(t, got.Validate(), "transition produced an invalid state")
	return got
}

func TestApply_Start_RewindsFromAnyPhase(t *testing.T) {
	for name, from := range allStates() {
		t.Run(name, func(t *testing.T) {
			got := apply(t, from, domain.StartEvent(), t1)

			want := domain.Onboarding{
				Phase:              domain.PhaseInProgress,
				Step:               0,
				StartedAt:          ptr(t1),
				LocationsCompleted: from.LocationsCompleted,
				PeopleCompleted:    from.PeopleCompleted,
				Version:            from.Version,
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Start mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApply_Start_Idempotent(t *testing.T) {
	later := t1.Add(time.Minute)

	once := apply(t, domain.NewOnboarding(), domain.StartEvent(), later)
	twice := apply(t, apply(t, domain.NewOnboarding(), domain.StartEvent(), t1), domain.StartEvent(), later)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("Start twice differs from Start once (-once +twice):\n%s", diff)
	}
	assert.Equal(t, later, *twice.StartedAt, "startedAt should be the latest call time")
	assert.False(t, twice.Skipped())
}

func TestApply_Complete_ForcesCompletionFromAnyPhase(t *testing.T) {
	for name, from := range allStates() {
		t.Run(name, func(t *testing.T) {
			got := apply(t, from, domain.CompleteEvent(), t1)

			step, ok := got.CurrentStep()
			require.True(t, ok)
			assert.Equal(t, domain.TotalSteps, step)
			assert.True(t, got.Completed())
			assert.False(t, got.Skipped(), "completed and skipped are exclusive")
			require.NotNil(t, got.CompletedAt)
			assert.Equal(t, t1, *got.CompletedAt)
			assert.Equal(t, from.StartedAt, got.StartedAt, "startedAt is preserved")
		})
	}
}

func TestApply_Complete_FromStepThree(t *testing.T) {
	got := apply(t, inProgress(3), domain.CompleteEvent(), t1)

	want := domain.Onboarding{
		Phase:       domain.PhaseCompleted,
		Step:        9,
		StartedAt:   ptr(t0),
		CompletedAt: ptr(t1),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Complete mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_Skip_AlwaysClearsStep(t *testing.T) {
	for name, from := range allStates() {
		t.Run(name, func(t *testing.T) {
			got := apply(t, from, domain.SkipEvent(), t1)

			_, ok := got.CurrentStep()
			assert.False(t, ok, "skip must clear the step")
			assert.True(t, got.Skipped())
			assert.False(t, got.Completed())
			assert.Nil(t, got.CompletedAt)
		})
	}
}

func TestApply_Reset_ReturnsToNotStarted(t *testing.T) {
	for name, from := range allStates() {
		t.Run(name, func(t *testing.T) {
			got := apply(t, from, domain.ResetEvent(), t1)

			want := domain.NewOnboarding()
			want.LocationsCompleted = from.LocationsCompleted
			want.PeopleCompleted = from.PeopleCompleted
			want.Version = from.Version
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Reset mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApply_Step(t *testing.T) {
	t.Run("from not started sets start time", func(t *testing.T) {
		got := apply(t, domain.NewOnboarding(), domain.StepEvent(4), t1)
		assert.Equal(t, domain.PhaseInProgress, got.Phase)
		assert.Equal(t, 4, got.Step)
		assert.Equal(t, t1, *got.StartedAt)
	})

	t.Run("keeps existing start time and allows going backwards", func(t *testing.T) {
		got := apply(t, inProgress(6), domain.StepEvent(2), t1)
		assert.Equal(t, 2, got.Step)
		assert.Equal(t, t0, *got.StartedAt)
	})

	t.Run("reopens a completed tour", func(t *testing.T) {
		got := apply(t, completed(), domain.StepEvent(8), t1)
		assert.Equal(t, domain.PhaseInProgress, got.Phase)
		assert.Nil(t, got.CompletedAt)
	})

	for _, bad := range []int{-1, domain.TotalSteps, 42} {
		_, err := inProgress(1).Apply(domain.StepEvent(bad), t1)
		assert.ErrorIs(t, err, domain.ErrValidation, "step %d", bad)
	}
}

func TestApply_SubTours_AreIndependent(t *testing.T) {
	for name, from := range allStates() {
		t.Run(name, func(t *testing.T) {
			got := apply(t, from, domain.SubTourCompleteEvent(domain.SubTourLocations), t1)

			assert.True(t, got.LocationsCompleted)
			assert.Equal(t, from.PeopleCompleted, got.PeopleCompleted)

			// Everything outside the flag is untouched.
			got.LocationsCompleted = from.LocationsCompleted
			if diff := cmp.Diff(from, got); diff != "" {
				t.Errorf("locations flag leaked into other fields (-want +got):\n%s", diff)
			}

			reset := apply(t, got, domain.SubTourResetEvent(domain.SubTourPeople), t1)
			assert.False(t, reset.PeopleCompleted)
			assert.Equal(t, got.LocationsCompleted, reset.LocationsCompleted)
		})
	}
}

func TestApply_UnknownInputs(t *testing.T) {
	o := domain.NewOnboarding()

	_, err := o.Apply(domain.SubTourCompleteEvent("places"), t1)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = o.Apply(domain.Event{Kind: "teleport"}, t1)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestApply_DoesNotMutateReceiver(t *testing.T) {
	from := inProgress(3)
	before := from

	_ = apply(t, from, domain.ResetEvent(), t1)

	if diff := cmp.Diff(before, from); diff != "" {
		t.Errorf("receiver mutated (-before +after):\n%s", diff)
	}
}

func TestOnboarding_Validate_RejectsImpossibleStates(t *testing.T) {
	cases := map[string]domain.Onboarding{
		"unknown phase":             {Phase: "paused"},
		"not started with progress": {Phase: domain.PhaseNotStarted, StartedAt: ptr(t0)},
		"in progress step too high": {Phase: domain.PhaseInProgress, Step: domain.TotalSteps, StartedAt: ptr(t0)},
		"in progress never started": {Phase: domain.PhaseInProgress, Step: 1},
		"completed without time":    {Phase: domain.PhaseCompleted, Step: domain.TotalSteps},
		"completed at wrong step":   {Phase: domain.PhaseCompleted, Step: 4, CompletedAt: ptr(t0)},
		"skipped with a step":       {Phase: domain.PhaseSkipped, Step: 2},
	}
	for name, o := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, o.Validate(), domain.ErrValidation)
		})
	}
}

func TestOnboarding_AtFinalStep(t *testing.T) {
	assert.True(t, inProgress(domain.TotalSteps-1).AtFinalStep())
	assert.True(t, completed().AtFinalStep())
	assert.False(t, inProgress(3).AtFinalStep())
	assert.False(t, skipped().AtFinalStep())
	assert.False(t, domain.NewOnboarding().AtFinalStep())
}

func TestParseSubTour(t *testing.T) {
	got, err := domain.ParseSubTour("people")
	require.NoError(t, err)
	assert.Equal(t, domain.SubTourPeople, got)

	_, err = domain.ParseSubTour("Locations")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
