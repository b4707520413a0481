// Package service contains the business logic for the Placekeeper onboarding
// service. Services enforce business rules and orchestrate repo calls.
// No SQL lives here; services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pkordes/placekeeper/internal/domain"
	"github.com/pkordes/placekeeper/internal/repo"
)

const tracerName = "github.com/pkordes/placekeeper/internal/service"

// OnboardingService drives a user's onboarding state through its transitions.
// Each mutating call reads the user, applies one event and issues exactly one
// versioned write.
type OnboardingService struct {
	users            repo.UserRepo
	now              func() time.Time
	requireFinalStep bool
	tracer           trace.Tracer
}

// Option configures an OnboardingService.
type Option func(*OnboardingService)

// WithClock overrides the time source used to stamp transitions.
func WithClock(now func() time.Time) Option {
	return func(s *OnboardingService) { s.now = now }
}

// WithRequireFinalStep makes Complete fail with domain.ErrValidation unless the
// tour is on its last step or already completed.
func WithRequireFinalStep(require bool) Option {
	return func(s *OnboardingService) { s.requireFinalStep = require }
}

// NewOnboardingService constructs an OnboardingService backed by the provided UserRepo.
func NewOnboardingService(users repo.UserRepo, opts ...Option) *OnboardingService {
	s := &OnboardingService{
		users:  users,
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the user's current onboarding state without writing.
func (s *OnboardingService) Get(ctx context.Context, userID uuid.UUID) (domain.Onboarding, error) {
	ctx, span := s.tracer.Start(ctx, "OnboardingService.Get",
		trace.WithAttributes(attribute.String("user.id", userID.String())))
	defer span.End()

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		recordError(span, err)
		return domain.Onboarding{}, fmt.Errorf("service.OnboardingService.Get: %w", err)
	}
	return u.Onboarding, nil
}

// Start begins the tour at step 0. Calling it again rewinds the tour.
func (s *OnboardingService) Start(ctx context.Context, userID uuid.UUID) (domain.Onboarding, error) {
	o, err := s.apply(ctx, userID, domain.StartEvent())
	if err != nil {
		return domain.Onboarding{}, fmt.Errorf("service.OnboardingService.Start: %w", err)
	}
	return o, nil
}

// Step records the step the user is currently on.
// Steps outside [0, domain.TotalSteps) are rejected with domain.ErrValidation.
func (s *OnboardingService) Step(ctx context.Context, userID uuid.UUID, step int) (domain.Onboarding, error) {
	o, err := s.apply(ctx, userID, domain.StepEvent(step))
	if err != nil {
		return domain.Onboarding{}, fmt.Errorf("service.OnboardingService.Step: %w", err)
	}
	return o, nil
}

// Complete marks the tour finished. Unless the service was built with
// WithRequireFinalStep, completion is forced from any phase.
func (s *OnboardingService) Complete(ctx context.Context, userID uuid.UUID) (domain.Onboarding, error) {
	o, err := s.apply(ctx, userID, domain.CompleteEvent())
	if err != nil {
		return domain.Onboarding{}, fmt.Errorf("service.OnboardingService.Complete: %w", err)
	}
	return o, nil
}

// Skip records that the user opted out of the tour.
func (s *OnboardingService) Skip(ctx context.Context, userID uuid.UUID) (domain.Onboarding, error) {
	o, err := s.apply(ctx, userID, domain.SkipEvent())
	if err != nil {
		return domain.Onboarding{}, fmt.Errorf("service.OnboardingService.Skip: %w", err)
	}
	return o, nil
}

// Reset returns the main tour to not_started. Sub-tour flags are kept.
func (s *OnboardingService) Reset(ctx context.Context, userID uuid.UUID) (domain.Onboarding, error) {
	o, err := s.apply(ctx, userID, domain.ResetEvent())
	if err != nil {
		return domain.Onboarding{}, fmt.Errorf("service.OnboardingService.Reset: %w", err)
	}
	return o, nil
}

// CompleteSubTour sets the flag for one sub-tour.
func (s *OnboardingService) CompleteSubTour(ctx context.Context, userID uuid.UUID, tour domain.SubTour) (domain.Onboarding, error) {
	o, err := s.apply(ctx, userID, domain.SubTourCompleteEvent(tour))
	if err != nil {
		return domain.Onboarding{}, fmt.Errorf("service.OnboardingService.CompleteSubTour: %w", err)
	}
	return o, nil
}

// ResetSubTour clears the flag for one sub-tour.
func (s *OnboardingService) ResetSubTour(ctx context.Context, userID uuid.UUID, tour domain.SubTour) (domain.Onboarding, error) {
	o, err := s.apply(ctx, userID, domain.SubTourResetEvent(tour))
	if err != nil {
		return domain.Onboarding{}, fmt.Errorf("service.OnboardingService.ResetSubTour: %w", err)
	}
	return o, nil
}

// apply is the read, transition, write cycle shared by every mutating call.
// A transition error returns before the write, so rejected events never
// reach the store.
func (s *OnboardingService) apply(ctx context.Context, userID uuid.UUID, e domain.Event) (domain.Onboarding, error) {
	ctx, span := s.tracer.Start(ctx, "OnboardingService."+string(e.Kind),
		trace.WithAttributes(
			attribute.String("user.id", userID.String()),
			attribute.String("onboarding.event", string(e.Kind)),
		))
	defer span.End()

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		recordError(span, err)
		return domain.Onboarding{}, err
	}

	if e.Kind == domain.EventComplete && s.requireFinalStep && !u.Onboarding.AtFinalStep() {
		err := fmt.Errorf("%w: onboarding is not on its final step", domain.ErrValidation)
		recordError(span, err)
		return domain.Onboarding{}, err
	}

	next, err := u.Onboarding.Apply(e, s.now().UTC())
	if err != nil {
		recordError(span, err)
		return domain.Onboarding{}, err
	}

	saved, err := s.users.UpdateOnboarding(ctx, userID, next)
	if err != nil {
		recordError(span, err)
		return domain.Onboarding{}, err
	}
	span.SetAttributes(
		attribute.String("onboarding.phase", string(saved.Phase)),
		attribute.Int64("onboarding.version", saved.Version),
	)
	return saved, nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
