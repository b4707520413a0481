package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/placekeeper/internal/auth"
	"github.com/pkordes/placekeeper/internal/domain"
)

// onboardingView is the tagged form of the state. Step is present only for
// in_progress and completed tours.
type onboardingView struct {
	Phase              domain.Phase `json:"phase"`
	Step               *int         `json:"step,omitempty"`
	StartedAt          *time.Time   `json:"started_at,omitempty"`
	CompletedAt        *time.Time   `json:"completed_at,omitempty"`
	LocationsCompleted bool         `json:"locations_completed"`
	PeopleCompleted    bool         `json:"people_completed"`
	Version            int64        `json:"version"`
}

// legacyView is the flat field set older clients read.
type legacyView struct {
	OnboardingStep               *int       `json:"onboardingStep,omitempty"`
	OnboardingStartedAt          *time.Time `json:"onboardingStartedAt,omitempty"`
	OnboardingCompletedAt        *time.Time `json:"onboardingCompletedAt,omitempty"`
	OnboardingCompleted          bool       `json:"onboardingCompleted"`
	OnboardingSkipped            bool       `json:"onboardingSkipped"`
	LocationsOnboardingCompleted bool       `json:"locationsOnboardingCompleted"`
	PeopleOnboardingCompleted    bool       `json:"peopleOnboardingCompleted"`
}

type getOnboardingResponse struct {
	Success    bool           `json:"success"`
	Onboarding onboardingView `json:"onboarding"`
	Legacy     legacyView     `json:"legacy"`
}

type stepRequest struct {
	Step *int `json:"step"`
}

func toOnboardingView(o domain.Onboarding) onboardingView {
	v := onboardingView{
		Phase:              o.Phase,
		StartedAt:          o.StartedAt,
		CompletedAt:        o.CompletedAt,
		LocationsCompleted: o.LocationsCompleted,
		PeopleCompleted:    o.PeopleCompleted,
		Version:            o.Version,
	}
	if step, ok := o.CurrentStep(); ok {
		v.Step = &step
	}
	return v
}

func toLegacyView(o domain.Onboarding) legacyView {
	v := legacyView{
		OnboardingStartedAt:          o.StartedAt,
		OnboardingCompleted:          o.Completed(),
		OnboardingSkipped:            o.Skipped(),
		LocationsOnboardingCompleted: o.LocationsCompleted,
		PeopleOnboardingCompleted:    o.PeopleCompleted,
	}
	if step, ok := o.CurrentStep(); ok {
		v.OnboardingStep = &step
	}
	if o.Completed() {
		v.OnboardingCompletedAt = o.CompletedAt
	}
	return v
}

// GetOnboarding handles GET /api/v1/onboarding.
func (s *Server) GetOnboarding(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	o, err := s.onboarding.Get(r.Context(), id.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, getOnboardingResponse{
		Success:    true,
		Onboarding: toOnboardingView(o),
		Legacy:     toLegacyView(o),
	})
}

// StepOnboarding handles POST /api/v1/onboarding/step with a {"step": n} body.
func (s *Server) StepOnboarding(w http.ResponseWriter, r *http.Request) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	var req stepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeFailure(w, http.StatusRequestEntityTooLarge, "Request body too large")
		case errors.Is(err, io.EOF):
			writeFailure(w, http.StatusUnprocessableEntity, "step is required")
		default:
			writeFailure(w, http.StatusUnprocessableEntity, "request body must be JSON")
		}
		return
	}
	if req.Step == nil {
		writeFailure(w, http.StatusUnprocessableEntity, "step is required")
		return
	}

	if _, err := s.onboarding.Step(r.Context(), id.UserID, *req.Step); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Onboarding step updated"})
}

// StartOnboarding handles POST /api/v1/onboarding/start.
func (s *Server) StartOnboarding(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "Onboarding started", OnboardingServicer.Start)
}

// CompleteOnboarding handles POST /api/v1/onboarding/complete.
func (s *Server) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "Onboarding completed", OnboardingServicer.Complete)
}

// SkipOnboarding handles POST /api/v1/onboarding/skip.
func (s *Server) SkipOnboarding(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "Onboarding skipped", OnboardingServicer.Skip)
}

// ResetOnboarding handles POST /api/v1/onboarding/reset.
func (s *Server) ResetOnboarding(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "Onboarding reset", OnboardingServicer.Reset)
}

// CompleteSubTour handles POST /api/v1/onboarding/{tour}/complete.
func (s *Server) CompleteSubTour(w http.ResponseWriter, r *http.Request, tour string) {
	s.subTour(w, r, tour, OnboardingServicer.CompleteSubTour)
}

// ResetSubTour handles POST /api/v1/onboarding/{tour}/reset.
func (s *Server) ResetSubTour(w http.ResponseWriter, r *http.Request, tour string) {
	s.subTour(w, r, tour, OnboardingServicer.ResetSubTour)
}

// transition runs a body-less main-tour operation and answers with a fixed
// message.
func (s *Server) transition(w http.ResponseWriter, r *http.Request, message string,
	op func(OnboardingServicer, context.Context, uuid.UUID) (domain.Onboarding, error),
) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if _, err := op(s.onboarding, r.Context(), id.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: message})
}

// subTour runs a sub-tour operation. The tour name is validated before
// anything is read.
func (s *Server) subTour(w http.ResponseWriter, r *http.Request, name string,
	op func(OnboardingServicer, context.Context, uuid.UUID, domain.SubTour) (domain.Onboarding, error),
) {
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	tour, err := domain.ParseSubTour(name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := op(s.onboarding, r.Context(), id.UserID, tour); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true})
}

// identity returns the caller placed in the context by the auth middleware.
// A route mounted without that middleware answers 401.
func (s *Server) identity(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized, "Unauthorized")
		return domain.Identity{}, false
	}
	return id, true
}

// requireAdmin rejects callers without the admin role.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.identity(w, r)
		if !ok {
			return
		}
		if !id.IsAdmin() {
			s.writeError(w, r, domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
