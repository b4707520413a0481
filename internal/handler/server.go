// Package handler implements the HTTP handlers for the Placekeeper onboarding API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, onboarding.go, report.go) but share the same Server struct
// so they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/placekeeper/internal/domain"
)

// OnboardingServicer defines the onboarding operations the handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database or service layer.
type OnboardingServicer interface {
	Get(ctx context.Context, userID uuid.UUID) (domain.Onboarding, error)
	Start(ctx context.Context, userID uuid.UUID) (domain.Onboarding, error)
	Step(ctx context.Context, userID uuid.UUID, step int) (domain.Onboarding, error)
	Complete(ctx context.Context, userID uuid.UUID) (domain.Onboarding, error)
	Skip(ctx context.Context, userID uuid.UUID) (domain.Onboarding, error)
	Reset(ctx context.Context, userID uuid.UUID) (domain.Onboarding, error)
	CompleteSubTour(ctx context.Context, userID uuid.UUID, tour domain.SubTour) (domain.Onboarding, error)
	ResetSubTour(ctx context.Context, userID uuid.UUID, tour domain.SubTour) (domain.Onboarding, error)
}

// ReportServicer defines the admin reporting operations.
type ReportServicer interface {
	List(ctx context.Context, params domain.PaginationParams) ([]domain.User, int64, error)
	Export(ctx context.Context) ([]domain.ExportRow, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the dependencies shared by every handler.
type Server struct {
	onboarding OnboardingServicer
	reports    ReportServicer
	store      Pinger
	log        *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
// store may be nil, in which case /readyz always reports ready.
func NewServer(onboarding OnboardingServicer, reports ReportServicer, store Pinger, log *slog.Logger) *Server {
	return &Server{onboarding: onboarding, reports: reports, store: store, log: log}
}

var _ ServerInterface = (*Server)(nil)

// Routes returns the API router. requireAuth guards everything under /api/v1;
// the health and OpenAPI routes stay public.
func (s *Server) Routes(requireAuth func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/openapi.yaml", s.GetOpenAPI)

	return HandlerWithOptions(s, ChiServerOptions{
		BaseRouter:       r,
		Authenticated:    requireAuth,
		AdminOnly:        s.requireAdmin,
		ErrorHandlerFunc: s.writeParamError,
	})
}
