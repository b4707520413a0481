package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface has one method per operationId in spec/openapi.yaml.
// Path and query parameters arrive already bound; the body is left to the
// implementation.
type ServerInterface interface {
	// (GET /healthz)
	GetHealth(w http.ResponseWriter, r *http.Request)
	// (GET /readyz)
	GetReady(w http.ResponseWriter, r *http.Request)
	// (GET /api/v1/onboarding)
	GetOnboarding(w http.ResponseWriter, r *http.Request)
	// (POST /api/v1/onboarding/start)
	StartOnboarding(w http.ResponseWriter, r *http.Request)
	// (POST /api/v1/onboarding/step)
	StepOnboarding(w http.ResponseWriter, r *http.Request)
	// (POST /api/v1/onboarding/complete)
	CompleteOnboarding(w http.ResponseWriter, r *http.Request)
	// (POST /api/v1/onboarding/skip)
	SkipOnboarding(w http.ResponseWriter, r *http.Request)
	// (POST /api/v1/onboarding/reset)
	ResetOnboarding(w http.ResponseWriter, r *http.Request)
	// (POST /api/v1/onboarding/{tour}/complete)
	CompleteSubTour(w http.ResponseWriter, r *http.Request, tour string)
	// (POST /api/v1/onboarding/{tour}/reset)
	ResetSubTour(w http.ResponseWriter, r *http.Request, tour string)
	// (GET /api/v1/admin/onboarding)
	ListOnboarding(w http.ResponseWriter, r *http.Request, params ListOnboardingParams)
	// (GET /api/v1/admin/onboarding/export)
	ExportOnboarding(w http.ResponseWriter, r *http.Request, params ExportOnboardingParams)
}

// ListOnboardingParams defines parameters for ListOnboarding.
type ListOnboardingParams struct {
	Page  *int `form:"page,omitempty" json:"page,omitempty"`
	Limit *int `form:"limit,omitempty" json:"limit,omitempty"`
}

// ExportOnboardingParams defines parameters for ExportOnboarding.
type ExportOnboardingParams struct {
	Format *string `form:"format,omitempty" json:"format,omitempty"`
}

// InvalidParamFormatError is passed to the error handler when a parameter
// cannot be bound to its declared type.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err)
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// MiddlewareFunc wraps one route group.
type MiddlewareFunc func(http.Handler) http.Handler

// ChiServerOptions configures HandlerWithOptions. Authenticated guards every
// /api/v1 route; AdminOnly additionally guards /api/v1/admin.
type ChiServerOptions struct {
	BaseRouter       chi.Router
	Authenticated    MiddlewareFunc
	AdminOnly        MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// ServerInterfaceWrapper binds parameters before delegating to Handler.
type ServerInterfaceWrapper struct {
	Handler          ServerInterface
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *ServerInterfaceWrapper) CompleteSubTour(w http.ResponseWriter, r *http.Request) {
	tour, ok := siw.bindTour(w, r)
	if !ok {
		return
	}
	siw.Handler.CompleteSubTour(w, r, tour)
}

func (siw *ServerInterfaceWrapper) ResetSubTour(w http.ResponseWriter, r *http.Request) {
	tour, ok := siw.bindTour(w, r)
	if !ok {
		return
	}
	siw.Handler.ResetSubTour(w, r, tour)
}

func (siw *ServerInterfaceWrapper) bindTour(w http.ResponseWriter, r *http.Request) (string, bool) {
	var tour string
	err := runtime.BindStyledParameterWithOptions("simple", "tour", chi.URLParam(r, "tour"), &tour,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "tour", Err: err})
		return "", false
	}
	return tour, true
}

func (siw *ServerInterfaceWrapper) ListOnboarding(w http.ResponseWriter, r *http.Request) {
	var params ListOnboardingParams
	if err := runtime.BindQueryParameter("form", true, false, "page", r.URL.Query(), &params.Page); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "page", Err: err})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &params.Limit); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "limit", Err: err})
		return
	}
	siw.Handler.ListOnboarding(w, r, params)
}

func (siw *ServerInterfaceWrapper) ExportOnboarding(w http.ResponseWriter, r *http.Request) {
	var params ExportOnboardingParams
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &params.Format); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "format", Err: err})
		return
	}
	siw.Handler.ExportOnboarding(w, r, params)
}

// HandlerWithOptions registers every operation of si on options.BaseRouter.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	passThrough := func(next http.Handler) http.Handler { return next }
	if options.Authenticated == nil {
		options.Authenticated = passThrough
	}
	if options.AdminOnly == nil {
		options.AdminOnly = passThrough
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{Handler: si, ErrorHandlerFunc: options.ErrorHandlerFunc}

	r.Get("/healthz", si.GetHealth)
	r.Get("/readyz", si.GetReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(options.Authenticated)

		r.Route("/onboarding", func(r chi.Router) {
			r.Get("/", si.GetOnboarding)
			r.Post("/start", si.StartOnboarding)
			r.Post("/step", si.StepOnboarding)
			r.Post("/complete", si.CompleteOnboarding)
			r.Post("/skip", si.SkipOnboarding)
			r.Post("/reset", si.ResetOnboarding)
			r.Post("/{tour}/complete", wrapper.CompleteSubTour)
			r.Post("/{tour}/reset", wrapper.ResetSubTour)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(options.AdminOnly)
			r.Get("/onboarding", wrapper.ListOnboarding)
			r.Get("/onboarding/export", wrapper.ExportOnboarding)
		})
	})

	return r
}
