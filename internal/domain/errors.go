package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. a step outside the tour, an unknown sub-tour).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrUnauthenticated is returned when a request carries no valid session.
// Handlers and the auth middleware map this to HTTP 401.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrForbidden is returned when an authenticated caller lacks the role an
// operation requires. Handlers map this to HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned by repo writes when the stored onboarding version
// no longer matches the version the caller read. Handlers map this to HTTP 409.
var ErrConflict = errors.New("version conflict")
