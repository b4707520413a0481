package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pkordes/placekeeper/internal/auth"
	"github.com/pkordes/placekeeper/internal/domain"
)

// messageResponse is the success envelope of every mutating endpoint.
type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// errorResponse is the failure envelope. Error is safe to show to users.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // the status line is already out; nothing useful to do on failure.
	json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Error: message})
}

// writeError maps a service error to its status code. Anything that is not a
// domain sentinel is logged with the request id and reported as a generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeFailure(w, http.StatusUnprocessableEntity, unwrapMessage(err))
	case errors.Is(err, domain.ErrUnauthenticated):
		writeFailure(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeFailure(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeFailure(w, http.StatusNotFound, "User not found")
	case errors.Is(err, domain.ErrConflict):
		writeFailure(w, http.StatusConflict, "Onboarding was changed by another request")
	default:
		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
			"request_id", chimiddleware.GetReqID(r.Context()),
		}
		if id, ok := auth.IdentityFrom(r.Context()); ok {
			attrs = append(attrs, "user_id", id.UserID.String())
		}
		s.log.ErrorContext(r.Context(), "request failed", attrs...)
		writeFailure(w, http.StatusInternalServerError, "Internal server error")
	}
}

// writeParamError answers 422 for a path or query parameter that could not be
// bound to its declared type.
func (s *Server) writeParamError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *InvalidParamFormatError
	if !errors.As(err, &invalid) {
		s.writeError(w, r, err)
		return
	}
	switch invalid.ParamName {
	case "page", "limit":
		writeFailure(w, http.StatusUnprocessableEntity, invalid.ParamName+" must be an integer")
	default:
		writeFailure(w, http.StatusUnprocessableEntity, "invalid "+invalid.ParamName+" parameter")
	}
}

// unwrapMessage extracts the human-readable part from a wrapped validation error.
// e.g. "service.OnboardingService.Step: validation error: step 12 out of range" → "step 12 out of range"
func unwrapMessage(err error) string {
	msg := err.Error()
	const marker = "validation error: "
	if i := strings.LastIndex(msg, marker); i >= 0 && len(msg) > i+len(marker) {
		return msg[i+len(marker):]
	}
	return msg
}
