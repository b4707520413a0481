package middleware

import (
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pkordes/placekeeper/internal/auth"
	"github.com/pkordes/placekeeper/internal/domain"
)

// Authenticator resolves a request to the identity that made it.
// *auth.JWTProvider is the production implementation.
type Authenticator interface {
	Authenticate(r *http.Request) (domain.Identity, error)
}

// unauthorizedBody is the flat error envelope every rejected request gets.
// The reason is logged, never returned.
var unauthorizedBody = []byte(`{"success":false,"error":"Unauthorized"}` + "\n")

// NewAuthHandler returns a middleware that authenticates every request with
// the given Authenticator and stores the identity in the request context for
// handlers to read via auth.IdentityFrom. Requests that fail authentication
// get a 401 and never reach the next handler.
func NewAuthHandler(a Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := a.Authenticate(r)
			if err != nil {
				log.DebugContext(r.Context(), "authentication failed",
					"path", r.URL.Path,
					"error", err,
					"request_id", chimiddleware.GetReqID(r.Context()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write(unauthorizedBody)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}
