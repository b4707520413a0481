package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/placekeeper/internal/domain"
)

type userOnboarding struct {
	ID         uuid.UUID      `json:"id"`
	Email      string         `json:"email"`
	Role       domain.Role    `json:"role"`
	CreatedAt  time.Time      `json:"created_at"`
	Onboarding onboardingView `json:"onboarding"`
}

type pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

type listOnboardingResponse struct {
	Data       []userOnboarding `json:"data"`
	Pagination pagination       `json:"pagination"`
}

// ListOnboarding handles GET /api/v1/admin/onboarding.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) ListOnboarding(w http.ResponseWriter, r *http.Request, query ListOnboardingParams) {
	if query.Page != nil && *query.Page > domain.MaxPage {
		writeFailure(w, http.StatusUnprocessableEntity, fmt.Sprintf("page must be at most %d", domain.MaxPage))
		return
	}
	params := domain.NewPaginationParams(query.Page, query.Limit)

	users, total, err := s.reports.List(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	data := make([]userOnboarding, len(users))
	for i, u := range users {
		data[i] = userOnboarding{
			ID:         u.ID,
			Email:      u.Email,
			Role:       u.Role,
			CreatedAt:  u.CreatedAt,
			Onboarding: toOnboardingView(u.Onboarding),
		}
	}
	writeJSON(w, http.StatusOK, listOnboardingResponse{
		Data:       data,
		Pagination: pagination{Page: params.Page, Limit: params.Limit, Total: total},
	})
}
