package service

import (
	"context"
	"fmt"

	"github.com/pkordes/placekeeper/internal/domain"
	"github.com/pkordes/placekeeper/internal/repo"
)

// ReportService serves the admin views over every user's onboarding progress.
type ReportService struct {
	users repo.UserRepo
}

// NewReportService constructs a ReportService backed by the provided UserRepo.
func NewReportService(users repo.UserRepo) *ReportService {
	return &ReportService{users: users}
}

// List returns one page of users and the total user count.
func (s *ReportService) List(ctx context.Context, params domain.PaginationParams) ([]domain.User, int64, error) {
	users, total, err := s.users.ListPaged(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("service.ReportService.List: %w", err)
	}
	return users, total, nil
}

// Export returns one ExportRow per user, walking every page of the user table.
func (s *ReportService) Export(ctx context.Context) ([]domain.ExportRow, error) {
	limit := domain.MaxPageLimit
	params := domain.NewPaginationParams(nil, &limit)

	rows := []domain.ExportRow{}
	for {
		users, total, err := s.users.ListPaged(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("service.ReportService.Export: page %d: %w", params.Page, err)
		}
		for _, u := range users {
			rows = append(rows, domain.NewExportRow(u))
		}
		if len(users) == 0 || !params.HasMore(total) {
			return rows, nil
		}
		params = params.Next()
	}
}
