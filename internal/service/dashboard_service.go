package service

import (
	"context"

	"github.com/prepdeck/prepdeck-backend/internal/model"
	"github.com/prepdeck/prepdeck-backend/internal/repository"
)

// DashboardData consolidates all metrics for the admin dashboard.
type DashboardData struct {
	TotalStudents    int                              `json:"total_students"`
	TotalTests       int                              `json:"total_tests"`
	TotalQuestions   int                              `json:"total_questions"`
	TotalAttempts    int                              `json:"total_attempts"`
	TestStatusCounts map[model.TestStatus]int         `json:"test_status_counts"`
	RecentResults    []repository.DashboardTestResult `json:"recent_results"`
	TopStudents      []repository.DashboardTopStudent `json:"top_students"`
}

// DashboardService handles admin dashboard business logic.
type DashboardService struct {
	repo *repository.DashboardRepository
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(repo *repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// GetDashboardData fetches all dashboard metrics.
func (s *DashboardService) GetDashboardData(ctx context.Context) (*DashboardData, error) {
	students, tests, questions, attempts, err := s.repo.GetSummaryCounts(ctx)
	if err != nil {
		return nil, err
	}

	statusCounts, err := s.repo.GetTestStatusCounts(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := s.repo.GetRecentTestResults(ctx, 5)
	if err != nil {
		return nil, err
	}

	top, err := s.repo.GetTopStudents(ctx, 5)
	if err != nil {
		return nil, err
	}

	return &DashboardData{
		TotalStudents:    students,
		TotalTests:       tests,
		TotalQuestions:   questions,
		TotalAttempts:    attempts,
		TestStatusCounts: statusCounts,
		RecentResults:    recent,
		TopStudents:      top,
	}, nil
}
