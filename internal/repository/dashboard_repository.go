package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepdeck/prepdeck-backend/internal/model"
)

// DashboardRepository handles admin dashboard data access.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// GetSummaryCounts retrieves the high-level metrics for the dashboard.
func (r *DashboardRepository) GetSummaryCounts(ctx context.Context) (totalStudents, totalTests, totalQuestions, totalAttempts int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM students),
			(SELECT COUNT(*) FROM tests),
			(SELECT COUNT(*) FROM questions),
			(SELECT COUNT(*) FROM attempts WHERE status = 'COMPLETED')`,
	).Scan(&totalStudents, &totalTests, &totalQuestions, &totalAttempts)
	return
}

// GetTestStatusCounts retrieves the distribution of tests by status.
func (r *DashboardRepository) GetTestStatusCounts(ctx context.Context) (map[model.TestStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM tests GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.TestStatus]int)
	for rows.Next() {
		var status model.TestStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// DashboardTestResult summarizes recent attempt activity per test.
type DashboardTestResult struct {
	ID            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	LastAttemptAt *time.Time `json:"last_attempt_at"`
	AttemptCount  int        `json:"attempt_count"`
	AverageScore  *float64   `json:"average_score"`
}

// GetRecentTestResults retrieves the N tests with the newest completed
// attempts and their aggregate stats.
func (r *DashboardRepository) GetRecentTestResults(ctx context.Context, limit int) ([]DashboardTestResult, error) {
	query := `
		SELECT
			t.id,
			t.title,
			MAX(a.finished_at) AS last_attempt_at,
			COUNT(a.id) AS attempt_count,
			AVG(a.score) AS average_score
		FROM tests t
		JOIN attempts a ON a.test_id = t.id AND a.status = $1
		GROUP BY t.id, t.title
		ORDER BY last_attempt_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, model.AttemptStatusCompleted, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []DashboardTestResult
	for rows.Next() {
		var res DashboardTestResult
		if err := rows.Scan(&res.ID, &res.Title, &res.LastAttemptAt, &res.AttemptCount, &res.AverageScore); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	if results == nil {
		results = []DashboardTestResult{}
	}
	return results, rows.Err()
}

// DashboardTopStudent is one row of the premium leaderboard.
type DashboardTopStudent struct {
	StudentID    int      `json:"student_id"`
	Name         string   `json:"name"`
	Attempts     int      `json:"attempts"`
	AverageScore *float64 `json:"average_score"`
}

// GetTopStudents retrieves the N most active students with their average
// score across completed attempts.
func (r *DashboardRepository) GetTopStudents(ctx context.Context, limit int) ([]DashboardTopStudent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.name, COUNT(a.id), AVG(a.score)
		 FROM students s
		 JOIN attempts a ON a.student_id = s.id AND a.status = $1
		 GROUP BY s.id, s.name
		 ORDER BY COUNT(a.id) DESC
		 LIMIT $2`,
		model.AttemptStatusCompleted, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []DashboardTopStudent
	for rows.Next() {
		var s DashboardTopStudent
		if err := rows.Scan(&s.StudentID, &s.Name, &s.Attempts, &s.AverageScore); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	if students == nil {
		students = []DashboardTopStudent{}
	}
	return students, rows.Err()
}
