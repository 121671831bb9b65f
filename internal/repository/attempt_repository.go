package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepdeck/prepdeck-backend/internal/model"
)

// AttemptRow combines student data with an attempt for admin result listings.
type AttemptRow struct {
	AttemptID   uuid.UUID           `json:"attempt_id"`
	StudentID   int                 `json:"student_id"`
	StudentName string              `json:"student_name"`
	Email       string              `json:"email"`
	Score       *int                `json:"score"`
	Accuracy    *float64            `json:"accuracy"`
	Status      model.AttemptStatus `json:"status"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  *time.Time          `json:"finished_at"`
}

// AttemptRepository handles attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Create inserts a new in-progress attempt.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO attempts (test_id, student_id, status)
		 VALUES ($1, $2, $3)
		 RETURNING id, started_at`,
		a.TestID, a.StudentID, model.AttemptStatusInProgress,
	).Scan(&a.ID, &a.StartedAt)
}

// GetByID retrieves an attempt by UUID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	var answers []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, test_id, student_id, started_at, finished_at, status, score, total_questions, accuracy, answers
		 FROM attempts WHERE id = $1`, id,
	).Scan(&a.ID, &a.TestID, &a.StudentID, &a.StartedAt, &a.FinishedAt, &a.Status, &a.Score, &a.TotalQs, &a.Accuracy, &answers)
	if err != nil {
		return nil, err
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &a.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
	}
	return a, nil
}

// GetRunning retrieves a student's in-progress attempt for a test, if any.
func (r *AttemptRepository) GetRunning(ctx context.Context, testID uuid.UUID, studentID int) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, test_id, student_id, started_at, finished_at, status, score, total_questions, accuracy
		 FROM attempts
		 WHERE test_id = $1 AND student_id = $2 AND status = $3
		 ORDER BY started_at DESC
		 LIMIT 1`, testID, studentID, model.AttemptStatusInProgress,
	).Scan(&a.ID, &a.TestID, &a.StudentID, &a.StartedAt, &a.FinishedAt, &a.Status, &a.Score, &a.TotalQs, &a.Accuracy)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Complete finalizes an attempt with its scored result.
func (r *AttemptRepository) Complete(ctx context.Context, id uuid.UUID, score, totalQs int, accuracy float64, answers map[string]int, finishedAt time.Time) error {
	raw, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, score = $2, total_questions = $3, accuracy = $4, answers = $5, finished_at = $6
		 WHERE id = $7`,
		model.AttemptStatusCompleted, score, totalQs, accuracy, raw, finishedAt, id)
	return err
}

// Abandon marks an attempt abandoned without a result.
func (r *AttemptRepository) Abandon(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, finished_at = NOW()
		 WHERE id = $2 AND status = $3`,
		model.AttemptStatusAbandoned, id, model.AttemptStatusInProgress)
	return err
}

// ListByStudent retrieves a student's finished attempts, newest first.
func (r *AttemptRepository) ListByStudent(ctx context.Context, studentID int) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, student_id, started_at, finished_at, status, score, total_questions, accuracy
		 FROM attempts
		 WHERE student_id = $1 AND status = $2
		 ORDER BY started_at DESC`, studentID, model.AttemptStatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := rows.Scan(&a.ID, &a.TestID, &a.StudentID, &a.StartedAt, &a.FinishedAt, &a.Status, &a.Score, &a.TotalQs, &a.Accuracy); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// ListByTest retrieves attempt rows for a test with pagination, for the admin
// results screen.
func (r *AttemptRepository) ListByTest(ctx context.Context, testID uuid.UUID, limit, offset int) ([]AttemptRow, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts WHERE test_id = $1`, testID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT a.id, s.id, s.name, s.email, a.score, a.accuracy, a.status, a.started_at, a.finished_at
		 FROM attempts a
		 JOIN students s ON a.student_id = s.id
		 WHERE a.test_id = $1
		 ORDER BY a.started_at DESC
		 LIMIT $2 OFFSET $3`, testID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []AttemptRow
	for rows.Next() {
		var row AttemptRow
		if err := rows.Scan(&row.AttemptID, &row.StudentID, &row.StudentName, &row.Email,
			&row.Score, &row.Accuracy, &row.Status, &row.StartedAt, &row.FinishedAt); err != nil {
			return nil, 0, err
		}
		results = append(results, row)
	}
	return results, total, rows.Err()
}

// Count returns the number of completed attempts.
func (r *AttemptRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts WHERE status = $1`, model.AttemptStatusCompleted).Scan(&n)
	return n, err
}
