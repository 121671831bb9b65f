package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepdeck/prepdeck-backend/internal/model"
)

// TestRepository handles practice test data access.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

const testColumns = `id, title, topic_id, author_id, duration_minutes,
	(SELECT COUNT(*) FROM test_questions tq WHERE tq.test_id = tests.id),
	premium, status, created_at, updated_at`

func scanTest(row pgx.Row) (*model.Test, error) {
	t := &model.Test{}
	err := row.Scan(&t.ID, &t.Title, &t.TopicID, &t.AuthorID, &t.DurationMinutes,
		&t.QuestionCount, &t.Premium, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetByID retrieves a test by UUID.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	return scanTest(r.pool.QueryRow(ctx,
		`SELECT `+testColumns+` FROM tests WHERE id = $1`, id))
}

// ListPublished retrieves tests visible to students, newest first.
func (r *TestRepository) ListPublished(ctx context.Context) ([]model.Test, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+testColumns+` FROM tests
		 WHERE status = $1
		 ORDER BY created_at DESC`, model.TestStatusPublished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTests(rows)
}

// ListPaginated retrieves all tests for the admin console.
func (r *TestRepository) ListPaginated(ctx context.Context, limit, offset int) ([]model.Test, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tests`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+testColumns+` FROM tests
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tests, err := collectTests(rows)
	if err != nil {
		return nil, 0, err
	}
	return tests, total, nil
}

// Create inserts a new test as DRAFT.
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO tests (title, topic_id, author_id, duration_minutes, premium, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		t.Title, t.TopicID, t.AuthorID, t.DurationMinutes, t.Premium, model.TestStatusDraft,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// Update modifies a test's editable fields.
func (r *TestRepository) Update(ctx context.Context, t *model.Test) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tests
		 SET title = $1, duration_minutes = $2, premium = $3, updated_at = NOW()
		 WHERE id = $4`,
		t.Title, t.DurationMinutes, t.Premium, t.ID)
	return err
}

// UpdateStatus transitions a test's lifecycle status.
func (r *TestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.TestStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tests SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	return err
}

// ReplaceQuestions swaps a test's ordered question list in one transaction.
func (r *TestRepository) ReplaceQuestions(ctx context.Context, testID uuid.UUID, questionIDs []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM test_questions WHERE test_id = $1`, testID); err != nil {
		return err
	}

	for i, qid := range questionIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO test_questions (test_id, question_id, order_num)
			 VALUES ($1, $2, $3)`,
			testID, qid, i); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Delete removes a test and its question links.
func (r *TestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tests WHERE id = $1`, id)
	return err
}

// Count returns the total number of tests.
func (r *TestRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tests`).Scan(&n)
	return n, err
}

func collectTests(rows pgx.Rows) ([]model.Test, error) {
	var tests []model.Test
	for rows.Next() {
		var t model.Test
		if err := rows.Scan(&t.ID, &t.Title, &t.TopicID, &t.AuthorID, &t.DurationMinutes,
			&t.QuestionCount, &t.Premium, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}
