package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepdeck/prepdeck-backend/internal/model"
)

// QuestionRepository handles question bank data access. Options are stored
// as a JSONB array to keep their order.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// GetByID retrieves a question by UUID.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	var options []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, topic_id, text, options, correct_option, explanation, COALESCE(image_path, ''), created_at, updated_at
		 FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.TopicID, &q.Text, &options, &q.CorrectOption, &q.Explanation, &q.ImagePath, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(options, &q.Options); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	return q, nil
}

// ListByTopic retrieves questions in a topic bank with pagination.
func (r *QuestionRepository) ListByTopic(ctx context.Context, topicID, limit, offset int) ([]model.Question, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions WHERE topic_id = $1`, topicID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, topic_id, text, options, correct_option, explanation, COALESCE(image_path, ''), created_at, updated_at
		 FROM questions
		 WHERE topic_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, topicID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	questions, err := scanQuestions(rows)
	if err != nil {
		return nil, 0, err
	}
	return questions, total, nil
}

// ListByTest retrieves a test's questions in palette order.
func (r *QuestionRepository) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.topic_id, q.text, q.options, q.correct_option, q.explanation, COALESCE(q.image_path, ''), q.created_at, q.updated_at
		 FROM questions q
		 JOIN test_questions tq ON tq.question_id = q.id
		 WHERE tq.test_id = $1
		 ORDER BY tq.order_num ASC`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanQuestions(rows)
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (topic_id, text, options, correct_option, explanation, image_path)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		 RETURNING id, created_at, updated_at`,
		q.TopicID, q.Text, options, q.CorrectOption, q.Explanation, q.ImagePath,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

// CreateBatch inserts many questions in one round trip. Used by CSV import
// and AI generation. All rows share the same topic.
func (r *QuestionRepository) CreateBatch(ctx context.Context, questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range questions {
		q := &questions[i]
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("encode options: %w", err)
		}
		batch.Queue(
			`INSERT INTO questions (topic_id, text, options, correct_option, explanation, image_path)
			 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))`,
			q.TopicID, q.Text, options, q.CorrectOption, q.Explanation, q.ImagePath)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range questions {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// Update modifies an existing question.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE questions
		 SET text = $1, options = $2, correct_option = $3, explanation = $4, image_path = NULLIF($5, ''), updated_at = NOW()
		 WHERE id = $6`,
		q.Text, options, q.CorrectOption, q.Explanation, q.ImagePath, q.ID)
	return err
}

// Delete removes a question.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	return err
}

// Count returns the total number of questions.
func (r *QuestionRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions`).Scan(&n)
	return n, err
}

func scanQuestions(rows pgx.Rows) ([]model.Question, error) {
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var options []byte
		if err := rows.Scan(&q.ID, &q.TopicID, &q.Text, &options, &q.CorrectOption, &q.Explanation, &q.ImagePath, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("decode options: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
