package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepdeck/prepdeck-backend/internal/model"
)

// TopicRepository handles topic (question bank) data access.
type TopicRepository struct {
	pool *pgxpool.Pool
}

// NewTopicRepository creates a new TopicRepository.
func NewTopicRepository(pool *pgxpool.Pool) *TopicRepository {
	return &TopicRepository{pool: pool}
}

// List retrieves all topics with their question counts.
func (r *TopicRepository) List(ctx context.Context) ([]model.Topic, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT t.id, t.name, t.description, COUNT(q.id), t.created_at, t.updated_at
		 FROM topics t
		 LEFT JOIN questions q ON q.topic_id = t.id
		 GROUP BY t.id
		 ORDER BY t.name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []model.Topic
	for rows.Next() {
		var t model.Topic
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.QuestionCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// GetByID retrieves a topic by primary key.
func (r *TopicRepository) GetByID(ctx context.Context, id int) (*model.Topic, error) {
	t := &model.Topic{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at, updated_at
		 FROM topics WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create inserts a new topic.
func (r *TopicRepository) Create(ctx context.Context, t *model.Topic) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO topics (name, description)
		 VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		t.Name, t.Description,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// Update modifies an existing topic.
func (r *TopicRepository) Update(ctx context.Context, t *model.Topic) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE topics SET name = $1, description = $2, updated_at = NOW()
		 WHERE id = $3`,
		t.Name, t.Description, t.ID)
	return err
}

// Delete removes a topic. Fails with a foreign key violation if questions
// still reference it; the service maps that to a dependency error.
func (r *TopicRepository) Delete(ctx context.Context, id int) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM topics WHERE id = $1`, id)
	return err
}
