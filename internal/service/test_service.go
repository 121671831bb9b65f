package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/prepdeck/prepdeck-backend/internal/config"
	"github.com/prepdeck/prepdeck-backend/internal/model"
	"github.com/prepdeck/prepdeck-backend/internal/repository"
	"github.com/prepdeck/prepdeck-backend/internal/response"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain errors.
var (
	ErrNoQuestions      = errors.New("test has no questions, cannot publish")
	ErrTestNotDraft     = errors.New("test status is not DRAFT")
	ErrTestNotPublished = errors.New("test status is not PUBLISHED")
)

// TestService handles practice test business logic and Redis caching. The
// student-facing payload (questions without correct answers) and the answer
// key live in Redis while a test is published so attempt traffic never
// touches PostgreSQL.
type TestService struct {
	testRepo     *repository.TestRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewTestService creates a new TestService.
func NewTestService(
	testRepo *repository.TestRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *TestService {
	return &TestService{
		testRepo:     testRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "test_service").Logger(),
	}
}

// GetByID retrieves a test by its UUID.
func (s *TestService) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	return s.testRepo.GetByID(ctx, id)
}

// ListPublished returns tests visible to students.
func (s *TestService) ListPublished(ctx context.Context) ([]model.Test, error) {
	tests, err := s.testRepo.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	if tests == nil {
		tests = []model.Test{}
	}
	return tests, nil
}

// List returns a page of all tests for the admin console.
func (s *TestService) List(ctx context.Context, page, perPage int) ([]model.Test, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	tests, total, err := s.testRepo.ListPaginated(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if tests == nil {
		tests = []model.Test{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return tests, pagination, nil
}

// Create inserts a new test as DRAFT.
func (s *TestService) Create(ctx context.Context, authorID int, req *model.CreateTestRequest) (*model.Test, error) {
	t := &model.Test{
		Title:           req.Title,
		TopicID:         req.TopicID,
		AuthorID:        authorID,
		DurationMinutes: req.DurationMinutes,
		Premium:         req.Premium,
	}
	if err := s.testRepo.Create(ctx, t); err != nil {
		return nil, err
	}
	t.Status = model.TestStatusDraft
	return t, nil
}

// Update modifies a test's editable fields.
func (s *TestService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateTestRequest) (*model.Test, error) {
	t, err := s.testRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		t.Title = req.Title
	}
	if req.DurationMinutes > 0 {
		t.DurationMinutes = req.DurationMinutes
	}
	if req.Premium != nil {
		t.Premium = *req.Premium
	}

	if err := s.testRepo.Update(ctx, t); err != nil {
		return nil, err
	}

	// A published test's cached paper must track edits.
	if t.Status == model.TestStatusPublished {
		if err := s.WarmTestCache(ctx, t); err != nil {
			s.log.Warn().Err(err).Str("test_id", t.ID.String()).Msg("cache refresh after update failed")
		}
	}

	return t, nil
}

// SetQuestions replaces a draft test's ordered question list.
func (s *TestService) SetQuestions(ctx context.Context, id uuid.UUID, questionIDs []uuid.UUID) error {
	t, err := s.testRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if t.Status != model.TestStatusDraft {
		return ErrTestNotDraft
	}
	return s.testRepo.ReplaceQuestions(ctx, id, questionIDs)
}

// Publish transitions a DRAFT test to PUBLISHED and warms its Redis caches.
// A test without questions cannot be published: the paper would be empty and
// every attempt against it would be refused anyway.
func (s *TestService) Publish(ctx context.Context, id uuid.UUID) error {
	t, err := s.testRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get test: %w", err)
	}
	if t.Status != model.TestStatusDraft {
		return ErrTestNotDraft
	}
	if t.QuestionCount == 0 {
		return ErrNoQuestions
	}

	if err := s.WarmTestCache(ctx, t); err != nil {
		return err
	}

	if err := s.testRepo.UpdateStatus(ctx, id, model.TestStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("test_id", id.String()).Str("title", t.Title).Msg("Test published")
	return nil
}

// Archive retires a published test and drops its caches.
func (s *TestService) Archive(ctx context.Context, id uuid.UUID) error {
	t, err := s.testRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if t.Status != model.TestStatusPublished {
		return ErrTestNotPublished
	}

	if err := s.testRepo.UpdateStatus(ctx, id, model.TestStatusArchived); err != nil {
		return err
	}

	tid := id.String()
	s.rdb.Del(ctx,
		config.CacheKey.TestPayloadKey(tid),
		config.CacheKey.TestDurationKey(tid),
		config.CacheKey.TestAnswerKey(tid),
	)
	return nil
}

// Delete removes a draft test.
func (s *TestService) Delete(ctx context.Context, id uuid.UUID) error {
	t, err := s.testRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if t.Status != model.TestStatusDraft {
		return ErrTestNotDraft
	}
	return s.testRepo.Delete(ctx, id)
}

// WarmTestCache loads a test's payload, duration, and answer key into Redis.
func (s *TestService) WarmTestCache(ctx context.Context, t *model.Test) error {
	questions, err := s.questionRepo.ListByTest(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	payload := model.TestPayload{
		TestID:    t.ID,
		Title:     t.Title,
		Duration:  t.DurationMinutes,
		Questions: make([]model.QuestionForStudent, 0, len(questions)),
	}
	answerKey := make(map[string]string, len(questions))

	for i, q := range questions {
		payload.Questions = append(payload.Questions, model.QuestionForStudent{
			ID:        q.ID,
			Text:      q.Text,
			Options:   q.Options,
			ImagePath: q.ImagePath,
			OrderNum:  i,
		})
		answerKey[q.ID.String()] = strconv.Itoa(q.CorrectOption)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	tid := t.ID.String()
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.TestPayloadKey(tid), raw, 0)
	pipe.Set(ctx, config.CacheKey.TestDurationKey(tid), t.DurationMinutes, 0)
	if len(answerKey) > 0 {
		pipe.Del(ctx, config.CacheKey.TestAnswerKey(tid))
		pipe.HSet(ctx, config.CacheKey.TestAnswerKey(tid), answerKey)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("warm cache: %w", err)
	}

	return nil
}

// PrewarmAllCaches loads every published test into Redis. Called once at
// startup before traffic is accepted, so a restart cannot race live
// attempts against cold caches.
func (s *TestService) PrewarmAllCaches(ctx context.Context) error {
	tests, err := s.testRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published: %w", err)
	}

	for i := range tests {
		if err := s.WarmTestCache(ctx, &tests[i]); err != nil {
			s.log.Warn().Err(err).Str("test_id", tests[i].ID.String()).Msg("prewarm failed")
			continue
		}
	}

	s.log.Info().Int("count", len(tests)).Msg("Test caches prewarmed")
	return nil
}

// GetPayload returns the cached student-facing paper for a published test.
func (s *TestService) GetPayload(ctx context.Context, id uuid.UUID) (*model.TestPayload, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.TestPayloadKey(id.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("payload not cached: %w", err)
	}

	var payload model.TestPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &payload, nil
}

// GetAnswerKey returns the cached question-id to correct-option mapping.
func (s *TestService) GetAnswerKey(ctx context.Context, id uuid.UUID) (map[string]int, error) {
	raw, err := s.rdb.HGetAll(ctx, config.CacheKey.TestAnswerKey(id.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("answer key not cached: %w", err)
	}

	key := make(map[string]int, len(raw))
	for qid, v := range raw {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid answer key entry %s: %w", qid, err)
		}
		key[qid] = n
	}
	return key, nil
}
