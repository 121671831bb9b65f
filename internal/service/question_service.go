package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/prepdeck/prepdeck-backend/internal/model"
	"github.com/prepdeck/prepdeck-backend/internal/repository"
	"github.com/prepdeck/prepdeck-backend/internal/response"
)

// ErrBadCorrectOption is returned when correct_option does not index an
// option of the question.
var ErrBadCorrectOption = errors.New("correct_option out of range for options")

// QuestionService handles question bank business logic.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questionRepo *repository.QuestionRepository) *QuestionService {
	return &QuestionService{questionRepo: questionRepo}
}

// GetByID returns one question.
func (s *QuestionService) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	return s.questionRepo.GetByID(ctx, id)
}

// ListByTopic returns a page of a topic's questions.
func (s *QuestionService) ListByTopic(ctx context.Context, topicID, page, perPage int) ([]model.Question, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	questions, total, err := s.questionRepo.ListByTopic(ctx, topicID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if questions == nil {
		questions = []model.Question{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return questions, pagination, nil
}

// Create adds a question to a topic bank.
func (s *QuestionService) Create(ctx context.Context, req *model.CreateQuestionRequest) (*model.Question, error) {
	if !req.Validate() {
		return nil, ErrBadCorrectOption
	}

	q := &model.Question{
		TopicID:       req.TopicID,
		Text:          req.Text,
		Options:       req.Options,
		CorrectOption: req.CorrectOption,
		Explanation:   req.Explanation,
		ImagePath:     req.ImagePath,
	}
	if err := s.questionRepo.Create(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Update modifies an existing question.
func (s *QuestionService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateQuestionRequest) (*model.Question, error) {
	if !req.Validate() {
		return nil, ErrBadCorrectOption
	}

	q, err := s.questionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	q.Text = req.Text
	q.Options = req.Options
	q.CorrectOption = req.CorrectOption
	q.Explanation = req.Explanation
	q.ImagePath = req.ImagePath

	if err := s.questionRepo.Update(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Delete removes a question.
func (s *QuestionService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.questionRepo.Delete(ctx, id)
}
