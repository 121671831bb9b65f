package service

import (
	"context"
	"errors"
	"strings"

	"github.com/prepdeck/prepdeck-backend/internal/model"
	"github.com/prepdeck/prepdeck-backend/internal/repository"
	"github.com/rs/zerolog"
)

// ErrTopicInUse is returned when a topic still has questions and cannot be
// deleted.
var ErrTopicInUse = errors.New("topic still has questions")

// TopicService handles topic (question bank) business logic.
type TopicService struct {
	topicRepo *repository.TopicRepository
	log       zerolog.Logger
}

// NewTopicService creates a new TopicService.
func NewTopicService(topicRepo *repository.TopicRepository, log zerolog.Logger) *TopicService {
	return &TopicService{
		topicRepo: topicRepo,
		log:       log.With().Str("component", "topic_service").Logger(),
	}
}

// List returns all topics with question counts.
func (s *TopicService) List(ctx context.Context) ([]model.Topic, error) {
	topics, err := s.topicRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if topics == nil {
		topics = []model.Topic{}
	}
	return topics, nil
}

// GetByID returns one topic.
func (s *TopicService) GetByID(ctx context.Context, id int) (*model.Topic, error) {
	return s.topicRepo.GetByID(ctx, id)
}

// Create adds a new topic.
func (s *TopicService) Create(ctx context.Context, req *model.CreateTopicRequest) (*model.Topic, error) {
	t := &model.Topic{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
	}
	if err := s.topicRepo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Update modifies an existing topic.
func (s *TopicService) Update(ctx context.Context, id int, req *model.UpdateTopicRequest) (*model.Topic, error) {
	t, err := s.topicRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Name = strings.TrimSpace(req.Name)
	t.Description = strings.TrimSpace(req.Description)
	if err := s.topicRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes a topic. Foreign key violations surface as ErrTopicInUse.
func (s *TopicService) Delete(ctx context.Context, id int) error {
	if err := s.topicRepo.Delete(ctx, id); err != nil {
		if strings.Contains(err.Error(), "foreign key") {
			return ErrTopicInUse
		}
		return err
	}
	return nil
}
