package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/prepdeck/prepdeck-backend/internal/model"
	"github.com/prepdeck/prepdeck-backend/internal/repository"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// Domain errors.
var (
	ErrGeneratorDisabled = errors.New("question generation is not configured")
	ErrBadGeneration     = errors.New("model returned unusable questions")
)

// GenerateRequest asks the model for a batch of draft questions on a topic.
type GenerateRequest struct {
	TopicID  int    `json:"topic_id" binding:"required"`
	Subject  string `json:"subject" binding:"required,min=3,max=200"`
	Count    int    `json:"count" binding:"required,min=1,max=20"`
	Level    string `json:"level" binding:"omitempty,oneof=beginner intermediate advanced"`
	Guidance string `json:"guidance" binding:"omitempty,max=1000"`
}

// generatedQuestion is the JSON shape the model is instructed to produce.
type generatedQuestion struct {
	Text        string   `json:"text"`
	Options     []string `json:"options"`
	Correct     int      `json:"correct"`
	Explanation string   `json:"explanation"`
}

type generatedBatch struct {
	Questions []generatedQuestion `json:"questions"`
}

// GeneratorService drafts multiple-choice questions with an OpenAI-compatible
// model. Generated questions land in the bank like any other and still go
// through the author's review before a test referencing them is published.
type GeneratorService struct {
	api          *openai.Client
	model        string
	questionRepo *repository.QuestionRepository
	topicRepo    *repository.TopicRepository
	log          zerolog.Logger
}

// NewGeneratorService creates a new GeneratorService. An empty apiKey
// disables generation; endpoints then answer with a configuration error.
func NewGeneratorService(
	baseURL, apiKey, modelName string,
	questionRepo *repository.QuestionRepository,
	topicRepo *repository.TopicRepository,
	log zerolog.Logger,
) *GeneratorService {
	s := &GeneratorService{
		model:        modelName,
		questionRepo: questionRepo,
		topicRepo:    topicRepo,
		log:          log.With().Str("component", "generator_service").Logger(),
	}
	if apiKey != "" {
		cfg := openai.DefaultConfig(apiKey)
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
		s.api = openai.NewClientWithConfig(cfg)
	}
	return s
}

// Enabled reports whether an API key was configured.
func (s *GeneratorService) Enabled() bool { return s.api != nil }

// Generate asks the model for req.Count questions and inserts the usable ones
// under the topic. Returns the inserted questions.
func (s *GeneratorService) Generate(ctx context.Context, req *GenerateRequest) ([]model.Question, error) {
	if s.api == nil {
		return nil, ErrGeneratorDisabled
	}

	topic, err := s.topicRepo.GetByID(ctx, req.TopicID)
	if err != nil {
		return nil, fmt.Errorf("get topic: %w", err)
	}

	resp, err := s.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildGeneratorPrompt(req, topic.Name)},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Generate %d questions now.", req.Count)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("generation API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("model returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	var batch generatedBatch
	if err := json.Unmarshal([]byte(raw), &batch); err != nil {
		return nil, fmt.Errorf("parse generation response: %w", err)
	}

	questions := make([]model.Question, 0, len(batch.Questions))
	for _, g := range batch.Questions {
		if g.Text == "" || len(g.Options) != 4 || g.Correct < 0 || g.Correct > 3 {
			s.log.Warn().Str("text", g.Text).Msg("dropping malformed generated question")
			continue
		}
		questions = append(questions, model.Question{
			TopicID:       req.TopicID,
			Text:          g.Text,
			Options:       g.Options,
			CorrectOption: g.Correct,
			Explanation:   g.Explanation,
		})
	}
	if len(questions) == 0 {
		return nil, ErrBadGeneration
	}

	if err := s.questionRepo.CreateBatch(ctx, questions); err != nil {
		return nil, fmt.Errorf("insert generated questions: %w", err)
	}

	s.log.Info().
		Int("topic_id", req.TopicID).
		Int("requested", req.Count).
		Int("inserted", len(questions)).
		Msg("Questions generated")
	return questions, nil
}

func buildGeneratorPrompt(req *GenerateRequest, topicName string) string {
	var sb strings.Builder
	sb.WriteString("You write multiple-choice exam preparation questions.\n\n")
	sb.WriteString("TOPIC: " + topicName + "\n")
	sb.WriteString("SUBJECT AREA: " + req.Subject + "\n")
	if req.Level != "" {
		sb.WriteString("DIFFICULTY: " + req.Level + "\n")
	}
	if req.Guidance != "" {
		sb.WriteString("ADDITIONAL GUIDANCE: " + req.Guidance + "\n")
	}
	sb.WriteString("\nRespond with a single JSON object of the form:\n")
	sb.WriteString(`{"questions": [{"text": "...", "options": ["...", "...", "...", "..."], "correct": 0, "explanation": "..."}]}`)
	sb.WriteString("\n\nRULES:\n")
	sb.WriteString("- Exactly four options per question, one correct.\n")
	sb.WriteString("- \"correct\" is the zero-based index of the right option.\n")
	sb.WriteString("- Distractors must be plausible but unambiguously wrong.\n")
	sb.WriteString("- The explanation states why the correct option is right.\n")
	return sb.String()
}
