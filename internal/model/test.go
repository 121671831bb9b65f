package model

import (
	"time"

	"github.com/google/uuid"
)

// TestStatus enumerates the possible states of a practice test.
type TestStatus string

const (
	TestStatusDraft     TestStatus = "DRAFT"
	TestStatusPublished TestStatus = "PUBLISHED"
	TestStatusArchived  TestStatus = "ARCHIVED"
)

// Test represents a practice test: an ordered selection of questions with a
// fixed duration.
type Test struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	TopicID         int        `json:"topic_id"`
	AuthorID        int        `json:"author_id"`
	DurationMinutes int        `json:"duration_minutes"`
	QuestionCount   int        `json:"question_count"`
	Premium         bool       `json:"premium"`
	Status          TestStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CreateTestRequest is the payload for creating a new test.
type CreateTestRequest struct {
	Title           string `json:"title" binding:"required,min=3,max=255"`
	TopicID         int    `json:"topic_id" binding:"required"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,min=1,max=480"`
	Premium         bool   `json:"premium"`
}

// UpdateTestRequest is the payload for updating an existing test.
type UpdateTestRequest struct {
	Title           string `json:"title" binding:"omitempty,min=3,max=255"`
	DurationMinutes int    `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	Premium         *bool  `json:"premium" binding:"omitempty"`
}

// SetTestQuestionsRequest replaces a draft test's ordered question list.
type SetTestQuestionsRequest struct {
	QuestionIDs []uuid.UUID `json:"question_ids" binding:"required,min=1,max=200"`
}

// TestPayload is the Redis-cached paper sent to students (no correct answers).
type TestPayload struct {
	TestID    uuid.UUID            `json:"test_id"`
	Title     string               `json:"title"`
	Duration  int                  `json:"duration_minutes"`
	Questions []QuestionForStudent `json:"questions"`
}

// QuestionForStudent is a question without the correct answer or explanation,
// sent to students while an attempt is live. Order follows the test's
// question list and determines palette numbering.
type QuestionForStudent struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	Options   []string  `json:"options"`
	ImagePath string    `json:"image_path,omitempty"`
	OrderNum  int       `json:"order_num"`
}
