package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt states as stored. Live state machine
// transitions happen inside the engine; the store only sees the coarse
// lifecycle.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusCompleted  AttemptStatus = "COMPLETED"
	AttemptStatusAbandoned  AttemptStatus = "ABANDONED"
)

// Attempt represents one student's timed run through a test.
type Attempt struct {
	ID         uuid.UUID      `json:"id"`
	TestID     uuid.UUID      `json:"test_id"`
	StudentID  int            `json:"student_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Status     AttemptStatus  `json:"status"`
	Score      *int           `json:"score,omitempty"`
	TotalQs    *int           `json:"total_questions,omitempty"`
	Accuracy   *float64       `json:"accuracy,omitempty"`
	Answers    map[string]int `json:"answers,omitempty"`
}

// AttemptState is returned to the frontend after a page reload so it can
// restore the palette and countdown.
type AttemptState struct {
	AttemptID        uuid.UUID      `json:"attempt_id"`
	TestID           uuid.UUID      `json:"test_id"`
	StudentID        int            `json:"student_id"`
	AnsweredSoFar    map[string]int `json:"answered_so_far"`
	CurrentIndex     int            `json:"current_index"`
	RemainingSeconds int            `json:"remaining_seconds"`
}

// AttemptResultJob is the queue payload handed from the live session host to
// the result worker for durable persistence.
type AttemptResultJob struct {
	AttemptID   string         `json:"attempt_id"`
	TestID      string         `json:"test_id"`
	StudentID   int            `json:"student_id"`
	Score       int            `json:"score"`
	TotalQs     int            `json:"total_questions"`
	Accuracy    float64        `json:"accuracy"`
	Answers     map[string]int `json:"answers"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// SelectAnswerRequest records one answer choice during a live attempt.
type SelectAnswerRequest struct {
	QuestionID  string `json:"question_id" binding:"required,uuid"`
	OptionIndex int    `json:"option_index" binding:"min=0"`
}

// NavigateRequest moves the palette pointer during a live attempt.
type NavigateRequest struct {
	TargetIndex int `json:"target_index" binding:"min=0"`
}
