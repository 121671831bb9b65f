package model

import (
	"time"

	"github.com/google/uuid"
)

// Question represents a single question in a topic bank. Options hold the
// ordered answer choices; CorrectOption indexes into them. One-liner
// free-response questions carry exactly one option.
type Question struct {
	ID            uuid.UUID `json:"id"`
	TopicID       int       `json:"topic_id"`
	Text          string    `json:"text"`
	Options       []string  `json:"options"`
	CorrectOption int       `json:"correct_option"`
	Explanation   string    `json:"explanation"`
	ImagePath     string    `json:"image_path,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateQuestionRequest is the payload for adding a question to a topic bank.
type CreateQuestionRequest struct {
	TopicID       int      `json:"topic_id" binding:"required"`
	Text          string   `json:"text" binding:"required,min=1,max=2000"`
	Options       []string `json:"options" binding:"required,min=1,max=8,dive,min=1,max=500"`
	CorrectOption int      `json:"correct_option" binding:"min=0"`
	Explanation   string   `json:"explanation" binding:"max=2000"`
	ImagePath     string   `json:"image_path" binding:"omitempty,max=255"`
}

// UpdateQuestionRequest is the payload for updating an existing question.
type UpdateQuestionRequest struct {
	Text          string   `json:"text" binding:"required,min=1,max=2000"`
	Options       []string `json:"options" binding:"required,min=1,max=8,dive,min=1,max=500"`
	CorrectOption int      `json:"correct_option" binding:"min=0"`
	Explanation   string   `json:"explanation" binding:"max=2000"`
	ImagePath     string   `json:"image_path" binding:"omitempty,max=255"`
}

// Validate checks cross-field constraints Gin bindings cannot express.
func (r *CreateQuestionRequest) Validate() bool {
	return r.CorrectOption < len(r.Options)
}

// Validate checks cross-field constraints Gin bindings cannot express.
func (r *UpdateQuestionRequest) Validate() bool {
	return r.CorrectOption < len(r.Options)
}
