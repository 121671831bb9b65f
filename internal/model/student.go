package model

import "time"

// Student represents a registered learner.
type Student struct {
	ID           int        `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	PlanCode     string     `json:"plan_code"`
	PlanExpires  *time.Time `json:"plan_expires,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Premium reports whether the student holds a paid plan that has not expired.
func (s *Student) Premium(now time.Time) bool {
	return s.PlanCode != "" && s.PlanCode != PlanCodeFree &&
		(s.PlanExpires == nil || s.PlanExpires.After(now))
}

// StudentRegisterRequest is the payload for creating a student account.
type StudentRegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// StudentLoginRequest is the payload for student authentication.
type StudentLoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// StudentLoginResponse is returned after successful student login.
type StudentLoginResponse struct {
	Token   string  `json:"token"`
	Student Student `json:"student"`
}
