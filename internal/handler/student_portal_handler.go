package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prepdeck/prepdeck-backend/internal/engine"
	"github.com/prepdeck/prepdeck-backend/internal/middleware"
	"github.com/prepdeck/prepdeck-backend/internal/model"
	"github.com/prepdeck/prepdeck-backend/internal/response"
	"github.com/prepdeck/prepdeck-backend/internal/service"
	"github.com/prepdeck/prepdeck-backend/internal/validator"
)

// StudentPortalHandler handles the student-facing test-taking endpoints.
type StudentPortalHandler struct {
	attemptService *service.AttemptService
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(attemptService *service.AttemptService) *StudentPortalHandler {
	return &StudentPortalHandler{attemptService: attemptService}
}

// Portal godoc
// GET /api/v1/student/tests
// Lists published tests with the student's attempt status overlaid.
func (h *StudentPortalHandler) Portal(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	portal, err := h.attemptService.Portal(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, portal)
}

// Start godoc
// POST /api/v1/student/tests/:test_id/attempts
// Starts (or idempotently rejoins) an attempt at a published test.
func (h *StudentPortalHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptService.Start(c.Request.Context(), claims.UserID, testID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTestUnavailable):
			response.Fail(c, http.StatusConflict, response.ErrTestNotAvailable)
		case errors.Is(err, service.ErrPremiumRequired):
			response.Fail(c, http.StatusForbidden, response.ErrPremiumRequired)
		case errors.Is(err, engine.ErrNoQuestions):
			response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	response.Success(c, http.StatusCreated, attempt)
}

// Paper godoc
// GET /api/v1/student/attempts/:attempt_id/paper
// Returns the question paper (no correct answers) for a running attempt.
func (h *StudentPortalHandler) Paper(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	paper, err := h.attemptService.Paper(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		h.failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, paper)
}

// State godoc
// GET /api/v1/student/attempts/:attempt_id/state
// Returns answers so far, palette position, and remaining seconds.
func (h *StudentPortalHandler) State(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	state, err := h.attemptService.State(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		h.failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, state)
}

// Answer godoc
// POST /api/v1/student/attempts/:attempt_id/answers
// Records one answer selection; re-answering overwrites.
func (h *StudentPortalHandler) Answer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SelectAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attemptService.SelectAnswer(c.Request.Context(), claims.UserID, attemptID, req.QuestionID, req.OptionIndex); err != nil {
		h.failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// Navigate godoc
// POST /api/v1/student/attempts/:attempt_id/navigate
// Moves the palette pointer; free movement, any direction.
func (h *StudentPortalHandler) Navigate(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attemptService.Navigate(c.Request.Context(), claims.UserID, attemptID, req.TargetIndex); err != nil {
		h.failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "moved"})
}

// Submit godoc
// POST /api/v1/student/attempts/:attempt_id/submit
// Finalizes the attempt. Re-submitting replays the original result.
func (h *StudentPortalHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	res, err := h.attemptService.Submit(c.Request.Context(), claims.UserID, attemptID)
	if err != nil && !errors.Is(err, engine.ErrAlreadySubmitted) {
		h.failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"attempt_id":      attemptID,
		"score":           res.Score,
		"total_questions": res.TotalQuestions,
		"accuracy":        res.Accuracy,
		"replayed":        errors.Is(err, engine.ErrAlreadySubmitted),
	})
}

// Abandon godoc
// POST /api/v1/student/attempts/:attempt_id/abandon
// Discards a running attempt without scoring it.
func (h *StudentPortalHandler) Abandon(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.attemptService.Abandon(c.Request.Context(), claims.UserID, attemptID); err != nil {
		h.failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// History godoc
// GET /api/v1/student/attempts
// Lists the student's completed attempts, newest first.
func (h *StudentPortalHandler) History(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attempts, err := h.attemptService.History(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, attempts)
}

// Result godoc
// GET /api/v1/student/attempts/:attempt_id/result
// Returns a finished attempt with the recorded answers for review.
func (h *StudentPortalHandler) Result(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptService.GetResult(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		h.failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, attempt)
}

// failAttempt maps attempt and engine errors onto the response envelope.
func (h *StudentPortalHandler) failAttempt(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotYourAttempt):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrNoActiveAttempt):
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveAttempt)
	case errors.Is(err, engine.ErrInvalidAnswer):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidAnswer)
	case errors.Is(err, engine.ErrInvalidNavigation):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidNavigation)
	case errors.Is(err, service.ErrResultNotSaved):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrResultNotSaved)
	case errors.Is(err, engine.ErrSubmitInFlight):
		response.Fail(c, http.StatusConflict, response.ErrSubmitInProgress)
	case errors.Is(err, engine.ErrAlreadySubmitted), errors.Is(err, engine.ErrAbandoned):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
