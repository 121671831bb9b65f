package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prepdeck/prepdeck-backend/internal/model"
	"github.com/prepdeck/prepdeck-backend/internal/response"
	"github.com/prepdeck/prepdeck-backend/internal/service"
	"github.com/prepdeck/prepdeck-backend/internal/validator"
)

// QuestionHandler handles question bank management endpoints.
type QuestionHandler struct {
	questionService  *service.QuestionService
	importService    *service.ImportService
	generatorService *service.GeneratorService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(
	questionService *service.QuestionService,
	importService *service.ImportService,
	generatorService *service.GeneratorService,
) *QuestionHandler {
	return &QuestionHandler{
		questionService:  questionService,
		importService:    importService,
		generatorService: generatorService,
	}
}

// ListByTopic godoc
// GET /api/v1/admin/topics/:id/questions?page=&per_page=
func (h *QuestionHandler) ListByTopic(c *gin.Context) {
	topicID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	questions, pagination, err := h.questionService.ListByTopic(c.Request.Context(), topicID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, questions, pagination)
}

// Get godoc
// GET /api/v1/admin/questions/:id
func (h *QuestionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	question, err := h.questionService.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, question)
}

// Create godoc
// POST /api/v1/admin/questions
func (h *QuestionHandler) Create(c *gin.Context) {
	var req model.CreateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.Create(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrBadCorrectOption) {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{"correct_option": "must index one of the provided options"})
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusCreated, question)
}

// Update godoc
// PUT /api/v1/admin/questions/:id
func (h *QuestionHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.Update(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, service.ErrBadCorrectOption) {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{"correct_option": "must index one of the provided options"})
			return
		}
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, question)
}

// Delete godoc
// DELETE /api/v1/admin/questions/:id
func (h *QuestionHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), id); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// ImportCSV godoc
// POST /api/v1/admin/topics/:id/questions/import
// Accepts a multipart CSV upload and returns a per-row import report.
func (h *QuestionHandler) ImportCSV(c *gin.Context) {
	topicID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	report, err := h.importService.ImportCSV(c.Request.Context(), topicID, file)
	if err != nil {
		if errors.Is(err, service.ErrEmptyImport) {
			response.Fail(c, http.StatusBadRequest, response.ErrImportFailed)
			return
		}
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrImportFailed)
		return
	}
	response.Success(c, http.StatusOK, report)
}

// Generate godoc
// POST /api/v1/admin/questions/generate
// Drafts questions with the configured model and inserts them into the bank.
func (h *QuestionHandler) Generate(c *gin.Context) {
	var req service.GenerateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, err := h.generatorService.Generate(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrGeneratorDisabled) {
			response.Fail(c, http.StatusServiceUnavailable, response.ErrGeneratorFailed)
			return
		}
		response.Fail(c, http.StatusBadGateway, response.ErrGeneratorFailed)
		return
	}
	response.Success(c, http.StatusCreated, questions)
}
