package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-paper/internal/model"
	"github.com/stemsi/exam-paper/internal/response"
	"github.com/stemsi/exam-paper/internal/service"
)

// QuestionHandler handles question endpoints.
type QuestionHandler struct {
	examService     *service.ExamService
	questionService *service.QuestionService
	log             zerolog.Logger
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(examService *service.ExamService, questionService *service.QuestionService, log zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		examService:     examService,
		questionService: questionService,
		log:             log.With().Str("component", "question_handler").Logger(),
	}
}

// GetExamQuestions godoc
// GET /questions?examId=
// Returns the exam together with its questions in creation order.
func (h *QuestionHandler) GetExamQuestions(c *gin.Context) {
	examID, ok := parseID(c.Query("examId"))
	if !ok {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidID,
			map[string]string{"examId": "examId must be a positive integer"})
		return
	}

	exam, err := h.examService.GetWithQuestions(c.Request.Context(), examID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, "Questions fetched successfully", gin.H{"exam": exam})
}

// CreateQuestion godoc
// POST /questions
// Adds a question to an exam. Fields of other question types are discarded.
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req model.CreateQuestionRequest
	if !bindJSON(c, &req) {
		return
	}
	if fields := req.Validate(); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := req.ToQuestion()
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"questionType": err.Error()})
		return
	}

	if err := h.questionService.Create(c.Request.Context(), &q); err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, "Question created successfully", gin.H{"body": q})
}

// DeleteQuestion godoc
// DELETE /questions?id=
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id, ok := parseID(c.Query("id"))
	if !ok {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidID,
			map[string]string{"id": "id must be a positive integer"})
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), id); err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, "Question deleted successfully", nil)
}
