package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-paper/internal/model"
	"github.com/stemsi/exam-paper/internal/response"
	"github.com/stemsi/exam-paper/internal/service"
	"github.com/stemsi/exam-paper/internal/validator"
)

// ExamHandler handles exam endpoints.
type ExamHandler struct {
	examService *service.ExamService
	log         zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		examService: examService,
		log:         log.With().Str("component", "exam_handler").Logger(),
	}
}

// ListExams godoc
// GET /exams
// Lists every exam in creation order.
func (h *ExamHandler) ListExams(c *gin.Context) {
	exams, err := h.examService.List(c.Request.Context())
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, "Exams fetched successfully", gin.H{"exams": exams})
}

// CreateExam godoc
// POST /exams
// Creates an exam. Title and subject are validated before anything is stored.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var req model.CreateExamRequest
	if !bindJSON(c, &req) {
		return
	}

	exam := &model.Exam{Title: req.Title, Subject: req.Subject}
	if err := h.examService.Create(c.Request.Context(), exam); err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, "Exam created successfully", gin.H{"body": exam})
}

// DeleteExam godoc
// DELETE /exams
// Deletes an exam and its questions. The id is read from the JSON body.
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	var req model.DeleteExamRequest
	if !bindJSON(c, &req) {
		return
	}

	id := req.ID.Int()
	if err := h.examService.Delete(c.Request.Context(), id); err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, "Exam deleted successfully", gin.H{"body": gin.H{"id": id}})
}

// bindJSON binds and validates the body into dst. On failure it writes a 400
// and returns false.
func bindJSON(c *gin.Context, dst interface{}) bool {
	fields := validator.Bind(c, dst)
	if fields == nil {
		return true
	}
	if _, malformed := fields["detail"]; malformed && len(fields) == 1 {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidPayload, fields)
		return false
	}
	response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
	return false
}
