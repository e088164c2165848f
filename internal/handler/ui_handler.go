package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-paper/internal/model"
	"github.com/stemsi/exam-paper/internal/response"
	"github.com/stemsi/exam-paper/internal/service"
	"github.com/stemsi/exam-paper/internal/ui"
)

// UIHandler serves the server-rendered data entry pages. Successful
// mutations redirect (303) so that reloading never repeats them.
type UIHandler struct {
	examService     *service.ExamService
	questionService *service.QuestionService
	log             zerolog.Logger
}

// NewUIHandler creates a new UIHandler.
func NewUIHandler(examService *service.ExamService, questionService *service.QuestionService, log zerolog.Logger) *UIHandler {
	return &UIHandler{
		examService:     examService,
		questionService: questionService,
		log:             log.With().Str("component", "ui_handler").Logger(),
	}
}

// Index godoc
// GET /
func (h *UIHandler) Index(c *gin.Context) {
	c.Redirect(http.StatusFound, "/ui/exams")
}

// ListExams godoc
// GET /ui/exams
func (h *UIHandler) ListExams(c *gin.Context) {
	exams, err := h.examService.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	page := ui.NewExamsPage(exams)
	page.Flash = ui.Flash(c.Query("flash"))
	c.HTML(http.StatusOK, ui.TemplateExams, page)
}

// CreateExam godoc
// POST /ui/exams
func (h *UIHandler) CreateExam(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, response.GetMessage(response.ErrInvalidPayload))
		return
	}

	form := ui.ParseExamForm(c.Request.PostForm)
	if errs := form.Validate(); errs != nil {
		h.renderExams(c, http.StatusBadRequest, form, errs)
		return
	}

	req := form.ToRequest()
	exam := &model.Exam{Title: req.Title, Subject: req.Subject}
	if err := h.examService.Create(c.Request.Context(), exam); err != nil {
		h.fail(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/ui/exams?flash=exam-created")
}

// DeleteExam godoc
// POST /ui/exams/:id/delete
func (h *UIHandler) DeleteExam(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.String(http.StatusBadRequest, response.GetMessage(response.ErrInvalidID))
		return
	}

	if err := h.examService.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/ui/exams?flash=exam-deleted")
}

// ShowExam godoc
// GET /ui/exams/:id
func (h *UIHandler) ShowExam(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.String(http.StatusBadRequest, response.GetMessage(response.ErrInvalidID))
		return
	}

	exam, err := h.examService.GetWithQuestions(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	page := ui.NewExamPage(exam)
	page.Flash = ui.Flash(c.Query("flash"))
	c.HTML(http.StatusOK, ui.TemplateExam, page)
}

// QuestionForm godoc
// POST /ui/exams/:id/questions
// Applies the pressed form button: option editing and type switches
// re-render the form, submit validates and stores the question.
func (h *UIHandler) QuestionForm(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.String(http.StatusBadRequest, response.GetMessage(response.ErrInvalidID))
		return
	}
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, response.GetMessage(response.ErrInvalidPayload))
		return
	}

	action, err := ui.ParseAction(c.Request.PostForm.Get("action"))
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	form := ui.ParseQuestionForm(id, c.Request.PostForm)
	if !form.Apply(action) {
		h.renderExam(c, http.StatusOK, id, form, nil)
		return
	}

	if errs := form.Validate(); errs != nil {
		h.renderExam(c, http.StatusBadRequest, id, form, errs)
		return
	}

	req := form.ToRequest()
	q, err := req.ToQuestion()
	if err != nil {
		h.renderExam(c, http.StatusBadRequest, id, form, map[string]string{"questionType": err.Error()})
		return
	}
	if err := h.questionService.Create(c.Request.Context(), &q); err != nil {
		h.fail(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/ui/exams/%d?flash=question-created", id))
}

// DeleteQuestion godoc
// POST /ui/questions/:id/delete
func (h *UIHandler) DeleteQuestion(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.String(http.StatusBadRequest, response.GetMessage(response.ErrInvalidID))
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}

	if examID, ok := parseID(c.PostForm("examId")); ok {
		c.Redirect(http.StatusSeeOther, fmt.Sprintf("/ui/exams/%d?flash=question-deleted", examID))
		return
	}
	c.Redirect(http.StatusSeeOther, "/ui/exams")
}

func (h *UIHandler) renderExams(c *gin.Context, status int, form ui.ExamForm, errs map[string]string) {
	exams, err := h.examService.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	page := ui.NewExamsPage(exams)
	page.Form = form
	page.Errors = errs
	c.HTML(status, ui.TemplateExams, page)
}

func (h *UIHandler) renderExam(c *gin.Context, status int, examID int, form ui.QuestionForm, errs map[string]string) {
	exam, err := h.examService.GetWithQuestions(c.Request.Context(), examID)
	if err != nil {
		h.fail(c, err)
		return
	}
	page := ui.NewExamPage(exam)
	page.Form = form
	page.Errors = errs
	c.HTML(status, ui.TemplateExam, page)
}

// fail writes a plain text error page.
func (h *UIHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		c.String(http.StatusNotFound, response.GetMessage(response.ErrExamNotFound))
	case errors.Is(err, service.ErrQuestionNotFound):
		c.String(http.StatusNotFound, response.GetMessage(response.ErrNotFound))
	case errors.Is(err, service.ErrStorageUnavailable):
		h.log.Error().Err(err).Msg("Storage unavailable")
		c.String(http.StatusInternalServerError, response.GetMessage(response.ErrStorageUnavailable))
	default:
		h.log.Error().Err(err).Msg("UI request failed")
		c.String(http.StatusInternalServerError, response.GetMessage(response.ErrInternal))
	}
}
