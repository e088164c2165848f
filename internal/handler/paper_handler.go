package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-paper/internal/paper"
	"github.com/stemsi/exam-paper/internal/response"
	"github.com/stemsi/exam-paper/internal/service"
)

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// PaperHandler serves rendered question papers.
type PaperHandler struct {
	paperService *service.PaperService
	log          zerolog.Logger
}

// NewPaperHandler creates a new PaperHandler.
func NewPaperHandler(paperService *service.PaperService, log zerolog.Logger) *PaperHandler {
	return &PaperHandler{
		paperService: paperService,
		log:          log.With().Str("component", "paper_handler").Logger(),
	}
}

// GetPaperHTML godoc
// GET /exams/:id/paper?mode=preview|print
func (h *PaperHandler) GetPaperHTML(c *gin.Context) {
	examID, ok := parseID(c.Param("id"))
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	mode, err := paper.ParseMode(c.Query("mode"))
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"mode": "mode must be one of preview, print"})
		return
	}

	// Render into a buffer so a failure still produces a JSON error.
	var buf bytes.Buffer
	if err := h.paperService.HTML(c.Request.Context(), &buf, examID, mode); err != nil {
		failFromError(c, h.log, err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// DownloadPaperPDF godoc
// GET /exams/:id/paper.pdf
func (h *PaperHandler) DownloadPaperPDF(c *gin.Context) {
	examID, ok := parseID(c.Param("id"))
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	layout, err := h.paperService.Layout(c.Request.Context(), examID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	var buf bytes.Buffer
	if err := paper.RenderPDF(&buf, layout); err != nil {
		failFromError(c, h.log, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, pdfFilename(examID, layout.Header.Title)))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func pdfFilename(examID int, title string) string {
	name := unsafeFilename.ReplaceAllString(title, "-")
	if name == "" || name == "-" {
		return fmt.Sprintf("exam-%d.pdf", examID)
	}
	return fmt.Sprintf("exam-%d-%s.pdf", examID, name)
}
