package service

import (
	"context"
	"io"

	"github.com/stemsi/exam-paper/internal/paper"
)

// PaperService renders question papers from stored exams.
type PaperService struct {
	examService *ExamService
}

// NewPaperService creates a new PaperService.
func NewPaperService(examService *ExamService) *PaperService {
	return &PaperService{examService: examService}
}

// Layout loads an exam with its questions and lays out its paper.
func (s *PaperService) Layout(ctx context.Context, examID int) (*paper.Layout, error) {
	exam, err := s.examService.GetWithQuestions(ctx, examID)
	if err != nil {
		return nil, err
	}
	return paper.Build(*exam)
}

// HTML writes the paper of an exam as HTML in the given mode.
func (s *PaperService) HTML(ctx context.Context, w io.Writer, examID int, mode paper.Mode) error {
	layout, err := s.Layout(ctx, examID)
	if err != nil {
		return err
	}
	return paper.RenderHTML(w, layout, mode)
}

// PDF writes the paper of an exam as an A4 PDF.
func (s *PaperService) PDF(ctx context.Context, w io.Writer, examID int) error {
	layout, err := s.Layout(ctx, examID)
	if err != nil {
		return err
	}
	return paper.RenderPDF(w, layout)
}
