// Package ui holds the server-rendered data entry pages: form state, the
// actions that edit it, and the embedded templates.
package ui

import (
	"embed"
	"html/template"
	"strconv"
	"strings"

	"github.com/stemsi/exam-paper/internal/model"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// Template names executed by the handlers.
const (
	TemplateExams = "exams"
	TemplateExam  = "exam"
)

var funcs = template.FuncMap{
	"inc":  func(i int) int { return i + 1 },
	"join": strings.Join,
}

// Templates parses the embedded page templates.
func Templates() *template.Template {
	return template.Must(template.New("ui").Funcs(funcs).ParseFS(templateFS, "templates/*.html.tmpl"))
}

// ExamsPage is the exam list with the creation form.
type ExamsPage struct {
	Exams    []model.Exam
	Form     ExamForm
	Errors   map[string]string
	Subjects []string
	Flash    string
}

// NewExamsPage builds the list page with a reset form.
func NewExamsPage(exams []model.Exam) ExamsPage {
	return ExamsPage{Exams: exams, Form: NewExamForm(), Subjects: model.SuggestedSubjects}
}

func (ExamsPage) PageTitle() string  { return "Exams" }
func (ExamsPage) BodyExamID() string { return "" }

// HasSubject reports whether s is one of the suggested subjects.
func (p ExamsPage) HasSubject(s string) bool {
	for _, sub := range p.Subjects {
		if sub == s {
			return true
		}
	}
	return false
}

// ExamPage is one exam's question list with the question form.
type ExamPage struct {
	Exam          *model.ExamWithQuestions
	Form          QuestionForm
	Errors        map[string]string
	Types         []model.QuestionType
	MaxAnswerRows int
	Flash         string
}

// NewExamPage builds the question page with a reset form.
func NewExamPage(exam *model.ExamWithQuestions) ExamPage {
	return ExamPage{
		Exam:          exam,
		Form:          NewQuestionForm(exam.ID),
		Types:         model.QuestionTypes,
		MaxAnswerRows: model.MaxAnswerRows,
	}
}

func (p ExamPage) PageTitle() string  { return p.Exam.Title }
func (p ExamPage) BodyExamID() string { return strconv.Itoa(p.Exam.ID) }

// Flash messages shown after a redirect, keyed by the flash query value.
var flashes = map[string]string{
	"exam-created":     "Exam has been created successfully.",
	"exam-deleted":     "Exam has been deleted.",
	"question-created": "Question has been added successfully.",
	"question-deleted": "Question has been deleted.",
}

// Flash returns the message for a flash key, or "" for unknown keys.
func Flash(key string) string {
	return flashes[key]
}
