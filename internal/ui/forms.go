package ui

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/stemsi/exam-paper/internal/model"
	"github.com/stemsi/exam-paper/internal/validator"
)

// ─── Exam form ──────────────────────────────────────────────────────

// ExamForm is the state of the exam-creation form.
type ExamForm struct {
	Title   string
	Subject string
}

// NewExamForm returns a reset form with the default subject preselected.
func NewExamForm() ExamForm {
	return ExamForm{Subject: model.DefaultSubject}
}

// ParseExamForm reads a submitted exam form.
func ParseExamForm(values url.Values) ExamForm {
	return ExamForm{
		Title:   values.Get("title"),
		Subject: values.Get("subject"),
	}
}

// ToRequest converts the form into the API payload.
func (f ExamForm) ToRequest() model.CreateExamRequest {
	return model.CreateExamRequest{
		Title:   strings.TrimSpace(f.Title),
		Subject: strings.TrimSpace(f.Subject),
	}
}

// Validate applies the exam payload rules. Returns nil when the form is valid.
func (f ExamForm) Validate() map[string]string {
	req := f.ToRequest()
	return validator.Struct(&req)
}

// ─── Question form ──────────────────────────────────────────────────

// QuestionForm is the state of the question-creation form of one exam.
// Fields of the branch not shown for the current type keep their values.
type QuestionForm struct {
	ExamID       int
	QuestionType string
	Question     string
	MCQOptions   []string
	AnswerCols   string
}

// NewQuestionForm returns a reset form for an exam.
func NewQuestionForm(examID int) QuestionForm {
	return QuestionForm{
		ExamID:       examID,
		QuestionType: string(model.QuestionTypeMCQ),
		MCQOptions:   []string{},
	}
}

// ParseQuestionForm reads a submitted question form.
func ParseQuestionForm(examID int, values url.Values) QuestionForm {
	opts := values["mcqOptions"]
	if opts == nil {
		opts = []string{}
	}
	return QuestionForm{
		ExamID:       examID,
		QuestionType: values.Get("questionType"),
		Question:     values.Get("question"),
		MCQOptions:   append([]string(nil), opts...),
		AnswerCols:   values.Get("answerCols"),
	}
}

// ShowOptions reports whether the MCQ options editor is visible.
func (f QuestionForm) ShowOptions() bool {
	return f.QuestionType == string(model.QuestionTypeMCQ)
}

// ShowAnswerCols reports whether the answer rows field is visible.
func (f QuestionForm) ShowAnswerCols() bool {
	return f.QuestionType == string(model.QuestionTypeQA)
}

// AddOption appends an empty option.
func (f *QuestionForm) AddOption() {
	f.MCQOptions = append(f.MCQOptions, "")
}

// RemoveOption drops the option at index i. Out of range indexes are ignored.
func (f *QuestionForm) RemoveOption(i int) {
	if i < 0 || i >= len(f.MCQOptions) {
		return
	}
	kept := make([]string, 0, len(f.MCQOptions)-1)
	for j, opt := range f.MCQOptions {
		if j != i {
			kept = append(kept, opt)
		}
	}
	f.MCQOptions = kept
}

// ToRequest converts the form into the API payload. Only the branch of the
// selected type is carried over.
func (f QuestionForm) ToRequest() model.CreateQuestionRequest {
	req := model.CreateQuestionRequest{
		ExamID:       model.FlexInt(f.ExamID),
		QuestionType: f.QuestionType,
		Question:     f.Question,
	}
	switch model.QuestionType(f.QuestionType) {
	case model.QuestionTypeMCQ:
		req.MCQOptions = append([]string{}, f.MCQOptions...)
	case model.QuestionTypeQA:
		if s := strings.TrimSpace(f.AnswerCols); s != "" {
			if n, err := strconv.Atoi(s); err == nil {
				cols := model.FlexInt(n)
				req.AnswerCols = &cols
			}
		}
	}
	return req
}

// Validate applies the question payload rules. Returns nil when the form is valid.
func (f QuestionForm) Validate() map[string]string {
	fields := make(map[string]string)

	if f.ShowAnswerCols() {
		if s := strings.TrimSpace(f.AnswerCols); s != "" {
			if _, err := strconv.Atoi(s); err != nil {
				fields["answerCols"] = "answerCols must be a whole number"
			}
		}
	}

	req := f.ToRequest()
	for k, v := range validator.Struct(&req) {
		fields[k] = v
	}
	for k, v := range req.Validate() {
		if _, ok := fields[k]; !ok {
			fields[k] = v
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}

// ─── Actions ────────────────────────────────────────────────────────

// ActionKind is the button that submitted the question form.
type ActionKind string

const (
	ActionAddOption    ActionKind = "add-option"
	ActionRemoveOption ActionKind = "remove-option"
	ActionChangeType   ActionKind = "change-type"
	ActionSubmit       ActionKind = "submit"
)

// Action is a parsed form action. Index is set for ActionRemoveOption.
type Action struct {
	Kind  ActionKind
	Index int
}

// ParseAction parses the value of the form's action button.
// Empty means submit, so that pressing Enter in a field submits the form.
func ParseAction(s string) (Action, error) {
	switch {
	case s == "" || s == string(ActionSubmit):
		return Action{Kind: ActionSubmit}, nil
	case s == string(ActionAddOption):
		return Action{Kind: ActionAddOption}, nil
	case s == string(ActionChangeType):
		return Action{Kind: ActionChangeType}, nil
	case strings.HasPrefix(s, string(ActionRemoveOption)+":"):
		i, err := strconv.Atoi(strings.TrimPrefix(s, string(ActionRemoveOption)+":"))
		if err != nil || i < 0 {
			return Action{}, fmt.Errorf("invalid option index in %q", s)
		}
		return Action{Kind: ActionRemoveOption, Index: i}, nil
	}
	return Action{}, fmt.Errorf("unknown form action %q", s)
}

// Apply performs an editing action on the form. It reports true when the
// action is a submit and the caller should validate and store the question.
func (f *QuestionForm) Apply(a Action) bool {
	switch a.Kind {
	case ActionAddOption:
		f.AddOption()
	case ActionRemoveOption:
		f.RemoveOption(a.Index)
	case ActionSubmit:
		return true
	}
	return false
}
