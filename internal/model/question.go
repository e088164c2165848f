package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// QuestionType is the closed set of question kinds.
type QuestionType string

const (
	QuestionTypeMCQ       QuestionType = "MCQ"
	QuestionTypeTrueFalse QuestionType = "True/False"
	QuestionTypeQA        QuestionType = "Q&A"
)

// QuestionTypes lists every question type in form display order.
var QuestionTypes = []QuestionType{QuestionTypeMCQ, QuestionTypeTrueFalse, QuestionTypeQA}

// Limits on the Q&A answer area.
const (
	DefaultAnswerRows = 1
	MaxAnswerRows     = 50
)

// ParseQuestionType returns the QuestionType named by s.
func ParseQuestionType(s string) (QuestionType, error) {
	for _, t := range QuestionTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown question type %q", s)
}

// Valid reports whether t is one of QuestionTypes.
func (t QuestionType) Valid() bool {
	_, err := ParseQuestionType(string(t))
	return err == nil
}

// QuestionBody is the type-specific payload of a question.
// Only MCQBody, TrueFalseBody and QABody implement it.
type QuestionBody interface {
	Type() QuestionType
	isQuestionBody()
}

// MCQBody holds the ordered options of a multiple-choice question.
type MCQBody struct {
	Options []string
}

// TrueFalseBody carries no payload; the paper always offers True and False.
type TrueFalseBody struct{}

// QABody sizes the blank answer area of an open-answer question.
type QABody struct {
	AnswerRows int
}

func (MCQBody) Type() QuestionType       { return QuestionTypeMCQ }
func (TrueFalseBody) Type() QuestionType { return QuestionTypeTrueFalse }
func (QABody) Type() QuestionType        { return QuestionTypeQA }

func (MCQBody) isQuestionBody()       {}
func (TrueFalseBody) isQuestionBody() {}
func (QABody) isQuestionBody()        {}

// Question is a single prompt belonging to one exam.
type Question struct {
	ID     int
	ExamID int
	Prompt string
	Body   QuestionBody
}

// Type returns the question's type, or "" when the body is missing.
func (q Question) Type() QuestionType {
	if q.Body == nil {
		return ""
	}
	return q.Body.Type()
}

// MCQOptions returns the options of an MCQ question and an empty slice otherwise.
func (q Question) MCQOptions() []string {
	if b, ok := q.Body.(MCQBody); ok && b.Options != nil {
		return b.Options
	}
	return []string{}
}

// AnswerCols returns the answer row count of a Q&A question and the column default otherwise.
func (q Question) AnswerCols() int {
	if b, ok := q.Body.(QABody); ok {
		return b.AnswerRows
	}
	return DefaultAnswerRows
}

// questionJSON is the flat wire and storage shape of a question.
type questionJSON struct {
	ID           int          `json:"id"`
	ExamID       int          `json:"examId"`
	QuestionType QuestionType `json:"questionType"`
	Question     string       `json:"question"`
	MCQOptions   []string     `json:"mcqOptions"`
	AnswerCols   int          `json:"answerCols"`
}

// MarshalJSON flattens the body into mcqOptions/answerCols.
func (q Question) MarshalJSON() ([]byte, error) {
	return json.Marshal(questionJSON{
		ID:           q.ID,
		ExamID:       q.ExamID,
		QuestionType: q.Type(),
		Question:     q.Prompt,
		MCQOptions:   q.MCQOptions(),
		AnswerCols:   q.AnswerCols(),
	})
}

// UnmarshalJSON rebuilds the body from the flat shape.
func (q *Question) UnmarshalJSON(data []byte) error {
	var raw questionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	built, err := QuestionFromRow(raw.ID, raw.ExamID, string(raw.QuestionType), raw.Question, raw.MCQOptions, raw.AnswerCols)
	if err != nil {
		return err
	}
	*q = built
	return nil
}

// QuestionFromRow builds a Question from stored columns. Columns that do not
// belong to the row's type are dropped.
func QuestionFromRow(id, examID int, questionType, prompt string, mcqOptions []string, answerCols int) (Question, error) {
	t, err := ParseQuestionType(questionType)
	if err != nil {
		return Question{}, err
	}
	q := Question{ID: id, ExamID: examID, Prompt: prompt}
	switch t {
	case QuestionTypeMCQ:
		opts := make([]string, len(mcqOptions))
		copy(opts, mcqOptions)
		q.Body = MCQBody{Options: opts}
	case QuestionTypeTrueFalse:
		q.Body = TrueFalseBody{}
	case QuestionTypeQA:
		if answerCols < 1 {
			answerCols = DefaultAnswerRows
		}
		q.Body = QABody{AnswerRows: answerCols}
	}
	return q, nil
}

// CreateQuestionRequest is the payload for adding a question to an exam.
// Type-specific fields are checked by Validate, not by binding tags, so that
// values left over from another type never fail a request.
type CreateQuestionRequest struct {
	ExamID       FlexInt  `json:"examId" binding:"required,min=1"`
	QuestionType string   `json:"questionType" binding:"required,questiontype"`
	Question     string   `json:"question" binding:"required,max=2000"`
	MCQOptions   []string `json:"mcqOptions"`
	AnswerCols   *FlexInt `json:"answerCols"`
}

// Validate checks the fields that depend on the question type and returns
// field-level messages keyed by JSON name, or nil.
func (r *CreateQuestionRequest) Validate() map[string]string {
	fields := make(map[string]string)

	if strings.TrimSpace(r.Question) == "" {
		fields["question"] = "question is a required field"
	}

	switch QuestionType(r.QuestionType) {
	case QuestionTypeMCQ:
		if len(r.MCQOptions) == 0 {
			fields["mcqOptions"] = "mcqOptions must contain at least one option"
		}
		for i, opt := range r.MCQOptions {
			if strings.TrimSpace(opt) == "" {
				fields[fmt.Sprintf("mcqOptions[%d]", i)] = "option must not be empty"
			}
		}
	case QuestionTypeQA:
		if r.AnswerCols != nil && *r.AnswerCols != 0 {
			if n := r.AnswerCols.Int(); n < 1 || n > MaxAnswerRows {
				fields["answerCols"] = fmt.Sprintf("answerCols must be between 1 and %d", MaxAnswerRows)
			}
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}

// ToQuestion builds the typed question. Call Validate first.
func (r *CreateQuestionRequest) ToQuestion() (Question, error) {
	t, err := ParseQuestionType(r.QuestionType)
	if err != nil {
		return Question{}, err
	}

	q := Question{ExamID: r.ExamID.Int(), Prompt: strings.TrimSpace(r.Question)}
	switch t {
	case QuestionTypeMCQ:
		opts := make([]string, len(r.MCQOptions))
		for i, o := range r.MCQOptions {
			opts[i] = strings.TrimSpace(o)
		}
		q.Body = MCQBody{Options: opts}
	case QuestionTypeTrueFalse:
		q.Body = TrueFalseBody{}
	case QuestionTypeQA:
		rows := DefaultAnswerRows
		if r.AnswerCols != nil && *r.AnswerCols != 0 {
			rows = r.AnswerCols.Int()
		}
		q.Body = QABody{AnswerRows: rows}
	}
	return q, nil
}
