// Package paper turns an exam and its questions into a printable question
// paper. Build produces a Layout; RenderHTML and RenderPDF only draw it, so
// the preview, the print view and the PDF cannot disagree on content.
package paper

import (
	"errors"
	"fmt"

	"github.com/stemsi/exam-paper/internal/model"
)

// ErrUnknownQuestionType is returned by Build for a question whose body is
// missing or not one of the known variants.
var ErrUnknownQuestionType = errors.New("unknown question type")

// A4 in PostScript points.
const (
	PageWidthPt  = 595.28
	PageHeightPt = 841.89
)

// NameFieldLabel heads the blank the candidate writes their name on.
const NameFieldLabel = "Name:"

// Kind selects how a block's answer space is drawn.
type Kind string

const (
	KindChoices Kind = "choices"
	KindAnswer  Kind = "answer"
)

// Header is the top of the paper.
type Header struct {
	Title     string
	Subject   string
	NameField string
}

// Choice is one non-interactive checkable item.
type Choice struct {
	Label string
}

// AnswerArea is a blank multi-line area.
type AnswerArea struct {
	Rows int
}

// Block is one numbered question on the paper. Exactly one of Choices or
// Answer is set, according to Kind.
type Block struct {
	Number  int
	Prompt  string
	Kind    Kind
	Choices []Choice
	Answer  *AnswerArea
}

// Layout is the complete, renderer-independent description of a paper.
type Layout struct {
	Header Header
	Blocks []Block
}

// trueFalseChoices are the fixed items of every True/False question.
var trueFalseChoices = []Choice{{Label: "True"}, {Label: "False"}}

// Build lays out the paper for exam. Questions are numbered from 1 in the
// order given. The result depends only on the input.
func Build(exam model.ExamWithQuestions) (*Layout, error) {
	layout := &Layout{
		Header: Header{
			Title:     exam.Title,
			Subject:   exam.Subject,
			NameField: NameFieldLabel,
		},
		Blocks: make([]Block, 0, len(exam.Questions)),
	}

	for i, q := range exam.Questions {
		block := Block{Number: i + 1, Prompt: q.Prompt}

		switch body := q.Body.(type) {
		case model.MCQBody:
			block.Kind = KindChoices
			block.Choices = make([]Choice, len(body.Options))
			for j, opt := range body.Options {
				block.Choices[j] = Choice{Label: opt}
			}
		case model.TrueFalseBody:
			block.Kind = KindChoices
			block.Choices = append([]Choice(nil), trueFalseChoices...)
		case model.QABody:
			rows := body.AnswerRows
			if rows < 1 {
				rows = model.DefaultAnswerRows
			}
			block.Kind = KindAnswer
			block.Answer = &AnswerArea{Rows: rows}
		default:
			return nil, fmt.Errorf("question %d (#%d): %w", q.ID, i+1, ErrUnknownQuestionType)
		}

		layout.Blocks = append(layout.Blocks, block)
	}
	return layout, nil
}
