package repository

import (
	"context"
	"errors"

	"github.com/stemsi/exam-paper/internal/model"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// ErrExamMissing is returned when a question is written for an exam that
// does not exist, e.g. one deleted while the question was being added.
var ErrExamMissing = errors.New("exam does not exist")

// ExamRepository is the persistence contract for exams.
type ExamRepository interface {
	// List returns all exams in insertion order.
	List(ctx context.Context) ([]model.Exam, error)
	// Create inserts e and fills its ID and CreatedAt.
	Create(ctx context.Context, e *model.Exam) error
	// Delete removes the exam and its questions. It reports whether a row
	// existed; a missing id is not an error.
	Delete(ctx context.Context, id int) (bool, error)
	Exists(ctx context.Context, id int) (bool, error)
	// GetWithQuestions is the compound read. Questions are in creation order.
	// Returns ErrNotFound when no exam matches.
	GetWithQuestions(ctx context.Context, id int) (*model.ExamWithQuestions, error)
}

// QuestionRepository is the persistence contract for questions.
type QuestionRepository interface {
	// Create inserts q and fills its ID. Returns ErrExamMissing when the
	// owning exam is gone.
	Create(ctx context.Context, q *model.Question) error
	// Delete reports whether a row existed; a missing id is not an error.
	Delete(ctx context.Context, id int) (bool, error)
	// ExamIDOf returns the owning exam of a question, or ErrNotFound.
	ExamIDOf(ctx context.Context, id int) (int, error)
}
