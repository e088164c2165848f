package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Exam is a named collection of questions for one subject.
type Exam struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Subject   string    `json:"subject"`
	CreatedAt time.Time `json:"createdAt"`
}

// ExamWithQuestions is the compound read: an exam together with all of its questions.
type ExamWithQuestions struct {
	Exam
	Questions []Question `json:"questions"`
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title   string `json:"title" binding:"required,min=2,max=50"`
	Subject string `json:"subject" binding:"required,min=2,max=500"`
}

// UnmarshalJSON trims title and subject while decoding, so the length rules
// run against the values that get stored.
func (r *CreateExamRequest) UnmarshalJSON(data []byte) error {
	type plain CreateExamRequest
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	v.Title = strings.TrimSpace(v.Title)
	v.Subject = strings.TrimSpace(v.Subject)
	*r = CreateExamRequest(v)
	return nil
}

// DeleteExamRequest is the payload for deleting an exam.
type DeleteExamRequest struct {
	ID FlexInt `json:"id" binding:"required,min=1"`
}
