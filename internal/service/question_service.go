package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/stemsi/exam-paper/internal/events"
	"github.com/stemsi/exam-paper/internal/model"
	"github.com/stemsi/exam-paper/internal/repository"
)

// QuestionService handles question business logic.
type QuestionService struct {
	questionRepo repository.QuestionRepository
	examService  *ExamService
	publisher    events.Publisher
	log          zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(
	questionRepo repository.QuestionRepository,
	examService *ExamService,
	publisher events.Publisher,
	log zerolog.Logger,
) *QuestionService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &QuestionService{
		questionRepo: questionRepo,
		examService:  examService,
		publisher:    publisher,
		log:          log.With().Str("component", "question_service").Logger(),
	}
}

// Create adds q to its exam and fills q.ID.
// Returns ErrExamNotFound when q.ExamID does not name a stored exam.
func (s *QuestionService) Create(ctx context.Context, q *model.Question) error {
	exists, err := s.examService.Exists(ctx, q.ExamID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrExamNotFound
	}

	if err := s.questionRepo.Create(ctx, q); err != nil {
		// The exam was deleted after the existence check.
		if errors.Is(err, repository.ErrExamMissing) {
			return ErrExamNotFound
		}
		return storageError(err)
	}

	s.examService.InvalidatePaper(ctx, q.ExamID)
	s.log.Info().
		Int("question_id", q.ID).
		Int("exam_id", q.ExamID).
		Str("type", string(q.Type())).
		Msg("Question created")
	s.publish(ctx, events.New(events.QuestionCreated, q.ExamID, q.ID))
	return nil
}

// Delete removes a question. Returns ErrQuestionNotFound when no question has the id.
func (s *QuestionService) Delete(ctx context.Context, id int) error {
	examID, err := s.questionRepo.ExamIDOf(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrQuestionNotFound
	}
	if err != nil {
		return storageError(err)
	}

	deleted, err := s.questionRepo.Delete(ctx, id)
	if err != nil {
		return storageError(err)
	}
	if !deleted {
		// Removed concurrently between the lookup and the delete.
		return ErrQuestionNotFound
	}

	s.examService.InvalidatePaper(ctx, examID)
	s.log.Info().Int("question_id", id).Int("exam_id", examID).Msg("Question deleted")
	s.publish(ctx, events.New(events.QuestionDeleted, examID, id))
	return nil
}

func (s *QuestionService) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.Warn().Err(err).Str("event", string(e.Type)).Msg("Failed to publish change event")
	}
}
