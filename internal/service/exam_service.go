package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-paper/internal/config"
	"github.com/stemsi/exam-paper/internal/events"
	"github.com/stemsi/exam-paper/internal/model"
	"github.com/stemsi/exam-paper/internal/repository"
)

// ExamService handles exam business logic and the Redis paper cache.
type ExamService struct {
	examRepo  repository.ExamRepository
	rdb       *redis.Client
	publisher events.Publisher
	cacheTTL  time.Duration
	log       zerolog.Logger
}

// NewExamService creates a new ExamService. A nil rdb disables the paper cache.
func NewExamService(
	examRepo repository.ExamRepository,
	rdb *redis.Client,
	publisher events.Publisher,
	cacheTTL time.Duration,
	log zerolog.Logger,
) *ExamService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ExamService{
		examRepo:  examRepo,
		rdb:       rdb,
		publisher: publisher,
		cacheTTL:  cacheTTL,
		log:       log.With().Str("component", "exam_service").Logger(),
	}
}

// List returns every exam in creation order.
func (s *ExamService) List(ctx context.Context) ([]model.Exam, error) {
	exams, err := s.examRepo.List(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	return exams, nil
}

// Create stores a new exam and fills its id and creation date.
func (s *ExamService) Create(ctx context.Context, exam *model.Exam) error {
	exam.Title = strings.TrimSpace(exam.Title)
	exam.Subject = strings.TrimSpace(exam.Subject)

	if err := s.examRepo.Create(ctx, exam); err != nil {
		return storageError(err)
	}

	s.log.Info().Int("exam_id", exam.ID).Str("title", exam.Title).Msg("Exam created")
	s.publish(ctx, events.New(events.ExamCreated, exam.ID, 0))
	return nil
}

// Delete removes an exam and all of its questions.
// Returns ErrExamNotFound when no exam has the id.
func (s *ExamService) Delete(ctx context.Context, id int) error {
	deleted, err := s.examRepo.Delete(ctx, id)
	if err != nil {
		return storageError(err)
	}
	if !deleted {
		return ErrExamNotFound
	}

	s.markDeleted(ctx, id)
	s.InvalidatePaper(ctx, id)
	s.log.Info().Int("exam_id", id).Msg("Exam deleted")
	s.publish(ctx, events.New(events.ExamDeleted, id, 0))
	return nil
}

// Exists reports whether an exam with the id is stored.
func (s *ExamService) Exists(ctx context.Context, id int) (bool, error) {
	ok, err := s.examRepo.Exists(ctx, id)
	return ok, storageError(err)
}

// GetWithQuestions returns the exam with its questions in creation order,
// served from the paper cache when possible.
func (s *ExamService) GetWithQuestions(ctx context.Context, id int) (*model.ExamWithQuestions, error) {
	if cached, ok := s.cachedPaper(ctx, id); ok {
		return cached, nil
	}

	exam, err := s.examRepo.GetWithQuestions(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrExamNotFound
	}
	if err != nil {
		return nil, storageError(err)
	}

	if err := s.cachePaper(ctx, exam); err != nil {
		s.log.Warn().Err(err).Int("exam_id", id).Msg("Failed to cache paper")
	}
	return exam, nil
}

// ─── Paper cache ────────────────────────────────────────────────────

var errPaperDeleted = errors.New("exam deleted")

// WarmPaperCache loads one exam and its questions from storage into Redis.
func (s *ExamService) WarmPaperCache(ctx context.Context, id int) error {
	if s.rdb == nil {
		return nil
	}
	exam, err := s.examRepo.GetWithQuestions(ctx, id)
	if err != nil {
		return fmt.Errorf("get exam: %w", err)
	}
	return s.cachePaper(ctx, exam)
}

// PrewarmPaperCache loads every exam into Redis on application startup.
// Exams that fail to load are logged and skipped.
func (s *ExamService) PrewarmPaperCache(ctx context.Context) error {
	if s.rdb == nil {
		return nil
	}

	exams, err := s.examRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("list exams: %w", err)
	}
	if len(exams) == 0 {
		s.log.Info().Msg("No exams to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(exams)).Msg("Prewarming paper cache...")

	warmed := 0
	for _, e := range exams {
		if err := s.WarmPaperCache(ctx, e.ID); err != nil {
			s.log.Warn().
				Err(err).
				Int("exam_id", e.ID).
				Msg("Failed to warm paper, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(exams)).
		Msg("Prewarming complete")
	return nil
}

// InvalidatePaper drops the cached paper of an exam. Failures are logged;
// the entry expires after the cache TTL regardless.
func (s *ExamService) InvalidatePaper(ctx context.Context, examID int) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, config.CacheKey.ExamPaperKey(examID)).Err(); err != nil {
		s.log.Warn().Err(err).Int("exam_id", examID).Msg("Failed to invalidate paper cache")
	}
}

// markDeleted leaves a tombstone that cachePaper checks before writing.
// Exam ids are never reused, so the tombstone only has to outlive reads
// that started before the delete.
func (s *ExamService) markDeleted(ctx context.Context, examID int) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Set(ctx, config.CacheKey.ExamDeletedKey(examID), 1, s.cacheTTL).Err(); err != nil {
		s.log.Warn().Err(err).Int("exam_id", examID).Msg("Failed to mark paper deleted")
	}
}

func (s *ExamService) cachedPaper(ctx context.Context, id int) (*model.ExamWithQuestions, bool) {
	if s.rdb == nil {
		return nil, false
	}

	data, err := s.rdb.Get(ctx, config.CacheKey.ExamPaperKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Int("exam_id", id).Msg("Paper cache read failed, using storage")
		}
		return nil, false
	}

	var exam model.ExamWithQuestions
	if err := json.Unmarshal(data, &exam); err != nil {
		s.log.Warn().Err(err).Int("exam_id", id).Msg("Corrupt paper cache entry, using storage")
		return nil, false
	}
	if exam.Questions == nil {
		exam.Questions = []model.Question{}
	}
	return &exam, true
}

func (s *ExamService) cachePaper(ctx context.Context, exam *model.ExamWithQuestions) error {
	if s.rdb == nil {
		return nil
	}

	payload, err := json.Marshal(exam)
	if err != nil {
		return fmt.Errorf("marshal paper: %w", err)
	}

	paperKey := config.CacheKey.ExamPaperKey(exam.ID)
	deletedKey := config.CacheKey.ExamDeletedKey(exam.ID)
	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, deletedKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return errPaperDeleted
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, paperKey, payload, s.cacheTTL)
			return nil
		})
		return err
	}, deletedKey)
	if errors.Is(err, errPaperDeleted) || errors.Is(err, redis.TxFailedErr) {
		s.log.Debug().Int("exam_id", exam.ID).Msg("Exam deleted during read, paper not cached")
		return nil
	}
	if err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Int("exam_id", exam.ID).
		Int("questions", len(exam.Questions)).
		Msg("Paper cached")
	return nil
}

func (s *ExamService) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.Warn().Err(err).Str("event", string(e.Type)).Msg("Failed to publish change event")
	}
}
