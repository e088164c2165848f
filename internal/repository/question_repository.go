package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exam-paper/internal/model"
)

type questionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a PostgreSQL-backed QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) QuestionRepository {
	return &questionRepository{pool: pool}
}

func (r *questionRepository) Create(ctx context.Context, q *model.Question) error {
	options, err := encodeOptions(q)
	if err != nil {
		return err
	}
	err = r.pool.QueryRow(ctx,
		`INSERT INTO questions (exam_id, question_type, question, mcq_options, answer_cols)
		 VALUES ($1, $2, $3, $4::json, $5)
		 RETURNING id`,
		q.ExamID, string(q.Type()), q.Prompt, options, q.AnswerCols(),
	).Scan(&q.ID)
	if isPgForeignKeyViolation(err) {
		return fmt.Errorf("create question for exam %d: %w", q.ExamID, ErrExamMissing)
	}
	return err
}

// foreign_key_violation
const pgForeignKeyViolation = "23503"

func isPgForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

func (r *questionRepository) Delete(ctx context.Context, id int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *questionRepository) ExamIDOf(ctx context.Context, id int) (int, error) {
	var examID int
	err := r.pool.QueryRow(ctx, `SELECT exam_id FROM questions WHERE id = $1`, id).Scan(&examID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get question exam: %w", err)
	}
	return examID, nil
}
