package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exam-paper/internal/model"
)

type examRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a PostgreSQL-backed ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) ExamRepository {
	return &examRepository{pool: pool}
}

func (r *examRepository) List(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, subject, created_at FROM exams ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query exams: %w", err)
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.Subject, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

func (r *examRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (title, subject) VALUES ($1, $2)
		 RETURNING id, created_at`,
		e.Title, e.Subject,
	).Scan(&e.ID, &e.CreatedAt)
}

func (r *examRepository) Delete(ctx context.Context, id int) (bool, error) {
	var deleted bool
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE exam_id = $1`, id); err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete exam: %w", err)
		}
		deleted = tag.RowsAffected() > 0
		return nil
	})
	return deleted, err
}

func (r *examRepository) Exists(ctx context.Context, id int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM exams WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *examRepository) GetWithQuestions(ctx context.Context, id int) (*model.ExamWithQuestions, error) {
	out := &model.ExamWithQuestions{Questions: []model.Question{}}

	// One read-only snapshot so the exam and its questions agree.
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	}, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`SELECT id, title, subject, created_at FROM exams WHERE id = $1`, id,
		).Scan(&out.ID, &out.Title, &out.Subject, &out.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get exam: %w", err)
		}

		rows, err := tx.Query(ctx,
			`SELECT id, exam_id, question_type, question, mcq_options, answer_cols
			 FROM questions WHERE exam_id = $1
			 ORDER BY id`, id)
		if err != nil {
			return fmt.Errorf("query questions: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				qID, examID, cols int
				qType, prompt     string
				rawOptions        []byte
			)
			if err := rows.Scan(&qID, &examID, &qType, &prompt, &rawOptions, &cols); err != nil {
				return fmt.Errorf("scan question: %w", err)
			}
			q, err := questionFromColumns(qID, examID, qType, prompt, rawOptions, cols)
			if err != nil {
				return err
			}
			out.Questions = append(out.Questions, q)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// questionFromColumns decodes the mcq_options JSON column and builds the variant.
func questionFromColumns(id, examID int, qType, prompt string, rawOptions []byte, cols int) (model.Question, error) {
	var options []string
	if len(rawOptions) > 0 {
		if err := json.Unmarshal(rawOptions, &options); err != nil {
			return model.Question{}, fmt.Errorf("decode mcq_options of question %d: %w", id, err)
		}
	}
	q, err := model.QuestionFromRow(id, examID, qType, prompt, options, cols)
	if err != nil {
		return model.Question{}, fmt.Errorf("question %d: %w", id, err)
	}
	return q, nil
}

// encodeOptions renders the mcq_options column value for q.
func encodeOptions(q *model.Question) (string, error) {
	b, err := json.Marshal(q.MCQOptions())
	if err != nil {
		return "", fmt.Errorf("encode mcq_options: %w", err)
	}
	return string(b), nil
}
