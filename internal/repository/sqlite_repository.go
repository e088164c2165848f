package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stemsi/exam-paper/internal/model"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// sqliteDateLayout is the format of created_at in the SQLite schema.
const sqliteDateLayout = "2006-01-02"

type sqliteExamRepository struct {
	db *sql.DB
}

// NewSQLiteExamRepository creates an ExamRepository over a database opened
// with database.NewSQLite.
func NewSQLiteExamRepository(db *sql.DB) ExamRepository {
	return &sqliteExamRepository{db: db}
}

func (r *sqliteExamRepository) List(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, subject, created_at FROM exams ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query exams: %w", err)
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		e, err := scanSQLiteExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

func (r *sqliteExamRepository) Create(ctx context.Context, e *model.Exam) error {
	var created string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO exams (title, subject) VALUES (?, ?)
		 RETURNING id, created_at`,
		e.Title, e.Subject,
	).Scan(&e.ID, &created)
	if err != nil {
		return err
	}
	e.CreatedAt, err = time.Parse(sqliteDateLayout, created)
	return err
}

func (r *sqliteExamRepository) Delete(ctx context.Context, id int) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE exam_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete questions: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM exams WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete exam: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return n > 0, nil
}

func (r *sqliteExamRepository) Exists(ctx context.Context, id int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM exams WHERE id = ?)`, id).Scan(&exists)
	return exists, err
}

func (r *sqliteExamRepository) GetWithQuestions(ctx context.Context, id int) (*model.ExamWithQuestions, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	exam, err := scanSQLiteExam(tx.QueryRowContext(ctx,
		`SELECT id, title, subject, created_at FROM exams WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, exam_id, question_type, question, mcq_options, answer_cols
		 FROM questions WHERE exam_id = ?
		 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	out := &model.ExamWithQuestions{Exam: exam, Questions: []model.Question{}}
	for rows.Next() {
		var (
			qID, examID, cols int
			qType, prompt     string
			rawOptions        string
		)
		if err := rows.Scan(&qID, &examID, &qType, &prompt, &rawOptions, &cols); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q, err := questionFromColumns(qID, examID, qType, prompt, []byte(rawOptions), cols)
		if err != nil {
			return nil, err
		}
		out.Questions = append(out.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteExam(row rowScanner) (model.Exam, error) {
	var (
		e       model.Exam
		created string
	)
	if err := row.Scan(&e.ID, &e.Title, &e.Subject, &created); err != nil {
		return model.Exam{}, err
	}
	t, err := time.Parse(sqliteDateLayout, created)
	if err != nil {
		return model.Exam{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	e.CreatedAt = t
	return e, nil
}

type sqliteQuestionRepository struct {
	db *sql.DB
}

// NewSQLiteQuestionRepository creates a QuestionRepository over a database
// opened with database.NewSQLite.
func NewSQLiteQuestionRepository(db *sql.DB) QuestionRepository {
	return &sqliteQuestionRepository{db: db}
}

func (r *sqliteQuestionRepository) Create(ctx context.Context, q *model.Question) error {
	options, err := encodeOptions(q)
	if err != nil {
		return err
	}
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO questions (exam_id, question_type, question, mcq_options, answer_cols)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id`,
		q.ExamID, string(q.Type()), q.Prompt, options, q.AnswerCols(),
	).Scan(&q.ID)
	if isSQLiteForeignKeyViolation(err) {
		return fmt.Errorf("create question for exam %d: %w", q.ExamID, ErrExamMissing)
	}
	return err
}

func isSQLiteForeignKeyViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY ||
		strings.Contains(se.Error(), "FOREIGN KEY constraint failed")
}

func (r *sqliteQuestionRepository) Delete(ctx context.Context, id int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *sqliteQuestionRepository) ExamIDOf(ctx context.Context, id int) (int, error) {
	var examID int
	err := r.db.QueryRowContext(ctx, `SELECT exam_id FROM questions WHERE id = ?`, id).Scan(&examID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get question exam: %w", err)
	}
	return examID, nil
}
