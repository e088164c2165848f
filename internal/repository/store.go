package repository

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/exam-paper/internal/config"
	"github.com/stemsi/exam-paper/internal/database"
)

// Store bundles the repositories of one storage backend with its lifecycle.
type Store struct {
	Exams     ExamRepository
	Questions QuestionRepository

	// Driver is the backend in use, config.DriverPostgres or config.DriverSQLite.
	Driver string

	ping  func(ctx context.Context) error
	close func()
}

// Open connects the backend selected by cfg.DBDriver. PostgreSQL expects the
// schema to be migrated already; SQLite applies its schema on open.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Store, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err := database.NewSQLite(ctx, cfg.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		return &Store{
			Exams:     NewSQLiteExamRepository(db),
			Questions: NewSQLiteQuestionRepository(db),
			Driver:    config.DriverSQLite,
			ping:      db.PingContext,
			close:     func() { _ = db.Close() },
		}, nil

	case config.DriverPostgres, "":
		pool, err := database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return &Store{
			Exams:     NewExamRepository(pool),
			Questions: NewQuestionRepository(pool),
			Driver:    config.DriverPostgres,
			ping:      pool.Ping,
			close:     pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unsupported storage driver %q", cfg.DBDriver)
}

// Ping checks that the backend answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the underlying connections.
func (s *Store) Close() {
	s.close()
}
