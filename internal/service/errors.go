package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

// Domain Errors
var (
	ErrExamNotFound       = errors.New("exam not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// storageError wraps err with ErrStorageUnavailable when it comes from a lost
// or refused database connection. Other errors are returned unchanged.
func storageError(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}

	var (
		connectErr *pgconn.ConnectError
		netErr     net.Error
	)
	switch {
	case errors.As(err, &connectErr),
		errors.As(err, &netErr),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return err
}
