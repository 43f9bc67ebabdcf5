package sqldb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/garnizeh/rentops/pkg/repository"
)

// classify maps a raw storage error onto the repository error taxonomy.
// NotFoundError and ConflictError pass through untouched.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var nf *repository.NotFoundError
	var ce *repository.ConflictError
	if errors.As(err, &nf) || errors.As(err, &ce) {
		return err
	}

	pe := &repository.PersistenceError{Op: op, Kind: repository.KindUnknown, Retryable: true, Err: err}

	var sqliteErr *sqlite.Error
	var pgErr *pgconn.PgError
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		pe.Kind = repository.KindUnavailable
	case errors.As(err, &sqliteErr):
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_CONSTRAINT:
			pe.Kind, pe.Retryable = repository.KindConstraint, false
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			pe.Kind = repository.KindUnavailable
		}
	case errors.As(err, &pgErr):
		switch {
		case strings.HasPrefix(pgErr.Code, "23"):
			pe.Kind, pe.Retryable = repository.KindConstraint, false
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "40"), strings.HasPrefix(pgErr.Code, "57P"):
			pe.Kind = repository.KindUnavailable
		}
	case errors.As(err, &netErr):
		pe.Kind = repository.KindUnavailable
	}

	return pe
}
