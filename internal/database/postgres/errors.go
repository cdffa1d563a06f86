package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/pdo/internal/database"
	"github.com/koustreak/pdo/internal/errs"
)

// PostgreSQL SQLSTATE codes with special handling.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgErrInsufficientPrivilege = "42501"
	pgErrQueryCanceled         = "57014"
)

// mapError translates pgx / pgconn native errors into *database.DBError.
// PostgreSQL has no numeric driver code, so the second error info slot is nil.
func mapError(err error, msg string) *database.DBError {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return database.NewDriverError(errs.ErrKindTimeout, msg, err,
			database.ErrorInfo{database.SQLStateTimeout, nil, err.Error()})
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return database.NewDriverError(errs.ErrKindNotFound, msg, err,
			database.ErrorInfo{database.SQLStateNoData, nil, err.Error()})
	}

	// Postgres server-side error (SQLSTATE codes)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return database.NewDriverError(
			classifySQLState(pgErr.Code),
			fmt.Sprintf("%s: %s", msg, pgErr.Message),
			err,
			database.ErrorInfo{pgErr.Code, nil, pgErr.Message},
		)
	}

	// Fallthrough: connection-level errors (TLS, network, DNS)
	return database.NewDriverError(errs.ErrKindConnectionFailed, msg, err,
		database.ErrorInfo{sqlStateConnectionFailure, nil, err.Error()})
}

// classifySQLState maps a SQLSTATE to an ErrKind by exact code or class.
func classifySQLState(code string) errs.ErrKind {
	switch code {
	case pgErrInsufficientPrivilege:
		return errs.ErrKindPermissionDenied
	case pgErrQueryCanceled:
		return errs.ErrKindTimeout
	}

	switch {
	case strings.HasPrefix(code, "08"), strings.HasPrefix(code, "28"):
		// connection exception, invalid authorization
		return errs.ErrKindConnectionFailed
	case strings.HasPrefix(code, "23"):
		// integrity constraint violation
		return errs.ErrKindConflict
	default:
		return errs.ErrKindQueryFailed
	}
}
