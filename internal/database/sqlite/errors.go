package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/koustreak/pdo/internal/database"
	"github.com/koustreak/pdo/internal/errs"
	"github.com/mattn/go-sqlite3"
)

// mapError translates go-sqlite3 errors into *database.DBError.
// SQLite errors carry [SQLSTATE, result code, message] as error info.
func mapError(err error, msg string) *database.DBError {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return database.NewDriverError(errs.ErrKindTimeout, msg, err,
			database.ErrorInfo{database.SQLStateTimeout, nil, err.Error()})
	}

	if errors.Is(err, sql.ErrNoRows) {
		return database.NewDriverError(errs.ErrKindNotFound, msg, err,
			database.ErrorInfo{database.SQLStateNoData, nil, err.Error()})
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return database.NewDriverError(
			classifyResultCode(liteErr.Code),
			fmt.Sprintf("%s: %s", msg, liteErr.Error()),
			err,
			database.ErrorInfo{sqlStateFor(liteErr.Code), int(liteErr.Code), liteErr.Error()},
		)
	}

	return database.NewDriverError(errs.ErrKindQueryFailed, msg, err,
		database.ErrorInfo{database.SQLStateGeneral, nil, err.Error()})
}

// sqlStateFor maps SQLite result codes to SQLSTATE the way PHP's pdo_sqlite does.
func sqlStateFor(code sqlite3.ErrNo) string {
	switch code {
	case sqlite3.ErrNotFound:
		return "42S02"
	case sqlite3.ErrInterrupt:
		return "01002"
	case sqlite3.ErrNoLFS:
		return "HYC00"
	case sqlite3.ErrTooBig:
		return "22001"
	case sqlite3.ErrConstraint:
		return "23000"
	default:
		return database.SQLStateGeneral
	}
}

func classifyResultCode(code sqlite3.ErrNo) errs.ErrKind {
	switch code {
	case sqlite3.ErrConstraint:
		return errs.ErrKindConflict
	case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrInterrupt:
		return errs.ErrKindTimeout
	case sqlite3.ErrPerm, sqlite3.ErrAuth, sqlite3.ErrReadonly:
		return errs.ErrKindPermissionDenied
	case sqlite3.ErrCantOpen, sqlite3.ErrNotADB, sqlite3.ErrCorrupt:
		return errs.ErrKindConnectionFailed
	default:
		return errs.ErrKindQueryFailed
	}
}
