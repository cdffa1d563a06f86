package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/koustreak/pdo/internal/database"
	"github.com/koustreak/pdo/internal/errs"
)

// sqlStateLinkFailure is MySQL's "communication link failure" state, reported
// for client-side connection errors that carry no server SQLSTATE.
const sqlStateLinkFailure = "08S01"

// mapError translates go-sql-driver/mysql errors into *database.DBError.
// Server errors carry [SQLSTATE, error number, message] as error info.
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

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		state := string(mysqlErr.SQLState[:])
		if mysqlErr.SQLState == [5]byte{} {
			state = database.SQLStateGeneral
		}
		return database.NewDriverError(
			classifyMySQLCode(mysqlErr.Number),
			fmt.Sprintf("%s: %s", msg, mysqlErr.Message),
			err,
			database.ErrorInfo{state, int(mysqlErr.Number), mysqlErr.Message},
		)
	}

	return database.NewDriverError(errs.ErrKindConnectionFailed, msg, err,
		database.ErrorInfo{sqlStateLinkFailure, nil, err.Error()})
}

// classifyMySQLCode maps MySQL error numbers to ErrKind.
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
func classifyMySQLCode(code uint16) errs.ErrKind {
	switch code {
	case 1044, 1045, 1049: // access denied to db, access denied for user, unknown db
		return errs.ErrKindConnectionFailed
	case 1040, 1203: // too many connections
		return errs.ErrKindConnectionFailed
	case 1142, 1143, 1227: // table/column/privilege denied
		return errs.ErrKindPermissionDenied
	case 1062, 1216, 1217, 1451, 1452: // duplicate entry, foreign key violations
		return errs.ErrKindConflict
	case 1205, 3024: // lock wait timeout, max execution time exceeded
		return errs.ErrKindTimeout
	default: // 1054 bad field, 1064 syntax, 1146 no such table, …
		return errs.ErrKindQueryFailed
	}
}
