package mysql

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/koustreak/pdo/internal/database"
	"github.com/koustreak/pdo/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN_TCP(t *testing.T) {
	cfg := &database.Config{
		DSN:            "mysql:host=db.internal;port=3307;dbname=shop;charset=utf8mb4",
		User:           "shop",
		Password:       "secret",
		ConnectTimeout: 5 * time.Second,
	}

	dsn, err := buildDSN(cfg)
	require.NoError(t, err)

	parsed, err := gomysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "shop", parsed.User)
	assert.Equal(t, "secret", parsed.Passwd)
	assert.Equal(t, "tcp", parsed.Net)
	assert.Equal(t, "db.internal:3307", parsed.Addr)
	assert.Equal(t, "shop", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, 5*time.Second, parsed.Timeout)
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestBuildDSN_Defaults(t *testing.T) {
	dsn, err := buildDSN(&database.Config{DSN: "mysql:dbname=app;user=ro;password=pw"})
	require.NoError(t, err)

	parsed, err := gomysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "localhost:3306", parsed.Addr)
	assert.Equal(t, "ro", parsed.User)
	assert.Equal(t, "pw", parsed.Passwd)
}

func TestBuildDSN_UnixSocket(t *testing.T) {
	dsn, err := buildDSN(&database.Config{DSN: "mysql:unix_socket=/run/mysqld/mysqld.sock;dbname=app"})
	require.NoError(t, err)

	parsed, err := gomysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "unix", parsed.Net)
	assert.Equal(t, "/run/mysqld/mysqld.sock", parsed.Addr)
}

func TestBuildDSN_Invalid(t *testing.T) {
	for _, dsn := range []string{"pgsql:host=h", "mysql:host=h;port=x", ":host=h"} {
		t.Run(dsn, func(t *testing.T) {
			_, err := buildDSN(&database.Config{DSN: dsn})
			assert.True(t, errs.IsInvalidInput(err))
		})
	}
}

func TestMapError_MySQLError(t *testing.T) {
	native := &gomysql.MySQLError{
		Number:   1045,
		SQLState: [5]byte{'2', '8', '0', '0', '0'},
		Message:  "Access denied for user 'shop'@'localhost'",
	}

	dbErr := mapError(native, "ping failed")
	require.NotNil(t, dbErr)

	assert.Equal(t, errs.ErrKindConnectionFailed, dbErr.Kind)
	assert.Equal(t, "28000", dbErr.Code().Value())
	assert.Equal(t,
		database.ErrorInfo{"28000", 1045, "Access denied for user 'shop'@'localhost'"},
		dbErr.ErrorInfo())
	assert.ErrorIs(t, dbErr, native)
}

func TestMapError_MySQLErrorWithoutState(t *testing.T) {
	dbErr := mapError(&gomysql.MySQLError{Number: 1064, Message: "syntax"}, "query failed")
	require.NotNil(t, dbErr)

	assert.Equal(t, "HY000", dbErr.ErrorInfo().SQLState())
	assert.Equal(t, 1064, dbErr.ErrorInfo().DriverCode())
	assert.True(t, database.IsQueryFailed(dbErr))
}

func TestMapError_Generic(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     errs.ErrKind
		sqlState string
	}{
		{"deadline", context.DeadlineExceeded, errs.ErrKindTimeout, "HYT00"},
		{"no rows", sql.ErrNoRows, errs.ErrKindNotFound, "02000"},
		{"bad conn", gomysql.ErrInvalidConn, errs.ErrKindConnectionFailed, "08S01"},
		{"other", errors.New("broken pipe"), errs.ErrKindConnectionFailed, "08S01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbErr := mapError(tt.err, "op")
			assert.Equal(t, tt.kind, dbErr.Kind)
			assert.Equal(t, tt.sqlState, dbErr.ErrorInfo().SQLState())
			assert.Nil(t, dbErr.ErrorInfo().DriverCode())
		})
	}
}

func TestClassifyMySQLCode(t *testing.T) {
	tests := []struct {
		code uint16
		want errs.ErrKind
	}{
		{1045, errs.ErrKindConnectionFailed},
		{1040, errs.ErrKindConnectionFailed},
		{1142, errs.ErrKindPermissionDenied},
		{1062, errs.ErrKindConflict},
		{1452, errs.ErrKindConflict},
		{1205, errs.ErrKindTimeout},
		{1146, errs.ErrKindQueryFailed},
		{1064, errs.ErrKindQueryFailed},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyMySQLCode(tt.code), "code %d", tt.code)
	}
}

func TestWithDefault(t *testing.T) {
	assert.Equal(t, 10, withDefault(0, 10))
	assert.Equal(t, 3, withDefault(3, 10))
	assert.Equal(t, time.Minute, withDefault(time.Duration(0), time.Minute))
}

func TestInfo(t *testing.T) {
	info := Info()
	assert.Equal(t, "mysql", info.Name)
	assert.Equal(t, database.DialectMySQL, info.Dialect)
}
