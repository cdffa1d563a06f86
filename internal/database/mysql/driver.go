// Package mysql provides the "mysql" driver: a MySQL implementation of
// database.DB backed by database/sql and go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/koustreak/pdo/internal/database"
	"github.com/koustreak/pdo/internal/errs"
)

// DriverName is the DSN prefix this driver is registered under.
const DriverName = "mysql"

const (
	defaultHost            = "localhost"
	defaultPort            = 3306
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 10 * time.Minute
)

// Info returns the registry entry for the mysql driver.
func Info() database.DriverInfo {
	return database.DriverInfo{
		Name:    DriverName,
		Dialect: database.DialectMySQL,
		Open: func(ctx context.Context, cfg *database.Config) (database.DB, error) {
			return New(ctx, cfg)
		},
	}
}

// Driver is a MySQL implementation of database.DB backed by database/sql.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	db *sql.DB
}

// New opens a MySQL connection pool using the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, mapError(err, "invalid DSN")
	}

	db.SetMaxOpenConns(withDefault(int(cfg.MaxConns), defaultMaxOpenConns))
	db.SetMaxIdleConns(withDefault(int(cfg.MinConns), defaultMaxIdleConns))
	db.SetConnMaxLifetime(withDefault(cfg.MaxConnLifetime, defaultConnMaxLifetime))
	db.SetConnMaxIdleTime(withDefault(cfg.MaxConnIdleTime, defaultConnMaxIdleTime))

	d := &Driver{db: db}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	if err := d.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return d, nil
}

// buildDSN turns a "mysql:host=…;port=…;dbname=…;charset=…" DSN into the
// go-sql-driver format. unix_socket takes precedence over host/port.
func buildDSN(cfg *database.Config) (string, error) {
	dsn, err := database.ParseDSN(cfg.DSN)
	if err != nil {
		return "", err
	}
	if dsn.Driver != DriverName {
		return "", database.NewError(errs.ErrKindInvalidInput, database.Code{},
			"DSN is not a "+DriverName+" data source", nil)
	}
	params := dsn.Params()

	mc := mysql.NewConfig()
	mc.User = cfg.User
	if mc.User == "" {
		mc.User = params["user"]
	}
	mc.Passwd = cfg.Password
	if mc.Passwd == "" {
		mc.Passwd = params["password"]
	}
	mc.DBName = params["dbname"]
	mc.ParseTime = true
	mc.Timeout = cfg.ConnectTimeout

	if socket := params["unix_socket"]; socket != "" {
		mc.Net = "unix"
		mc.Addr = socket
	} else {
		host := params["host"]
		if host == "" {
			host = defaultHost
		}
		port := strconv.Itoa(defaultPort)
		if p := params["port"]; p != "" {
			if _, err := strconv.Atoi(p); err != nil {
				return "", database.NewError(errs.ErrKindInvalidInput, database.Code{},
					"invalid port "+strconv.Quote(p), err)
			}
			port = p
		}
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(host, port)
	}

	if charset := params["charset"]; charset != "" {
		if err := mc.Apply(mysql.Charset(charset, "")); err != nil {
			return "", database.NewError(errs.ErrKindInvalidInput, database.Code{},
				"invalid charset "+strconv.Quote(charset), err)
		}
	}

	return mc.FormatDSN(), nil
}

// withDefault returns val if non-zero, otherwise returns def
func withDefault[T int | time.Duration](val, def T) T {
	if val <= 0 {
		return def
	}
	return val
}

// --- database.DB implementation ---

// DriverName implements database.DB.
func (d *Driver) DriverName() string { return DriverName }

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

func (d *Driver) Close() {
	_ = d.db.Close()
}

func (d *Driver) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	return &mysqlRows{rows: rows}, nil
}

func (d *Driver) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return &mysqlRow{row: d.db.QueryRowContext(ctx, query, args...)}
}

func (d *Driver) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapError(err, "exec failed")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError(err, "failed to read affected rows")
	}
	return n, nil
}

func (d *Driver) ListTables(ctx context.Context) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_type   = 'BASE TABLE'
		ORDER BY table_name`

	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, mapError(err, "failed to list tables")
	}
	defer rows.Close()

	tables := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, mapError(err, "failed to scan table name")
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating tables")
	}
	return tables, nil
}

func (d *Driver) TableExists(ctx context.Context, table string) (bool, error) {
	const q = `
		SELECT 1
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_type   = 'BASE TABLE'
		  AND table_name   = ?`

	var exists int
	err := d.db.QueryRowContext(ctx, q, table).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, mapError(err, "failed to check table existence")
	}
	return true, nil
}

// --- sql.DB type wrappers ---

type mysqlRows struct {
	rows *sql.Rows
}

func (r *mysqlRows) Next() bool { return r.rows.Next() }
func (r *mysqlRows) Close()     { _ = r.rows.Close() }

func (r *mysqlRows) Columns() ([]string, error) {
	cols, err := r.rows.Columns()
	if err != nil {
		return nil, mapError(err, "failed to read column names")
	}
	return cols, nil
}

func (r *mysqlRows) Scan(dest ...any) error {
	if err := r.rows.Scan(dest...); err != nil {
		return mapError(err, "failed to scan row")
	}
	return nil
}

func (r *mysqlRows) Err() error {
	if err := r.rows.Err(); err != nil {
		return mapError(err, "error during row iteration")
	}
	return nil
}

type mysqlRow struct {
	row *sql.Row
}

func (r *mysqlRow) Scan(dest ...any) error {
	if err := r.row.Scan(dest...); err != nil {
		return mapError(err, "failed to scan row")
	}
	return nil
}
