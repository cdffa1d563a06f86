// Package sqlite provides the "sqlite" driver: a SQLite implementation of
// database.DB backed by database/sql and mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/koustreak/pdo/internal/database"
	"github.com/koustreak/pdo/internal/errs"

	_ "github.com/mattn/go-sqlite3" // register "sqlite3" driver
)

// DriverName is the DSN prefix this driver is registered under.
const DriverName = "sqlite"

const memoryPath = ":memory:"

// Info returns the registry entry for the sqlite driver.
func Info() database.DriverInfo {
	return database.DriverInfo{
		Name:    DriverName,
		Dialect: database.DialectSQLite,
		Open: func(ctx context.Context, cfg *database.Config) (database.DB, error) {
			return New(ctx, cfg)
		},
	}
}

// Driver is a SQLite implementation of database.DB.
// It is safe for concurrent use by multiple goroutines.
//
// In-memory databases live in a single connection, so a Rows must be closed
// before the next statement runs against the same Driver.
type Driver struct {
	db *sql.DB
}

// New opens the database file named by the DSN body ("sqlite:/path/app.db",
// "sqlite::memory:") and verifies it with Ping.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	path, err := dataSource(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", withForeignKeys(path))
	if err != nil {
		return nil, mapError(err, "failed to open database")
	}

	if isMemory(path) {
		// Every new connection to :memory: is a fresh, empty database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	} else {
		if cfg.MaxConns > 0 {
			db.SetMaxOpenConns(int(cfg.MaxConns))
		}
		if cfg.MinConns > 0 {
			db.SetMaxIdleConns(int(cfg.MinConns))
		}
		db.SetConnMaxLifetime(cfg.MaxConnLifetime)
		db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)
	}

	d := &Driver{db: db}

	if err := d.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return d, nil
}

func dataSource(cfg *database.Config) (string, error) {
	dsn, err := database.ParseDSN(cfg.DSN)
	if err != nil {
		return "", err
	}
	if dsn.Driver != DriverName {
		return "", database.NewError(errs.ErrKindInvalidInput, database.Code{},
			"DSN is not a "+DriverName+" data source", nil)
	}
	if strings.TrimSpace(dsn.Body) == "" {
		return "", database.NewError(errs.ErrKindInvalidInput, database.Code{},
			"sqlite DSN needs a file path or :memory:", nil)
	}
	return dsn.Body, nil
}

func isMemory(path string) bool {
	return path == memoryPath || strings.Contains(path, "mode=memory")
}

// withForeignKeys turns on foreign key enforcement for every pooled connection.
func withForeignKeys(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on"
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
	return &sqliteRows{rows: rows}, nil
}

func (d *Driver) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return &sqliteRow{row: d.db.QueryRowContext(ctx, query, args...)}
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
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

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
	const q = `SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?`

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

type sqliteRows struct {
	rows *sql.Rows
}

func (r *sqliteRows) Next() bool { return r.rows.Next() }
func (r *sqliteRows) Close()     { _ = r.rows.Close() }

func (r *sqliteRows) Columns() ([]string, error) {
	cols, err := r.rows.Columns()
	if err != nil {
		return nil, mapError(err, "failed to read column names")
	}
	return cols, nil
}

func (r *sqliteRows) Scan(dest ...any) error {
	if err := r.rows.Scan(dest...); err != nil {
		return mapError(err, "failed to scan row")
	}
	return nil
}

func (r *sqliteRows) Err() error {
	if err := r.rows.Err(); err != nil {
		return mapError(err, "error during row iteration")
	}
	return nil
}

type sqliteRow struct {
	row *sql.Row
}

func (r *sqliteRow) Scan(dest ...any) error {
	if err := r.row.Scan(dest...); err != nil {
		return mapError(err, "failed to scan row")
	}
	return nil
}
