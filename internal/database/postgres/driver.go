// Package postgres provides the "pgsql" driver: a PostgreSQL implementation
// of database.DB backed by pgxpool.
package postgres

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/koustreak/pdo/internal/database"
	"github.com/koustreak/pdo/internal/errs"
)

// DriverName is the DSN prefix this driver is registered under.
const DriverName = "pgsql"

const (
	defaultHost    = "localhost"
	defaultPort    = 5432
	defaultSSLMode = "disable"

	// sqlStateConnectionFailure is reported for failures without a server SQLSTATE
	sqlStateConnectionFailure = "08006"
)

// Info returns the registry entry for the pgsql driver.
func Info() database.DriverInfo {
	return database.DriverInfo{
		Name:    DriverName,
		Dialect: database.DialectPostgres,
		Open: func(ctx context.Context, cfg *database.Config) (database.DB, error) {
			return New(ctx, cfg)
		},
	}
}

// Driver is a PostgreSQL implementation of database.DB backed by pgxpool.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL using the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	connString, err := buildConnString(cfg)
	if err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, database.NewDriverError(errs.ErrKindInvalidInput, "invalid DSN", err,
			database.ErrorInfo{sqlStateConnectionFailure, nil, err.Error()})
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, mapError(err, "failed to create connection pool")
	}

	d := &Driver{pool: pool}

	if err := d.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return d, nil
}

// buildConnString turns a "pgsql:host=…;port=…;dbname=…" DSN into a
// postgres:// URL. User and password come from the Config, falling back to
// user= / password= DSN params.
func buildConnString(cfg *database.Config) (string, error) {
	dsn, err := database.ParseDSN(cfg.DSN)
	if err != nil {
		return "", err
	}
	if dsn.Driver != DriverName {
		return "", database.NewError(errs.ErrKindInvalidInput, database.Code{},
			"DSN is not a "+DriverName+" data source", nil)
	}
	params := dsn.Params()

	host := param(params, "host", defaultHost)
	port := param(params, "port", strconv.Itoa(defaultPort))
	if _, err := strconv.Atoi(port); err != nil {
		return "", database.NewError(errs.ErrKindInvalidInput, database.Code{},
			"invalid port "+strconv.Quote(port), err)
	}

	user := cfg.User
	if user == "" {
		user = params["user"]
	}
	password := cfg.Password
	if password == "" {
		password = params["password"]
	}

	u := &url.URL{
		Scheme: "postgres",
		Path:   "/" + params["dbname"],
	}
	if password != "" {
		u.User = url.UserPassword(user, password)
	} else if user != "" {
		u.User = url.User(user)
	}

	q := url.Values{}
	q.Set("sslmode", param(params, "sslmode", defaultSSLMode))
	if strings.HasPrefix(host, "/") {
		// Unix socket directory
		q.Set("host", host)
		q.Set("port", port)
	} else {
		u.Host = net.JoinHostPort(host, port)
	}
	for _, k := range []string{"connect_timeout", "application_name", "search_path"} {
		if v, ok := params[k]; ok {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func param(params map[string]string, key, def string) string {
	if v := params[key]; v != "" {
		return v
	}
	return def
}

// --- database.DB implementation ---

// DriverName implements database.DB.
func (d *Driver) DriverName() string { return DriverName }

// Ping verifies the database is reachable by acquiring and releasing a connection.
func (d *Driver) Ping(ctx context.Context) error {
	if err := d.pool.Ping(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close drains the connection pool. Call when the application shuts down.
func (d *Driver) Close() {
	d.pool.Close()
}

// Query executes a SQL statement that returns multiple rows.
func (d *Driver) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	rows, err := d.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	return &pgxRows{rows: rows}, nil
}

// QueryRow executes a SQL statement expected to return at most one row.
func (d *Driver) QueryRow(ctx context.Context, sql string, args ...any) database.Row {
	return &pgxRow{row: d.pool.QueryRow(ctx, sql, args...)}
}

// Exec executes a statement and returns the number of rows affected.
func (d *Driver) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := d.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, mapError(err, "exec failed")
	}
	return tag.RowsAffected(), nil
}

// ListTables returns all base tables in the current schema.
func (d *Driver) ListTables(ctx context.Context) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		  AND table_type   = 'BASE TABLE'
		ORDER BY table_name`

	rows, err := d.pool.Query(ctx, q)
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

// TableExists reports whether a table with the given name exists in the current schema.
func (d *Driver) TableExists(ctx context.Context, table string) (bool, error) {
	const q = `
		SELECT 1
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		  AND table_type   = 'BASE TABLE'
		  AND table_name   = $1`

	var exists int
	err := d.pool.QueryRow(ctx, q, table).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, mapError(err, "failed to check table existence")
	}
	return true, nil
}

// --- pgx type wrappers ---

// pgxRows wraps pgx.Rows to satisfy database.Rows.
type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Next() bool { return r.rows.Next() }
func (r *pgxRows) Close()     { r.rows.Close() }

func (r *pgxRows) Scan(dest ...any) error {
	if err := r.rows.Scan(dest...); err != nil {
		return mapError(err, "failed to scan row")
	}
	return nil
}

func (r *pgxRows) Err() error {
	if err := r.rows.Err(); err != nil {
		return mapError(err, "error during row iteration")
	}
	return nil
}

func (r *pgxRows) Columns() ([]string, error) {
	descs := r.rows.FieldDescriptions()
	cols := make([]string, len(descs))
	for i, d := range descs {
		cols[i] = d.Name
	}
	return cols, nil
}

// pgxRow wraps pgx.Row to satisfy database.Row.
type pgxRow struct {
	row pgx.Row
}

func (r *pgxRow) Scan(dest ...any) error {
	if err := r.row.Scan(dest...); err != nil {
		return mapError(err, "failed to scan row")
	}
	return nil
}
