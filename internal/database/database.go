package database

import "time"

// Config holds all settings needed to connect to and pool a database.
type Config struct {
	// DSN is the PDO-style data source name: "<driver>:<body>".
	// Examples:
	//   "pgsql:host=localhost;port=5432;dbname=app"
	//   "mysql:host=localhost;dbname=app;charset=utf8mb4"
	//   "sqlite:/var/lib/app.db" or "sqlite::memory:"
	DSN string

	// Credentials are kept out of the DSN so it can be logged safely.
	User     string
	Password string

	// Pool tuning
	MaxConns        int32         // maximum number of connections in the pool
	MinConns        int32         // minimum number of idle connections kept alive
	MaxConnLifetime time.Duration // maximum time a connection may be reused
	MaxConnIdleTime time.Duration // maximum time a connection may sit idle

	// Timeouts
	ConnectTimeout time.Duration // time limit for establishing a new connection
	QueryTimeout   time.Duration // default per-query deadline (applied by callers)
}

// DefaultConfig returns production-ready pool settings for the given DSN.
// These defaults are tuned for a high-throughput read-heavy workload.
func DefaultConfig(dsn string) *Config {
	return &Config{
		DSN:             dsn,
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
		ConnectTimeout:  10 * time.Second,
		QueryTimeout:    30 * time.Second,
	}
}

// Driver returns the driver prefix of the DSN, or "" if the DSN is malformed.
func (c *Config) Driver() string {
	d, err := ParseDSN(c.DSN)
	if err != nil {
		return ""
	}
	return d.Driver
}
